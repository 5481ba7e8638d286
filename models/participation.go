package models

// Participation is the per-user reward record for a tournament. Its mere
// existence is the idempotency witness for "rewards already distributed for
// this user"; the unique index on (tournament_id, user_id) is load-bearing
// for correctness, not hygiene.
//
// Placement 0 means participant tier (no podium). SkillSyncPending marks
// distributions whose skill-profile write-back failed and is owed a retry.
type Participation struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TournamentID string `json:"tournament_id" gorm:"not null;uniqueIndex:idx_participations_tournament_user"`
	UserID       string `json:"user_id" gorm:"not null;uniqueIndex:idx_participations_tournament_user"`

	Placement          int     `json:"placement" gorm:"default:0"`
	SkillPointsAwarded float64 `json:"skill_points_awarded" gorm:"default:0"`
	BaseXP             int64   `json:"base_xp" gorm:"default:0"`
	BonusXP            int64   `json:"bonus_xp" gorm:"default:0"`
	CreditsAwarded     int64   `json:"credits_awarded" gorm:"default:0"`
	SkillRatingDelta   float64 `json:"skill_rating_delta" gorm:"default:0"`

	SkillSyncPending bool `json:"skill_sync_pending" gorm:"default:false"`

	Timestamps
}
