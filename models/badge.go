package models

import (
	"time"
)

// BadgeType enumerates the achievement catalog. Keeping it a typed constant
// set (rather than free strings) means every dispatch over badge kinds is
// checkable at compile time.
type BadgeType string

const (
	BadgeChampion    BadgeType = "CHAMPION"
	BadgeRunnerUp    BadgeType = "RUNNER_UP"
	BadgeThirdPlace  BadgeType = "THIRD_PLACE"
	BadgeParticipant BadgeType = "PARTICIPANT"

	// Milestone badges, computed fresh from badge history on every award
	// pass. No counters to keep in sync.
	BadgeVeteran     BadgeType = "VETERAN"
	BadgeLegend      BadgeType = "LEGEND"
	BadgeTripleCrown BadgeType = "TRIPLE_CROWN"
)

// Milestone thresholds. VETERAN and LEGEND count all tournament badges a
// user holds; TRIPLE_CROWN counts CHAMPION badges.
const (
	VeteranBadgeCount     = 5
	LegendBadgeCount      = 20
	TripleCrownChampCount = 3
)

// BadgeDef is the static presentation for a badge type.
type BadgeDef struct {
	Title  string `json:"title"`
	Icon   string `json:"icon"`
	Rarity string `json:"rarity"`
}

// BadgeCatalog maps every badge type to its default presentation. Placement
// entries may be overridden per tournament by the reward policy.
var BadgeCatalog = map[BadgeType]BadgeDef{
	BadgeChampion:    {Title: "Tournament Champion", Icon: "trophy-gold", Rarity: "epic"},
	BadgeRunnerUp:    {Title: "Runner-up", Icon: "trophy-silver", Rarity: "rare"},
	BadgeThirdPlace:  {Title: "Third Place", Icon: "trophy-bronze", Rarity: "rare"},
	BadgeParticipant: {Title: "Competitor", Icon: "flag", Rarity: "common"},
	BadgeVeteran:     {Title: "Tournament Veteran", Icon: "shield", Rarity: "rare"},
	BadgeLegend:      {Title: "Living Legend", Icon: "crown", Rarity: "legendary"},
	BadgeTripleCrown: {Title: "Triple Crown", Icon: "triple-crown", Rarity: "legendary"},
}

// Def returns the catalog entry for the badge type, with a neutral fallback
// for unknown values coming out of old rows.
func (t BadgeType) Def() BadgeDef {
	if d, ok := BadgeCatalog[t]; ok {
		return d
	}
	return BadgeDef{Title: string(t), Icon: "badge", Rarity: "common"}
}

// PlacementBadgeType maps a podium placement to its badge type; ok is false
// for non-podium placements.
func PlacementBadgeType(placement int) (BadgeType, bool) {
	switch placement {
	case 1:
		return BadgeChampion, true
	case 2:
		return BadgeRunnerUp, true
	case 3:
		return BadgeThirdPlace, true
	}
	return "", false
}

// Badge is an awarded instance, immutable once created. The unique index on
// (user_id, tournament_id, badge_type) resolves concurrent award races: the
// loser's insert conflicts and the existing row is returned instead.
type Badge struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	UserID       string    `json:"user_id" gorm:"not null;uniqueIndex:idx_badges_user_tournament_type"`
	TournamentID string    `json:"tournament_id" gorm:"not null;uniqueIndex:idx_badges_user_tournament_type"`
	BadgeType    BadgeType `json:"badge_type" gorm:"type:varchar(32);not null;uniqueIndex:idx_badges_user_tournament_type"`
	Title        string    `json:"title"`
	Icon         string    `json:"icon" gorm:"type:varchar(32)"`
	Rarity       string    `json:"rarity" gorm:"type:varchar(16)"`
	AwardedAt    time.Time `json:"awarded_at" gorm:"autoCreateTime"`
}
