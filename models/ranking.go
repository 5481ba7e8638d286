package models

// Ranking is the final standing of one participant in one tournament.
// Rank is nil for participants who finished off the podium; they still get
// a row so participation-tier rewards can find them. Upserted by the
// finalizer keyed on (tournament_id, user_id).
type Ranking struct {
	ID           string  `json:"id" gorm:"primaryKey"`
	TournamentID string  `json:"tournament_id" gorm:"not null;uniqueIndex:idx_rankings_tournament_user"`
	UserID       string  `json:"user_id" gorm:"not null;uniqueIndex:idx_rankings_tournament_user"`
	Rank         *int    `json:"rank"`
	Points       float64 `json:"points" gorm:"default:0"`

	Timestamps
}
