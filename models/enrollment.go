package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "pending"
	EnrollmentApproved EnrollmentStatus = "approved"
	EnrollmentRejected EnrollmentStatus = "rejected"
)

// Enrollment mirrors the external enrollment service's approved-participant
// list. SeedPosition is the enrollment order used as the seeding baseline by
// the pairing generator. Rows are upserted by the enrollment sync worker and
// read-only for everything else.
type Enrollment struct {
	ID           string           `json:"id" gorm:"primaryKey"`
	TournamentID string           `json:"tournament_id" gorm:"not null;uniqueIndex:idx_enrollments_tournament_user"`
	UserID       string           `json:"user_id" gorm:"not null;uniqueIndex:idx_enrollments_tournament_user"`
	Status       EnrollmentStatus `json:"status" gorm:"type:varchar(16);default:'pending';index"`
	SeedPosition int              `json:"seed_position" gorm:"default:0"`
	JoinedAt     time.Time        `json:"joined_at"`

	Timestamps
}
