package models

// User is the local mirror of a platform account plus the balance counters
// this service owns. Identity fields are refreshed by the user sync
// worker; XP and Credits are mutated ONLY via atomic increments
// (UPDATE ... SET xp = xp + ?) so concurrent reward distributions across
// tournaments cannot lose an update. Never load-then-store a balance.
type User struct {
	ID          string `json:"id" gorm:"primaryKey"`
	DisplayName string `json:"display_name" gorm:"index"`

	// ASCII-folded lowercase display name, maintained by the sync worker
	// so LIKE searches work across accented names.
	SearchName string `json:"-" gorm:"index"`

	XP      int64 `json:"xp" gorm:"default:0"`
	Credits int64 `json:"credits" gorm:"default:0"`

	Timestamps
}
