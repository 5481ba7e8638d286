package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// SkillEntry is one skill inside a license's skill-profile document.
// Baseline and AssessedAt come from instructor assessments and are never
// touched by the reward path; the tournament fields accumulate across
// distributions.
type SkillEntry struct {
	CurrentLevel    float64    `json:"current_level"`
	Baseline        float64    `json:"baseline"`
	AssessedAt      *time.Time `json:"assessed_at,omitempty"`
	TournamentDelta float64    `json:"tournament_delta"`
	TotalDelta      float64    `json:"total_delta"`
	TournamentCount int        `json:"tournament_count"`
	LastUpdated     time.Time  `json:"last_updated"`
}

// SpecializationLicense owns a user's nested skill-profile document for one
// discipline. The document is the only read-modify-write state in the reward
// path, which is why its row is locked exclusively across the whole
// read-merge-write span. One license per user.
type SpecializationLicense struct {
	ID         string `json:"id" gorm:"primaryKey"`
	UserID     string `json:"user_id" gorm:"uniqueIndex;not null"`
	Discipline string `json:"discipline" gorm:"index"`

	SkillProfile datatypes.JSON `json:"skill_profile"`

	Timestamps
}

// Profile decodes the skill-profile document. An empty column yields an
// empty, usable map.
func (l *SpecializationLicense) Profile() (map[string]SkillEntry, error) {
	profile := map[string]SkillEntry{}
	if len(l.SkillProfile) == 0 {
		return profile, nil
	}
	if err := json.Unmarshal(l.SkillProfile, &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (l *SpecializationLicense) SetProfile(profile map[string]SkillEntry) error {
	b, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	l.SkillProfile = datatypes.JSON(b)
	return nil
}
