package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TournamentStatus is the lifecycle state machine. Transitions only move
// forward; COMPLETED -> REWARDS_DISTRIBUTED is driven by the reward path.
type TournamentStatus string

const (
	StatusDraft               TournamentStatus = "DRAFT"
	StatusSeekingInstructor   TournamentStatus = "SEEKING_INSTRUCTOR"
	StatusInstructorConfirmed TournamentStatus = "INSTRUCTOR_CONFIRMED"
	StatusReadyForEnrollment  TournamentStatus = "READY_FOR_ENROLLMENT"
	StatusInProgress          TournamentStatus = "IN_PROGRESS"
	StatusCompleted           TournamentStatus = "COMPLETED"
	StatusRewardsDistributed  TournamentStatus = "REWARDS_DISTRIBUTED"
)

// TournamentFormat distinguishes head-to-head sessions from ranked rounds
// where all participants compete in the same session.
type TournamentFormat string

const (
	FormatHeadToHead        TournamentFormat = "HEAD_TO_HEAD"
	FormatIndividualRanking TournamentFormat = "INDIVIDUAL_RANKING"
)

// Tournament is the aggregate root for scheduling and reward distribution.
// TypeConfigRaw and RewardPolicyRaw are free-form documents from the config
// store; they are resolved into canonical structs at the loading boundary
// (ResolveTypeConfig / ResolveRewardPolicy) and never inspected raw by the
// scheduling or reward paths.
type Tournament struct {
	ID           string           `json:"id" gorm:"primaryKey"`
	Name         string           `json:"name" gorm:"not null"`
	Slug         string           `json:"slug" gorm:"uniqueIndex"`
	Discipline   string           `json:"discipline" gorm:"index"`
	Format       TournamentFormat `json:"format" gorm:"type:varchar(32);not null"`
	Status       TournamentStatus `json:"status" gorm:"type:varchar(32);default:'DRAFT';index"`
	InstructorID *string          `json:"instructor_id,omitempty" gorm:"index"`

	TypeConfigRaw   datatypes.JSON `json:"type_config,omitempty" gorm:"column:type_config"`
	RewardPolicyRaw datatypes.JSON `json:"reward_policy,omitempty" gorm:"column:reward_policy"`

	// Schedule idempotency witness: read and set under the same row lock.
	ScheduleGenerated   bool       `json:"schedule_generated" gorm:"default:false"`
	ScheduleGeneratedAt *time.Time `json:"schedule_generated_at,omitempty"`

	StandingsArchiveURL string `json:"standings_archive_url,omitempty"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Timestamps
}

func (t *Tournament) SetTypeConfigDoc(doc map[string]interface{}) error {
	if doc == nil {
		t.TypeConfigRaw = nil
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	t.TypeConfigRaw = datatypes.JSON(b)
	return nil
}

func (t *Tournament) SetRewardPolicyDoc(doc map[string]interface{}) error {
	if doc == nil {
		t.RewardPolicyRaw = nil
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	t.RewardPolicyRaw = datatypes.JSON(b)
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
