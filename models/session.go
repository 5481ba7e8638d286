package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// SessionKind separates scored tournament games from free-play training
// sessions; the finalizer only gates on TOURNAMENT_GAME sessions.
type SessionKind string

const (
	SessionTournamentGame SessionKind = "TOURNAMENT_GAME"
	SessionTraining       SessionKind = "TRAINING"
)

// RankingMode controls how a session's ranks translate into points.
type RankingMode string

const (
	RankAllParticipants RankingMode = "ALL_PARTICIPANTS"
	RankGroupIsolated   RankingMode = "GROUP_ISOLATED"
	RankTiered          RankingMode = "TIERED"
	RankQualifiedOnly   RankingMode = "QUALIFIED_ONLY"
	RankPerformancePod  RankingMode = "PERFORMANCE_POD"
)

// SessionPhase is the stage of the bracket a session belongs to.
type SessionPhase string

const (
	PhaseGroupStage SessionPhase = "GROUP_STAGE"
	PhaseKnockout   SessionPhase = "KNOCKOUT"
	PhaseFinals     SessionPhase = "FINALS"
)

// FinalSlot marks the sessions the finalizer reads podium placement from.
type FinalSlot string

const (
	SlotFinal      FinalSlot = "FINAL"
	SlotThirdPlace FinalSlot = "THIRD_PLACE"
)

// Session is a single scorable game generated by the schedule builder.
// Participants holds the enrolled user IDs in play order; SeedRefs holds
// symbolic placeholders ("WINNER_QF1", "GROUP_A_1") for knockout slots whose
// players are not known at generation time. DerivedRankings is the rank per
// participant once the session is scored, keyed by user ID.
//
// Created once by the schedule builder; mutated only by result reporting.
// The reward path reads sessions, never writes them.
type Session struct {
	ID           string      `json:"id" gorm:"primaryKey"`
	TournamentID string      `json:"tournament_id" gorm:"index;not null"`
	Kind         SessionKind `json:"kind" gorm:"type:varchar(32);default:'TOURNAMENT_GAME';index"`
	Label        string      `json:"label,omitempty" gorm:"type:varchar(32)"`

	RankingMode  RankingMode  `json:"ranking_mode" gorm:"type:varchar(32);not null"`
	Tier         int          `json:"tier" gorm:"default:1"`
	Pod          int          `json:"pod" gorm:"default:1"`
	GroupLabel   string       `json:"group_label,omitempty" gorm:"type:varchar(16)"`
	RoundIndex   int          `json:"round_index" gorm:"default:1"`
	OrderInRound int          `json:"order_in_round" gorm:"default:1"`
	Phase        SessionPhase `json:"phase" gorm:"type:varchar(32)"`
	FinalSlot    FinalSlot    `json:"final_slot,omitempty" gorm:"type:varchar(16);index"`

	ExpectedParticipants int            `json:"expected_participants"`
	Participants         datatypes.JSON `json:"participants"`
	SeedRefs             datatypes.JSON `json:"seed_refs,omitempty"`

	Result          *string        `json:"result,omitempty"`
	DerivedRankings datatypes.JSON `json:"derived_rankings,omitempty"`

	Timestamps
}

// Scored reports whether a result has been recorded for this session.
func (s *Session) Scored() bool {
	return s.Result != nil
}

func (s *Session) ParticipantIDs() []string {
	if len(s.Participants) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(s.Participants, &ids); err != nil {
		return nil
	}
	return ids
}

func (s *Session) SetParticipantIDs(ids []string) {
	b, _ := json.Marshal(ids)
	s.Participants = datatypes.JSON(b)
}

func (s *Session) SeedRefList() []string {
	if len(s.SeedRefs) == 0 {
		return nil
	}
	var refs []string
	if err := json.Unmarshal(s.SeedRefs, &refs); err != nil {
		return nil
	}
	return refs
}

func (s *Session) SetSeedRefs(refs []string) {
	if len(refs) == 0 {
		s.SeedRefs = nil
		return
	}
	b, _ := json.Marshal(refs)
	s.SeedRefs = datatypes.JSON(b)
}

// RankByUser decodes the derived rankings document. An unscored session
// yields an empty map.
func (s *Session) RankByUser() map[string]int {
	ranks := map[string]int{}
	if len(s.DerivedRankings) == 0 {
		return ranks
	}
	_ = json.Unmarshal(s.DerivedRankings, &ranks)
	return ranks
}

func (s *Session) SetRankByUser(ranks map[string]int) {
	b, _ := json.Marshal(ranks)
	s.DerivedRankings = datatypes.JSON(b)
}
