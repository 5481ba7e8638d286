// Package pairing turns an ordered participant list into the session plan
// for a tournament layout. Generators are pure: the same participant order
// and config always produce the same slots, so schedules can be asserted
// against literal expectations. Persistence is the schedule builder's job.
package pairing

import (
	"fmt"

	"tournament-rewards-system/models"
)

// Slot is one planned session before persistence. Participants are real user
// IDs when known at generation time; knockout slots that depend on earlier
// results carry SeedRefs placeholders ("WINNER_R1M2", "GROUP_A_1") instead.
type Slot struct {
	Label        string
	RoundIndex   int
	OrderInRound int

	Phase       models.SessionPhase
	RankingMode models.RankingMode
	Tier        int
	Pod         int
	GroupLabel  string
	FinalSlot   models.FinalSlot

	ExpectedParticipants int
	Participants         []string
	SeedRefs             []string
}

// Generate builds the full session plan for a participant list. The list is
// expected in enrollment (seed) order and must already be approved-only;
// generation fails before producing any slot when the count does not satisfy
// the layout.
func Generate(participants []string, format models.TournamentFormat, cfg models.TypeConfig) ([]Slot, error) {
	n := len(participants)

	min := cfg.MinParticipants
	if min < 2 {
		min = 2
	}
	if n < min {
		return nil, fmt.Errorf("%d participants enrolled, layout %s requires at least %d", n, cfg.Layout, min)
	}
	if cfg.MaxParticipants > 0 && n > cfg.MaxParticipants {
		return nil, fmt.Errorf("%d participants enrolled, layout %s allows at most %d", n, cfg.Layout, cfg.MaxParticipants)
	}

	switch cfg.Layout {
	case models.LayoutRoundRobin:
		if format == models.FormatIndividualRanking {
			return rankedRounds(participants, cfg), nil
		}
		return roundRobin(participants), nil
	case models.LayoutSingleElimination:
		if format == models.FormatIndividualRanking {
			return nil, fmt.Errorf("layout %s requires the %s format", cfg.Layout, models.FormatHeadToHead)
		}
		return singleElimination(participants)
	case models.LayoutGroupsKnockout:
		if format == models.FormatIndividualRanking {
			return nil, fmt.Errorf("layout %s requires the %s format", cfg.Layout, models.FormatHeadToHead)
		}
		return groupsKnockout(participants, cfg)
	case models.LayoutSwissPods:
		return swissPods(participants, format, cfg)
	default:
		return nil, fmt.Errorf("unsupported layout %q", cfg.Layout)
	}
}

// pairLabel names a bracket slot by round and order, matching the WINNER_/
// LOSER_ seed refs that point back at it.
func pairLabel(round, order int) string {
	return fmt.Sprintf("R%dM%d", round, order)
}

func winnerRef(round, order int) string {
	return fmt.Sprintf("WINNER_R%dM%d", round, order)
}

func loserRef(round, order int) string {
	return fmt.Sprintf("LOSER_R%dM%d", round, order)
}
