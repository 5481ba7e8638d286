package pairing

import (
	"fmt"

	"tournament-rewards-system/models"
)

// roundRobin pairs every participant against every other exactly once, in
// participant order. Odd fields are fine: a participant simply sits out the
// pairings that do not include them, there is no bye bookkeeping.
func roundRobin(participants []string) []Slot {
	n := len(participants)
	slots := make([]Slot, 0, n*(n-1)/2)

	order := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			order++
			slots = append(slots, Slot{
				Label:                pairLabel(1, order),
				RoundIndex:           1,
				OrderInRound:         order,
				Phase:                models.PhaseGroupStage,
				RankingMode:          models.RankAllParticipants,
				Tier:                 1,
				Pod:                  1,
				ExpectedParticipants: 2,
				Participants:         []string{participants[i], participants[j]},
			})
		}
	}
	return slots
}

// rankedRounds is the individual-ranking shape of a league: every round is a
// single session ranking the whole field together. Round count comes from the
// config's rounds knob.
func rankedRounds(participants []string, cfg models.TypeConfig) []Slot {
	rounds := cfg.SwissRounds
	if rounds < 1 {
		rounds = 1
	}

	slots := make([]Slot, 0, rounds)
	for r := 1; r <= rounds; r++ {
		slots = append(slots, Slot{
			Label:                fmt.Sprintf("ROUND%d", r),
			RoundIndex:           r,
			OrderInRound:         1,
			Phase:                models.PhaseGroupStage,
			RankingMode:          models.RankAllParticipants,
			Tier:                 1,
			Pod:                  1,
			ExpectedParticipants: len(participants),
			Participants:         append([]string(nil), participants...),
		})
	}
	return slots
}
