package pairing

import (
	"fmt"
	"math"

	"tournament-rewards-system/models"
)

// groupsKnockout deals the field into seeded groups, plays a round robin
// inside each group, then runs a knockout over the configured number of
// qualifiers per group. Group results only rank group members against each
// other, so the group stage carries no scoring modifier. Knockout slots are
// all placeholders: position refs ("GROUP_A_1") for the first knockout round,
// winner refs after that.
func groupsKnockout(participants []string, cfg models.TypeConfig) ([]Slot, error) {
	n := len(participants)

	groupSize := cfg.GroupSize
	if groupSize < 2 {
		groupSize = 4
	}
	qualifiers := cfg.QualifiersPerGroup
	if qualifiers < 1 {
		qualifiers = 2
	}

	numGroups := (n + groupSize - 1) / groupSize
	if numGroups < 2 {
		return nil, fmt.Errorf("%d participants fit a single group of %d, groups with knockout needs at least two groups", n, groupSize)
	}

	groups := make([][]string, numGroups)
	for i, p := range participants {
		g := i % numGroups
		groups[g] = append(groups[g], p)
	}

	smallest := len(groups[numGroups-1])
	if smallest < 2 || smallest < qualifiers {
		return nil, fmt.Errorf("%d participants over %d groups leaves a group of %d, need at least %d per group", n, numGroups, smallest, maxInt(2, qualifiers))
	}

	totalQualifiers := numGroups * qualifiers
	if totalQualifiers < 2 || totalQualifiers&(totalQualifiers-1) != 0 {
		return nil, fmt.Errorf("%d groups x %d qualifiers = %d, knockout needs a power of two", numGroups, qualifiers, totalQualifiers)
	}

	var slots []Slot

	order := 0
	for g, members := range groups {
		label := groupLabel(g)
		groupMatch := 0
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				order++
				groupMatch++
				slots = append(slots, Slot{
					Label:                fmt.Sprintf("GROUP_%s_M%d", label, groupMatch),
					RoundIndex:           1,
					OrderInRound:         order,
					Phase:                models.PhaseGroupStage,
					RankingMode:          models.RankGroupIsolated,
					Tier:                 1,
					Pod:                  1,
					GroupLabel:           label,
					ExpectedParticipants: 2,
					Participants:         []string{members[i], members[j]},
				})
			}
		}
	}

	// Qualifier seeds: all group winners first, then all runners-up, and so
	// on. Folding that list pairs winners against the other groups' lower
	// finishers, the usual cross-group draw.
	seeds := make([]string, 0, totalQualifiers)
	for pos := 1; pos <= qualifiers; pos++ {
		for g := 0; g < numGroups; g++ {
			seeds = append(seeds, fmt.Sprintf("GROUP_%s_%d", groupLabel(g), pos))
		}
	}

	koRounds := int(math.Log2(float64(totalQualifiers)))
	finalRound := 1 + koRounds

	for kr := 1; kr <= koRounds; kr++ {
		round := 1 + kr
		inRound := totalQualifiers >> uint(kr)
		for m := 1; m <= inRound; m++ {
			slot := Slot{
				Label:                pairLabel(round, m),
				RoundIndex:           round,
				OrderInRound:         m,
				Phase:                models.PhaseKnockout,
				RankingMode:          models.RankQualifiedOnly,
				Tier:                 round,
				Pod:                  1,
				ExpectedParticipants: 2,
			}
			if kr == 1 {
				slot.SeedRefs = []string{seeds[m-1], seeds[totalQualifiers-m]}
			} else {
				slot.SeedRefs = []string{winnerRef(round-1, 2*m-1), winnerRef(round-1, 2*m)}
			}
			if round == finalRound {
				slot.Phase = models.PhaseFinals
				slot.FinalSlot = models.SlotFinal
			}
			slots = append(slots, slot)
		}
	}

	third := Slot{
		Label:                "THIRD_PLACE",
		RoundIndex:           finalRound,
		OrderInRound:         2,
		Phase:                models.PhaseFinals,
		RankingMode:          models.RankQualifiedOnly,
		Tier:                 finalRound,
		Pod:                  1,
		FinalSlot:            models.SlotThirdPlace,
		ExpectedParticipants: 2,
	}
	if koRounds >= 2 {
		third.SeedRefs = []string{loserRef(finalRound-1, 1), loserRef(finalRound-1, 2)}
	} else {
		// The knockout is just a final between two group winners, so third
		// place is settled between the runners-up directly.
		third.SeedRefs = []string{fmt.Sprintf("GROUP_%s_2", groupLabel(0)), fmt.Sprintf("GROUP_%s_2", groupLabel(1))}
	}
	slots = append(slots, third)

	return slots, nil
}

func groupLabel(g int) string {
	return string(rune('A' + g))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
