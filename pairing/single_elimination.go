package pairing

import (
	"fmt"
	"math"

	"tournament-rewards-system/models"
)

// singleElimination lays a strict knockout bracket over the field: round 1
// pairs participants in seed order, every later slot references the winners
// feeding it, and the semifinal losers meet in an explicit third-place
// playoff. The field must be a power of two so the bracket never needs byes,
// and at least 4 so a third place exists. Tier equals the round index, which
// is what scales points as the bracket deepens.
func singleElimination(participants []string) ([]Slot, error) {
	n := len(participants)
	if n < 4 || n&(n-1) != 0 {
		return nil, fmt.Errorf("single elimination requires a power-of-two field of at least 4, got %d participants", n)
	}

	rounds := int(math.Log2(float64(n)))
	slots := make([]Slot, 0, n)

	for m := 0; m < n/2; m++ {
		slots = append(slots, Slot{
			Label:                pairLabel(1, m+1),
			RoundIndex:           1,
			OrderInRound:         m + 1,
			Phase:                models.PhaseKnockout,
			RankingMode:          models.RankTiered,
			Tier:                 1,
			Pod:                  1,
			ExpectedParticipants: 2,
			Participants:         []string{participants[2*m], participants[2*m+1]},
		})
	}

	for r := 2; r <= rounds; r++ {
		inRound := n >> uint(r)
		for m := 1; m <= inRound; m++ {
			slot := Slot{
				Label:                pairLabel(r, m),
				RoundIndex:           r,
				OrderInRound:         m,
				Phase:                models.PhaseKnockout,
				RankingMode:          models.RankTiered,
				Tier:                 r,
				Pod:                  1,
				ExpectedParticipants: 2,
				SeedRefs:             []string{winnerRef(r-1, 2*m-1), winnerRef(r-1, 2*m)},
			}
			if r == rounds {
				slot.Phase = models.PhaseFinals
				slot.FinalSlot = models.SlotFinal
			}
			slots = append(slots, slot)
		}
	}

	slots = append(slots, Slot{
		Label:                "THIRD_PLACE",
		RoundIndex:           rounds,
		OrderInRound:         2,
		Phase:                models.PhaseFinals,
		RankingMode:          models.RankTiered,
		Tier:                 rounds,
		Pod:                  1,
		FinalSlot:            models.SlotThirdPlace,
		ExpectedParticipants: 2,
		SeedRefs:             []string{loserRef(rounds-1, 1), loserRef(rounds-1, 2)},
	})

	return slots, nil
}
