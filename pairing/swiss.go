package pairing

import (
	"fmt"

	"tournament-rewards-system/models"
)

// swissPods chunks the field into pods by standing, pod 1 being the top of
// the table, and plays the configured number of rounds inside each pod. The
// participant order is the standing at generation time, which for a fresh
// schedule is the enrollment seed order. Head-to-head fields pair inside the
// pod with the circle method so pod mates meet a different opponent each
// round; individual-ranking fields play one ranked session per pod per round.
func swissPods(participants []string, format models.TournamentFormat, cfg models.TypeConfig) ([]Slot, error) {
	n := len(participants)

	podSize := cfg.PodSize
	if podSize < 2 {
		podSize = 4
	}
	rounds := cfg.SwissRounds
	if rounds < 1 {
		rounds = 3
	}

	headToHead := format != models.FormatIndividualRanking
	if headToHead && podSize%2 != 0 {
		return nil, fmt.Errorf("pod size %d cannot be paired, head-to-head pods need an even size", podSize)
	}

	var pods [][]string
	for start := 0; start < n; start += podSize {
		end := start + podSize
		if end > n {
			end = n
		}
		pods = append(pods, participants[start:end])
	}

	tail := pods[len(pods)-1]
	if len(tail) < 2 || (headToHead && len(tail)%2 != 0) {
		return nil, fmt.Errorf("%d participants in pods of %d leaves a tail pod of %d", n, podSize, len(tail))
	}

	var slots []Slot
	for r := 1; r <= rounds; r++ {
		order := 0
		for p, pod := range pods {
			podNum := p + 1
			if !headToHead {
				order++
				slots = append(slots, Slot{
					Label:                fmt.Sprintf("R%dP%d", r, podNum),
					RoundIndex:           r,
					OrderInRound:         order,
					Phase:                models.PhaseGroupStage,
					RankingMode:          models.RankPerformancePod,
					Tier:                 1,
					Pod:                  podNum,
					ExpectedParticipants: len(pod),
					Participants:         append([]string(nil), pod...),
				})
				continue
			}
			for m, pair := range circlePairs(pod, r) {
				order++
				slots = append(slots, Slot{
					Label:                fmt.Sprintf("R%dP%dM%d", r, podNum, m+1),
					RoundIndex:           r,
					OrderInRound:         order,
					Phase:                models.PhaseGroupStage,
					RankingMode:          models.RankPerformancePod,
					Tier:                 1,
					Pod:                  podNum,
					ExpectedParticipants: 2,
					Participants:         pair,
				})
			}
		}
	}
	return slots, nil
}

// circlePairs produces round r of the circle method over an even member
// list: the first member stays fixed, the rest rotate one position per
// round, and the arrangement is folded into pairs. Rounds past len-1 repeat
// earlier pairings.
func circlePairs(members []string, round int) [][]string {
	k := len(members)
	if k < 2 {
		return nil
	}

	rest := members[1:]
	shift := (round - 1) % len(rest)

	arr := make([]string, 0, k)
	arr = append(arr, members[0])
	for i := 0; i < len(rest); i++ {
		arr = append(arr, rest[(i+shift)%len(rest)])
	}

	pairs := make([][]string, 0, k/2)
	for i := 0; i < k/2; i++ {
		pairs = append(pairs, []string{arr[i], arr[k-1-i]})
	}
	return pairs
}
