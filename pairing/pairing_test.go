package pairing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"tournament-rewards-system/models"
)

func field(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%d", i+1)
	}
	return ids
}

func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

func TestRoundRobinEveryPairOnce(t *testing.T) {
	slots, err := Generate(field(6), models.FormatHeadToHead, models.TypeConfig{Layout: models.LayoutRoundRobin})
	require.NoError(t, err)
	require.Len(t, slots, 15)

	seen := map[string]int{}
	for _, s := range slots {
		require.Equal(t, models.RankAllParticipants, s.RankingMode)
		require.Equal(t, 2, s.ExpectedParticipants)
		require.Len(t, s.Participants, 2)
		require.Empty(t, s.SeedRefs)
		seen[pairKey(s.Participants[0], s.Participants[1])]++
	}
	require.Len(t, seen, 15)
	for pair, count := range seen {
		require.Equal(t, 1, count, "pair %s scheduled more than once", pair)
	}
}

func TestSingleEliminationBracketShape(t *testing.T) {
	slots, err := Generate(field(8), models.FormatHeadToHead, models.TypeConfig{Layout: models.LayoutSingleElimination})
	require.NoError(t, err)
	require.Len(t, slots, 8)

	byRound := map[int]int{}
	for _, s := range slots {
		byRound[s.RoundIndex]++
		require.Equal(t, models.RankTiered, s.RankingMode)
		require.Equal(t, 2, s.ExpectedParticipants)
		require.Equal(t, s.RoundIndex, s.Tier)
	}
	require.Equal(t, map[int]int{1: 4, 2: 2, 3: 2}, byRound)

	require.Equal(t, []string{"u1", "u2"}, slots[0].Participants)
	require.Equal(t, []string{"u7", "u8"}, slots[3].Participants)

	semis := slots[4]
	require.Equal(t, "R2M1", semis.Label)
	require.Equal(t, []string{"WINNER_R1M1", "WINNER_R1M2"}, semis.SeedRefs)

	final := slots[6]
	require.Equal(t, models.SlotFinal, final.FinalSlot)
	require.Equal(t, models.PhaseFinals, final.Phase)
	require.Equal(t, []string{"WINNER_R2M1", "WINNER_R2M2"}, final.SeedRefs)

	third := slots[7]
	require.Equal(t, models.SlotThirdPlace, third.FinalSlot)
	require.Equal(t, "THIRD_PLACE", third.Label)
	require.Equal(t, []string{"LOSER_R2M1", "LOSER_R2M2"}, third.SeedRefs)
}

func TestSingleEliminationRejectsOddField(t *testing.T) {
	_, err := Generate(field(6), models.FormatHeadToHead, models.TypeConfig{Layout: models.LayoutSingleElimination})
	require.Error(t, err)
	require.Contains(t, err.Error(), "power-of-two")
}

func TestSwissPodsMatchCount(t *testing.T) {
	cfg := models.TypeConfig{Layout: models.LayoutSwissPods, PodSize: 4, SwissRounds: 3}
	slots, err := Generate(field(8), models.FormatHeadToHead, cfg)
	require.NoError(t, err)
	require.Len(t, slots, 12)

	perRound := map[int]int{}
	for _, s := range slots {
		perRound[s.RoundIndex]++
		require.Equal(t, models.RankPerformancePod, s.RankingMode)
		require.True(t, s.Pod == 1 || s.Pod == 2)
		require.Equal(t, 2, s.ExpectedParticipants)
	}
	require.Equal(t, map[int]int{1: 4, 2: 4, 3: 4}, perRound)

	// Three rounds in a pod of four is a full in-pod round robin.
	podOnePairs := map[string]int{}
	for _, s := range slots {
		if s.Pod == 1 {
			podOnePairs[pairKey(s.Participants[0], s.Participants[1])]++
		}
	}
	require.Len(t, podOnePairs, 6)
	for pair, count := range podOnePairs {
		require.Equal(t, 1, count, "pod pair %s repeated", pair)
	}
}

func TestSwissPodsRankedSessions(t *testing.T) {
	cfg := models.TypeConfig{Layout: models.LayoutSwissPods, PodSize: 4, SwissRounds: 2}
	slots, err := Generate(field(8), models.FormatIndividualRanking, cfg)
	require.NoError(t, err)
	require.Len(t, slots, 4)

	for _, s := range slots {
		require.Equal(t, 4, s.ExpectedParticipants)
		require.Len(t, s.Participants, 4)
		require.Equal(t, models.RankPerformancePod, s.RankingMode)
	}
	require.Equal(t, []string{"u1", "u2", "u3", "u4"}, slots[0].Participants)
	require.Equal(t, 2, slots[1].Pod)
}

func TestGroupsKnockoutPlan(t *testing.T) {
	cfg := models.TypeConfig{Layout: models.LayoutGroupsKnockout, GroupSize: 4, QualifiersPerGroup: 2}
	slots, err := Generate(field(8), models.FormatHeadToHead, cfg)
	require.NoError(t, err)
	require.Len(t, slots, 16)

	groupMatches := 0
	groupMembers := map[string]map[string]bool{}
	for _, s := range slots {
		if s.Phase != models.PhaseGroupStage {
			continue
		}
		groupMatches++
		require.Equal(t, models.RankGroupIsolated, s.RankingMode)
		require.NotEmpty(t, s.GroupLabel)
		if groupMembers[s.GroupLabel] == nil {
			groupMembers[s.GroupLabel] = map[string]bool{}
		}
		for _, p := range s.Participants {
			groupMembers[s.GroupLabel][p] = true
		}
	}
	require.Equal(t, 12, groupMatches)
	require.Len(t, groupMembers, 2)
	require.Len(t, groupMembers["A"], 4)
	require.Len(t, groupMembers["B"], 4)

	// Winners cross against the other group's runner-up.
	semi1 := slots[12]
	require.Equal(t, models.RankQualifiedOnly, semi1.RankingMode)
	require.Equal(t, []string{"GROUP_A_1", "GROUP_B_2"}, semi1.SeedRefs)
	semi2 := slots[13]
	require.Equal(t, []string{"GROUP_B_1", "GROUP_A_2"}, semi2.SeedRefs)

	final := slots[14]
	require.Equal(t, models.SlotFinal, final.FinalSlot)
	require.Equal(t, []string{"WINNER_R2M1", "WINNER_R2M2"}, final.SeedRefs)

	third := slots[15]
	require.Equal(t, models.SlotThirdPlace, third.FinalSlot)
	require.Equal(t, []string{"LOSER_R2M1", "LOSER_R2M2"}, third.SeedRefs)
}

func TestGroupsKnockoutNeedsTwoGroups(t *testing.T) {
	cfg := models.TypeConfig{Layout: models.LayoutGroupsKnockout, GroupSize: 8, QualifiersPerGroup: 2}
	_, err := Generate(field(6), models.FormatHeadToHead, cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "two groups")
}

func TestRankedLeagueRounds(t *testing.T) {
	cfg := models.TypeConfig{Layout: models.LayoutRoundRobin, SwissRounds: 3}
	slots, err := Generate(field(5), models.FormatIndividualRanking, cfg)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	for r, s := range slots {
		require.Equal(t, r+1, s.RoundIndex)
		require.Equal(t, 5, s.ExpectedParticipants)
		require.Equal(t, models.RankAllParticipants, s.RankingMode)
	}
}

func TestGenerateEnforcesFieldBounds(t *testing.T) {
	cfg := models.TypeConfig{Layout: models.LayoutRoundRobin, MinParticipants: 4}
	_, err := Generate(field(3), models.FormatHeadToHead, cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least 4")

	cfg = models.TypeConfig{Layout: models.LayoutRoundRobin, MaxParticipants: 4}
	_, err = Generate(field(5), models.FormatHeadToHead, cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "at most 4")
}

func TestEliminationLayoutsRejectRankedFormat(t *testing.T) {
	_, err := Generate(field(8), models.FormatIndividualRanking, models.TypeConfig{Layout: models.LayoutSingleElimination})
	require.Error(t, err)

	_, err = Generate(field(8), models.FormatIndividualRanking, models.TypeConfig{Layout: models.LayoutGroupsKnockout, GroupSize: 4, QualifiersPerGroup: 2})
	require.Error(t, err)
}
