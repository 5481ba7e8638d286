package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func doc(s string) datatypes.JSON {
	return datatypes.JSON([]byte(s))
}

func TestResolveTypeConfigDefaults(t *testing.T) {
	cfg, err := ResolveTypeConfig(nil)
	require.NoError(t, err)
	require.Equal(t, LayoutRoundRobin, cfg.Layout)
	require.Equal(t, 2, cfg.MinParticipants)
	require.Equal(t, 4, cfg.GroupSize)
	require.Equal(t, 2, cfg.QualifiersPerGroup)
	require.Equal(t, 4, cfg.PodSize)
	require.Equal(t, 3, cfg.SwissRounds)
	require.Nil(t, cfg.PointScheme)
}

func TestResolveTypeConfigLayoutAliases(t *testing.T) {
	cases := map[string]Layout{
		`{"layout": "knockout"}`:           LayoutSingleElimination,
		`{"layout": "SINGLE_ELIMINATION"}`: LayoutSingleElimination,
		`{"layout": "league"}`:             LayoutRoundRobin,
		`{"bracket": "groups"}`:            LayoutGroupsKnockout,
		`{"mode": "swiss"}`:                LayoutSwissPods,
	}
	for raw, want := range cases {
		cfg, err := ResolveTypeConfig(doc(raw))
		require.NoError(t, err, raw)
		require.Equal(t, want, cfg.Layout, raw)
	}

	_, err := ResolveTypeConfig(doc(`{"layout": "pyramid"}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported tournament layout")
}

func TestResolveTypeConfigNestedForms(t *testing.T) {
	cfg, err := ResolveTypeConfig(doc(`{
		"layout": "groups_knockout",
		"groups": {"size": 3, "qualifiers": 1}
	}`))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.GroupSize)
	require.Equal(t, 1, cfg.QualifiersPerGroup)

	cfg, err = ResolveTypeConfig(doc(`{
		"layout": "swiss_pods",
		"swiss": {"pod_size": 6, "rounds": 5}
	}`))
	require.NoError(t, err)
	require.Equal(t, 6, cfg.PodSize)
	require.Equal(t, 5, cfg.SwissRounds)
}

func TestResolveTypeConfigPointScheme(t *testing.T) {
	cfg, err := ResolveTypeConfig(doc(`{"point_scheme": {"1": 10, "2": 5}}`))
	require.NoError(t, err)
	require.Equal(t, map[int]float64{1: 10, 2: 5}, cfg.PointScheme)

	cfg, err = ResolveTypeConfig(doc(`{"point_scheme": [
		{"rank": 1, "points": 10},
		{"rank": 2, "points": 5}
	]}`))
	require.NoError(t, err)
	require.Equal(t, map[int]float64{1: 10, 2: 5}, cfg.PointScheme)

	_, err = ResolveTypeConfig(doc(`{"point_scheme": {"gold": 10}}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not an integer rank")
}

func TestResolveTypeConfigTierNames(t *testing.T) {
	cfg, err := ResolveTypeConfig(doc(`{"tier_names": {"1": "Qualifiers", "2": "Playoffs"}}`))
	require.NoError(t, err)
	require.Equal(t, "Playoffs", cfg.TierNames[2])

	_, err = ResolveTypeConfig(doc(`{"tier_names": {"finals": "Finals"}}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not an integer")
}

func TestResolveRewardPolicyDefaults(t *testing.T) {
	policy, err := ResolveRewardPolicy(nil)
	require.NoError(t, err)
	require.Equal(t, PlacementReward{XP: 500, Credits: 200}, policy.Placements[1])
	require.Equal(t, PlacementReward{XP: 100, Credits: 40}, policy.Participant)
	require.InDelta(t, 0.75, policy.FactorFor(2), 1e-9)
	require.InDelta(t, 0.25, policy.FactorFor(9), 1e-9)
	require.InDelta(t, 10, policy.RateFor("anything"), 1e-9)
}

func TestResolveRewardPolicyKeyedPlacements(t *testing.T) {
	policy, err := ResolveRewardPolicy(doc(`{
		"placements": {"1": {"xp": 1000, "credits": 400}},
		"participant": {"xp": 50, "credits": 10}
	}`))
	require.NoError(t, err)
	require.Equal(t, PlacementReward{XP: 1000, Credits: 400}, policy.Placements[1])
	// Tiers the document leaves out keep their defaults.
	require.Equal(t, PlacementReward{XP: 300, Credits: 120}, policy.Placements[2])
	require.Equal(t, PlacementReward{XP: 50, Credits: 10}, policy.Participant)

	_, err = ResolveRewardPolicy(doc(`{"placements": {"gold": {"xp": 1}}}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not an integer")
}

func TestResolveRewardPolicyLegacyForms(t *testing.T) {
	policy, err := ResolveRewardPolicy(doc(`{
		"first": {"xp": 900, "credits": 300},
		"second": {"xp": 600, "credits": 150},
		"third": {"xp": 400, "credits": 100}
	}`))
	require.NoError(t, err)
	require.Equal(t, int64(900), policy.Placements[1].XP)
	require.Equal(t, int64(600), policy.Placements[2].XP)
	require.Equal(t, int64(400), policy.Placements[3].XP)

	policy, err = ResolveRewardPolicy(doc(`{
		"placement_rewards": [
			{"placement": 1, "xp": 800, "credits": 250},
			{"placement": 4, "xp": 150, "credits": 50}
		]
	}`))
	require.NoError(t, err)
	require.Equal(t, int64(800), policy.Placements[1].XP)
	require.Equal(t, int64(150), policy.Placements[4].XP)
	require.Equal(t, PlacementReward{XP: 150, Credits: 50}, policy.RewardFor(4))
}

func TestResolveRewardPolicySkillForms(t *testing.T) {
	policy, err := ResolveRewardPolicy(doc(`{
		"skill_weights": {"edge_control": 2},
		"xp_per_skill_point": 25
	}`))
	require.NoError(t, err)
	require.InDelta(t, 2, policy.SkillWeights["edge_control"], 1e-9)
	require.InDelta(t, 25, policy.RateFor("Freestyle"), 1e-9)

	policy, err = ResolveRewardPolicy(doc(`{
		"skills": [
			{"skill": "timing", "weight": 1.5},
			{"skill": "air_awareness", "weight": 0.5}
		],
		"conversion_rates": {"Freestyle": 12}
	}`))
	require.NoError(t, err)
	require.InDelta(t, 1.5, policy.SkillWeights["timing"], 1e-9)
	require.InDelta(t, 12, policy.RateFor("Freestyle"), 1e-9)
	require.InDelta(t, 10, policy.RateFor("Alpine"), 1e-9)
}

func TestResolveRewardPolicyBadgeOverrides(t *testing.T) {
	policy, err := ResolveRewardPolicy(doc(`{
		"badges": {"1": {"title": "Slope Monarch", "icon": "crown-ice", "rarity": "legendary"}}
	}`))
	require.NoError(t, err)

	badgeType, def, podium := policy.BadgeFor(1)
	require.True(t, podium)
	require.Equal(t, BadgeChampion, badgeType)
	require.Equal(t, "Slope Monarch", def.Title)

	badgeType, def, podium = policy.BadgeFor(2)
	require.True(t, podium)
	require.Equal(t, BadgeRunnerUp, badgeType)
	require.Equal(t, "Runner-up", def.Title)

	_, _, podium = policy.BadgeFor(4)
	require.False(t, podium)

	_, err = ResolveRewardPolicy(doc(`{"badges": {"champ": {"title": "X"}}}`))
	require.Error(t, err)
}

func TestResolveRewardPolicyMalformed(t *testing.T) {
	_, err := ResolveRewardPolicy(doc(`{"placements": 7}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed reward_policy")

	_, err = ResolveTypeConfig(doc(`not json`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed type_config")
}
