package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gorm.io/datatypes"
)

// Layout selects the pairing algorithm for a tournament.
type Layout string

const (
	LayoutRoundRobin        Layout = "ROUND_ROBIN"
	LayoutGroupsKnockout    Layout = "GROUPS_KNOCKOUT"
	LayoutSingleElimination Layout = "SINGLE_ELIMINATION"
	LayoutSwissPods         Layout = "SWISS_PODS"
)

// TypeConfig is the canonical, fully-defaulted form of a tournament's
// type_config document. Everything downstream of ResolveTypeConfig works on
// this struct; nothing re-reads the raw document.
type TypeConfig struct {
	Layout             Layout          `json:"layout"`
	MinParticipants    int             `json:"min_participants"`
	MaxParticipants    int             `json:"max_participants"`
	GroupSize          int             `json:"group_size"`
	QualifiersPerGroup int             `json:"qualifiers_per_group"`
	PodSize            int             `json:"pod_size"`
	SwissRounds        int             `json:"swiss_rounds"`
	PointScheme        map[int]float64 `json:"point_scheme,omitempty"`
	TierNames          map[int]string  `json:"tier_names,omitempty"`
}

// PlacementReward is the XP/credit pair granted for one placement tier.
type PlacementReward struct {
	XP      int64 `json:"xp"`
	Credits int64 `json:"credits"`
}

// RewardPolicy is the canonical form of a tournament's reward_policy
// document. Placements is keyed by podium position; Participant is the
// fallback for everyone else with a ranking row. SkillWeights maps the
// skills this tournament exercises to their point weight, PlacementFactors
// scales those weights by finish, and ConversionRates turns total skill
// points into bonus XP per discipline category.
type RewardPolicy struct {
	Placements       map[int]PlacementReward `json:"placements"`
	Participant      PlacementReward         `json:"participant"`
	SkillWeights     map[string]float64      `json:"skill_weights,omitempty"`
	PlacementFactors map[int]float64         `json:"placement_factors,omitempty"`
	ConversionRates  map[string]float64      `json:"conversion_rates,omitempty"`
	PlacementBadges  map[int]BadgeDef        `json:"placement_badges,omitempty"`
}

// DefaultRewardPolicy is applied when a tournament carries no policy
// document, and fills any tier the document leaves out.
func DefaultRewardPolicy() RewardPolicy {
	return RewardPolicy{
		Placements: map[int]PlacementReward{
			1: {XP: 500, Credits: 200},
			2: {XP: 300, Credits: 120},
			3: {XP: 200, Credits: 80},
		},
		Participant:      PlacementReward{XP: 100, Credits: 40},
		PlacementFactors: map[int]float64{1: 1.0, 2: 0.75, 3: 0.5},
		ConversionRates:  map[string]float64{"default": 10},
	}
}

// RewardFor returns the reward for a placement, falling back to the
// participant tier for anything off the podium.
func (p RewardPolicy) RewardFor(placement int) PlacementReward {
	if r, ok := p.Placements[placement]; ok {
		return r
	}
	return p.Participant
}

// FactorFor returns the skill-point scaling factor for a placement. Off the
// podium the participant factor 0.25 applies.
func (p RewardPolicy) FactorFor(placement int) float64 {
	if f, ok := p.PlacementFactors[placement]; ok {
		return f
	}
	return 0.25
}

// RateFor returns the skill-point to bonus-XP conversion rate for a
// discipline category, using the "default" entry when the category has no
// rate of its own.
func (p RewardPolicy) RateFor(category string) float64 {
	if r, ok := p.ConversionRates[category]; ok {
		return r
	}
	return p.ConversionRates["default"]
}

// BadgeFor returns the badge presentation for a podium placement, preferring
// a per-tournament override from the policy document.
func (p RewardPolicy) BadgeFor(placement int) (BadgeType, BadgeDef, bool) {
	t, ok := PlacementBadgeType(placement)
	if !ok {
		return "", BadgeDef{}, false
	}
	if d, ok := p.PlacementBadges[placement]; ok {
		return t, d, true
	}
	return t, t.Def(), true
}

// rawTypeConfig accepts every shape type_config documents have appeared in:
// the current flat form, the nested "groups"/"swiss" form, and the early
// "bracket"/"mode" layout keys.
type rawTypeConfig struct {
	Layout  string `json:"layout"`
	Bracket string `json:"bracket"`
	Mode    string `json:"mode"`

	MinParticipants    int `json:"min_participants"`
	MaxParticipants    int `json:"max_participants"`
	GroupSize          int `json:"group_size"`
	QualifiersPerGroup int `json:"qualifiers_per_group"`
	PodSize            int `json:"pod_size"`
	Rounds             int `json:"rounds"`

	Groups *struct {
		Size       int `json:"size"`
		Qualifiers int `json:"qualifiers"`
	} `json:"groups"`
	Swiss *struct {
		PodSize int `json:"pod_size"`
		Rounds  int `json:"rounds"`
	} `json:"swiss"`

	PointScheme json.RawMessage   `json:"point_scheme"`
	TierNames   map[string]string `json:"tier_names"`
}

// ResolveTypeConfig normalizes a raw type_config document into the canonical
// TypeConfig. Unknown layouts are a validation error; a missing document
// resolves to a round-robin with defaults.
func ResolveTypeConfig(doc datatypes.JSON) (TypeConfig, error) {
	cfg := TypeConfig{
		Layout:             LayoutRoundRobin,
		MinParticipants:    2,
		GroupSize:          4,
		QualifiersPerGroup: 2,
		PodSize:            4,
		SwissRounds:        3,
	}
	if len(doc) == 0 {
		return cfg, nil
	}

	var raw rawTypeConfig
	if err := json.Unmarshal(doc, &raw); err != nil {
		return TypeConfig{}, fmt.Errorf("malformed type_config document: %w", err)
	}

	layoutKey := raw.Layout
	if layoutKey == "" {
		layoutKey = raw.Bracket
	}
	if layoutKey == "" {
		layoutKey = raw.Mode
	}
	if layoutKey != "" {
		layout, err := normalizeLayout(layoutKey)
		if err != nil {
			return TypeConfig{}, err
		}
		cfg.Layout = layout
	}

	if raw.MinParticipants > 0 {
		cfg.MinParticipants = raw.MinParticipants
	}
	if raw.MaxParticipants > 0 {
		cfg.MaxParticipants = raw.MaxParticipants
	}
	if raw.GroupSize > 0 {
		cfg.GroupSize = raw.GroupSize
	}
	if raw.QualifiersPerGroup > 0 {
		cfg.QualifiersPerGroup = raw.QualifiersPerGroup
	}
	if raw.Groups != nil {
		if raw.Groups.Size > 0 {
			cfg.GroupSize = raw.Groups.Size
		}
		if raw.Groups.Qualifiers > 0 {
			cfg.QualifiersPerGroup = raw.Groups.Qualifiers
		}
	}
	if raw.PodSize > 0 {
		cfg.PodSize = raw.PodSize
	}
	if raw.Rounds > 0 {
		cfg.SwissRounds = raw.Rounds
	}
	if raw.Swiss != nil {
		if raw.Swiss.PodSize > 0 {
			cfg.PodSize = raw.Swiss.PodSize
		}
		if raw.Swiss.Rounds > 0 {
			cfg.SwissRounds = raw.Swiss.Rounds
		}
	}

	if len(raw.PointScheme) > 0 {
		scheme, err := parsePointScheme(raw.PointScheme)
		if err != nil {
			return TypeConfig{}, err
		}
		cfg.PointScheme = scheme
	}
	if len(raw.TierNames) > 0 {
		cfg.TierNames = map[int]string{}
		for k, v := range raw.TierNames {
			tier, err := strconv.Atoi(k)
			if err != nil {
				return TypeConfig{}, fmt.Errorf("type_config tier_names key %q is not an integer", k)
			}
			cfg.TierNames[tier] = v
		}
	}

	return cfg, nil
}

func normalizeLayout(s string) (Layout, error) {
	switch s {
	case "ROUND_ROBIN", "round_robin", "league", "LEAGUE":
		return LayoutRoundRobin, nil
	case "GROUPS_KNOCKOUT", "groups_knockout", "group_knockout", "groups":
		return LayoutGroupsKnockout, nil
	case "SINGLE_ELIMINATION", "single_elimination", "knockout", "KNOCKOUT", "elimination":
		return LayoutSingleElimination, nil
	case "SWISS_PODS", "swiss_pods", "swiss", "SWISS", "performance_pods":
		return LayoutSwissPods, nil
	}
	return "", fmt.Errorf("unsupported tournament layout %q", s)
}

// parsePointScheme accepts both scheme shapes: the map form {"1": 3} and the
// list form [{"rank": 1, "points": 3}].
func parsePointScheme(raw json.RawMessage) (map[int]float64, error) {
	var asMap map[string]float64
	if err := json.Unmarshal(raw, &asMap); err == nil {
		scheme := make(map[int]float64, len(asMap))
		for k, v := range asMap {
			rank, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("point_scheme key %q is not an integer rank", k)
			}
			scheme[rank] = v
		}
		return scheme, nil
	}

	var asList []struct {
		Rank   int     `json:"rank"`
		Points float64 `json:"points"`
	}
	if err := json.Unmarshal(raw, &asList); err != nil {
		return nil, fmt.Errorf("malformed point_scheme: %w", err)
	}
	scheme := make(map[int]float64, len(asList))
	for _, e := range asList {
		scheme[e.Rank] = e.Points
	}
	return scheme, nil
}

// rawRewardPolicy accepts every shape reward_policy documents have appeared
// in: keyed placements, the legacy first/second/third form, the list form,
// and the single-number xp_per_skill_point conversion.
type rawRewardPolicy struct {
	Placements map[string]PlacementReward `json:"placements"`

	First       *PlacementReward `json:"first"`
	Second      *PlacementReward `json:"second"`
	Third       *PlacementReward `json:"third"`
	Participant *PlacementReward `json:"participant"`

	PlacementList []struct {
		Placement int   `json:"placement"`
		XP        int64 `json:"xp"`
		Credits   int64 `json:"credits"`
	} `json:"placement_rewards"`

	SkillWeights map[string]float64 `json:"skill_weights"`
	SkillList    []struct {
		Skill  string  `json:"skill"`
		Weight float64 `json:"weight"`
	} `json:"skills"`

	PlacementFactors map[string]float64 `json:"placement_factors"`
	ConversionRates  map[string]float64 `json:"conversion_rates"`
	XPPerSkillPoint  *float64           `json:"xp_per_skill_point"`

	Badges map[string]BadgeDef `json:"badges"`
}

// ResolveRewardPolicy normalizes a raw reward_policy document into the
// canonical RewardPolicy, filling every omitted tier from the defaults. The
// reward orchestrator never branches on document shape.
func ResolveRewardPolicy(doc datatypes.JSON) (RewardPolicy, error) {
	policy := DefaultRewardPolicy()
	if len(doc) == 0 {
		return policy, nil
	}

	var raw rawRewardPolicy
	if err := json.Unmarshal(doc, &raw); err != nil {
		return RewardPolicy{}, fmt.Errorf("malformed reward_policy document: %w", err)
	}

	for k, v := range raw.Placements {
		placement, err := strconv.Atoi(k)
		if err != nil {
			return RewardPolicy{}, fmt.Errorf("reward_policy placements key %q is not an integer", k)
		}
		policy.Placements[placement] = v
	}
	if raw.First != nil {
		policy.Placements[1] = *raw.First
	}
	if raw.Second != nil {
		policy.Placements[2] = *raw.Second
	}
	if raw.Third != nil {
		policy.Placements[3] = *raw.Third
	}
	for _, e := range raw.PlacementList {
		if e.Placement > 0 {
			policy.Placements[e.Placement] = PlacementReward{XP: e.XP, Credits: e.Credits}
		}
	}
	if raw.Participant != nil {
		policy.Participant = *raw.Participant
	}

	if len(raw.SkillWeights) > 0 {
		policy.SkillWeights = raw.SkillWeights
	}
	for _, e := range raw.SkillList {
		if policy.SkillWeights == nil {
			policy.SkillWeights = map[string]float64{}
		}
		policy.SkillWeights[e.Skill] = e.Weight
	}

	for k, v := range raw.PlacementFactors {
		placement, err := strconv.Atoi(k)
		if err != nil {
			return RewardPolicy{}, fmt.Errorf("reward_policy placement_factors key %q is not an integer", k)
		}
		policy.PlacementFactors[placement] = v
	}
	for k, v := range raw.ConversionRates {
		policy.ConversionRates[k] = v
	}
	if raw.XPPerSkillPoint != nil {
		policy.ConversionRates["default"] = *raw.XPPerSkillPoint
	}

	for k, v := range raw.Badges {
		placement, err := strconv.Atoi(k)
		if err != nil {
			return RewardPolicy{}, fmt.Errorf("reward_policy badges key %q is not an integer placement", k)
		}
		if policy.PlacementBadges == nil {
			policy.PlacementBadges = map[int]BadgeDef{}
		}
		policy.PlacementBadges[placement] = v
	}

	return policy, nil
}
