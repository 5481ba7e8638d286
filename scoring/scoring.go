// Package scoring maps session ranks to points. Plain functions over model
// values, no I/O: the finalizer feeds it scored sessions and accumulates the
// result into the tournament standings.
package scoring

import (
	"fmt"
	"sort"

	"tournament-rewards-system/models"
)

// DefaultPointScheme awards the podium of a single session. Tournaments can
// override it through their type config.
var DefaultPointScheme = map[int]float64{1: 3, 2: 2, 3: 1}

// tierMultipliers scale knockout points as the bracket deepens. Unknown
// tiers fall back to 1.0 rather than erroring, a late-added playoff round
// still scores at face value.
var tierMultipliers = map[int]float64{1: 1.0, 2: 1.5, 3: 2.0, 4: 2.5}

// podModifiers weight swiss pods, the top pod earning a premium and the
// bottom pod a discount.
var podModifiers = map[int]float64{1: 1.2, 2: 1.0, 3: 0.8}

// BasePoints looks a rank up in the scheme. Ranks the scheme does not list
// score zero; a nil or empty scheme means the default.
func BasePoints(rank int, scheme map[int]float64) float64 {
	if len(scheme) == 0 {
		scheme = DefaultPointScheme
	}
	return scheme[rank]
}

// SessionPoints is the points a participant earns for finishing at rank in
// the given session: the scheme's base value scaled by the session's ranking
// mode. ALL_PARTICIPANTS and GROUP_ISOLATED carry no modifier, isolation is
// about who gets ranked together, not about scale.
func SessionPoints(rank int, session *models.Session, scheme map[int]float64) float64 {
	base := BasePoints(rank, scheme)
	switch session.RankingMode {
	case models.RankTiered, models.RankQualifiedOnly:
		return base * TierMultiplier(session.Tier)
	case models.RankPerformancePod:
		return base * PodModifier(session.Pod)
	default:
		return base
	}
}

func TierMultiplier(tier int) float64 {
	if m, ok := tierMultipliers[tier]; ok {
		return m
	}
	return 1.0
}

func PodModifier(pod int) float64 {
	if m, ok := podModifiers[pod]; ok {
		return m
	}
	return 1.0
}

// ValidateRanks rejects a ranking submission whose ranks are not unique and
// contiguous from 1. Participants left out of the map are fine, they simply
// go unranked for the session.
func ValidateRanks(ranks map[string]int) error {
	if len(ranks) == 0 {
		return fmt.Errorf("ranking submission is empty")
	}

	byRank := make(map[int]string, len(ranks))
	for user, r := range ranks {
		if r < 1 {
			return fmt.Errorf("rank %d for %s: ranks start at 1", r, user)
		}
		if other, dup := byRank[r]; dup {
			return fmt.Errorf("rank %d assigned to both %s and %s", r, other, user)
		}
		byRank[r] = user
	}
	for r := 1; r <= len(byRank); r++ {
		if _, ok := byRank[r]; !ok {
			return fmt.Errorf("ranks must be contiguous from 1, rank %d is missing", r)
		}
	}
	return nil
}

// TallyPoints accumulates per-user points over every scored session. Unscored
// sessions contribute nothing.
func TallyPoints(sessions []models.Session, scheme map[int]float64) map[string]float64 {
	totals := map[string]float64{}
	for i := range sessions {
		s := &sessions[i]
		if !s.Scored() {
			continue
		}
		for user, rank := range s.RankByUser() {
			totals[user] += SessionPoints(rank, s, scheme)
		}
	}
	return totals
}

// RankStandings orders users by points, highest first, breaking ties by user
// ID so standings are stable run to run.
func RankStandings(totals map[string]float64) []string {
	users := make([]string, 0, len(totals))
	for u := range totals {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if totals[users[i]] != totals[users[j]] {
			return totals[users[i]] > totals[users[j]]
		}
		return users[i] < users[j]
	})
	return users
}
