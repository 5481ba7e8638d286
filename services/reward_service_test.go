package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"tournament-rewards-system/models"
)

func TestDistributeForUserTwiceReturnsSameGrant(t *testing.T) {
	db, rewards := newRewardStack(t)
	tour := newTournament(t, db, models.StatusCompleted, nil, testPolicyDoc())
	policy := resolvedPolicy(t, tour)

	first, err := rewards.DistributeForUser(tour, "u1", 1, 8, policy, false)
	require.NoError(t, err)
	require.False(t, first.AlreadyDistributed)
	require.Equal(t, int64(500), first.Participation.BaseXP)
	require.Equal(t, int64(30), first.Participation.BonusXP)
	require.Equal(t, int64(200), first.Participation.CreditsAwarded)
	require.InDelta(t, 3.0, first.Participation.SkillPointsAwarded, 1e-9)

	second, err := rewards.DistributeForUser(tour, "u1", 1, 8, policy, false)
	require.NoError(t, err)
	require.True(t, second.AlreadyDistributed)
	require.Equal(t, first.Participation.ID, second.Participation.ID)

	u := loadUser(t, db, "u1")
	require.Equal(t, int64(530), u.XP)
	require.Equal(t, int64(200), u.Credits)

	var count int64
	require.NoError(t, db.Model(&models.Participation{}).
		Where("tournament_id = ? AND user_id = ?", tour.ID, "u1").Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestConcurrentDistributionPaysOnce(t *testing.T) {
	db, rewards := newRewardStack(t)
	tour := newTournament(t, db, models.StatusCompleted, nil, testPolicyDoc())
	policy := resolvedPolicy(t, tour)

	var wg sync.WaitGroup
	results := make([]*RewardResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = rewards.DistributeForUser(tour, "u1", 1, 8, policy, false)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, results[0].Participation.ID, results[1].Participation.ID)

	var count int64
	require.NoError(t, db.Model(&models.Participation{}).
		Where("tournament_id = ? AND user_id = ?", tour.ID, "u1").Count(&count).Error)
	require.EqualValues(t, 1, count)

	u := loadUser(t, db, "u1")
	require.Equal(t, int64(530), u.XP)
	require.Equal(t, int64(200), u.Credits)
}

func TestBalancesIncrementNotOverwrite(t *testing.T) {
	db, rewards := newRewardStack(t)
	tour := newTournament(t, db, models.StatusCompleted, nil, testPolicyDoc())
	policy := resolvedPolicy(t, tour)

	require.NoError(t, db.Create(&models.User{ID: "u1", DisplayName: "One", XP: 1000, Credits: 500}).Error)

	_, err := rewards.DistributeForUser(tour, "u1", 1, 8, policy, false)
	require.NoError(t, err)

	u := loadUser(t, db, "u1")
	require.Equal(t, int64(1530), u.XP)
	require.Equal(t, int64(700), u.Credits)
}

func TestConcurrentTournamentsNeverLoseAnIncrement(t *testing.T) {
	db, rewards := newRewardStack(t)
	tourA := newTournament(t, db, models.StatusCompleted, nil, testPolicyDoc())
	tourB := newTournament(t, db, models.StatusCompleted, nil, testPolicyDoc())
	policyA := resolvedPolicy(t, tourA)
	policyB := resolvedPolicy(t, tourB)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = rewards.DistributeForUser(tourA, "u1", 1, 8, policyA, false)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = rewards.DistributeForUser(tourB, "u1", 1, 8, policyB, false)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	var count int64
	require.NoError(t, db.Model(&models.Participation{}).
		Where("user_id = ?", "u1").Count(&count).Error)
	require.EqualValues(t, 2, count)

	// Both grants land in full; an overwrite would leave 530.
	u := loadUser(t, db, "u1")
	require.Equal(t, int64(1060), u.XP)
	require.Equal(t, int64(400), u.Credits)
}

func TestSkillWriteBackPreservesAssessment(t *testing.T) {
	db, rewards := newRewardStack(t)
	tour := newTournament(t, db, models.StatusCompleted, nil, testPolicyDoc())
	policy := resolvedPolicy(t, tour)

	assessed := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	lic := models.SpecializationLicense{
		ID:         uuid.NewString(),
		UserID:     "u1",
		Discipline: "Freestyle",
	}
	require.NoError(t, lic.SetProfile(map[string]models.SkillEntry{
		"edge_control": {
			CurrentLevel:    4,
			Baseline:        3,
			AssessedAt:      &assessed,
			TournamentDelta: 1,
			TotalDelta:      1,
			TournamentCount: 2,
			LastUpdated:     assessed,
		},
	}))
	require.NoError(t, db.Create(&lic).Error)

	res, err := rewards.DistributeForUser(tour, "u1", 1, 8, policy, false)
	require.NoError(t, err)
	require.False(t, res.SkillSyncPending)

	var reloaded models.SpecializationLicense
	require.NoError(t, db.First(&reloaded, "user_id = ?", "u1").Error)
	profile, err := reloaded.Profile()
	require.NoError(t, err)

	edge := profile["edge_control"]
	require.InDelta(t, 6.0, edge.CurrentLevel, 1e-9)
	require.InDelta(t, 3.0, edge.Baseline, 1e-9)
	require.NotNil(t, edge.AssessedAt)
	require.True(t, edge.AssessedAt.Equal(assessed))
	require.InDelta(t, 3.0, edge.TournamentDelta, 1e-9)
	require.InDelta(t, 3.0, edge.TotalDelta, 1e-9)
	require.Equal(t, 3, edge.TournamentCount)

	timing := profile["timing"]
	require.InDelta(t, 1.0, timing.CurrentLevel, 1e-9)
	require.Zero(t, timing.Baseline)
	require.Equal(t, 1, timing.TournamentCount)
}

func TestForceRedistributionMovesBalancesByDelta(t *testing.T) {
	db, rewards := newRewardStack(t)
	tour := newTournament(t, db, models.StatusCompleted, nil, testPolicyDoc())
	policy := resolvedPolicy(t, tour)

	_, err := rewards.DistributeForUser(tour, "u1", 2, 8, policy, false)
	require.NoError(t, err)
	u := loadUser(t, db, "u1")
	require.Equal(t, int64(323), u.XP)
	require.Equal(t, int64(120), u.Credits)

	// Placement correction: the balances move by the difference, not the
	// full amount again.
	res, err := rewards.DistributeForUser(tour, "u1", 1, 8, policy, true)
	require.NoError(t, err)
	require.Equal(t, 1, res.Participation.Placement)
	require.Equal(t, int64(500), res.Participation.BaseXP)

	u = loadUser(t, db, "u1")
	require.Equal(t, int64(530), u.XP)
	require.Equal(t, int64(200), u.Credits)

	// Skill levels land where a first-place grant would have put them, with
	// the tournament counted once.
	var lic models.SpecializationLicense
	require.NoError(t, db.First(&lic, "user_id = ?", "u1").Error)
	profile, err := lic.Profile()
	require.NoError(t, err)
	edge := profile["edge_control"]
	require.InDelta(t, 2.0, edge.CurrentLevel, 1e-9)
	require.InDelta(t, 2.0, edge.TournamentDelta, 1e-9)
	require.Equal(t, 1, edge.TournamentCount)
	require.Equal(t, 1, profile["timing"].TournamentCount)
	require.InDelta(t, 1.0, profile["timing"].CurrentLevel, 1e-9)
}

func TestDistributeRejectsPlacementBeyondField(t *testing.T) {
	db, rewards := newRewardStack(t)
	tour := newTournament(t, db, models.StatusCompleted, nil, testPolicyDoc())
	policy := resolvedPolicy(t, tour)

	_, err := rewards.DistributeForUser(tour, "u1", 9, 8, policy, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of range")
}

func TestDistributeForTournamentCoversWholeField(t *testing.T) {
	db, rewards := newRewardStack(t)
	tour := newTournament(t, db, models.StatusCompleted, nil, testPolicyDoc())

	rankUser(t, db, tour.ID, "u1", intPtr(1), 6)
	rankUser(t, db, tour.ID, "u2", intPtr(2), 5)
	rankUser(t, db, tour.ID, "u3", nil, 2)

	bulk, err := rewards.DistributeForTournament(tour.ID, false)
	require.NoError(t, err)
	require.True(t, bulk.Ok())
	require.Equal(t, 3, bulk.Distributed)
	require.Zero(t, bulk.AlreadySeen)

	var parts []models.Participation
	require.NoError(t, db.Where("tournament_id = ?", tour.ID).
		Order("placement ASC").Find(&parts).Error)
	require.Len(t, parts, 3)
	require.Equal(t, 0, parts[0].Placement)
	require.Equal(t, "u3", parts[0].UserID)
	require.Equal(t, int64(40), parts[0].CreditsAwarded)
	require.Equal(t, 1, parts[1].Placement)
	require.Equal(t, 2, parts[2].Placement)

	var badges []models.Badge
	require.NoError(t, db.Where("tournament_id = ?", tour.ID).Find(&badges).Error)
	byUser := map[string]models.BadgeType{}
	for _, b := range badges {
		byUser[b.UserID] = b.BadgeType
	}
	require.Equal(t, models.BadgeChampion, byUser["u1"])
	require.Equal(t, models.BadgeRunnerUp, byUser["u2"])
	require.Equal(t, models.BadgeParticipant, byUser["u3"])

	// A repeat run sees every grant and pays nobody again.
	again, err := rewards.DistributeForTournament(tour.ID, false)
	require.NoError(t, err)
	require.True(t, again.Ok())
	require.Zero(t, again.Distributed)
	require.Equal(t, 3, again.AlreadySeen)

	u1 := loadUser(t, db, "u1")
	require.Equal(t, int64(530), u1.XP)
}

func TestRetryPendingSkillSyncsClearsFlag(t *testing.T) {
	db, rewards := newRewardStack(t)
	tour := newTournament(t, db, models.StatusCompleted, nil, testPolicyDoc())

	p := models.Participation{
		ID:                 uuid.NewString(),
		TournamentID:       tour.ID,
		UserID:             "u1",
		Placement:          1,
		SkillPointsAwarded: 3,
		BaseXP:             500,
		BonusXP:            30,
		CreditsAwarded:     200,
		SkillRatingDelta:   3,
		SkillSyncPending:   true,
	}
	require.NoError(t, db.Create(&p).Error)

	recovered, err := rewards.RetryPendingSkillSyncs(10)
	require.NoError(t, err)
	require.Equal(t, 1, recovered)

	var reloaded models.Participation
	require.NoError(t, db.First(&reloaded, "id = ?", p.ID).Error)
	require.False(t, reloaded.SkillSyncPending)

	var lic models.SpecializationLicense
	require.NoError(t, db.First(&lic, "user_id = ?", "u1").Error)
	profile, err := lic.Profile()
	require.NoError(t, err)
	require.InDelta(t, 2.0, profile["edge_control"].CurrentLevel, 1e-9)
	require.InDelta(t, 1.0, profile["timing"].CurrentLevel, 1e-9)
}
