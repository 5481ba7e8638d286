package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"tournament-rewards-system/models"
	"tournament-rewards-system/testutil"
)

func TestGenerateScheduleRoundRobin(t *testing.T) {
	db := testutil.NewFullDB(t)
	svc := NewScheduleService(db)
	tour := newTournament(t, db, models.StatusInProgress,
		map[string]interface{}{"layout": "round_robin"}, nil)
	approveUsers(t, db, tour.ID, "u1", "u2", "u3", "u4", "u5", "u6")

	res, err := svc.GenerateSchedule(tour.ID)
	require.NoError(t, err)
	require.True(t, res.Ok)
	require.Len(t, res.Sessions, 15)

	var sessions []models.Session
	require.NoError(t, db.Where("tournament_id = ?", tour.ID).
		Order("round_index ASC, order_in_round ASC").Find(&sessions).Error)
	require.Len(t, sessions, 15)

	seen := map[string]bool{}
	for _, sess := range sessions {
		require.Equal(t, models.SessionTournamentGame, sess.Kind)
		require.Equal(t, 2, sess.ExpectedParticipants)
		ids := sess.ParticipantIDs()
		require.Len(t, ids, 2)
		pair := ids[0] + "/" + ids[1]
		if ids[1] < ids[0] {
			pair = ids[1] + "/" + ids[0]
		}
		require.False(t, seen[pair], "pair %s scheduled twice", pair)
		seen[pair] = true
	}

	var reloaded models.Tournament
	require.NoError(t, db.First(&reloaded, "id = ?", tour.ID).Error)
	require.True(t, reloaded.ScheduleGenerated)
	require.NotNil(t, reloaded.ScheduleGeneratedAt)
}

func TestGenerateScheduleOnlyOnce(t *testing.T) {
	db := testutil.NewFullDB(t)
	svc := NewScheduleService(db)
	tour := newTournament(t, db, models.StatusInProgress, nil, nil)
	approveUsers(t, db, tour.ID, "u1", "u2", "u3")

	first, err := svc.GenerateSchedule(tour.ID)
	require.NoError(t, err)
	require.True(t, first.Ok)

	second, err := svc.GenerateSchedule(tour.ID)
	require.NoError(t, err)
	require.False(t, second.Ok)
	require.Equal(t, "schedule already generated", second.Reason)

	var count int64
	require.NoError(t, db.Model(&models.Session{}).
		Where("tournament_id = ?", tour.ID).Count(&count).Error)
	require.EqualValues(t, len(first.Sessions), count)
}

func TestGenerateScheduleRequiresInProgress(t *testing.T) {
	db := testutil.NewFullDB(t)
	svc := NewScheduleService(db)
	tour := newTournament(t, db, models.StatusReadyForEnrollment, nil, nil)

	res, err := svc.GenerateSchedule(tour.ID)
	require.NoError(t, err)
	require.False(t, res.Ok)
	require.Contains(t, res.Reason, "scheduling requires IN_PROGRESS")

	_, err = svc.GenerateSchedule(uuid.NewString())
	require.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestGenerateScheduleRejectsBadField(t *testing.T) {
	db := testutil.NewFullDB(t)
	svc := NewScheduleService(db)
	tour := newTournament(t, db, models.StatusInProgress,
		map[string]interface{}{"layout": "single_elimination"}, nil)
	approveUsers(t, db, tour.ID, "u1", "u2", "u3", "u4", "u5", "u6")

	res, err := svc.GenerateSchedule(tour.ID)
	require.NoError(t, err)
	require.False(t, res.Ok)
	require.Contains(t, res.Reason, "power-of-two")

	var count int64
	require.NoError(t, db.Model(&models.Session{}).
		Where("tournament_id = ?", tour.ID).Count(&count).Error)
	require.Zero(t, count)

	var reloaded models.Tournament
	require.NoError(t, db.First(&reloaded, "id = ?", tour.ID).Error)
	require.False(t, reloaded.ScheduleGenerated)
}

func TestGenerateScheduleCountsOnlyApproved(t *testing.T) {
	db := testutil.NewFullDB(t)
	svc := NewScheduleService(db)
	tour := newTournament(t, db, models.StatusInProgress, nil, nil)
	approveUsers(t, db, tour.ID, "u1", "u2", "u3")

	pending := models.Enrollment{
		ID:           uuid.NewString(),
		TournamentID: tour.ID,
		UserID:       "u9",
		Status:       models.EnrollmentPending,
		SeedPosition: 4,
	}
	require.NoError(t, db.Create(&pending).Error)

	res, err := svc.GenerateSchedule(tour.ID)
	require.NoError(t, err)
	require.True(t, res.Ok)
	require.Len(t, res.Sessions, 3)
	for _, sess := range res.Sessions {
		require.NotContains(t, sess.ParticipantIDs(), "u9")
	}
}
