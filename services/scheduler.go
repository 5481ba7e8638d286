// services/scheduler.go
package services

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"tournament-rewards-system/models"
)

// StartRewardScheduler runs the background retry loops: tournaments stuck in
// COMPLETED get their reward distribution re-driven, and participations whose
// skill write-back failed get replayed.
func (s *FinalizeService) StartRewardScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every 2 minutes: retry reward distribution for completed tournaments
	_, _ = sched.NewJob(
		gocron.DurationJob(2*time.Minute),
		gocron.NewTask(func() {
			var tournaments []models.Tournament
			err := s.DB.Where("status = ?", models.StatusCompleted).
				Order("updated_at ASC").Limit(20).Find(&tournaments).Error
			if err != nil {
				zap.L().Error("reward retry scan failed", zap.Error(err))
				return
			}

			for _, t := range tournaments {
				res, err := s.RetryRewards(t.ID)
				if err != nil {
					zap.L().Error("reward retry failed",
						zap.String("tournament_id", t.ID), zap.Error(err))
					continue
				}
				if res.Ok() {
					zap.L().Info("reward retry promoted tournament",
						zap.String("tournament_id", t.ID),
						zap.Int("distributed", res.Distributed))
				}
			}
		}),
	)

	// Every 5 minutes: replay failed skill write-backs
	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			n, err := s.Rewards.RetryPendingSkillSyncs(50)
			if err != nil {
				zap.L().Error("skill sync retry failed", zap.Error(err))
				return
			}
			if n > 0 {
				zap.L().Info("skill sync retry recovered participations", zap.Int("count", n))
			}
		}),
	)
}

// RetryRewards re-drives reward distribution for a COMPLETED tournament and
// promotes it to REWARDS_DISTRIBUTED once every participant has been paid.
// Already-rewarded participants are skipped by the per-user idempotency, so
// calling this repeatedly is safe.
func (s *FinalizeService) RetryRewards(tournamentID string) (*BulkRewardResult, error) {
	bulk, err := s.Rewards.DistributeForTournament(tournamentID, false)
	if err != nil {
		return nil, err
	}
	if bulk.Ok() {
		if err := s.markRewardsDistributed(tournamentID); err != nil {
			return nil, err
		}
		if s.Archive != nil {
			if _, err := s.Archive.ExportStandings(tournamentID); err != nil {
				zap.L().Warn("standings archive failed",
					zap.String("tournament_id", tournamentID), zap.Error(err))
			}
		}
	}
	return bulk, nil
}
