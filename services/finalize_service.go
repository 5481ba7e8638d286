package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tournament-rewards-system/models"
	"tournament-rewards-system/scoring"
)

// FinalizeService closes out a tournament: verifies every game has a result,
// computes the podium and the points table, upserts rankings, moves the
// status to COMPLETED and hands the field to the reward service. Rewards run
// after the finalize transaction commits, so a reward failure leaves the
// tournament COMPLETED and retryable without re-finalizing.
type FinalizeService struct {
	DB      *gorm.DB
	Rewards *RewardService

	// Archive, when set, exports the standings document after the
	// tournament reaches REWARDS_DISTRIBUTED. Best-effort.
	Archive *ArchiveService
}

func NewFinalizeService(db *gorm.DB, rewards *RewardService) *FinalizeService {
	return &FinalizeService{DB: db, Rewards: rewards}
}

// FinalizeResult is the structured outcome of one finalize call.
type FinalizeResult struct {
	Ok         bool                    `json:"ok"`
	Reason     string                  `json:"reason,omitempty"`
	Status     models.TournamentStatus `json:"status,omitempty"`
	Incomplete []string                `json:"incomplete_sessions,omitempty"`
	Rankings   []models.Ranking        `json:"rankings,omitempty"`
	Rewards    *BulkRewardResult       `json:"rewards,omitempty"`
}

// Finalize runs the whole close-out for a tournament. Calling it on an
// already finalized tournament is a success no-op.
func (s *FinalizeService) Finalize(tournamentID string) (*FinalizeResult, error) {
	res := &FinalizeResult{}
	justCompleted := false

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// The tournament row lock comes first in every reward-path
		// transaction; everything below happens under it.
		var t models.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}

		if t.Status == models.StatusCompleted || t.Status == models.StatusRewardsDistributed {
			res.Ok = true
			res.Status = t.Status
			res.Reason = "tournament already finalized"
			return nil
		}
		if t.Status != models.StatusInProgress {
			res.Status = t.Status
			res.Reason = "tournament is " + string(t.Status) + ", finalize requires IN_PROGRESS"
			return nil
		}
		if !t.ScheduleGenerated {
			res.Status = t.Status
			res.Reason = "schedule has not been generated"
			return nil
		}

		var sessions []models.Session
		if err := tx.Where("tournament_id = ? AND kind = ?", tournamentID, models.SessionTournamentGame).
			Order("round_index ASC, order_in_round ASC").Find(&sessions).Error; err != nil {
			return err
		}

		for i := range sessions {
			if !sessions[i].Scored() {
				res.Incomplete = append(res.Incomplete, sessions[i].Label)
			}
		}
		if len(res.Incomplete) > 0 {
			res.Status = t.Status
			res.Reason = "sessions without a result"
			return nil
		}

		participants, err := approvedParticipantIDs(tx, tournamentID)
		if err != nil {
			return err
		}

		cfg, err := models.ResolveTypeConfig(t.TypeConfigRaw)
		if err != nil {
			res.Status = t.Status
			res.Reason = err.Error()
			return nil
		}

		totals := scoring.TallyPoints(sessions, cfg.PointScheme)
		podium := extractPodium(sessions, totals)

		rankings := make([]models.Ranking, 0, len(participants))
		for _, userID := range participants {
			r := models.Ranking{
				ID:           uuid.NewString(),
				TournamentID: tournamentID,
				UserID:       userID,
				Points:       totals[userID],
			}
			if place, ok := podium[userID]; ok {
				place := place
				r.Rank = &place
			}
			rankings = append(rankings, r)
		}
		if len(rankings) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "tournament_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"rank", "points", "updated_at"}),
			}).Create(&rankings).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&t).Update("status", models.StatusCompleted).Error; err != nil {
			return err
		}

		res.Ok = true
		res.Status = models.StatusCompleted
		res.Rankings = rankings
		justCompleted = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !justCompleted {
		return res, nil
	}

	zap.L().Info("tournament finalized",
		zap.String("tournament_id", tournamentID),
		zap.Int("rankings", len(res.Rankings)))

	bulk, err := s.Rewards.DistributeForTournament(tournamentID, false)
	if err != nil {
		zap.L().Error("reward distribution failed after finalize; tournament stays COMPLETED",
			zap.String("tournament_id", tournamentID), zap.Error(err))
		return res, nil
	}
	res.Rewards = bulk
	if !bulk.Ok() {
		zap.L().Warn("reward distribution incomplete; tournament stays COMPLETED",
			zap.String("tournament_id", tournamentID), zap.Int("failed", len(bulk.Failed)))
		return res, nil
	}

	if err := s.markRewardsDistributed(tournamentID); err != nil {
		zap.L().Error("failed to mark rewards distributed",
			zap.String("tournament_id", tournamentID), zap.Error(err))
		return res, nil
	}
	res.Status = models.StatusRewardsDistributed

	if s.Archive != nil {
		if _, err := s.Archive.ExportStandings(tournamentID); err != nil {
			zap.L().Warn("standings archive failed",
				zap.String("tournament_id", tournamentID), zap.Error(err))
		}
	}
	return res, nil
}

func (s *FinalizeService) markRewardsDistributed(tournamentID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", tournamentID).Error; err != nil {
			return err
		}
		if t.Status != models.StatusCompleted {
			return nil
		}
		return tx.Model(&t).Update("status", models.StatusRewardsDistributed).Error
	})
}

// extractPodium reads placement from the FINAL and THIRD_PLACE sessions:
// rank 1 and 2 of the final are first and second, rank 1 of the third-place
// match is third. Layouts without a final (league, swiss) take the top of
// the points table instead.
func extractPodium(sessions []models.Session, totals map[string]float64) map[string]int {
	podium := map[string]int{}

	var final, third *models.Session
	for i := range sessions {
		switch sessions[i].FinalSlot {
		case models.SlotFinal:
			final = &sessions[i]
		case models.SlotThirdPlace:
			third = &sessions[i]
		}
	}

	if final != nil {
		for user, rank := range final.RankByUser() {
			switch rank {
			case 1:
				podium[user] = 1
			case 2:
				podium[user] = 2
			}
		}
		if third != nil {
			for user, rank := range third.RankByUser() {
				if rank == 1 {
					podium[user] = 3
				}
			}
		}
		return podium
	}

	for i, user := range scoring.RankStandings(totals) {
		if i >= 3 {
			break
		}
		podium[user] = i + 1
	}
	return podium
}

// Run is the HTTP entry for finalization.
func (s *FinalizeService) Run(c *fiber.Ctx) error {
	res, err := s.Finalize(c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrTournamentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		zap.L().Error("finalize failed", zap.String("tournament_id", c.Params("id")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to finalize tournament"})
	}
	if !res.Ok {
		return c.Status(fiber.StatusConflict).JSON(res)
	}
	return c.JSON(res)
}

// ListRankings returns the final table for a tournament, podium first.
func (s *FinalizeService) ListRankings(c *fiber.Ctx) error {
	var rankings []models.Ranking
	if err := s.DB.Where("tournament_id = ?", c.Params("id")).
		Order("rank IS NULL, rank ASC, points DESC").Find(&rankings).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(rankings)
}
