package services

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tournament-rewards-system/models"
)

// RewardService distributes tournament rewards exactly once per participant.
// Every per-user distribution is one transaction for the core reward
// (participation row, balance increments, badges) plus a second, isolated
// transaction for the skill-profile write-back. The participation row is the
// idempotency witness: locked and re-checked before any mutation, so a
// repeat call returns the recorded summary instead of paying twice.
type RewardService struct {
	DB     *gorm.DB
	Badges *BadgeService
}

func NewRewardService(db *gorm.DB, badges *BadgeService) *RewardService {
	return &RewardService{DB: db, Badges: badges}
}

// RewardResult is the structured outcome for one participant.
type RewardResult struct {
	AlreadyDistributed bool                 `json:"already_distributed"`
	Participation      models.Participation `json:"participation"`
	Badges             []models.Badge       `json:"badges,omitempty"`
	SkillSyncPending   bool                 `json:"skill_sync_pending,omitempty"`
}

// BulkRewardResult summarizes a whole-tournament distribution run.
type BulkRewardResult struct {
	TournamentID string                   `json:"tournament_id"`
	Distributed  int                      `json:"distributed"`
	AlreadySeen  int                      `json:"already_distributed"`
	Failed       map[string]string        `json:"failed,omitempty"`
	Results      map[string]*RewardResult `json:"results,omitempty"`
}

func (r *BulkRewardResult) Ok() bool {
	return len(r.Failed) == 0
}

// rewardAmounts is everything computed from policy and placement before any
// write happens.
type rewardAmounts struct {
	baseXP      int64
	bonusXP     int64
	credits     int64
	skillPoints float64
	skillDeltas map[string]float64
}

func computeAmounts(placement int, policy models.RewardPolicy, category string) rewardAmounts {
	pr := policy.RewardFor(placement)
	factor := policy.FactorFor(placement)

	deltas := make(map[string]float64, len(policy.SkillWeights))
	points := 0.0
	for skill, weight := range policy.SkillWeights {
		d := weight * factor
		deltas[skill] = d
		points += d
	}

	return rewardAmounts{
		baseXP:      pr.XP,
		bonusXP:     int64(math.Round(points * policy.RateFor(category))),
		credits:     pr.Credits,
		skillPoints: points,
		skillDeltas: deltas,
	}
}

// DistributeForUser runs one participant's distribution. Placement 0 is the
// participant tier. force recomputes the reward and moves the balances by
// the difference against what was granted before, for policy corrections.
func (s *RewardService) DistributeForUser(t *models.Tournament, userID string, placement, totalParticipants int, policy models.RewardPolicy, force bool) (*RewardResult, error) {
	if placement < 0 || (totalParticipants > 0 && placement > totalParticipants) {
		return nil, fmt.Errorf("placement %d out of range for a field of %d", placement, totalParticipants)
	}

	amounts := computeAmounts(placement, policy, t.Discipline)
	res := &RewardResult{}
	prevPlacement := -1

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Participation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tournament_id = ? AND user_id = ?", t.ID, userID).
			First(&existing).Error

		switch {
		case err == nil && !force:
			res.AlreadyDistributed = true
			res.Participation = existing
			res.SkillSyncPending = existing.SkillSyncPending
			return nil

		case err == nil && force:
			prevPlacement = existing.Placement
			deltaXP := (amounts.baseXP + amounts.bonusXP) - (existing.BaseXP + existing.BonusXP)
			deltaCredits := amounts.credits - existing.CreditsAwarded

			existing.Placement = placement
			existing.SkillPointsAwarded = amounts.skillPoints
			existing.BaseXP = amounts.baseXP
			existing.BonusXP = amounts.bonusXP
			existing.CreditsAwarded = amounts.credits
			existing.SkillRatingDelta = amounts.skillPoints
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			if err := incrementBalances(tx, userID, deltaXP, deltaCredits); err != nil {
				return err
			}
			badges, err := s.Badges.AwardForPlacement(tx, userID, t.ID, placement, policy)
			if err != nil {
				return err
			}
			res.Participation = existing
			res.Badges = badges
			return nil

		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		p := models.Participation{
			ID:                 uuid.NewString(),
			TournamentID:       t.ID,
			UserID:             userID,
			Placement:          placement,
			SkillPointsAwarded: amounts.skillPoints,
			BaseXP:             amounts.baseXP,
			BonusXP:            amounts.bonusXP,
			CreditsAwarded:     amounts.credits,
			SkillRatingDelta:   amounts.skillPoints,
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		if err := incrementBalances(tx, userID, amounts.baseXP+amounts.bonusXP, amounts.credits); err != nil {
			return err
		}
		badges, err := s.Badges.AwardForPlacement(tx, userID, t.ID, placement, policy)
		if err != nil {
			return err
		}

		res.Participation = p
		res.Badges = badges
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			// A concurrent distribution committed between our lock check and
			// the insert. Their summary is the result, not an error.
			var winner models.Participation
			if ferr := s.DB.Where("tournament_id = ? AND user_id = ?", t.ID, userID).
				First(&winner).Error; ferr != nil {
				return nil, err
			}
			zap.L().Info("concurrent distribution resolved to existing participation",
				zap.String("tournament_id", t.ID), zap.String("user_id", userID))
			return &RewardResult{
				AlreadyDistributed: true,
				Participation:      winner,
				SkillSyncPending:   winner.SkillSyncPending,
			}, nil
		}
		return nil, err
	}
	if res.AlreadyDistributed {
		return res, nil
	}

	// Phase two: the skill write-back runs in its own transaction. A failure
	// here is recorded on the participation row and retried later; the core
	// reward above stands. A forced correction moves skill levels by the
	// difference against the earlier grant and leaves the tournament count
	// alone, mirroring the balance handling.
	deltas := amounts.skillDeltas
	countTournament := true
	if prevPlacement >= 0 {
		countTournament = false
		prev := computeAmounts(prevPlacement, policy, t.Discipline).skillDeltas
		deltas = make(map[string]float64, len(amounts.skillDeltas))
		for skill, d := range amounts.skillDeltas {
			deltas[skill] = d - prev[skill]
		}
	}
	if err := s.applySkillDeltas(userID, t.Discipline, deltas, countTournament); err != nil {
		zap.L().Error("skill write-back failed",
			zap.String("tournament_id", t.ID), zap.String("user_id", userID), zap.Error(err))
		res.SkillSyncPending = true
		if ferr := s.DB.Model(&models.Participation{}).
			Where("id = ?", res.Participation.ID).
			Update("skill_sync_pending", true).Error; ferr != nil {
			zap.L().Error("failed to flag participation for skill retry",
				zap.String("participation_id", res.Participation.ID), zap.Error(ferr))
		} else {
			res.Participation.SkillSyncPending = true
		}
	}

	return res, nil
}

// incrementBalances applies the atomic counter updates, creating the user
// mirror row on first contact so a reward never fails for lack of one.
func incrementBalances(tx *gorm.DB, userID string, xp, credits int64) error {
	updates := map[string]interface{}{
		"xp":      gorm.Expr("xp + ?", xp),
		"credits": gorm.Expr("credits + ?", credits),
	}
	res := tx.Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	u := models.User{ID: userID, XP: xp, Credits: credits}
	if err := tx.Create(&u).Error; err != nil {
		if !isDuplicateKey(err) {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
	}
	return nil
}

// applySkillDeltas merges per-skill deltas into the user's license document
// under an exclusive row lock held across the whole read-merge-write span.
// Assessment-sourced fields (Baseline, AssessedAt) pass through untouched.
// countTournament is false for corrections, which adjust levels without
// counting another tournament.
func (s *RewardService) applySkillDeltas(userID, discipline string, deltas map[string]float64, countTournament bool) error {
	if len(deltas) == 0 {
		return nil
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var lic models.SpecializationLicense
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&lic).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			lic = models.SpecializationLicense{
				ID:         uuid.NewString(),
				UserID:     userID,
				Discipline: discipline,
			}
			if cerr := tx.Create(&lic).Error; cerr != nil {
				if !isDuplicateKey(cerr) {
					return cerr
				}
				if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
					Where("user_id = ?", userID).First(&lic).Error; err != nil {
					return err
				}
			}
		} else if err != nil {
			return err
		}

		profile, err := lic.Profile()
		if err != nil {
			return err
		}
		now := time.Now()
		for skill, d := range deltas {
			entry := profile[skill]
			entry.CurrentLevel += d
			entry.TournamentDelta += d
			entry.TotalDelta = entry.CurrentLevel - entry.Baseline
			if countTournament {
				entry.TournamentCount++
			}
			entry.LastUpdated = now
			profile[skill] = entry
		}
		if err := lic.SetProfile(profile); err != nil {
			return err
		}
		return tx.Model(&lic).Update("skill_profile", lic.SkillProfile).Error
	})
}

// DistributeForTournament fans out over every ranking row. Participants are
// independent units: one failure is recorded and the rest continue.
func (s *RewardService) DistributeForTournament(tournamentID string, force bool) (*BulkRewardResult, error) {
	var t models.Tournament
	if err := s.DB.First(&t, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	policy, err := models.ResolveRewardPolicy(t.RewardPolicyRaw)
	if err != nil {
		return nil, err
	}

	var rankings []models.Ranking
	if err := s.DB.Where("tournament_id = ?", tournamentID).Find(&rankings).Error; err != nil {
		return nil, err
	}

	bulk := &BulkRewardResult{
		TournamentID: tournamentID,
		Failed:       map[string]string{},
		Results:      map[string]*RewardResult{},
	}
	total := len(rankings)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(4)

	for _, r := range rankings {
		r := r
		g.Go(func() error {
			placement := 0
			if r.Rank != nil {
				placement = *r.Rank
			}
			res, err := s.DistributeForUser(&t, r.UserID, placement, total, policy, force)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zap.L().Error("distribution failed for participant",
					zap.String("tournament_id", tournamentID),
					zap.String("user_id", r.UserID), zap.Error(err))
				bulk.Failed[r.UserID] = err.Error()
				return nil
			}
			bulk.Results[r.UserID] = res
			if res.AlreadyDistributed {
				bulk.AlreadySeen++
			} else {
				bulk.Distributed++
			}
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("tournament distribution finished",
		zap.String("tournament_id", tournamentID),
		zap.Int("distributed", bulk.Distributed),
		zap.Int("already", bulk.AlreadySeen),
		zap.Int("failed", len(bulk.Failed)))
	return bulk, nil
}

// RetryPendingSkillSyncs re-runs the isolated write-back for participations
// whose phase two failed. The merge transaction is all-or-nothing, so a
// retry can never double-apply.
func (s *RewardService) RetryPendingSkillSyncs(limit int) (int, error) {
	var pending []models.Participation
	if err := s.DB.Where("skill_sync_pending = ?", true).
		Limit(limit).Find(&pending).Error; err != nil {
		return 0, err
	}

	recovered := 0
	for _, p := range pending {
		var t models.Tournament
		if err := s.DB.First(&t, "id = ?", p.TournamentID).Error; err != nil {
			continue
		}
		policy, err := models.ResolveRewardPolicy(t.RewardPolicyRaw)
		if err != nil {
			continue
		}
		amounts := computeAmounts(p.Placement, policy, t.Discipline)
		if err := s.applySkillDeltas(p.UserID, t.Discipline, amounts.skillDeltas, true); err != nil {
			zap.L().Warn("skill write-back retry failed",
				zap.String("participation_id", p.ID), zap.Error(err))
			continue
		}
		if err := s.DB.Model(&models.Participation{}).
			Where("id = ?", p.ID).
			Update("skill_sync_pending", false).Error; err != nil {
			continue
		}
		recovered++
	}
	return recovered, nil
}

// DistributeTournament is the HTTP entry for a whole-tournament run.
func (s *RewardService) DistributeTournament(c *fiber.Ctx) error {
	force := c.QueryBool("force")
	bulk, err := s.DistributeForTournament(c.Params("id"), force)
	if err != nil {
		if errors.Is(err, ErrTournamentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		zap.L().Error("bulk distribution failed", zap.String("tournament_id", c.Params("id")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to distribute rewards"})
	}
	return c.JSON(bulk)
}

// DistributeUser is the HTTP entry for a single participant, placement taken
// from their ranking row.
func (s *RewardService) DistributeUser(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	userID := c.Params("user_id")
	force := c.QueryBool("force")

	var t models.Tournament
	if err := s.DB.First(&t, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrTournamentNotFound.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	var ranking models.Ranking
	if err := s.DB.Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
		First(&ranking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "user has no ranking for this tournament"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	policy, err := models.ResolveRewardPolicy(t.RewardPolicyRaw)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var total int64
	if err := s.DB.Model(&models.Ranking{}).Where("tournament_id = ?", tournamentID).
		Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	placement := 0
	if ranking.Rank != nil {
		placement = *ranking.Rank
	}
	res, err := s.DistributeForUser(&t, userID, placement, int(total), policy, force)
	if err != nil {
		zap.L().Error("distribution failed", zap.String("tournament_id", tournamentID),
			zap.String("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to distribute reward"})
	}
	return c.JSON(res)
}

// ListParticipations returns the reward records for a tournament.
func (s *RewardService) ListParticipations(c *fiber.Ctx) error {
	var list []models.Participation
	if err := s.DB.Where("tournament_id = ?", c.Params("id")).
		Order("placement ASC, created_at ASC").Find(&list).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(list)
}
