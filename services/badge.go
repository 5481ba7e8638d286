package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tournament-rewards-system/models"
)

// BadgeService grants achievement badges. Awards run inside the caller's
// reward transaction; each insert is wrapped in a savepoint so a concurrent
// awarder losing the unique-index race costs only that nested scope, never
// the balance work already done in the enclosing transaction.
type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// Award grants one badge to a user for a tournament, idempotently. The
// returned bool reports whether a new row was created.
func (s *BadgeService) Award(tx *gorm.DB, userID, tournamentID string, badgeType models.BadgeType, def models.BadgeDef) (*models.Badge, bool, error) {
	var existing models.Badge
	err := tx.Where("user_id = ? AND tournament_id = ? AND badge_type = ?",
		userID, tournamentID, badgeType).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	badge := models.Badge{
		ID:           uuid.NewString(),
		UserID:       userID,
		TournamentID: tournamentID,
		BadgeType:    badgeType,
		Title:        def.Title,
		Icon:         def.Icon,
		Rarity:       def.Rarity,
	}

	if err := tx.SavePoint("badge_award").Error; err != nil {
		return nil, false, err
	}
	if err := tx.Create(&badge).Error; err != nil {
		if !isDuplicateKey(err) {
			return nil, false, err
		}
		// A concurrent awarder won the race. Roll back just this scope and
		// hand back their row.
		if err := tx.RollbackTo("badge_award").Error; err != nil {
			return nil, false, err
		}
		if err := tx.Where("user_id = ? AND tournament_id = ? AND badge_type = ?",
			userID, tournamentID, badgeType).First(&existing).Error; err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	}
	return &badge, true, nil
}

// AwardForPlacement grants the podium or participant badge plus any
// milestone badges the award pushes the user over. The policy may restyle
// podium badges per tournament; milestone presentation always comes from the
// catalog.
func (s *BadgeService) AwardForPlacement(tx *gorm.DB, userID, tournamentID string, placement int, policy models.RewardPolicy) ([]models.Badge, error) {
	var awarded []models.Badge

	badgeType, def, podium := policy.BadgeFor(placement)
	if !podium {
		badgeType = models.BadgeParticipant
		def = badgeType.Def()
	}
	badge, _, err := s.Award(tx, userID, tournamentID, badgeType, def)
	if err != nil {
		return nil, err
	}
	awarded = append(awarded, *badge)

	milestones, err := s.dueMilestones(tx, userID)
	if err != nil {
		return nil, err
	}
	for _, mt := range milestones {
		held, err := s.milestoneAlreadyHeld(tx, userID, mt)
		if err != nil {
			return nil, err
		}
		if held {
			continue
		}
		mb, created, err := s.Award(tx, userID, tournamentID, mt, mt.Def())
		if err != nil {
			return nil, err
		}
		if created {
			zap.L().Info("milestone badge awarded",
				zap.String("user_id", userID),
				zap.String("badge_type", string(mt)))
			awarded = append(awarded, *mb)
		}
	}
	return awarded, nil
}

// dueMilestones recomputes milestone eligibility from the user's badge
// history. Counting fresh on every call beats maintaining a counter that can
// drift.
func (s *BadgeService) dueMilestones(tx *gorm.DB, userID string) ([]models.BadgeType, error) {
	milestoneTypes := []models.BadgeType{models.BadgeVeteran, models.BadgeLegend, models.BadgeTripleCrown}

	var total, champions int64
	if err := tx.Model(&models.Badge{}).
		Where("user_id = ? AND badge_type NOT IN ?", userID, milestoneTypes).
		Count(&total).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.Badge{}).
		Where("user_id = ? AND badge_type = ?", userID, models.BadgeChampion).
		Count(&champions).Error; err != nil {
		return nil, err
	}

	var due []models.BadgeType
	if total >= models.VeteranBadgeCount {
		due = append(due, models.BadgeVeteran)
	}
	if total >= models.LegendBadgeCount {
		due = append(due, models.BadgeLegend)
	}
	if champions >= models.TripleCrownChampCount {
		due = append(due, models.BadgeTripleCrown)
	}
	return due, nil
}

// milestoneAlreadyHeld reports whether the user holds the milestone from any
// tournament. Milestones are once per user; the triggering tournament is
// just provenance.
func (s *BadgeService) milestoneAlreadyHeld(tx *gorm.DB, userID string, badgeType models.BadgeType) (bool, error) {
	var count int64
	err := tx.Model(&models.Badge{}).
		Where("user_id = ? AND badge_type = ?", userID, badgeType).
		Count(&count).Error
	return count > 0, err
}

// ListUserBadges returns every badge a user holds, newest first.
func (s *BadgeService) ListUserBadges(c *fiber.Ctx) error {
	var badges []models.Badge
	if err := s.DB.Where("user_id = ?", c.Params("user_id")).
		Order("awarded_at DESC").Find(&badges).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(badges)
}

// ListTournamentBadges returns the badges a tournament has produced.
func (s *BadgeService) ListTournamentBadges(c *fiber.Ctx) error {
	var badges []models.Badge
	if err := s.DB.Where("tournament_id = ?", c.Params("id")).
		Order("awarded_at DESC").Find(&badges).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(badges)
}
