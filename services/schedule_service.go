package services

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tournament-rewards-system/models"
	"tournament-rewards-system/pairing"
)

// ScheduleService turns the approved enrollment list into persisted sessions.
// Generation happens at most once per tournament: the ScheduleGenerated flag
// is read and set under the same tournament row lock, so of two concurrent
// calls exactly one creates sessions and the other observes "already
// generated".
type ScheduleService struct {
	DB *gorm.DB
}

func NewScheduleService(db *gorm.DB) *ScheduleService {
	return &ScheduleService{DB: db}
}

// ScheduleResult is what generation hands back: Ok false carries the reason
// (precondition or validation), never an error. Errors are infrastructure
// only.
type ScheduleResult struct {
	Ok       bool             `json:"ok"`
	Reason   string           `json:"reason,omitempty"`
	Sessions []models.Session `json:"sessions,omitempty"`
}

// GenerateSchedule plans and persists the full session list for a tournament
// in one transaction. The tournament must be IN_PROGRESS and unscheduled.
func (s *ScheduleService) GenerateSchedule(tournamentID string) (*ScheduleResult, error) {
	res := &ScheduleResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}

		if t.Status != models.StatusInProgress {
			res.Reason = "tournament is " + string(t.Status) + ", scheduling requires IN_PROGRESS"
			return nil
		}
		if t.ScheduleGenerated {
			res.Reason = "schedule already generated"
			return nil
		}

		participants, err := approvedParticipantIDs(tx, tournamentID)
		if err != nil {
			return err
		}

		cfg, err := models.ResolveTypeConfig(t.TypeConfigRaw)
		if err != nil {
			res.Reason = err.Error()
			return nil
		}

		slots, err := pairing.Generate(participants, t.Format, cfg)
		if err != nil {
			res.Reason = err.Error()
			return nil
		}

		sessions := make([]models.Session, 0, len(slots))
		for _, slot := range slots {
			sess := models.Session{
				ID:                   uuid.NewString(),
				TournamentID:         t.ID,
				Kind:                 models.SessionTournamentGame,
				Label:                slot.Label,
				RankingMode:          slot.RankingMode,
				Tier:                 slot.Tier,
				Pod:                  slot.Pod,
				GroupLabel:           slot.GroupLabel,
				RoundIndex:           slot.RoundIndex,
				OrderInRound:         slot.OrderInRound,
				Phase:                slot.Phase,
				FinalSlot:            slot.FinalSlot,
				ExpectedParticipants: slot.ExpectedParticipants,
			}
			sess.SetParticipantIDs(slot.Participants)
			sess.SetSeedRefs(slot.SeedRefs)
			sessions = append(sessions, sess)
		}

		if err := tx.Create(&sessions).Error; err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&t).Updates(map[string]interface{}{
			"schedule_generated":    true,
			"schedule_generated_at": now,
		}).Error; err != nil {
			return err
		}

		res.Ok = true
		res.Sessions = sessions
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Ok {
		zap.L().Info("schedule generated",
			zap.String("tournament_id", tournamentID),
			zap.Int("sessions", len(res.Sessions)))
	}
	return res, nil
}

// Generate is the HTTP entry for schedule generation.
func (s *ScheduleService) Generate(c *fiber.Ctx) error {
	res, err := s.GenerateSchedule(c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrTournamentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		zap.L().Error("schedule generation failed", zap.String("tournament_id", c.Params("id")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to generate schedule"})
	}
	if !res.Ok {
		return c.Status(fiber.StatusConflict).JSON(res)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// ListSessions returns a tournament's sessions in play order.
func (s *ScheduleService) ListSessions(c *fiber.Ctx) error {
	var sessions []models.Session
	q := s.DB.Where("tournament_id = ?", c.Params("id")).
		Order("round_index ASC, order_in_round ASC")
	if phase := c.Query("phase"); phase != "" {
		q = q.Where("phase = ?", phase)
	}
	if err := q.Find(&sessions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(sessions)
}
