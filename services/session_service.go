package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tournament-rewards-system/models"
	"tournament-rewards-system/scoring"
)

// SessionService ingests scored results. Scoring itself happens outside this
// system; what arrives here is the outcome plus the per-participant ranks,
// validated before anything is written. The reward path never touches
// sessions, so this is the only writer after generation.
type SessionService struct {
	DB *gorm.DB
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db}
}

type submitResultRequest struct {
	Participants []string       `json:"participants,omitempty"`
	Result       string         `json:"result"`
	Rankings     map[string]int `json:"rankings"`
}

// SubmitResult records a session outcome. Knockout sessions generated with
// placeholder refs get their real participants filled in here, by the caller
// that resolved the previous round. Results may be corrected any time before
// the tournament is finalized.
func (s *SessionService) SubmitResult(c *fiber.Ctx) error {
	id := c.Params("id")
	var req submitResultRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Result == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "result is required"})
	}
	if err := scoring.ValidateRanks(req.Rankings); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var sess models.Session
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sess, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		var t models.Tournament
		if err := tx.First(&t, "id = ?", sess.TournamentID).Error; err != nil {
			return err
		}
		if t.Status == models.StatusCompleted || t.Status == models.StatusRewardsDistributed {
			return fiber.NewError(fiber.StatusConflict, "tournament is already finalized")
		}

		participants := sess.ParticipantIDs()
		if len(participants) == 0 {
			if len(req.Participants) != sess.ExpectedParticipants {
				return fiber.NewError(fiber.StatusBadRequest,
					"session expects its participants with the first result report")
			}
			participants = req.Participants
			sess.SetParticipantIDs(participants)
		}

		known := make(map[string]bool, len(participants))
		for _, p := range participants {
			known[p] = true
		}
		for user := range req.Rankings {
			if !known[user] {
				return fiber.NewError(fiber.StatusBadRequest, "ranked user "+user+" is not in this session")
			}
		}

		sess.Result = &req.Result
		sess.SetRankByUser(req.Rankings)
		return tx.Model(&sess).Updates(map[string]interface{}{
			"participants":     sess.Participants,
			"result":           sess.Result,
			"derived_rankings": sess.DerivedRankings,
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		zap.L().Error("submit result failed", zap.String("session_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to record result"})
	}
	return c.JSON(sess)
}

func (s *SessionService) GetSession(c *fiber.Ctx) error {
	var sess models.Session
	if err := s.DB.First(&sess, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrSessionNotFound.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(sess)
}
