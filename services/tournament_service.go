package services

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tournament-rewards-system/models"
)

// disciplineTitle folds discipline values to one casing so list filters and
// license lookups agree ("freestyle", "FREESTYLE" -> "Freestyle").
var disciplineTitle = cases.Title(language.Und)

func normalizeDiscipline(d string) string {
	return disciplineTitle.String(strings.ToLower(strings.TrimSpace(d)))
}

// TournamentService owns the tournament lifecycle up to IN_PROGRESS:
// creation, instructor assignment, forward status transitions and the
// enrollment mirror. COMPLETED and REWARDS_DISTRIBUTED belong to the
// finalize/reward path and cannot be reached through this service.
type TournamentService struct {
	DB *gorm.DB
}

func NewTournamentService(db *gorm.DB) *TournamentService {
	return &TournamentService{DB: db}
}

// statusFlow lists the transitions an operator may request. Terminal states
// are absent on purpose.
var statusFlow = map[models.TournamentStatus]models.TournamentStatus{
	models.StatusDraft:               models.StatusSeekingInstructor,
	models.StatusSeekingInstructor:   models.StatusInstructorConfirmed,
	models.StatusInstructorConfirmed: models.StatusReadyForEnrollment,
	models.StatusReadyForEnrollment:  models.StatusInProgress,
}

type createTournamentRequest struct {
	Name         string                  `json:"name"`
	Discipline   string                  `json:"discipline"`
	Format       models.TournamentFormat `json:"format"`
	InstructorID *string                 `json:"instructor_id"`
	TypeConfig   map[string]interface{}  `json:"type_config"`
	RewardPolicy map[string]interface{}  `json:"reward_policy"`
	StartTime    *time.Time              `json:"start_time"`
	EndTime      *time.Time              `json:"end_time"`
}

// CreateTournament validates the config documents up front so a tournament
// can never reach scheduling with a document the resolvers reject.
func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	var req createTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}
	if req.Format != models.FormatHeadToHead && req.Format != models.FormatIndividualRanking {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "format must be HEAD_TO_HEAD or INDIVIDUAL_RANKING"})
	}

	t := &models.Tournament{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Slug:         slug.Make(req.Name),
		Discipline:   normalizeDiscipline(req.Discipline),
		Format:       req.Format,
		Status:       models.StatusDraft,
		InstructorID: req.InstructorID,
	}
	if req.StartTime != nil {
		t.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		t.EndTime = *req.EndTime
	}
	if err := t.SetTypeConfigDoc(req.TypeConfig); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := t.SetRewardPolicyDoc(req.RewardPolicy); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if _, err := models.ResolveTypeConfig(t.TypeConfigRaw); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if _, err := models.ResolveRewardPolicy(t.RewardPolicyRaw); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	err := s.DB.Create(t).Error
	if isDuplicateKey(err) {
		// Slug collision with an earlier tournament of the same name.
		t.Slug = t.Slug + "-" + t.ID[:8]
		err = s.DB.Create(t).Error
	}
	if err != nil {
		zap.L().Error("create tournament failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create tournament"})
	}

	return c.Status(fiber.StatusCreated).JSON(t)
}

// UpdateStatus moves a tournament one step forward along the lifecycle. Any
// other requested transition is rejected with a conflict.
func (s *TournamentService) UpdateStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var req struct {
		Status models.TournamentStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var t models.Tournament
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", id).Error; err != nil {
			return err
		}
		next, ok := statusFlow[t.Status]
		if !ok || next != req.Status {
			return fiber.NewError(fiber.StatusConflict, "cannot move from "+string(t.Status)+" to "+string(req.Status))
		}
		if req.Status == models.StatusInstructorConfirmed && t.InstructorID == nil {
			return fiber.NewError(fiber.StatusConflict, "no instructor assigned")
		}
		t.Status = req.Status
		return tx.Model(&t).Update("status", req.Status).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrTournamentNotFound.Error()})
		}
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		zap.L().Error("status update failed", zap.String("tournament_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update status"})
	}
	return c.JSON(t)
}

// AssignInstructor sets the instructor and, when the tournament is out
// looking for one, confirms them in the same write.
func (s *TournamentService) AssignInstructor(c *fiber.Ctx) error {
	id := c.Params("id")
	var req struct {
		InstructorID string `json:"instructor_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.InstructorID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "instructor_id is required"})
	}

	var t models.Tournament
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", id).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{"instructor_id": req.InstructorID}
		t.InstructorID = &req.InstructorID
		if t.Status == models.StatusSeekingInstructor {
			updates["status"] = models.StatusInstructorConfirmed
			t.Status = models.StatusInstructorConfirmed
		}
		return tx.Model(&t).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrTournamentNotFound.Error()})
		}
		zap.L().Error("assign instructor failed", zap.String("tournament_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to assign instructor"})
	}
	return c.JSON(t)
}

func (s *TournamentService) GetTournament(c *fiber.Ctx) error {
	var t models.Tournament
	if err := s.DB.First(&t, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrTournamentNotFound.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(t)
}

func (s *TournamentService) ListTournaments(c *fiber.Ctx) error {
	q := s.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if discipline := c.Query("discipline"); discipline != "" {
		q = q.Where("discipline = ?", normalizeDiscipline(discipline))
	}
	var list []models.Tournament
	if err := q.Limit(200).Find(&list).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(list)
}

// Enroll records a pending enrollment for the calling user. Enrollment rows
// normally arrive through the sync worker; this endpoint exists for direct
// signups and is a no-op when the row is already mirrored.
func (s *TournamentService) Enroll(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	var t models.Tournament
	if err := s.DB.First(&t, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrTournamentNotFound.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	if t.Status != models.StatusReadyForEnrollment {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "tournament is not open for enrollment"})
	}

	var count int64
	if err := s.DB.Model(&models.Enrollment{}).Where("tournament_id = ?", tournamentID).Count(&count).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	e := &models.Enrollment{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		UserID:       userID,
		Status:       models.EnrollmentPending,
		SeedPosition: int(count) + 1,
		JoinedAt:     time.Now(),
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tournament_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(e).Error
	if err != nil {
		zap.L().Error("enroll failed", zap.String("tournament_id", tournamentID), zap.String("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to enroll"})
	}
	return c.Status(fiber.StatusCreated).JSON(e)
}

// ReviewEnrollment approves or rejects one enrollment.
func (s *TournamentService) ReviewEnrollment(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	userID := c.Params("user_id")
	var req struct {
		Status models.EnrollmentStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Status != models.EnrollmentApproved && req.Status != models.EnrollmentRejected {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status must be approved or rejected"})
	}

	res := s.DB.Model(&models.Enrollment{}).
		Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
		Update("status", req.Status)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "enrollment not found"})
	}
	return c.JSON(fiber.Map{"tournament_id": tournamentID, "user_id": userID, "status": req.Status})
}

func (s *TournamentService) ListEnrollments(c *fiber.Ctx) error {
	var list []models.Enrollment
	q := s.DB.Where("tournament_id = ?", c.Params("id")).Order("seed_position ASC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&list).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(list)
}

// approvedParticipantIDs is the enrollment-filtered, seed-ordered field the
// schedule builder and finalizer both work from.
func approvedParticipantIDs(tx *gorm.DB, tournamentID string) ([]string, error) {
	var rows []models.Enrollment
	if err := tx.Where("tournament_id = ? AND status = ?", tournamentID, models.EnrollmentApproved).
		Order("seed_position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	return ids, nil
}
