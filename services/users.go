// services/users.go
package services

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/unidecode"
	"gorm.io/gorm"

	"tournament-rewards-system/models"
)

// UserService is the read surface for everything a user accumulates here:
// balances, badges, reward history and the skill profile.
type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// SearchUsers searches the local user mirror by display name.
func (s *UserService) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	var users []models.User
	db := s.DB.Model(&models.User{}).Limit(limit).Order("display_name ASC")

	if query != "" {
		// Match against the ASCII-folded column so "Jose" finds "José"
		searchTerm := "%" + strings.ToLower(unidecode.Unidecode(strings.TrimSpace(query))) + "%"
		db = db.Where("search_name LIKE ?", searchTerm)
	}

	if err := db.Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "search failed", "details": err.Error()})
	}
	return c.JSON(users)
}

type userProfile struct {
	User           models.User                  `json:"user"`
	Badges         []models.Badge               `json:"badges"`
	Participations []models.Participation       `json:"participations"`
	Discipline     string                       `json:"discipline,omitempty"`
	SkillProfile   map[string]models.SkillEntry `json:"skill_profile,omitempty"`
}

func (s *UserService) buildProfile(userID string) (*userProfile, error) {
	p := &userProfile{}

	if err := s.DB.First(&p.User, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := s.DB.Where("user_id = ?", userID).
		Order("awarded_at DESC").Find(&p.Badges).Error; err != nil {
		return nil, err
	}

	if err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(50).Find(&p.Participations).Error; err != nil {
		return nil, err
	}

	var license models.SpecializationLicense
	err := s.DB.First(&license, "user_id = ?", userID).Error
	switch {
	case err == nil:
		profile, perr := license.Profile()
		if perr != nil {
			return nil, perr
		}
		p.Discipline = license.Discipline
		p.SkillProfile = profile
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No license yet; profile section stays empty
	default:
		return nil, err
	}

	return p, nil
}

// GetProfile returns the aggregate view for one user.
func (s *UserService) GetProfile(c *fiber.Ctx) error {
	p, err := s.buildProfile(c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(p)
}

// Me returns the aggregate view for the authenticated user.
func (s *UserService) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}
	p, err := s.buildProfile(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(p)
}
