package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tournament-rewards-system/models"
	"tournament-rewards-system/utils"
)

// ArchiveService exports the final standings of a tournament to R2 so other
// surfaces (profiles, public pages) can serve them from the CDN instead of
// hitting this service.
type ArchiveService struct {
	DB *gorm.DB
}

func NewArchiveService(db *gorm.DB) *ArchiveService {
	return &ArchiveService{DB: db}
}

type archiveRow struct {
	UserID string  `json:"user_id"`
	Rank   *int    `json:"rank,omitempty"`
	Points float64 `json:"points"`
}

type standingsArchive struct {
	TournamentID string                  `json:"tournament_id"`
	Name         string                  `json:"name"`
	Slug         string                  `json:"slug"`
	Discipline   string                  `json:"discipline"`
	Format       models.TournamentFormat `json:"format"`
	Status       models.TournamentStatus `json:"status"`
	ExportedAt   time.Time               `json:"exported_at"`
	Standings    []archiveRow            `json:"standings"`
}

// ExportStandings uploads the standings document for a finalized tournament
// and records the public URL on the tournament row. Re-exporting overwrites
// the same object key.
func (s *ArchiveService) ExportStandings(tournamentID string) (string, error) {
	var t models.Tournament
	if err := s.DB.First(&t, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrTournamentNotFound
		}
		return "", err
	}
	if t.Status != models.StatusCompleted && t.Status != models.StatusRewardsDistributed {
		return "", fmt.Errorf("standings can be archived only after finalization, status is %s", t.Status)
	}

	var rankings []models.Ranking
	if err := s.DB.Where("tournament_id = ?", tournamentID).
		Order("rank IS NULL, rank ASC, points DESC").Find(&rankings).Error; err != nil {
		return "", err
	}

	doc := standingsArchive{
		TournamentID: t.ID,
		Name:         t.Name,
		Slug:         t.Slug,
		Discipline:   t.Discipline,
		Format:       t.Format,
		Status:       t.Status,
		ExportedAt:   time.Now().UTC(),
		Standings:    make([]archiveRow, 0, len(rankings)),
	}
	for _, r := range rankings {
		doc.Standings = append(doc.Standings, archiveRow{
			UserID: r.UserID,
			Rank:   r.Rank,
			Points: r.Points,
		})
	}

	key := fmt.Sprintf("standings/%s.json", t.Slug)
	url, err := utils.UploadJSONToR2(context.Background(), key, doc)
	if err != nil {
		return "", err
	}

	if err := s.DB.Model(&t).Update("standings_archive_url", url).Error; err != nil {
		return "", err
	}

	zap.L().Info("standings archived",
		zap.String("tournament_id", tournamentID), zap.String("url", url))
	return url, nil
}

// Export is the HTTP entry for the standings archive.
func (s *ArchiveService) Export(c *fiber.Ctx) error {
	url, err := s.ExportStandings(c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrTournamentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"url": url})
}
