package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tournament-rewards-system/models"
)

// AssessedSkill is one instructor-assessed skill level.
type AssessedSkill struct {
	Skill      string    `json:"skill"`
	Level      float64   `json:"level"`
	AssessedAt time.Time `json:"assessed_at"`
}

// AssessmentFromService is the per-user assessment document the licensing
// service publishes.
type AssessmentFromService struct {
	UserID     string          `json:"user_id"`
	Discipline string          `json:"discipline"`
	Skills     []AssessedSkill `json:"skills"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// LicenseSyncClient pulls instructor assessments from the licensing service
// and folds them into the local skill profiles as baselines.
type LicenseSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewLicenseSyncClient(db *gorm.DB) *LicenseSyncClient {
	baseURL := os.Getenv("SYNC_SERVICE_URL")
	if baseURL == "" {
		zap.L().Fatal("SYNC_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("TOURNAMENT_SERVICE_TOKEN")
	if token == "" {
		zap.L().Fatal("TOURNAMENT_SERVICE_TOKEN environment variable is required for license sync")
	}

	return &LicenseSyncClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *LicenseSyncClient) GetChangedAssessments(ctx context.Context, since time.Time) ([]AssessmentFromService, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/assessments", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call sync service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sync service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Assessments []AssessmentFromService `json:"assessments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode sync service response: %w", err)
	}

	return response.Assessments, nil
}

// PollAssessments runs the sync loop. The window only advances after a batch
// lands, so a failed batch is retried on the next tick.
func PollAssessments(ctx context.Context, client *LicenseSyncClient, pollInterval time.Duration) {
	zap.L().Info("starting assessment polling")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("assessment polling stopped")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()

			assessments, err := client.GetChangedAssessments(ctx, lastSyncTime)
			if err != nil {
				zap.L().Error("assessment poll failed", zap.Error(err))
				continue
			}

			if len(assessments) == 0 {
				continue
			}

			failed := 0
			for _, a := range assessments {
				if err := client.mergeAssessment(a); err != nil {
					failed++
					zap.L().Warn("failed to merge assessment",
						zap.String("user_id", a.UserID), zap.Error(err))
				}
			}
			if failed > 0 {
				// Retry the same window next tick
				continue
			}

			lastSyncTime = logTime
			zap.L().Info("merged assessments", zap.Int("count", len(assessments)))
		}
	}
}

// mergeAssessment writes instructor baselines into the user's skill profile.
// The license row is locked for the whole read-merge-write span because the
// reward path mutates the same document; tournament accumulators are never
// touched here, only Baseline and AssessedAt move.
func (c *LicenseSyncClient) mergeAssessment(a AssessmentFromService) error {
	return c.DB.Transaction(func(tx *gorm.DB) error {
		var license models.SpecializationLicense
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&license, "user_id = ?", a.UserID).Error
		if err == gorm.ErrRecordNotFound {
			license = models.SpecializationLicense{
				ID:         uuid.NewString(),
				UserID:     a.UserID,
				Discipline: a.Discipline,
			}
			if err := tx.Create(&license).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		profile, err := license.Profile()
		if err != nil {
			return err
		}

		for _, skill := range a.Skills {
			entry := profile[skill.Skill]
			fresh := entry.TournamentCount == 0 && entry.LastUpdated.IsZero()

			assessedAt := skill.AssessedAt
			entry.Baseline = skill.Level
			entry.AssessedAt = &assessedAt
			if fresh {
				entry.CurrentLevel = skill.Level
			}
			entry.TotalDelta = entry.CurrentLevel - entry.Baseline
			profile[skill.Skill] = entry
		}

		if err := license.SetProfile(profile); err != nil {
			return err
		}
		return tx.Model(&license).Update("skill_profile", license.SkillProfile).Error
	})
}
