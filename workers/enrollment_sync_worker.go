// workers/enrollment_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tournament-rewards-system/models"
)

// MirroredEnrollment matches the JSON the enrollment service returns for one
// signup. Status carries the remote moderation verdict.
type MirroredEnrollment struct {
	ID           string    `json:"id"`
	TournamentID string    `json:"tournament_id"`
	UserID       string    `json:"user_id"`
	Status       string    `json:"status"`
	SeedPosition int       `json:"seed_position"`
	JoinedAt     time.Time `json:"joined_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GetEnrollmentChangesResponse is the top-level structure of the enrollment
// service response.
type GetEnrollmentChangesResponse struct {
	Enrollments []MirroredEnrollment `json:"enrollments"`
}

type EnrollmentSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string // e.g., "/api/v1/public/enrollments"
	serviceToken string
	httpClient   *http.Client
}

func NewEnrollmentSyncWorker(db *gorm.DB, syncServiceBaseURL, endpointPath, serviceToken string) *EnrollmentSyncWorker {
	return &EnrollmentSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      syncServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *EnrollmentSyncWorker) Start(ctx context.Context) {
	zap.L().Info("starting enrollment sync worker")
	go w.run(ctx)
}

func (w *EnrollmentSyncWorker) run(ctx context.Context) {
	// Initial sync backfills from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		zap.L().Warn("initial enrollment sync failed", zap.Error(err))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				zap.L().Error("enrollment sync batch failed", zap.Error(err))
			}
		case <-ctx.Done():
			zap.L().Info("enrollment sync worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt in the local mirror.
func (w *EnrollmentSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM enrollments").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches changed signups and upserts them into the local
// enrollments table. The conflict target is (tournament_id, user_id), so a
// row created locally through the enroll endpoint is adopted in place and
// keeps its ID. A stub user row is written first so the profile and reward
// paths always find an account to attach to, even when the identity sync
// has not caught up yet.
func (w *EnrollmentSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid sync service URL '%s': %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		// Always drain & close to prevent connection leaks
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sync service non-200 response: %d: %s", resp.StatusCode, string(body))
	}

	var response GetEnrollmentChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode sync service response: %w", err)
	}

	if len(response.Enrollments) == 0 {
		return nil
	}

	var upsertCount, skipCount, errorCount int
	for _, remote := range response.Enrollments {
		status := models.EnrollmentStatus(remote.Status)
		switch status {
		case models.EnrollmentPending, models.EnrollmentApproved, models.EnrollmentRejected:
		default:
			skipCount++
			zap.L().Warn("skipping enrollment with unknown status",
				zap.String("tournament_id", remote.TournamentID),
				zap.String("user_id", remote.UserID),
				zap.String("status", remote.Status))
			continue
		}

		stub := models.User{ID: remote.UserID}
		if err := w.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&stub).Error; err != nil {
			errorCount++
			zap.L().Warn("failed to ensure user stub",
				zap.String("user_id", remote.UserID), zap.Error(err))
			continue
		}

		id := remote.ID
		if id == "" {
			id = uuid.NewString()
		}
		local := models.Enrollment{
			ID:           id,
			TournamentID: remote.TournamentID,
			UserID:       remote.UserID,
			Status:       status,
			SeedPosition: remote.SeedPosition,
			JoinedAt:     remote.JoinedAt,
		}
		local.UpdatedAt = remote.UpdatedAt

		if err := w.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tournament_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "seed_position", "joined_at", "updated_at"}),
		}).Create(&local).Error; err != nil {
			errorCount++
			zap.L().Warn("failed to upsert enrollment mirror",
				zap.String("tournament_id", remote.TournamentID),
				zap.String("user_id", remote.UserID), zap.Error(err))
		} else {
			upsertCount++
		}
	}

	zap.L().Info("enrollment sync batch done",
		zap.Int("received", len(response.Enrollments)),
		zap.Int("upserted", upsertCount),
		zap.Int("skipped", skipCount),
		zap.Int("errors", errorCount))

	return nil
}
