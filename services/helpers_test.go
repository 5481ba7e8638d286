package services

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tournament-rewards-system/models"
	"tournament-rewards-system/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func intPtr(n int) *int { return &n }

// newTournament persists a tournament in the given status with optional
// type_config and reward_policy documents.
func newTournament(t *testing.T, db *gorm.DB, status models.TournamentStatus, typeCfg, policy map[string]interface{}) *models.Tournament {
	t.Helper()
	tour := &models.Tournament{
		ID:         uuid.NewString(),
		Name:       "Spring Open",
		Slug:       "spring-open-" + uuid.NewString()[:8],
		Discipline: "Freestyle",
		Format:     models.FormatHeadToHead,
		Status:     status,
	}
	require.NoError(t, tour.SetTypeConfigDoc(typeCfg))
	require.NoError(t, tour.SetRewardPolicyDoc(policy))
	require.NoError(t, db.Create(tour).Error)
	return tour
}

// approveUsers creates approved enrollments, seeded in argument order.
func approveUsers(t *testing.T, db *gorm.DB, tournamentID string, userIDs ...string) {
	t.Helper()
	for i, id := range userIDs {
		e := models.Enrollment{
			ID:           uuid.NewString(),
			TournamentID: tournamentID,
			UserID:       id,
			Status:       models.EnrollmentApproved,
			SeedPosition: i + 1,
			JoinedAt:     time.Now(),
		}
		require.NoError(t, db.Create(&e).Error)
	}
}

// rankUser inserts a final ranking row, rank nil for off-podium finishers.
func rankUser(t *testing.T, db *gorm.DB, tournamentID, userID string, rank *int, points float64) {
	t.Helper()
	r := models.Ranking{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		UserID:       userID,
		Rank:         rank,
		Points:       points,
	}
	require.NoError(t, db.Create(&r).Error)
}

// loadUser fetches the balance mirror row.
func loadUser(t *testing.T, db *gorm.DB, userID string) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, "id = ?", userID).Error)
	return u
}

// testPolicyDoc is the reward policy most tests distribute under: default
// placement amounts plus two weighted skills converting at 10 XP per point.
func testPolicyDoc() map[string]interface{} {
	return map[string]interface{}{
		"placements": map[string]interface{}{
			"1": map[string]interface{}{"xp": 500, "credits": 200},
			"2": map[string]interface{}{"xp": 300, "credits": 120},
			"3": map[string]interface{}{"xp": 200, "credits": 80},
		},
		"participant": map[string]interface{}{"xp": 100, "credits": 40},
		"skill_weights": map[string]interface{}{
			"edge_control": 2.0,
			"timing":       1.0,
		},
		"conversion_rates": map[string]interface{}{"default": 10.0},
	}
}

func resolvedPolicy(t *testing.T, tour *models.Tournament) models.RewardPolicy {
	t.Helper()
	policy, err := models.ResolveRewardPolicy(tour.RewardPolicyRaw)
	require.NoError(t, err)
	return policy
}

func newRewardStack(t *testing.T) (*gorm.DB, *RewardService) {
	t.Helper()
	db := testutil.NewFullDB(t)
	return db, NewRewardService(db, NewBadgeService(db))
}

func newBadgeDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewTestDB(t, &models.Badge{})
}

// doJSON drives a fiber app in-process with a JSON body and returns the
// response, which the caller must close.
func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// decodeBody unmarshals a response body into out and closes it.
func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, out))
}

// errorMessage pulls the "error" field out of a failure response.
func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, resp, &body)
	return body["error"]
}
