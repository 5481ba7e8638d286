package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tournament-rewards-system/models"
)

// StreamUserRewardsSSE streams reward grants for the authenticated user as
// server-sent events. Each event carries one participation record; the
// stream polls on a created_at cursor so grants landing while the client is
// connected show up within a tick.
func (s *RewardService) StreamUserRewardsSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastMaxCreatedAt time.Time

		// Initialize cursor so only grants after connect are streamed
		var latest models.Participation
		if err := s.DB.
			Where("user_id = ?", userID).
			Order("created_at DESC").
			First(&latest).Error; err == nil {
			lastMaxCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Error("sse cursor init failed", zap.String("user_id", userID), zap.Error(err))
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var grants []models.Participation

				err := s.DB.
					Where("user_id = ?", userID).
					Where("created_at > ?", lastMaxCreatedAt).
					Order("created_at ASC").
					Find(&grants).Error

				if err != nil {
					zap.L().Error("sse poll failed", zap.String("user_id", userID), zap.Error(err))
					continue
				}

				if len(grants) == 0 {
					continue
				}

				lastMaxCreatedAt = grants[len(grants)-1].CreatedAt

				for _, g := range grants {
					payload, _ := json.Marshal(g)

					fmt.Fprintf(w,
						"event: reward\ndata: %s\n\n",
						payload,
					)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
