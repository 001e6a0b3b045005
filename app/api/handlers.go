package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-sync/app/cfg"
	"github.com/lysyi3m/rss-sync/app/database"
	"github.com/lysyi3m/rss-sync/app/delta"
	"github.com/lysyi3m/rss-sync/app/model"
)

func NewHandler(puller PullService, pusher PushService, scheduler StatsProvider,
	syncStates database.SyncStateRepository, content database.ContentRepository) *Handler {
	return &Handler{
		puller:     puller,
		pusher:     pusher,
		scheduler:  scheduler,
		syncStates: syncStates,
		content:    content,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   cfg.GetVersion(),
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := h.scheduler.GetStats()

	scheduler := gin.H{
		"ticks":             stats.Ticks,
		"feeds_selected":    stats.FeedsSelected,
		"feeds_synced":      stats.FeedsSynced,
		"feeds_failed":      stats.FeedsFailed,
		"total_errors":      stats.TotalErrors,
		"queue_size":        stats.QueueSize,
		"average_sync_time": stats.AverageSyncTime.String(),
	}
	if stats.LastTickAt != nil {
		scheduler["last_tick_at"] = stats.LastTickAt.Format(time.RFC3339)
	}

	response := gin.H{"scheduler": scheduler}

	if counts, err := h.syncStates.GetCountByState(ctx); err == nil {
		response["sync_states"] = counts
	} else {
		slog.Error("Database error", "operation", "count_sync_states", "error", err)
	}

	if feedCount, err := h.content.GetFeedCount(ctx); err == nil {
		response["feeds"] = feedCount
	} else {
		slog.Error("Database error", "operation", "count_feeds", "error", err)
	}

	if itemCount, err := h.content.GetItemCount(ctx); err == nil {
		response["items"] = itemCount
	} else {
		slog.Error("Database error", "operation", "count_items", "error", err)
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) Pull(c *gin.Context) {
	userID := c.GetString(userIDKey)

	var lastPulledAt int64
	if raw := c.Query("lastPulledAt"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lastPulledAt must be a non-negative integer"})
			return
		}
		lastPulledAt = parsed
	}

	resp, err := h.puller.Pull(c.Request.Context(), userID, lastPulledAt)
	if err != nil {
		slog.Error("Pull failed", "user", userID, "last_pulled_at", lastPulledAt, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Pull failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Push(c *gin.Context) {
	userID := c.GetString(userIDKey)

	var changes model.ChangesObject
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid changes object"})
		return
	}

	if err := h.pusher.Push(c.Request.Context(), userID, changes); err != nil {
		if errors.Is(err, delta.ErrInvalidChange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("Push failed", "user", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Push failed"})
		return
	}

	c.JSON(http.StatusOK, PushResponse{OK: true})
}
