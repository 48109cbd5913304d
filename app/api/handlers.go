package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-reader/app/database"
	"github.com/lysyi3m/rss-reader/app/feed"
	"github.com/lysyi3m/rss-reader/app/progress"
	"github.com/lysyi3m/rss-reader/app/registry"
)

const (
	eventBufferSize   = 256
	heartbeatInterval = 30 * time.Second
)

func NewHandler(reg RegistryInterface, events Subscriber, version string) *Handler {
	return &Handler{
		registry: reg,
		events:   events,
		version:  version,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.registry.Statistics(c.Request.Context())
	if err != nil {
		h.writeError(c, "get_statistics", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.registry.ListFeeds(c.Request.Context())
	if err != nil {
		h.writeError(c, "list_feeds", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) AddFeed(c *gin.Context) {
	var req AddFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	add := h.registry.AddFeed
	status := http.StatusCreated
	if req.Async {
		add = h.registry.AddFeedAsync
		status = http.StatusAccepted
	}

	f, err := add(c.Request.Context(), req.URL)
	if err != nil {
		h.writeError(c, "add_feed", err)
		return
	}

	c.JSON(status, f)
}

func (h *Handler) DeleteFeed(c *gin.Context) {
	if err := h.registry.DeleteFeed(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, "delete_feed", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) RefreshFeed(c *gin.Context) {
	id := c.Param("id")

	if c.Query("async") == "true" {
		f, err := h.registry.RefreshFeedAsync(c.Request.Context(), id)
		if err != nil {
			h.writeError(c, "refresh_feed", err)
			return
		}
		c.JSON(http.StatusAccepted, RefreshResponse{Feed: f})
		return
	}

	msg, err := h.registry.RefreshFeed(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "refresh_feed", err)
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{Message: msg})
}

func (h *Handler) GetProgress(c *gin.Context) {
	event, ok := h.registry.LastProgress(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No progress recorded for feed"})
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *Handler) ListArticles(c *gin.Context) {
	filter := database.ArticleFilter{FeedID: c.Query("feed_id")}

	var err error
	if filter.Limit, err = intQuery(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}
	if filter.Offset, err = intQuery(c, "offset"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset parameter"})
		return
	}

	articles, err := h.registry.ListArticles(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "list_articles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"total":    len(articles),
	})
}

func (h *Handler) GetArticle(c *gin.Context) {
	article, err := h.registry.GetArticleContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get_article", err)
		return
	}

	c.JSON(http.StatusOK, article)
}

func (h *Handler) UpdateArticle(c *gin.Context) {
	var req UpdateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	flags := database.ArticleFlags{IsRead: req.IsRead, IsStarred: req.IsStarred}
	if err := h.registry.UpdateArticleFlags(c.Request.Context(), c.Param("id"), flags); err != nil {
		h.writeError(c, "update_article", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// StreamEvents sends progress events as Server-Sent Events until the
// client disconnects. An optional feed_id query narrows the stream.
func (h *Handler) StreamEvents(c *gin.Context) {
	feedID := c.Query("feed_id")

	listener := progress.NewChannelListener(eventBufferSize)
	unsubscribe := h.events.Subscribe(listener)
	defer unsubscribe()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", gin.H{"feed_id": feedID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case event := <-listener.C:
			if feedID == "" || event.FeedID == feedID {
				c.SSEvent("progress", event)
			}
			return true
		}
	})
}

func (h *Handler) writeError(c *gin.Context, operation string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "operation", operation, "path", c.FullPath(), "error", err)
	} else {
		slog.Debug("Request rejected", "operation", operation, "path", c.FullPath(), "status", status, "error", err)
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, feed.ErrInvalidURL), errors.Is(err, registry.ErrNoFlags):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrFeedNotFound), errors.Is(err, database.ErrArticleNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrFeedAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, feed.ErrNetwork), errors.Is(err, feed.ErrParse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
