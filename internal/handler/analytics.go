package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"leasing-site-api/internal/logger"
	"leasing-site-api/internal/model"
	"leasing-site-api/internal/store"
)

const (
	maxAnalyticsBody = 256 << 10
	eventDedupeTTL   = 24 * time.Hour
)

// eventNamespace derives stable row ids from client event ids so a replayed
// event also collides in the database.
var eventNamespace = uuid.MustParse("8f1d7c52-93a4-4b0e-b5a1-6c3e0d2f7a10")

type eventRequest struct {
	EventID    string          `json:"event_id" binding:"omitempty,max=100"`
	EventType  string          `json:"event_type" binding:"required,max=64"`
	SessionID  string          `json:"session_id" binding:"omitempty,max=100"`
	VisitorID  string          `json:"visitor_id" binding:"omitempty,max=100"`
	Path       string          `json:"path" binding:"required,max=2048"`
	Referrer   string          `json:"referrer" binding:"omitempty,max=2048"`
	Locale     string          `json:"locale" binding:"omitempty,max=10"`
	Properties json.RawMessage `json:"properties"`
	OccurredAt *time.Time      `json:"occurred_at"`
}

type eventBatch struct {
	Events *[]eventRequest `json:"events"`
}

// decodeEvents accepts either one event object or {"events": [...]}.
func decodeEvents(raw []byte) ([]eventRequest, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}
	var batch eventBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, err
	}
	if batch.Events != nil {
		return *batch.Events, nil
	}
	var one eventRequest
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []eventRequest{one}, nil
}

func (h *Handler) TrackEvents(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAnalyticsBody)
	raw, err := c.GetRawData()
	if err != nil {
		abort(c, http.StatusBadRequest, "body too large")
		return
	}
	reqs, err := decodeEvents(raw)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}
	switch {
	case len(reqs) == 0:
		abort(c, http.StatusBadRequest, "no events")
		return
	case len(reqs) > store.AnalyticsBatchSize:
		abort(c, http.StatusBadRequest, fmt.Sprintf("at most %d events per request", store.AnalyticsBatchSize))
		return
	}
	for i := range reqs {
		if err := binding.Validator.ValidateStruct(&reqs[i]); err != nil {
			badRequest(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	now := h.now().UTC()
	events := make([]model.AnalyticsEvent, 0, len(reqs))
	dupes := 0
	var claimed []string
	for _, r := range reqs {
		id := uuid.NewString()
		if r.EventID != "" {
			key := "analytics:event:" + r.EventID
			fresh, err := h.Cache.SetNX(ctx, key, "1", eventDedupeTTL)
			switch {
			case err != nil:
				// the cache is an optimisation; the row id still dedupes
				logger.From(c).Warn("event dedupe unavailable", zap.Error(err))
			case !fresh:
				dupes++
				continue
			default:
				claimed = append(claimed, key)
			}
			id = uuid.NewSHA1(eventNamespace, []byte(r.EventID)).String()
		}
		occurred := now
		if r.OccurredAt != nil && !r.OccurredAt.IsZero() && r.OccurredAt.Before(now.Add(5*time.Minute)) {
			occurred = r.OccurredAt.UTC()
		}
		events = append(events, model.AnalyticsEvent{
			ID:         id,
			EventType:  strings.ToLower(r.EventType),
			SessionID:  r.SessionID,
			VisitorID:  r.VisitorID,
			Path:       r.Path,
			Referrer:   r.Referrer,
			Locale:     r.Locale,
			Properties: r.Properties,
			OccurredAt: occurred,
		})
	}

	if len(events) > 0 {
		if err := h.Analytics.InsertEvents(ctx, events); err != nil {
			h.releaseEventIDs(c, claimed)
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(events), "duplicates": dupes})
}

// releaseEventIDs frees dedupe keys of a failed insert so a retry is stored.
func (h *Handler) releaseEventIDs(c *gin.Context, keys []string) {
	for _, k := range keys {
		if _, _, err := h.Cache.Take(c.Request.Context(), k); err != nil {
			logger.From(c).Warn("release event id", zap.String("key", k), zap.Error(err))
		}
	}
}

type sessionRequest struct {
	SessionID   string `json:"session_id" binding:"required,max=100"`
	VisitorID   string `json:"visitor_id" binding:"omitempty,max=100"`
	LandingPath string `json:"landing_path" binding:"omitempty,max=2048"`
	Referrer    string `json:"referrer" binding:"omitempty,max=2048"`
	Locale      string `json:"locale" binding:"omitempty,max=10"`
	EventCount  int    `json:"event_count" binding:"min=0,max=10000"`
}

// TrackSession starts a session or, for a known id, records a heartbeat.
func (h *Handler) TrackSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ua := c.Request.UserAgent()
	if len(ua) > 512 {
		ua = ua[:512]
	}
	s := &model.AnalyticsSession{
		ID:          req.SessionID,
		VisitorID:   req.VisitorID,
		LandingPath: req.LandingPath,
		Referrer:    req.Referrer,
		UserAgent:   ua,
		Locale:      req.Locale,
		EventCount:  req.EventCount,
	}
	if err := h.Analytics.UpsertSession(c.Request.Context(), s); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) AnalyticsSummary(c *gin.Context) {
	to := h.now().UTC()
	from := to.AddDate(0, 0, -30)
	if v, err := parseTimeParam(c.Query("from")); err != nil {
		abort(c, http.StatusBadRequest, "invalid from")
		return
	} else if v != nil {
		from = *v
	}
	if v, err := parseTimeParam(c.Query("to")); err != nil {
		abort(c, http.StatusBadRequest, "invalid to")
		return
	} else if v != nil {
		to = *v
	}
	if !to.After(from) {
		abort(c, http.StatusBadRequest, "to must be after from")
		return
	}

	sum, err := h.Analytics.AnalyticsSummary(c.Request.Context(), from, to)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
