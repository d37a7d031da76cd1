package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"leasing-site-api/internal/captcha"
	"leasing-site-api/internal/email"
	"leasing-site-api/internal/logger"
	"leasing-site-api/internal/model"
	"leasing-site-api/internal/store"
)

const (
	businessOpen  = 9
	businessClose = 17
)

type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// freeSlots steps through [open, closing) in slot-sized increments and keeps
// slots that start after now and do not intersect a busy booking.
func freeSlots(open, closing time.Time, d time.Duration, busy []model.Booking, now time.Time) []Slot {
	slots := []Slot{}
	if d <= 0 {
		return slots
	}
	for s := open; !s.Add(d).After(closing); s = s.Add(d) {
		e := s.Add(d)
		if s.Before(now) {
			continue
		}
		taken := false
		for _, b := range busy {
			if b.StartTime.Before(e) && b.EndTime.After(s) {
				taken = true
				break
			}
		}
		if !taken {
			slots = append(slots, Slot{Start: s, End: e})
		}
	}
	return slots
}

func (h *Handler) ListAppointmentTypes(c *gin.Context) {
	types, err := h.Bookings.ListAppointmentTypes(c.Request.Context(), true)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointment_types": orEmpty(types)})
}

// activeType loads a bookable type; inactive types look like missing ones.
func (h *Handler) activeType(c *gin.Context, id string) (*model.AppointmentType, bool) {
	if _, err := uuid.Parse(id); err != nil {
		abort(c, http.StatusNotFound, "appointment type not found")
		return nil, false
	}
	t, err := h.Bookings.GetAppointmentType(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !t.Active) {
		abort(c, http.StatusNotFound, "appointment type not found")
		return nil, false
	}
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return t, true
}

func (h *Handler) Availability(c *gin.Context) {
	typeID := c.Query("appointment_type_id")
	if typeID == "" {
		abort(c, http.StatusBadRequest, "appointment_type_id is required")
		return
	}
	tz := c.DefaultQuery("tz", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid tz")
		return
	}
	day, err := time.ParseInLocation(time.DateOnly, c.Query("date"), loc)
	if err != nil {
		abort(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	t, ok := h.activeType(c, typeID)
	if !ok {
		return
	}

	open := time.Date(day.Year(), day.Month(), day.Day(), businessOpen, 0, 0, 0, loc)
	closing := time.Date(day.Year(), day.Month(), day.Day(), businessClose, 0, 0, 0, loc)
	busy, err := h.Bookings.BookingsBetween(c.Request.Context(), t.ID, open, closing)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"appointment_type_id": t.ID,
		"date":                day.Format(time.DateOnly),
		"tz":                  loc.String(),
		"duration_minutes":    t.DurationMinutes,
		"slots":               freeSlots(open, closing, t.Duration(), busy, h.now()),
	})
}

type bookingRequest struct {
	AppointmentTypeID string    `json:"appointment_type_id" binding:"required,uuid"`
	StartTime         time.Time `json:"start_time" binding:"required"`
	Name              string    `json:"name" binding:"required,max=120"`
	Email             string    `json:"email" binding:"required,email,max=254"`
	Phone             string    `json:"phone" binding:"omitempty,max=40"`
	Company           string    `json:"company" binding:"omitempty,max=120"`
	Notes             string    `json:"notes" binding:"omitempty,max=2000"`
	Locale            string    `json:"locale" binding:"omitempty,max=10"`
	TZ                string    `json:"tz" binding:"omitempty,max=64"`
	CaptchaToken      string    `json:"captcha_token"`
}

// withinBusinessHours reports whether [start, end) fits the opening hours of
// start's day in loc.
func withinBusinessHours(start, end time.Time, loc *time.Location) bool {
	local := start.In(loc)
	y, m, d := local.Date()
	open := time.Date(y, m, d, businessOpen, 0, 0, 0, loc)
	closing := time.Date(y, m, d, businessClose, 0, 0, 0, loc)
	return !local.Before(open) && !end.After(closing)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tz := req.TZ
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid tz")
		return
	}
	if !h.checkCaptcha(c, req.CaptchaToken) {
		return
	}

	t, ok := h.activeType(c, req.AppointmentTypeID)
	if !ok {
		return
	}

	start := req.StartTime.UTC()
	if start.Before(h.now()) {
		abort(c, http.StatusBadRequest, "cannot book in the past")
		return
	}
	end := start.Add(t.Duration())
	if !withinBusinessHours(start, end, loc) {
		abort(c, http.StatusBadRequest, "outside business hours")
		return
	}

	ctx := c.Request.Context()
	// app-level overlap check
	if dup, err := h.Bookings.HasOverlap(ctx, t.ID, start, end, ""); err != nil {
		fail(c, err)
		return
	} else if dup {
		abort(c, http.StatusConflict, "time conflicts with existing booking")
		return
	}

	b := &model.Booking{
		ID:                uuid.NewString(),
		AppointmentTypeID: t.ID,
		Name:              strings.TrimSpace(req.Name),
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:             req.Phone,
		Company:           req.Company,
		Notes:             req.Notes,
		Locale:            h.localeOr(req.Locale),
		StartTime:         start,
		EndTime:           end,
		Status:            model.BookingPending,
	}
	if err := h.Bookings.CreateBooking(ctx, b); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// db exclusion constraint caught a race
			abort(c, http.StatusConflict, "time conflicts with existing booking")
			return
		}
		fail(c, err)
		return
	}

	h.sendBookingConfirmation(logger.From(c), b, t)
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) sendBookingConfirmation(log *zap.Logger, b *model.Booking, t *model.AppointmentType) {
	if h.Mailer == nil {
		return
	}
	msg := email.Message{
		To:         []email.Address{{Email: b.Email, Name: b.Name}},
		TemplateID: h.Options.BookingTemplateID,
		Params: map[string]any{
			"name":             b.Name,
			"appointment_type": t.Name,
			"start_time":       b.StartTime.Format(time.RFC3339),
			"duration_minutes": t.DurationMinutes,
			"locale":           b.Locale,
		},
	}
	h.background(func(ctx context.Context) {
		if _, err := h.Mailer.Send(ctx, msg); err != nil {
			log.Warn("booking confirmation not sent", zap.String("booking_id", b.ID), zap.Error(err))
		}
	})
}

// checkCaptcha answers 400 for a rejected token and 502 when the provider fails.
func (h *Handler) checkCaptcha(c *gin.Context, token string) bool {
	if h.Captcha == nil {
		return true
	}
	err := h.Captcha.Verify(c.Request.Context(), token, c.ClientIP())
	switch {
	case err == nil:
		return true
	case errors.Is(err, captcha.ErrRejected), errors.Is(err, captcha.ErrMissingToken):
		abort(c, http.StatusBadRequest, "captcha verification failed")
	default:
		upstream(c, "captcha", err)
	}
	return false
}

func (h *Handler) localeOr(locale string) string {
	if h.Catalog == nil {
		if locale == "" {
			return "en"
		}
		return locale
	}
	if h.Catalog.Supported(locale) {
		return locale
	}
	return h.Catalog.Default()
}

// parseTimeParam accepts RFC3339 or a bare date.
func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *Handler) AdminListBookings(c *gin.Context) {
	f := store.BookingFilter{Status: c.Query("status")}
	switch f.Status {
	case "", model.BookingPending, model.BookingConfirmed, model.BookingCancelled:
	default:
		abort(c, http.StatusBadRequest, "invalid status")
		return
	}
	var err error
	if f.From, err = parseTimeParam(c.Query("from")); err != nil {
		abort(c, http.StatusBadRequest, "invalid from")
		return
	}
	if f.To, err = parseTimeParam(c.Query("to")); err != nil {
		abort(c, http.StatusBadRequest, "invalid to")
		return
	}

	bookings, err := h.Bookings.ListBookings(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": orEmpty(bookings)})
}

type bookingStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed cancelled"`
}

func (h *Handler) AdminUpdateBooking(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req bookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.transition(c, id, req.Status)
}

// AdminCancelBooking is a soft delete; cancelling twice is a no-op.
func (h *Handler) AdminCancelBooking(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	h.transition(c, id, model.BookingCancelled)
}

func (h *Handler) transition(c *gin.Context, id, to string) {
	ctx := c.Request.Context()
	b, err := h.Bookings.GetBooking(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	if b.Status == to {
		c.JSON(http.StatusOK, b)
		return
	}
	if !model.CanTransition(b.Status, to) {
		abort(c, http.StatusBadRequest, "cannot move booking from "+b.Status+" to "+to)
		return
	}
	updated, err := h.Bookings.UpdateBookingStatus(ctx, id, b.Status, to)
	if errors.Is(err, store.ErrNotFound) {
		abort(c, http.StatusConflict, "booking changed, reload and retry")
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type appointmentTypeRequest struct {
	Slug            string `json:"slug" binding:"required,max=60"`
	Name            string `json:"name" binding:"required,max=120"`
	Description     string `json:"description" binding:"max=2000"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=5,max=480"`
	Active          *bool  `json:"active"`
	SortOrder       int    `json:"sort_order"`
}

func (r appointmentTypeRequest) toModel(id string) *model.AppointmentType {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &model.AppointmentType{
		ID:              id,
		Slug:            strings.ToLower(strings.TrimSpace(r.Slug)),
		Name:            r.Name,
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		Active:          active,
		SortOrder:       r.SortOrder,
	}
}

func (h *Handler) AdminListAppointmentTypes(c *gin.Context) {
	types, err := h.Bookings.ListAppointmentTypes(c.Request.Context(), false)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointment_types": orEmpty(types)})
}

func (h *Handler) AdminCreateAppointmentType(c *gin.Context) {
	var req appointmentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t := req.toModel(uuid.NewString())
	if err := h.Bookings.CreateAppointmentType(c.Request.Context(), t); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) AdminUpdateAppointmentType(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req appointmentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t := req.toModel(id)
	if err := h.Bookings.UpdateAppointmentType(c.Request.Context(), t); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) AdminDeleteAppointmentType(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Bookings.DeactivateAppointmentType(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
