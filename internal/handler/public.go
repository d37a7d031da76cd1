package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leasing-site-api/internal/ai"
	"leasing-site-api/internal/email"
	"leasing-site-api/internal/logger"
)

type captchaRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyCaptcha lets the frontend check a token before a multi-step form.
func (h *Handler) VerifyCaptcha(c *gin.Context) {
	var req captchaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !h.checkCaptcha(c, req.Token) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type contactRequest struct {
	Name         string `json:"name" binding:"required,max=120"`
	Email        string `json:"email" binding:"required,email,max=254"`
	Company      string `json:"company" binding:"omitempty,max=120"`
	Phone        string `json:"phone" binding:"omitempty,max=40"`
	Message      string `json:"message" binding:"required,max=5000"`
	Locale       string `json:"locale" binding:"omitempty,max=10"`
	CaptchaToken string `json:"captcha_token"`
}

// Contact forwards the form to the sales inbox. Unlike booking mail this is
// sent inline: the form is useless if the message is lost.
func (h *Handler) Contact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !h.checkCaptcha(c, req.CaptchaToken) {
		return
	}
	if h.Mailer == nil {
		upstream(c, "email", email.ErrDisabled)
		return
	}
	from := strings.ToLower(strings.TrimSpace(req.Email))
	msg := email.Message{
		To:         []email.Address{{Email: h.Options.ContactRecipient}},
		TemplateID: h.Options.ContactTemplateID,
		ReplyTo:    &email.Address{Email: from, Name: req.Name},
		Params: map[string]any{
			"name":    strings.TrimSpace(req.Name),
			"email":   from,
			"company": req.Company,
			"phone":   req.Phone,
			"message": req.Message,
			"locale":  h.localeOr(req.Locale),
		},
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	id, err := h.Mailer.Send(ctx, msg)
	if err != nil {
		upstream(c, "email", err)
		return
	}
	logger.From(c).Info("contact form sent", zap.String("message_id", id))
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (h *Handler) AdminGenerate(c *gin.Context) {
	var req ai.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Locale == "" {
		req.Locale = h.localeOr("")
	}
	if _, err := ai.Prompt(req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	if h.AI == nil {
		upstream(c, "ai", ai.ErrNotConfigured)
		return
	}
	out, err := h.AI.Generate(c.Request.Context(), req)
	if err != nil {
		upstream(c, "ai", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": req.Kind, "locale": req.Locale, "text": out})
}
