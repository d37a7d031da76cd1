// Package app builds the optional integrations shared by the server and the
// admin CLI from config.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"leasing-site-api/internal/ai"
	"leasing-site-api/internal/captcha"
	"leasing-site-api/internal/config"
	"leasing-site-api/internal/email"
	"leasing-site-api/internal/handler"
	"leasing-site-api/internal/seo"
	"leasing-site-api/internal/shopify"
	"leasing-site-api/internal/storage"
)

// Integrations holds the third-party clients. A nil field means the
// integration is not configured.
type Integrations struct {
	Captcha  *captcha.Verifier
	Mailer   *email.Client
	Storage  *storage.S3
	Shopify  *shopify.Client
	AI       *ai.Generator
	IndexNow *seo.IndexNow
}

// NewIntegrations never fails: a misconfigured integration is logged and left
// nil so the API still starts.
func NewIntegrations(ctx context.Context, cfg *config.Config, log *zap.Logger) Integrations {
	client := &http.Client{Timeout: 10 * time.Second}
	var in Integrations

	in.Captcha = captcha.New(cfg.Captcha.Secret, cfg.Captcha.VerifyURL, client)
	if !in.Captcha.Enabled() {
		log.Warn("captcha secret not set, verification disabled")
	}

	if m := email.New(cfg.Email, client); m.Enabled() {
		in.Mailer = m
	} else {
		log.Warn("email api key not set, mail disabled")
	}

	s3, err := storage.NewS3(ctx, cfg.Storage, log)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		log.Warn("object storage not configured, media uploads disabled")
	case err != nil:
		log.Error("object storage init failed", zap.Error(err))
	default:
		in.Storage = s3
		// only self-hosted endpoints get auto-created buckets
		if cfg.Storage.Endpoint != "" {
			if err := s3.EnsureBucket(ctx); err != nil {
				log.Warn("ensure bucket failed", zap.Error(err))
			}
		}
	}

	if sc := shopify.New(cfg.Shopify, client); sc.Enabled() {
		in.Shopify = sc
	} else {
		log.Warn("shopify app credentials not set, integration disabled")
	}

	gen, err := ai.New(ctx, cfg.AI.APIKey, cfg.AI.Model)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		log.Warn("ai api key not set, generation disabled")
	case err != nil:
		log.Error("ai client init failed", zap.Error(err))
	default:
		in.AI = gen
	}

	if cfg.SEO.IndexNowKey != "" {
		in.IndexNow = seo.NewIndexNow(cfg.SEO.IndexNowEndpoint, cfg.SEO.IndexNowKey, client)
	}
	return in
}

// Apply copies the configured clients into d. Nil pointers are skipped so the
// handler sees nil interfaces.
func (in Integrations) Apply(d *handler.Deps) {
	if in.Captcha != nil {
		d.Captcha = in.Captcha
	}
	if in.Mailer != nil {
		d.Mailer = in.Mailer
	}
	if in.Storage != nil {
		d.Storage = in.Storage
	}
	if in.Shopify != nil {
		d.Shopify = in.Shopify
	}
	if in.AI != nil {
		d.AI = in.AI
	}
	if in.IndexNow != nil {
		d.IndexNow = in.IndexNow
	}
}
