// Package shopify connects a store through OAuth and pulls its product catalog.
package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"leasing-site-api/internal/config"
)

var (
	ErrInvalidShop   = errors.New("invalid shop domain")
	ErrBadSignature  = errors.New("invalid hmac signature")
	ErrNotConfigured = errors.New("shopify not configured")
)

var shopPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// ValidShop accepts only canonical *.myshopify.com hosts so the redirect and
// token exchange can never be pointed at an arbitrary server.
func ValidShop(shop string) bool {
	return shopPattern.MatchString(shop)
}

type Client struct {
	cfg  config.Shopify
	http *http.Client
	// base maps a shop domain to its origin; tests point it at httptest.
	base func(shop string) string
}

func New(cfg config.Shopify, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:  cfg,
		http: httpClient,
		base: func(shop string) string { return "https://" + shop },
	}
}

func (c *Client) Enabled() bool { return c.cfg.ClientID != "" && c.cfg.Secret != "" }

func (c *Client) oauthConfig(shop string) *oauth2.Config {
	origin := c.base(shop)
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.Secret,
		RedirectURL:  c.cfg.RedirectURL,
		// the platform expects one comma separated scope value
		Scopes: []string{strings.Join(c.cfg.Scopes, ",")},
		Endpoint: oauth2.Endpoint{
			AuthURL:   origin + "/admin/oauth/authorize",
			TokenURL:  origin + "/admin/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthURL is where the admin's browser is sent to approve the app.
func (c *Client) AuthURL(shop, state string) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}
	if !ValidShop(shop) {
		return "", ErrInvalidShop
	}
	return c.oauthConfig(shop).AuthCodeURL(state), nil
}

// Exchange trades the callback code for an offline access token.
func (c *Client) Exchange(ctx context.Context, shop, code string) (token, scopes string, err error) {
	if !ValidShop(shop) {
		return "", "", ErrInvalidShop
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauthConfig(shop).Exchange(ctx, code)
	if err != nil {
		return "", "", fmt.Errorf("token exchange: %w", err)
	}
	if s, ok := tok.Extra("scope").(string); ok {
		scopes = s
	}
	return tok.AccessToken, scopes, nil
}

// VerifyCallback checks the hmac query parameter the platform signs callbacks with.
func (c *Client) VerifyCallback(q url.Values) error {
	if !VerifyHMAC(q, c.cfg.Secret) {
		return ErrBadSignature
	}
	return nil
}

// VerifyHMAC recomputes the signature over every other parameter, sorted by key.
func VerifyHMAC(q url.Values, secret string) bool {
	given := q.Get("hmac")
	if given == "" || secret == "" {
		return false
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strings.Join(q[k], ","))
	}
	return hmac.Equal([]byte(Sign(strings.Join(parts, "&"), secret)), []byte(strings.ToLower(given)))
}

func Sign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
