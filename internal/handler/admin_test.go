package handler

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leasing-site-api/internal/model"
)

func TestMediaPresignListDelete(t *testing.T) {
	e := newEnv(t)
	admin := e.admin()

	rec := e.do(http.MethodPost, "/api/admin/media", map[string]any{
		"file_name": "Hero Image.PNG", "content_type": "image/png", "size_bytes": 2048, "alt_text": "A van",
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode[struct {
		Media     model.MediaAsset `json:"media"`
		UploadURL string           `json:"upload_url"`
		Method    string           `json:"method"`
	}](t, rec)
	assert.Equal(t, http.MethodPut, out.Method)
	assert.True(t, strings.HasPrefix(out.Media.StorageKey, "media/2030/03/"+out.Media.ID+"-"), out.Media.StorageKey)
	assert.Contains(t, out.UploadURL, out.Media.StorageKey)
	assert.Equal(t, "https://cdn.test/"+out.Media.StorageKey, out.Media.URL)
	assert.NotEmpty(t, out.Media.UploadedBy)

	rec = e.do(http.MethodGet, "/api/admin/media", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[map[string][]model.MediaAsset](t, rec)["media"]
	require.Len(t, items, 1)
	assert.Equal(t, out.Media.URL, items[0].URL)

	e.storage.deleteErr = errors.New("bucket gone")
	rec = e.do(http.MethodDelete, "/api/admin/media/"+out.Media.ID, nil, admin)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Len(t, e.st.media, 1, "row kept when the object delete fails")

	e.storage.deleteErr = nil
	rec = e.do(http.MethodDelete, "/api/admin/media/"+out.Media.ID, nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{out.Media.StorageKey}, e.storage.deleted)
	assert.Empty(t, e.st.media)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/admin/media/"+uuid.NewString(), nil, admin).Code)
}

func TestMediaValidation(t *testing.T) {
	e := newEnv(t)
	admin := e.admin()

	rec := e.do(http.MethodPost, "/api/admin/media", map[string]any{
		"file_name": "x.exe", "content_type": "application/x-msdownload", "size_bytes": 10,
	}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/api/admin/media", map[string]any{
		"file_name": "big.mp4", "content_type": "video/mp4", "size_bytes": 100 << 20,
	}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "size_bytes: file too large", errorBody(t, rec))
}

func TestMediaWithoutStorage(t *testing.T) {
	e := newEnv(t, func(d *Deps) { d.Storage = nil })
	admin := e.admin()
	rec := e.do(http.MethodPost, "/api/admin/media", map[string]any{
		"file_name": "a.png", "content_type": "image/png", "size_bytes": 10,
	}, admin)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "storage unavailable", errorBody(t, rec))
}

func TestAdminUsers(t *testing.T) {
	e := newEnv(t)
	adminTok, adminProfile := e.user("root@site.test", true)
	_, ann := e.user("ann@example.com", false)

	rec := e.do(http.MethodGet, "/api/admin/users?q=ann", nil, adminTok)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[map[string][]model.Profile](t, rec)["users"]
	require.Len(t, users, 1)
	assert.Equal(t, ann.ID, users[0].ID)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/admin/users?limit=0", nil, adminTok).Code)

	rec = e.do(http.MethodPatch, "/api/admin/users/"+ann.ID, map[string]any{"is_admin": true, "persona": "fleet-manager"}, adminTok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.Profile](t, rec)
	assert.True(t, updated.IsAdmin)
	assert.Equal(t, "fleet-manager", updated.Persona)

	rec = e.do(http.MethodPatch, "/api/admin/users/"+adminProfile.ID, map[string]any{"is_admin": false}, adminTok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cannot revoke your own admin role", errorBody(t, rec))

	rec = e.do(http.MethodPatch, "/api/admin/users/"+uuid.NewString(), map[string]any{"full_name": "Ghost"}, adminTok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminGateFollowsStoredFlag(t *testing.T) {
	e := newEnv(t)
	tok, p := e.user("former@site.test", true)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/admin/users", nil, tok).Code)

	// the token still says admin but the profile no longer does
	e.st.profiles[p.ID].IsAdmin = false
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/admin/users", nil, tok).Code)

	delete(e.st.profiles, p.ID)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/admin/users", nil, tok).Code)
}

func TestSitemapAndRobots(t *testing.T) {
	e := newEnv(t)
	e.st.pages["p1"] = &model.LandingPage{ID: "p1", Locale: "en", Slug: "fleet", Title: "Fleet", Published: true}
	e.st.pages["p2"] = &model.LandingPage{ID: "p2", Locale: "de", Slug: "fleet", Title: "Flotte", Published: true}
	e.st.posts["b1"] = &model.BlogPost{ID: "b1", Locale: "en", Slug: "hello", Title: "Hello", Published: true}

	rec := e.do(http.MethodGet, "/sitemap.xml", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")
	body := rec.Body.String()
	assert.Contains(t, body, "https://site.test/en/fleet")
	assert.Contains(t, body, "https://site.test/de/fleet")
	assert.Contains(t, body, "https://site.test/en/blog/hello")
	assert.Contains(t, body, `hreflang="x-default"`)

	rec = e.do(http.MethodGet, "/robots.txt", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /")
}

func TestSEOAuditAndSubmit(t *testing.T) {
	e := newEnv(t)
	admin := e.admin()
	e.st.pages["p1"] = &model.LandingPage{ID: "p1", Locale: "en", Slug: "a", Title: "Same", MetaTitle: "Same", MetaDescription: "ok"}
	e.st.pages["p2"] = &model.LandingPage{ID: "p2", Locale: "en", Slug: "b", Title: "Same", MetaTitle: "Same", MetaDescription: "ok"}

	rec := e.do(http.MethodGet, "/api/admin/seo/audit", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	audit := decode[struct {
		Checked int              `json:"checked"`
		Issues  []map[string]any `json:"issues"`
	}](t, rec)
	assert.Equal(t, 2, audit.Checked)
	assert.NotEmpty(t, audit.Issues)

	e.st.pages["p1"].Published = true
	rec = e.do(http.MethodPost, "/api/admin/seo/submit-sitemap", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	n := decode[map[string]int](t, rec)["submitted"]
	assert.Equal(t, len(e.index.urls), n)
	assert.Contains(t, e.index.urls, "https://site.test/en/a")
}

func TestSubmitSitemapDisabled(t *testing.T) {
	e := newEnv(t, func(d *Deps) { d.IndexNow = nil })
	rec := e.do(http.MethodPost, "/api/admin/seo/submit-sitemap", nil, e.admin())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "indexnow unavailable", errorBody(t, rec))
}
