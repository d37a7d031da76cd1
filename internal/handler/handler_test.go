package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"leasing-site-api/internal/auth"
	"leasing-site-api/internal/i18n"
	"leasing-site-api/internal/middleware"
	"leasing-site-api/internal/model"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m,
		// started at init by the genai client's transitive imports
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

var fixedNow = time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC) // a Monday

type testEnv struct {
	t       *testing.T
	h       *Handler
	r       *gin.Engine
	st      *memStore
	tokens  *auth.Tokens
	mail    *fakeMailer
	storage *fakeStorage
	shop    *fakeShopify
	index   *fakeIndexNow
}

func newEnv(t *testing.T, tweak ...func(*Deps)) *testEnv {
	t.Helper()
	cat, err := i18n.Load([]string{"en", "de", "fr"}, "en")
	require.NoError(t, err)

	e := &testEnv{
		t:       t,
		st:      newMemStore(),
		tokens:  auth.NewTokens("handler-test-secret-0123", 15*time.Minute),
		mail:    &fakeMailer{},
		storage: &fakeStorage{},
		shop:    &fakeShopify{exchangeOK: true},
		index:   &fakeIndexNow{},
	}
	d := Deps{
		DB:           e.st,
		Auth:         e.st,
		Bookings:     e.st,
		Analytics:    e.st,
		Content:      e.st,
		Media:        e.st,
		Users:        e.st,
		Translations: e.st,
		DataSources:  e.st,
		Tokens:       e.tokens,
		Catalog:      cat,
		Mailer:       e.mail,
		Storage:      e.storage,
		Shopify:      e.shop,
		AI:           fakeAI{},
		IndexNow:     e.index,
		Options: Options{
			SiteURL:           "https://site.test",
			BookingTemplateID: 11,
			ContactTemplateID: 12,
			ContactRecipient:  "sales@site.test",
		},
	}
	for _, fn := range tweak {
		fn(&d)
	}
	e.h = New(d)
	e.h.now = func() time.Time { return fixedNow }
	e.r = NewRouter(e.h, RouterConfig{
		Limiter: middleware.NewRateLimiter(1000, 1000),
		Tokens:  e.tokens,
		Admins:  e.st,
	})
	t.Cleanup(e.h.Wait)
	return e
}

func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.r.ServeHTTP(rec, req)
	return rec
}

// user stores a profile and returns a bearer token for it.
func (e *testEnv) user(email string, admin bool) (string, *model.Profile) {
	e.t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(e.t, err)
	p := &model.Profile{ID: uuid.NewString(), Email: email, PasswordHash: hash, Locale: "en", IsAdmin: admin}
	e.st.profiles[p.ID] = p
	tok, err := e.tokens.Make(p.ID, p.Email, admin)
	require.NoError(e.t, err)
	return tok, p
}

func (e *testEnv) admin() string {
	tok, _ := e.user("admin-"+uuid.NewString()[:8]+"@site.test", true)
	return tok
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, rec)["error"]
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	e.st.pingErr = io.ErrUnexpectedEOF
	rec = e.do(http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodGet, "/api/nope", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not found", errorBody(t, rec))
}

func newJSONRequest(t *testing.T, method, path string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.r.ServeHTTP(rec, req)
	return rec
}
