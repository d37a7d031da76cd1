package handler

import (
	"context"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"leasing-site-api/internal/ai"
	"leasing-site-api/internal/auth"
	"leasing-site-api/internal/cache"
	"leasing-site-api/internal/email"
	"leasing-site-api/internal/i18n"
	"leasing-site-api/internal/model"
	"leasing-site-api/internal/seo"
	"leasing-site-api/internal/shopify"
	"leasing-site-api/internal/store"
)

type AuthStore interface {
	CreateProfile(ctx context.Context, p *model.Profile) error
	ProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	ProfileByID(ctx context.Context, id string) (*model.Profile, error)
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*store.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

type BookingStore interface {
	ListAppointmentTypes(ctx context.Context, activeOnly bool) ([]model.AppointmentType, error)
	GetAppointmentType(ctx context.Context, id string) (*model.AppointmentType, error)
	CreateAppointmentType(ctx context.Context, t *model.AppointmentType) error
	UpdateAppointmentType(ctx context.Context, t *model.AppointmentType) error
	DeactivateAppointmentType(ctx context.Context, id string) error
	CreateBooking(ctx context.Context, b *model.Booking) error
	HasOverlap(ctx context.Context, typeID string, start, end time.Time, excludeID string) (bool, error)
	BookingsBetween(ctx context.Context, typeID string, from, to time.Time) ([]model.Booking, error)
	ListBookings(ctx context.Context, f store.BookingFilter) ([]model.Booking, error)
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, from, to string) (*model.Booking, error)
}

type AnalyticsStore interface {
	InsertEvents(ctx context.Context, events []model.AnalyticsEvent) error
	UpsertSession(ctx context.Context, s *model.AnalyticsSession) error
	AnalyticsSummary(ctx context.Context, from, to time.Time) (*model.AnalyticsSummary, error)
}

type ContentStore interface {
	seo.ContentSource
	PublishedPage(ctx context.Context, locale, slug string) (*model.LandingPage, error)
	GetPage(ctx context.Context, id string) (*model.LandingPage, error)
	CreatePage(ctx context.Context, p *model.LandingPage) error
	UpdatePage(ctx context.Context, p *model.LandingPage) error
	DeletePage(ctx context.Context, id string) error
	PublishedPost(ctx context.Context, locale, slug string) (*model.BlogPost, error)
	GetPost(ctx context.Context, id string) (*model.BlogPost, error)
	CreatePost(ctx context.Context, p *model.BlogPost) error
	UpdatePost(ctx context.Context, p *model.BlogPost) error
	DeletePost(ctx context.Context, id string) error
}

type MediaStore interface {
	CreateMedia(ctx context.Context, m *model.MediaAsset) error
	ListMedia(ctx context.Context) ([]model.MediaAsset, error)
	GetMedia(ctx context.Context, id string) (*model.MediaAsset, error)
	DeleteMedia(ctx context.Context, id string) error
}

type UserStore interface {
	ListProfiles(ctx context.Context, q string, limit int) ([]model.Profile, error)
	UpdateProfile(ctx context.Context, id string, u store.ProfileUpdate) (*model.Profile, error)
}

type TranslationStore interface {
	Overrides(ctx context.Context, locale, namespace string) (map[string]string, error)
	SaveOverrides(ctx context.Context, locale, namespace string, values map[string]string) error
	OverrideCounts(ctx context.Context) (map[string]int, error)
}

type DataSourceStore interface {
	shopify.ProductSink
	UpsertDataSource(ctx context.Context, d *model.DataSource) error
	ListDataSources(ctx context.Context) ([]model.DataSource, error)
	GetDataSource(ctx context.Context, id string) (*model.DataSource, error)
	ListShopProducts(ctx context.Context, dataSourceID string) ([]model.ShopProduct, error)
	DeleteDataSource(ctx context.Context, id string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

type Mailer interface {
	Send(ctx context.Context, msg email.Message) (string, error)
}

type ObjectStorage interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

type ShopifyClient interface {
	AuthURL(shop, state string) (string, error)
	Exchange(ctx context.Context, shop, code string) (token, scopes string, err error)
	VerifyCallback(q url.Values) error
	Sync(ctx context.Context, ds *model.DataSource, sink shopify.ProductSink) (*model.SyncResult, error)
}

type ContentGenerator interface {
	Generate(ctx context.Context, req ai.Request) (string, error)
}

type SitemapSubmitter interface {
	Submit(ctx context.Context, siteURL string, urls []string) (int, error)
}

// Options carries the settings handlers read at request time.
type Options struct {
	SiteURL           string
	Production        bool
	RefreshTTL        time.Duration
	CookieDomain      string
	CookieSecure      bool
	BookingTemplateID int64
	ContactTemplateID int64
	ContactRecipient  string
}

// Deps wires a Handler. Optional integrations may be nil; their routes then
// answer 502.
type Deps struct {
	DB           Pinger
	Auth         AuthStore
	Bookings     BookingStore
	Analytics    AnalyticsStore
	Content      ContentStore
	Media        MediaStore
	Users        UserStore
	Translations TranslationStore
	DataSources  DataSourceStore

	Tokens   *auth.Tokens
	Catalog  *i18n.Catalog
	Cache    cache.Cache
	Captcha  CaptchaVerifier
	Mailer   Mailer
	Storage  ObjectStorage
	Shopify  ShopifyClient
	AI       ContentGenerator
	IndexNow SitemapSubmitter
	Log      *zap.Logger
	Options  Options
}

type Handler struct {
	Deps
	sitemap *seo.Sitemap
	now     func() time.Time
	bg      sync.WaitGroup
}

func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Cache == nil {
		d.Cache = cache.NewMemory()
	}
	if d.Options.RefreshTTL <= 0 {
		d.Options.RefreshTTL = 7 * 24 * time.Hour
	}
	h := &Handler{Deps: d, now: time.Now}
	if d.Content != nil && d.Catalog != nil {
		h.sitemap = seo.NewSitemap(d.Options.SiteURL, d.Catalog.Locales(), d.Catalog.Default(), d.Content)
	}
	return h
}

// background runs fire-and-forget work (mail) detached from the request.
func (h *Handler) background(fn func(ctx context.Context)) {
	h.bg.Add(1)
	go func() {
		defer h.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until background work started by handlers has finished.
func (h *Handler) Wait() { h.bg.Wait() }
