package handler

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"leasing-site-api/internal/ai"
	"leasing-site-api/internal/email"
	"leasing-site-api/internal/model"
	"leasing-site-api/internal/shopify"
	"leasing-site-api/internal/store"
)

// memStore implements every store interface the handlers use.
type memStore struct {
	mu        sync.Mutex
	pingErr   error
	insertErr error
	profiles  map[string]*model.Profile
	refresh   map[string]*store.RefreshToken
	types     map[string]*model.AppointmentType
	bookings  map[string]*model.Booking
	events    []model.AnalyticsEvent
	sessions  map[string]*model.AnalyticsSession
	pages     map[string]*model.LandingPage
	posts     map[string]*model.BlogPost
	media     map[string]*model.MediaAsset
	sources   map[string]*model.DataSource
	products  []model.ShopProduct
	overrides map[string]map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		profiles:  map[string]*model.Profile{},
		refresh:   map[string]*store.RefreshToken{},
		types:     map[string]*model.AppointmentType{},
		bookings:  map[string]*model.Booking{},
		sessions:  map[string]*model.AnalyticsSession{},
		pages:     map[string]*model.LandingPage{},
		posts:     map[string]*model.BlogPost{},
		media:     map[string]*model.MediaAsset{},
		sources:   map[string]*model.DataSource{},
		overrides: map[string]map[string]string{},
	}
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) CreateProfile(_ context.Context, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.profiles {
		if o.Email == p.Email {
			return store.ErrConflict
		}
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *memStore) ProfileByEmail(_ context.Context, email string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Email == strings.ToLower(email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ProfileByID(_ context.Context, id string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) IsAdmin(ctx context.Context, id string) (bool, error) {
	p, err := m.ProfileByID(ctx, id)
	if err != nil {
		return false, err
	}
	return p.IsAdmin, nil
}

func (m *memStore) ListProfiles(_ context.Context, q string, limit int) ([]model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Profile
	for _, p := range m.profiles {
		if q == "" || strings.Contains(p.Email, q) || strings.Contains(p.FullName, q) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) UpdateProfile(_ context.Context, id string, u store.ProfileUpdate) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.Persona != nil {
		p.Persona = *u.Persona
	}
	if u.IsAdmin != nil {
		p.IsAdmin = *u.IsAdmin
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) CreateRefreshToken(_ context.Context, userID, hash string, exp time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "rt-" + hash[:8]
	m.refresh[id] = &store.RefreshToken{ID: id, UserID: userID, TokenHash: hash, ExpiresAt: exp}
	return id, nil
}

func (m *memStore) GetRefreshTokenByHash(_ context.Context, hash string) (*store.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.refresh {
		if rt.TokenHash == hash {
			cp := *rt
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) RotateRefreshToken(_ context.Context, oldID, userID, newHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.refresh[oldID]
	if !ok || old.Revoked {
		return store.ErrConflict
	}
	id := "rt-" + newHash[:8]
	old.Revoked = true
	old.ReplacedBy = &id
	m.refresh[id] = &store.RefreshToken{ID: id, UserID: userID, TokenHash: newHash, ExpiresAt: exp}
	return nil
}

func (m *memStore) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.refresh {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}

func (m *memStore) activeRefresh(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rt := range m.refresh {
		if rt.UserID == userID && !rt.Revoked {
			n++
		}
	}
	return n
}

func (m *memStore) ListAppointmentTypes(_ context.Context, activeOnly bool) ([]model.AppointmentType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AppointmentType
	for _, t := range m.types {
		if !activeOnly || t.Active {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *memStore) GetAppointmentType(_ context.Context, id string) (*model.AppointmentType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.types[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) CreateAppointmentType(_ context.Context, t *model.AppointmentType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.types {
		if o.Slug == t.Slug {
			return store.ErrConflict
		}
	}
	cp := *t
	m.types[t.ID] = &cp
	return nil
}

func (m *memStore) UpdateAppointmentType(_ context.Context, t *model.AppointmentType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[t.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *t
	m.types[t.ID] = &cp
	return nil
}

func (m *memStore) DeactivateAppointmentType(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.types[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Active = false
	return nil
}

func overlaps(b *model.Booking, typeID string, start, end time.Time) bool {
	return b.AppointmentTypeID == typeID && b.Status != model.BookingCancelled &&
		b.StartTime.Before(end) && b.EndTime.After(start)
}

func (m *memStore) CreateBooking(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.bookings {
		if overlaps(o, b.AppointmentTypeID, b.StartTime, b.EndTime) {
			return store.ErrConflict
		}
	}
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memStore) HasOverlap(_ context.Context, typeID string, start, end time.Time, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.bookings {
		if o.ID != excludeID && overlaps(o, typeID, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) BookingsBetween(_ context.Context, typeID string, from, to time.Time) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, o := range m.bookings {
		if overlaps(o, typeID, from, to) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) ListBookings(_ context.Context, f store.BookingFilter) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.From != nil && b.StartTime.Before(*f.From) {
			continue
		}
		if f.To != nil && !b.StartTime.Before(*f.To) {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (m *memStore) GetBooking(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) UpdateBookingStatus(_ context.Context, id, from, to string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return nil, store.ErrNotFound
	}
	b.Status = to
	cp := *b
	return &cp, nil
}

func (m *memStore) InsertEvents(_ context.Context, events []model.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	seen := map[string]bool{}
	for _, e := range m.events {
		seen[e.ID] = true
	}
	for _, e := range events {
		if !seen[e.ID] {
			m.events = append(m.events, e)
			seen[e.ID] = true
		}
	}
	return nil
}

func (m *memStore) UpsertSession(_ context.Context, s *model.AnalyticsSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.sessions[s.ID]; ok {
		cur.EventCount += s.EventCount
		*s = *cur
		return nil
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) AnalyticsSummary(_ context.Context, from, to time.Time) (*model.AnalyticsSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := &model.AnalyticsSummary{From: from, To: to}
	for _, e := range m.events {
		if !e.OccurredAt.Before(from) && e.OccurredAt.Before(to) {
			sum.TotalEvents++
		}
	}
	return sum, nil
}

func (m *memStore) ListPages(_ context.Context, publishedOnly bool) ([]model.LandingPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LandingPage
	for _, p := range m.pages {
		if !publishedOnly || p.Published {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Locale+out[i].Slug < out[j].Locale+out[j].Slug })
	return out, nil
}

func (m *memStore) ListPosts(_ context.Context, locale string, publishedOnly bool) ([]model.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BlogPost
	for _, p := range m.posts {
		if (locale == "" || p.Locale == locale) && (!publishedOnly || p.Published) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (m *memStore) PublishedPage(_ context.Context, locale, slug string) (*model.LandingPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pages {
		if p.Locale == locale && p.Slug == slug && p.Published {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetPage(_ context.Context, id string) (*model.LandingPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) CreatePage(_ context.Context, p *model.LandingPage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.pages {
		if o.Locale == p.Locale && o.Slug == p.Slug {
			return store.ErrConflict
		}
	}
	cp := *p
	m.pages[p.ID] = &cp
	return nil
}

func (m *memStore) UpdatePage(_ context.Context, p *model.LandingPage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[p.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *p
	m.pages[p.ID] = &cp
	return nil
}

func (m *memStore) DeletePage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.pages, id)
	return nil
}

func (m *memStore) PublishedPost(_ context.Context, locale, slug string) (*model.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.Locale == locale && p.Slug == slug && p.Published {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetPost(_ context.Context, id string) (*model.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) CreatePost(_ context.Context, p *model.BlogPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.posts {
		if o.Locale == p.Locale && o.Slug == p.Slug {
			return store.ErrConflict
		}
	}
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *memStore) UpdatePost(_ context.Context, p *model.BlogPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[p.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *memStore) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memStore) CreateMedia(_ context.Context, a *model.MediaAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.media[a.ID] = &cp
	return nil
}

func (m *memStore) ListMedia(context.Context) ([]model.MediaAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.MediaAsset
	for _, a := range m.media {
		out = append(out, *a)
	}
	return out, nil
}

func (m *memStore) GetMedia(_ context.Context, id string) (*model.MediaAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.media[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) DeleteMedia(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.media[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.media, id)
	return nil
}

func (m *memStore) Overrides(_ context.Context, locale, ns string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for k, v := range m.overrides[locale+"/"+ns] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) SaveOverrides(_ context.Context, locale, ns string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.overrides[locale+"/"+ns]
	if cur == nil {
		cur = map[string]string{}
		m.overrides[locale+"/"+ns] = cur
	}
	for k, v := range values {
		if v == "" {
			delete(cur, k)
		} else {
			cur[k] = v
		}
	}
	return nil
}

func (m *memStore) OverrideCounts(context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for k, v := range m.overrides {
		out[k] = len(v)
	}
	return out, nil
}

func (m *memStore) UpsertDataSource(_ context.Context, d *model.DataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.sources {
		if o.Kind == d.Kind && o.ShopDomain == d.ShopDomain {
			d.ID = o.ID
		}
	}
	cp := *d
	m.sources[d.ID] = &cp
	return nil
}

func (m *memStore) ListDataSources(context.Context) ([]model.DataSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DataSource
	for _, d := range m.sources {
		out = append(out, *d)
	}
	return out, nil
}

func (m *memStore) GetDataSource(_ context.Context, id string) (*model.DataSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.sources[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) DeleteDataSource(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.sources, id)
	return nil
}

func (m *memStore) UpsertShopProducts(_ context.Context, products []model.ShopProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append(m.products, products...)
	return nil
}

func (m *memStore) ListShopProducts(_ context.Context, dataSourceID string) ([]model.ShopProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ShopProduct
	for _, p := range m.products {
		if p.DataSourceID == dataSourceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) MarkSynced(_ context.Context, id string, n int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.sources[id]
	if !ok {
		return store.ErrNotFound
	}
	d.ItemCount = n
	d.LastSyncedAt = &at
	return nil
}

type fakeCaptcha struct{ err error }

func (f fakeCaptcha) Verify(context.Context, string, string) error { return f.err }

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg email.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "<msg@test>", nil
}

func (f *fakeMailer) messages() []email.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]email.Message(nil), f.sent...)
}

type fakeStorage struct {
	deleted   []string
	deleteErr error
}

func (f *fakeStorage) PresignUpload(_ context.Context, key, _ string) (string, time.Time, error) {
	return "https://bucket.test/" + key + "?sig=1", time.Date(2030, 1, 1, 0, 15, 0, 0, time.UTC), nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) PublicURL(key string) string { return "https://cdn.test/" + key }

type fakeShopify struct {
	state      string
	exchangeOK bool
	sigErr     error
	syncRes    *model.SyncResult
}

func (f *fakeShopify) AuthURL(shop, state string) (string, error) {
	f.state = state
	return "https://" + shop + "/admin/oauth/authorize?state=" + url.QueryEscape(state), nil
}

func (f *fakeShopify) Exchange(context.Context, string, string) (string, string, error) {
	if !f.exchangeOK {
		return "", "", shopify.ErrBadSignature
	}
	return "shpat_test", "read_products", nil
}

func (f *fakeShopify) VerifyCallback(url.Values) error { return f.sigErr }

func (f *fakeShopify) Sync(ctx context.Context, ds *model.DataSource, sink shopify.ProductSink) (*model.SyncResult, error) {
	if err := sink.MarkSynced(ctx, ds.ID, f.syncRes.Success, f.syncRes.SyncedAt); err != nil {
		return nil, err
	}
	return f.syncRes, nil
}

type fakeAI struct{ err error }

func (f fakeAI) Generate(_ context.Context, req ai.Request) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "generated " + req.Kind, nil
}

type fakeIndexNow struct{ urls []string }

func (f *fakeIndexNow) Submit(_ context.Context, _ string, urls []string) (int, error) {
	f.urls = urls
	return len(urls), nil
}
