package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leasing-site-api/internal/config"
	"leasing-site-api/internal/model"
)

func testConfig() config.Shopify {
	return config.Shopify{
		ClientID:    "client-1",
		Secret:      "hush",
		Scopes:      []string{"read_products", "read_inventory"},
		RedirectURL: "https://api.example.com/api/auth/shopify/callback",
		APIVersion:  "2024-10",
	}
}

func TestValidShop(t *testing.T) {
	assert.True(t, ValidShop("demo-store.myshopify.com"))
	assert.False(t, ValidShop("demo-store.myshopify.com.evil.io"))
	assert.False(t, ValidShop("evil.io"))
	assert.False(t, ValidShop("-x.myshopify.com"))
	assert.False(t, ValidShop(""))
}

func TestAuthURL(t *testing.T) {
	c := New(testConfig(), nil)
	raw, err := c.AuthURL("demo-store.myshopify.com", "state-1")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "demo-store.myshopify.com", u.Host)
	assert.Equal(t, "/admin/oauth/authorize", u.Path)
	assert.Equal(t, "client-1", u.Query().Get("client_id"))
	assert.Equal(t, "read_products,read_inventory", u.Query().Get("scope"))
	assert.Equal(t, "state-1", u.Query().Get("state"))

	_, err = c.AuthURL("evil.io", "s")
	assert.ErrorIs(t, err, ErrInvalidShop)

	_, err = New(config.Shopify{}, nil).AuthURL("demo-store.myshopify.com", "s")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestVerifyHMAC(t *testing.T) {
	q := url.Values{
		"code":      {"0907a61c0c8d55e99db179b68161bc00"},
		"shop":      {"some-shop.myshopify.com"},
		"state":     {"0.6784241404160823"},
		"timestamp": {"1337178173"},
	}
	q.Set("hmac", Sign("code=0907a61c0c8d55e99db179b68161bc00&shop=some-shop.myshopify.com&state=0.6784241404160823&timestamp=1337178173", "hush"))

	c := New(testConfig(), nil)
	assert.NoError(t, c.VerifyCallback(q))

	q.Set("shop", "other-shop.myshopify.com")
	assert.ErrorIs(t, c.VerifyCallback(q), ErrBadSignature)

	q.Del("hmac")
	assert.False(t, VerifyHMAC(q, "hush"))
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/oauth/access_token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.Equal(t, "hush", r.PostForm.Get("client_secret"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"shpat_123","scope":"read_products"}`))
	}))
	defer srv.Close()

	c := New(testConfig(), srv.Client())
	c.base = func(string) string { return srv.URL }

	tok, scopes, err := c.Exchange(context.Background(), "demo-store.myshopify.com", "the-code")
	require.NoError(t, err)
	assert.Equal(t, "shpat_123", tok)
	assert.Equal(t, "read_products", scopes)
}

type memSink struct {
	products []model.ShopProduct
	count    int
}

func (m *memSink) UpsertShopProducts(_ context.Context, p []model.ShopProduct) error {
	m.products = append(m.products, p...)
	return nil
}

func (m *memSink) MarkSynced(_ context.Context, _ string, n int, _ time.Time) error {
	m.count = n
	return nil
}

func TestSyncFollowsPages(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat_123", r.Header.Get("X-Shopify-Access-Token"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page_info") == "" {
			assert.Equal(t, "/admin/api/2024-10/products.json", r.URL.Path)
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-10/products.json?limit=250&page_info=p2>; rel="next"`, srv.URL))
			_, _ = w.Write([]byte(`{"products":[
				{"id":1,"title":"Van","handle":"van","status":"active","variants":[{"price":"1299.99"}]},
				{"id":2,"title":"Broken","handle":"broken","status":"active","variants":[{"price":"n/a"}]}]}`))
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/x?page_info=p1>; rel="previous"`, srv.URL))
		_, _ = w.Write([]byte(`{"products":[{"id":3,"title":"Truck","handle":"truck","status":"draft","variants":[]}]}`))
	}))
	defer srv.Close()

	c := New(testConfig(), srv.Client())
	c.base = func(string) string { return srv.URL }

	sink := &memSink{}
	ds := &model.DataSource{ID: "ds-1", ShopDomain: "demo-store.myshopify.com", AccessToken: "shpat_123"}
	res, err := c.Sync(context.Background(), ds, sink)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, res.Errors, 1)
	assert.Equal(t, 2, sink.count)
	require.Len(t, sink.products, 2)
	assert.True(t, decimal.RequireFromString("1299.99").Equal(sink.products[0].Price))
	assert.Equal(t, "3", sink.products[1].ExternalID)
	assert.True(t, sink.products[1].Price.IsZero())
}

func TestSyncUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":"[API] Invalid API key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(testConfig(), srv.Client())
	c.base = func(string) string { return srv.URL }
	_, err := c.Sync(context.Background(), &model.DataSource{ShopDomain: "x.myshopify.com"}, &memSink{})
	assert.ErrorContains(t, err, "status 401")
}

func TestNextLink(t *testing.T) {
	h := `<https://a/p?page_info=1>; rel="previous", <https://a/p?page_info=2>; rel="next"`
	assert.Equal(t, "https://a/p?page_info=2", nextLink(h))
	assert.Empty(t, nextLink(""))
}
