package seo

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leasing-site-api/internal/model"
)

type fakeContent struct {
	pages []model.LandingPage
	posts []model.BlogPost
}

func (f fakeContent) ListPages(context.Context, bool) ([]model.LandingPage, error) { return f.pages, nil }

func (f fakeContent) ListPosts(context.Context, string, bool) ([]model.BlogPost, error) {
	return f.posts, nil
}

func TestStaticRoutes(t *testing.T) {
	routes, err := StaticRoutes()
	require.NoError(t, err)
	require.NotEmpty(t, routes)
	assert.Equal(t, "/", routes[0].Path)
	assert.InDelta(t, 1.0, routes[0].Priority, 0.001)
}

func TestSitemapGroupsLocales(t *testing.T) {
	mod := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	src := fakeContent{
		pages: []model.LandingPage{
			{Locale: "en", Slug: "fleet", UpdatedAt: mod},
			{Locale: "de", Slug: "fleet", UpdatedAt: mod.Add(time.Hour)},
		},
		posts: []model.BlogPost{{Locale: "fr", Slug: "ev-tax", UpdatedAt: mod}},
	}
	sm := NewSitemap("https://site.example/", []string{"en", "de"}, "en", src)

	urls, err := sm.URLs(context.Background())
	require.NoError(t, err)
	assert.Contains(t, urls, "https://site.example/en")
	assert.Contains(t, urls, "https://site.example/de/leasing")
	assert.Contains(t, urls, "https://site.example/de/fleet")
	assert.Contains(t, urls, "https://site.example/fr/blog/ev-tax")

	raw, err := sm.XML(context.Background())
	require.NoError(t, err)
	body := string(raw)
	assert.True(t, strings.HasPrefix(body, "<?xml"))
	assert.Contains(t, body, `xmlns:xhtml="http://www.w3.org/1999/xhtml"`)
	assert.Contains(t, body, `<xhtml:link rel="alternate" hreflang="de" href="https://site.example/de/fleet"></xhtml:link>`)
	assert.Contains(t, body, `hreflang="x-default" href="https://site.example/en/fleet"`)
	assert.Contains(t, body, "<lastmod>2026-05-01</lastmod>")

	// single-locale post has no alternates
	var set struct {
		URLs []struct {
			Loc   string `xml:"loc"`
			Links []struct {
				Href string `xml:"href,attr"`
			} `xml:"link"`
		} `xml:"url"`
	}
	require.NoError(t, xml.Unmarshal(raw, &set))
	for _, u := range set.URLs {
		if u.Loc == "https://site.example/fr/blog/ev-tax" {
			assert.Empty(t, u.Links)
		}
	}
}

func TestRobots(t *testing.T) {
	assert.Equal(t, "User-agent: *\nDisallow: /\n", Robots("https://site.example", false))
	prod := Robots("https://site.example/", true)
	assert.Contains(t, prod, "Sitemap: https://site.example/sitemap.xml")
	assert.Contains(t, prod, "Disallow: /api/")
}

func TestAudit(t *testing.T) {
	pages := []model.LandingPage{
		{ID: "p1", Locale: "en", Slug: "a", MetaTitle: "Van leasing", MetaDescription: "Good."},
		{ID: "p2", Locale: "en", Slug: "b", MetaTitle: "van leasing ", MetaDescription: strings.Repeat("x", 161)},
		{ID: "p3", Locale: "de", Slug: "a", MetaTitle: "Van leasing", MetaDescription: "Gut."},
		{ID: "p4", Locale: "en", Slug: "c", MetaTitle: strings.Repeat("t", 61)},
	}
	posts := []model.BlogPost{{ID: "b1", Locale: "en", Slug: "post", Title: "Van leasing", Excerpt: "ok"}}

	issues := Audit(pages, posts)
	problems := map[string][]string{}
	for _, i := range issues {
		problems[i.ID] = append(problems[i.ID], i.Field+":"+i.Problem)
	}

	assert.Empty(t, problems["p1"])
	assert.ElementsMatch(t, []string{"meta_description:too long", "meta_title:duplicate of a"}, problems["p2"])
	assert.Empty(t, problems["p3"], "duplicates are per locale")
	assert.ElementsMatch(t, []string{"meta_title:too long", "meta_description:missing"}, problems["p4"])
	assert.Empty(t, problems["b1"], "posts and pages are checked separately")
}

func TestIndexNowSubmit(t *testing.T) {
	var got indexNowRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewIndexNow(srv.URL, "key123", srv.Client())
	sent, err := n.Submit(context.Background(), "https://site.example", []string{"https://site.example/en"})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, "site.example", got.Host)
	assert.Equal(t, "https://site.example/key123.txt", got.KeyLocation)

	_, err = NewIndexNow(srv.URL, "", nil).Submit(context.Background(), "https://site.example", nil)
	assert.ErrorIs(t, err, ErrIndexNowDisabled)
}

func TestIndexNowRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewIndexNow(srv.URL, "k", srv.Client()).Submit(context.Background(), "https://site.example", []string{"x"})
	assert.ErrorContains(t, err, "status 403")
}
