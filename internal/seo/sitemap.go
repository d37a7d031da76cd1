// Package seo builds the sitemap, audits page metadata and pings IndexNow.
package seo

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/xml"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"leasing-site-api/internal/model"
)

//go:embed routes.yaml
var routesYAML []byte

type Route struct {
	Path       string  `yaml:"path"`
	ChangeFreq string  `yaml:"changefreq"`
	Priority   float64 `yaml:"priority"`
}

func StaticRoutes() ([]Route, error) {
	var routes []Route
	if err := yaml.Unmarshal(routesYAML, &routes); err != nil {
		return nil, fmt.Errorf("routes.yaml: %w", err)
	}
	return routes, nil
}

// Entry is one logical page, available in one or more locales.
type Entry struct {
	Path       string
	Locales    []string
	LastMod    time.Time
	ChangeFreq string
	Priority   float64
}

// ContentSource is the published content that ends up in the sitemap.
type ContentSource interface {
	ListPages(ctx context.Context, publishedOnly bool) ([]model.LandingPage, error)
	ListPosts(ctx context.Context, locale string, publishedOnly bool) ([]model.BlogPost, error)
}

type Sitemap struct {
	siteURL string
	locales []string
	def     string
	src     ContentSource
}

func NewSitemap(siteURL string, locales []string, def string, src ContentSource) *Sitemap {
	return &Sitemap{siteURL: strings.TrimRight(siteURL, "/"), locales: locales, def: def, src: src}
}

// Entries gathers static routes plus published pages and posts. Rows sharing
// a slug across locales are one entry so they link to each other.
func (s *Sitemap) Entries(ctx context.Context) ([]Entry, error) {
	routes, err := StaticRoutes()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, r := range routes {
		out = append(out, Entry{Path: r.Path, Locales: s.locales, ChangeFreq: r.ChangeFreq, Priority: r.Priority})
	}

	pages, err := s.src.ListPages(ctx, true)
	if err != nil {
		return nil, err
	}
	grouped := map[string]*Entry{}
	var order []string
	add := func(path, locale string, mod time.Time, freq string, prio float64) {
		e, ok := grouped[path]
		if !ok {
			e = &Entry{Path: path, ChangeFreq: freq, Priority: prio}
			grouped[path] = e
			order = append(order, path)
		}
		if !slices.Contains(e.Locales, locale) {
			e.Locales = append(e.Locales, locale)
		}
		if mod.After(e.LastMod) {
			e.LastMod = mod
		}
	}
	for _, p := range pages {
		add("/"+p.Slug, p.Locale, p.UpdatedAt, "weekly", 0.8)
	}

	posts, err := s.src.ListPosts(ctx, "", true)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		add("/blog/"+p.Slug, p.Locale, p.UpdatedAt, "monthly", 0.6)
	}

	for _, path := range order {
		out = append(out, *grouped[path])
	}
	return out, nil
}

func (s *Sitemap) localURL(locale, path string) string {
	if path == "/" {
		path = ""
	}
	return s.siteURL + "/" + locale + path
}

// URLs lists every absolute URL in the sitemap.
func (s *Sitemap) URLs(ctx context.Context) ([]string, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		for _, l := range e.Locales {
			out = append(out, s.localURL(l, e.Path))
		}
	}
	return out, nil
}

type urlset struct {
	XMLName xml.Name   `xml:"urlset"`
	XMLNS   string     `xml:"xmlns,attr"`
	XHTML   string     `xml:"xmlns:xhtml,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc        string      `xml:"loc"`
	LastMod    string      `xml:"lastmod,omitempty"`
	ChangeFreq string      `xml:"changefreq,omitempty"`
	Priority   string      `xml:"priority,omitempty"`
	Links      []xhtmlLink `xml:"xhtml:link"`
}

type xhtmlLink struct {
	Rel      string `xml:"rel,attr"`
	Hreflang string `xml:"hreflang,attr"`
	Href     string `xml:"href,attr"`
}

func (s *Sitemap) XML(ctx context.Context) ([]byte, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return s.render(entries)
}

func (s *Sitemap) render(entries []Entry) ([]byte, error) {
	set := urlset{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		XHTML: "http://www.w3.org/1999/xhtml",
	}
	for _, e := range entries {
		locales := slices.Clone(e.Locales)
		sort.Strings(locales)

		var links []xhtmlLink
		if len(locales) > 1 {
			for _, l := range locales {
				links = append(links, xhtmlLink{Rel: "alternate", Hreflang: l, Href: s.localURL(l, e.Path)})
			}
			if slices.Contains(locales, s.def) {
				links = append(links, xhtmlLink{Rel: "alternate", Hreflang: "x-default", Href: s.localURL(s.def, e.Path)})
			}
		}
		for _, l := range locales {
			u := urlEntry{
				Loc:        s.localURL(l, e.Path),
				ChangeFreq: e.ChangeFreq,
				Links:      links,
			}
			if !e.LastMod.IsZero() {
				u.LastMod = e.LastMod.UTC().Format("2006-01-02")
			}
			if e.Priority > 0 {
				u.Priority = strconv.FormatFloat(e.Priority, 'f', 1, 64)
			}
			set.URLs = append(set.URLs, u)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("sitemap encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Robots disallows everything outside production so staging never gets indexed.
func Robots(siteURL string, production bool) string {
	if !production {
		return "User-agent: *\nDisallow: /\n"
	}
	return fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /admin\nDisallow: /api/\n\nSitemap: %s/sitemap.xml\n",
		strings.TrimRight(siteURL, "/"))
}
