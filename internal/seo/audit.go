package seo

import (
	"strings"
	"unicode/utf8"

	"leasing-site-api/internal/model"
)

const (
	MaxTitleLen       = 60
	MaxDescriptionLen = 160
)

type Issue struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Locale  string `json:"locale"`
	Slug    string `json:"slug"`
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

// Audit flags missing or over-long metadata and titles reused within a locale.
// Blog posts use their title and excerpt as meta title and description.
func Audit(pages []model.LandingPage, posts []model.BlogPost) []Issue {
	issues := []Issue{}
	seen := map[string]string{}

	check := func(kind, id, locale, slug, title, desc string) {
		base := Issue{Kind: kind, ID: id, Locale: locale, Slug: slug}
		if p := lengthProblem(title, MaxTitleLen); p != "" {
			issues = append(issues, base.with("meta_title", p))
		}
		if p := lengthProblem(desc, MaxDescriptionLen); p != "" {
			issues = append(issues, base.with("meta_description", p))
		}

		norm := strings.ToLower(strings.TrimSpace(title))
		if norm == "" {
			return
		}
		key := kind + "\x00" + locale + "\x00" + norm
		if other, dup := seen[key]; dup {
			issues = append(issues, base.with("meta_title", "duplicate of "+other))
			return
		}
		seen[key] = slug
	}

	for _, p := range pages {
		check("page", p.ID, p.Locale, p.Slug, p.MetaTitle, p.MetaDescription)
	}
	for _, p := range posts {
		check("post", p.ID, p.Locale, p.Slug, p.Title, p.Excerpt)
	}
	return issues
}

func (i Issue) with(field, problem string) Issue {
	i.Field, i.Problem = field, problem
	return i
}

func lengthProblem(value string, limit int) string {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case n == 0:
		return "missing"
	case n > limit:
		return "too long"
	}
	return ""
}
