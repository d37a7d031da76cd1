// Package i18n serves the site's translation bundles and picks a locale for a request.
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*/*.json
var localesFS embed.FS

// Namespaces lists every bundle the frontend loads.
var Namespaces = []string{"common", "home", "booking", "blog", "admin", "leasing"}

const CookieName = "NEXT_LOCALE"

var (
	ErrUnknownLocale    = errors.New("unknown locale")
	ErrUnknownNamespace = errors.New("unknown namespace")
)

// Catalog holds the flattened static bundles, keyed locale -> namespace -> key.
type Catalog struct {
	bundles map[string]map[string]map[string]string
	locales []string
	def     string
	matcher language.Matcher
}

// Load reads the embedded bundles for the given locales. The default locale
// must ship every namespace; others may be partial.
func Load(locales []string, def string) (*Catalog, error) {
	if !slices.Contains(locales, def) {
		return nil, fmt.Errorf("i18n: default locale %q not supported", def)
	}
	// default first so the matcher falls back to it
	ordered := append([]string{def}, slices.DeleteFunc(slices.Clone(locales), func(l string) bool { return l == def })...)

	c := &Catalog{bundles: map[string]map[string]map[string]string{}, locales: ordered, def: def}
	tags := make([]language.Tag, 0, len(ordered))
	for _, loc := range ordered {
		tag, err := language.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("i18n: locale %q: %w", loc, err)
		}
		tags = append(tags, tag)

		c.bundles[loc] = map[string]map[string]string{}
		for _, ns := range Namespaces {
			raw, err := localesFS.ReadFile("locales/" + loc + "/" + ns + ".json")
			if err != nil {
				if loc == def {
					return nil, fmt.Errorf("i18n: %s/%s missing", loc, ns)
				}
				continue
			}
			var tree map[string]any
			if err := json.Unmarshal(raw, &tree); err != nil {
				return nil, fmt.Errorf("i18n: %s/%s: %w", loc, ns, err)
			}
			flat := map[string]string{}
			flatten("", tree, flat)
			c.bundles[loc][ns] = flat
		}
	}
	c.matcher = language.NewMatcher(tags)
	return c, nil
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

func (c *Catalog) Locales() []string { return slices.Clone(c.locales) }

func (c *Catalog) Default() string { return c.def }

func (c *Catalog) Supported(locale string) bool { return slices.Contains(c.locales, locale) }

func ValidNamespace(ns string) bool { return slices.Contains(Namespaces, ns) }

// Keys returns the sorted key set of the default locale's bundle.
func (c *Catalog) Keys(ns string) []string {
	return slices.Sorted(maps.Keys(c.bundles[c.def][ns]))
}

// Bundle merges default-locale values, the locale's own values and admin
// overrides, later layers winning.
func (c *Catalog) Bundle(locale, ns string, overrides map[string]string) (map[string]string, error) {
	if !c.Supported(locale) {
		return nil, ErrUnknownLocale
	}
	if !ValidNamespace(ns) {
		return nil, ErrUnknownNamespace
	}
	out := maps.Clone(c.bundles[c.def][ns])
	if out == nil {
		out = map[string]string{}
	}
	if locale != c.def {
		maps.Copy(out, c.bundles[locale][ns])
	}
	for k, v := range overrides {
		if v != "" {
			out[k] = v
		}
	}
	return out, nil
}

// Missing lists default-locale keys the locale has no static value for.
func (c *Catalog) Missing(locale, ns string) []string {
	var out []string
	own := c.bundles[locale][ns]
	for _, k := range c.Keys(ns) {
		if _, ok := own[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// Match picks the best supported locale for an Accept-Language header.
func (c *Catalog) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.def
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.def
	}
	return c.locales[idx]
}

// Resolve picks the request locale from, in order: the first path segment,
// ?lang, the locale cookie and Accept-Language.
func (c *Catalog) Resolve(r *http.Request) string {
	seg, _, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if c.Supported(seg) {
		return seg
	}
	if l := r.URL.Query().Get("lang"); c.Supported(l) {
		return l
	}
	if ck, err := r.Cookie(CookieName); err == nil && c.Supported(ck.Value) {
		return ck.Value
	}
	if h := r.Header.Get("Accept-Language"); h != "" {
		return c.Match(h)
	}
	return c.def
}
