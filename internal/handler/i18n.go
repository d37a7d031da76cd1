package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"leasing-site-api/internal/i18n"
)

func (h *Handler) Namespaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"namespaces":     i18n.Namespaces,
		"locales":        h.Catalog.Locales(),
		"default_locale": h.Catalog.Default(),
		"detected":       h.Catalog.Resolve(c.Request),
	})
}

// bundle answers 404 for unknown locales and namespaces.
func (h *Handler) bundle(c *gin.Context, locale, ns string) (map[string]string, bool) {
	if !h.Catalog.Supported(locale) || !i18n.ValidNamespace(ns) {
		abort(c, http.StatusNotFound, "unknown locale or namespace")
		return nil, false
	}
	overrides, err := h.Translations.Overrides(c.Request.Context(), locale, ns)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	out, err := h.Catalog.Bundle(locale, ns, overrides)
	if errors.Is(err, i18n.ErrUnknownLocale) || errors.Is(err, i18n.ErrUnknownNamespace) {
		abort(c, http.StatusNotFound, "unknown locale or namespace")
		return nil, false
	}
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return out, true
}

func (h *Handler) TranslationBundle(c *gin.Context) {
	out, ok := h.bundle(c, c.Param("locale"), c.Param("namespace"))
	if !ok {
		return
	}
	c.Header("Cache-Control", "public, max-age=60")
	c.JSON(http.StatusOK, out)
}

type bundleStatus struct {
	Locale    string `json:"locale"`
	Namespace string `json:"namespace"`
	Keys      int    `json:"keys"`
	Missing   int    `json:"missing"`
	Overrides int    `json:"overrides"`
}

func (h *Handler) AdminTranslationIndex(c *gin.Context) {
	counts, err := h.Translations.OverrideCounts(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	var out []bundleStatus
	for _, l := range h.Catalog.Locales() {
		for _, ns := range i18n.Namespaces {
			out = append(out, bundleStatus{
				Locale:    l,
				Namespace: ns,
				Keys:      len(h.Catalog.Keys(ns)),
				Missing:   len(h.Catalog.Missing(l, ns)),
				Overrides: counts[l+"/"+ns],
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"bundles": out})
}

func (h *Handler) AdminGetTranslations(c *gin.Context) {
	locale, ns := c.Param("locale"), c.Param("namespace")
	merged, ok := h.bundle(c, locale, ns)
	if !ok {
		return
	}
	overrides, err := h.Translations.Overrides(c.Request.Context(), locale, ns)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"locale":    locale,
		"namespace": ns,
		"values":    merged,
		"overrides": overrides,
		"missing":   orEmpty(h.Catalog.Missing(locale, ns)),
	})
}

type saveTranslationsRequest struct {
	Values map[string]string `json:"values" binding:"required"`
}

// AdminSaveTranslations upserts overrides; an empty value removes one.
func (h *Handler) AdminSaveTranslations(c *gin.Context) {
	locale, ns := c.Param("locale"), c.Param("namespace")
	if !h.Catalog.Supported(locale) || !i18n.ValidNamespace(ns) {
		abort(c, http.StatusNotFound, "unknown locale or namespace")
		return
	}
	var req saveTranslationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	for k, v := range req.Values {
		if k == "" || len(k) > 200 || len(v) > 5000 {
			abort(c, http.StatusBadRequest, "invalid translation key or value")
			return
		}
	}
	if err := h.Translations.SaveOverrides(c.Request.Context(), locale, ns, req.Values); err != nil {
		fail(c, err)
		return
	}
	h.AdminGetTranslations(c)
}
