package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leasing-site-api/internal/model"
)

func (h *Handler) knownLocale(c *gin.Context) (string, bool) {
	locale := c.Param("locale")
	if h.Catalog != nil && !h.Catalog.Supported(locale) {
		abort(c, http.StatusNotFound, "not found")
		return "", false
	}
	return locale, true
}

func (h *Handler) PublicPage(c *gin.Context) {
	locale, ok := h.knownLocale(c)
	if !ok {
		return
	}
	p, err := h.Content.PublishedPage(c.Request.Context(), locale, c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) PublicBlogList(c *gin.Context) {
	locale, ok := h.knownLocale(c)
	if !ok {
		return
	}
	posts, err := h.Content.ListPosts(c.Request.Context(), locale, true)
	if err != nil {
		fail(c, err)
		return
	}
	// listings don't need bodies
	for i := range posts {
		posts[i].Body = ""
	}
	c.JSON(http.StatusOK, gin.H{"posts": orEmpty(posts)})
}

func (h *Handler) PublicBlogPost(c *gin.Context) {
	locale, ok := h.knownLocale(c)
	if !ok {
		return
	}
	p, err := h.Content.PublishedPost(c.Request.Context(), locale, c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type pageRequest struct {
	Locale          string          `json:"locale" binding:"required,max=10"`
	Slug            string          `json:"slug" binding:"required,max=120"`
	Persona         string          `json:"persona" binding:"omitempty,max=60"`
	Title           string          `json:"title" binding:"required,max=200"`
	MetaTitle       string          `json:"meta_title" binding:"omitempty,max=200"`
	MetaDescription string          `json:"meta_description" binding:"omitempty,max=500"`
	Body            json.RawMessage `json:"body"`
	Published       bool            `json:"published"`
}

func (h *Handler) validLocale(c *gin.Context, locale string) bool {
	if h.Catalog != nil && !h.Catalog.Supported(locale) {
		abort(c, http.StatusBadRequest, "locale: unsupported locale")
		return false
	}
	return true
}

func normalizeSlug(s string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(s)), "/")
}

func (r pageRequest) toModel(id string) *model.LandingPage {
	return &model.LandingPage{
		ID:              id,
		Locale:          r.Locale,
		Slug:            normalizeSlug(r.Slug),
		Persona:         r.Persona,
		Title:           r.Title,
		MetaTitle:       r.MetaTitle,
		MetaDescription: r.MetaDescription,
		Body:            r.Body,
		Published:       r.Published,
	}
}

func (h *Handler) AdminListPages(c *gin.Context) {
	pages, err := h.Content.ListPages(c.Request.Context(), false)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": orEmpty(pages)})
}

func (h *Handler) AdminGetPage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := h.Content.GetPage(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) AdminCreatePage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !h.validLocale(c, req.Locale) {
		return
	}
	p := req.toModel(uuid.NewString())
	if err := h.Content.CreatePage(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) AdminUpdatePage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !h.validLocale(c, req.Locale) {
		return
	}
	p := req.toModel(id)
	if err := h.Content.UpdatePage(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) AdminDeletePage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Content.DeletePage(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type postRequest struct {
	Locale      string     `json:"locale" binding:"required,max=10"`
	Slug        string     `json:"slug" binding:"required,max=120"`
	Title       string     `json:"title" binding:"required,max=200"`
	Excerpt     string     `json:"excerpt" binding:"omitempty,max=500"`
	Body        string     `json:"body"`
	CoverURL    string     `json:"cover_url" binding:"omitempty,url,max=2048"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"published_at"`
}

func (r postRequest) toModel(id string) *model.BlogPost {
	return &model.BlogPost{
		ID:          id,
		Locale:      r.Locale,
		Slug:        normalizeSlug(r.Slug),
		Title:       r.Title,
		Excerpt:     r.Excerpt,
		Body:        r.Body,
		CoverURL:    r.CoverURL,
		Published:   r.Published,
		PublishedAt: r.PublishedAt,
	}
}

func (h *Handler) AdminListPosts(c *gin.Context) {
	posts, err := h.Content.ListPosts(c.Request.Context(), c.Query("locale"), false)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": orEmpty(posts)})
}

func (h *Handler) AdminGetPost(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := h.Content.GetPost(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) AdminCreatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !h.validLocale(c, req.Locale) {
		return
	}
	p := req.toModel(uuid.NewString())
	if err := h.Content.CreatePost(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) AdminUpdatePost(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !h.validLocale(c, req.Locale) {
		return
	}
	p := req.toModel(id)
	if err := h.Content.UpdatePost(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) AdminDeletePost(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Content.DeletePost(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
