package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leasing-site-api/internal/seo"
)

func (h *Handler) SitemapXML(c *gin.Context) {
	if h.sitemap == nil {
		abort(c, http.StatusNotFound, "not found")
		return
	}
	body, err := h.sitemap.XML(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}

func (h *Handler) RobotsTxt(c *gin.Context) {
	c.String(http.StatusOK, seo.Robots(h.Options.SiteURL, h.Options.Production))
}

func (h *Handler) AdminSEOAudit(c *gin.Context) {
	ctx := c.Request.Context()
	pages, err := h.Content.ListPages(ctx, false)
	if err != nil {
		fail(c, err)
		return
	}
	posts, err := h.Content.ListPosts(ctx, "", false)
	if err != nil {
		fail(c, err)
		return
	}
	issues := seo.Audit(pages, posts)
	c.JSON(http.StatusOK, gin.H{
		"checked": len(pages) + len(posts),
		"issues":  issues,
	})
}

// AdminSubmitSitemap pushes every sitemap url to IndexNow.
func (h *Handler) AdminSubmitSitemap(c *gin.Context) {
	if h.IndexNow == nil || h.sitemap == nil {
		upstream(c, "indexnow", seo.ErrIndexNowDisabled)
		return
	}
	ctx := c.Request.Context()
	urls, err := h.sitemap.URLs(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	n, err := h.IndexNow.Submit(ctx, h.Options.SiteURL, urls)
	if err != nil {
		upstream(c, "indexnow", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submitted": n})
}
