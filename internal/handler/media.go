package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leasing-site-api/internal/middleware"
	"leasing-site-api/internal/model"
	"leasing-site-api/internal/storage"
)

const maxUploadBytes = 20 << 20

var uploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/gif":       true,
	"image/svg+xml":   true,
	"application/pdf": true,
	"video/mp4":       true,
}

type presignRequest struct {
	FileName    string `json:"file_name" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required,max=100"`
	SizeBytes   int64  `json:"size_bytes" binding:"required,min=1"`
	AltText     string `json:"alt_text" binding:"omitempty,max=300"`
}

// AdminPresignUpload records the asset and hands back a short-lived PUT url;
// the browser uploads straight to the bucket.
func (h *Handler) AdminPresignUpload(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ct := strings.ToLower(req.ContentType)
	if !uploadTypes[ct] {
		abort(c, http.StatusBadRequest, "content_type: unsupported media type")
		return
	}
	if req.SizeBytes > maxUploadBytes {
		abort(c, http.StatusBadRequest, "size_bytes: file too large")
		return
	}
	if h.Storage == nil {
		upstream(c, "storage", storage.ErrNotConfigured)
		return
	}

	ctx := c.Request.Context()
	id := uuid.NewString()
	key := storage.Key(h.now(), id, req.FileName)
	uploadURL, expires, err := h.Storage.PresignUpload(ctx, key, ct)
	if err != nil {
		upstream(c, "storage", err)
		return
	}

	m := &model.MediaAsset{
		ID:          id,
		StorageKey:  key,
		FileName:    storage.SanitizeFileName(req.FileName),
		ContentType: ct,
		SizeBytes:   req.SizeBytes,
		AltText:     req.AltText,
		UploadedBy:  middleware.UserID(c),
	}
	if err := h.Media.CreateMedia(ctx, m); err != nil {
		fail(c, err)
		return
	}
	m.URL = h.Storage.PublicURL(key)
	c.JSON(http.StatusCreated, gin.H{
		"media":      m,
		"upload_url": uploadURL,
		"method":     http.MethodPut,
		"headers":    gin.H{"Content-Type": ct},
		"expires_at": expires,
	})
}

func (h *Handler) AdminListMedia(c *gin.Context) {
	items, err := h.Media.ListMedia(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if h.Storage != nil {
		for i := range items {
			items[i].URL = h.Storage.PublicURL(items[i].StorageKey)
		}
	}
	c.JSON(http.StatusOK, gin.H{"media": orEmpty(items)})
}

// AdminDeleteMedia removes the object first so a failed bucket call leaves
// the row in place for a retry.
func (h *Handler) AdminDeleteMedia(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if h.Storage == nil {
		upstream(c, "storage", storage.ErrNotConfigured)
		return
	}
	ctx := c.Request.Context()
	m, err := h.Media.GetMedia(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Storage.Delete(ctx, m.StorageKey); err != nil {
		upstream(c, "storage", err)
		return
	}
	if err := h.Media.DeleteMedia(ctx, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
