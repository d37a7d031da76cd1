package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"leasing-site-api/internal/middleware"
	"leasing-site-api/internal/store"
)

func (h *Handler) AdminListUsers(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			abort(c, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	users, err := h.Users.ListProfiles(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": orEmpty(users)})
}

type userUpdateRequest struct {
	FullName *string `json:"full_name" binding:"omitempty,max=120"`
	Persona  *string `json:"persona" binding:"omitempty,max=60"`
	IsAdmin  *bool   `json:"is_admin"`
}

func (h *Handler) AdminUpdateUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req userUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.IsAdmin != nil && !*req.IsAdmin && id == middleware.UserID(c) {
		abort(c, http.StatusBadRequest, "cannot revoke your own admin role")
		return
	}
	p, err := h.Users.UpdateProfile(c.Request.Context(), id, store.ProfileUpdate{
		FullName: req.FullName,
		Persona:  req.Persona,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
