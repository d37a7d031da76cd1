package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"leasing-site-api/internal/logger"
	"leasing-site-api/internal/store"
)

var setupValidator sync.Once

// SetupValidator reports JSON field names in validation errors.
func SetupValidator() {
	setupValidator.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name == "" {
					name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
				}
				return name
			})
		}
	})
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// fail maps store sentinels to 404/409 and logs everything else as a 500.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		abort(c, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		abort(c, http.StatusConflict, "already exists")
	default:
		logger.From(c).Error("request failed", zap.Error(err))
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, "internal error")
	}
}

// upstream reports a failed third-party call without leaking its details.
func upstream(c *gin.Context, service string, err error) {
	logger.From(c).Warn("upstream failure", zap.String("service", service), zap.Error(err))
	_ = c.Error(err)
	abort(c, http.StatusBadGateway, service+" unavailable")
}

func badRequest(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		abort(c, http.StatusBadRequest, fe.Field()+": "+validationMessage(fe))
		return
	}
	abort(c, http.StatusBadRequest, "invalid request body")
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return "must be at least " + e.Param() + " characters"
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "must be at most " + e.Param() + " characters"
		}
		return "must be at most " + e.Param()
	case "uuid", "uuid4":
		return "invalid UUID format"
	case "oneof":
		return "must be one of: " + e.Param()
	case "url", "http_url":
		return "invalid URL format"
	default:
		return "invalid value"
	}
}

// idParam returns the :id path value, answering 404 for malformed ids so
// nothing reaches the database.
func idParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		abort(c, http.StatusNotFound, "not found")
		return "", false
	}
	return id, true
}
