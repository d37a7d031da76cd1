package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"leasing-site-api/internal/auth"
	"leasing-site-api/internal/logger"
	"leasing-site-api/internal/middleware"
)

type RouterConfig struct {
	ServiceName string
	Log         *zap.Logger
	Limiter     *middleware.RateLimiter
	CORSOrigins []string
	Tokens      *auth.Tokens
	Admins      middleware.AdminChecker
	// GRPCWeb, when set, serves POST /<GRPCService>/<method>.
	GRPCWeb     http.Handler
	GRPCService string
}

func NewRouter(h *Handler, rc RouterConfig) *gin.Engine {
	SetupValidator()
	if rc.Log == nil {
		rc.Log = zap.NewNop()
	}
	if rc.ServiceName == "" {
		rc.ServiceName = "leasing-site-api"
	}

	r := gin.New()
	r.Use(
		otelgin.Middleware(rc.ServiceName),
		logger.RequestID(),
		logger.Middleware(rc.Log),
		logger.Recovery(rc.Log),
		middleware.CORS(rc.CORSOrigins),
	)
	r.NoRoute(func(c *gin.Context) { abort(c, http.StatusNotFound, "not found") })

	limited := func(c *gin.Context) { c.Next() }
	if rc.Limiter != nil {
		limited = middleware.RateLimit(rc.Limiter)
	}
	user := middleware.RequireUser(rc.Tokens)
	admin := middleware.RequireAdmin(rc.Admins)

	r.GET("/healthz", h.Healthz)
	r.GET("/sitemap.xml", h.SitemapXML)
	r.GET("/robots.txt", h.RobotsTxt)

	api := r.Group("/api")

	authG := api.Group("/auth")
	authG.POST("/signup", limited, h.Signup)
	authG.POST("/login", limited, h.Login)
	authG.POST("/refresh", limited, h.Refresh)
	authG.POST("/logout", user, h.Logout)
	authG.GET("/me", user, h.Me)
	authG.GET("/shopify", user, admin, h.ShopifyConnect)
	authG.GET("/shopify/callback", h.ShopifyCallback)

	api.GET("/appointment-types", h.ListAppointmentTypes)
	api.GET("/bookings/availability", h.Availability)
	api.POST("/bookings", limited, h.CreateBooking)

	api.POST("/analytics/events", limited, h.TrackEvents)
	api.POST("/analytics/sessions", limited, h.TrackSession)

	api.GET("/i18n/namespaces", h.Namespaces)
	api.GET("/i18n/:locale/:namespace", h.TranslationBundle)

	api.GET("/pages/:locale/:slug", h.PublicPage)
	api.GET("/blog/:locale", h.PublicBlogList)
	api.GET("/blog/:locale/:slug", h.PublicBlogPost)

	api.POST("/captcha/verify", limited, h.VerifyCaptcha)
	api.POST("/contact", limited, h.Contact)

	adm := api.Group("/admin", user, admin)
	adm.GET("/bookings", h.AdminListBookings)
	adm.PATCH("/bookings/:id", h.AdminUpdateBooking)
	adm.DELETE("/bookings/:id", h.AdminCancelBooking)

	adm.GET("/appointment-types", h.AdminListAppointmentTypes)
	adm.POST("/appointment-types", h.AdminCreateAppointmentType)
	adm.PUT("/appointment-types/:id", h.AdminUpdateAppointmentType)
	adm.DELETE("/appointment-types/:id", h.AdminDeleteAppointmentType)

	adm.GET("/analytics/summary", h.AnalyticsSummary)

	adm.GET("/translations", h.AdminTranslationIndex)
	adm.GET("/translations/:locale/:namespace", h.AdminGetTranslations)
	adm.PUT("/translations/:locale/:namespace", h.AdminSaveTranslations)

	adm.GET("/pages", h.AdminListPages)
	adm.POST("/pages", h.AdminCreatePage)
	adm.GET("/pages/:id", h.AdminGetPage)
	adm.PUT("/pages/:id", h.AdminUpdatePage)
	adm.DELETE("/pages/:id", h.AdminDeletePage)

	adm.GET("/posts", h.AdminListPosts)
	adm.POST("/posts", h.AdminCreatePost)
	adm.GET("/posts/:id", h.AdminGetPost)
	adm.PUT("/posts/:id", h.AdminUpdatePost)
	adm.DELETE("/posts/:id", h.AdminDeletePost)

	adm.GET("/media", h.AdminListMedia)
	adm.POST("/media", h.AdminPresignUpload)
	adm.DELETE("/media/:id", h.AdminDeleteMedia)

	adm.GET("/users", h.AdminListUsers)
	adm.PATCH("/users/:id", h.AdminUpdateUser)

	adm.GET("/seo/audit", h.AdminSEOAudit)
	adm.POST("/seo/submit-sitemap", h.AdminSubmitSitemap)

	adm.GET("/data-sources", h.AdminListDataSources)
	adm.POST("/data-sources/:id/sync", h.AdminSyncDataSource)
	adm.GET("/data-sources/:id/products", h.AdminListProducts)
	adm.DELETE("/data-sources/:id", h.AdminDeleteDataSource)

	adm.POST("/ai/generate", h.AdminGenerate)

	if rc.GRPCWeb != nil && rc.GRPCService != "" {
		r.POST("/"+rc.GRPCService+"/:method", gin.WrapH(rc.GRPCWeb))
	}
	return r
}
