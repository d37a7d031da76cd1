package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"leasing-site-api/internal/auth"
	"leasing-site-api/internal/logger"
	"leasing-site-api/internal/model"
	"leasing-site-api/internal/shopify"
)

const (
	oauthStateTTL    = 10 * time.Minute
	shopifyStateKey  = "shopify:state:"
	integrationsPath = "/admin/integrations"
)

type shopifyConnectRequest struct {
	Shop string `json:"shop" form:"shop" binding:"required,max=255"`
}

// ShopifyConnect starts the OAuth install. The state nonce is single use and
// remembers which shop it was issued for.
func (h *Handler) ShopifyConnect(c *gin.Context) {
	var req shopifyConnectRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	shop := strings.ToLower(strings.TrimSpace(req.Shop))
	if !shopify.ValidShop(shop) {
		abort(c, http.StatusBadRequest, "shop: must be a *.myshopify.com domain")
		return
	}
	if h.Shopify == nil {
		upstream(c, "shopify", shopify.ErrNotConfigured)
		return
	}
	state, err := auth.RandomState()
	if err != nil {
		fail(c, err)
		return
	}
	if _, err := h.Cache.SetNX(c.Request.Context(), shopifyStateKey+state, shop, oauthStateTTL); err != nil {
		fail(c, err)
		return
	}
	authURL, err := h.Shopify.AuthURL(shop, state)
	if err != nil {
		upstream(c, "shopify", err)
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// ShopifyCallback finishes the install and always lands the browser back on
// the admin integrations page, with the outcome in the query string.
func (h *Handler) ShopifyCallback(c *gin.Context) {
	log := logger.From(c)
	done := func(status, detail string) {
		q := url.Values{"shopify": {status}}
		if detail != "" {
			q.Set("reason", detail)
		}
		c.Redirect(http.StatusFound, strings.TrimRight(h.Options.SiteURL, "/")+integrationsPath+"?"+q.Encode())
	}
	if h.Shopify == nil {
		done("error", "not_configured")
		return
	}

	q := c.Request.URL.Query()
	if err := h.Shopify.VerifyCallback(q); err != nil {
		log.Warn("shopify callback rejected", zap.Error(err))
		done("error", "signature")
		return
	}
	ctx := c.Request.Context()
	shop, ok, err := h.Cache.Take(ctx, shopifyStateKey+q.Get("state"))
	if err != nil {
		log.Error("oauth state lookup", zap.Error(err))
		done("error", "internal")
		return
	}
	if !ok || shop != q.Get("shop") {
		done("error", "state")
		return
	}

	token, scopes, err := h.Shopify.Exchange(ctx, shop, q.Get("code"))
	if err != nil {
		log.Warn("shopify token exchange failed", zap.String("shop", shop), zap.Error(err))
		done("error", "exchange")
		return
	}
	ds := &model.DataSource{
		ID:          uuid.NewString(),
		Kind:        model.DataSourceShopify,
		ShopDomain:  shop,
		AccessToken: token,
		Scopes:      scopes,
		Status:      "connected",
	}
	if err := h.DataSources.UpsertDataSource(ctx, ds); err != nil {
		log.Error("save data source", zap.String("shop", shop), zap.Error(err))
		done("error", "internal")
		return
	}
	log.Info("shopify connected", zap.String("shop", shop), zap.String("data_source_id", ds.ID))
	done("connected", "")
}

func (h *Handler) AdminListDataSources(c *gin.Context) {
	items, err := h.DataSources.ListDataSources(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data_sources": orEmpty(items)})
}

func (h *Handler) AdminSyncDataSource(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if h.Shopify == nil {
		upstream(c, "shopify", shopify.ErrNotConfigured)
		return
	}
	ctx := c.Request.Context()
	ds, err := h.DataSources.GetDataSource(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	res, err := h.Shopify.Sync(ctx, ds, h.DataSources)
	if err != nil {
		upstream(c, "shopify", err)
		return
	}
	logger.From(c).Info("shopify sync",
		zap.String("shop", ds.ShopDomain),
		zap.Int("total", res.Total),
		zap.Int("failed", res.Failed),
	)
	c.JSON(http.StatusOK, res)
}

// AdminListProducts returns the products stored by the last syncs of a source.
func (h *Handler) AdminListProducts(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.DataSources.GetDataSource(ctx, id); err != nil {
		fail(c, err)
		return
	}
	items, err := h.DataSources.ListShopProducts(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": orEmpty(items)})
}

func (h *Handler) AdminDeleteDataSource(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.DataSources.DeleteDataSource(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
