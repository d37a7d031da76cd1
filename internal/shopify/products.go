package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"leasing-site-api/internal/model"
)

const (
	pageLimit = 250
	maxPages  = 200
)

type Product struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Handle   string    `json:"handle"`
	Status   string    `json:"status"`
	Variants []Variant `json:"variants"`
}

type Variant struct {
	Price string `json:"price"`
}

// Products fetches one page. An empty pageURL starts from the first page; the
// returned next URL is empty on the last page.
func (c *Client) Products(ctx context.Context, shop, token, pageURL string) ([]Product, string, error) {
	if pageURL == "" {
		q := url.Values{
			"limit":  {strconv.Itoa(pageLimit)},
			"fields": {"id,title,handle,status,variants"},
		}
		pageURL = fmt.Sprintf("%s/admin/api/%s/products.json?%s", c.base(shop), c.cfg.APIVersion, q.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("X-Shopify-Access-Token", token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("products: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("products: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Products []Product `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", fmt.Errorf("products decode: %w", err)
	}
	return out.Products, nextLink(resp.Header.Get("Link")), nil
}

// nextLink pulls the rel="next" target out of a cursor pagination Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(segs[0]), "<>")
		for _, s := range segs[1:] {
			if strings.TrimSpace(s) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}

// ProductSink persists synced products.
type ProductSink interface {
	UpsertShopProducts(ctx context.Context, products []model.ShopProduct) error
	MarkSynced(ctx context.Context, id string, itemCount int, at time.Time) error
}

// Sync pages through the catalog and upserts every product. Products whose
// price does not parse are counted as failed and skipped.
func (c *Client) Sync(ctx context.Context, ds *model.DataSource, sink ProductSink) (*model.SyncResult, error) {
	now := time.Now().UTC()
	res := &model.SyncResult{SyncedAt: now}

	next := ""
	for page := 0; page < maxPages; page++ {
		products, nextURL, err := c.Products(ctx, ds.ShopDomain, ds.AccessToken, next)
		if err != nil {
			return res, err
		}

		rows := make([]model.ShopProduct, 0, len(products))
		for _, p := range products {
			res.Total++
			price, err := productPrice(p)
			if err != nil {
				res.Failed++
				res.Errors = append(res.Errors, fmt.Sprintf("product %d: %v", p.ID, err))
				continue
			}
			rows = append(rows, model.ShopProduct{
				DataSourceID: ds.ID,
				ExternalID:   strconv.FormatInt(p.ID, 10),
				Title:        p.Title,
				Handle:       p.Handle,
				Price:        price,
				Status:       p.Status,
				SyncedAt:     now,
			})
		}
		if err := sink.UpsertShopProducts(ctx, rows); err != nil {
			return res, fmt.Errorf("save products: %w", err)
		}
		res.Success += len(rows)

		if nextURL == "" {
			break
		}
		next = nextURL
	}

	if err := sink.MarkSynced(ctx, ds.ID, res.Success, now); err != nil {
		return res, fmt.Errorf("mark synced: %w", err)
	}
	return res, nil
}

// productPrice uses the first variant, the one storefronts show as "from".
func productPrice(p Product) (decimal.Decimal, error) {
	if len(p.Variants) == 0 || p.Variants[0].Price == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(p.Variants[0].Price)
}
