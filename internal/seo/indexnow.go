package seo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrIndexNowDisabled = errors.New("indexnow key not configured")

// indexNowBatch is the protocol's per-request URL limit.
const indexNowBatch = 10000

type IndexNow struct {
	endpoint string
	key      string
	http     *http.Client
}

func NewIndexNow(endpoint, key string, client *http.Client) *IndexNow {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &IndexNow{endpoint: endpoint, key: key, http: client}
}

type indexNowRequest struct {
	Host        string   `json:"host"`
	Key         string   `json:"key"`
	KeyLocation string   `json:"keyLocation"`
	URLList     []string `json:"urlList"`
}

// Submit notifies search engines about changed URLs and returns how many were sent.
func (n *IndexNow) Submit(ctx context.Context, siteURL string, urls []string) (int, error) {
	if n.key == "" {
		return 0, ErrIndexNowDisabled
	}
	site, err := url.Parse(siteURL)
	if err != nil || site.Host == "" {
		return 0, fmt.Errorf("indexnow: bad site url %q", siteURL)
	}

	sent := 0
	for start := 0; start < len(urls); start += indexNowBatch {
		end := min(start+indexNowBatch, len(urls))
		body, err := json.Marshal(indexNowRequest{
			Host:        site.Host,
			Key:         n.key,
			KeyLocation: strings.TrimRight(siteURL, "/") + "/" + n.key + ".txt",
			URLList:     urls[start:end],
		})
		if err != nil {
			return sent, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
		if err != nil {
			return sent, err
		}
		req.Header.Set("Content-Type", "application/json; charset=utf-8")

		resp, err := n.http.Do(req)
		if err != nil {
			return sent, fmt.Errorf("indexnow: %w", err)
		}
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
			return sent, fmt.Errorf("indexnow: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		sent += end - start
	}
	return sent, nil
}
