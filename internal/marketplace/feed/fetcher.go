package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"marketplace-mirror/internal/marketplace/model"
)

// Fetcher 请求 gallery 列表接口，不带认证、不分页、不重试
type Fetcher struct {
	Log            *zap.Logger
	HTTPClient     *http.Client
	URL            string
	APIVersion     string
	IncludePreview bool
}

func NewFetcher(log *zap.Logger, httpClient *http.Client, rawURL, apiVersion string, includePreview bool) *Fetcher {
	return &Fetcher{
		Log:            log,
		HTTPClient:     httpClient,
		URL:            rawURL,
		APIVersion:     apiVersion,
		IncludePreview: includePreview,
	}
}

// Fetch 发起一次 GET，返回解析后的记录列表
func (f *Fetcher) Fetch(ctx context.Context) ([]model.Record, error) {
	req, err := f.buildRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", model.ErrFetch, err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		f.Log.Error("Failed to fetch feed", zap.String("url", req.URL.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", model.ErrFetch, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			f.Log.Warn("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", model.ErrFetch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.Log.Error("Feed returned non-success status",
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
			zap.Int("bodySize", len(body)),
		)
		return nil, fmt.Errorf("%w: status %d", model.ErrFetch, resp.StatusCode)
	}

	f.Log.Debug("Fetched feed",
		zap.String("url", req.URL.String()),
		zap.Int("bodySize", len(body)),
	)

	records, err := parseRecords(body)
	if err != nil {
		f.Log.Warn("Invalid feed response", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", model.ErrFetch, err)
	}
	return records, nil
}

func (f *Fetcher) buildRequest(ctx context.Context) (*http.Request, error) {
	u, err := url.Parse(f.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if f.APIVersion != "" {
		q.Set("api-version", f.APIVersion)
	}
	q.Set("includePreview", strconv.FormatBool(f.IncludePreview))
	u.RawQuery = q.Encode()

	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}

// parseRecords 顶层必须是数组，每个元素必须是对象
func parseRecords(body []byte) ([]model.Record, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("top-level is not a JSON array: %w", err)
	}

	records := make([]model.Record, 0, len(items))
	for i, raw := range items {
		rec, err := model.ParseRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
