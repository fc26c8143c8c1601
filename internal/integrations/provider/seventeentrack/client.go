package seventeentrack

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/integrations/provider"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/pkg/errors"
)

const (
	DefaultBaseURL = "https://api.17track.net/track/v2.2"

	tokenHeader = "17token"
)

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) QueryExisting(ctx context.Context, number string) (*models.TrackingRecord, bool, error) {
	var data trackInfoData
	if _, err := c.call(ctx, "/gettrackinfo", []numberItem{{Number: number}}, &data); err != nil {
		return nil, false, err
	}
	rec, ok := data.firstRecord()
	return rec, ok, nil
}

func (c *Client) Register(ctx context.Context, number string, courier models.Courier) (provider.Result, error) {
	item := numberItem{Number: number}
	if !courier.IsAutoDetect() {
		item.Carrier = int(courier)
	}
	code, err := c.call(ctx, "/register", []numberItem{item}, nil)
	if err != nil {
		return provider.Result{}, err
	}
	if code != 0 {
		slog.Warn("17track register rejected", "number", number, "code", code)
	}
	return provider.Result{OK: code == 0, Code: code}, nil
}

func (c *Client) FetchDetails(ctx context.Context, number string) (*models.TrackingRecord, error) {
	var data trackInfoData
	if _, err := c.call(ctx, "/gettrackinfo", []numberItem{{Number: number}}, &data); err != nil {
		return nil, err
	}
	rec, ok := data.firstRecord()
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "17track: %s", number)
	}
	return rec, nil
}

func (c *Client) Remove(ctx context.Context, number string) (provider.Result, error) {
	code, err := c.call(ctx, "/deletetrack", []numberItem{{Number: number}}, nil)
	if err != nil {
		return provider.Result{}, err
	}
	if code != 0 {
		slog.Warn("17track delete rejected", "number", number, "code", code)
	}
	return provider.Result{OK: code == 0, Code: code}, nil
}

func (c *Client) ListTracked(ctx context.Context, page int) ([]*models.TrackedItem, error) {
	if page <= 0 {
		page = 1
	}
	var data trackListData
	if _, err := c.call(ctx, "/gettracklist", listRequest{PageNo: page, DataOrigin: "Api"}, &data); err != nil {
		return nil, err
	}
	out := make([]*models.TrackedItem, 0, len(data.Accepted))
	for _, a := range data.Accepted {
		out = append(out, &models.TrackedItem{
			Number:          a.Number,
			PackageStatus:   a.PackageStatus,
			LatestEventInfo: a.LatestEventInfo,
			LatestEventTime: parseTime(a.LatestEventTime),
		})
	}
	return out, nil
}

// call отправляет POST и возвращает code из ответа. data декодируется, только если передан.
func (c *Client) call(ctx context.Context, path string, body any, data any) (int, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return 0, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tokenHeader, c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		slog.Error("17track request failed", "path", path, "error", err.Error())
		return 0, errors.Wrapf(models.ErrNetworkFailure, "17track %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slog.Error("17track bad status", "path", path, "status", resp.StatusCode)
		return 0, errors.Wrapf(models.ErrProviderRejected, "17track %s: http %d", path, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return 0, errors.Wrapf(models.ErrProviderRejected, "17track %s: decode: %v", path, err)
	}
	if data != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return 0, errors.Wrapf(models.ErrProviderRejected, "17track %s: decode data: %v", path, err)
		}
	}
	return env.Code, nil
}
