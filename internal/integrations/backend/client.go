package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/pkg/errors"
)

const StatusSuccess = "success"

// Ack описывает тело ответа бэкенда: {"status": "...", "message": "..."}.
type Ack struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

type tokenRequest struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type trackingRequest struct {
	TrackingNumber string `json:"tracking_number"`
	UserID         string `json:"user_id"`
}

// RegisterToken: вызывать не чаще раза на установку, это держит флаг в identity store.
func (c *Client) RegisterToken(ctx context.Context, userID, token string) error {
	_, err := c.do(ctx, http.MethodPost, "/register_token", tokenRequest{UserID: userID, Token: token}, false)
	return err
}

func (c *Client) RegisterTracking(ctx context.Context, number, userID string) error {
	_, err := c.do(ctx, http.MethodPost, "/register_tracking", trackingRequest{TrackingNumber: number, UserID: userID}, false)
	return err
}

// DeleteTracking возвращает ack как есть: успех определяет вызывающий по Status.
func (c *Client) DeleteTracking(ctx context.Context, number, userID string) (Ack, error) {
	return c.do(ctx, http.MethodDelete, "/delete_tracking", trackingRequest{TrackingNumber: number, UserID: userID}, true)
}

// do шлёт JSON-запрос. Для POST успех это любой 2xx, тело не разбираем;
// decodeAck нужен только там, где вызывающий смотрит на Ack.Status.
func (c *Client) do(ctx context.Context, method, path string, body any, decodeAck bool) (Ack, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return Ack{}, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return Ack{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		slog.Error("backend request failed", "method", method, "path", path, "error", err.Error())
		return Ack{}, errors.Wrapf(models.ErrNetworkFailure, "backend %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Ack{}, errors.Wrapf(models.ErrNetworkFailure, "backend %s %s: read body: %v", method, path, err)
	}

	if resp.StatusCode/100 != 2 {
		slog.Error("backend bad status", "method", method, "path", path, "status", resp.StatusCode, "body", string(raw))
		return Ack{}, errors.Wrapf(models.ErrBackendRejected, "backend %s %s: http %d", method, path, resp.StatusCode)
	}

	// 2xx без тела тоже ack.
	var ack Ack
	if decodeAck && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &ack); err != nil {
			return Ack{}, errors.Wrapf(models.ErrBackendRejected, "backend %s %s: decode: %v", method, path, err)
		}
	}
	return ack, nil
}
