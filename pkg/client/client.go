// Package client is a typed HTTP client for the notice API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/angelmondragon/noticecast/pkg/db/models"
	"github.com/angelmondragon/noticecast/pkg/status"
	"github.com/angelmondragon/noticecast/pkg/types"
)

// CreateNoticeRequest is the payload for issuing a notice.
type CreateNoticeRequest struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	Category      string `json:"category"`
	ForcedPopup   bool   `json:"forcedPopup,omitempty"`
	MediaURL      string `json:"mediaUrl,omitempty"`
	MediaKind     string `json:"mediaKind,omitempty"`
	MediaMimeType string `json:"mediaMimeType,omitempty"`
}

// SystemStatus is the lock and promotion state for the caller.
type SystemStatus struct {
	Locked *models.Notice `json:"locked"`
	Promo  *models.Notice `json:"promo"`
}

// HistoryPage is one page of the operator history.
type HistoryPage = types.Page[models.Notice]

// Client is the notice API client.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	streamClient *http.Client
}

// New creates a new API client.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// the push stream stays open; only the context ends it
		streamClient: &http.Client{},
	}
}

// ListRecent returns the newest notices. limit <= 0 uses the server default.
func (c *Client) ListRecent(ctx context.Context, limit int) ([]models.Notice, error) {
	path := "/api/v1/notices"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var items []models.Notice
	if err := c.get(ctx, path, &items); err != nil {
		return nil, fmt.Errorf("client.ListRecent: %w", err)
	}
	return items, nil
}

// SystemStatus returns the active lock and promotion.
func (c *Client) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	var st SystemStatus
	if err := c.get(ctx, "/api/v1/notices/system-status", &st); err != nil {
		return nil, fmt.Errorf("client.SystemStatus: %w", err)
	}
	return &st, nil
}

// UnreadPopups returns forced notices the caller has not read.
func (c *Client) UnreadPopups(ctx context.Context) ([]models.Notice, error) {
	var items []models.Notice
	if err := c.get(ctx, "/api/v1/notices/popups", &items); err != nil {
		return nil, fmt.Errorf("client.UnreadPopups: %w", err)
	}
	return items, nil
}

// Resolution returns the server's tier decision for the caller.
func (c *Client) Resolution(ctx context.Context) (*status.Resolution, error) {
	var res status.Resolution
	if err := c.get(ctx, "/api/v1/notices/resolution", &res); err != nil {
		return nil, fmt.Errorf("client.Resolution: %w", err)
	}
	return &res, nil
}

// MarkRead records that the caller read a notice.
func (c *Client) MarkRead(ctx context.Context, noticeID int64) error {
	path := "/api/v1/notices/" + strconv.FormatInt(noticeID, 10) + "/read"
	if err := c.doRequest(ctx, http.MethodPost, path, nil, nil, nil); err != nil {
		return fmt.Errorf("client.MarkRead: %w", err)
	}
	return nil
}

// CreateNotice issues a notice. idempotencyKey is required by the server.
func (c *Client) CreateNotice(ctx context.Context, req CreateNoticeRequest, idempotencyKey string) (*models.Notice, error) {
	var created models.Notice
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	if err := c.doRequest(ctx, http.MethodPost, "/api/admin/v1/notices", req, headers, &created); err != nil {
		return nil, fmt.Errorf("client.CreateNotice: %w", err)
	}
	return &created, nil
}

// DeleteNotice removes a notice and reports whether it existed.
func (c *Client) DeleteNotice(ctx context.Context, noticeID int64) (bool, error) {
	var result struct {
		Deleted bool `json:"deleted"`
	}
	path := "/api/admin/v1/notices/" + strconv.FormatInt(noticeID, 10)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil, &result); err != nil {
		return false, fmt.Errorf("client.DeleteNotice: %w", err)
	}
	return result.Deleted, nil
}

// History pages through every notice, newest first.
func (c *Client) History(ctx context.Context, limit int, cursor string) (*HistoryPage, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	path := "/api/admin/v1/notices"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page HistoryPage
	if err := c.get(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("client.History: %w", err)
	}
	return &page, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, nil, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		return decodeHTTPError(resp)
	}

	if out != nil {
		envelope := struct {
			Data json.RawMessage `json:"data"`
		}{}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func decodeHTTPError(resp *http.Response) error {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if readErr != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
	}
	var apiErr struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Code != "" {
		return &HTTPError{StatusCode: resp.StatusCode, Code: apiErr.Error.Code, Message: apiErr.Error.Message}
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
}
