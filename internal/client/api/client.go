package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iudanet/gophboard/pkg/api"
)

// StatusError ошибка, пришедшая от сервера с не-2xx статусом
type StatusError struct {
	Message string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
}

// IsStatus проверяет, что err является ответом сервера с указанным кодом
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Client представляет HTTP клиент для служебного API relay-сервера
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option настраивает Client
type Option func(*Client)

// WithToken добавляет Bearer токен ко всем запросам
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient подменяет http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IssueToken запрашивает access token для пользователя
func (c *Client) IssueToken(ctx context.Context, userID string) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/token", api.TokenRequest{UserID: userID}, &resp); err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	return &resp, nil
}

// Health возвращает состояние сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// ListRooms возвращает известные серверу комнаты
func (c *Client) ListRooms(ctx context.Context) ([]api.RoomInfo, error) {
	var resp []api.RoomInfo
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/rooms", nil, &resp); err != nil {
		return nil, fmt.Errorf("list rooms request failed: %w", err)
	}
	return resp, nil
}

// RoomState возвращает текст документа комнаты, как его видит сервер
func (c *Client) RoomState(ctx context.Context, room string) (*api.RoomStateResponse, error) {
	var resp api.RoomStateResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/rooms/"+url.PathEscape(room), nil, &resp); err != nil {
		return nil, fmt.Errorf("room state request failed: %w", err)
	}
	return &resp, nil
}

// DeleteRoom удаляет сохраненный снимок комнаты
func (c *Client) DeleteRoom(ctx context.Context, room string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/api/v1/rooms/"+url.PathEscape(room), nil, nil); err != nil {
		return fmt.Errorf("delete room request failed: %w", err)
	}
	return nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			return &StatusError{Code: resp.StatusCode, Message: errResp.Message}
		}
		return &StatusError{Code: resp.StatusCode, Message: string(bytes.TrimSpace(respBody))}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
