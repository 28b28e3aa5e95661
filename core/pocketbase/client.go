package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"schema-manager/core/schema"
	"schema-manager/core/schema/diff"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// listPageSize is the page size used when listing every collection.
const listPageSize = 200

// Client talks to the collections API of one PocketBase instance.
type Client struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	logger     *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	token string
}

// NewClient creates a client for the instance described by cfg.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("pocketbase url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid pocketbase url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeoutDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeoutDuration,
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		email:      cfg.AdminEmail,
		password:   cfg.AdminPassword,
		httpClient: &http.Client{Timeout: timeoutDuration, Transport: transport},
		logger:     logger,
	}, nil
}

type authRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Authenticate obtains a superuser session token. Calls made while an authentication
// is in flight wait for it instead of starting their own.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err, _ := c.group.Do("auth", func() (any, error) {
		if c.currentToken() != "" {
			return nil, nil
		}
		if c.email == "" || c.password == "" {
			return nil, errors.New("pocketbase admin credentials are not configured")
		}

		var resp authResponse
		req := authRequest{Identity: c.email, Password: c.password}
		if err := c.send(ctx, http.MethodPost, "/api/collections/_superusers/auth-with-password", "", req, &resp); err != nil {
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
		if resp.Token == "" {
			return nil, errors.New("authentication failed: empty token")
		}

		c.mu.Lock()
		c.token = resp.Token
		c.mu.Unlock()
		c.logger.Debug("Authenticated against remote", zap.String("url", c.baseURL))
		return nil, nil
	})
	return err
}

// GetCollection fetches one collection by name or id.
func (c *Client) GetCollection(ctx context.Context, name string) (schema.Collection, error) {
	var out schema.Collection
	err := c.do(ctx, http.MethodGet, "/api/collections/"+url.PathEscape(name), nil, &out)
	if StatusCode(err) == http.StatusNotFound {
		return schema.Collection{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return schema.Collection{}, err
	}
	return out, nil
}

type listResponse struct {
	Page       int                 `json:"page"`
	PerPage    int                 `json:"perPage"`
	TotalPages int                 `json:"totalPages"`
	TotalItems int                 `json:"totalItems"`
	Items      []schema.Collection `json:"items"`
}

// ListCollections returns every collection of the instance, following pagination.
func (c *Client) ListCollections(ctx context.Context) ([]schema.Collection, error) {
	var all []schema.Collection
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("perPage", strconv.Itoa(listPageSize))
		q.Set("page", strconv.Itoa(page))

		var resp listResponse
		if err := c.do(ctx, http.MethodGet, "/api/collections?"+q.Encode(), nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list collections (page %d): %w", page, err)
		}
		all = append(all, resp.Items...)
		if len(resp.Items) == 0 || page >= resp.TotalPages {
			return all, nil
		}
	}
}

// CreateCollection creates a collection from its full definition.
func (c *Client) CreateCollection(ctx context.Context, col schema.Collection) (schema.Collection, error) {
	var out schema.Collection
	if err := c.do(ctx, http.MethodPost, "/api/collections", col, &out); err != nil {
		return schema.Collection{}, err
	}
	return out, nil
}

// UpdateCollection sends a sparse patch to the collection addressed by idOrName.
func (c *Client) UpdateCollection(ctx context.Context, idOrName string, patch diff.Patch) (schema.Collection, error) {
	var out schema.Collection
	if err := c.do(ctx, http.MethodPatch, "/api/collections/"+url.PathEscape(idOrName), patch, &out); err != nil {
		return schema.Collection{}, err
	}
	return out, nil
}

type backupRequest struct {
	Name string `json:"name"`
}

// CreateBackup asks the remote to take a full backup under the given name.
func (c *Client) CreateBackup(ctx context.Context, name string) error {
	if err := c.do(ctx, http.MethodPost, "/api/backups", backupRequest{Name: name}, nil); err != nil {
		return fmt.Errorf("backup %q failed: %w", name, err)
	}
	return nil
}

// UpdateSettings patches the remote application settings (SMTP, meta, rate limits) with a
// partial settings document.
func (c *Client) UpdateSettings(ctx context.Context, settings json.RawMessage) error {
	if err := c.do(ctx, http.MethodPatch, "/api/settings", settings, nil); err != nil {
		return fmt.Errorf("settings update failed: %w", err)
	}
	return nil
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do performs an authenticated call.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.currentToken() == "" {
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
	}
	return c.send(ctx, method, path, c.currentToken(), body, out)
}

// send performs a single request and decodes a JSON answer into out when out is non-nil.
func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("Remote call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("malformed response from %s %s: %w", method, path, err)
	}
	return nil
}
