// Package odoo is a JSON-RPC client for the external Odoo API. It performs
// the remote ORM calls the dashboard and hierarchy services depend on.
package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Caller issues one remote ORM call: method on model with positional args
// and optional keyword args. The raw JSON result is returned unchanged.
type Caller interface {
	Call(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error)
}

var ErrNotAuthenticated = errors.New("odoo authentication rejected")

// Fault is an error object returned by the server inside a JSON-RPC response.
type Fault struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    FaultData `json:"data"`
}

type FaultData struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Debug   string `json:"debug"`
}

func (f *Fault) Error() string {
	if f.Data.Message != "" {
		return fmt.Sprintf("odoo fault %d: %s", f.Code, f.Data.Message)
	}
	return fmt.Sprintf("odoo fault %d: %s", f.Code, f.Message)
}

// AccessDenied reports whether the fault is an authentication failure, which
// happens when a cached uid or key has been revoked.
func (f *Fault) AccessDenied() bool {
	return strings.HasSuffix(f.Data.Name, "AccessDenied")
}

type Options struct {
	URL        string
	Database   string
	Login      string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	endpoint string
	db       string
	login    string
	apiKey   string
	timeout  time.Duration
	http     *http.Client

	mu  sync.Mutex
	uid int64
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		endpoint: strings.TrimRight(opts.URL, "/") + "/jsonrpc",
		db:       opts.Database,
		login:    opts.Login,
		apiKey:   opts.APIKey,
		timeout:  opts.Timeout,
		http:     httpClient,
	}
}

// Call runs model.method through object.execute_kw, authenticating first if
// no uid is cached. An AccessDenied fault drops the cached uid and the call
// is retried once with a fresh login.
func (c *Client) Call(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	result, err := c.executeKW(ctx, model, method, args, kwargs)
	var fault *Fault
	if errors.As(err, &fault) && fault.AccessDenied() {
		slog.Info("odoo session rejected, re-authenticating", "model", model, "method", method)
		c.resetUID()
		result, err = c.executeKW(ctx, model, method, args, kwargs)
	}
	return result, err
}

// Close drops idle keep-alive connections to the server.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Version queries common.version, which needs no credentials. Used for readiness.
func (c *Client) Version(ctx context.Context) (json.RawMessage, error) {
	return c.rpc(ctx, "common", "version", []any{})
}

func (c *Client) executeKW(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	uid, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return c.rpc(ctx, "object", "execute_kw", []any{c.db, uid, c.apiKey, model, method, args, kwargs})
}

func (c *Client) authenticate(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uid > 0 {
		return c.uid, nil
	}

	raw, err := c.rpc(ctx, "common", "authenticate", []any{c.db, c.login, c.apiKey, map[string]any{}})
	if err != nil {
		return 0, fmt.Errorf("authenticate: %w", err)
	}
	var uid int64
	if err := json.Unmarshal(raw, &uid); err != nil || uid <= 0 {
		// Odoo answers false for bad credentials.
		return 0, ErrNotAuthenticated
	}
	c.uid = uid
	slog.Debug("odoo authenticated", "db", c.db, "login", c.login, "uid", uid)
	return uid, nil
}

func (c *Client) resetUID() {
	c.mu.Lock()
	c.uid = 0
	c.mu.Unlock()
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      string    `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *Fault          `json:"error"`
}

func (c *Client) rpc(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s.%s: %w", service, method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s.%s request: %w", service, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s.%s: unexpected status %d: %s", service, method, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%s.%s decode: %w", service, method, err)
	}
	if decoded.Error != nil {
		return nil, decoded.Error
	}
	return decoded.Result, nil
}
