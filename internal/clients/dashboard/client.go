// Package dashboard is the HTTP client of the chaos dashboard API: the node
// registry and the experiment submission endpoints.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dagu-org/faultline/internal/core"
	"github.com/dagu-org/faultline/internal/noderegistry"
	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout = 30 * time.Second

	pathNodeRegistry = "/api/node/registry"
	pathNodeList     = "/api/node/list"
	pathNodeDelete   = "/api/node/delete/"
	pathExperiments  = "/api/experiments/new"
	pathSchedules    = "/api/schedules/new"
)

var _ noderegistry.Backend = (*Client)(nil)

// errorResponse is the error body returned by the API.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Client talks to the dashboard API. Calls are never retried.
type Client struct {
	client *resty.Client
}

// Option configures a Client.
type Option func(*resty.Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) {
		if d > 0 {
			c.SetTimeout(d)
		}
	}
}

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *resty.Client) {
		if token != "" {
			c.SetAuthToken(token)
		}
	}
}

// NewClient creates a client for the API served at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "faultline-client")
	for _, opt := range opts {
		opt(client)
	}
	return &Client{client: client}
}

// Add registers a node.
func (c *Client) Add(ctx context.Context, node noderegistry.Node) error {
	var apiErr errorResponse
	resp, err := c.client.R().SetContext(ctx).SetBody(node).SetError(&apiErr).Post(pathNodeRegistry)
	if err != nil {
		return &core.NetworkError{Op: "add node", Err: err}
	}
	switch {
	case resp.StatusCode() == http.StatusConflict:
		return &core.ConflictError{Resource: "node", Name: node.Name}
	case resp.StatusCode() == http.StatusBadRequest:
		field := apiErr.Field
		if field == "" {
			field = "node"
		}
		return &core.ValidationError{Field: field, Err: fmt.Errorf("%w: %s", core.ErrInvalidValue, apiErr.Error)}
	case resp.IsError():
		return statusError("add node", resp)
	}
	return nil
}

// List returns the registered nodes.
func (c *Client) List(ctx context.Context) ([]noderegistry.Node, error) {
	var nodes []noderegistry.Node
	resp, err := c.client.R().SetContext(ctx).SetResult(&nodes).Get(pathNodeList)
	if err != nil {
		return nil, &core.NetworkError{Op: "list nodes", Err: err}
	}
	if resp.IsError() {
		return nil, statusError("list nodes", resp)
	}
	if nodes == nil {
		nodes = []noderegistry.Node{}
	}
	return nodes, nil
}

// Delete removes the node with the given name.
func (c *Client) Delete(ctx context.Context, name string) error {
	resp, err := c.client.R().SetContext(ctx).Delete(pathNodeDelete + url.PathEscape(name))
	if err != nil {
		return &core.NetworkError{Op: "delete node", Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return &core.NotFoundError{Resource: "node", Name: name}
	}
	if resp.IsError() {
		return statusError("delete node", resp)
	}
	return nil
}

// SubmitExperiment creates a one-shot experiment.
func (c *Client) SubmitExperiment(ctx context.Context, body map[string]any) error {
	return c.submit(ctx, "submit experiment", pathExperiments, body)
}

// SubmitSchedule creates a recurring experiment.
func (c *Client) SubmitSchedule(ctx context.Context, body map[string]any) error {
	return c.submit(ctx, "submit schedule", pathSchedules, body)
}

func (c *Client) submit(ctx context.Context, op, path string, body map[string]any) error {
	resp, err := c.client.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return &core.NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode() == http.StatusConflict {
		name, _ := body["name"].(string)
		return &core.ConflictError{Resource: "experiment", Name: name}
	}
	if resp.IsError() {
		return statusError(op, resp)
	}
	return nil
}

func statusError(op string, resp *resty.Response) error {
	return &core.NetworkError{
		Op:         op,
		StatusCode: resp.StatusCode(),
		Body:       strings.TrimSpace(resp.String()),
	}
}
