// Package client is a Go client for the /v1/pipeline-library HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tjfontaine/pipeline-library/internal/api/wire"
)

// BasePath is the resource prefix appended to the server URL.
const BasePath = "/v1/pipeline-library"

// Wire documents exchanged with the server.
type (
	PipelineInfo = wire.PipelineInfoJSON
	RevisionInfo = wire.RevisionInfoJSON
	Pipeline     = wire.PipelineConfigurationJSON
	Stage        = wire.StageConfigurationJSON
	ConfigValue  = wire.ConfigJSON
	Rules        = wire.RuleDefinitionsJSON
	MetricsRule  = wire.MetricsRuleJSON
	DataRule     = wire.DataRuleJSON
)

// Export is a pipeline bundled with its rules, as downloaded with
// attachment=true.
type Export struct {
	PipelineConfig *Pipeline `json:"pipelineConfig"`
	PipelineRules  *Rules    `json:"pipelineRules"`
}

// Error is a non-2xx response decoded from the server's error body.
type Error struct {
	StatusCode int
	wire.ErrorJSON
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("pipeline library: %d %s (%s): %s", e.StatusCode, e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("pipeline library: %d %s: %s", e.StatusCode, e.Type, e.Message)
}

// Client calls a pipeline library server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithBearerToken sends token in the Authorization header.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListPipelines returns the summary of every stored pipeline.
func (c *Client) ListPipelines(ctx context.Context) ([]*PipelineInfo, error) {
	var out []*PipelineInfo
	if err := c.do(ctx, http.MethodGet, "/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPipeline returns the pipeline at rev with a fresh validation verdict.
// An empty rev selects the head revision.
func (c *Client) GetPipeline(ctx context.Context, name, rev string) (*Pipeline, error) {
	var out Pipeline
	if err := c.do(ctx, http.MethodGet, pipelinePath(name), revQuery("pipeline", rev), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetInfo returns the summary of one pipeline.
func (c *Client) GetInfo(ctx context.Context, name string) (*PipelineInfo, error) {
	var out PipelineInfo
	if err := c.do(ctx, http.MethodGet, pipelinePath(name), revQuery("info", ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetHistory returns the revisions of a pipeline, oldest first.
func (c *Client) GetHistory(ctx context.Context, name string) ([]*RevisionInfo, error) {
	var out []*RevisionInfo
	if err := c.do(ctx, http.MethodGet, pipelinePath(name), revQuery("history", ""), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Export downloads the pipeline at rev together with its rules.
func (c *Client) Export(ctx context.Context, name, rev string) (*Export, error) {
	q := revQuery("pipeline", rev)
	q.Set("attachment", "true")

	var out Export
	if err := c.do(ctx, http.MethodGet, pipelinePath(name), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create creates an empty pipeline with the default rules.
func (c *Client) Create(ctx context.Context, name, description string) (*Pipeline, error) {
	q := url.Values{}
	if description != "" {
		q.Set("description", description)
	}

	var out Pipeline
	if err := c.do(ctx, http.MethodPut, pipelinePath(name), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveOptions tag the revision created by Save.
type SaveOptions struct {
	Tag            string
	TagDescription string
}

// Save stores cfg as the new head of the pipeline. The returned document
// carries the validation verdict of the saved configuration.
func (c *Client) Save(ctx context.Context, name string, cfg *Pipeline, opts SaveOptions) (*Pipeline, error) {
	q := url.Values{}
	if opts.Tag != "" {
		q.Set("tag", opts.Tag)
	}
	if opts.TagDescription != "" {
		q.Set("tagDescription", opts.TagDescription)
	}

	var out Pipeline
	if err := c.do(ctx, http.MethodPost, pipelinePath(name), q, cfg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a pipeline and its rules.
func (c *Client) Delete(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, pipelinePath(name), nil, nil, nil)
}

// GetRules returns the rules stored for rev, or nil when there are none.
func (c *Client) GetRules(ctx context.Context, name, rev string) (*Rules, error) {
	var out *Rules
	if err := c.do(ctx, http.MethodGet, pipelinePath(name)+"/rules", revQuery("", rev), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveRules validates and stores the rules for rev. The returned document
// carries the validation outcome and the new uuid.
func (c *Client) SaveRules(ctx context.Context, name, rev string, rules *Rules) (*Rules, error) {
	var out *Rules
	if err := c.do(ctx, http.MethodPost, pipelinePath(name)+"/rules", revQuery("", rev), rules, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func pipelinePath(name string) string {
	return "/" + url.PathEscape(name)
}

func revQuery(get, rev string) url.Values {
	q := url.Values{}
	if get != "" {
		q.Set("get", get)
	}
	if rev != "" {
		q.Set("rev", rev)
	}
	return q
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + BasePath + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr.ErrorJSON); err != nil {
			apiErr.Type = "unknown"
			apiErr.Message = resp.Status
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
