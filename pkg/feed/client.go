package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/constellations/scenenav/pkg/model"
)

const (
	defaultTimeout        = 60 * time.Second
	defaultConnectTimeout = 5 * time.Second
	defaultTLSTimeout     = 5 * time.Second

	// maxBodyBytes bounds how much of a response we are willing to read.
	maxBodyBytes = 16 << 20
)

// ClientOptions configures a Client. Zero durations use the defaults.
type ClientOptions struct {
	Timeout        time.Duration
	ConnectTimeout time.Duration
	HTTPClient     *http.Client // overrides the timeouts when set
}

// Client fetches scenes from the HTTP backend. None of the feeds it reads are
// personalized, so requests are unauthenticated.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ClientOptions) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q: scheme must be http or https", baseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = newHTTPClient(opts)
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}, nil
}

func newHTTPClient(opts ClientOptions) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	connect := opts.ConnectTimeout
	if connect <= 0 {
		connect = defaultConnectTimeout
	}
	dialer := &net.Dialer{Timeout: connect}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultTLSTimeout,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// HomeTimeline implements Fetcher.
func (c *Client) HomeTimeline(ctx context.Context, page int) (*model.TimelinePage, error) {
	return c.timeline(ctx, "/scenes/home-timeline", page)
}

// HandleTimeline implements Fetcher.
func (c *Client) HandleTimeline(ctx context.Context, handle string, page int) (*model.TimelinePage, error) {
	return c.timeline(ctx, "/handle/"+url.PathEscape(handle)+"/timeline", page)
}

// NearbyTimeline implements Fetcher.
func (c *Client) NearbyTimeline(ctx context.Context, baseID string) (*model.TimelinePage, error) {
	path := "/scene/" + url.PathEscape(baseID) + "/nearby-global"
	var resp model.TimelinePage
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	if err := validatePage(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Scene implements Fetcher. A 404 yields (nil, nil).
func (c *Client) Scene(ctx context.Context, id string) (*model.Scene, error) {
	path := "/scene/" + url.PathEscape(id)
	var s model.Scene
	if err := c.getJSON(ctx, path, &s); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := validateScene(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Handle implements Handles. A 404 yields (nil, nil).
func (c *Client) Handle(ctx context.Context, handle string) (*model.Handle, error) {
	path := "/handle/" + url.PathEscape(handle)
	var h model.Handle
	if err := c.getJSON(ctx, path, &h); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if h.Handle == "" {
		return nil, fmt.Errorf("GET %s: %w: missing handle", path, ErrSchema)
	}
	return &h, nil
}

func (c *Client) timeline(ctx context.Context, path string, page int) (*model.TimelinePage, error) {
	full := path + "?page=" + strconv.Itoa(page)
	var resp model.TimelinePage
	if err := c.getJSON(ctx, full, &resp); err != nil {
		return nil, err
	}
	if err := validatePage(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// errorEnvelope is the part of every response body that reports failures.
type errorEnvelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("GET %s: read body: %w", path, err)
	}
	glog.V(3).Infof("GET %s -> %d (%d bytes, %s)", path, resp.StatusCode, len(body), time.Since(start))

	// A missing resource is a null result no matter what the body says.
	if resp.StatusCode == http.StatusNotFound {
		return &StatusError{Path: path, Code: resp.StatusCode}
	}
	// The server may report errors in the body with any other status code.
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error {
		return &APIError{Path: path, Message: env.Message}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Path: path, Code: resp.StatusCode}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s: %w: %v", path, ErrSchema, err)
	}
	return nil
}

func validatePage(path string, p *model.TimelinePage) error {
	for i, s := range p.Results {
		if s == nil {
			return fmt.Errorf("GET %s: %w: results[%d] is null", path, ErrSchema, i)
		}
		if err := validateScene(path, s); err != nil {
			return err
		}
	}
	return nil
}

func validateScene(path string, s *model.Scene) error {
	if s.ID == "" {
		return fmt.Errorf("GET %s: %w: missing id", path, ErrSchema)
	}
	if s.HandleID == "" {
		return fmt.Errorf("GET %s: %w: scene %s missing handle_id", path, ErrSchema, s.ID)
	}
	return nil
}
