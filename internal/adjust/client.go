package adjust

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"adjust-consumer/internal/analytics"
	"adjust-consumer/internal/logger"
	"adjust-consumer/internal/metrics"
	"adjust-consumer/internal/settings"
)

const (
	// DefaultEndpoint is the Adjust server-to-server API
	DefaultEndpoint = "https://s2s.adjust.com"

	// SessionParamsNamespace is the settings namespace holding session callback parameters
	SessionParamsNamespace = "adjust_session_params"

	vendorName = "adjust"
	timeLayout = "2006-01-02T15:04:05Z0700"
)

// ErrClosed is returned when launching a client that was already closed
var ErrClosed = errors.New("adjust client closed")

// ClientOptions configures a Client. Zero values fall back to defaults.
type ClientOptions struct {
	Endpoint       string
	EventTokens    map[string]string
	RateLimit      float64
	QueueSize      int
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// Client is the Adjust binding. It validates events, keeps session callback
// parameters and submits events to the S2S API from a background worker.
type Client struct {
	endpoint   string
	tokens     map[string]string
	httpClient *http.Client
	limiter    *rate.Limiter
	queue      chan submission

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.RWMutex
	launched      bool
	closed        bool
	launch        analytics.LaunchConfig
	store         settings.Store
	sessionParams map[string]string
}

type submission struct {
	token          string
	callbackParams map[string]string
	createdAt      time.Time
}

// NewClient creates an unlaunched client
func NewClient(opts ClientOptions) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1000
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.RequestTimeout}
	}

	tokens := make(map[string]string, len(opts.EventTokens))
	for name, token := range opts.EventTokens {
		tokens[name] = token
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		endpoint:      strings.TrimRight(opts.Endpoint, "/"),
		tokens:        tokens,
		httpClient:    opts.HTTPClient,
		limiter:       rate.NewLimiter(rate.Limit(opts.RateLimit), int(opts.RateLimit)+1),
		queue:         make(chan submission, opts.QueueSize),
		ctx:           ctx,
		cancel:        cancel,
		sessionParams: make(map[string]string),
	}
}

// Launch configures the client, restores persisted session parameters and starts
// the submission worker. Only the first call has an effect.
func (c *Client) Launch(ctx context.Context, cfg analytics.LaunchConfig, store settings.Store) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.launched {
		return nil
	}

	if store != nil {
		params, err := store.Load(ctx, SessionParamsNamespace)
		if err != nil {
			return fmt.Errorf("failed to restore session parameters: %w", err)
		}
		for k, v := range params {
			c.sessionParams[k] = v
		}
	}

	c.launch = cfg
	c.store = store
	c.launched = true

	c.wg.Add(1)
	go c.run()

	logger.Log.WithFields(logrus.Fields{
		"environment":   cfg.Environment,
		"sessionParams": len(c.sessionParams),
	}).Info("Adjust client launched")

	return nil
}

// Environment returns the environment the client launched in
func (c *Client) Environment() analytics.Environment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.launch.Environment
}

// NewEvent resolves name through the event token table and validates the token
func (c *Client) NewEvent(name string) (analytics.VendorEvent, error) {
	token := name
	if alias, ok := c.tokens[name]; ok {
		token = alias
	}

	event, err := NewEvent(token)
	if err != nil {
		return nil, fmt.Errorf("event %q: %w", name, err)
	}
	return event, nil
}

// TrackEvent queues event for submission. Session callback parameters are merged
// in, with the event's own parameters taking precedence.
func (c *Client) TrackEvent(ve analytics.VendorEvent) {
	event, ok := ve.(*Event)
	if !ok {
		logger.Log.Errorf("Unsupported event type %T", ve)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.launched || c.closed {
		metrics.VendorSubmissions.WithLabelValues(vendorName, "not_launched").Inc()
		logger.Log.WithField("eventToken", event.token).Warn("Adjust client not running, dropping event")
		return
	}

	params := make(map[string]string, len(c.sessionParams)+len(event.callbackParams))
	for k, v := range c.sessionParams {
		params[k] = v
	}
	for k, v := range event.callbackParams {
		params[k] = v
	}

	select {
	case c.queue <- submission{token: event.token, callbackParams: params, createdAt: time.Now()}:
	default:
		metrics.VendorSubmissions.WithLabelValues(vendorName, "queue_full").Inc()
		logger.Log.WithField("eventToken", event.token).Warn("Adjust queue full, dropping event")
	}
}

// AddSessionCallbackParameter sets a parameter sent with every following event
func (c *Client) AddSessionCallbackParameter(key, value string) {
	if key == "" || value == "" {
		logger.Log.Warn("Session callback parameter key or value is missing")
		return
	}

	c.mu.Lock()
	c.sessionParams[key] = value
	store := c.store
	c.mu.Unlock()

	c.persist(func(ctx context.Context) error {
		if store == nil {
			return nil
		}
		return store.Put(ctx, SessionParamsNamespace, key, value)
	})
}

// RemoveSessionCallbackParameter removes a session parameter if present
func (c *Client) RemoveSessionCallbackParameter(key string) {
	c.mu.Lock()
	delete(c.sessionParams, key)
	store := c.store
	c.mu.Unlock()

	c.persist(func(ctx context.Context) error {
		if store == nil {
			return nil
		}
		return store.Delete(ctx, SessionParamsNamespace, key)
	})
}

// SessionCallbackParameterKeys lists the keys currently set. Values stay write-only.
func (c *Client) SessionCallbackParameterKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.sessionParams))
	for k := range c.sessionParams {
		keys = append(keys, k)
	}
	return keys
}

// Close stops accepting events and waits for queued submissions until ctx is done
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.cancel()
		return nil
	case <-ctx.Done():
		c.cancel()
		return fmt.Errorf("failed to drain adjust queue: %w", ctx.Err())
	}
}

func (c *Client) persist(write func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()

	if err := write(ctx); err != nil {
		logger.Log.Errorf("Failed to persist session parameters: %v", err)
	}
}

func (c *Client) run() {
	defer c.wg.Done()

	for sub := range c.queue {
		if err := c.limiter.Wait(c.ctx); err != nil {
			metrics.VendorSubmissions.WithLabelValues(vendorName, "cancelled").Inc()
			continue
		}

		if err := c.send(c.ctx, sub); err != nil {
			metrics.VendorSubmissions.WithLabelValues(vendorName, "error").Inc()
			logger.Log.WithFields(logrus.Fields{
				"eventToken": sub.token,
				"error":      err.Error(),
			}).Error("Failed to submit event to Adjust")
			continue
		}
		metrics.VendorSubmissions.WithLabelValues(vendorName, "success").Inc()
	}
}

func (c *Client) send(ctx context.Context, sub submission) error {
	start := time.Now()
	defer func() {
		metrics.VendorLatency.WithLabelValues(vendorName).Observe(time.Since(start).Seconds())
	}()

	c.mu.RLock()
	launch := c.launch
	c.mu.RUnlock()

	form := url.Values{}
	form.Set("s2s", "1")
	form.Set("app_token", launch.Credential)
	form.Set("event_token", sub.token)
	form.Set("environment", string(launch.Environment))
	form.Set("created_at", sub.createdAt.UTC().Format(timeLayout))

	if len(sub.callbackParams) > 0 {
		data, err := json.Marshal(sub.callbackParams)
		if err != nil {
			return fmt.Errorf("failed to marshal callback params: %w", err)
		}
		form.Set("callback_params", string(data))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/event", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	logger.Log.WithField("eventToken", sub.token).Debug("Event submitted to Adjust")
	return nil
}
