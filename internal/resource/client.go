package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/session"
	"github.com/jwalitptl/clinic-console/pkg/errors"
	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/metrics"
)

// Partial is a sparse update payload: only the keys present are sent, so
// the server never sees fields the user did not touch.
type Partial map[string]interface{}

// Client is a typed REST client for one resource endpoint. The bearer
// token is read from the session store on every call, never cached, so a
// mid-session token refresh is honored immediately.
//
// Mutating calls for the same entity id must not overlap; the caller is
// expected to disable the triggering control until the in-flight call
// resolves. The client does not serialize same-id calls itself.
type Client[T any] struct {
	http      *http.Client
	baseURL   string
	prefix    string
	resource  string
	listKey   string
	role      session.Role
	tokens    *session.Store
	anonymous bool
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	log       *logger.Logger
}

type Option[T any] func(*Client[T])

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient[T any](hc *http.Client) Option[T] {
	return func(c *Client[T]) { c.http = hc }
}

// WithListKey names the wrapped array field in list envelopes,
// e.g. "clinicList". Without it, any "...List" field is accepted.
func WithListKey[T any](key string) Option[T] {
	return func(c *Client[T]) { c.listKey = key }
}

// WithAnonymousCreate marks Create as not requiring a bearer token, for
// the public booking submission endpoint.
func WithAnonymousCreate[T any]() Option[T] {
	return func(c *Client[T]) { c.anonymous = true }
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit[T any](rps float64, burst int) Option[T] {
	return func(c *Client[T]) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func WithMetrics[T any](m *metrics.Metrics) Option[T] {
	return func(c *Client[T]) { c.metrics = m }
}

func WithLogger[T any](l *logger.Logger) Option[T] {
	return func(c *Client[T]) { c.log = l }
}

// NewClient builds a client for {baseURL}{prefix}/{resourcePath} issuing
// calls on behalf of the given role.
func NewClient[T any](baseURL, prefix, resourcePath string, tokens *session.Store, role session.Role, opts ...Option[T]) *Client[T] {
	c := &Client[T]{
		http:     http.DefaultClient,
		baseURL:  baseURL,
		prefix:   prefix,
		resource: resourcePath,
		role:     role,
		tokens:   tokens,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resource returns the resource path this client serves.
func (c *Client[T]) Resource() string { return c.resource }

// List fetches the collection matching the filter.
func (c *Client[T]) List(ctx context.Context, filter ServerFilter) (ListResult[T], error) {
	body, err := c.do(ctx, http.MethodGet, "", filter.Values(), nil, false, "list")
	if err != nil {
		return ListResult[T]{}, err
	}
	res, err := decodeList[T](body, c.listKey)
	if err != nil {
		return ListResult[T]{}, errors.Network(err)
	}
	for i := range res.Items {
		normalize(&res.Items[i])
	}
	return res, nil
}

// Get fetches one entity by id.
func (c *Client[T]) Get(ctx context.Context, id string) (*T, error) {
	body, err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(id), nil, nil, false, "get")
	if err != nil {
		return nil, err
	}
	entity, err := decodeEntity[T](body)
	if err != nil {
		return nil, errors.Network(err)
	}
	normalize(entity)
	return entity, nil
}

// Create posts a new entity and returns the server's copy. The server
// assigns the id; any client-set id is ignored.
func (c *Client[T]) Create(ctx context.Context, payload interface{}) (*T, error) {
	body, err := c.do(ctx, http.MethodPost, "", nil, payload, c.anonymous, "create")
	if err != nil {
		return nil, err
	}
	entity, err := decodeEntity[T](body)
	if err != nil {
		return nil, errors.Network(err)
	}
	normalize(entity)
	return entity, nil
}

// Update sends a partial payload of changed fields and returns the
// server-confirmed entity.
func (c *Client[T]) Update(ctx context.Context, id string, payload Partial) (*T, error) {
	body, err := c.do(ctx, http.MethodPut, "/"+url.PathEscape(id), nil, payload, false, "update")
	if err != nil {
		return nil, err
	}
	entity, err := decodeEntity[T](body)
	if err != nil {
		return nil, errors.Network(err)
	}
	normalize(entity)
	return entity, nil
}

// Delete removes one entity by id.
func (c *Client[T]) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/"+url.PathEscape(id), nil, nil, false, "delete")
	return err
}

func (c *Client[T]) do(ctx context.Context, method, subPath string, query url.Values, payload interface{}, anonymous bool, operation string) ([]byte, error) {
	var bearer string
	if !anonymous {
		token, err := c.tokens.Token(c.role)
		if err != nil {
			// Short-circuit before any network I/O.
			return nil, err
		}
		bearer = token
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Network(err)
		}
	}

	endpoint := c.baseURL + c.prefix + "/" + c.resource + subPath
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Network(fmt.Errorf("encode request body: %w", err))
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, errors.Network(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	if c.metrics != nil {
		c.metrics.APIRequests.WithLabelValues(c.resource, operation).Inc()
	}
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.fail(operation, errors.KindNetwork)
		return nil, errors.Network(err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.APILatency.WithLabelValues(c.resource, operation).Observe(time.Since(start).Seconds())
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.fail(operation, errors.KindNetwork)
		return nil, errors.Network(err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	message := serverMessage(body)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.fail(operation, errors.KindAuth)
		return nil, errors.Unauthorized(fmt.Errorf("%s %s: %s", method, endpoint, nonEmpty(message, resp.Status)))
	case http.StatusNotFound:
		c.fail(operation, errors.KindNotFound)
		return nil, errors.NotFound(c.resource, fmt.Errorf("%s %s", method, endpoint))
	default:
		c.fail(operation, errors.KindServer)
		c.log.Warn("server rejected request",
			"resource", c.resource, "operation", operation, "status", resp.StatusCode)
		return nil, errors.Server(resp.StatusCode, message)
	}
}

func (c *Client[T]) fail(operation string, kind errors.Kind) {
	if c.metrics != nil {
		c.metrics.APIErrors.WithLabelValues(c.resource, operation, kind.String()).Inc()
	}
}

func normalize(entity interface{}) {
	if n, ok := entity.(model.Normalizer); ok {
		n.Normalize()
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
