package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/iota-uz/projecthub/pkg/composables"
	"github.com/iota-uz/projecthub/pkg/httpapi"
)

var tracer = otel.Tracer("projecthub-apiclient")

// ErrMissingID reports a write the backend accepted without identifying
// what it stored. The write may have been applied.
var ErrMissingID = errors.New("backend answered without an id")

// Error is a non-success answer from the backend, either a non-2xx status
// or an envelope whose status is not "success".
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Code       int
	Message    string
	RequestID  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: status=%d code=%d message=%q request_id=%s",
		e.Method, e.Path, e.StatusCode, e.Code, e.Message, e.RequestID)
}

// Status returns the envelope code when present and the HTTP status otherwise.
func (e *Error) Status() int {
	if e.Code != 0 {
		return e.Code
	}
	return e.StatusCode
}

type Client struct {
	baseURL         *url.URL
	tokens          oauth2.TokenSource
	httpClient      *http.Client
	requestIDHeader string
	maxUploadSize   int64
	log             *logrus.Entry
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.httpClient.Timeout = d
	}
}

func WithRequestIDHeader(header string) Option {
	return func(cl *Client) {
		cl.requestIDHeader = header
	}
}

func WithMaxUploadSize(n int64) Option {
	return func(cl *Client) {
		cl.maxUploadSize = n
	}
}

func WithLogger(log *logrus.Logger) Option {
	return func(cl *Client) {
		cl.log = log.WithField("component", "apiclient")
	}
}

func New(baseURL string, tokens oauth2.TokenSource, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid base url: %q", baseURL)
	}
	c := &Client{
		baseURL:         u,
		tokens:          tokens,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		requestIDHeader: "X-Request-ID",
		log:             logrus.NewEntry(logrus.StandardLogger()).WithField("component", "apiclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DoJSON sends body as JSON and decodes the envelope data into out.
// out and body may be nil.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		reader = bytes.NewReader(b)
	}
	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	return c.do(ctx, method, path, reader, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	ctx, span := tracer.Start(ctx, "apiclient "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
	defer span.End()

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	_, requestID := composables.EnsureRequestID(ctx)
	if c.requestIDHeader != "" {
		req.Header.Set(c.requestIDHeader, requestID)
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return errors.Wrap(err, "access token")
		}
		tok.SetAuthHeader(req)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	logger := c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"request-id": requestID,
	})
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		observe(method, "transport", time.Since(start))
		logger.WithError(err).Warn("backend call failed")
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	observe(method, fmt.Sprint(resp.StatusCode), time.Since(start))
	logger = logger.WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	var env httpapi.Envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || decodeErr != nil || !env.OK() {
		apiErr := &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			RequestID:  requestID,
		}
		if decodeErr == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		span.SetStatus(codes.Error, apiErr.Message)
		logger.WithField("message", apiErr.Message).Warn("backend rejected call")
		return apiErr
	}
	logger.Debug("backend call ok")

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(err, "decode response data")
	}
	return nil
}
