package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/iota-uz/projecthub/pkg/composables"
	"github.com/iota-uz/projecthub/pkg/credentials"
	"github.com/iota-uz/projecthub/pkg/httpapi"
	"github.com/iota-uz/projecthub/pkg/serrors"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api/", credentials.Static("secret"), opts...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsInvalidURL(t *testing.T) {
	_, err := New("not a url", nil)
	require.Error(t, err)
}

func TestDoJSON_SendsHeadersAndDecodesData(t *testing.T) {
	var gotBody map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/requests", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "rid-1", r.Header.Get("X-Request-ID"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = httpapi.WriteSuccess(w, http.StatusCreated, map[string]int64{"requestId": 12})
	})

	var out struct {
		RequestID int64 `json:"requestId"`
	}
	ctx := composables.WithRequestID(context.Background(), "rid-1")
	require.NoError(t, c.DoJSON(ctx, http.MethodPost, "/requests", map[string]string{"title": "t"}, &out))
	assert.Equal(t, int64(12), out.RequestID)
	assert.Equal(t, "t", gotBody["title"])
}

func TestDoJSON_GeneratesRequestID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Correlation"))
		assert.Empty(t, r.Header.Get("Content-Type"))
		_ = httpapi.WriteSuccess(w, http.StatusOK, nil)
	}, WithRequestIDHeader("X-Correlation"))

	require.NoError(t, c.DoJSON(context.Background(), http.MethodDelete, "/requests/1", nil, nil))
}

func TestDoJSON_ErrorEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusConflict, "request is not pending")
	})

	err := c.DoJSON(context.Background(), http.MethodPost, "/requests/1/approval", map[string]string{}, nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, http.StatusConflict, apiErr.Status())
	assert.Equal(t, "request is not pending", apiErr.Message)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestDoJSON_ErrorStatusInsideSuccessfulHTTP(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteJSON(w, http.StatusOK, &httpapi.Envelope{Status: httpapi.StatusError, Code: 403, Message: "denied"})
	})

	err := c.DoJSON(context.Background(), http.MethodGet, "/tasks/1", nil, nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	assert.Equal(t, http.StatusForbidden, apiErr.Status())
}

func TestDoJSON_NonJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	})

	err := c.DoJSON(context.Background(), http.MethodGet, "/tasks/1", nil, nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status())
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestDoJSON_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c, err := New(srv.URL, nil)
	require.NoError(t, err)
	srv.Close()

	err = c.DoJSON(context.Background(), http.MethodGet, "/tasks/1", nil, nil)
	require.Error(t, err)
	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
}

func TestDoJSON_InjectsTraceContext(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("traceparent"))
		_ = httpapi.WriteSuccess(w, http.StatusOK, nil)
	})
	require.NoError(t, c.DoJSON(context.Background(), http.MethodGet, "/tasks/1", nil, nil))
}

func TestUpload_SendsMultipartWithDetectedType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File[FilesField]
		require.Len(t, files, 2)
		assert.Equal(t, "diagram.png", files[0].Filename)
		assert.Equal(t, "image/png", files[0].Header.Get("Content-Type"))
		assert.Equal(t, `notes "v2".txt`, files[1].Filename)
		assert.Contains(t, files[1].Header.Get("Content-Type"), "text/plain")
		_ = httpapi.WriteSuccess(w, http.StatusOK, nil)
	})

	err := c.Upload(context.Background(), "/requests/1/files", []FilePart{
		{Name: "diagram.png", Data: png},
		{Name: `notes "v2".txt`, Data: []byte("hello")},
	}, nil)
	require.NoError(t, err)
}

func TestUpload_RejectsOversizedPayload(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	}, WithMaxUploadSize(4))

	err := c.Upload(context.Background(), "/requests/1/files", []FilePart{{Name: "a", Data: []byte("12345")}}, nil)
	require.ErrorIs(t, err, ErrUploadTooLarge)
	var be *serrors.BaseError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "5", be.TemplateData["Size"])
	assert.Zero(t, calls)
}
