// Package registry is the adapter for the external two-phase lookup API:
// Submit starts a lookup and returns an opaque handle, Poll reads its
// current state. The package also holds the per-kind wire encoding and the
// classifier that decides whether a terminal result is billable.
//
// The client performs exactly one HTTP call per method. Retries, deadlines
// and backoff belong to the caller.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-lookup-bot/internal/domain"
)

// ErrMissingHandle is returned when a submit acknowledgment carries no
// request id.
var ErrMissingHandle = errors.New("registry: acknowledgment without request id")

// HTTPError is a non-2xx answer from the registry.
type HTTPError struct {
	Op     string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("registry %s: http %d: %s", e.Op, e.Status, e.Body)
}

// maxBody caps how much of a response is read into memory.
const maxBody = 16 << 20

// Client talks to the registry over HTTP with a static bearer token.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewClient builds a Client. A nil hc gets a client with the given timeout.
func NewClient(baseURL, token string, timeout time.Duration, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      hc,
	}
}

type submitRequest struct {
	Kind    int `json:"tipoConsulta"`
	Message any `json:"mensaje"`
}

// Submit starts a lookup and returns the registry's request handle.
func (c *Client) Submit(ctx context.Context, kind domain.Kind, p domain.Params) (string, error) {
	ctx, span := otel.Tracer("registry/Client").Start(ctx, "Submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("lookup.kind", kind.String())),
	)
	defer span.End()

	msg, err := Encode(kind, p)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(submitRequest{Kind: int(kind), Message: msg})
	if err != nil {
		return "", err
	}

	raw, err := c.do(ctx, "submit", http.MethodPost, c.baseURL+"/IniciarConsulta", body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		return "", err
	}

	handle, err := decodeHandle(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad acknowledgment")
		return "", err
	}
	span.SetAttributes(attribute.String("registry.handle", handle))
	return handle, nil
}

// Poll fetches the current state of handle.
func (c *Client) Poll(ctx context.Context, handle string) (*Result, error) {
	ctx, span := otel.Tracer("registry/Client").Start(ctx, "Poll",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("registry.handle", handle)),
	)
	defer span.End()

	raw, err := c.do(ctx, "poll", http.MethodGet, c.baseURL+"/Resultados/"+url.PathEscape(handle), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "poll failed")
		return nil, err
	}
	res, err := DecodeResult(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad poll body")
		return nil, fmt.Errorf("registry poll: decode: %w", err)
	}
	span.SetAttributes(attribute.String("registry.status", res.Status.String()))
	return res, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("registry %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(raw)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &HTTPError{Op: op, Status: resp.StatusCode, Body: snippet}
	}
	return raw, nil
}

// decodeHandle extracts idPeticion from an acknowledgment, tolerating key
// case and numeric ids.
func decodeHandle(raw []byte) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingHandle, err)
	}
	for k, v := range fields {
		if !strings.EqualFold(k, "idPeticion") || v == nil {
			continue
		}
		var h string
		switch t := v.(type) {
		case string:
			h = strings.TrimSpace(t)
		case float64:
			h = fmt.Sprintf("%.0f", t)
		default:
			h = fmt.Sprint(t)
		}
		if h != "" {
			return h, nil
		}
	}
	return "", ErrMissingHandle
}
