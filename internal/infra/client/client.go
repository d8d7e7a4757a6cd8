// Package client implements the ports that talk to the upstream commerce API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/boddenberg/insights-bff-go/internal/domain"
	"github.com/boddenberg/insights-bff-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// maxBodyBytes bounds how much of an upstream response is read.
const maxBodyBytes = 4 << 20

// upstream is the transport shared by every client: one base URL, one
// circuit breaker and one bulkhead for the whole commerce API.
type upstream struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
}

// response is what the upstream answered.
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// call sends one request through the bulkhead and the circuit breaker.
// classify turns a received response into the caller's value or error; it runs
// inside the breaker so the breaker sees the domain error.
// Anything that prevents a response from arriving becomes *domain.ErrNetwork.
func (u *upstream) call(ctx context.Context, service, method, path string, query url.Values, token string, body any, classify func(*response) (any, error)) (any, error) {
	if err := u.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrNetwork{Service: service, Err: err}
	}
	defer u.bulkhead.Release()

	result, err := u.cb.Execute(func() (any, error) {
		resp, err := u.send(ctx, method, path, query, token, body)
		if err != nil {
			return nil, &domain.ErrNetwork{Service: service, Err: err}
		}
		return classify(resp)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &domain.ErrNetwork{Service: service, Err: err}
	}
	return result, err
}

func (u *upstream) send(ctx context.Context, method, path string, query url.Values, token string, body any) (*response, error) {
	ctx, span := tracer.Start(ctx, method+" "+path)
	defer span.End()

	target := u.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &response{status: resp.StatusCode, body: raw}, nil
}

// Ping reports whether the upstream answers HTTP at all.
func (u *upstream) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Upstream bundles the clients for one commerce API.
type Upstream struct {
	Auth    *AuthClient
	Metrics *MetricsClient
	Trends  *TrendsClient

	transport *upstream
}

// Options configures New.
type Options struct {
	BaseURL          string
	TenantID         string
	RegisterTenantID string
	Resilience       resilience.Config
}

// New builds every client on a shared transport.
func New(httpClient *http.Client, cb *gobreaker.CircuitBreaker, opts Options) *Upstream {
	u := &upstream{
		httpClient: httpClient,
		baseURL:    opts.BaseURL,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(opts.Resilience.MaxConcurrency),
	}
	return &Upstream{
		Auth:      &AuthClient{upstream: u, tenantID: opts.RegisterTenantID},
		Metrics:   &MetricsClient{upstream: u, tenantID: opts.TenantID},
		Trends:    &TrendsClient{upstream: u, tenantID: opts.TenantID},
		transport: u,
	}
}

// Ping checks that the commerce API is reachable.
func (u *Upstream) Ping(ctx context.Context) error {
	return u.transport.Ping(ctx)
}
