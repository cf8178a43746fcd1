// Package clients talks to the loans and cards services.
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/eaglebank/accounts/internal/apperr"
	"github.com/eaglebank/accounts/internal/logger"
	"github.com/eaglebank/accounts/internal/metrics"
	"github.com/eaglebank/accounts/internal/models"
)

const (
	breakerThreshold = 5
	breakerReset     = 30 * time.Second
)

var errCircuitOpen = errors.New("circuit open")

// ProfileClient fetches one service's view of a customer, keyed by mobile
// number. A 404 is reported as apperr.KindNotFound; every other failure as
// apperr.KindUpstreamUnavailable.
type ProfileClient[T any] struct {
	service string
	baseURL string
	http    *http.Client
	breaker *circuitBreaker
	log     *logger.Logger
}

func NewProfileClient[T any](service, baseURL string, timeout time.Duration, log *logger.Logger) *ProfileClient[T] {
	return &ProfileClient[T]{
		service: service,
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: newCircuitBreaker(breakerThreshold, breakerReset),
		log:     log,
	}
}

func NewLoansClient(baseURL string, timeout time.Duration, log *logger.Logger) *ProfileClient[models.LoansDto] {
	return NewProfileClient[models.LoansDto]("loans", baseURL, timeout, log)
}

func NewCardsClient(baseURL string, timeout time.Duration, log *logger.Logger) *ProfileClient[models.CardsDto] {
	return NewProfileClient[models.CardsDto]("cards", baseURL, timeout, log)
}

// Fetch calls GET {baseURL}/api/fetch?mobileNumber= forwarding correlationID
// unchanged.
func (c *ProfileClient[T]) Fetch(ctx context.Context, mobileNumber, correlationID string) (*T, error) {
	if c.breaker.Open() {
		metrics.IncRemoteFetch(c.service, "circuit_open")
		return nil, apperr.UpstreamUnavailable(c.service, errCircuitOpen)
	}

	target := c.baseURL + "/api/fetch?" + url.Values{"mobileNumber": {mobileNumber}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperr.UpstreamUnavailable(c.service, err)
	}
	req.Header.Set("Accept", "application/json")
	if correlationID != "" {
		req.Header.Set(models.CorrelationIDHeader, correlationID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// A sibling call failing in strict mode cancels this one; that is
		// not the remote service's fault.
		if !errors.Is(ctx.Err(), context.Canceled) {
			c.breaker.Fail()
		}
		return nil, c.unavailable("error", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var out T
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			c.breaker.Fail()
			return nil, c.unavailable("error", fmt.Errorf("decode response: %w", err))
		}
		c.breaker.Success()
		metrics.IncRemoteFetch(c.service, "success")
		return &out, nil
	case resp.StatusCode == http.StatusNotFound:
		c.breaker.Success()
		metrics.IncRemoteFetch(c.service, "not_found")
		return nil, apperr.NotFound(c.service, "mobileNumber", mobileNumber)
	default:
		if resp.StatusCode >= http.StatusInternalServerError {
			c.breaker.Fail()
		}
		return nil, c.unavailable("error", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

func (c *ProfileClient[T]) unavailable(outcome string, err error) error {
	metrics.IncRemoteFetch(c.service, outcome)
	c.log.Warn("remote fetch failed", "service", c.service, "error", err)
	return apperr.UpstreamUnavailable(c.service, err)
}
