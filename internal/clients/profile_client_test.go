package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaglebank/accounts/internal/apperr"
	"github.com/eaglebank/accounts/internal/logger"
	"github.com/eaglebank/accounts/internal/models"
)

func TestFetchForwardsCorrelationID(t *testing.T) {
	var gotCorrelation, gotMobile, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCorrelation = r.Header.Get(models.CorrelationIDHeader)
		gotMobile = r.URL.Query().Get("mobileNumber")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.LoansDto{MobileNumber: "9876543210", LoanNumber: "548732457654", LoanType: "Home Loan", TotalLoan: 100000})
	}))
	defer srv.Close()

	c := NewLoansClient(srv.URL, time.Second, logger.Nop())
	loans, err := c.Fetch(context.Background(), "9876543210", "corr-1")
	require.NoError(t, err)
	assert.Equal(t, "548732457654", loans.LoanNumber)
	assert.Equal(t, int64(100000), loans.TotalLoan)
	assert.Equal(t, "corr-1", gotCorrelation)
	assert.Equal(t, "9876543210", gotMobile)
	assert.Equal(t, "/api/fetch", gotPath)
}

func TestFetchStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected apperr.Kind
	}{
		{name: "not found", status: http.StatusNotFound, expected: apperr.KindNotFound},
		{name: "server error", status: http.StatusInternalServerError, expected: apperr.KindUpstreamUnavailable},
		{name: "bad request", status: http.StatusBadRequest, expected: apperr.KindUpstreamUnavailable},
		{name: "garbage body", status: http.StatusOK, body: "{not json", expected: apperr.KindUpstreamUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewCardsClient(srv.URL, time.Second, logger.Nop())
			cards, err := c.Fetch(context.Background(), "9876543210", "")
			assert.Nil(t, cards)
			assert.Equal(t, tt.expected, apperr.KindOf(err))
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewCardsClient(srv.URL, 30*time.Millisecond, logger.Nop())
	_, err := c.Fetch(context.Background(), "9876543210", "")
	assert.True(t, apperr.Is(err, apperr.KindUpstreamUnavailable))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewLoansClient(srv.URL, time.Second, logger.Nop())
	now := time.Now()
	c.breaker.now = func() time.Time { return now }

	for i := 0; i < breakerThreshold; i++ {
		_, err := c.Fetch(context.Background(), "9876543210", "")
		require.Error(t, err)
	}
	_, err := c.Fetch(context.Background(), "9876543210", "")
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.Equal(t, int32(breakerThreshold), calls.Load())

	now = now.Add(breakerReset + time.Second)
	_, err = c.Fetch(context.Background(), "9876543210", "")
	assert.NotErrorIs(t, err, errCircuitOpen)
	assert.Equal(t, int32(breakerThreshold+1), calls.Load())
}

func TestBreakerSuccessResets(t *testing.T) {
	b := newCircuitBreaker(2, time.Minute)
	b.Fail()
	b.Success()
	b.Fail()
	assert.False(t, b.Open())
	b.Fail()
	assert.True(t, b.Open())
}
