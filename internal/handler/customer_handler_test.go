package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/accounts/internal/apperr"
	"github.com/eaglebank/accounts/internal/cqrs"
	"github.com/eaglebank/accounts/internal/logger"
	"github.com/eaglebank/accounts/internal/models"
)

type mockCustomerQuerier struct {
	detailsFn func(cqrs.FetchCustomerDetailsQuery) (*models.CustomerDetails, error)
}

func (m *mockCustomerQuerier) FetchCustomerDetails(_ context.Context, q cqrs.FetchCustomerDetailsQuery) (*models.CustomerDetails, error) {
	if m.detailsFn != nil {
		return m.detailsFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

func newCustomerTestRouter(qrys CustomerQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewCustomerHandler(qrys, logger.Nop())
	r.GET("/api/fetchCustomerDetails", h.FetchCustomerDetails)
	return r
}

func custDoRequest(router *gin.Engine, url, correlationID string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if correlationID != "" {
		req.Header.Set(models.CorrelationIDHeader, correlationID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var aTestCustomerDetails = &models.CustomerDetails{
	Name: "Madan Reddy", Email: "madan@example.com", MobileNumber: "9876543210",
	Account: &models.AccountView{AccountNumber: 1234567890, AccountType: models.AccountTypeSavings, BranchAddress: models.DefaultBranchAddress},
	Loans:   &models.LoansDto{MobileNumber: "9876543210", LoanNumber: "548732457654", LoanType: "Home Loan", TotalLoan: 100000},
}

func TestFetchCustomerDetails(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		correlationID  string
		detailsFn      func(cqrs.FetchCustomerDetailsQuery) (*models.CustomerDetails, error)
		expectedStatus int
	}{
		{
			name:          "success - aggregated details",
			url:           "/api/fetchCustomerDetails?mobileNumber=9876543210",
			correlationID: "corr-1",
			detailsFn: func(q cqrs.FetchCustomerDetailsQuery) (*models.CustomerDetails, error) {
				if q.CorrelationID != "corr-1" {
					return nil, errors.New("correlation id not forwarded")
				}
				return aTestCustomerDetails, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad request - missing correlation header",
			url:            "/api/fetchCustomerDetails?mobileNumber=9876543210",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - malformed mobile number",
			url:            "/api/fetchCustomerDetails?mobileNumber=98",
			correlationID:  "corr-1",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:          "not found - unknown customer",
			url:           "/api/fetchCustomerDetails?mobileNumber=9876543210",
			correlationID: "corr-1",
			detailsFn: func(q cqrs.FetchCustomerDetailsQuery) (*models.CustomerDetails, error) {
				return nil, apperr.NotFound("Customer", "mobileNumber", q.MobileNumber)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:          "service unavailable - strict policy remote failure",
			url:           "/api/fetchCustomerDetails?mobileNumber=9876543210",
			correlationID: "corr-1",
			detailsFn: func(q cqrs.FetchCustomerDetailsQuery) (*models.CustomerDetails, error) {
				return nil, apperr.UpstreamUnavailable("cards", context.DeadlineExceeded)
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newCustomerTestRouter(&mockCustomerQuerier{detailsFn: tt.detailsFn})
			w := custDoRequest(router, tt.url, tt.correlationID)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestFetchCustomerDetailsOmitsMissingCards(t *testing.T) {
	router := newCustomerTestRouter(&mockCustomerQuerier{detailsFn: func(cqrs.FetchCustomerDetailsQuery) (*models.CustomerDetails, error) {
		return aTestCustomerDetails, nil
	}})
	w := custDoRequest(router, "/api/fetchCustomerDetails?mobileNumber=9876543210", "corr-1")

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["loansDto"]; !ok {
		t.Errorf("expected loansDto in %s", w.Body.String())
	}
	if _, ok := body["cardsDto"]; ok {
		t.Errorf("expected cardsDto to be omitted in %s", w.Body.String())
	}
}
