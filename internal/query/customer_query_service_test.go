package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaglebank/accounts/internal/apperr"
	"github.com/eaglebank/accounts/internal/config"
	"github.com/eaglebank/accounts/internal/cqrs"
	"github.com/eaglebank/accounts/internal/logger"
	"github.com/eaglebank/accounts/internal/models"
	"github.com/eaglebank/accounts/internal/repository"
)

type fakeFetcher[T any] struct {
	mu            sync.Mutex
	correlationID string
	fn            func(ctx context.Context) (*T, error)
}

func (f *fakeFetcher[T]) Fetch(ctx context.Context, mobileNumber, correlationID string) (*T, error) {
	f.mu.Lock()
	f.correlationID = correlationID
	f.mu.Unlock()
	return f.fn(ctx)
}

func (f *fakeFetcher[T]) seen() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.correlationID
}

func returns[T any](v *T) func(context.Context) (*T, error) {
	return func(context.Context) (*T, error) { return v, nil }
}

func fails[T any](err error) func(context.Context) (*T, error) {
	return func(context.Context) (*T, error) { return nil, err }
}

func hangs[T any]() func(context.Context) (*T, error) {
	return func(ctx context.Context) (*T, error) {
		<-ctx.Done()
		return nil, apperr.UpstreamUnavailable("remote", ctx.Err())
	}
}

var (
	testLoans = &models.LoansDto{MobileNumber: "9876543210", LoanNumber: "548732457654", LoanType: "Home Loan", TotalLoan: 100000, OutstandingAmount: 100000}
	testCards = &models.CardsDto{MobileNumber: "9876543210", CardNumber: "100646930341", CardType: "Credit Card", TotalLimit: 100000, AvailableAmount: 100000}
)

func seededAccounts(t *testing.T) *AccountQueryService {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	c := &models.Customer{Name: "Madan Reddy", Email: "madan@example.com", MobileNumber: "9876543210"}
	require.NoError(t, store.CreateCustomer(ctx, c))
	require.NoError(t, store.CreateAccount(ctx, &models.Account{
		AccountNumber: 1234567890, CustomerID: c.CustomerID,
		AccountType: models.AccountTypeSavings, BranchAddress: models.DefaultBranchAddress,
	}))
	return NewAccountQueryService(repository.NewAccountReadRepository(store, nil))
}

func detailsQuery() cqrs.FetchCustomerDetailsQuery {
	return cqrs.FetchCustomerDetailsQuery{MobileNumber: "9876543210", CorrelationID: "corr-42"}
}

func TestFetchCustomerDetailsComposes(t *testing.T) {
	loans := &fakeFetcher[models.LoansDto]{fn: returns(testLoans)}
	cards := &fakeFetcher[models.CardsDto]{fn: returns(testCards)}
	svc := NewCustomerQueryService(seededAccounts(t), loans, cards, CustomerQueryConfig{Policy: config.PolicyPartial, Timeout: time.Second}, logger.Nop())

	details, err := svc.FetchCustomerDetails(context.Background(), detailsQuery())
	require.NoError(t, err)
	assert.Equal(t, "Madan Reddy", details.Name)
	require.NotNil(t, details.Account)
	assert.Equal(t, int64(1234567890), details.Account.AccountNumber)
	assert.Equal(t, testLoans, details.Loans)
	assert.Equal(t, testCards, details.Cards)
	assert.Equal(t, "corr-42", loans.seen())
	assert.Equal(t, "corr-42", cards.seen())
}

func TestFetchCustomerDetailsRemoteTimeout(t *testing.T) {
	tests := []struct {
		name    string
		policy  string
		wantErr bool
	}{
		{name: "partial omits cards", policy: config.PolicyPartial},
		{name: "strict fails", policy: config.PolicyStrict, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loans := &fakeFetcher[models.LoansDto]{fn: returns(testLoans)}
			cards := &fakeFetcher[models.CardsDto]{fn: hangs[models.CardsDto]()}
			svc := NewCustomerQueryService(seededAccounts(t), loans, cards, CustomerQueryConfig{Policy: tt.policy, Timeout: 50 * time.Millisecond}, logger.Nop())

			start := time.Now()
			details, err := svc.FetchCustomerDetails(context.Background(), detailsQuery())
			assert.Less(t, time.Since(start), 2*time.Second)

			if tt.wantErr {
				assert.Nil(t, details)
				assert.True(t, apperr.Is(err, apperr.KindUpstreamUnavailable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testLoans, details.Loans)
			assert.Nil(t, details.Cards)
			assert.Equal(t, int64(1234567890), details.Account.AccountNumber)
		})
	}
}

func TestFetchCustomerDetailsRemoteNotFoundIsNoData(t *testing.T) {
	for _, policy := range []string{config.PolicyPartial, config.PolicyStrict} {
		loans := &fakeFetcher[models.LoansDto]{fn: fails[models.LoansDto](apperr.NotFound("loans", "mobileNumber", "9876543210"))}
		cards := &fakeFetcher[models.CardsDto]{fn: returns(testCards)}
		svc := NewCustomerQueryService(seededAccounts(t), loans, cards, CustomerQueryConfig{Policy: policy, Timeout: time.Second}, logger.Nop())

		details, err := svc.FetchCustomerDetails(context.Background(), detailsQuery())
		require.NoError(t, err, policy)
		assert.Nil(t, details.Loans, policy)
		assert.Equal(t, testCards, details.Cards, policy)
	}
}

func TestFetchCustomerDetailsStrictWrapsPlainErrors(t *testing.T) {
	loans := &fakeFetcher[models.LoansDto]{fn: fails[models.LoansDto](errors.New("connection refused"))}
	cards := &fakeFetcher[models.CardsDto]{fn: hangs[models.CardsDto]()}
	svc := NewCustomerQueryService(seededAccounts(t), loans, cards, CustomerQueryConfig{Policy: config.PolicyStrict, Timeout: 5 * time.Second}, logger.Nop())

	start := time.Now()
	_, err := svc.FetchCustomerDetails(context.Background(), detailsQuery())
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindUpstreamUnavailable, appErr.Kind)
	assert.Equal(t, "loans", appErr.Resource)
	// The hanging cards call is cancelled rather than waited out.
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetchCustomerDetailsLocalNotFound(t *testing.T) {
	called := false
	loans := &fakeFetcher[models.LoansDto]{fn: func(context.Context) (*models.LoansDto, error) { called = true; return testLoans, nil }}
	cards := &fakeFetcher[models.CardsDto]{fn: returns(testCards)}
	svc := NewCustomerQueryService(seededAccounts(t), loans, cards, CustomerQueryConfig{}, logger.Nop())

	_, err := svc.FetchCustomerDetails(context.Background(), cqrs.FetchCustomerDetailsQuery{MobileNumber: "9123456780", CorrelationID: "c"})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)
	assert.Equal(t, "Customer", appErr.Resource)
	assert.False(t, called)

	_, err = svc.FetchCustomerDetails(context.Background(), cqrs.FetchCustomerDetailsQuery{MobileNumber: "12345"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
