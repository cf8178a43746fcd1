package query

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eaglebank/accounts/internal/apperr"
	"github.com/eaglebank/accounts/internal/config"
	"github.com/eaglebank/accounts/internal/cqrs"
	"github.com/eaglebank/accounts/internal/logger"
	"github.com/eaglebank/accounts/internal/models"
	"github.com/eaglebank/accounts/internal/validation"
)

// AccountFetcher is the local read side. *AccountQueryService satisfies it.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, q cqrs.FetchAccountQuery) (*models.CustomerView, error)
}

// ProfileFetcher is one remote service's view of a customer.
// *clients.ProfileClient[T] satisfies it.
type ProfileFetcher[T any] interface {
	Fetch(ctx context.Context, mobileNumber, correlationID string) (*T, error)
}

type CustomerQueryConfig struct {
	// Policy is config.PolicyPartial or config.PolicyStrict.
	Policy  string
	Timeout time.Duration
}

// CustomerQueryService composes the local customer view with the loans and
// cards owned by the remote services.
type CustomerQueryService struct {
	accounts AccountFetcher
	loans    ProfileFetcher[models.LoansDto]
	cards    ProfileFetcher[models.CardsDto]
	strict   bool
	timeout  time.Duration
	log      *logger.Logger
}

func NewCustomerQueryService(
	accounts AccountFetcher,
	loans ProfileFetcher[models.LoansDto],
	cards ProfileFetcher[models.CardsDto],
	cfg CustomerQueryConfig,
	log *logger.Logger,
) *CustomerQueryService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &CustomerQueryService{
		accounts: accounts,
		loans:    loans,
		cards:    cards,
		strict:   cfg.Policy == config.PolicyStrict,
		timeout:  cfg.Timeout,
		log:      log,
	}
}

// FetchCustomerDetails fails when the customer or account is unknown locally.
// Loans and cards are fetched concurrently. A remote not-found always leaves
// the field empty; any other remote failure leaves it empty under the partial
// policy and fails the whole call under the strict one.
func (s *CustomerQueryService) FetchCustomerDetails(ctx context.Context, q cqrs.FetchCustomerDetailsQuery) (*models.CustomerDetails, error) {
	if err := validation.Check(q); err != nil {
		return nil, err
	}

	view, err := s.accounts.FetchAccount(ctx, cqrs.FetchAccountQuery{MobileNumber: q.MobileNumber})
	if err != nil {
		return nil, err
	}
	details := &models.CustomerDetails{
		Name:         view.Name,
		Email:        view.Email,
		MobileNumber: view.MobileNumber,
		Account:      view.Account,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loans, err := fetchProfile(gctx, s, "loans", s.loans, q)
		details.Loans = loans
		return err
	})
	g.Go(func() error {
		cards, err := fetchProfile(gctx, s, "cards", s.cards, q)
		details.Cards = cards
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return details, nil
}

// fetchProfile returns a nil error whenever the policy tolerates the outcome.
func fetchProfile[T any](ctx context.Context, s *CustomerQueryService, service string, fetcher ProfileFetcher[T], q cqrs.FetchCustomerDetailsQuery) (*T, error) {
	if fetcher == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := fetcher.Fetch(ctx, q.MobileNumber, q.CorrelationID)
	switch {
	case err == nil:
		return out, nil
	case apperr.Is(err, apperr.KindNotFound):
		s.log.Debug("no remote data", "service", service, "correlationId", q.CorrelationID)
		return nil, nil
	case s.strict:
		if !apperr.Is(err, apperr.KindUpstreamUnavailable) {
			err = apperr.UpstreamUnavailable(service, err)
		}
		return nil, err
	default:
		s.log.Warn("remote data omitted", "service", service, "correlationId", q.CorrelationID, "error", err)
		return nil, nil
	}
}
