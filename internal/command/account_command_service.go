package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/eaglebank/accounts/internal/allocator"
	"github.com/eaglebank/accounts/internal/apperr"
	"github.com/eaglebank/accounts/internal/cqrs"
	"github.com/eaglebank/accounts/internal/events"
	"github.com/eaglebank/accounts/internal/logger"
	"github.com/eaglebank/accounts/internal/metrics"
	"github.com/eaglebank/accounts/internal/models"
	"github.com/eaglebank/accounts/internal/repository"
	"github.com/eaglebank/accounts/internal/validation"
)

// MaxAllocationAttempts bounds how many account numbers are tried before a
// create gives up.
const MaxAllocationAttempts = 5

// Notifier hands a new account to the message service. *notify.Dispatcher
// satisfies it.
type Notifier interface {
	Dispatch(ctx context.Context, msg models.AccountsMsg) bool
}

// AccountCommandService writes customer and account state and keeps the read
// model in sync.
type AccountCommandService struct {
	store     repository.Store
	readRepo  *repository.AccountReadRepository
	allocator allocator.Allocator
	notifier  Notifier
	log       *logger.Logger
}

func NewAccountCommandService(
	store repository.Store,
	readRepo *repository.AccountReadRepository,
	alloc allocator.Allocator,
	notifier Notifier,
	log *logger.Logger,
) *AccountCommandService {
	return &AccountCommandService{
		store:     store,
		readRepo:  readRepo,
		allocator: alloc,
		notifier:  notifier,
		log:       log,
	}
}

// CreateAccount registers a customer and opens a savings account for them.
// The communication request is sent after both rows are committed and its
// failure does not fail the create.
func (s *AccountCommandService) CreateAccount(ctx context.Context, cmd cqrs.CreateAccountCommand) error {
	if err := validation.Check(cmd); err != nil {
		return err
	}

	_, err := s.store.GetCustomerByMobileNumber(ctx, cmd.MobileNumber)
	if err == nil {
		return alreadyRegistered(cmd.MobileNumber)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	customer := &models.Customer{
		Name:         cmd.Name,
		Email:        cmd.Email,
		MobileNumber: cmd.MobileNumber,
	}
	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		if errors.Is(err, repository.ErrMobileNumberTaken) {
			return alreadyRegistered(cmd.MobileNumber)
		}
		return err
	}

	account, err := s.openAccount(ctx, customer.CustomerID)
	if err != nil {
		// Do not leave a customer without an account behind.
		if delErr := s.store.DeleteCustomerCascade(context.WithoutCancel(ctx), customer.CustomerID); delErr != nil {
			s.log.Error("failed to remove customer after account creation failed", "customerId", customer.CustomerID, "error", delErr)
		}
		return err
	}

	// Drops anything a racing read cached for this number while it was free.
	s.readRepo.InvalidateCustomerView(context.WithoutCancel(ctx), customer.MobileNumber)
	s.log.Info("account created", "accountNumber", account.AccountNumber, "customerId", customer.CustomerID)

	s.notifier.Dispatch(ctx, models.AccountsMsg{
		AccountNumber: account.AccountNumber,
		Name:          customer.Name,
		Email:         customer.Email,
		MobileNumber:  customer.MobileNumber,
	})
	return nil
}

// openAccount allocates account numbers until one is free or the attempts run
// out.
func (s *AccountCommandService) openAccount(ctx context.Context, customerID int64) (*models.Account, error) {
	for attempt := 1; attempt <= MaxAllocationAttempts; attempt++ {
		account := &models.Account{
			AccountNumber: s.allocator.Allocate(),
			CustomerID:    customerID,
			AccountType:   models.AccountTypeSavings,
			BranchAddress: models.DefaultBranchAddress,
		}
		err := s.store.CreateAccount(ctx, account)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, repository.ErrAccountNumberTaken) {
			return nil, fmt.Errorf("create account: %w", err)
		}
		metrics.IncAccountNumberCollision()
		s.log.Warn("account number collision", "accountNumber", account.AccountNumber, "attempt", attempt)
	}
	return nil, apperr.AllocationExhausted(MaxAllocationAttempts)
}

// UpdateAccount applies the account and customer fields of cmd. It returns
// false without touching anything when cmd carries no account.
func (s *AccountCommandService) UpdateAccount(ctx context.Context, cmd cqrs.UpdateAccountCommand) (bool, error) {
	if cmd.Account == nil {
		return false, nil
	}
	if err := validation.Check(cmd); err != nil {
		return false, err
	}

	accountNumber := cmd.Account.AccountNumber
	account, err := s.store.GetAccountByNumber(ctx, accountNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return false, apperr.NotFound("Account", "accountNumber", strconv.FormatInt(accountNumber, 10))
	}
	if err != nil {
		return false, err
	}
	customer, err := s.store.GetCustomerByID(ctx, account.CustomerID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, apperr.NotFound("Customer", "customerId", strconv.FormatInt(account.CustomerID, 10))
	}
	if err != nil {
		return false, err
	}

	oldMobile := customer.MobileNumber
	if cmd.MobileNumber != oldMobile {
		owner, err := s.store.GetCustomerByMobileNumber(ctx, cmd.MobileNumber)
		if err == nil && owner.CustomerID != customer.CustomerID {
			return false, alreadyRegistered(cmd.MobileNumber)
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return false, err
		}
	}

	account.AccountType = cmd.Account.AccountType
	account.BranchAddress = cmd.Account.BranchAddress
	customer.Name = cmd.Name
	customer.Email = cmd.Email
	customer.MobileNumber = cmd.MobileNumber
	err = s.store.UpdateCustomerAccount(ctx, customer, account)
	if errors.Is(err, repository.ErrMobileNumberTaken) {
		return false, alreadyRegistered(cmd.MobileNumber)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, apperr.NotFound("Account", "accountNumber", strconv.FormatInt(accountNumber, 10))
	}
	if err != nil {
		return false, err
	}

	s.readRepo.InvalidateCustomerView(context.WithoutCancel(ctx), oldMobile, customer.MobileNumber)
	s.log.Info("account updated", "accountNumber", accountNumber, "customerId", customer.CustomerID)
	return true, nil
}

// DeleteAccount removes the customer registered under the mobile number and
// the account they hold in one step.
func (s *AccountCommandService) DeleteAccount(ctx context.Context, cmd cqrs.DeleteAccountCommand) (bool, error) {
	if err := validation.Check(cmd); err != nil {
		return false, err
	}

	customer, err := s.store.GetCustomerByMobileNumber(ctx, cmd.MobileNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return false, apperr.NotFound("Customer", "mobileNumber", cmd.MobileNumber)
	}
	if err != nil {
		return false, err
	}

	err = s.store.DeleteCustomerCascade(ctx, customer.CustomerID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, apperr.NotFound("Customer", "mobileNumber", cmd.MobileNumber)
	}
	if err != nil {
		return false, err
	}

	s.readRepo.InvalidateCustomerView(context.WithoutCancel(ctx), cmd.MobileNumber)
	s.log.Info("account deleted", "customerId", customer.CustomerID)
	return true, nil
}

// MarkCommunicated records that the welcome communication for the account
// went out. An absent account number (0) is a no-op reported as false.
func (s *AccountCommandService) MarkCommunicated(ctx context.Context, accountNumber int64) (bool, error) {
	if accountNumber == 0 {
		return false, nil
	}
	account, err := s.store.GetAccountByNumber(ctx, accountNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return false, apperr.NotFound("Account", "accountNumber", strconv.FormatInt(accountNumber, 10))
	}
	if err != nil {
		return false, err
	}
	account.CommunicationSw = true
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return false, err
	}
	return true, nil
}

// HandleCommunicationEvent consumes the message service's completion channel.
// Events for accounts that no longer exist are acknowledged and dropped;
// store failures are returned so the event is redelivered.
func (s *AccountCommandService) HandleCommunicationEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.CommunicationSent {
		s.log.Debug("ignoring event", "type", event.Type)
		return nil
	}
	var data events.CommunicationSentEvent
	if err := events.DecodeData(event, &data); err != nil {
		return err
	}

	s.log.Info("updating communication status", "accountNumber", data.AccountNumber)
	updated, err := s.MarkCommunicated(ctx, data.AccountNumber)
	if apperr.Is(err, apperr.KindNotFound) {
		s.log.Warn("communication event for unknown account", "accountNumber", data.AccountNumber)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark communicated: %w", err)
	}
	if !updated {
		s.log.Warn("communication event without account number")
	}
	return nil
}

func alreadyRegistered(mobileNumber string) error {
	return apperr.AlreadyExists("Customer already registered with given mobileNumber " + mobileNumber)
}
