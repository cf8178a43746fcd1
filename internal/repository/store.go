package repository

import (
	"context"
	"errors"

	"github.com/eaglebank/accounts/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrMobileNumberTaken is returned when a customer insert or update
	// collides with the unique mobile number constraint.
	ErrMobileNumberTaken = errors.New("mobile number already registered")

	// ErrAccountNumberTaken is returned when an account insert collides with
	// an existing account number. Callers are expected to allocate again.
	ErrAccountNumberTaken = errors.New("account number already allocated")

	ErrCustomerHasAccount = errors.New("customer already holds an account")
)

// CustomerStore persists customers. Implementations must enforce mobile
// number uniqueness themselves; a check-then-insert in the caller is not
// enough under concurrency.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomerByMobileNumber(ctx context.Context, mobileNumber string) (*models.Customer, error)
	GetCustomerByID(ctx context.Context, customerID int64) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
}

// AccountStore persists accounts. Account numbers are unique and a customer
// holds at most one account.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByNumber(ctx context.Context, accountNumber int64) (*models.Account, error)
	GetAccountByCustomerID(ctx context.Context, customerID int64) (*models.Account, error)
	UpdateAccount(ctx context.Context, account *models.Account) error
}

type Store interface {
	CustomerStore
	AccountStore

	// DeleteCustomerCascade removes the customer and any account it holds
	// as one atomic step. Returns ErrNotFound if the customer is absent.
	DeleteCustomerCascade(ctx context.Context, customerID int64) error

	// UpdateCustomerAccount writes both rows or neither. It returns
	// ErrMobileNumberTaken or ErrNotFound like the single-row updates.
	UpdateCustomerAccount(ctx context.Context, customer *models.Customer, account *models.Account) error
}
