package repository

import (
	"context"
	"sync"
	"time"

	"github.com/eaglebank/accounts/internal/models"
)

// MemoryStore is an in-process Store used for local runs and tests. A single
// mutex makes every method atomic, including DeleteCustomerCascade.
type MemoryStore struct {
	mu         sync.Mutex
	nextID     int64
	customers  map[int64]models.Customer
	byMobile   map[string]int64
	accounts   map[int64]models.Account
	byCustomer map[int64]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:  make(map[int64]models.Customer),
		byMobile:   make(map[string]int64),
		accounts:   make(map[int64]models.Account),
		byCustomer: make(map[int64]int64),
	}
}

func (s *MemoryStore) CreateCustomer(_ context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byMobile[customer.MobileNumber]; taken {
		return ErrMobileNumberTaken
	}
	s.nextID++
	customer.CustomerID = s.nextID
	customer.Audit = models.Audit{CreatedAt: time.Now().UTC(), CreatedBy: models.Auditor}
	s.customers[customer.CustomerID] = *customer
	s.byMobile[customer.MobileNumber] = customer.CustomerID
	return nil
}

func (s *MemoryStore) GetCustomerByMobileNumber(_ context.Context, mobileNumber string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byMobile[mobileNumber]
	if !ok {
		return nil, ErrNotFound
	}
	c := s.customers[id]
	return &c, nil
}

func (s *MemoryStore) GetCustomerByID(_ context.Context, customerID int64) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) UpdateCustomer(_ context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCustomerUpdate(customer); err != nil {
		return err
	}
	s.applyCustomerUpdate(customer)
	return nil
}

func (s *MemoryStore) checkCustomerUpdate(customer *models.Customer) error {
	if _, ok := s.customers[customer.CustomerID]; !ok {
		return ErrNotFound
	}
	if owner, taken := s.byMobile[customer.MobileNumber]; taken && owner != customer.CustomerID {
		return ErrMobileNumberTaken
	}
	return nil
}

func (s *MemoryStore) applyCustomerUpdate(customer *models.Customer) {
	current := s.customers[customer.CustomerID]
	delete(s.byMobile, current.MobileNumber)
	customer.Audit.CreatedAt = current.Audit.CreatedAt
	customer.Audit.CreatedBy = current.Audit.CreatedBy
	customer.Audit.UpdatedAt = time.Now().UTC()
	customer.Audit.UpdatedBy = models.Auditor
	s.customers[customer.CustomerID] = *customer
	s.byMobile[customer.MobileNumber] = customer.CustomerID
}

func (s *MemoryStore) CreateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[account.CustomerID]; !ok {
		return ErrNotFound
	}
	if _, taken := s.accounts[account.AccountNumber]; taken {
		return ErrAccountNumberTaken
	}
	if _, has := s.byCustomer[account.CustomerID]; has {
		return ErrCustomerHasAccount
	}
	account.Audit = models.Audit{CreatedAt: time.Now().UTC(), CreatedBy: models.Auditor}
	s.accounts[account.AccountNumber] = *account
	s.byCustomer[account.CustomerID] = account.AccountNumber
	return nil
}

func (s *MemoryStore) GetAccountByNumber(_ context.Context, accountNumber int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountNumber]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) GetAccountByCustomerID(_ context.Context, customerID int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	number, ok := s.byCustomer[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	a := s.accounts[number]
	return &a, nil
}

func (s *MemoryStore) UpdateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.AccountNumber]; !ok {
		return ErrNotFound
	}
	s.applyAccountUpdate(account)
	return nil
}

func (s *MemoryStore) applyAccountUpdate(account *models.Account) {
	current := s.accounts[account.AccountNumber]
	current.AccountType = account.AccountType
	current.BranchAddress = account.BranchAddress
	current.CommunicationSw = account.CommunicationSw
	current.Audit.UpdatedAt = time.Now().UTC()
	current.Audit.UpdatedBy = models.Auditor
	s.accounts[account.AccountNumber] = current
	*account = current
}

// UpdateCustomerAccount checks both writes before applying either, so a
// rejected customer change leaves the account untouched.
func (s *MemoryStore) UpdateCustomerAccount(_ context.Context, customer *models.Customer, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCustomerUpdate(customer); err != nil {
		return err
	}
	if _, ok := s.accounts[account.AccountNumber]; !ok {
		return ErrNotFound
	}
	s.applyCustomerUpdate(customer)
	s.applyAccountUpdate(account)
	return nil
}

func (s *MemoryStore) DeleteCustomerCascade(_ context.Context, customerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[customerID]
	if !ok {
		return ErrNotFound
	}
	if number, has := s.byCustomer[customerID]; has {
		delete(s.accounts, number)
		delete(s.byCustomer, customerID)
	}
	delete(s.byMobile, c.MobileNumber)
	delete(s.customers, customerID)
	return nil
}
