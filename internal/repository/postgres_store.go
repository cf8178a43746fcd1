package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/eaglebank/accounts/internal/models"
)

//go:embed schema.sql
var schema string

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// PostgresStore is the source of truth for customers and accounts. Unique
// constraints on mobile_number, account_number and customer_id carry the
// guarantees; the store never relies on a prior lookup.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO customers (name, email, mobile_number, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (mobile_number) DO NOTHING
		RETURNING customer_id
	`
	err := s.db.QueryRowContext(ctx, query,
		customer.Name, customer.Email, customer.MobileNumber, now, models.Auditor,
	).Scan(&customer.CustomerID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMobileNumberTaken
	}
	if err != nil {
		if isPQCode(err, pqUniqueViolation) {
			return ErrMobileNumberTaken
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}
	customer.Audit = models.Audit{CreatedAt: now, CreatedBy: models.Auditor}
	return nil
}

const customerColumns = `customer_id, name, email, mobile_number, created_at, created_by, updated_at, updated_by`

func (s *PostgresStore) GetCustomerByMobileNumber(ctx context.Context, mobileNumber string) (*models.Customer, error) {
	return s.getCustomer(ctx, `SELECT `+customerColumns+` FROM customers WHERE mobile_number = $1`, mobileNumber)
}

func (s *PostgresStore) GetCustomerByID(ctx context.Context, customerID int64) (*models.Customer, error) {
	return s.getCustomer(ctx, `SELECT `+customerColumns+` FROM customers WHERE customer_id = $1`, customerID)
}

func (s *PostgresStore) getCustomer(ctx context.Context, query string, arg any) (*models.Customer, error) {
	var (
		c         models.Customer
		updatedAt sql.NullTime
		updatedBy sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&c.CustomerID, &c.Name, &c.Email, &c.MobileNumber,
		&c.Audit.CreatedAt, &c.Audit.CreatedBy, &updatedAt, &updatedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	c.Audit.UpdatedAt = updatedAt.Time
	c.Audit.UpdatedBy = updatedBy.String
	return &c, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	return updateCustomer(ctx, s.db, customer, time.Now().UTC())
}

func updateCustomer(ctx context.Context, db execer, customer *models.Customer, now time.Time) error {
	query := `
		UPDATE customers
		SET name = $2, email = $3, mobile_number = $4, updated_at = $5, updated_by = $6
		WHERE customer_id = $1
	`
	result, err := db.ExecContext(ctx, query,
		customer.CustomerID, customer.Name, customer.Email, customer.MobileNumber, now, models.Auditor,
	)
	if err != nil {
		if isPQCode(err, pqUniqueViolation) {
			return ErrMobileNumberTaken
		}
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}
	customer.Audit.UpdatedAt = now
	customer.Audit.UpdatedBy = models.Auditor
	return nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, account *models.Account) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO accounts (account_number, customer_id, account_type, branch_address, communication_sw, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_number) DO NOTHING
		RETURNING account_number
	`
	var inserted int64
	err := s.db.QueryRowContext(ctx, query,
		account.AccountNumber, account.CustomerID, account.AccountType, account.BranchAddress,
		account.CommunicationSw, now, models.Auditor,
	).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccountNumberTaken
	}
	if err != nil {
		switch {
		case isPQCode(err, pqUniqueViolation):
			return ErrCustomerHasAccount
		case isPQCode(err, pqForeignKeyViolation):
			return ErrNotFound
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	account.Audit = models.Audit{CreatedAt: now, CreatedBy: models.Auditor}
	return nil
}

const accountColumns = `account_number, customer_id, account_type, branch_address, communication_sw, created_at, created_by, updated_at, updated_by`

func (s *PostgresStore) GetAccountByNumber(ctx context.Context, accountNumber int64) (*models.Account, error) {
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, accountNumber)
}

func (s *PostgresStore) GetAccountByCustomerID(ctx context.Context, customerID int64) (*models.Account, error) {
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE customer_id = $1`, customerID)
}

func (s *PostgresStore) getAccount(ctx context.Context, query string, arg any) (*models.Account, error) {
	var (
		a         models.Account
		updatedAt sql.NullTime
		updatedBy sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&a.AccountNumber, &a.CustomerID, &a.AccountType, &a.BranchAddress, &a.CommunicationSw,
		&a.Audit.CreatedAt, &a.Audit.CreatedBy, &updatedAt, &updatedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	a.Audit.UpdatedAt = updatedAt.Time
	a.Audit.UpdatedBy = updatedBy.String
	return &a, nil
}

// UpdateAccount writes the mutable account columns. The account number and
// owning customer never change.
func (s *PostgresStore) UpdateAccount(ctx context.Context, account *models.Account) error {
	return updateAccount(ctx, s.db, account, time.Now().UTC())
}

func updateAccount(ctx context.Context, db execer, account *models.Account, now time.Time) error {
	query := `
		UPDATE accounts
		SET account_type = $2, branch_address = $3, communication_sw = $4, updated_at = $5, updated_by = $6
		WHERE account_number = $1
	`
	result, err := db.ExecContext(ctx, query,
		account.AccountNumber, account.AccountType, account.BranchAddress, account.CommunicationSw, now, models.Auditor,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}
	account.Audit.UpdatedAt = now
	account.Audit.UpdatedBy = models.Auditor
	return nil
}

func (s *PostgresStore) UpdateCustomerAccount(ctx context.Context, customer *models.Customer, account *models.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin update: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if err := updateCustomer(ctx, tx, customer, now); err != nil {
		return err
	}
	if err := updateAccount(ctx, tx, account, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCustomerCascade(ctx context.Context, customerID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE customer_id = $1`, customerID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE customer_id = $1`, customerID)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func isPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
