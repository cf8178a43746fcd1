package models

import "time"

const (
	AccountTypeSavings   = "Savings"
	DefaultBranchAddress = "123 Main Street, New York"

	// CorrelationIDHeader ties together the calls made on behalf of one
	// client request across services.
	CorrelationIDHeader = "eazybank-correlation-id"

	// Auditor recorded in the audit columns of every row this service writes.
	Auditor = "ACCOUNTS_MS"
)

// Audit carries the bookkeeping columns the store layer stamps on every row.
type Audit struct {
	CreatedAt time.Time `json:"-"`
	CreatedBy string    `json:"-"`
	UpdatedAt time.Time `json:"-"`
	UpdatedBy string    `json:"-"`
}

type Customer struct {
	CustomerID   int64  `json:"-"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
	Audit        Audit  `json:"-"`
}

type Account struct {
	AccountNumber   int64  `json:"accountNumber"`
	CustomerID      int64  `json:"-"`
	AccountType     string `json:"accountType"`
	BranchAddress   string `json:"branchAddress"`
	CommunicationSw bool   `json:"-"`
	Audit           Audit  `json:"-"`
}

// AccountsMsg is the payload handed to the communication channel after an
// account has been opened.
type AccountsMsg struct {
	AccountNumber int64  `json:"accountNumber"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	MobileNumber  string `json:"mobileNumber"`
}
