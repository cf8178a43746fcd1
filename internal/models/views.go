package models

// AccountView is the public projection of an account.
type AccountView struct {
	AccountNumber int64  `json:"accountNumber" validate:"required,gte=1000000000,lte=9999999999"`
	AccountType   string `json:"accountType" validate:"required"`
	BranchAddress string `json:"branchAddress" validate:"required"`
}

// CustomerView is the read-optimised projection of a customer together with
// the account they hold.
type CustomerView struct {
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	MobileNumber string       `json:"mobileNumber"`
	Account      *AccountView `json:"accountsDto,omitempty"`
}

// LoansDto is owned by the loans service and embedded as received.
type LoansDto struct {
	MobileNumber      string `json:"mobileNumber"`
	LoanNumber        string `json:"loanNumber"`
	LoanType          string `json:"loanType"`
	TotalLoan         int64  `json:"totalLoan"`
	AmountPaid        int64  `json:"amountPaid"`
	OutstandingAmount int64  `json:"outstandingAmount"`
}

// CardsDto is owned by the cards service and embedded as received.
type CardsDto struct {
	MobileNumber    string `json:"mobileNumber"`
	CardNumber      string `json:"cardNumber"`
	CardType        string `json:"cardType"`
	TotalLimit      int64  `json:"totalLimit"`
	AmountUsed      int64  `json:"amountUsed"`
	AvailableAmount int64  `json:"availableAmount"`
}

// CustomerDetails is the aggregated profile returned by fetchCustomerDetails.
// Loans and Cards stay nil when the owning service had nothing to contribute.
type CustomerDetails struct {
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	MobileNumber string       `json:"mobileNumber"`
	Account      *AccountView `json:"accountsDto,omitempty"`
	Loans        *LoansDto    `json:"loansDto,omitempty"`
	Cards        *CardsDto    `json:"cardsDto,omitempty"`
}

func CustomerToView(c *Customer, a *Account) *CustomerView {
	view := &CustomerView{
		Name:         c.Name,
		Email:        c.Email,
		MobileNumber: c.MobileNumber,
	}
	if a != nil {
		view.Account = &AccountView{
			AccountNumber: a.AccountNumber,
			AccountType:   a.AccountType,
			BranchAddress: a.BranchAddress,
		}
	}
	return view
}

// ResponseDto is the acknowledgement body for write endpoints.
type ResponseDto struct {
	StatusCode string `json:"statusCode"`
	StatusMsg  string `json:"statusMsg"`
}

const (
	Status201        = "201"
	Message201       = "Account created successfully"
	Status200        = "200"
	Message200       = "Request processed successfully"
	Status417        = "417"
	Message417Update = "Update operation failed. Please try again or contact Dev team"
	Message417Delete = "Delete operation failed. Please try again or contact Dev team"
)

// ContactInfo is served from /api/contact-info.
type ContactInfo struct {
	Message        string            `json:"message"`
	ContactDetails map[string]string `json:"contactDetails"`
	OnCallSupport  []string          `json:"onCallSupport"`
}
