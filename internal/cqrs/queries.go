package cqrs

// FetchAccountQuery fetches the customer view for a mobile number.
type FetchAccountQuery struct {
	MobileNumber string `validate:"required,mobile"`
}

// FetchCustomerDetailsQuery fetches the customer view enriched with loans and
// cards data. CorrelationID is forwarded unchanged to both remote services.
type FetchCustomerDetailsQuery struct {
	MobileNumber  string `validate:"required,mobile"`
	CorrelationID string
}
