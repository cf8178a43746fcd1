package cqrs

import "github.com/eaglebank/accounts/internal/models"

type CreateAccountCommand struct {
	Name         string `validate:"required,min=5,max=30"`
	Email        string `validate:"required,email"`
	MobileNumber string `validate:"required,mobile"`
}

// UpdateAccountCommand carries the full customer view. A nil Account means
// there is nothing to update.
type UpdateAccountCommand struct {
	Name         string `validate:"required,min=5,max=30"`
	Email        string `validate:"required,email"`
	MobileNumber string `validate:"required,mobile"`
	Account      *models.AccountView
}

type DeleteAccountCommand struct {
	MobileNumber string `validate:"required,mobile"`
}
