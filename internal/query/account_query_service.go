package query

import (
	"context"

	"github.com/eaglebank/accounts/internal/cqrs"
	"github.com/eaglebank/accounts/internal/models"
	"github.com/eaglebank/accounts/internal/repository"
	"github.com/eaglebank/accounts/internal/validation"
)

type AccountQueryService struct {
	readRepo *repository.AccountReadRepository
}

func NewAccountQueryService(readRepo *repository.AccountReadRepository) *AccountQueryService {
	return &AccountQueryService{readRepo: readRepo}
}

// FetchAccount returns the customer view registered under the mobile number.
func (s *AccountQueryService) FetchAccount(ctx context.Context, q cqrs.FetchAccountQuery) (*models.CustomerView, error) {
	if err := validation.Check(q); err != nil {
		return nil, err
	}
	return s.readRepo.GetByMobileNumber(ctx, q.MobileNumber)
}
