package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/eaglebank/accounts/internal/apperr"
	"github.com/eaglebank/accounts/internal/models"
)

// ViewCache is the read model cache. *redis.ViewCache[models.CustomerView]
// satisfies it. Fills are conditional on the version read before the store
// lookup; Invalidate bumps that version.
type ViewCache interface {
	Get(ctx context.Context, key string) (*models.CustomerView, bool)
	Version(ctx context.Context, key string) (int64, bool)
	SetIfVersion(ctx context.Context, key string, version int64, value *models.CustomerView) bool
	Invalidate(ctx context.Context, keys ...string)
}

// NopCache disables the read model; every read goes to the store.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*models.CustomerView, bool)               { return nil, false }
func (NopCache) Version(context.Context, string) (int64, bool)                          { return 0, false }
func (NopCache) SetIfVersion(context.Context, string, int64, *models.CustomerView) bool { return false }
func (NopCache) Invalidate(context.Context, ...string)                                  {}

// customerViewKey hash-tags the mobile number so a view and its version share
// a cluster slot.
func customerViewKey(mobileNumber string) string {
	return "customer:view:{" + mobileNumber + "}"
}

// AccountReadRepository serves customer views keyed by mobile number. The
// cache is consulted first; a miss falls back to the store and fills the
// cache unless a write invalidated the key in the meantime. Only the command
// side invalidates.
type AccountReadRepository struct {
	store Store
	cache ViewCache
}

func NewAccountReadRepository(store Store, cache ViewCache) *AccountReadRepository {
	if cache == nil {
		cache = NopCache{}
	}
	return &AccountReadRepository{store: store, cache: cache}
}

// GetByMobileNumber returns the customer view for mobileNumber. A missing
// customer and a customer without an account are reported as distinct
// not-found errors.
func (r *AccountReadRepository) GetByMobileNumber(ctx context.Context, mobileNumber string) (*models.CustomerView, error) {
	key := customerViewKey(mobileNumber)
	if view, ok := r.cache.Get(ctx, key); ok {
		return view, nil
	}
	// Read before the store so a write that commits during the lookup
	// bumps it and the fill below is refused.
	version, fillable := r.cache.Version(ctx, key)

	customer, err := r.store.GetCustomerByMobileNumber(ctx, mobileNumber)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Customer", "mobileNumber", mobileNumber)
	}
	if err != nil {
		return nil, err
	}
	account, err := r.store.GetAccountByCustomerID(ctx, customer.CustomerID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Account", "customerId", strconv.FormatInt(customer.CustomerID, 10))
	}
	if err != nil {
		return nil, err
	}

	view := models.CustomerToView(customer, account)
	if fillable {
		r.cache.SetIfVersion(ctx, key, version, view)
	}
	return view, nil
}

// InvalidateCustomerView drops the read model entries for the given mobile
// numbers. Call it after the store write has committed.
func (r *AccountReadRepository) InvalidateCustomerView(ctx context.Context, mobileNumbers ...string) {
	keys := make([]string, 0, len(mobileNumbers))
	for _, m := range mobileNumbers {
		keys = append(keys, customerViewKey(m))
	}
	r.cache.Invalidate(ctx, keys...)
}
