package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/accounts/internal/apperr"
	"github.com/eaglebank/accounts/internal/cqrs"
	"github.com/eaglebank/accounts/internal/logger"
	"github.com/eaglebank/accounts/internal/middleware"
	"github.com/eaglebank/accounts/internal/models"
)

// CustomerQuerier defines the aggregated read used by CustomerHandler.
type CustomerQuerier interface {
	FetchCustomerDetails(context.Context, cqrs.FetchCustomerDetailsQuery) (*models.CustomerDetails, error)
}

type CustomerHandler struct {
	queries CustomerQuerier
	log     *logger.Logger
}

func NewCustomerHandler(queries CustomerQuerier, log *logger.Logger) *CustomerHandler {
	return &CustomerHandler{queries: queries, log: log}
}

func (h *CustomerHandler) FetchCustomerDetails(c *gin.Context) {
	correlationID := c.GetHeader(models.CorrelationIDHeader)
	if correlationID == "" {
		middleware.RespondWithValidationError(c, []apperr.FieldError{{
			Field:   models.CorrelationIDHeader,
			Message: "This header is required",
			Type:    "required",
		}})
		return
	}
	param, ok := bindMobileNumber(c)
	if !ok {
		return
	}

	h.log.Debug("fetchCustomerDetails start", "correlationId", correlationID)
	details, err := h.queries.FetchCustomerDetails(c.Request.Context(), cqrs.FetchCustomerDetailsQuery{
		MobileNumber:  param.MobileNumber,
		CorrelationID: correlationID,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	h.log.Debug("fetchCustomerDetails end", "correlationId", correlationID)

	c.JSON(http.StatusOK, details)
}
