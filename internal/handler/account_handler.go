package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/accounts/internal/cqrs"
	"github.com/eaglebank/accounts/internal/middleware"
	"github.com/eaglebank/accounts/internal/models"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) error
	UpdateAccount(context.Context, cqrs.UpdateAccountCommand) (bool, error)
	DeleteAccount(context.Context, cqrs.DeleteAccountCommand) (bool, error)
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	FetchAccount(context.Context, cqrs.FetchAccountQuery) (*models.CustomerView, error)
}

// ServiceInfo is the static data served by the info endpoints.
type ServiceInfo struct {
	BuildVersion   string
	RuntimeVersion string
	Contact        models.ContactInfo
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
	info     ServiceInfo
}

type CreateAccountRequest struct {
	Name         string `json:"name" validate:"required,min=5,max=30"`
	Email        string `json:"email" validate:"required,email"`
	MobileNumber string `json:"mobileNumber" validate:"required,mobile"`
}

type UpdateAccountRequest struct {
	Name         string              `json:"name" validate:"required,min=5,max=30"`
	Email        string              `json:"email" validate:"required,email"`
	MobileNumber string              `json:"mobileNumber" validate:"required,mobile"`
	Account      *models.AccountView `json:"accountsDto"`
}

type mobileNumberParam struct {
	MobileNumber string `form:"mobileNumber" validate:"required,mobile"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier, info ServiceInfo) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries, info: info}
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	err := h.commands.CreateAccount(c.Request.Context(), cqrs.CreateAccountCommand{
		Name:         req.Name,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.ResponseDto{StatusCode: models.Status201, StatusMsg: models.Message201})
}

func (h *AccountHandler) FetchAccount(c *gin.Context) {
	param, ok := bindMobileNumber(c)
	if !ok {
		return
	}

	view, err := h.queries.FetchAccount(c.Request.Context(), cqrs.FetchAccountQuery{MobileNumber: param.MobileNumber})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	updated, err := h.commands.UpdateAccount(c.Request.Context(), cqrs.UpdateAccountCommand{
		Name:         req.Name,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		Account:      req.Account,
	})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	if !updated {
		c.JSON(http.StatusExpectationFailed, models.ResponseDto{StatusCode: models.Status417, StatusMsg: models.Message417Update})
		return
	}

	c.JSON(http.StatusOK, models.ResponseDto{StatusCode: models.Status200, StatusMsg: models.Message200})
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	param, ok := bindMobileNumber(c)
	if !ok {
		return
	}

	deleted, err := h.commands.DeleteAccount(c.Request.Context(), cqrs.DeleteAccountCommand{MobileNumber: param.MobileNumber})
	if err != nil {
		middleware.RespondWithAppError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusExpectationFailed, models.ResponseDto{StatusCode: models.Status417, StatusMsg: models.Message417Delete})
		return
	}

	c.JSON(http.StatusOK, models.ResponseDto{StatusCode: models.Status200, StatusMsg: models.Message200})
}

func (h *AccountHandler) BuildInfo(c *gin.Context) {
	c.String(http.StatusOK, h.info.BuildVersion)
}

// RuntimeVersion reports the runtime the service was built with. It answers
// /api/java-version so existing clients keep working.
func (h *AccountHandler) RuntimeVersion(c *gin.Context) {
	c.String(http.StatusOK, h.info.RuntimeVersion)
}

func (h *AccountHandler) ContactInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.info.Contact)
}

func bindMobileNumber(c *gin.Context) (mobileNumberParam, bool) {
	var param mobileNumberParam
	if err := c.ShouldBindQuery(&param); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return param, false
	}
	if validationErrors := middleware.ValidateRequest(param); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return param, false
	}
	return param, true
}
