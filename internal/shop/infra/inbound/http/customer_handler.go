package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/hexashop/internal/shop/domain"
	"github.com/davicafu/hexashop/pkg/utils"
)

type CustomerService interface {
	RegisterCustomer(ctx context.Context, userID uuid.UUID, nombre, email string) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error)
	AddAddress(ctx context.Context, customerID uuid.UUID, addr domain.Address, makeDefault bool) (*domain.Customer, error)
	SetDefaultAddress(ctx context.Context, customerID, addressID uuid.UUID) (*domain.Customer, error)
	RemoveAddress(ctx context.Context, customerID, addressID uuid.UUID) (*domain.Customer, error)
}

// CustomerHandler encapsula los endpoints HTTP de clientes.
type CustomerHandler struct {
	service CustomerService
	log     *zap.Logger
}

func NewCustomerHandler(service CustomerService, log *zap.Logger) *CustomerHandler {
	return &CustomerHandler{service: service, log: log}
}

// respond traduce los errores de dominio a códigos HTTP.
func (h *CustomerHandler) respond(c *gin.Context, status int, customer *domain.Customer, err error) {
	switch {
	case err == nil:
		utils.SendSuccess(c, status, customer)
	case errors.Is(err, domain.ErrCustomerNotFound), errors.Is(err, domain.ErrAddressNotFound):
		utils.SendNotFound(c, err.Error())
	case errors.Is(err, domain.ErrCustomerAlreadyExists), errors.Is(err, domain.ErrCannotRemoveDefault):
		utils.SendConflict(c, err.Error())
	case errors.Is(err, domain.ErrInvalidCustomer), errors.Is(err, domain.ErrInvalidAddress):
		utils.SendBadRequest(c, err.Error())
	default:
		h.log.Error("Customer request failed", zap.String("path", c.FullPath()), zap.Error(err))
		utils.SendInternalServerError(c)
	}
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		utils.SendBadRequest(c, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// RegisterCustomer endpoint POST /customers
func (h *CustomerHandler) RegisterCustomer(c *gin.Context) {
	var req struct {
		UserID uuid.UUID `json:"user_id" binding:"required"`
		Nombre string    `json:"nombre" binding:"required"`
		Email  string    `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	customer, err := h.service.RegisterCustomer(c.Request.Context(), req.UserID, req.Nombre, req.Email)
	h.respond(c, http.StatusCreated, customer, err)
}

// GetCustomer endpoint GET /customers/:id
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	customer, err := h.service.GetCustomer(c.Request.Context(), id)
	h.respond(c, http.StatusOK, customer, err)
}

// GetByUser endpoint GET /customers?user_id=
func (h *CustomerHandler) GetByUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		utils.SendBadRequest(c, "user_id query parameter is required")
		return
	}
	customer, err := h.service.GetByUserID(c.Request.Context(), userID)
	h.respond(c, http.StatusOK, customer, err)
}

// AddAddress endpoint POST /customers/:id/addresses
func (h *CustomerHandler) AddAddress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Street     string `json:"street" binding:"required"`
		City       string `json:"city" binding:"required"`
		PostalCode string `json:"postal_code"`
		Country    string `json:"country" binding:"required"`
		Default    bool   `json:"default"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	customer, err := h.service.AddAddress(c.Request.Context(), id, domain.Address{
		Street:     req.Street,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	}, req.Default)
	h.respond(c, http.StatusCreated, customer, err)
}

// SetDefaultAddress endpoint PUT /customers/:id/addresses/:addressId/default
func (h *CustomerHandler) SetDefaultAddress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	addressID, ok := parseID(c, "addressId")
	if !ok {
		return
	}
	customer, err := h.service.SetDefaultAddress(c.Request.Context(), id, addressID)
	h.respond(c, http.StatusOK, customer, err)
}

// RemoveAddress endpoint DELETE /customers/:id/addresses/:addressId
func (h *CustomerHandler) RemoveAddress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	addressID, ok := parseID(c, "addressId")
	if !ok {
		return
	}
	customer, err := h.service.RemoveAddress(c.Request.Context(), id, addressID)
	h.respond(c, http.StatusOK, customer, err)
}
