package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/hexashop/internal/identity/domain"
	"github.com/davicafu/hexashop/pkg/utils"
)

type UserService interface {
	RegisterUser(ctx context.Context, email, nombre, password string) (*domain.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

// UserHandler encapsula los endpoints HTTP relacionados con User
type UserHandler struct {
	service UserService
	log     *zap.Logger
}

// NewUserHandler crea un nuevo UserHandler
func NewUserHandler(service UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{service: service, log: log}
}

// userResponse no expone el hash de la contraseña.
type userResponse struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Nombre     string     `json:"nombre"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toResponse(u *domain.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		Nombre:     u.Nombre,
		CustomerID: u.CustomerID,
		CreatedAt:  u.CreatedAt,
	}
}

// ---------------- Handlers ----------------

// RegisterUser endpoint POST /users
func (h *UserHandler) RegisterUser(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Nombre   string `json:"nombre" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	user, err := h.service.RegisterUser(c.Request.Context(), req.Email, req.Nombre, req.Password)
	switch {
	case err == nil:
		utils.SendSuccess(c, http.StatusCreated, toResponse(user))
	case errors.Is(err, domain.ErrInvalidUser):
		utils.SendBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrUserAlreadyExists):
		utils.SendConflict(c, "user already exists")
	default:
		h.log.Error("Failed to register user", zap.Error(err))
		utils.SendInternalServerError(c)
	}
}

// GetUser endpoint GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid user id")
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			utils.SendNotFound(c, "user not found")
			return
		}
		h.log.Error("Failed to get user", zap.String("user_id", id.String()), zap.Error(err))
		utils.SendInternalServerError(c)
		return
	}

	utils.SendSuccess(c, http.StatusOK, toResponse(user))
}

// Login endpoint POST /users/login
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	user, err := h.service.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			utils.SendError(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error("Failed to authenticate user", zap.Error(err))
		utils.SendInternalServerError(c)
		return
	}

	utils.SendSuccess(c, http.StatusOK, toResponse(user))
}
