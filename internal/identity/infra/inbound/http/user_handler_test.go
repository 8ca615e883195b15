package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/hexashop/internal/identity/domain"
	"github.com/davicafu/hexashop/tests/mocks"
)

// userHTTPResponse define el formato que esperamos en las respuestas JSON
type userHTTPResponse struct {
	Data struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		Nombre       string `json:"nombre"`
		CustomerID   string `json:"customer_id"`
		PasswordHash string `json:"password_hash"`
	} `json:"data"`
}

func setupRouter(svc UserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterUserRoutes(r, NewUserHandler(svc, zap.NewNop()))
	return r
}

func TestGetUser_HTTPContract(t *testing.T) {
	svc := new(mocks.MockUserService)
	customerID := uuid.New()
	u := &domain.User{
		ID:           uuid.New(),
		Email:        "test@example.com",
		Nombre:       "Test User",
		PasswordHash: "secret-hash",
		CustomerID:   &customerID,
		CreatedAt:    time.Now().UTC(),
	}
	svc.On("GetUser", mock.Anything, u.ID).Return(u, nil)
	svc.On("GetUser", mock.Anything, mock.Anything).Return(nil, domain.ErrUserNotFound)
	r := setupRouter(svc)

	// Test: usuario existente
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+u.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp userHTTPResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, u.ID.String(), resp.Data.ID)
	assert.Equal(t, customerID.String(), resp.Data.CustomerID)
	assert.Empty(t, resp.Data.PasswordHash, "el hash nunca sale por HTTP")

	// Test: usuario inexistente
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Test: id inválido
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterUser_HTTPContract(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		svcErr  error
		callSvc bool
		code    int
	}{
		{name: "creado", body: `{"email":"a@b.com","nombre":"A","password":"password-1"}`, callSvc: true, code: http.StatusCreated},
		{name: "email duplicado", body: `{"email":"a@b.com","nombre":"A","password":"password-1"}`, svcErr: domain.ErrUserAlreadyExists, callSvc: true, code: http.StatusConflict},
		{name: "inválido en dominio", body: `{"email":"a@b.com","nombre":"A","password":"x"}`, svcErr: domain.ErrInvalidUser, callSvc: true, code: http.StatusBadRequest},
		{name: "error interno", body: `{"email":"a@b.com","nombre":"A","password":"password-1"}`, svcErr: errors.New("db down"), callSvc: true, code: http.StatusInternalServerError},
		{name: "falta el email", body: `{"nombre":"A","password":"password-1"}`, code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mocks.MockUserService)
			if tt.callSvc {
				var u *domain.User
				if tt.svcErr == nil {
					u = &domain.User{ID: uuid.New(), Email: "a@b.com", Nombre: "A"}
				}
				svc.On("RegisterUser", mock.Anything, "a@b.com", "A", mock.Anything).Return(u, tt.svcErr)
			}

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			setupRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestLogin_HTTPContract(t *testing.T) {
	svc := new(mocks.MockUserService)
	svc.On("Authenticate", mock.Anything, "a@b.com", "good").Return(&domain.User{ID: uuid.New(), Email: "a@b.com"}, nil)
	svc.On("Authenticate", mock.Anything, "a@b.com", "bad").Return(nil, domain.ErrInvalidCredentials)
	r := setupRouter(svc)

	for pass, code := range map[string]int{"good": http.StatusOK, "bad": http.StatusUnauthorized} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(`{"email":"a@b.com","password":"`+pass+`"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(rec, req)
		assert.Equal(t, code, rec.Code, pass)
	}
}
