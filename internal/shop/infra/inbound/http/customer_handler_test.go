package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/hexashop/internal/shop/domain"
	"github.com/davicafu/hexashop/tests/mocks"
)

func setupRouter(svc CustomerService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterCustomerRoutes(r, NewCustomerHandler(svc, zap.NewNop()))
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterCustomer_HTTP(t *testing.T) {
	userID := uuid.New()
	svc := new(mocks.MockCustomerService)
	svc.On("RegisterCustomer", mock.Anything, userID, "Ana", "ana@example.com").
		Return(&domain.Customer{ID: uuid.New(), UserID: userID, Nombre: "Ana"}, nil).Once()
	svc.On("RegisterCustomer", mock.Anything, userID, "Ana", "ana@example.com").
		Return(nil, domain.ErrCustomerAlreadyExists).Once()
	r := setupRouter(svc)

	body := `{"user_id":"` + userID.String() + `","nombre":"Ana","email":"ana@example.com"}`
	rec := serve(r, http.MethodPost, "/customers", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data domain.Customer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, userID, resp.Data.UserID)

	assert.Equal(t, http.StatusConflict, serve(r, http.MethodPost, "/customers", body).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/customers", `{"nombre":"Ana"}`).Code)
}

func TestCustomerRoutes_ErrorMapping(t *testing.T) {
	customerID, addressID := uuid.New(), uuid.New()
	svc := new(mocks.MockCustomerService)
	svc.On("GetCustomer", mock.Anything, customerID).Return(nil, domain.ErrCustomerNotFound)
	svc.On("GetByUserID", mock.Anything, customerID).Return(&domain.Customer{ID: uuid.New()}, nil)
	svc.On("SetDefaultAddress", mock.Anything, customerID, addressID).Return(nil, domain.ErrAddressNotFound)
	svc.On("RemoveAddress", mock.Anything, customerID, addressID).Return(nil, domain.ErrCannotRemoveDefault)
	svc.On("AddAddress", mock.Anything, customerID, mock.Anything, true).Return(nil, errors.New("db down"))
	r := setupRouter(svc)

	base := "/customers/" + customerID.String()
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"cliente inexistente", http.MethodGet, base, "", http.StatusNotFound},
		{"por usuario", http.MethodGet, "/customers?user_id=" + customerID.String(), "", http.StatusOK},
		{"sin user_id", http.MethodGet, "/customers", "", http.StatusBadRequest},
		{"id inválido", http.MethodGet, "/customers/xyz", "", http.StatusBadRequest},
		{"dirección inexistente", http.MethodPut, base + "/addresses/" + addressID.String() + "/default", "", http.StatusNotFound},
		{"no se borra la predeterminada", http.MethodDelete, base + "/addresses/" + addressID.String(), "", http.StatusConflict},
		{"error interno", http.MethodPost, base + "/addresses", `{"street":"A","city":"B","country":"ES","default":true}`, http.StatusInternalServerError},
		{"dirección incompleta", http.MethodPost, base + "/addresses", `{"street":"A"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, serve(r, tt.method, tt.path, tt.body).Code)
		})
	}
}
