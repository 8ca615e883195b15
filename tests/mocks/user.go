package mocks

import (
	"context"

	userDomain "github.com/davicafu/hexashop/internal/identity/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserService simula los casos de uso de identity para los handlers HTTP.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) RegisterUser(ctx context.Context, email, nombre, password string) (*userDomain.User, error) {
	args := m.Called(ctx, email, nombre, password)
	u, _ := args.Get(0).(*userDomain.User)
	return u, args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*userDomain.User)
	return u, args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*userDomain.User, error) {
	args := m.Called(ctx, email, password)
	u, _ := args.Get(0).(*userDomain.User)
	return u, args.Error(1)
}

func (m *MockUserService) LinkCustomer(ctx context.Context, userID, customerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, customerID)
	return args.Bool(0), args.Error(1)
}
