package mocks

import (
	"context"

	shopDomain "github.com/davicafu/hexashop/internal/shop/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCustomerService simula los casos de uso de shop.
type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) RegisterCustomer(ctx context.Context, userID uuid.UUID, nombre, email string) (*shopDomain.Customer, error) {
	args := m.Called(ctx, userID, nombre, email)
	c, _ := args.Get(0).(*shopDomain.Customer)
	return c, args.Error(1)
}

func (m *MockCustomerService) GetByUserID(ctx context.Context, userID uuid.UUID) (*shopDomain.Customer, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(*shopDomain.Customer)
	return c, args.Error(1)
}

func (m *MockCustomerService) GetCustomer(ctx context.Context, id uuid.UUID) (*shopDomain.Customer, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*shopDomain.Customer)
	return c, args.Error(1)
}

func (m *MockCustomerService) AddAddress(ctx context.Context, customerID uuid.UUID, addr shopDomain.Address, makeDefault bool) (*shopDomain.Customer, error) {
	args := m.Called(ctx, customerID, addr, makeDefault)
	c, _ := args.Get(0).(*shopDomain.Customer)
	return c, args.Error(1)
}

func (m *MockCustomerService) SetDefaultAddress(ctx context.Context, customerID, addressID uuid.UUID) (*shopDomain.Customer, error) {
	args := m.Called(ctx, customerID, addressID)
	c, _ := args.Get(0).(*shopDomain.Customer)
	return c, args.Error(1)
}

func (m *MockCustomerService) RemoveAddress(ctx context.Context, customerID, addressID uuid.UUID) (*shopDomain.Customer, error) {
	args := m.Called(ctx, customerID, addressID)
	c, _ := args.Get(0).(*shopDomain.Customer)
	return c, args.Error(1)
}
