package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	integration "github.com/davicafu/hexashop/internal/shared/events"
	"github.com/davicafu/hexashop/internal/shop/domain"
	"github.com/davicafu/hexashop/tests/mocks"
)

func TestUserRegisteredConsumer_Handle(t *testing.T) {
	evt := integration.UserRegisteredIntegrationEvent{
		IntegrationBase: integration.IntegrationBase{ID: uuid.New()},
		UserID:          uuid.New(),
		Email:           "a@b.com",
		Nombre:          "Ana",
	}
	existing := &domain.Customer{ID: uuid.New(), UserID: evt.UserID}

	t.Run("crea el cliente", func(t *testing.T) {
		svc := new(mocks.MockCustomerService)
		svc.On("GetByUserID", mock.Anything, evt.UserID).Return(nil, domain.ErrCustomerNotFound)
		svc.On("RegisterCustomer", mock.Anything, evt.UserID, "Ana", "a@b.com").Return(existing, nil)

		assert.NoError(t, NewUserRegisteredConsumer(svc, zap.NewNop()).Handle(context.Background(), evt))
		svc.AssertExpectations(t)
	})

	t.Run("ya existe: no-op", func(t *testing.T) {
		svc := new(mocks.MockCustomerService)
		svc.On("GetByUserID", mock.Anything, evt.UserID).Return(existing, nil)

		assert.NoError(t, NewUserRegisteredConsumer(svc, zap.NewNop()).Handle(context.Background(), evt))
		svc.AssertNotCalled(t, "RegisterCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("carrera resuelta por la restricción única", func(t *testing.T) {
		svc := new(mocks.MockCustomerService)
		svc.On("GetByUserID", mock.Anything, evt.UserID).Return(nil, domain.ErrCustomerNotFound)
		svc.On("RegisterCustomer", mock.Anything, evt.UserID, "Ana", "a@b.com").Return(nil, domain.ErrCustomerAlreadyExists)

		assert.NoError(t, NewUserRegisteredConsumer(svc, zap.NewNop()).Handle(context.Background(), evt))
	})

	t.Run("error transitorio se devuelve para reintentar", func(t *testing.T) {
		svc := new(mocks.MockCustomerService)
		svc.On("GetByUserID", mock.Anything, evt.UserID).Return(nil, errors.New("db down"))

		err := NewUserRegisteredConsumer(svc, zap.NewNop()).Handle(context.Background(), evt)
		assert.Error(t, err)
		assert.False(t, integration.IsPermanent(err))
	})

	t.Run("datos inválidos son permanentes", func(t *testing.T) {
		svc := new(mocks.MockCustomerService)
		svc.On("GetByUserID", mock.Anything, evt.UserID).Return(nil, domain.ErrCustomerNotFound)
		svc.On("RegisterCustomer", mock.Anything, evt.UserID, "Ana", "a@b.com").Return(nil, domain.ErrInvalidCustomer)

		err := NewUserRegisteredConsumer(svc, zap.NewNop()).Handle(context.Background(), evt)
		assert.True(t, integration.IsPermanent(err))
	})
}
