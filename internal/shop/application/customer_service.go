package application

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/davicafu/hexashop/internal/shared/infra/uow"
	"github.com/davicafu/hexashop/internal/shop/domain"
)

// CustomerService define los casos de uso del contexto shop. Todo pasa por la unidad de trabajo,
// así los eventos de los agregados llegan al outbox en el mismo commit.
type CustomerService struct {
	repo  domain.CustomerRepository
	uow   uow.Runner
	clock clockwork.Clock
	log   *zap.Logger
}

func NewCustomerService(repo domain.CustomerRepository, runner uow.Runner, clock clockwork.Clock, log *zap.Logger) *CustomerService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CustomerService{repo: repo, uow: runner, clock: clock, log: log}
}

// RegisterCustomer crea el cliente de un usuario. ErrCustomerAlreadyExists si ya lo tiene.
func (s *CustomerService) RegisterCustomer(ctx context.Context, userID uuid.UUID, nombre, email string) (*domain.Customer, error) {
	customer, err := domain.RegisterCustomer(uuid.New(), userID, nombre, email, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		_, err := s.repo.GetByUserID(ctx, userID)
		switch {
		case err == nil:
			return domain.ErrCustomerAlreadyExists
		case !errors.Is(err, domain.ErrCustomerNotFound):
			return err
		}

		if err := s.repo.Create(ctx, customer); err != nil {
			return err
		}
		u.Track(customer)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("✅ Customer registered",
		zap.String("customer_id", customer.ID.String()),
		zap.String("user_id", userID.String()),
	)
	return customer, nil
}

// AddAddress añade una dirección; makeDefault la deja como predeterminada.
func (s *CustomerService) AddAddress(ctx context.Context, customerID uuid.UUID, addr domain.Address, makeDefault bool) (*domain.Customer, error) {
	return s.mutate(ctx, customerID, func(c *domain.Customer) error {
		_, err := c.AddAddress(addr, makeDefault, s.clock.Now())
		return err
	})
}

func (s *CustomerService) SetDefaultAddress(ctx context.Context, customerID, addressID uuid.UUID) (*domain.Customer, error) {
	return s.mutate(ctx, customerID, func(c *domain.Customer) error {
		return c.SetDefaultAddress(addressID, s.clock.Now())
	})
}

func (s *CustomerService) RemoveAddress(ctx context.Context, customerID, addressID uuid.UUID) (*domain.Customer, error) {
	return s.mutate(ctx, customerID, func(c *domain.Customer) error {
		return c.RemoveAddress(addressID, s.clock.Now())
	})
}

// mutate carga, aplica y guarda dentro de una sola unidad de trabajo.
func (s *CustomerService) mutate(ctx context.Context, customerID uuid.UUID, change func(c *domain.Customer) error) (*domain.Customer, error) {
	var customer *domain.Customer
	err := s.uow.Do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		c, err := s.repo.GetByID(ctx, customerID)
		if err != nil {
			return err
		}
		if err := change(c); err != nil {
			return err
		}
		if c.PendingEvents() == 0 {
			// nada cambió
			customer = c
			return nil
		}
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		u.Track(c)
		customer = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CustomerService) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error) {
	return s.repo.GetByUserID(ctx, userID)
}
