package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/davicafu/hexashop/internal/identity/domain"
	"github.com/davicafu/hexashop/internal/shared/domain/events"
	"github.com/davicafu/hexashop/internal/shared/infra/platform/cache"
	"github.com/davicafu/hexashop/internal/shared/infra/uow"
	"github.com/davicafu/hexashop/internal/shared/infra/utils"
)

const minPasswordLen = 8

// UserService define los casos de uso relacionados con User.
type UserService struct {
	repo     domain.UserRepository
	uow      uow.Runner
	cache    cache.Cache
	cacheTTL time.Duration
	clock    clockwork.Clock
	hashCost int
	log      *zap.Logger
}

type Option func(*UserService)

// WithHashCost permite bajar el coste de bcrypt en tests.
func WithHashCost(cost int) Option {
	return func(s *UserService) { s.hashCost = cost }
}

// WithCacheTTL fija el TTL de las entradas de usuario. Sin él (o con 0) manda el TTL de la caché.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *UserService) { s.cacheTTL = ttl }
}

func WithClock(c clockwork.Clock) Option {
	return func(s *UserService) { s.clock = c }
}

// NewUserService constructor. cache puede ser nil.
func NewUserService(repo domain.UserRepository, runner uow.Runner, c cache.Cache, log *zap.Logger, opts ...Option) *UserService {
	s := &UserService{
		repo:     repo,
		uow:      runner,
		cache:    c,
		clock:    clockwork.NewRealClock(),
		hashCost: bcrypt.DefaultCost,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterUser crea el usuario. En el mismo commit quedan las filas de outbox de
// UserRegistered y de la petición de correo de bienvenida.
func (s *UserService) RegisterUser(ctx context.Context, email, nombre, password string) (*domain.User, error) {
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must have at least %d characters", domain.ErrInvalidUser, minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	user, err := domain.RegisterUser(uuid.New(), email, nombre, string(hash), now)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		if err := s.repo.Create(ctx, user); err != nil {
			return err
		}
		u.Track(user)
		u.Raise(domain.WelcomeEmailRequested{
			Base:   events.NewBase(domain.WelcomeEmailRequestedEvent, now),
			UserID: user.ID,
			Email:  user.Email,
			Nombre: user.Nombre,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("✅ User registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// LinkCustomer enlaza el customer id del contexto shop. Devuelve false si ya estaba enlazado.
func (s *UserService) LinkCustomer(ctx context.Context, userID, customerID uuid.UUID) (bool, error) {
	var changed bool
	err := s.uow.Do(ctx, func(ctx context.Context, u *uow.UnitOfWork) error {
		user, err := s.repo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		changed, err = user.LinkCustomer(customerID, s.clock.Now())
		if err != nil || !changed {
			return err
		}
		if err := s.repo.Update(ctx, user); err != nil {
			return err
		}
		u.Track(user)
		return nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		cache.CacheDelete(ctx, s.cache, domain.CacheKeyByID(userID), s.log)
	}
	return changed, nil
}

// GetUser obtiene un usuario (primero intenta desde cache).
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	// 1. Intentar cache
	if s.cache != nil {
		var u domain.User
		ok, err := s.cache.Get(ctx, domain.CacheKeyByID(id), &u)
		if ign := utils.BestEffort("cache.get", err); ign != nil {
			ign.Log(s.log, zap.String("user_id", id.String()))
		} else if ok {
			return &u, nil
		}
	}

	// 2. Ir al repo con reintentos; un "no existe" no se reintenta
	var user *domain.User
	err := utils.Retry(ctx, 3, 100*time.Millisecond, func() error {
		var err error
		user, err = s.repo.GetByID(ctx, id)
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	// 3. Actualizar cache en background. Solo usuarios ya enlazados: el enlace es el único
	// cambio que sufre un User, así una escritura tardía nunca deja una copia vieja.
	if user.CustomerID != nil {
		cache.AsyncCacheSet(ctx, s.cache, domain.CacheKeyByID(user.ID), user, s.cacheTTL, s.log)
	}
	return user, nil
}

// Authenticate comprueba email y contraseña. No distingue entre usuario inexistente y contraseña mala.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}
