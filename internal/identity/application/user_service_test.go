package application

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/davicafu/hexashop/internal/identity/domain"
	userDB "github.com/davicafu/hexashop/internal/identity/infra/outbound/db"
	sharedDomain "github.com/davicafu/hexashop/internal/shared/domain"
	integration "github.com/davicafu/hexashop/internal/shared/events"
	"github.com/davicafu/hexashop/internal/shared/infra/outbox"
	"github.com/davicafu/hexashop/internal/shared/infra/platform/cache"
	"github.com/davicafu/hexashop/internal/shared/infra/platform/db/sqlstore"
	"github.com/davicafu/hexashop/internal/shared/infra/uow"
	"github.com/davicafu/hexashop/tests/mocks"
)

type serviceEnv struct {
	svc    *UserService
	repo   *userDB.UserRepo
	module *outbox.Module
	cache  *cache.InMemoryCache
	bus    *mocks.RecordingBus
}

func newServiceEnv(t *testing.T) serviceEnv {
	t.Helper()
	ctx := context.Background()
	db, dialect, err := sqlstore.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := userDB.NewUserRepo(db, dialect)
	require.NoError(t, repo.EnsureSchema(ctx))

	eventBus := &mocks.RecordingBus{}
	mod, err := outbox.NewModule(ctx, outbox.ModuleConfig{
		Name:         "identity",
		Table:        domain.OutboxTable,
		DefaultTopic: domain.DefaultTopic,
		Topics:       domain.Topics(),
		Dispatch:     outbox.Config{BatchSize: 10, MaxAttempts: 3},
	}, outbox.ModuleDeps{
		DB:      db,
		Dialect: dialect,
		Mapper:  NewMapper(),
		Bus:     eventBus,
		Log:     zap.NewNop(),
	})
	require.NoError(t, err)

	c := cache.NewInMemoryCache(time.Minute, time.Minute, clockwork.NewRealClock())
	t.Cleanup(c.Stop)

	svc := NewUserService(repo, mod.UoW, c, zap.NewNop(), WithHashCost(bcrypt.MinCost))
	return serviceEnv{svc: svc, repo: repo, module: mod, cache: c, bus: eventBus}
}

func (e serviceEnv) pending(t *testing.T) []sharedDomain.OutboxRecord {
	t.Helper()
	recs, err := e.module.Store.FetchBatch(context.Background(), sharedDomain.OutboxPending, 100)
	require.NoError(t, err)
	return recs
}

func TestRegisterUser_WritesUserAndOutboxAtomically(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	user, err := env.svc.RegisterUser(ctx, "test@example.com", "Pepe", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	stored, err := env.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pepe", stored.Nombre)

	// ✅ UserRegistered (agregado) y la petición de correo (sink) en el mismo commit
	recs := env.pending(t)
	require.Len(t, recs, 2)
	byType := map[string]sharedDomain.OutboxRecord{}
	for _, r := range recs {
		byType[r.Type] = r
	}
	require.Contains(t, byType, integration.UserRegisteredType)
	require.Contains(t, byType, integration.SendWelcomeEmailType)

	var evt integration.UserRegisteredIntegrationEvent
	require.NoError(t, json.Unmarshal([]byte(byType[integration.UserRegisteredType].Payload), &evt))
	assert.Equal(t, user.ID, evt.UserID)

	res := env.module.Dispatcher.ProcessBatch(ctx)
	assert.Equal(t, 2, res.Published)
	msgs := env.bus.Published()
	require.Len(t, msgs, 2)
	topics := map[string]string{}
	for _, m := range msgs {
		topics[m.Topic] = m.Key
	}
	assert.Equal(t, user.ID.String(), topics[domain.UserTopic])
	assert.Equal(t, user.ID.String(), topics[domain.EmailTopic])
}

func TestRegisterUser_Errors(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	_, err := env.svc.RegisterUser(ctx, "dup@example.com", "Juan", "password-1")
	require.NoError(t, err)

	t.Run("email duplicado no deja filas de outbox", func(t *testing.T) {
		_, err := env.svc.RegisterUser(ctx, "DUP@example.com", "Otro", "password-2")
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
		assert.Len(t, env.pending(t), 2)
	})

	t.Run("contraseña corta", func(t *testing.T) {
		_, err := env.svc.RegisterUser(ctx, "short@example.com", "Corto", "123")
		assert.ErrorIs(t, err, domain.ErrInvalidUser)
	})
}

func TestLinkCustomer_Idempotent(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	user, err := env.svc.RegisterUser(ctx, "link@example.com", "Ana", "password-1")
	require.NoError(t, err)
	before := len(env.pending(t))

	customerID := uuid.New()
	changed, err := env.svc.LinkCustomer(ctx, user.ID, customerID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = env.svc.LinkCustomer(ctx, user.ID, customerID)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := env.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CustomerID)
	assert.Equal(t, customerID, *stored.CustomerID)

	// CustomerLinked no se publica fuera del contexto
	assert.Len(t, env.pending(t), before)

	_, err = env.svc.LinkCustomer(ctx, user.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrCustomerAlreadyLinked)

	_, err = env.svc.LinkCustomer(ctx, uuid.New(), customerID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestGetUser_CachesOnlyLinkedUsers(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	user, err := env.svc.RegisterUser(ctx, "cache@example.com", "Luis", "password-1")
	require.NoError(t, err)
	key := domain.CacheKeyByID(user.ID)

	got, err := env.svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CustomerID)
	assert.Never(t, func() bool {
		ok, _ := env.cache.Get(ctx, key, &domain.User{})
		return ok
	}, 100*time.Millisecond, 10*time.Millisecond, "un usuario sin enlazar no se cachea")

	customerID := uuid.New()
	_, err = env.svc.LinkCustomer(ctx, user.ID, customerID)
	require.NoError(t, err)

	got, err = env.svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CustomerID)

	assert.Eventually(t, func() bool {
		var cached domain.User
		ok, _ := env.cache.Get(ctx, key, &cached)
		return ok && cached.CustomerID != nil && *cached.CustomerID == customerID
	}, time.Second, 10*time.Millisecond)

	// el hash de la contraseña no llega a la caché
	var raw map[string]any
	ok, err := env.cache.Get(ctx, key, &raw)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, raw, "password_hash")
	assert.NotContains(t, raw, "PasswordHash")
	assert.Equal(t, user.Email, raw["email"])

	_, err = env.svc.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestGetUser_LinkRightAfterRegisterIsVisible(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	user, err := env.svc.RegisterUser(ctx, "fast@example.com", "Rápido", "password-1")
	require.NoError(t, err)
	customerID := uuid.New()
	_, err = env.svc.LinkCustomer(ctx, user.ID, customerID)
	require.NoError(t, err)

	// ninguna escritura en background puede devolver la versión sin enlazar
	for i := 0; i < 20; i++ {
		got, err := env.svc.GetUser(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, got.CustomerID)
		require.Equal(t, customerID, *got.CustomerID)
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGetUser_UsesConfiguredCacheTTL(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := cache.NewInMemoryCache(time.Hour, 0, clock)

	short := NewUserService(env.repo, env.module.UoW, c, zap.NewNop(), WithHashCost(bcrypt.MinCost), WithCacheTTL(10*time.Second))
	byDefault := NewUserService(env.repo, env.module.UoW, c, zap.NewNop(), WithHashCost(bcrypt.MinCost))

	cachedUser := func(svc *UserService, email string) uuid.UUID {
		u, err := svc.RegisterUser(ctx, email, "TTL", "password-1")
		require.NoError(t, err)
		_, err = svc.LinkCustomer(ctx, u.ID, uuid.New())
		require.NoError(t, err)
		_, err = svc.GetUser(ctx, u.ID)
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			ok, _ := c.Get(ctx, domain.CacheKeyByID(u.ID), &domain.User{})
			return ok
		}, time.Second, 10*time.Millisecond)
		return u.ID
	}
	a := cachedUser(short, "short@example.com")
	b := cachedUser(byDefault, "default@example.com")

	clock.Advance(11 * time.Second)

	ok, err := c.Get(ctx, domain.CacheKeyByID(a), &domain.User{})
	require.NoError(t, err)
	assert.False(t, ok, "WithCacheTTL manda sobre el TTL de la caché")

	ok, err = c.Get(ctx, domain.CacheKeyByID(b), &domain.User{})
	require.NoError(t, err)
	assert.True(t, ok, "sin opción se usa el TTL por defecto de la caché")
}

func TestAuthenticate(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	_, err := env.svc.RegisterUser(ctx, "auth@example.com", "Eva", "correct-horse")
	require.NoError(t, err)

	u, err := env.svc.Authenticate(ctx, "auth@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "auth@example.com", u.Email)

	_, err = env.svc.Authenticate(ctx, "auth@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = env.svc.Authenticate(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRegisterUser_RollbackAfterHookLeavesNothing(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	forced := errors.New("forced rollback")
	env.module.UoW.AddHook(uow.HookFunc(func(ctx context.Context, u *uow.UnitOfWork) error {
		return forced
	}))

	_, err := env.svc.RegisterUser(ctx, "rollback@example.com", "Roll", "password-1")
	assert.ErrorIs(t, err, forced)

	assert.Empty(t, env.pending(t))
	_, err = env.repo.GetByEmail(ctx, "rollback@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestMappers(t *testing.T) {
	u, err := domain.RegisterUser(uuid.New(), "map@example.com", "Map", "h", time.Now())
	require.NoError(t, err)
	_, err = u.LinkCustomer(uuid.New(), time.Now())
	require.NoError(t, err)
	evts := u.PullDomainEvents()

	out, err := NewMapper().Map(evts)
	require.NoError(t, err)
	require.Len(t, out, 1, "CustomerLinked no produce evento de integración")
	assert.Equal(t, integration.UserRegisteredType, out[0].EventType())

	again, err := NewMapper().Map(evts)
	require.NoError(t, err)
	assert.Equal(t, out[0].MessageID(), again[0].MessageID())
}
