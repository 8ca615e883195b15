package outbox

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/davicafu/hexashop/internal/shared/application/mapper"
	"github.com/davicafu/hexashop/internal/shared/domain"
	"github.com/davicafu/hexashop/internal/shared/domain/events"
	integration "github.com/davicafu/hexashop/internal/shared/events"
	"github.com/davicafu/hexashop/internal/shared/infra/platform/db/sqlstore"
	"github.com/davicafu/hexashop/internal/shared/infra/uow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type customerRegistered struct {
	events.Base
	CustomerID uuid.UUID
	UserID     uuid.UUID
}

type customer struct {
	events.AggregateRoot
	id     uuid.UUID
	userID uuid.UUID
}

func registerCustomer(userID uuid.UUID, now time.Time, opts ...events.Option) *customer {
	c := &customer{id: uuid.New(), userID: userID}
	c.Raise(customerRegistered{
		Base:       events.NewBase("CustomerRegistered", now, opts...),
		CustomerID: c.id,
		UserID:     userID,
	})
	return c
}

var testMapper = mapper.Each(func(evt events.DomainEvent) (integration.IntegrationEvent, error) {
	e, ok := evt.(customerRegistered)
	if !ok {
		return nil, nil
	}
	return integration.AddCustomerIdIntegrationEvent{
		IntegrationBase: integration.NewIntegrationBase(e, integration.AddCustomerIDType),
		UserID:          e.UserID,
		CustomerID:      e.CustomerID,
	}, nil
})

type testEnv struct {
	db    *sql.DB
	store *sqlstore.OutboxStore
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	ctx := context.Background()
	db, dialect, err := sqlstore.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE customers (id TEXT PRIMARY KEY, user_id TEXT NOT NULL)`)
	require.NoError(t, err)

	store, err := sqlstore.NewOutboxStore(db, dialect, "shop_outbox")
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	return testEnv{db: db, store: store}
}

func (e testEnv) saveCustomer(ctx context.Context, c *customer) error {
	_, err := uow.ExecutorFrom(ctx, e.db).ExecContext(ctx,
		`INSERT INTO customers (id, user_id) VALUES (?, ?)`, c.id.String(), c.userID.String())
	return err
}

func (e testEnv) countCustomers(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM customers`).Scan(&n))
	return n
}

func (e testEnv) records(t *testing.T, status domain.OutboxStatus) []domain.OutboxRecord {
	t.Helper()
	recs, err := e.store.FetchBatch(context.Background(), status, 100)
	require.NoError(t, err)
	return recs
}
