package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/davicafu/hexashop/internal/shared/infra/platform/db/sqlstore"
	"github.com/davicafu/hexashop/internal/shared/infra/uow"
	"github.com/davicafu/hexashop/internal/shop/domain"
)

// CustomerRepo guarda clientes y direcciones en SQLite o Postgres.
// Usa la transacción del contexto si existe; Create y Update necesitan varias sentencias,
// así que fuera de una unidad de trabajo abren la suya.
type CustomerRepo struct {
	db      *sql.DB
	dialect sqlstore.Dialect
}

var _ domain.CustomerRepository = (*CustomerRepo)(nil)

func NewCustomerRepo(db *sql.DB, dialect sqlstore.Dialect) *CustomerRepo {
	return &CustomerRepo{db: db, dialect: dialect}
}

// EnsureSchema crea las tablas customers y customer_addresses si no existen.
func (r *CustomerRepo) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS customers (
			id         %[1]s PRIMARY KEY,
			user_id    %[1]s NOT NULL UNIQUE,
			nombre     TEXT NOT NULL,
			email      TEXT NOT NULL,
			created_at %[2]s NOT NULL,
			updated_at %[2]s NOT NULL
		)`, r.dialect.UUIDType(), r.dialect.TimestampType()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS customer_addresses (
			id          %[1]s PRIMARY KEY,
			customer_id %[1]s NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
			street      TEXT NOT NULL,
			city        TEXT NOT NULL,
			postal_code TEXT NOT NULL,
			country     TEXT NOT NULL,
			is_default  BOOLEAN NOT NULL,
			position    INTEGER NOT NULL
		)`, r.dialect.UUIDType()),
		`CREATE INDEX IF NOT EXISTS ix_customer_addresses_customer ON customer_addresses (customer_id)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create shop schema: %w", err)
		}
	}
	return nil
}

// inTx ejecuta fn en la transacción del contexto o en una propia.
func (r *CustomerRepo) inTx(ctx context.Context, fn func(ex uow.Executor) error) (err error) {
	if tx, ok := uow.TxFrom(ctx); ok {
		return fn(tx)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// ------------------ Métodos ------------------

func (r *CustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	return r.inTx(ctx, func(ex uow.Executor) error {
		_, err := ex.ExecContext(ctx, r.dialect.Rebind(
			`INSERT INTO customers (id, user_id, nombre, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`),
			c.ID.String(), c.UserID.String(), c.Nombre, c.Email, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
		)
		if sqlstore.IsUniqueViolation(err) {
			return domain.ErrCustomerAlreadyExists
		}
		if err != nil {
			return err
		}
		return r.insertAddresses(ctx, ex, c)
	})
}

func (r *CustomerRepo) Update(ctx context.Context, c *domain.Customer) error {
	return r.inTx(ctx, func(ex uow.Executor) error {
		res, err := ex.ExecContext(ctx, r.dialect.Rebind(
			`UPDATE customers SET nombre = ?, email = ?, updated_at = ? WHERE id = ?`),
			c.Nombre, c.Email, c.UpdatedAt.UTC(), c.ID.String(),
		)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrCustomerNotFound
		}

		if _, err := ex.ExecContext(ctx, r.dialect.Rebind(
			`DELETE FROM customer_addresses WHERE customer_id = ?`), c.ID.String()); err != nil {
			return err
		}
		return r.insertAddresses(ctx, ex, c)
	})
}

func (r *CustomerRepo) insertAddresses(ctx context.Context, ex uow.Executor, c *domain.Customer) error {
	query := r.dialect.Rebind(`INSERT INTO customer_addresses
		(id, customer_id, street, city, postal_code, country, is_default, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, a := range c.Addresses {
		if _, err := ex.ExecContext(ctx, query,
			a.ID.String(), c.ID.String(), a.Street, a.City, a.PostalCode, a.Country, a.IsDefault, i,
		); err != nil {
			return fmt.Errorf("insert address %s: %w", a.ID, err)
		}
	}
	return nil
}

const selectCustomer = `SELECT id, user_id, nombre, email, created_at, updated_at FROM customers`

func (r *CustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return r.getOne(ctx, selectCustomer+` WHERE id = ?`, id.String())
}

func (r *CustomerRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error) {
	return r.getOne(ctx, selectCustomer+` WHERE user_id = ?`, userID.String())
}

func (r *CustomerRepo) getOne(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	ex := uow.ExecutorFrom(ctx, r.db)

	var (
		c             domain.Customer
		idStr, userID string
	)
	err := ex.QueryRowContext(ctx, r.dialect.Rebind(query), arg).
		Scan(&idStr, &userID, &c.Nombre, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	if c.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	if c.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid user UUID in DB: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()

	if c.Addresses, err = r.addresses(ctx, ex, c.ID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepo) addresses(ctx context.Context, ex uow.Executor, customerID uuid.UUID) ([]domain.Address, error) {
	rows, err := ex.QueryContext(ctx, r.dialect.Rebind(
		`SELECT id, street, city, postal_code, country, is_default
		 FROM customer_addresses WHERE customer_id = ? ORDER BY position`), customerID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Address
	for rows.Next() {
		var (
			a     domain.Address
			idStr string
		)
		if err := rows.Scan(&idStr, &a.Street, &a.City, &a.PostalCode, &a.Country, &a.IsDefault); err != nil {
			return nil, err
		}
		if a.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("invalid address UUID in DB: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
