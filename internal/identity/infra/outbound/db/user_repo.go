package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/davicafu/hexashop/internal/identity/domain"
	"github.com/davicafu/hexashop/internal/shared/infra/platform/db/sqlstore"
	"github.com/davicafu/hexashop/internal/shared/infra/uow"
)

// UserRepo guarda usuarios en SQLite o Postgres. Usa la transacción del contexto si existe.
type UserRepo struct {
	db      *sql.DB
	dialect sqlstore.Dialect
}

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(db *sql.DB, dialect sqlstore.Dialect) *UserRepo {
	return &UserRepo{db: db, dialect: dialect}
}

// EnsureSchema crea la tabla users si no existe.
func (r *UserRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS users (
			id            %[1]s PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			nombre        TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			customer_id   %[1]s NULL,
			created_at    %[2]s NOT NULL,
			updated_at    %[2]s NOT NULL
		)`, r.dialect.UUIDType(), r.dialect.TimestampType()))
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepo) exec(ctx context.Context) uow.Executor {
	return uow.ExecutorFrom(ctx, r.db)
}

// ------------------ Métodos ------------------

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.exec(ctx).ExecContext(ctx, r.dialect.Rebind(
		`INSERT INTO users (id, email, nombre, password_hash, customer_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		u.ID.String(), u.Email, u.Nombre, u.PasswordHash, nullUUID(u.CustomerID), u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	if sqlstore.IsUniqueViolation(err) {
		return domain.ErrUserAlreadyExists
	}
	return err
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	res, err := r.exec(ctx).ExecContext(ctx, r.dialect.Rebind(
		`UPDATE users SET email = ?, nombre = ?, customer_id = ?, updated_at = ? WHERE id = ?`),
		u.Email, u.Nombre, nullUUID(u.CustomerID), u.UpdatedAt.UTC(), u.ID.String(),
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

const selectUser = `SELECT id, email, nombre, password_hash, customer_id, created_at, updated_at FROM users`

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = ?`, id.String())
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, selectUser+` WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	row := r.exec(ctx).QueryRowContext(ctx, r.dialect.Rebind(query), arg)

	var (
		u          domain.User
		idStr      string
		customerID sql.NullString
	)
	if err := row.Scan(&idStr, &u.Email, &u.Nombre, &u.PasswordHash, &customerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	u.ID = parsedID

	if customerID.Valid {
		cid, err := uuid.Parse(customerID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid customer UUID in DB: %w", err)
		}
		u.CustomerID = &cid
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func nullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}
