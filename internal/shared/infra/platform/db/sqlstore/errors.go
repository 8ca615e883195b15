package sqlstore

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation es el SQLSTATE de Postgres para una clave duplicada.
const pgUniqueViolation = "23505"

// IsUniqueViolation reconoce el error de clave duplicada de ambos drivers,
// para que los repositorios lo traduzcan a su ErrXAlreadyExists.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// modernc no exporta un código estable en el error envuelto
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY constraint failed")
}
