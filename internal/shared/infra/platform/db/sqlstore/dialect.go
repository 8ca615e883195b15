package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // driver "pgx"
	_ "modernc.org/sqlite"             // driver "sqlite"
)

// Dialect recoge las diferencias entre SQLite y Postgres que nos afectan.
type Dialect struct {
	Name          string
	positional    bool // $1, $2... en lugar de ?
	uuidType      string
	timestampType string
}

var (
	SQLite   = Dialect{Name: "sqlite", uuidType: "TEXT", timestampType: "TIMESTAMP"}
	Postgres = Dialect{Name: "postgres", positional: true, uuidType: "UUID", timestampType: "TIMESTAMPTZ"}
)

// DialectFor traduce el nombre del driver de database/sql.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "pgx", "postgres":
		return Postgres, nil
	}
	return Dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
}

// Rebind reescribe los '?' de la consulta al formato del dialecto.
func (d Dialect) Rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) UUIDType() string      { return d.uuidType }
func (d Dialect) TimestampType() string { return d.timestampType }

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidIdentifier evita inyectar nombres de tabla arbitrarios en el DDL.
func ValidIdentifier(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid sql identifier %q", name)
	}
	return nil
}

// Open abre la base de datos y deja la conexión lista para el dialecto.
// SQLite trabaja con una sola conexión para que las transacciones no se pisen.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, Dialect{}, err
	}
	if driver == "sqlite3" {
		driver = "sqlite"
	}
	if driver == "postgres" {
		driver = "pgx"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open %s: %w", driver, err)
	}

	if dialect == SQLite {
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			db.Close()
			return nil, Dialect{}, fmt.Errorf("sqlite pragma: %w", err)
		}
		if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
			db.Close()
			return nil, Dialect{}, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, Dialect{}, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, dialect, nil
}
