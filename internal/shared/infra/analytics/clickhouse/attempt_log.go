package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/davicafu/hexashop/internal/shared/infra/outbox"
)

// AttemptLogRepo guarda en ClickHouse cada intento de publicación del outbox.
type AttemptLogRepo struct {
	db *sql.DB
}

var _ outbox.AttemptLog = (*AttemptLogRepo)(nil)

// Open conecta con ClickHouse y comprueba la conexión.
func Open(ctx context.Context, addr, dbName string) (*sql.DB, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
	})
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}
	return conn, nil
}

func NewAttemptLogRepo(db *sql.DB) *AttemptLogRepo {
	return &AttemptLogRepo{db: db}
}

// InitSchema crea la tabla si no existe. Particionada por mes, ordenada por contexto y tipo.
func (r *AttemptLogRepo) InitSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS outbox_attempts (
			context    LowCardinality(String),
			record_id  UUID,
			type       LowCardinality(String),
			outcome    LowCardinality(String),
			attempts   UInt32,
			error      String,
			event_time DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(event_time)
		ORDER BY (context, type, event_time)`)
	return err
}

// LogAttempts inserta el lote en una sola operación.
func (r *AttemptLogRepo) LogAttempts(ctx context.Context, attempts []outbox.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outbox_attempts (context, record_id, type, outcome, attempts, error, event_time) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, a := range attempts {
		if _, err := stmt.ExecContext(ctx,
			a.Context,
			a.RecordID,
			a.Type,
			string(a.Outcome),
			uint32(a.Attempts),
			a.Error,
			a.Timestamp.UTC(),
		); err != nil {
			// si un registro falla se descarta el lote entero
			tx.Rollback()
			return fmt.Errorf("failed to exec attempt for %s: %w", a.RecordID, err)
		}
	}
	return tx.Commit()
}

// TypeSummary agrega los intentos de un tipo de evento.
type TypeSummary struct {
	Type         string `json:"type"`
	Published    int64  `json:"published"`
	Retries      int64  `json:"retries"`
	DeadLettered int64  `json:"dead_lettered"`
}

// Summary agrega los intentos de un contexto desde since.
func (r *AttemptLogRepo) Summary(ctx context.Context, contextName string, since time.Time) ([]TypeSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			type,
			countIf(outcome = 'published')     AS published,
			countIf(outcome = 'retry')         AS retries,
			countIf(outcome = 'dead_lettered') AS dead_lettered
		FROM outbox_attempts
		WHERE context = ? AND event_time >= ?
		GROUP BY type
		ORDER BY type`, contextName, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TypeSummary
	for rows.Next() {
		var s TypeSummary
		if err := rows.Scan(&s.Type, &s.Published, &s.Retries, &s.DeadLettered); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
