package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/davicafu/hexashop/internal/shared/domain"
	"github.com/davicafu/hexashop/internal/shared/infra/uow"
	"github.com/google/uuid"
)

// OutboxStore implementa domain.OutboxStore sobre database/sql.
// Cada contexto acotado tiene su propia tabla.
type OutboxStore struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

func NewOutboxStore(db *sql.DB, dialect Dialect, table string) (*OutboxStore, error) {
	if err := ValidIdentifier(table); err != nil {
		return nil, err
	}
	return &OutboxStore{db: db, dialect: dialect, table: table}, nil
}

func (s *OutboxStore) Table() string { return s.table }

// EnsureSchema crea la tabla y sus índices si no existen.
func (s *OutboxStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id               %s PRIMARY KEY,
			occurred_at_utc  %s NOT NULL,
			type             VARCHAR(%d) NOT NULL,
			payload          TEXT NOT NULL,
			correlation_id   VARCHAR(128) NULL,
			causation_id     VARCHAR(128) NULL,
			processed_at_utc %s NULL,
			attempts         INTEGER NOT NULL DEFAULT 0,
			status           VARCHAR(16) NOT NULL DEFAULT 'Pending',
			error            TEXT NULL
		)`, s.table, s.dialect.UUIDType(), s.dialect.TimestampType(), domain.MaxTypeLength, s.dialect.TimestampType()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS ix_%s_status_occurred ON %s (status, occurred_at_utc)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS ix_%s_correlation ON %s (correlation_id)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("outbox schema %s: %w", s.table, err)
		}
	}
	return nil
}

// Insert escribe los registros dentro de la transacción que viaja en ctx.
func (s *OutboxStore) Insert(ctx context.Context, records ...domain.OutboxRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, ok := uow.TxFrom(ctx)
	if !ok {
		return domain.ErrNoActiveTransaction
	}

	query := s.dialect.Rebind(fmt.Sprintf(`INSERT INTO %s
		(id, occurred_at_utc, type, payload, correlation_id, causation_id, processed_at_utc, attempts, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table))

	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, query,
			r.ID.String(),
			r.OccurredAtUTC.UTC(),
			r.Type,
			r.Payload,
			nullString(r.CorrelationID),
			nullString(r.CausationID),
			nullTime(r.ProcessedAtUTC),
			r.Attempts,
			string(r.Status),
			nullString(r.Error),
		)
		if err != nil {
			return fmt.Errorf("insert outbox %s: %w", r.ID, err)
		}
	}
	return nil
}

// FetchBatch devuelve los registros más antiguos con el estado pedido.
func (s *OutboxStore) FetchBatch(ctx context.Context, status domain.OutboxStatus, limit int) ([]domain.OutboxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := s.dialect.Rebind(fmt.Sprintf(`SELECT
		id, occurred_at_utc, type, payload, correlation_id, causation_id, processed_at_utc, attempts, status, error
		FROM %s
		WHERE status = ?
		ORDER BY occurred_at_utc, id
		LIMIT ?`, s.table))

	rows, err := uow.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox: %w", err)
	}
	defer rows.Close()

	var out []domain.OutboxRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *OutboxStore) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	query := s.dialect.Rebind(fmt.Sprintf(`UPDATE %s
		SET status = 'Processed', attempts = attempts + 1, processed_at_utc = ?, error = NULL
		WHERE id = ? AND status = 'Pending'`, s.table))

	res, err := uow.ExecutorFrom(ctx, s.db).ExecContext(ctx, query, processedAt.UTC(), id.String())
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrOutboxRecordNotFound, id)
	}
	return nil
}

// MarkFailed suma el intento y decide el estado en una sola sentencia,
// así nunca queda un attempts incrementado con el estado viejo.
func (s *OutboxStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) (domain.OutboxStatus, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	query := s.dialect.Rebind(fmt.Sprintf(`UPDATE %s
		SET attempts = attempts + 1,
		    error = ?,
		    status = CASE WHEN attempts + 1 >= ? THEN 'Failed' ELSE 'Pending' END
		WHERE id = ? AND status = 'Pending'
		RETURNING status`, s.table))

	var status string
	err := uow.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, reason, maxAttempts, id.String()).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", domain.ErrOutboxRecordNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("mark failed %s: %w", id, err)
	}
	return domain.OutboxStatus(status), nil
}

func (s *OutboxStore) DeleteProcessedOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	query := s.dialect.Rebind(fmt.Sprintf(`DELETE FROM %s
		WHERE status = 'Processed' AND processed_at_utc IS NOT NULL AND processed_at_utc < ?`, s.table))

	res, err := uow.ExecutorFrom(ctx, s.db).ExecContext(ctx, query, threshold.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete processed: %w", err)
	}
	return res.RowsAffected()
}

// Requeue devuelve un registro Failed a Pending para que el dispatcher lo vuelva a intentar.
func (s *OutboxStore) Requeue(ctx context.Context, id uuid.UUID) error {
	exec := uow.ExecutorFrom(ctx, s.db)
	query := s.dialect.Rebind(fmt.Sprintf(`UPDATE %s
		SET status = 'Pending', attempts = 0, error = NULL
		WHERE id = ? AND status = 'Failed'`, s.table))

	res, err := exec.ExecContext(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("requeue %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var status string
	err = exec.QueryRowContext(ctx,
		s.dialect.Rebind(fmt.Sprintf(`SELECT status FROM %s WHERE id = ?`, s.table)), id.String(),
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrOutboxRecordNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("requeue %s: %w", id, err)
	}
	return fmt.Errorf("%w: %s is %s", domain.ErrOutboxRecordNotFailed, id, status)
}

func (s *OutboxStore) CountByStatus(ctx context.Context) (map[domain.OutboxStatus]int64, error) {
	rows, err := uow.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		fmt.Sprintf(`SELECT status, COUNT(*) FROM %s GROUP BY status`, s.table))
	if err != nil {
		return nil, fmt.Errorf("count outbox: %w", err)
	}
	defer rows.Close()

	counts := map[domain.OutboxStatus]int64{
		domain.OutboxPending:   0,
		domain.OutboxProcessed: 0,
		domain.OutboxFailed:    0,
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.OutboxStatus(status)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.OutboxRecord, error) {
	var (
		r           domain.OutboxRecord
		status      string
		correlation sql.NullString
		causation   sql.NullString
		processedAt sql.NullTime
		errText     sql.NullString
	)
	if err := row.Scan(
		&r.ID, &r.OccurredAtUTC, &r.Type, &r.Payload,
		&correlation, &causation, &processedAt, &r.Attempts, &status, &errText,
	); err != nil {
		return r, fmt.Errorf("scan outbox row: %w", err)
	}
	r.OccurredAtUTC = r.OccurredAtUTC.UTC()
	r.Status = domain.OutboxStatus(status)
	r.CorrelationID = fromNullString(correlation)
	r.CausationID = fromNullString(causation)
	r.Error = fromNullString(errText)
	if processedAt.Valid {
		t := processedAt.Time.UTC()
		r.ProcessedAtUTC = &t
	}
	return r, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Verificación en tiempo de compilación.
var _ domain.OutboxStore = (*OutboxStore)(nil)
