package storage

// sqlite.go — audit log append-only del pipeline.
//
// Una fila por decisión terminal del ciclo (orden enviada, skip, fallo de
// gate). Las filas nunca se actualizan ni se borran: el log es la fuente
// de verdad para reconstruir por qué se consumió cada evento.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/amedina/polypilot/internal/domain"
	_ "modernc.org/sqlite"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    ts                DATETIME NOT NULL,
    event_id          TEXT NOT NULL,
    decision          TEXT NOT NULL,
    market_id         TEXT NOT NULL DEFAULT '',
    token_id          TEXT NOT NULL DEFAULT '',
    side              TEXT NOT NULL DEFAULT '',
    size              REAL NOT NULL DEFAULT 0,
    limit_price       REAL NOT NULL DEFAULT 0,
    client_request_id TEXT NOT NULL DEFAULT '',
    order_status      TEXT NOT NULL DEFAULT '',
    external_order_id TEXT NOT NULL DEFAULT '',
    filled_size       REAL NOT NULL DEFAULT 0,
    avg_price         REAL NOT NULL DEFAULT 0,
    raw_status        TEXT NOT NULL DEFAULT '',
    detail            TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_ts    ON audit_log(ts DESC);
CREATE INDEX IF NOT EXISTS idx_audit_event ON audit_log(event_id);
`

// SQLiteAudit implementa ports.AuditLog usando SQLite (pure Go, sin CGo).
type SQLiteAudit struct {
	db *sql.DB
}

// NewSQLiteAudit abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewSQLiteAudit(path string) (*SQLiteAudit, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteAudit: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteAudit: apply schema: %w", err)
	}
	return &SQLiteAudit{db: db}, nil
}

// Append inserta un registro. Nunca hay UPDATE ni DELETE sobre audit_log.
func (s *SQLiteAudit) Append(ctx context.Context, rec domain.AuditRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log
		  (ts, event_id, decision, market_id, token_id, side, size, limit_price,
		   client_request_id, order_status, external_order_id, filled_size,
		   avg_price, raw_status, detail)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts.UTC(), rec.EventID, rec.Decision,
		rec.Intent.MarketID, rec.Intent.TokenID, rec.Intent.Side,
		rec.Intent.Size, rec.Intent.LimitPrice, rec.Intent.ClientRequestID,
		string(rec.Result.Status), rec.Result.ExternalOrderID,
		rec.Result.FilledSize, rec.Result.AvgPrice, rec.Result.RawStatus,
		rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("storage.SQLiteAudit: append: %w", err)
	}
	return nil
}

// Records devuelve los registros del rango [from, to], más antiguos primero.
func (s *SQLiteAudit) Records(ctx context.Context, from, to time.Time) ([]domain.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, event_id, decision, market_id, token_id, side, size,
		       limit_price, client_request_id, order_status, external_order_id,
		       filled_size, avg_price, raw_status, detail
		FROM audit_log
		WHERE ts >= ? AND ts <= ?
		ORDER BY ts ASC, id ASC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.SQLiteAudit: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.AuditRecord
	for rows.Next() {
		var r domain.AuditRecord
		var status string
		if err := rows.Scan(
			&r.Timestamp, &r.EventID, &r.Decision,
			&r.Intent.MarketID, &r.Intent.TokenID, &r.Intent.Side,
			&r.Intent.Size, &r.Intent.LimitPrice, &r.Intent.ClientRequestID,
			&status, &r.Result.ExternalOrderID,
			&r.Result.FilledSize, &r.Result.AvgPrice, &r.Result.RawStatus,
			&r.Detail,
		); err != nil {
			return nil, fmt.Errorf("storage.SQLiteAudit: scan: %w", err)
		}
		r.Intent.EventID = r.EventID
		r.Result.Status = domain.OrderStatus(status)
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.SQLiteAudit: rows: %w", err)
	}
	return recs, nil
}

// Close cierra la conexión.
func (s *SQLiteAudit) Close() error {
	return s.db.Close()
}
