package ports

import (
	"context"
	"time"

	"github.com/amedina/polypilot/internal/domain"
)

// AuditLog persiste el rastro de decisiones del pipeline. Append-only.
type AuditLog interface {
	// Append añade un registro. Nunca modifica registros existentes.
	Append(ctx context.Context, rec domain.AuditRecord) error

	// Records devuelve los registros del rango dado, más antiguos primero.
	Records(ctx context.Context, from, to time.Time) ([]domain.AuditRecord, error)

	// Close cierra la conexión limpiamente.
	Close() error
}
