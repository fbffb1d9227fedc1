package ports

import (
	"context"

	"github.com/amedina/polypilot/internal/domain"
)

// Notifier presenta el resultado de un ciclo al usuario.
type Notifier interface {
	// NotifyCycle muestra el desenlace del ciclo y el top de candidatos.
	NotifyCycle(ctx context.Context, decision string, ranked []domain.ScoreRecord) error
}
