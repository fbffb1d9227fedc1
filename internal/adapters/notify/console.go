package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/amedina/polypilot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
	top   int
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool, top int) *Console {
	return &Console{out: os.Stdout, table: table, top: top}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool, top int) *Console {
	return &Console{out: w, table: table, top: top}
}

// NotifyCycle imprime el desenlace del ciclo y el top de candidatos rankeados.
func (c *Console) NotifyCycle(_ context.Context, decision string, ranked []domain.ScoreRecord) error {
	now := time.Now().Format("15:04:05")

	if len(ranked) == 0 {
		fmt.Fprintf(c.out, "[%s] %s | no candidates\n", now, decision)
		return nil
	}

	if c.table {
		fmt.Fprintf(c.out, "[%s] %s | %d candidates\n", now, decision, len(ranked))
		c.printTable(ranked)
		return nil
	}

	c.printCompact(now, decision, ranked)
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(now, decision string, ranked []domain.ScoreRecord) {
	top := ranked[0]
	fmt.Fprintf(c.out, "[%s] %s | %d candidates | top: %s score=%.3f liq=$%.0f\n",
		now, decision, len(ranked), compactName(top.Title, 40), top.Score, top.Liquidity)
}

// printTable imprime el top de candidatos como tabla.
func (c *Console) printTable(ranked []domain.ScoreRecord) {
	limit := c.top
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Event", "Score", "Liquidity", "Rationale")

	for i, rec := range ranked[:limit] {
		table.Append(
			fmt.Sprintf("%d", i+1),
			compactName(rec.Title, 40),
			fmt.Sprintf("%.3f", rec.Score),
			fmt.Sprintf("$%.0f", rec.Liquidity),
			rec.Rationale,
		)
	}
	table.Render()
}

// compactName trunca nombres largos con elipsis, contando runas para no
// partir caracteres multibyte.
func compactName(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
