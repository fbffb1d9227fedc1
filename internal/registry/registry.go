package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Store es el backend de persistencia del registro de eventos vistos.
// File-backed en producción, in-memory en tests.
type Store interface {
	// Load lee el conjunto completo de ids persistido.
	Load(ctx context.Context) ([]string, error)

	// Save reescribe el conjunto completo de forma atómica.
	Save(ctx context.Context, ids []string) error
}

// Registry es el conjunto de-duplicador de eventos ya actuados.
//
// Una vez que un id entra, ese evento no vuelve a seleccionarse nunca.
// Dentro de un proceso el acceso es secuencial y no necesita lock externo;
// si varios procesos comparten un mismo store, la exclusión mutua debe
// proveerla el entorno — este código no la implementa.
type Registry struct {
	store Store
	mu    sync.Mutex
	seen  map[string]struct{}
}

// New crea un Registry sobre el store dado. Llamar a Load antes de usarlo.
func New(store Store) *Registry {
	return &Registry{store: store, seen: make(map[string]struct{})}
}

// Load carga el conjunto persistido. Un store ausente o corrupto produce un
// conjunto vacío y un warning — nunca un error fatal: perder el histórico es
// recuperable, abortar el proceso no aporta nada.
func (r *Registry) Load(ctx context.Context) {
	ids, err := r.store.Load(ctx)
	if err != nil {
		slog.Warn("seen registry unreadable, starting empty", "err", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if id != "" {
			r.seen[id] = struct{}{}
		}
	}
	slog.Debug("seen registry loaded", "entries", len(r.seen))
}

// Contains devuelve true si el id ya fue marcado.
func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[id]
	return ok
}

// MarkSeen añade el id al registro y lo persiste. Idempotente: marcar un id
// ya presente no reescribe el store.
//
// El id solo entra al conjunto en memoria si la persistencia tuvo éxito;
// un Save fallido deja el registro exactamente como estaba, y el siguiente
// MarkSeen del mismo id vuelve a intentar la escritura.
func (r *Registry) MarkSeen(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("registry.MarkSeen: empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[id]; ok {
		return nil
	}

	ids := make([]string, 0, len(r.seen)+1)
	for k := range r.seen {
		ids = append(ids, k)
	}
	ids = append(ids, id)

	if err := r.store.Save(ctx, ids); err != nil {
		return fmt.Errorf("registry.MarkSeen: persist %q: %w", id, err)
	}
	r.seen[id] = struct{}{}
	return nil
}

// Len devuelve el número de ids marcados.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// MemoryStore es un Store en memoria para tests.
type MemoryStore struct {
	mu  sync.Mutex
	ids []string
}

// NewMemoryStore crea un MemoryStore vacío.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load devuelve la última copia guardada.
func (m *MemoryStore) Load(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out, nil
}

// Save reemplaza la copia guardada.
func (m *MemoryStore) Save(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = make([]string, len(ids))
	copy(m.ids, ids)
	return nil
}
