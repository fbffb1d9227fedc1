package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FileStore persiste el registro como un array JSON de ids ordenados.
//
// La escritura es atómica: se escribe un fichero temporal en el mismo
// directorio y se renombra sobre el destino. Un crash a mitad de escritura
// deja el fichero anterior intacto — nunca uno truncado o corrupto.
type FileStore struct {
	path string
}

// NewFileStore crea un FileStore sobre la ruta dada. El fichero puede no
// existir todavía; Load lo tratará como conjunto vacío.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load lee y parsea el fichero. Ausente → conjunto vacío sin error.
// Corrupto → error (el Registry lo degrada a warning).
func (f *FileStore) Load(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("registry.FileStore: read %q: %w", f.path, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("registry.FileStore: parse %q: %w", f.path, err)
	}
	return ids, nil
}

// Save reescribe el fichero completo con write-to-temp + rename.
func (f *FileStore) Save(_ context.Context, ids []string) error {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	data, err := json.Marshal(sorted)
	if err != nil {
		return fmt.Errorf("registry.FileStore: marshal: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("registry.FileStore: mkdir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".seen-*.tmp")
	if err != nil {
		return fmt.Errorf("registry.FileStore: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("registry.FileStore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("registry.FileStore: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("registry.FileStore: close temp: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("registry.FileStore: rename: %w", err)
	}
	return nil
}
