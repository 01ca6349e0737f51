package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore хранит каждый документ в отдельном JSON-файле.
// Запись идет через временный файл и rename, чтобы на диске
// никогда не оказался наполовину записанный документ.
type FileStore struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFile создает файловое хранилище в каталоге dir
func NewFile(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	logger.Info("✅ File store initialized", slog.String("dir", dir))

	return &FileStore{
		dir:    dir,
		logger: logger,
	}, nil
}

// Load загружает документ по имени
func (s *FileStore) Load(name string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load document %q: %w", name, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode document %q: %w", name, err)
	}

	return true, nil
}

// Save записывает документ через временный файл и атомарный rename
func (s *FileStore) Save(name string, doc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document %q: %w", name, err)
	}

	path := s.path(name)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document %q: %w", name, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit document %q: %w", name, err)
	}

	return nil
}

// Close ничего не держит открытым
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}
