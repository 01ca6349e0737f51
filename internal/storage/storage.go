package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// DocumentStore — абстрактное хранилище именованных JSON-документов.
// Load возвращает false без ошибки, если документа ещё нет.
// Save атомарно заменяет документ целиком.
type DocumentStore interface {
	Load(name string, out any) (bool, error)
	Save(name string, doc any) error
	Close() error
}

// Storage хранит документы в таблице SQLite
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

// New создает новый экземпляр Storage
func New(dbPath string, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	storage := &Storage{
		db:     db,
		logger: logger,
	}

	if err := storage.init(); err != nil {
		return nil, err
	}

	return storage, nil
}

// init инициализирует таблицы БД
func (s *Storage) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			name TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	s.logger.Info("✅ Database initialized")

	return nil
}

// Load загружает документ по имени
func (s *Storage) Load(name string, out any) (bool, error) {
	var body string

	err := s.db.QueryRow(`SELECT body FROM documents WHERE name = ?`, name).Scan(&body)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load document %q: %w", name, err)
	}

	if err := json.Unmarshal([]byte(body), out); err != nil {
		return false, fmt.Errorf("failed to decode document %q: %w", name, err)
	}

	return true, nil
}

// Save сохраняет документ, заменяя предыдущую версию целиком
func (s *Storage) Save(name string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %q: %w", name, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO documents (name, body, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP
	`, name, string(body))
	if err != nil {
		return fmt.Errorf("failed to save document %q: %w", name, err)
	}

	return nil
}

// Close закрывает соединение с БД
func (s *Storage) Close() error {
	return s.db.Close()
}
