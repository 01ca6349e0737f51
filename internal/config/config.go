package config

import (
	"log/slog"
	"os"
	"strconv"
)

// Config содержит конфигурацию сервера
type Config struct {
	Address string // Address для HTTP сервера (e.g., 0.0.0.0:8080)
	WebDir  string // Каталог статики админ-панели, пусто = не раздавать

	// Хранилище
	Store   string // "sqlite" или "file"
	DBPath  string // Путь к файлу SQLite
	DataDir string // Каталог документов для файлового хранилища

	// Ключи доступа
	AgentKey     string // Пустой ключ = агентский API открыт
	AdminKey     string
	AdminKeyHash string // bcrypt-хеш, имеет приоритет над AdminKey
	MasterKey    string

	// Telegram уведомления (опционально)
	TelegramToken  string
	TelegramChatID int64
}

// Load загружает конфигурацию из переменных окружения
func Load(logger *slog.Logger) *Config {
	address := os.Getenv("ADDRESS")
	if address == "" {
		address = "0.0.0.0:8080"
	}

	store := os.Getenv("STORE")
	if store == "" {
		store = "sqlite"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./copier_hub.db"
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	agentKey := os.Getenv("API_KEY")
	if agentKey == "" {
		logger.Warn("⚠️ API_KEY not set, agent endpoints are open")
	}

	adminKey := os.Getenv("ADMIN_KEY")
	adminKeyHash := os.Getenv("ADMIN_KEY_HASH")
	if adminKey == "" && adminKeyHash == "" {
		logger.Warn("⚠️ ADMIN_KEY not set, admin endpoints are disabled")
	}

	masterKey := os.Getenv("MASTER_KEY")
	if masterKey == "" {
		logger.Warn("⚠️ MASTER_KEY not set, push endpoint is disabled")
	}

	var chatID int64
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logger.Warn("⚠️ Invalid TELEGRAM_CHAT_ID, notifications disabled", slog.String("value", raw))
		} else {
			chatID = parsed
		}
	}

	return &Config{
		Address:        address,
		WebDir:         os.Getenv("WEB_DIR"),
		Store:          store,
		DBPath:         dbPath,
		DataDir:        dataDir,
		AgentKey:       agentKey,
		AdminKey:       adminKey,
		AdminKeyHash:   adminKeyHash,
		MasterKey:      masterKey,
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: chatID,
	}
}
