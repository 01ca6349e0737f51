package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"copier_hub/internal/access"
	"copier_hub/internal/agent"
	"copier_hub/internal/api"
	"copier_hub/internal/config"
	"copier_hub/internal/copier"
	"copier_hub/internal/eventlog"
	"copier_hub/internal/notify"
	"copier_hub/internal/registry"
	"copier_hub/internal/slaves"
	"copier_hub/internal/storage"

	"github.com/lmittmann/tint"
)

func main() {
	// Конфигурация slog для вывода в файл и stdout
	logFile, err := os.OpenFile("copier_server.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}
	defer logFile.Close()

	// Pretty handler для stdout с цветами
	prettyHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen, // "3:04PM"
		AddSource:  false,
		NoColor:    false,
	})

	// Обычный текстовый handler для файла
	fileHandler := slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	// Мультиплексируем логи в оба handler'а
	logger := slog.New(&multiHandler{
		handlers: []slog.Handler{prettyHandler, fileHandler},
	})

	logger.Info("=== Copier Hub — Signal Distribution Server ===")

	// Загрузка конфигурации из env
	cfg := config.Load(logger)

	// Инициализация хранилища документов
	var store storage.DocumentStore

	switch cfg.Store {
	case "file":
		store, err = storage.NewFile(cfg.DataDir, logger)
	default:
		store, err = storage.New(cfg.DBPath, logger)
	}

	if err != nil {
		logger.Error("Failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	// Коллекции ядра
	clientRegistry, err := registry.New(store, logger)
	if err != nil {
		logger.Error("Failed to initialize client registry", slog.Any("error", err))
		os.Exit(1)
	}

	events, err := eventlog.New(store, logger)
	if err != nil {
		logger.Error("Failed to initialize event log", slog.Any("error", err))
		os.Exit(1)
	}

	directory, err := slaves.New(store, logger)
	if err != nil {
		logger.Error("Failed to initialize slave directory", slog.Any("error", err))
		os.Exit(1)
	}

	mailbox, err := agent.New(store, logger)
	if err != nil {
		logger.Error("Failed to initialize agent mailbox", slog.Any("error", err))
		os.Exit(1)
	}

	// Уведомления оператору (опционально)
	notifier := notify.New(cfg.TelegramToken, cfg.TelegramChatID, logger)

	// Гейт доступа и сервис раздачи
	gate := access.New(cfg.AgentKey, cfg.AdminKey, cfg.AdminKeyHash, cfg.MasterKey, clientRegistry, logger)
	copierService := copier.New(clientRegistry, events, directory, gate, notifier, logger)

	// Инициализация API handler
	apiHandler := api.New(clientRegistry, events, directory, copierService, mailbox, gate, notifier, logger)

	// Настройка роутинга
	router := apiHandler.SetupRouter(cfg.WebDir)

	// HTTP сервер
	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("🚀 Server starting...", slog.String("address", cfg.Address))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("✅ Server stopped")
}

// multiHandler отправляет логи в несколько handlers одновременно
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range m.handlers {
		if err := h.Handle(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}

	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}

	return &multiHandler{handlers: handlers}
}
