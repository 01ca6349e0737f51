package eventlog

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"copier_hub/internal/models"
	"copier_hub/internal/storage"
)

const eventsDocument = "events"

// Журнал держит не больше maxEvents событий, старые вытесняются первыми
const defaultMaxEvents = 50000

// Лимит выборки за один poll
const (
	minListLimit = 1
	maxListLimit = 500
)

// logDocument — формат журнала в хранилище: счетчик + события
type logDocument struct {
	NextID int64          `json:"nextId"`
	Events []models.Event `json:"events"`
}

// Log — append-only журнал событий с общим монотонным счетчиком id.
// Группы разделяются фильтром при чтении, журнал физически один,
// поэтому порядок id глобален.
type Log struct {
	mu        sync.Mutex
	events    []models.Event
	nextID    int64
	maxEvents int
	store     storage.DocumentStore
	logger    *slog.Logger
}

// New создает журнал и поднимает сохраненные события из хранилища
func New(store storage.DocumentStore, logger *slog.Logger) (*Log, error) {
	l := &Log{
		maxEvents: defaultMaxEvents,
		store:     store,
		logger:    logger,
	}

	var saved logDocument

	found, err := store.Load(eventsDocument, &saved)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	if found {
		l.events = saved.Events
		l.nextID = saved.NextID

		logger.Info("✅ Events loaded",
			slog.Int("count", len(saved.Events)),
			slog.Int64("next_id", saved.NextID))
	}

	return l, nil
}

// Append добавляет событие, присваивая следующий id из общего счетчика.
// Возвращает событие с присвоенным id.
func (l *Log) Append(group, eventType string, fields models.Event) (models.Event, error) {
	if group == "" {
		return models.Event{}, fmt.Errorf("%w: group is required", models.ErrInvalidInput)
	}

	if eventType != models.EventOpen && eventType != models.EventClose {
		return models.Event{}, fmt.Errorf("%w: type must be OPEN or CLOSE", models.ErrInvalidInput)
	}

	if fields.MasterTicket == 0 || fields.Symbol == "" {
		return models.Event{}, fmt.Errorf("%w: master_ticket and symbol are required", models.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++

	event := fields
	event.ID = l.nextID
	event.Group = group
	event.Type = eventType

	if event.Ts == 0 {
		event.Ts = time.Now().UnixMilli()
	}

	l.events = append(l.events, event)

	// Ретеншн: держим только последние maxEvents событий
	if len(l.events) > l.maxEvents {
		trimmed := make([]models.Event, l.maxEvents)
		copy(trimmed, l.events[len(l.events)-l.maxEvents:])
		l.events = trimmed
	}

	l.persistLocked()

	l.logger.Info("📨 Event appended",
		slog.Int64("id", event.ID),
		slog.String("group", group),
		slog.String("type", eventType),
		slog.String("symbol", event.Symbol))

	return event, nil
}

// ListSince возвращает события группы с id > sinceID в порядке возрастания id.
// limit обрезается в диапазон [1, 500]. Результат — снимок на момент вызова.
func (l *Log) ListSince(group string, sinceID int64, limit int) []models.Event {
	if limit < minListLimit {
		limit = minListLimit
	}

	if limit > maxListLimit {
		limit = maxListLimit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]models.Event, 0, limit)
	for _, event := range l.events {
		if event.Group != group || event.ID <= sinceID {
			continue
		}

		result = append(result, event)
		if len(result) >= limit {
			break
		}
	}

	return result
}

// LastID возвращает последний присвоенный id
func (l *Log) LastID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.nextID
}

// Len возвращает текущий размер журнала
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.events)
}

// persistLocked сохраняет журнал; ошибка записи не фатальна
func (l *Log) persistLocked() {
	doc := logDocument{
		NextID: l.nextID,
		Events: l.events,
	}

	if err := l.store.Save(eventsDocument, doc); err != nil {
		l.logger.Warn("⚠️ Failed to persist events, keeping in-memory state", slog.Any("error", err))
	}
}
