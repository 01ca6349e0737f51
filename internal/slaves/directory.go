package slaves

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"copier_hub/internal/models"
	"copier_hub/internal/storage"
)

const slavesDocument = "slaves"

// Key — составной ключ курсора
type Key struct {
	Group   string
	SlaveID string
}

// Directory хранит курсоры доставки по парам (group, slaveId)
type Directory struct {
	mu      sync.Mutex
	cursors map[Key]*models.SlaveCursor
	store   storage.DocumentStore
	logger  *slog.Logger
}

// New создает каталог и поднимает сохраненные курсоры из хранилища
func New(store storage.DocumentStore, logger *slog.Logger) (*Directory, error) {
	d := &Directory{
		cursors: make(map[Key]*models.SlaveCursor),
		store:   store,
		logger:  logger,
	}

	var saved map[string]models.SlaveCursor

	found, err := store.Load(slavesDocument, &saved)
	if err != nil {
		return nil, fmt.Errorf("failed to load slave cursors: %w", err)
	}

	if found {
		for _, cursor := range saved {
			c := cursor
			d.cursors[Key{Group: c.Group, SlaveID: c.SlaveID}] = &c
		}

		logger.Info("✅ Slave cursors loaded", slog.Int("count", len(saved)))
	}

	return d, nil
}

// Touch создает курсор при первом обращении и обновляет lastSeenAt
func (d *Directory) Touch(group, slaveID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.touchLocked(group, slaveID).LastSeenAt = time.Now().UnixMilli()
	d.persistLocked()
}

// Ack подтверждает событие: lastAckId = max(текущий, eventID).
// Подтверждение более старого id — no-op, курсор никогда не откатывается.
func (d *Directory) Ack(group, slaveID string, eventID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cursor := d.touchLocked(group, slaveID)
	cursor.LastSeenAt = time.Now().UnixMilli()

	if eventID > cursor.LastAckID {
		cursor.LastAckID = eventID
	}

	d.persistLocked()
}

// Get возвращает курсор, если он существует
func (d *Directory) Get(group, slaveID string) (models.SlaveCursor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cursor, ok := d.cursors[Key{Group: group, SlaveID: slaveID}]
	if !ok {
		return models.SlaveCursor{}, false
	}

	return *cursor, true
}

// List возвращает все курсоры, отсортированные по группе и slaveId
func (d *Directory) List() []models.SlaveCursor {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := make([]models.SlaveCursor, 0, len(d.cursors))
	for _, cursor := range d.cursors {
		list = append(list, *cursor)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Group != list[j].Group {
			return list[i].Group < list[j].Group
		}

		return list[i].SlaveID < list[j].SlaveID
	})

	return list
}

func (d *Directory) touchLocked(group, slaveID string) *models.SlaveCursor {
	key := Key{Group: group, SlaveID: slaveID}

	cursor, ok := d.cursors[key]
	if !ok {
		cursor = &models.SlaveCursor{
			Group:   group,
			SlaveID: slaveID,
		}
		d.cursors[key] = cursor

		d.logger.Info("👋 New slave cursor",
			slog.String("group", group),
			slog.String("slave_id", slaveID))
	}

	return cursor
}

// persistLocked сохраняет курсоры; ошибка записи не фатальна
func (d *Directory) persistLocked() {
	doc := make(map[string]models.SlaveCursor, len(d.cursors))
	for key, cursor := range d.cursors {
		doc[key.Group+"|"+key.SlaveID] = *cursor
	}

	if err := d.store.Save(slavesDocument, doc); err != nil {
		d.logger.Warn("⚠️ Failed to persist slave cursors, keeping in-memory state", slog.Any("error", err))
	}
}
