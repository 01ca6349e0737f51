package registry

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"copier_hub/internal/models"
	"copier_hub/internal/storage"

	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := storage.NewFile(t.TempDir(), logger)
	require.NoError(t, err)

	reg, err := New(store, logger)
	require.NoError(t, err)

	return reg
}

func TestCreateRequiresNameAndGroup(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Create("", "G1", "M1")
	require.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = reg.Create("Acme", "", "M1")
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestCreateDefaults(t *testing.T) {
	reg := newTestRegistry(t)

	client, err := reg.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	require.NotEmpty(t, client.ClientID)
	require.Len(t, client.APIKey, 64)
	require.True(t, client.Enabled)
	require.Empty(t, client.BoundSlaveID)

	now := time.Now().UnixMilli()
	require.InDelta(t, now+31*dayMs, client.ExpiresAt, 5000)
	require.True(t, client.IsActive(now))
}

func TestUnknownDurationFallsBackToM1(t *testing.T) {
	reg := newTestRegistry(t)

	client, err := reg.Create("Acme", "G1", "bogus")
	require.NoError(t, err)

	require.InDelta(t, time.Now().UnixMilli()+31*dayMs, client.ExpiresAt, 5000)
}

func TestExtendExpiredStartsFromNow(t *testing.T) {
	reg := newTestRegistry(t)

	client, err := reg.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	// Лицензия истекла давно
	reg.mu.Lock()
	reg.clients[client.ClientID].ExpiresAt = time.Now().UnixMilli() - 90*dayMs
	reg.mu.Unlock()

	extended, err := reg.Extend(client.ClientID, "M1")
	require.NoError(t, err)

	require.InDelta(t, time.Now().UnixMilli()+31*dayMs, extended.ExpiresAt, 5000)
}

func TestExtendActiveAddsToCurrentExpiry(t *testing.T) {
	reg := newTestRegistry(t)

	client, err := reg.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	extended, err := reg.Extend(client.ClientID, "M3")
	require.NoError(t, err)

	require.InDelta(t, client.ExpiresAt+93*dayMs, extended.ExpiresAt, 5000)
}

func TestExtendNotFound(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Extend("missing", "M1")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestSetEnabled(t *testing.T) {
	reg := newTestRegistry(t)

	client, err := reg.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	require.NoError(t, reg.SetEnabled(client.ClientID, false))

	found, ok := reg.FindByID(client.ClientID)
	require.True(t, ok)
	require.False(t, found.IsActive(time.Now().UnixMilli()))

	require.ErrorIs(t, reg.SetEnabled("missing", true), models.ErrNotFound)
}

func TestFindByAPIKey(t *testing.T) {
	reg := newTestRegistry(t)

	client, err := reg.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	found, ok := reg.FindByAPIKey(client.APIKey)
	require.True(t, ok)
	require.Equal(t, client.ClientID, found.ClientID)

	_, ok = reg.FindByAPIKey("bogus")
	require.False(t, ok)
}

func TestBindFirstSeenWins(t *testing.T) {
	reg := newTestRegistry(t)

	client, err := reg.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	bound, err := reg.Bind(client.ClientID, "S1")
	require.NoError(t, err)
	require.Equal(t, "S1", bound)

	// Тот же slave — идемпотентно
	bound, err = reg.Bind(client.ClientID, "S1")
	require.NoError(t, err)
	require.Equal(t, "S1", bound)

	// Другой slave — отказ
	_, err = reg.Bind(client.ClientID, "S2")
	require.ErrorIs(t, err, models.ErrForbidden)

	// После сброса S2 привязывается
	require.NoError(t, reg.ResetBind(client.ClientID))

	bound, err = reg.Bind(client.ClientID, "S2")
	require.NoError(t, err)
	require.Equal(t, "S2", bound)
}

func TestBindRaceSingleWinner(t *testing.T) {
	reg := newTestRegistry(t)

	client, err := reg.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	const contenders = 16

	var wg sync.WaitGroup
	errs := make([]error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			_, errs[i] = reg.Bind(client.ClientID, string(rune('A'+i)))
		}(i)
	}

	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.True(t, errors.Is(err, models.ErrForbidden))
		}
	}

	require.Equal(t, 1, winners)
}

func TestDelete(t *testing.T) {
	reg := newTestRegistry(t)

	client, err := reg.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	require.NoError(t, reg.Delete(client.ClientID))

	_, ok := reg.FindByID(client.ClientID)
	require.False(t, ok)

	require.ErrorIs(t, reg.Delete(client.ClientID), models.ErrNotFound)
}

func TestPersistAndReload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := storage.NewFile(t.TempDir(), logger)
	require.NoError(t, err)

	reg, err := New(store, logger)
	require.NoError(t, err)

	client, err := reg.Create("Acme", "G1", "M1")
	require.NoError(t, err)

	_, err = reg.Bind(client.ClientID, "S1")
	require.NoError(t, err)

	reloaded, err := New(store, logger)
	require.NoError(t, err)

	found, ok := reloaded.FindByID(client.ClientID)
	require.True(t, ok)
	require.Equal(t, client.APIKey, found.APIKey)
	require.Equal(t, "S1", found.BoundSlaveID)
}
