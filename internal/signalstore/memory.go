package signalstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"fx-signal-bot/internal/types"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("signal store unavailable")

type entry struct {
	dir types.Direction
	at  time.Time
}

// Memory keeps the last signal per instrument in process.
type Memory struct {
	mu   sync.Mutex
	last map[string]entry
}

func NewMemory() *Memory {
	return &Memory{last: make(map[string]entry)}
}

func (m *Memory) CheckAndRecord(_ context.Context, instrument string, dir types.Direction, at time.Time, within time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.last[instrument]
	m.last[instrument] = entry{dir: dir, at: at}
	if !ok {
		return false, nil
	}
	return opposes(prev.dir, prev.at, dir, at, within), nil
}

// opposes reports whether prev is the opposite direction and no older than within.
func opposes(prevDir types.Direction, prevAt time.Time, dir types.Direction, at time.Time, within time.Duration) bool {
	if prevDir != dir.Opposite() {
		return false
	}
	age := at.Sub(prevAt)
	return age >= 0 && age <= within
}
