package lock

import (
	"context"
	"sync"

	"github.com/senyabanana/organ-match-service/internal/models"
)

// Locker обеспечивает, что одновременно выполняется только один проход подбора.
// Занятая блокировка не ожидается: TryLock сразу возвращает ErrPassAlreadyRunning.
type Locker interface {
	TryLock(ctx context.Context) (release func(), err error)
}

// LocalLocker - блокировка в пределах одного процесса.
type LocalLocker struct {
	mu sync.Mutex
}

// NewLocalLocker создает новый экземпляр LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

// TryLock захватывает блокировку, если она свободна.
func (l *LocalLocker) TryLock(_ context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, models.NewEngineError(models.ErrPassAlreadyRunning, nil, "try again after the current pass finishes")
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}
