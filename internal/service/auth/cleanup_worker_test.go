package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

var _ domain.SessionRepository = (*stubCleanupRepo)(nil)

func TestCleanupWorker_DeleteExpired_DrainsInBatches(t *testing.T) {
	t.Parallel()

	repo := &stubCleanupRepo{batches: []int{3, 3, 2}}
	worker := NewCleanupWorker(repo, WithBatchSize(3))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("очистка сессий упала: %v", err)
	}
	if deleted != 8 {
		t.Fatalf("удалено %d сессий, ожидалось 8", deleted)
	}
	if got := repo.calls(); got != 3 {
		t.Fatalf("репозиторий вызван %d раз, ожидалось 3", got)
	}
}

func TestCleanupWorker_DeleteExpired_SingleShortBatch(t *testing.T) {
	t.Parallel()

	// Первый же батч меньше лимита: второй запрос не нужен.
	repo := &stubCleanupRepo{batches: []int{4}}
	worker := NewCleanupWorker(repo, WithBatchSize(10))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("очистка сессий упала: %v", err)
	}
	if deleted != 4 {
		t.Fatalf("удалено %d сессий, ожидалось 4", deleted)
	}
	if got := repo.calls(); got != 1 {
		t.Fatalf("репозиторий вызван %d раз, ожидался 1", got)
	}
}

func TestCleanupWorker_DeleteExpired_RepositoryError(t *testing.T) {
	t.Parallel()

	repo := &stubCleanupRepo{failWith: errors.New("соединение потеряно")}
	worker := NewCleanupWorker(repo, WithBatchSize(10))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err == nil {
		t.Fatal("ожидалась ошибка репозитория")
	}
	if deleted != 0 {
		t.Fatalf("удалено %d сессий, ожидалось 0", deleted)
	}
}

func TestCleanupWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := &stubCleanupRepo{}
	worker := NewCleanupWorker(
		repo,
		WithInterval(5*time.Millisecond),
		WithBatchSize(10),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("воркер не остановился по отмене контекста")
	}

	if repo.calls() == 0 {
		t.Fatal("ожидался хотя бы один проход очистки")
	}
}

// stubCleanupRepo отдаёт заранее заданные размеры батчей; остальные методы
// SessionRepository воркеру не нужны.
type stubCleanupRepo struct {
	mu        sync.Mutex
	batches   []int
	failWith  error
	callCount int
}

func (s *stubCleanupRepo) Create(domain.Session) (domain.Session, error) {
	panic("not implemented")
}

func (s *stubCleanupRepo) Get(string) (domain.Session, error) {
	panic("not implemented")
}

func (s *stubCleanupRepo) Delete(string) error {
	panic("not implemented")
}

func (s *stubCleanupRepo) DeleteExpired(_ time.Time, _ int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	if s.failWith != nil {
		return 0, s.failWith
	}
	if len(s.batches) == 0 {
		return 0, nil
	}
	n := s.batches[0]
	s.batches = s.batches[1:]
	return n, nil
}

func (s *stubCleanupRepo) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}
