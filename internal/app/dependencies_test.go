package app

import (
	"context"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestInitStorage_Memory(t *testing.T) {
	t.Parallel()

	repos, err := initStorage(context.Background(), Config{
		StorageDriver: StorageDriverMemory,
	}, log.WithField("test", "memory-storage"))
	if err != nil {
		t.Fatalf("initStorage(memory) failed: %v", err)
	}
	defer repos.Close()

	if repos.Products == nil {
		t.Fatal("Products should not be nil for memory storage")
	}
	if repos.Clients == nil {
		t.Fatal("Clients should not be nil for memory storage")
	}
	if repos.Users == nil {
		t.Fatal("Users should not be nil for memory storage")
	}
	if repos.Orders == nil {
		t.Fatal("Orders should not be nil for memory storage")
	}
	if repos.Sessions == nil {
		t.Fatal("Sessions should not be nil for memory storage")
	}
	if repos.History == nil {
		t.Fatal("History should not be nil for memory storage")
	}
	if repos.Outbox == nil {
		t.Fatal("Outbox should not be nil for memory storage")
	}
	if repos.Store != nil {
		t.Fatal("Store should be nil for memory storage")
	}
}

func TestInitStorage_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := initStorage(context.Background(), Config{
		StorageDriver: "sqlite",
	}, log.WithField("test", "unknown-storage"))
	if err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
}

func TestRepositoriesClose_NilStore(t *testing.T) {
	t.Parallel()

	repos := &Repositories{}
	if err := repos.Close(); err != nil {
		t.Errorf("Close with nil store should not fail: %v", err)
	}
}

func TestInitFileStore(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "static")
	files, err := initFileStore(Config{StaticDir: dir})
	if err != nil {
		t.Fatalf("initFileStore failed: %v", err)
	}
	if files == nil {
		t.Fatal("file store should not be nil")
	}
}

func TestInitFileStore_EmptyDir(t *testing.T) {
	t.Parallel()

	if _, err := initFileStore(Config{}); err == nil {
		t.Fatal("expected error for empty static dir")
	}
}
