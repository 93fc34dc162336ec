// Package fsstore хранит изображения товаров в локальном каталоге,
// который раздаётся HTTP-сервером как статика.
package fsstore

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

// Store пишет файлы под rootDir и выдаёт ссылки с префиксом publicPrefix.
type Store struct {
	rootDir      string
	publicPrefix string
}

// New создаёт файловое хранилище. Каталог создаётся при первом сохранении.
func New(rootDir, publicPrefix string) *Store {
	return &Store{
		rootDir:      rootDir,
		publicPrefix: strings.Trim(publicPrefix, "/"),
	}
}

// Save записывает содержимое под именем name и возвращает публичную ссылку.
// Имя очищается от элементов пути: наружу каталога записать нельзя.
func (s *Store) Save(name string, data io.Reader) (string, error) {
	clean := filepath.Base(filepath.Clean(name))
	if clean == "" || clean == "." || clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name: %q", name)
	}

	if err := os.MkdirAll(s.rootDir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(s.rootDir, clean))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	if _, err := io.Copy(dst, data); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close image file: %w", err)
	}

	return path.Join(s.publicPrefix, clean), nil
}

// Remove удаляет файл по ссылке из Save. Отсутствующий файл не считается
// ошибкой: запись могла быть удалена вручную.
func (s *Store) Remove(ref string) error {
	name := path.Base(ref)
	if name == "" || name == "." || name == "/" {
		return fmt.Errorf("invalid file ref: %q", ref)
	}

	if err := os.Remove(filepath.Join(s.rootDir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image file: %w", err)
	}
	return nil
}

// Dir возвращает корневой каталог для монтирования статики.
func (s *Store) Dir() string {
	return s.rootDir
}

var _ domain.FileStore = (*Store)(nil)
