package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Backend — хранилище байтов картинок. Ключ — относительный путь с "/".
type Backend interface {
	Write(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// ErrOutsideRoot возвращается для ключей, которые выходят за корень хранилища
var ErrOutsideRoot = errors.New("path escapes storage root")

// LocalBackend хранит файлы на диске под Root
type LocalBackend struct {
	Root string
}

var _ Backend = (*LocalBackend)(nil)

func NewLocalBackend(root string) *LocalBackend {
	return &LocalBackend{Root: root}
}

// Init создаёт корень и подпапки для товаров и постов
func (b *LocalBackend) Init() error {
	for _, dir := range []string{b.Root, filepath.Join(b.Root, KindProduct.dir()), filepath.Join(b.Root, KindBlog.dir())} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return nil
}

// Path переводит ключ в путь на диске; ключи вида "../x" отклоняются
func (b *LocalBackend) Path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", ErrOutsideRoot
	}
	return filepath.Join(b.Root, clean), nil
}

// Write пишет поток в файл; при ошибке недописанный файл удаляется
func (b *LocalBackend) Write(ctx context.Context, key string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path, err := b.Path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create image directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create image file: %w", err)
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("failed to write image file: %w", err)
	}
	return n, nil
}

// Open открывает файл на чтение. Для отсутствующего файла ошибка оборачивает os.ErrNotExist.
func (b *LocalBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := b.Path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	return f, nil
}

// Remove удаляет файл; отсутствие файла — не ошибка
func (b *LocalBackend) Remove(_ context.Context, key string) error {
	path, err := b.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}
	return nil
}
