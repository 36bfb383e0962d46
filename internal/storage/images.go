package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"flowershop/internal/apperr"
)

const (
	DefaultFetchTimeout  = 10 * time.Second
	DefaultMaxImageBytes = 10 << 20

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// ImageManager сохраняет и удаляет картинки товаров и постов.
// В БД не ходит: сохранение URL в сущности — забота вызывающего сервиса.
type ImageManager struct {
	backend  Backend
	resolver Resolver
	client   *http.Client
	maxBytes int64
}

type Option func(*ImageManager)

func WithFetchTimeout(d time.Duration) Option {
	return func(m *ImageManager) {
		if d > 0 {
			m.client = &http.Client{Timeout: d}
		}
	}
}

func WithMaxImageBytes(n int64) Option {
	return func(m *ImageManager) {
		if n > 0 {
			m.maxBytes = n
		}
	}
}

func NewImageManager(backend Backend, resolver Resolver, opts ...Option) *ImageManager {
	m := &ImageManager{
		backend:  backend,
		resolver: resolver,
		client:   &http.Client{Timeout: DefaultFetchTimeout},
		maxBytes: DefaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SaveFromUpload пишет загруженный файл и возвращает его публичный URL
func (m *ImageManager) SaveFromUpload(ctx context.Context, r io.Reader, size int64, originalName string, kind Kind, entityID uint, role Role) (string, error) {
	if r == nil || size == 0 {
		return "", apperr.InvalidArgument("image file is empty")
	}
	ext, ok := uploadExt(originalName)
	if !ok {
		return "", apperr.InvalidArgument("unsupported image format: %s", ext)
	}
	if size > m.maxBytes {
		return "", apperr.InvalidArgument("image file is too large")
	}

	return m.store(ctx, io.LimitReader(r, m.maxBytes), kind, entityID, role, ext)
}

// SaveFromRemoteURL скачивает картинку и сохраняет её так же, как загруженную.
// Управляемый URL главной картинки той же сущности возвращается как есть,
// любой другой управляемый файл копируется в папку сущности.
func (m *ImageManager) SaveFromRemoteURL(ctx context.Context, sourceURL string, kind Kind, entityID uint, role Role) (string, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return "", apperr.InvalidArgument("image url is empty")
	}
	if rel, ok := m.resolver.RelativePath(sourceURL); ok {
		if role == RoleMain && path.Dir(rel) == Dir(kind, entityID, role) {
			return sourceURL, nil
		}
		return m.copyManaged(ctx, rel, kind, entityID, role)
	}

	u, err := url.Parse(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.InvalidArgument("invalid image url: %s", sourceURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", apperr.Internal(err, "failed to build image request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", apperr.Internal(err, "failed to download image from "+sourceURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.Internal(fmt.Errorf("unexpected status %d", resp.StatusCode), "failed to download image from "+sourceURL)
	}
	if resp.ContentLength > m.maxBytes {
		return "", apperr.Internal(fmt.Errorf("content length %d exceeds %d", resp.ContentLength, m.maxBytes), "failed to download image from "+sourceURL)
	}

	// читаем на байт больше лимита, чтобы отличить "ровно лимит" от "больше"
	body := &countingReader{r: io.LimitReader(resp.Body, m.maxBytes+1)}
	publicURL, err := m.store(ctx, &capReader{r: body, max: m.maxBytes}, kind, entityID, role, remoteExt(u))
	if err != nil {
		return "", apperr.Internal(err, "failed to download image from "+sourceURL)
	}
	if body.n == 0 {
		m.Delete(ctx, publicURL)
		return "", apperr.Internal(fmt.Errorf("empty response body"), "failed to download image from "+sourceURL)
	}
	return publicURL, nil
}

// copyManaged копирует файл из хранилища, чтобы у каждой сущности был свой файл
func (m *ImageManager) copyManaged(ctx context.Context, rel string, kind Kind, entityID uint, role Role) (string, error) {
	src, err := m.backend.Open(ctx, rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, ErrOutsideRoot) {
			return "", apperr.InvalidArgument("image not found: %s", m.resolver.PublicURL(rel))
		}
		return "", apperr.Internal(err, "failed to read stored image")
	}
	defer src.Close()

	ext := strings.ToLower(path.Ext(rel))
	if !imageExts[ext] {
		ext = defaultRemoteExt
	}
	return m.store(ctx, io.LimitReader(src, m.maxBytes), kind, entityID, role, ext)
}

// Delete удаляет файл по публичному URL. Внешние и пустые URL — no-op.
// Ошибки только логируются.
func (m *ImageManager) Delete(ctx context.Context, publicURL string) {
	if strings.TrimSpace(publicURL) == "" {
		return
	}
	rel, ok := m.resolver.RelativePath(publicURL)
	if !ok {
		log.Debug().Str("url", publicURL).Msg("image is external, skip delete")
		return
	}
	if err := m.backend.Remove(ctx, rel); err != nil {
		log.Warn().Err(err).Str("url", publicURL).Msg("failed to delete image")
		return
	}
	log.Info().Str("path", rel).Msg("image deleted")
}

func (m *ImageManager) PublicURL(relative string) string {
	return m.resolver.PublicURL(relative)
}

func (m *ImageManager) IsManaged(publicURL string) bool {
	return m.resolver.IsManaged(publicURL)
}

func (m *ImageManager) RelativePath(publicURL string) (string, bool) {
	return m.resolver.RelativePath(publicURL)
}

// SourceFileName — имя файла для колонки file_name у картинки, скачанной по URL
func SourceFileName(sourceURL string) string {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil {
		return path.Base(sourceURL)
	}
	return remoteFileName(u)
}

func (m *ImageManager) store(ctx context.Context, r io.Reader, kind Kind, entityID uint, role Role, ext string) (string, error) {
	rel := Dir(kind, entityID, role) + "/" + GenerateName(role, ext)
	if _, err := m.backend.Write(ctx, rel, r); err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return "", err
		}
		return "", apperr.Internal(err, "failed to store image")
	}
	log.Info().Str("path", rel).Str("role", role.String()).Msg("image saved")
	return m.resolver.PublicURL(rel), nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// capReader отдаёт ошибку, как только прочитано больше max байт;
// backend при ошибке удаляет недописанный файл
type capReader struct {
	r    io.Reader
	max  int64
	read int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.read > c.max {
		return n, fmt.Errorf("image exceeds %d bytes", c.max)
	}
	return n, err
}
