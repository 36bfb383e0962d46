package service

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"flowershop/internal/storage"
)

// ImageStore — то, что сервисам нужно от storage.ImageManager
type ImageStore interface {
	SaveFromUpload(ctx context.Context, r io.Reader, size int64, originalName string, kind storage.Kind, entityID uint, role storage.Role) (string, error)
	SaveFromRemoteURL(ctx context.Context, sourceURL string, kind storage.Kind, entityID uint, role storage.Role) (string, error)
	Delete(ctx context.Context, publicURL string)
}

var _ ImageStore = (*storage.ImageManager)(nil)

// Upload — файл из multipart-запроса
type Upload struct {
	Reader   io.Reader
	Size     int64
	FileName string
}

// storedImage — сохранённая картинка. Fresh=false, если storage вернул уже
// управляемый URL без записи нового файла: такой файл нельзя удалять при откате.
type storedImage struct {
	URL      string
	FileName string
	Fresh    bool
}

type imageSource func(ctx context.Context, kind storage.Kind, entityID uint, role storage.Role) (storedImage, error)

func fromUpload(images ImageStore, up Upload) imageSource {
	return func(ctx context.Context, kind storage.Kind, entityID uint, role storage.Role) (storedImage, error) {
		url, err := images.SaveFromUpload(ctx, up.Reader, up.Size, up.FileName, kind, entityID, role)
		if err != nil {
			return storedImage{}, err
		}
		return storedImage{URL: url, FileName: up.FileName, Fresh: true}, nil
	}
}

func fromURL(images ImageStore, sourceURL string) imageSource {
	return func(ctx context.Context, kind storage.Kind, entityID uint, role storage.Role) (storedImage, error) {
		url, err := images.SaveFromRemoteURL(ctx, sourceURL, kind, entityID, role)
		if err != nil {
			return storedImage{}, err
		}
		return storedImage{URL: url, FileName: storage.SourceFileName(sourceURL), Fresh: url != sourceURL}, nil
	}
}

// fetchAdditional скачивает дополнительные картинки вне транзакции.
// Недоступные URL логируются и пропускаются.
func fetchAdditional(ctx context.Context, images ImageStore, kind storage.Kind, entityID uint, urls []string) []storedImage {
	var stored []storedImage
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		img, err := fromURL(images, raw)(ctx, kind, entityID, storage.RoleAdditional)
		if err != nil {
			log.Warn().Err(err).Str("kind", string(kind)).Uint("entity_id", entityID).Str("url", raw).Msg("skip image")
			continue
		}
		stored = append(stored, img)
	}
	return stored
}

// discard удаляет только что записанные файлы после неудачной транзакции
func discard(ctx context.Context, images ImageStore, stored ...storedImage) {
	for _, img := range stored {
		if img.Fresh {
			images.Delete(ctx, img.URL)
		}
	}
}

// replaced удаляет старую главную картинку, если она действительно сменилась
func replaced(ctx context.Context, images ImageStore, old, current string) {
	if old != "" && old != current {
		images.Delete(ctx, old)
	}
}
