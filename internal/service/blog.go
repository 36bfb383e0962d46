package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"flowershop/internal/apperr"
	"flowershop/internal/db"
	"flowershop/internal/models"
	"flowershop/internal/nullable"
	"flowershop/internal/repository"
	"flowershop/internal/storage"
)

const statusMessage = "Status must be DRAFT or PUBLISHED"

// BlogInput — данные для создания поста. Пустой Status означает DRAFT.
type BlogInput struct {
	Title     string
	Content   string
	Summary   string
	ImageURL  string
	ImageURLs []string
	Status    string
	AuthorID  *uint
}

// BlogPatch — частичное обновление поста. AuthorID=null отвязывает автора.
type BlogPatch struct {
	Title    nullable.Field[string]
	Content  nullable.Field[string]
	Summary  nullable.Field[string]
	ImageURL nullable.Field[string]
	Status   nullable.Field[string]
	AuthorID nullable.Field[uint]
}

type BlogService struct {
	db     *gorm.DB
	blogs  *repository.BlogRepository
	admins *repository.AdminRepository
	images ImageStore
}

func NewBlogService(gdb *gorm.DB, images ImageStore) *BlogService {
	return &BlogService{
		db:     gdb,
		blogs:  repository.NewBlogRepository(gdb),
		admins: repository.NewAdminRepository(gdb),
		images: images,
	}
}

func validateBlog(errs fieldErrors, title, content, summary string) {
	errs.required("title", "Title", title)
	errs.maxLen("title", "Title", title, 255)
	errs.required("content", "Content", content)
	errs.maxLen("summary", "Summary", summary, 500)
}

func (s *BlogService) Create(ctx context.Context, in BlogInput) (*models.Blog, error) {
	in.Title = strings.TrimSpace(in.Title)

	errs := fieldErrors{}
	validateBlog(errs, in.Title, in.Content, in.Summary)
	status := models.BlogDraft
	if strings.TrimSpace(in.Status) != "" {
		parsed, ok := models.ParseBlogStatus(in.Status)
		if !ok {
			errs.add("status", statusMessage)
		}
		status = parsed
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	b := &models.Blog{
		Title:   in.Title,
		Content: in.Content,
		Summary: in.Summary,
		Status:  status,
	}
	err := db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if in.AuthorID != nil {
			if err := s.ensureAuthor(ctx, *in.AuthorID); err != nil {
				return err
			}
			b.AuthorID = in.AuthorID
		}
		return s.blogs.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	// картинки качаются вне транзакции
	var stored []storedImage
	if url := strings.TrimSpace(in.ImageURL); url != "" {
		img, err := fromURL(s.images, url)(ctx, storage.KindBlog, b.ID, storage.RoleMain)
		if err != nil {
			s.abortCreate(ctx, b.ID)
			return nil, err
		}
		stored = append(stored, img)
		b.ImageURL = img.URL
	}
	added := fetchAdditional(ctx, s.images, storage.KindBlog, b.ID, in.ImageURLs)
	stored = append(stored, added...)

	err = db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if b.ImageURL != "" {
			if err := s.blogs.Update(ctx, b); err != nil {
				return err
			}
		}
		return s.addImageRows(ctx, b.ID, added)
	})
	if err != nil {
		discard(ctx, s.images, stored...)
		s.abortCreate(ctx, b.ID)
		return nil, err
	}
	return s.Get(ctx, b.ID)
}

func (s *BlogService) abortCreate(ctx context.Context, id uint) {
	if err := s.blogs.Delete(context.WithoutCancel(ctx), id); err != nil {
		log.Error().Err(err).Uint("blog_id", id).Msg("failed to remove blog after image error")
	}
}

func (s *BlogService) addImageRows(ctx context.Context, blogID uint, imgs []storedImage) error {
	if len(imgs) == 0 {
		return nil
	}
	order, err := s.blogs.NextDisplayOrder(ctx, blogID)
	if err != nil {
		return err
	}
	for _, img := range imgs {
		row := &models.BlogImage{BlogID: blogID, ImageURL: img.URL, DisplayOrder: order, FileName: img.FileName}
		if err := s.blogs.AddImage(ctx, row); err != nil {
			return err
		}
		order++
	}
	return nil
}

// ListPublished — опубликованные посты, search по заголовку и тексту
func (s *BlogService) ListPublished(ctx context.Context, search string) ([]models.Blog, error) {
	return s.blogs.FindPublished(ctx, strings.TrimSpace(search))
}

func (s *BlogService) ListAll(ctx context.Context) ([]models.Blog, error) {
	return s.blogs.FindAll(ctx)
}

func (s *BlogService) ListByAuthor(ctx context.Context, authorID uint) ([]models.Blog, error) {
	if err := s.ensureAuthor(ctx, authorID); err != nil {
		return nil, err
	}
	return s.blogs.FindByAuthor(ctx, authorID)
}

func (s *BlogService) Get(ctx context.Context, id uint) (*models.Blog, error) {
	b, err := s.blogs.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "Blog", id)
	}
	return b, nil
}

func (s *BlogService) Update(ctx context.Context, id uint, patch BlogPatch) (*models.Blog, error) {
	var img storedImage
	if url := strings.TrimSpace(patch.ImageURL.Value); patch.ImageURL.Set && url != "" {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if url != cur.ImageURL {
			if img, err = fromURL(s.images, url)(ctx, storage.KindBlog, id, storage.RoleMain); err != nil {
				return nil, err
			}
		}
	}

	var old string
	err := db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		b, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		old = b.ImageURL

		errs := fieldErrors{}
		if patch.Title.Set {
			b.Title = strings.TrimSpace(patch.Title.Value)
		}
		if patch.Content.Set {
			b.Content = patch.Content.Value
		}
		if patch.Summary.Set {
			b.Summary = patch.Summary.Value
		}
		if patch.Status.Set {
			parsed, ok := models.ParseBlogStatus(patch.Status.Value)
			if !ok {
				errs.add("status", statusMessage)
			}
			b.Status = parsed
		}
		validateBlog(errs, b.Title, b.Content, b.Summary)
		if err := errs.err(); err != nil {
			return err
		}

		if patch.AuthorID.Set {
			if patch.AuthorID.Null {
				b.AuthorID = nil
			} else {
				if err := s.ensureAuthor(ctx, patch.AuthorID.Value); err != nil {
					return err
				}
				authorID := patch.AuthorID.Value
				b.AuthorID = &authorID
			}
		}

		if patch.ImageURL.Set {
			switch {
			case strings.TrimSpace(patch.ImageURL.Value) == "":
				b.ImageURL = ""
			case img.URL != "":
				b.ImageURL = img.URL
			}
		}
		return s.blogs.Update(ctx, b)
	})
	if err != nil {
		discard(ctx, s.images, img)
		return nil, err
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	replaced(ctx, s.images, old, updated.ImageURL)
	return updated, nil
}

func (s *BlogService) Publish(ctx context.Context, id uint) (*models.Blog, error) {
	return s.setStatus(ctx, id, models.BlogPublished)
}

func (s *BlogService) Unpublish(ctx context.Context, id uint) (*models.Blog, error) {
	return s.setStatus(ctx, id, models.BlogDraft)
}

func (s *BlogService) setStatus(ctx context.Context, id uint, status models.BlogStatus) (*models.Blog, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Status = status
	if err := s.blogs.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete удаляет пост вместе с картинками (файлы — best-effort)
func (s *BlogService) Delete(ctx context.Context, id uint) error {
	return db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		b, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		for _, img := range b.Images {
			s.images.Delete(ctx, img.ImageURL)
		}
		s.images.Delete(ctx, b.ImageURL)

		if err := s.blogs.DeleteImages(ctx, id); err != nil {
			return err
		}
		return lookup(s.blogs.Delete(ctx, id), "Blog", id)
	})
}

func (s *BlogService) ensureAuthor(ctx context.Context, authorID uint) error {
	if _, err := s.admins.FindByID(ctx, authorID); err != nil {
		return lookup(err, "Admin", authorID)
	}
	return nil
}

// --- картинки ---

func (s *BlogService) UploadMainImage(ctx context.Context, id uint, up Upload) (string, error) {
	return s.setMainImage(ctx, id, fromUpload(s.images, up))
}

func (s *BlogService) UploadMainImageFromURL(ctx context.Context, id uint, sourceURL string) (string, error) {
	return s.setMainImage(ctx, id, fromURL(s.images, sourceURL))
}

func (s *BlogService) setMainImage(ctx context.Context, id uint, src imageSource) (string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}
	img, err := src(ctx, storage.KindBlog, id, storage.RoleMain)
	if err != nil {
		return "", err
	}

	var old string
	err = db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		b, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		old = b.ImageURL
		b.ImageURL = img.URL
		return s.blogs.Update(ctx, b)
	})
	if err != nil {
		discard(ctx, s.images, img)
		return "", err
	}
	replaced(ctx, s.images, old, img.URL)
	return img.URL, nil
}

func (s *BlogService) UploadImage(ctx context.Context, id uint, up Upload) (*models.BlogImage, error) {
	return s.addImage(ctx, id, fromUpload(s.images, up))
}

func (s *BlogService) UploadImageFromURL(ctx context.Context, id uint, sourceURL string) (*models.BlogImage, error) {
	return s.addImage(ctx, id, fromURL(s.images, sourceURL))
}

func (s *BlogService) addImage(ctx context.Context, id uint, src imageSource) (*models.BlogImage, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	img, err := src(ctx, storage.KindBlog, id, storage.RoleAdditional)
	if err != nil {
		return nil, err
	}

	var row *models.BlogImage
	err = db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		order, err := s.blogs.NextDisplayOrder(ctx, id)
		if err != nil {
			return err
		}
		row = &models.BlogImage{BlogID: id, ImageURL: img.URL, DisplayOrder: order, FileName: img.FileName}
		return s.blogs.AddImage(ctx, row)
	})
	if err != nil {
		discard(ctx, s.images, img)
		return nil, err
	}
	return row, nil
}

func (s *BlogService) ListImages(ctx context.Context, id uint) ([]models.BlogImage, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.blogs.FindImages(ctx, id)
}

func (s *BlogService) DeleteMainImage(ctx context.Context, id uint) error {
	var old string
	err := db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		b, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		old = b.ImageURL
		if old == "" {
			return nil
		}
		b.ImageURL = ""
		return s.blogs.Update(ctx, b)
	})
	if err != nil {
		return err
	}
	s.images.Delete(ctx, old)
	return nil
}

func (s *BlogService) DeleteImage(ctx context.Context, blogID, imageID uint) error {
	return db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.Get(ctx, blogID); err != nil {
			return err
		}
		img, err := s.blogs.FindImage(ctx, imageID)
		if err != nil {
			return lookup(err, "BlogImage", imageID)
		}
		if img.BlogID != blogID {
			return apperr.InvalidArgument("Image %d does not belong to blog %d", imageID, blogID)
		}
		s.images.Delete(ctx, img.ImageURL)
		return lookup(s.blogs.DeleteImage(ctx, imageID), "BlogImage", imageID)
	})
}

// DeleteAllImages удаляет все дополнительные картинки поста
func (s *BlogService) DeleteAllImages(ctx context.Context, id uint) error {
	return db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		imgs, err := s.blogs.FindImages(ctx, id)
		if err != nil {
			return err
		}
		for _, img := range imgs {
			s.images.Delete(ctx, img.ImageURL)
		}
		return s.blogs.DeleteImages(ctx, id)
	})
}
