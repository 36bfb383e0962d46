package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flowershop/internal/db"
	"flowershop/internal/models"
)

// BlogRepository — посты и их дополнительные картинки
type BlogRepository struct {
	db *gorm.DB
}

func NewBlogRepository(gdb *gorm.DB) *BlogRepository {
	return &BlogRepository{db: gdb}
}

func (r *BlogRepository) withRelations(ctx context.Context) *gorm.DB {
	return db.Conn(ctx, r.db).Preload("Author").Preload("Images", imagesOrdered)
}

func (r *BlogRepository) Create(ctx context.Context, b *models.Blog) error {
	if err := db.Conn(ctx, r.db).Omit(clause.Associations).Create(b).Error; err != nil {
		return fmt.Errorf("failed to create blog: %w", err)
	}
	return nil
}

func (r *BlogRepository) FindByID(ctx context.Context, id uint) (*models.Blog, error) {
	var b models.Blog
	if err := r.withRelations(ctx).First(&b, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// FindAll — все посты, новые сверху
func (r *BlogRepository) FindAll(ctx context.Context) ([]models.Blog, error) {
	var out []models.Blog
	if err := r.withRelations(ctx).Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list blogs: %w", err)
	}
	return out, nil
}

// FindPublished — опубликованные посты; search ищет по заголовку и тексту
func (r *BlogRepository) FindPublished(ctx context.Context, search string) ([]models.Blog, error) {
	q := r.withRelations(ctx).Where("status = ?", models.BlogPublished)
	if search != "" {
		like := likePattern(search)
		q = q.Where("LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(content) LIKE ? ESCAPE '\\'", like, like)
	}
	var out []models.Blog
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list published blogs: %w", err)
	}
	return out, nil
}

func (r *BlogRepository) FindByAuthor(ctx context.Context, authorID uint) ([]models.Blog, error) {
	var out []models.Blog
	err := r.withRelations(ctx).Where("author_id = ?", authorID).Order("created_at DESC, id DESC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list blogs by author: %w", err)
	}
	return out, nil
}

func (r *BlogRepository) Update(ctx context.Context, b *models.Blog) error {
	if err := db.Conn(ctx, r.db).Omit(clause.Associations).Save(b).Error; err != nil {
		return fmt.Errorf("failed to update blog: %w", err)
	}
	return nil
}

// DetachAuthor обнуляет автора у всех его постов
func (r *BlogRepository) DetachAuthor(ctx context.Context, authorID uint) error {
	err := db.Conn(ctx, r.db).Model(&models.Blog{}).
		Where("author_id = ?", authorID).
		Update("author_id", nil).Error
	if err != nil {
		return fmt.Errorf("failed to detach blog author: %w", err)
	}
	return nil
}

func (r *BlogRepository) Delete(ctx context.Context, id uint) error {
	res := db.Conn(ctx, r.db).Delete(&models.Blog{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete blog: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- картинки ---

func (r *BlogRepository) AddImage(ctx context.Context, img *models.BlogImage) error {
	if err := db.Conn(ctx, r.db).Create(img).Error; err != nil {
		return fmt.Errorf("failed to add blog image: %w", err)
	}
	return nil
}

func (r *BlogRepository) FindImages(ctx context.Context, blogID uint) ([]models.BlogImage, error) {
	var out []models.BlogImage
	err := imagesOrdered(db.Conn(ctx, r.db)).Where("blog_id = ?", blogID).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list blog images: %w", err)
	}
	return out, nil
}

func (r *BlogRepository) FindImage(ctx context.Context, imageID uint) (*models.BlogImage, error) {
	var img models.BlogImage
	if err := db.Conn(ctx, r.db).First(&img, imageID).Error; err != nil {
		return nil, notFound(err)
	}
	return &img, nil
}

func (r *BlogRepository) NextDisplayOrder(ctx context.Context, blogID uint) (int, error) {
	maxOrder := -1
	err := db.Conn(ctx, r.db).Model(&models.BlogImage{}).
		Where("blog_id = ?", blogID).
		Select("COALESCE(MAX(display_order), -1)").
		Scan(&maxOrder).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read display order: %w", err)
	}
	return maxOrder + 1, nil
}

func (r *BlogRepository) DeleteImage(ctx context.Context, imageID uint) error {
	res := db.Conn(ctx, r.db).Delete(&models.BlogImage{}, imageID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete blog image: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BlogRepository) DeleteImages(ctx context.Context, blogID uint) error {
	if err := db.Conn(ctx, r.db).Where("blog_id = ?", blogID).Delete(&models.BlogImage{}).Error; err != nil {
		return fmt.Errorf("failed to delete blog images: %w", err)
	}
	return nil
}
