package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flowershop/internal/db"
	"flowershop/internal/models"
)

// ProductRepository — товары и их дополнительные картинки
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(gdb *gorm.DB) *ProductRepository {
	return &ProductRepository{db: gdb}
}

func (r *ProductRepository) withRelations(ctx context.Context) *gorm.DB {
	return db.Conn(ctx, r.db).Preload("Category").Preload("Images", imagesOrdered)
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	if err := db.Conn(ctx, r.db).Omit(clause.Associations).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// FindByID загружает товар вместе с категорией и картинками
func (r *ProductRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.withRelations(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindAll — все товары; search ищет по коду, названию и описанию
func (r *ProductRepository) FindAll(ctx context.Context, search string) ([]models.Product, error) {
	q := r.withRelations(ctx).Order("id")
	if search != "" {
		like := likePattern(search)
		q = q.Where(
			"LOWER(product_code) LIKE ? ESCAPE '\\' OR LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\'",
			like, like, like,
		)
	}
	var out []models.Product
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return out, nil
}

func (r *ProductRepository) FindByCategory(ctx context.Context, categoryID uint) ([]models.Product, error) {
	var out []models.Product
	err := r.withRelations(ctx).Where("category_id = ?", categoryID).Order("id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products by category: %w", err)
	}
	return out, nil
}

func (r *ProductRepository) CountByCategory(ctx context.Context, categoryID uint) (int64, error) {
	var n int64
	err := db.Conn(ctx, r.db).Model(&models.Product{}).Where("category_id = ?", categoryID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func (r *ProductRepository) ExistsByCode(ctx context.Context, code string, excludeID uint) (bool, error) {
	return r.exists(ctx, "LOWER(product_code) = LOWER(?) AND id <> ?", code, excludeID)
}

func (r *ProductRepository) ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error) {
	return r.exists(ctx, "LOWER(name) = LOWER(?) AND id <> ?", name, excludeID)
}

func (r *ProductRepository) exists(ctx context.Context, where string, args ...any) (bool, error) {
	var n int64
	if err := db.Conn(ctx, r.db).Model(&models.Product{}).Where(where, args...).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check product uniqueness: %w", err)
	}
	return n > 0, nil
}

// Update сохраняет поля товара; картинки и категория не трогаются
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	if err := db.Conn(ctx, r.db).Omit(clause.Associations).Save(p).Error; err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	res := db.Conn(ctx, r.db).Delete(&models.Product{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- картинки ---

func (r *ProductRepository) AddImage(ctx context.Context, img *models.ProductImage) error {
	if err := db.Conn(ctx, r.db).Create(img).Error; err != nil {
		return fmt.Errorf("failed to add product image: %w", err)
	}
	return nil
}

func (r *ProductRepository) FindImages(ctx context.Context, productID uint) ([]models.ProductImage, error) {
	var out []models.ProductImage
	err := imagesOrdered(db.Conn(ctx, r.db)).Where("product_id = ?", productID).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list product images: %w", err)
	}
	return out, nil
}

func (r *ProductRepository) FindImage(ctx context.Context, imageID uint) (*models.ProductImage, error) {
	var img models.ProductImage
	if err := db.Conn(ctx, r.db).First(&img, imageID).Error; err != nil {
		return nil, notFound(err)
	}
	return &img, nil
}

// NextDisplayOrder — порядковый номер для новой картинки товара
func (r *ProductRepository) NextDisplayOrder(ctx context.Context, productID uint) (int, error) {
	maxOrder := -1
	err := db.Conn(ctx, r.db).Model(&models.ProductImage{}).
		Where("product_id = ?", productID).
		Select("COALESCE(MAX(display_order), -1)").
		Scan(&maxOrder).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read display order: %w", err)
	}
	return maxOrder + 1, nil
}

func (r *ProductRepository) DeleteImage(ctx context.Context, imageID uint) error {
	res := db.Conn(ctx, r.db).Delete(&models.ProductImage{}, imageID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product image: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepository) DeleteImages(ctx context.Context, productID uint) error {
	if err := db.Conn(ctx, r.db).Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
		return fmt.Errorf("failed to delete product images: %w", err)
	}
	return nil
}
