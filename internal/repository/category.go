package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flowershop/internal/db"
	"flowershop/internal/models"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(gdb *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: gdb}
}

func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	if err := db.Conn(ctx, r.db).Omit(clause.Associations).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := db.Conn(ctx, r.db).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CategoryRepository) FindAll(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := db.Conn(ctx, r.db).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return out, nil
}

// ExistsByName — есть ли другая категория с таким именем (без учёта регистра)
func (r *CategoryRepository) ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error) {
	var n int64
	err := db.Conn(ctx, r.db).Model(&models.Category{}).
		Where("LOWER(name) = LOWER(?) AND id <> ?", name, excludeID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check category name: %w", err)
	}
	return n > 0, nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) error {
	if err := db.Conn(ctx, r.db).Omit(clause.Associations).Save(c).Error; err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id uint) error {
	res := db.Conn(ctx, r.db).Delete(&models.Category{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete category: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
