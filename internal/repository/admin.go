package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flowershop/internal/db"
	"flowershop/internal/models"
)

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(gdb *gorm.DB) *AdminRepository {
	return &AdminRepository{db: gdb}
}

func (r *AdminRepository) Create(ctx context.Context, a *models.Admin) error {
	if err := db.Conn(ctx, r.db).Omit(clause.Associations).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

func (r *AdminRepository) FindByID(ctx context.Context, id uint) (*models.Admin, error) {
	var a models.Admin
	if err := db.Conn(ctx, r.db).First(&a, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// FindByUsername ищет по точному совпадению логина
func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	if err := db.Conn(ctx, r.db).Where("username = ?", username).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AdminRepository) FindAll(ctx context.Context) ([]models.Admin, error) {
	var out []models.Admin
	if err := db.Conn(ctx, r.db).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return out, nil
}

func (r *AdminRepository) ExistsByUsername(ctx context.Context, username string, excludeID uint) (bool, error) {
	var n int64
	err := db.Conn(ctx, r.db).Model(&models.Admin{}).
		Where("username = ? AND id <> ?", username, excludeID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return n > 0, nil
}

func (r *AdminRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := db.Conn(ctx, r.db).Model(&models.Admin{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}

func (r *AdminRepository) Update(ctx context.Context, a *models.Admin) error {
	if err := db.Conn(ctx, r.db).Omit(clause.Associations).Save(a).Error; err != nil {
		return fmt.Errorf("failed to update admin: %w", err)
	}
	return nil
}

func (r *AdminRepository) Delete(ctx context.Context, id uint) error {
	res := db.Conn(ctx, r.db).Delete(&models.Admin{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete admin: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
