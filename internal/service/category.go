package service

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"flowershop/internal/apperr"
	"flowershop/internal/db"
	"flowershop/internal/models"
	"flowershop/internal/repository"
)

type CategoryService struct {
	db         *gorm.DB
	categories *repository.CategoryRepository
	products   *repository.ProductRepository
}

func NewCategoryService(gdb *gorm.DB) *CategoryService {
	return &CategoryService{
		db:         gdb,
		categories: repository.NewCategoryRepository(gdb),
		products:   repository.NewProductRepository(gdb),
	}
}

func validateCategoryName(name string) error {
	errs := fieldErrors{}
	errs.required("name", "Name", name)
	errs.maxLen("name", "Name", name, 255)
	return errs.err()
}

func (s *CategoryService) Create(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}

	c := &models.Category{Name: name}
	err := db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if err := s.ensureUniqueName(ctx, name, 0); err != nil {
			return err
		}
		return s.categories.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.categories.FindAll(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*models.Category, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "Category", id)
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}

	var c *models.Category
	err := db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		var err error
		if c, err = s.Get(ctx, id); err != nil {
			return err
		}
		if err := s.ensureUniqueName(ctx, name, id); err != nil {
			return err
		}
		c.Name = name
		return s.categories.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Delete удаляет категорию; категорию с товарами удалить нельзя
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	return db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		n, err := s.products.CountByCategory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.InvalidArgument("Category with id %d still has %d products", id, n)
		}
		return lookup(s.categories.Delete(ctx, id), "Category", id)
	})
}

func (s *CategoryService) ensureUniqueName(ctx context.Context, name string, excludeID uint) error {
	exists, err := s.categories.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Validation("name", "Category name already exists")
	}
	return nil
}
