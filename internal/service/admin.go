package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"flowershop/internal/apperr"
	"flowershop/internal/db"
	"flowershop/internal/models"
	"flowershop/internal/nullable"
	"flowershop/internal/repository"
)

const (
	minPasswordLen     = 6
	invalidCredentials = "Invalid username or password"
)

// AdminPatch — частичное обновление. Пустой или отсутствующий пароль не меняет хэш.
type AdminPatch struct {
	Username nullable.Field[string]
	Password nullable.Field[string]
}

type AdminService struct {
	db     *gorm.DB
	admins *repository.AdminRepository
	blogs  *repository.BlogRepository
}

func NewAdminService(gdb *gorm.DB) *AdminService {
	return &AdminService{
		db:     gdb,
		admins: repository.NewAdminRepository(gdb),
		blogs:  repository.NewBlogRepository(gdb),
	}
}

func validatePassword(errs fieldErrors, password string) {
	if utf8.RuneCountInString(password) < minPasswordLen {
		errs.add("password", "Password must be at least 6 characters")
	}
}

func (s *AdminService) Create(ctx context.Context, username, password string) (*models.Admin, error) {
	username = strings.TrimSpace(username)

	errs := fieldErrors{}
	errs.required("username", "Username", username)
	errs.maxLen("username", "Username", username, 100)
	errs.required("password", "Password", password)
	validatePassword(errs, password)
	if err := errs.err(); err != nil {
		return nil, err
	}

	hash, err := models.HashPassword(password)
	if err != nil {
		return nil, apperr.Internal(err, "failed to hash password")
	}

	a := &models.Admin{Username: username, PasswordHash: hash}
	err = db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if err := s.ensureUniqueUsername(ctx, username, 0); err != nil {
			return err
		}
		return s.admins.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AdminService) List(ctx context.Context) ([]models.Admin, error) {
	return s.admins.FindAll(ctx)
}

func (s *AdminService) Get(ctx context.Context, id uint) (*models.Admin, error) {
	a, err := s.admins.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "Admin", id)
	}
	return a, nil
}

func (s *AdminService) Update(ctx context.Context, id uint, patch AdminPatch) (*models.Admin, error) {
	var a *models.Admin
	err := db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		var err error
		if a, err = s.Get(ctx, id); err != nil {
			return err
		}

		errs := fieldErrors{}
		if patch.Username.Set {
			a.Username = strings.TrimSpace(patch.Username.Value)
			errs.required("username", "Username", a.Username)
			errs.maxLen("username", "Username", a.Username, 100)
		}
		password := patch.Password.Or("")
		if strings.TrimSpace(password) != "" {
			validatePassword(errs, password)
		}
		if err := errs.err(); err != nil {
			return err
		}

		if err := s.ensureUniqueUsername(ctx, a.Username, id); err != nil {
			return err
		}
		if strings.TrimSpace(password) != "" {
			hash, err := models.HashPassword(password)
			if err != nil {
				return apperr.Internal(err, "failed to hash password")
			}
			a.PasswordHash = hash
		}
		return s.admins.Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Delete удаляет админа; его посты остаются без автора
func (s *AdminService) Delete(ctx context.Context, id uint) error {
	return db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		if err := s.blogs.DetachAuthor(ctx, id); err != nil {
			return err
		}
		return lookup(s.admins.Delete(ctx, id), "Admin", id)
	})
}

// Authenticate проверяет логин и пароль. Неизвестный логин и неверный пароль
// дают одну и ту же ошибку.
func (s *AdminService) Authenticate(ctx context.Context, username, password string) (*models.Admin, error) {
	a, err := s.admins.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Validation("credentials", invalidCredentials)
		}
		return nil, err
	}
	if !models.CheckPassword(a.PasswordHash, password) {
		return nil, apperr.Validation("credentials", invalidCredentials)
	}
	return a, nil
}

// EnsureDefaultAdmin создаёт первого админа, если таблица пуста
func (s *AdminService) EnsureDefaultAdmin(ctx context.Context, username, password string) (bool, error) {
	n, err := s.admins.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.Create(ctx, username, password); err != nil {
		return false, err
	}
	log.Info().Str("username", username).Msg("default admin created")
	return true, nil
}

func (s *AdminService) ensureUniqueUsername(ctx context.Context, username string, excludeID uint) error {
	exists, err := s.admins.ExistsByUsername(ctx, username, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Validation("username", "Username already exists")
	}
	return nil
}
