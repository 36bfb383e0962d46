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

// ProductInput — данные для создания товара
type ProductInput struct {
	ProductCode string
	Name        string
	Description string
	Price       float64
	CategoryID  uint
	// ImageURL — главная картинка: скачивается, при ошибке товар не создаётся
	ImageURL string
	// ImageURLs — дополнительные картинки: недоступные пропускаются
	ImageURLs []string
}

// ProductPatch — частичное обновление товара
type ProductPatch struct {
	ProductCode nullable.Field[string]
	Name        nullable.Field[string]
	Description nullable.Field[string]
	Price       nullable.Field[float64]
	CategoryID  nullable.Field[uint]
	// ImageURL: новое значение заменяет главную картинку, null или "" её убирает
	ImageURL nullable.Field[string]
}

type ProductService struct {
	db         *gorm.DB
	products   *repository.ProductRepository
	categories *repository.CategoryRepository
	images     ImageStore
}

func NewProductService(gdb *gorm.DB, images ImageStore) *ProductService {
	return &ProductService{
		db:         gdb,
		products:   repository.NewProductRepository(gdb),
		categories: repository.NewCategoryRepository(gdb),
		images:     images,
	}
}

func validateProduct(errs fieldErrors, code, name, description string, price float64) {
	errs.required("productCode", "Product code", code)
	errs.maxLen("productCode", "Product code", code, 50)
	errs.required("name", "Name", name)
	errs.maxLen("name", "Name", name, 255)
	errs.maxLen("description", "Description", description, 2000)
	if price < 0 {
		errs.add("price", "Price must be greater than or equal to 0")
	}
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	in.ProductCode = strings.TrimSpace(in.ProductCode)
	in.Name = strings.TrimSpace(in.Name)

	errs := fieldErrors{}
	validateProduct(errs, in.ProductCode, in.Name, in.Description, in.Price)
	if in.CategoryID == 0 {
		errs.add("categoryId", "Category is required")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	p := &models.Product{
		ProductCode: in.ProductCode,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		CategoryID:  in.CategoryID,
	}
	err := db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if err := s.ensureUnique(ctx, in.ProductCode, in.Name, 0); err != nil {
			return err
		}
		if _, err := s.categories.FindByID(ctx, in.CategoryID); err != nil {
			return lookup(err, "Category", in.CategoryID)
		}
		return s.products.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	// картинки качаются вне транзакции
	var stored []storedImage
	if url := strings.TrimSpace(in.ImageURL); url != "" {
		img, err := fromURL(s.images, url)(ctx, storage.KindProduct, p.ID, storage.RoleMain)
		if err != nil {
			s.abortCreate(ctx, p.ID)
			return nil, err
		}
		stored = append(stored, img)
		p.MainImageURL = img.URL
	}
	added := fetchAdditional(ctx, s.images, storage.KindProduct, p.ID, in.ImageURLs)
	stored = append(stored, added...)

	err = db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if p.MainImageURL != "" {
			if err := s.products.Update(ctx, p); err != nil {
				return err
			}
		}
		return s.addImageRows(ctx, p.ID, added)
	})
	if err != nil {
		discard(ctx, s.images, stored...)
		s.abortCreate(ctx, p.ID)
		return nil, err
	}
	return s.Get(ctx, p.ID)
}

// abortCreate убирает товар, созданный первой транзакцией Create
func (s *ProductService) abortCreate(ctx context.Context, id uint) {
	if err := s.products.Delete(context.WithoutCancel(ctx), id); err != nil {
		log.Error().Err(err).Uint("product_id", id).Msg("failed to remove product after image error")
	}
}

// addImageRows записывает строки дополнительных картинок в порядке imgs
func (s *ProductService) addImageRows(ctx context.Context, productID uint, imgs []storedImage) error {
	if len(imgs) == 0 {
		return nil
	}
	order, err := s.products.NextDisplayOrder(ctx, productID)
	if err != nil {
		return err
	}
	for _, img := range imgs {
		row := &models.ProductImage{ProductID: productID, ImageURL: img.URL, DisplayOrder: order, FileName: img.FileName}
		if err := s.products.AddImage(ctx, row); err != nil {
			return err
		}
		order++
	}
	return nil
}

// List — все товары или поиск по коду, названию и описанию
func (s *ProductService) List(ctx context.Context, search string) ([]models.Product, error) {
	return s.products.FindAll(ctx, strings.TrimSpace(search))
}

func (s *ProductService) ListByCategory(ctx context.Context, categoryID uint) ([]models.Product, error) {
	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		return nil, lookup(err, "Category", categoryID)
	}
	return s.products.FindByCategory(ctx, categoryID)
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "Product", id)
	}
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error) {
	// новая главная картинка качается до транзакции
	var img storedImage
	if url := strings.TrimSpace(patch.ImageURL.Value); patch.ImageURL.Set && url != "" {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if url != cur.MainImageURL {
			if img, err = fromURL(s.images, url)(ctx, storage.KindProduct, id, storage.RoleMain); err != nil {
				return nil, err
			}
		}
	}

	var old string
	err := db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		p, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		old = p.MainImageURL

		errs := fieldErrors{}
		if patch.ProductCode.Set {
			p.ProductCode = strings.TrimSpace(patch.ProductCode.Value)
		}
		if patch.Name.Set {
			p.Name = strings.TrimSpace(patch.Name.Value)
		}
		if patch.Description.Set {
			p.Description = patch.Description.Value
		}
		if patch.Price.Set {
			if patch.Price.Null {
				errs.add("price", "Price is required")
			}
			p.Price = patch.Price.Value
		}
		validateProduct(errs, p.ProductCode, p.Name, p.Description, p.Price)
		if err := errs.err(); err != nil {
			return err
		}
		if err := s.ensureUnique(ctx, p.ProductCode, p.Name, id); err != nil {
			return err
		}

		if patch.CategoryID.Set {
			if !patch.CategoryID.Present() {
				return apperr.Validation("categoryId", "Category is required")
			}
			if _, err := s.categories.FindByID(ctx, patch.CategoryID.Value); err != nil {
				return lookup(err, "Category", patch.CategoryID.Value)
			}
			p.CategoryID = patch.CategoryID.Value
		}

		if patch.ImageURL.Set {
			switch {
			case strings.TrimSpace(patch.ImageURL.Value) == "":
				p.MainImageURL = ""
			case img.URL != "":
				p.MainImageURL = img.URL
			}
		}
		return s.products.Update(ctx, p)
	})
	if err != nil {
		discard(ctx, s.images, img)
		return nil, err
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	replaced(ctx, s.images, old, updated.MainImageURL)
	return updated, nil
}

// Delete удаляет товар вместе с картинками (файлы — best-effort)
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	return db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		p, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		for _, img := range p.Images {
			s.images.Delete(ctx, img.ImageURL)
		}
		s.images.Delete(ctx, p.MainImageURL)

		if err := s.products.DeleteImages(ctx, id); err != nil {
			return err
		}
		return lookup(s.products.Delete(ctx, id), "Product", id)
	})
}

func (s *ProductService) ensureUnique(ctx context.Context, code, name string, excludeID uint) error {
	exists, err := s.products.ExistsByCode(ctx, code, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Validation("productCode", "Product code already exists")
	}
	exists, err = s.products.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Validation("name", "Product name already exists")
	}
	return nil
}

// --- картинки ---

func (s *ProductService) UploadMainImage(ctx context.Context, id uint, up Upload) (string, error) {
	return s.setMainImage(ctx, id, fromUpload(s.images, up))
}

func (s *ProductService) UploadMainImageFromURL(ctx context.Context, id uint, sourceURL string) (string, error) {
	return s.setMainImage(ctx, id, fromURL(s.images, sourceURL))
}

// setMainImage сохраняет новую главную картинку и после записи в БД удаляет старую
func (s *ProductService) setMainImage(ctx context.Context, id uint, src imageSource) (string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}
	img, err := src(ctx, storage.KindProduct, id, storage.RoleMain)
	if err != nil {
		return "", err
	}

	var old string
	err = db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		p, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		old = p.MainImageURL
		p.MainImageURL = img.URL
		return s.products.Update(ctx, p)
	})
	if err != nil {
		discard(ctx, s.images, img)
		return "", err
	}
	replaced(ctx, s.images, old, img.URL)
	return img.URL, nil
}

func (s *ProductService) UploadImage(ctx context.Context, id uint, up Upload) (*models.ProductImage, error) {
	return s.addImage(ctx, id, fromUpload(s.images, up))
}

func (s *ProductService) UploadImageFromURL(ctx context.Context, id uint, sourceURL string) (*models.ProductImage, error) {
	return s.addImage(ctx, id, fromURL(s.images, sourceURL))
}

func (s *ProductService) addImage(ctx context.Context, id uint, src imageSource) (*models.ProductImage, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	img, err := src(ctx, storage.KindProduct, id, storage.RoleAdditional)
	if err != nil {
		return nil, err
	}

	var row *models.ProductImage
	err = db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		order, err := s.products.NextDisplayOrder(ctx, id)
		if err != nil {
			return err
		}
		row = &models.ProductImage{ProductID: id, ImageURL: img.URL, DisplayOrder: order, FileName: img.FileName}
		return s.products.AddImage(ctx, row)
	})
	if err != nil {
		discard(ctx, s.images, img)
		return nil, err
	}
	return row, nil
}

func (s *ProductService) ListImages(ctx context.Context, id uint) ([]models.ProductImage, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.products.FindImages(ctx, id)
}

func (s *ProductService) DeleteMainImage(ctx context.Context, id uint) error {
	var old string
	err := db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		p, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		old = p.MainImageURL
		if old == "" {
			return nil
		}
		p.MainImageURL = ""
		return s.products.Update(ctx, p)
	})
	if err != nil {
		return err
	}
	s.images.Delete(ctx, old)
	return nil
}

// DeleteImage удаляет одну дополнительную картинку товара
func (s *ProductService) DeleteImage(ctx context.Context, productID, imageID uint) error {
	return db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.Get(ctx, productID); err != nil {
			return err
		}
		img, err := s.products.FindImage(ctx, imageID)
		if err != nil {
			return lookup(err, "ProductImage", imageID)
		}
		if img.ProductID != productID {
			return apperr.InvalidArgument("Image %d does not belong to product %d", imageID, productID)
		}
		s.images.Delete(ctx, img.ImageURL)
		return lookup(s.products.DeleteImage(ctx, imageID), "ProductImage", imageID)
	})
}

// DeleteAllImages удаляет все дополнительные картинки; главная остаётся
func (s *ProductService) DeleteAllImages(ctx context.Context, id uint) error {
	return db.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		imgs, err := s.products.FindImages(ctx, id)
		if err != nil {
			return err
		}
		for _, img := range imgs {
			s.images.Delete(ctx, img.ImageURL)
		}
		return s.products.DeleteImages(ctx, id)
	})
}
