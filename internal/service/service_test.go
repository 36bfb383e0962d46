package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"flowershop/internal/apperr"
	"flowershop/internal/db/dbtest"
	"flowershop/internal/models"
	"flowershop/internal/nullable"
	"flowershop/internal/storage"
)

const baseURL = "http://localhost:8080"

type fixture struct {
	db         *gorm.DB
	root       string
	images     *storage.ImageManager
	remote     *httptest.Server
	categories *CategoryService
	products   *ProductService
	blogs      *BlogService
	admins     *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gdb := dbtest.Open(t)
	root := t.TempDir()
	backend := storage.NewLocalBackend(root)
	require.NoError(t, backend.Init())
	images := storage.NewImageManager(backend, storage.NewResolver(baseURL, "/images"))

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ok/") {
			_, _ = w.Write([]byte("image:" + r.URL.Path))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(remote.Close)

	return &fixture{
		db:         gdb,
		root:       root,
		images:     images,
		remote:     remote,
		categories: NewCategoryService(gdb),
		products:   NewProductService(gdb, images),
		blogs:      NewBlogService(gdb, images),
		admins:     NewAdminService(gdb),
	}
}

func (f *fixture) okURL(name string) string      { return f.remote.URL + "/ok/" + name }
func (f *fixture) missingURL(name string) string { return f.remote.URL + "/missing/" + name }

// file возвращает путь на диске для управляемого URL
func (f *fixture) file(t *testing.T, publicURL string) string {
	t.Helper()
	rel, ok := f.images.RelativePath(publicURL)
	require.True(t, ok, "not a managed url: %s", publicURL)
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

func (f *fixture) exists(t *testing.T, publicURL string) bool {
	t.Helper()
	_, err := os.Stat(f.file(t, publicURL))
	return err == nil
}

func (f *fixture) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := f.categories.Create(context.Background(), name)
	require.NoError(t, err)
	return c
}

func upload(name, body string) Upload {
	return Upload{Reader: strings.NewReader(body), Size: int64(len(body)), FileName: name}
}

func assertField(t *testing.T, err error, field, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "error: %v", err)
	assert.Equal(t, msg, apperr.FieldErrors(err)[field])
}

func TestCategoryService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	roses := f.category(t, "Roses")

	got, err := f.categories.Get(ctx, roses.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roses", got.Name)

	_, err = f.categories.Create(ctx, "roses")
	assertField(t, err, "name", "Category name already exists")

	_, err = f.categories.Create(ctx, "  ")
	assertField(t, err, "name", "Name is required")

	// переименование в то же имя в другом регистре — это не дубликат
	updated, err := f.categories.Update(ctx, roses.ID, "ROSES")
	require.NoError(t, err)
	assert.Equal(t, "ROSES", updated.Name)

	f.category(t, "Tulips")
	_, err = f.categories.Update(ctx, roses.ID, "tulips")
	assertField(t, err, "name", "Category name already exists")

	_, err = f.categories.Get(ctx, 404)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.EqualError(t, err, "Category with id 404 not found")
}

func TestCategoryService_DeleteWithProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cat := f.category(t, "Roses")
	p, err := f.products.Create(ctx, ProductInput{ProductCode: "R1", Name: "Red", Price: 1, CategoryID: cat.ID})
	require.NoError(t, err)

	err = f.categories.Delete(ctx, cat.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument), "error: %v", err)

	require.NoError(t, f.products.Delete(ctx, p.ID))
	require.NoError(t, f.categories.Delete(ctx, cat.ID))
	assert.True(t, apperr.Is(f.categories.Delete(ctx, cat.ID), apperr.KindNotFound))
}

func TestProductService_Uniqueness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Roses")

	p, err := f.products.Create(ctx, ProductInput{ProductCode: "RS-01", Name: "Red Rose", Price: 12.5, CategoryID: cat.ID})
	require.NoError(t, err)
	assert.Equal(t, "Roses", p.Category.Name)

	_, err = f.products.Create(ctx, ProductInput{ProductCode: "rs-01", Name: "Other", CategoryID: cat.ID})
	assertField(t, err, "productCode", "Product code already exists")

	_, err = f.products.Create(ctx, ProductInput{ProductCode: "RS-02", Name: "RED ROSE", CategoryID: cat.ID})
	assertField(t, err, "name", "Product name already exists")

	_, err = f.products.Create(ctx, ProductInput{ProductCode: "RS-03", Name: "Ghost", CategoryID: 77})
	assert.EqualError(t, err, "Category with id 77 not found")

	// обновление с теми же кодом и названием проходит
	updated, err := f.products.Update(ctx, p.ID, ProductPatch{
		ProductCode: nullable.Of("RS-01"),
		Name:        nullable.Of("Red Rose"),
		Price:       nullable.Of(15.0),
	})
	require.NoError(t, err)
	assert.Equal(t, 15.0, updated.Price)
	assert.Equal(t, "RS-01", updated.ProductCode)

	_, err = f.products.Update(ctx, p.ID, ProductPatch{Price: nullable.Of(-1.0)})
	assertField(t, err, "price", "Price must be greater than or equal to 0")
}

func TestProductService_CreateWithImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Roses")

	p, err := f.products.Create(ctx, ProductInput{
		ProductCode: "RS-01",
		Name:        "Red Rose",
		CategoryID:  cat.ID,
		ImageURL:    f.okURL("main.png"),
		ImageURLs:   []string{f.okURL("a.jpg"), f.missingURL("b.jpg"), f.okURL("c.webp")},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(p.MainImageURL, ".png"))
	assert.True(t, f.exists(t, p.MainImageURL))

	require.Len(t, p.Images, 2, "unreachable bulk url is skipped")
	assert.Equal(t, "a.jpg", p.Images[0].FileName)
	assert.Equal(t, "c.webp", p.Images[1].FileName)
	assert.Equal(t, 0, p.Images[0].DisplayOrder)
	assert.Equal(t, 1, p.Images[1].DisplayOrder)
	for _, img := range p.Images {
		assert.True(t, f.exists(t, img.ImageURL))
	}
}

func TestProductService_CreateFailsOnMainImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Roses")

	_, err := f.products.Create(ctx, ProductInput{
		ProductCode: "RS-01",
		Name:        "Red Rose",
		CategoryID:  cat.ID,
		ImageURL:    f.missingURL("main.png"),
		ImageURLs:   []string{f.okURL("a.jpg")},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	list, err := f.products.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list, "product must be rolled back")
}

func TestProductService_ReplaceMainImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Roses")

	p, err := f.products.Create(ctx, ProductInput{ProductCode: "RS-01", Name: "Red Rose", CategoryID: cat.ID})
	require.NoError(t, err)

	first, err := f.products.UploadMainImage(ctx, p.ID, upload("one.jpg", "one"))
	require.NoError(t, err)
	assert.Contains(t, first, "/images/products/")
	assert.Contains(t, first, "/main/main_")

	second, err := f.products.UploadMainImageFromURL(ctx, p.ID, f.okURL("two.png"))
	require.NoError(t, err)

	assert.False(t, f.exists(t, first), "old main image is deleted")
	assert.True(t, f.exists(t, second))

	// неудачное скачивание не трогает текущую картинку
	_, err = f.products.UploadMainImageFromURL(ctx, p.ID, f.missingURL("three.png"))
	require.Error(t, err)
	got, err := f.products.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, second, got.MainImageURL)
	assert.True(t, f.exists(t, second))

	// null убирает картинку и удаляет файл
	got, err = f.products.Update(ctx, p.ID, ProductPatch{ImageURL: nullable.Null[string]()})
	require.NoError(t, err)
	assert.Empty(t, got.MainImageURL)
	assert.False(t, f.exists(t, second))
}

func TestProductService_AdditionalImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Roses")

	p, err := f.products.Create(ctx, ProductInput{ProductCode: "RS-01", Name: "Red Rose", CategoryID: cat.ID})
	require.NoError(t, err)
	other, err := f.products.Create(ctx, ProductInput{ProductCode: "RS-02", Name: "White Rose", CategoryID: cat.ID})
	require.NoError(t, err)

	a, err := f.products.UploadImage(ctx, p.ID, upload("a.jpg", "a"))
	require.NoError(t, err)
	b, err := f.products.UploadImageFromURL(ctx, p.ID, f.okURL("b.gif"))
	require.NoError(t, err)
	assert.Equal(t, 1, b.DisplayOrder)

	_, err = f.products.UploadImage(ctx, p.ID, upload("empty.jpg", ""))
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	_, err = f.products.UploadImageFromURL(ctx, p.ID, f.missingURL("c.jpg"))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err), "single url upload fails loudly")

	err = f.products.DeleteImage(ctx, other.ID, a.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument), "image of another product: %v", err)

	require.NoError(t, f.products.DeleteImage(ctx, p.ID, a.ID))
	assert.False(t, f.exists(t, a.ImageURL))

	imgs, err := f.products.ListImages(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, imgs, 1)

	require.NoError(t, f.products.DeleteAllImages(ctx, p.ID))
	assert.False(t, f.exists(t, b.ImageURL))
	imgs, err = f.products.ListImages(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, imgs)
}

func TestProductService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Roses")

	external := "https://cdn.example.com/rose.jpg"
	p, err := f.products.Create(ctx, ProductInput{
		ProductCode: "RS-01",
		Name:        "Red Rose",
		CategoryID:  cat.ID,
		ImageURL:    f.okURL("main.jpg"),
		ImageURLs:   []string{f.okURL("a.jpg"), f.okURL("b.jpg")},
	})
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.ProductImage{ProductID: p.ID, ImageURL: external, DisplayOrder: 9}).Error)

	require.NoError(t, f.products.Delete(ctx, p.ID))

	assert.False(t, f.exists(t, p.MainImageURL))
	for _, img := range p.Images {
		assert.False(t, f.exists(t, img.ImageURL))
	}

	var left int64
	require.NoError(t, f.db.Model(&models.ProductImage{}).Where("product_id = ?", p.ID).Count(&left).Error)
	assert.Zero(t, left)

	_, err = f.products.Get(ctx, p.ID)
	assert.EqualError(t, err, fmt.Sprintf("Product with id %d not found", p.ID))
	assert.True(t, apperr.Is(f.products.Delete(ctx, p.ID), apperr.KindNotFound))
}

func TestProductService_ListByCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roses := f.category(t, "Roses")
	tulips := f.category(t, "Tulips")

	_, err := f.products.Create(ctx, ProductInput{ProductCode: "R1", Name: "Red", CategoryID: roses.ID})
	require.NoError(t, err)
	_, err = f.products.Create(ctx, ProductInput{ProductCode: "T1", Name: "Yellow", CategoryID: tulips.ID})
	require.NoError(t, err)

	list, err := f.products.ListByCategory(ctx, tulips.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Yellow", list[0].Name)

	_, err = f.products.ListByCategory(ctx, 99)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestProductService_ManagedURLOfAnotherProductIsCopied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Roses")

	a, err := f.products.Create(ctx, ProductInput{ProductCode: "RS-01", Name: "Red Rose", CategoryID: cat.ID, ImageURL: f.okURL("a.png")})
	require.NoError(t, err)
	b, err := f.products.Create(ctx, ProductInput{ProductCode: "RS-02", Name: "White Rose", CategoryID: cat.ID})
	require.NoError(t, err)

	b, err = f.products.Update(ctx, b.ID, ProductPatch{ImageURL: nullable.Of(a.MainImageURL)})
	require.NoError(t, err)
	assert.NotEqual(t, a.MainImageURL, b.MainImageURL)
	assert.Contains(t, b.MainImageURL, fmt.Sprintf("/images/products/%d/main/main_", b.ID))

	extra, err := f.products.UploadImageFromURL(ctx, a.ID, a.MainImageURL)
	require.NoError(t, err)
	assert.NotEqual(t, a.MainImageURL, extra.ImageURL, "additional image gets its own file")

	require.NoError(t, f.products.Delete(ctx, b.ID))
	require.NoError(t, f.products.DeleteImage(ctx, a.ID, extra.ID))
	assert.True(t, f.exists(t, a.MainImageURL), "file of the first product survives")

	got, err := f.products.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.MainImageURL, got.MainImageURL)

	// своя главная картинка остаётся тем же файлом
	same, err := f.products.UploadMainImageFromURL(ctx, a.ID, a.MainImageURL)
	require.NoError(t, err)
	assert.Equal(t, a.MainImageURL, same)
	assert.True(t, f.exists(t, same))
}

func TestProductService_DownloadKeepsDatabaseAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Roses")

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		_, _ = w.Write([]byte("late"))
	}))
	defer slow.Close()
	defer unblock()

	done := make(chan error, 1)
	go func() {
		_, err := f.products.Create(ctx, ProductInput{
			ProductCode: "RS-01",
			Name:        "Red Rose",
			CategoryID:  cat.ID,
			ImageURLs:   []string{slow.URL + "/a.jpg"},
		})
		done <- err
	}()
	<-started

	listCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	list, err := f.categories.List(listCtx)
	require.NoError(t, err, "database is blocked while an image is downloading")
	assert.Len(t, list, 1)

	unblock()
	require.NoError(t, <-done)

	products, err := f.products.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Len(t, products[0].Images, 1)
}

func TestBlogService_CreateFailsOnMainImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.blogs.Create(ctx, BlogInput{Title: "x", Content: "y", ImageURL: f.missingURL("cover.jpg")})
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	all, err := f.blogs.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBlogService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author, err := f.admins.Create(ctx, "editor", "secret1")
	require.NoError(t, err)

	b, err := f.blogs.Create(ctx, BlogInput{
		Title:     "Caring for roses",
		Content:   "Water them",
		AuthorID:  &author.ID,
		ImageURL:  f.okURL("cover.jpg"),
		ImageURLs: []string{f.missingURL("x.jpg"), f.okURL("y.jpg")},
	})
	require.NoError(t, err)
	assert.Equal(t, models.BlogDraft, b.Status)
	require.NotNil(t, b.Author)
	assert.Equal(t, "editor", b.Author.Username)
	require.Len(t, b.Images, 1)

	published, err := f.blogs.ListPublished(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, published)

	_, err = f.blogs.Publish(ctx, b.ID)
	require.NoError(t, err)
	published, err = f.blogs.ListPublished(ctx, "ROSES")
	require.NoError(t, err)
	assert.Len(t, published, 1)

	_, err = f.blogs.Create(ctx, BlogInput{Title: "x", Content: "y", Status: "ARCHIVED"})
	assertField(t, err, "status", statusMessage)

	ghost := uint(404)
	_, err = f.blogs.Create(ctx, BlogInput{Title: "x", Content: "y", AuthorID: &ghost})
	assert.EqualError(t, err, "Admin with id 404 not found")

	_, err = f.blogs.ListByAuthor(ctx, ghost)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	updated, err := f.blogs.Update(ctx, b.ID, BlogPatch{
		Summary:  nullable.Of("short"),
		AuthorID: nullable.Null[uint](),
		Status:   nullable.Of("draft"),
	})
	require.NoError(t, err)
	assert.Equal(t, "short", updated.Summary)
	assert.Nil(t, updated.AuthorID)
	assert.Equal(t, models.BlogDraft, updated.Status)
	assert.Equal(t, "Caring for roses", updated.Title)

	require.NoError(t, f.blogs.Delete(ctx, b.ID))
	assert.False(t, f.exists(t, b.ImageURL))
	assert.False(t, f.exists(t, b.Images[0].ImageURL))
	_, err = f.blogs.Get(ctx, b.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestBlogService_ExternalImageIsNotDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.blogs.Create(ctx, BlogInput{Title: "x", Content: "y"})
	require.NoError(t, err)

	// файл рядом с хранилищем, но URL внешний
	outside := filepath.Join(f.root, "blogs", "keep.jpg")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))
	require.NoError(t, f.db.Model(&models.Blog{}).Where("id = ?", b.ID).Update("image_url", "https://cdn.example.com/images/blogs/keep.jpg").Error)

	require.NoError(t, f.blogs.DeleteMainImage(ctx, b.ID))
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestAdminService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.admins.Create(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", a.PasswordHash)

	_, err = f.admins.Create(ctx, "admin", "another1")
	assertField(t, err, "username", "Username already exists")

	_, err = f.admins.Create(ctx, "short", "123")
	assertField(t, err, "password", "Password must be at least 6 characters")

	_, err = f.admins.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)

	_, wrongPassword := f.admins.Authenticate(ctx, "admin", "nope")
	_, unknownUser := f.admins.Authenticate(ctx, "ghost", "admin123")
	assertField(t, wrongPassword, "credentials", "Invalid username or password")
	assertField(t, unknownUser, "credentials", "Invalid username or password")
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

	// пустой и отсутствующий пароль не меняют хэш
	hash := a.PasswordHash
	for _, patch := range []AdminPatch{
		{Username: nullable.Of("root")},
		{Password: nullable.Of("  ")},
		{Password: nullable.Null[string]()},
	} {
		updated, err := f.admins.Update(ctx, a.ID, patch)
		require.NoError(t, err)
		assert.Equal(t, hash, updated.PasswordHash)
	}

	updated, err := f.admins.Update(ctx, a.ID, AdminPatch{Password: nullable.Of("newpass1")})
	require.NoError(t, err)
	assert.NotEqual(t, hash, updated.PasswordHash)
	_, err = f.admins.Authenticate(ctx, "root", "newpass1")
	require.NoError(t, err)
}

func TestAdminService_DeleteDetachesBlogs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.admins.Create(ctx, "editor", "secret1")
	require.NoError(t, err)
	b, err := f.blogs.Create(ctx, BlogInput{Title: "t", Content: "c", AuthorID: &a.ID})
	require.NoError(t, err)

	require.NoError(t, f.admins.Delete(ctx, a.ID))

	got, err := f.blogs.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AuthorID)
	assert.True(t, apperr.Is(f.admins.Delete(ctx, a.ID), apperr.KindNotFound))
}

func TestAdminService_EnsureDefaultAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.admins.EnsureDefaultAdmin(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.admins.EnsureDefaultAdmin(ctx, "other", "admin123")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = f.admins.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
}
