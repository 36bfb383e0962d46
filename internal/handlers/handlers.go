// Package handlers — REST-ручки поверх сервисов
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"flowershop/internal/config"
	"flowershop/internal/service"
	"flowershop/internal/storage"
)

type Handler struct {
	cfg        *config.Config
	db         *gorm.DB
	categories *service.CategoryService
	products   *service.ProductService
	blogs      *service.BlogService
	admins     *service.AdminService
}

func New(cfg *config.Config, gdb *gorm.DB, images *storage.ImageManager) *Handler {
	registerJSONNames()
	return &Handler{
		cfg:        cfg,
		db:         gdb,
		categories: service.NewCategoryService(gdb),
		products:   service.NewProductService(gdb, images),
		blogs:      service.NewBlogService(gdb, images),
		admins:     service.NewAdminService(gdb),
	}
}

// Router собирает gin.Engine со всеми ручками и middleware
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = h.cfg.Storage.UploadMaxMemory
	r.Use(RequestLogger(), gin.CustomRecovery(HandlePanics()))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     h.cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	}))

	// sessions
	store := cookie.NewStore([]byte(h.cfg.Session.Secret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode, MaxAge: 7 * 24 * 3600})
	r.Use(sessions.Sessions(sessionName, store))

	// раздача загруженных картинок
	r.Static(h.cfg.Storage.URLPath, h.cfg.Storage.LocalPath)

	r.GET("/health", h.health)

	var auth gin.HandlerFunc = noop
	if h.cfg.Session.AdminAuthRequired {
		auth = requireAdmin()
	}

	api := r.Group("/api")

	categories := api.Group("/categories")
	categories.POST("", auth, h.createCategory)
	categories.GET("", h.listCategories)
	categories.GET("/:id", h.getCategory)
	categories.PUT("/:id", auth, h.updateCategory)
	categories.DELETE("/:id", auth, h.deleteCategory)
	categories.GET("/:id/products", h.listProductsByCategory)

	products := api.Group("/products")
	products.POST("", auth, h.createProduct)
	products.GET("", h.listProducts)
	products.GET("/:id", h.getProduct)
	products.PUT("/:id", auth, h.updateProduct)
	products.DELETE("/:id", auth, h.deleteProduct)
	products.GET("/:id/images", h.listProductImages)
	products.POST("/:id/images", auth, h.uploadProductImage)
	products.POST("/:id/images/main", auth, h.uploadProductMainImage)
	products.POST("/:id/images/url", auth, h.uploadProductImageFromURL)
	products.POST("/:id/images/main-url", auth, h.uploadProductMainImageFromURL)
	products.DELETE("/:id/images/main", auth, h.deleteProductMainImage)
	products.DELETE("/:id/images/:imageId", auth, h.deleteProductImage)
	products.DELETE("/:id/images", auth, h.deleteAllProductImages)

	blogs := api.Group("/blogs")
	blogs.GET("", h.listPublishedBlogs)
	blogs.GET("/:id", h.getBlog)

	adminBlogs := api.Group("/admin/blogs", auth)
	adminBlogs.POST("", h.createBlog)
	adminBlogs.GET("", h.listAllBlogs)
	adminBlogs.GET("/author/:authorId", h.listBlogsByAuthor)
	adminBlogs.PUT("/:id", h.updateBlog)
	adminBlogs.PATCH("/:id/publish", h.publishBlog)
	adminBlogs.PATCH("/:id/unpublish", h.unpublishBlog)
	adminBlogs.DELETE("/:id", h.deleteBlog)
	adminBlogs.GET("/:id/images", h.listBlogImages)
	adminBlogs.POST("/:id/images", h.uploadBlogImage)
	adminBlogs.POST("/:id/images/main", h.uploadBlogMainImage)
	adminBlogs.POST("/:id/images/url", h.uploadBlogImageFromURL)
	adminBlogs.POST("/:id/images/main-url", h.uploadBlogMainImageFromURL)
	adminBlogs.DELETE("/:id/images/main", h.deleteBlogMainImage)
	adminBlogs.DELETE("/:id/images/:imageId", h.deleteBlogImage)
	adminBlogs.DELETE("/:id/images", h.deleteAllBlogImages)

	admins := api.Group("/admins")
	admins.POST("/login", h.login)
	admins.POST("/logout", h.logout)
	admins.GET("/me", h.me)
	admins.POST("", auth, h.createAdmin)
	admins.GET("", h.listAdmins)
	admins.GET("/:id", h.getAdmin)
	admins.PUT("/:id", auth, h.updateAdmin)
	admins.DELETE("/:id", auth, h.deleteAdmin)

	return r
}

func (h *Handler) health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "db": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
