package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flowershop/internal/nullable"
	"flowershop/internal/service"
)

type productCreateRequest struct {
	ProductCode string   `json:"productCode" binding:"required,max=50"`
	Name        string   `json:"name" binding:"required,max=255"`
	Description string   `json:"description" binding:"max=2000"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	CategoryID  uint     `json:"categoryId" binding:"required"`
	ImageURL    string   `json:"imageUrl"`
	ImageURLs   []string `json:"imageUrls"`
}

// productUpdateRequest — PUT с семантикой патча: отсутствующие поля не меняются
type productUpdateRequest struct {
	ProductCode nullable.Field[string]  `json:"productCode"`
	Name        nullable.Field[string]  `json:"name"`
	Description nullable.Field[string]  `json:"description"`
	Price       nullable.Field[float64] `json:"price"`
	CategoryID  nullable.Field[uint]    `json:"categoryId"`
	ImageURL    nullable.Field[string]  `json:"imageUrl"`
}

func (h *Handler) createProduct(c *gin.Context) {
	var req productCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.products.Create(c.Request.Context(), service.ProductInput{
		ProductCode: req.ProductCode,
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
		ImageURLs:   req.ImageURLs,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProduct(p))
}

func (h *Handler) listProducts(c *gin.Context) {
	list, err := h.products.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProducts(list))
}

func (h *Handler) listProductsByCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.products.ListByCategory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProducts(list))
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProduct(p))
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req productUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.products.Update(c.Request.Context(), id, service.ProductPatch{
		ProductCode: req.ProductCode,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProduct(p))
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- картинки товара ----------

func (h *Handler) listProductImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	imgs, err := h.products.ListImages(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductImages(imgs))
}

func (h *Handler) uploadProductMainImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var url string
	err := withUpload(c, func(up service.Upload) error {
		var err error
		url, err = h.products.UploadMainImage(c.Request.Context(), id, up)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeImageURL(c, url)
}

func (h *Handler) uploadProductImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var url string
	err := withUpload(c, func(up service.Upload) error {
		img, err := h.products.UploadImage(c.Request.Context(), id, up)
		if err == nil {
			url = img.ImageURL
		}
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeImageURL(c, url)
}

func (h *Handler) uploadProductMainImageFromURL(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req imageURLRequest
	if !bindJSON(c, &req) {
		return
	}
	url, err := h.products.UploadMainImageFromURL(c.Request.Context(), id, req.ImageURL)
	if err != nil {
		writeError(c, err)
		return
	}
	writeImageURL(c, url)
}

func (h *Handler) uploadProductImageFromURL(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req imageURLRequest
	if !bindJSON(c, &req) {
		return
	}
	img, err := h.products.UploadImageFromURL(c.Request.Context(), id, req.ImageURL)
	if err != nil {
		writeError(c, err)
		return
	}
	writeImageURL(c, img.ImageURL)
}

func (h *Handler) deleteProductMainImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.products.DeleteMainImage(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteProductImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	imageID, ok := pathID(c, "imageId")
	if !ok {
		return
	}
	if err := h.products.DeleteImage(c.Request.Context(), id, imageID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteAllProductImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.products.DeleteAllImages(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
