package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"flowershop/internal/models"
	"flowershop/internal/nullable"
	"flowershop/internal/service"
)

type blogCreateRequest struct {
	Title     string   `json:"title" binding:"required,max=255"`
	Content   string   `json:"content" binding:"required"`
	Summary   string   `json:"summary" binding:"max=500"`
	ImageURL  string   `json:"imageUrl"`
	ImageURLs []string `json:"imageUrls"`
	Status    string   `json:"status"`
	AuthorID  *uint    `json:"authorId"`
}

type blogUpdateRequest struct {
	Title    nullable.Field[string] `json:"title"`
	Content  nullable.Field[string] `json:"content"`
	Summary  nullable.Field[string] `json:"summary"`
	ImageURL nullable.Field[string] `json:"imageUrl"`
	Status   nullable.Field[string] `json:"status"`
	AuthorID nullable.Field[uint]   `json:"authorId"`
}

func (h *Handler) createBlog(c *gin.Context) {
	var req blogCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	// без authorId автором становится залогиненный админ
	if req.AuthorID == nil {
		if id := c.GetUint(ctxAdminID); id != 0 {
			req.AuthorID = &id
		}
	}
	b, err := h.blogs.Create(c.Request.Context(), service.BlogInput{
		Title:     req.Title,
		Content:   req.Content,
		Summary:   req.Summary,
		ImageURL:  req.ImageURL,
		ImageURLs: req.ImageURLs,
		Status:    req.Status,
		AuthorID:  req.AuthorID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBlog(b))
}

// listPublishedBlogs — публичный список, только PUBLISHED
func (h *Handler) listPublishedBlogs(c *gin.Context) {
	list, err := h.blogs.ListPublished(c.Request.Context(), c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBlogs(list))
}

func (h *Handler) listAllBlogs(c *gin.Context) {
	list, err := h.blogs.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBlogs(list))
}

func (h *Handler) listBlogsByAuthor(c *gin.Context) {
	authorID, ok := pathID(c, "authorId")
	if !ok {
		return
	}
	list, err := h.blogs.ListByAuthor(c.Request.Context(), authorID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBlogs(list))
}

func (h *Handler) getBlog(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.blogs.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBlog(b))
}

func (h *Handler) updateBlog(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req blogUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.blogs.Update(c.Request.Context(), id, service.BlogPatch{
		Title:    req.Title,
		Content:  req.Content,
		Summary:  req.Summary,
		ImageURL: req.ImageURL,
		Status:   req.Status,
		AuthorID: req.AuthorID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBlog(b))
}

func (h *Handler) publishBlog(c *gin.Context) {
	h.changeBlogStatus(c, h.blogs.Publish)
}

func (h *Handler) unpublishBlog(c *gin.Context) {
	h.changeBlogStatus(c, h.blogs.Unpublish)
}

func (h *Handler) changeBlogStatus(c *gin.Context, change func(ctx context.Context, id uint) (*models.Blog, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := change(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBlog(b))
}

func (h *Handler) deleteBlog(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.blogs.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- картинки поста ----------

func (h *Handler) listBlogImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	imgs, err := h.blogs.ListImages(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBlogImages(imgs))
}

func (h *Handler) uploadBlogMainImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var url string
	err := withUpload(c, func(up service.Upload) error {
		var err error
		url, err = h.blogs.UploadMainImage(c.Request.Context(), id, up)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeImageURL(c, url)
}

func (h *Handler) uploadBlogImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var url string
	err := withUpload(c, func(up service.Upload) error {
		img, err := h.blogs.UploadImage(c.Request.Context(), id, up)
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

func (h *Handler) uploadBlogMainImageFromURL(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req imageURLRequest
	if !bindJSON(c, &req) {
		return
	}
	url, err := h.blogs.UploadMainImageFromURL(c.Request.Context(), id, req.ImageURL)
	if err != nil {
		writeError(c, err)
		return
	}
	writeImageURL(c, url)
}

func (h *Handler) uploadBlogImageFromURL(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req imageURLRequest
	if !bindJSON(c, &req) {
		return
	}
	img, err := h.blogs.UploadImageFromURL(c.Request.Context(), id, req.ImageURL)
	if err != nil {
		writeError(c, err)
		return
	}
	writeImageURL(c, img.ImageURL)
}

func (h *Handler) deleteBlogMainImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.blogs.DeleteMainImage(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteBlogImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	imageID, ok := pathID(c, "imageId")
	if !ok {
		return
	}
	if err := h.blogs.DeleteImage(c.Request.Context(), id, imageID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteAllBlogImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.blogs.DeleteAllImages(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
