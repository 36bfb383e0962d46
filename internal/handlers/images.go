package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flowershop/internal/apperr"
	"flowershop/internal/service"
)

type imageURLRequest struct {
	ImageURL string `json:"imageUrl" binding:"required"`
}

// withUpload открывает multipart-поле "file" и передаёт его в fn
func withUpload(c *gin.Context, fn func(up service.Upload) error) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.InvalidArgument("Image file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.Internal(err, "failed to read uploaded file")
	}
	defer f.Close()
	return fn(service.Upload{Reader: f, Size: fh.Size, FileName: fh.Filename})
}

func writeImageURL(c *gin.Context, url string) {
	c.JSON(http.StatusOK, imageURLResponse{ImageURL: url})
}
