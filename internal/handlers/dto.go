package handlers

import (
	"time"

	"flowershop/internal/models"
)

type categoryResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type imageResponse struct {
	ID           uint   `json:"id"`
	ImageURL     string `json:"imageUrl"`
	DisplayOrder int    `json:"displayOrder"`
	FileName     string `json:"fileName,omitempty"`
}

type productResponse struct {
	ID          uint              `json:"id"`
	ProductCode string            `json:"productCode"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	ImageURL    string            `json:"imageUrl"`
	CategoryID  uint              `json:"categoryId"`
	Category    *categoryResponse `json:"category,omitempty"`
	Images      []imageResponse   `json:"images"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// adminResponse — без хэша пароля
type adminResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type blogResponse struct {
	ID        uint            `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Summary   string          `json:"summary"`
	ImageURL  string          `json:"imageUrl"`
	Status    string          `json:"status"`
	AuthorID  *uint           `json:"authorId"`
	Author    *adminResponse  `json:"author,omitempty"`
	Images    []imageResponse `json:"images"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type imageURLResponse struct {
	ImageURL string `json:"imageUrl"`
}

func toCategory(c *models.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func toCategories(in []models.Category) []categoryResponse {
	out := make([]categoryResponse, 0, len(in))
	for i := range in {
		out = append(out, toCategory(&in[i]))
	}
	return out
}

func toProductImages(in []models.ProductImage) []imageResponse {
	out := make([]imageResponse, 0, len(in))
	for _, img := range in {
		out = append(out, imageResponse{ID: img.ID, ImageURL: img.ImageURL, DisplayOrder: img.DisplayOrder, FileName: img.FileName})
	}
	return out
}

func toBlogImages(in []models.BlogImage) []imageResponse {
	out := make([]imageResponse, 0, len(in))
	for _, img := range in {
		out = append(out, imageResponse{ID: img.ID, ImageURL: img.ImageURL, DisplayOrder: img.DisplayOrder, FileName: img.FileName})
	}
	return out
}

func toProduct(p *models.Product) productResponse {
	resp := productResponse{
		ID:          p.ID,
		ProductCode: p.ProductCode,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.MainImageURL,
		CategoryID:  p.CategoryID,
		Images:      toProductImages(p.Images),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Category.ID != 0 {
		cat := toCategory(&p.Category)
		resp.Category = &cat
	}
	return resp
}

func toProducts(in []models.Product) []productResponse {
	out := make([]productResponse, 0, len(in))
	for i := range in {
		out = append(out, toProduct(&in[i]))
	}
	return out
}

func toAdmin(a *models.Admin) adminResponse {
	return adminResponse{ID: a.ID, Username: a.Username, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt}
}

func toAdmins(in []models.Admin) []adminResponse {
	out := make([]adminResponse, 0, len(in))
	for i := range in {
		out = append(out, toAdmin(&in[i]))
	}
	return out
}

func toBlog(b *models.Blog) blogResponse {
	resp := blogResponse{
		ID:        b.ID,
		Title:     b.Title,
		Content:   b.Content,
		Summary:   b.Summary,
		ImageURL:  b.ImageURL,
		Status:    string(b.Status),
		AuthorID:  b.AuthorID,
		Images:    toBlogImages(b.Images),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Author != nil {
		author := toAdmin(b.Author)
		resp.Author = &author
	}
	return resp
}

func toBlogs(in []models.Blog) []blogResponse {
	out := make([]blogResponse, 0, len(in))
	for i := range in {
		out = append(out, toBlog(&in[i]))
	}
	return out
}
