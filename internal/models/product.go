package models

// Category — таблица categories
type Category struct {
	Base
	Name string `gorm:"size:255;not null;uniqueIndex"`
}

// Product — таблица products
type Product struct {
	Base
	ProductCode  string  `gorm:"size:50;not null;uniqueIndex"`
	Name         string  `gorm:"not null"`
	Description  string  `gorm:"size:2000"`
	Price        float64 `gorm:"not null"`
	MainImageURL string  `gorm:"size:500"` // публичный URL, напр. "http://localhost:8080/images/products/1/main/main_<uuid>.jpg"
	CategoryID   uint    `gorm:"index;not null"`
	Category     Category
	Images       []ProductImage `gorm:"foreignKey:ProductID"`
}

// ProductImage — дополнительные картинки товара (таблица product_images)
type ProductImage struct {
	Base
	ProductID    uint   `gorm:"index;not null"`
	ImageURL     string `gorm:"size:500;not null"`
	DisplayOrder int    `gorm:"not null;default:0"`
	FileName     string
}
