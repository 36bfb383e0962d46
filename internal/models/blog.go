package models

import "strings"

// BlogStatus — статус поста
type BlogStatus string

const (
	BlogDraft     BlogStatus = "DRAFT"
	BlogPublished BlogStatus = "PUBLISHED"
)

// ParseBlogStatus принимает "draft"/"PUBLISHED" и т.п.
func ParseBlogStatus(s string) (BlogStatus, bool) {
	switch BlogStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case BlogDraft:
		return BlogDraft, true
	case BlogPublished:
		return BlogPublished, true
	}
	return "", false
}

// Blog — таблица blogs
type Blog struct {
	Base
	Title    string     `gorm:"size:255;not null"`
	Content  string     `gorm:"type:text;not null"`
	Summary  string     `gorm:"size:500"`
	ImageURL string     `gorm:"size:500"`
	Status   BlogStatus `gorm:"type:varchar(16);not null;default:'DRAFT';index"`
	AuthorID *uint      `gorm:"index"`
	Author   *Admin
	Images   []BlogImage `gorm:"foreignKey:BlogID"`
}

// BlogImage — дополнительные картинки поста (таблица blog_images)
type BlogImage struct {
	Base
	BlogID       uint   `gorm:"index;not null"`
	ImageURL     string `gorm:"size:500;not null"`
	DisplayOrder int    `gorm:"not null;default:0"`
	FileName     string
}
