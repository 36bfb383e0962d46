package models

import "time"

// Base — общие поля для всех таблиц
type Base struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// All — список моделей для AutoMigrate (порядок важен из-за внешних ключей)
func All() []any {
	return []any{
		&Admin{},
		&Category{},
		&Product{},
		&ProductImage{},
		&Blog{},
		&BlogImage{},
	}
}
