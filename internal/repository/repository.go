// Package repository — доступ к таблицам через gorm.
// Все запросы идут через db.Conn, чтобы подхватывать транзакцию из контекста.
package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound возвращается, когда запись не найдена
var ErrNotFound = errors.New("record not found")

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// likePattern — "%rose%" для поиска без учёта регистра
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(search))) + "%"
}

// imagesOrdered — порядок дополнительных картинок при Preload
func imagesOrdered(tx *gorm.DB) *gorm.DB {
	return tx.Order("display_order, id")
}
