package models

import "golang.org/x/crypto/bcrypt"

// Admin — таблица admins
type Admin struct {
	Base
	Username     string `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
}

// HashPassword превращает обычный пароль в безопасный хэш
func HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPassword проверяет пароль на совпадение с хэшем
func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
