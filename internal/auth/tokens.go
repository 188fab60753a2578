package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"gorm.io/gorm"

	"tably-system/internal/database/models"
)

var ErrInvalidToken = errors.New("invalid token")

// HashToken mirrors the hashing used when tokens were issued: hex-encoded
// sha256 of the raw token. Only hashes are stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewTableToken returns a fresh URL-safe table token. The plain token is
// shown once at creation; afterwards only its hash exists.
func NewTableToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// ResolveTableToken maps a scanned table token to its table and restaurant.
func ResolveTableToken(db *gorm.DB, token string) (*models.Restaurant, *models.Table, error) {
	var table models.Table
	if err := db.Where("table_token_hash = ?", HashToken(token)).
		Preload("Restaurant").
		First(&table).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}
	return table.Restaurant, &table, nil
}

// ResolveAdminToken maps an X-Admin-Token header value to its restaurant.
func ResolveAdminToken(db *gorm.DB, token string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := db.Where("admin_token_hash = ?", HashToken(token)).
		First(&restaurant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &restaurant, nil
}
