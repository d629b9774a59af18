// Package utility - các hàm tiện ích cho JWT token và mật khẩu.
package utility

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// CreateToken tạo JWT token chứa userID, thời điểm tạo và số ngẫu nhiên.
// Trả về map có key "token" chứa token đã ký bằng HMAC-SHA256.
func CreateToken(secret string, userID string, timeHex string, randomNumber string) (map[string]string, error) {
	claims := jwt.MapClaims{
		"userId":       userID,
		"time":         timeHex,
		"randomNumber": randomNumber,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("lỗi ký JWT token: %w", err)
	}

	return map[string]string{"token": signed}, nil
}

// ParseToken parse và validate JWT token, trả về claims nếu token hợp lệ.
func ParseToken(secret string, tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("phương thức ký không hợp lệ: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("token không hợp lệ")
	}
	return claims, nil
}

// GenerateSalt sinh salt ngẫu nhiên 16 byte dưới dạng chuỗi hex.
func GenerateSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("lỗi sinh salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword băm mật khẩu với salt bằng SHA-256.
func HashPassword(password string, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

// ComparePassword so sánh mật khẩu plaintext với hash đã lưu.
func ComparePassword(password string, salt string, hashed string) bool {
	return HashPassword(password, salt) == hashed
}
