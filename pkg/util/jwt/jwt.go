// Package jwt 签发与解析 HS256 Access Token
package jwt

import (
	"errors"
	"time"

	"channel_chat_server/pkg/constants"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNotAccessToken token 合法但不是 Access Token
var ErrNotAccessToken = errors.New("token is not an access token")

// Claims 自定义 JWT 声明
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Manager 持有签名密钥与有效期
type Manager struct {
	secret            []byte
	accessTokenExpiry time.Duration
}

// NewManager 创建 Token 管理器，accessExpiryMinutes 为 Access Token 有效期（分钟）
func NewManager(secret string, accessExpiryMinutes int) *Manager {
	return &Manager{
		secret:            []byte(secret),
		accessTokenExpiry: time.Duration(accessExpiryMinutes) * time.Minute,
	}
}

// GenerateAccessToken 生成 Access Token
func (m *Manager) GenerateAccessToken(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    constants.TOKEN_ISSUER,
			Subject:   constants.ACCESS_TOKEN_SUBJECT,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证 Token 签名与有效期
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// ParseAccessToken 解析 Token 并要求其为 Access Token
func (m *Manager) ParseAccessToken(tokenString string) (*Claims, error) {
	claims, err := m.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Subject != constants.ACCESS_TOKEN_SUBJECT {
		return nil, ErrNotAccessToken
	}
	return claims, nil
}
