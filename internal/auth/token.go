// Package auth 签发与校验绑定简历slug的访问令牌。
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"resume-coach-go/internal/config"
)

// ErrInvalidToken 令牌无效或已过期
var ErrInvalidToken = errors.New("访问令牌无效")

// Claims 访问令牌的声明：一个令牌只授权访问一份简历
type Claims struct {
	Slug  string `json:"slug"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService 访问令牌服务
type TokenService struct {
	secret []byte
	expiry time.Duration
}

// NewTokenService 创建令牌服务
func NewTokenService(cfg *config.JWTConfig) (*TokenService, error) {
	if cfg == nil || cfg.Secret == "" {
		return nil, fmt.Errorf("JWT密钥不能为空")
	}
	return &TokenService{
		secret: []byte(cfg.Secret),
		expiry: cfg.Expiry(),
	}, nil
}

// CreateToken 为指定简历签发访问令牌
func (s *TokenService) CreateToken(slug, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Slug:  slug,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("签发令牌失败: %w", err)
	}
	return signed, nil
}

// ParseToken 解析并校验访问令牌，返回其声明
func (s *TokenService) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("不支持的签名算法: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
