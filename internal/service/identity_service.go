package service

import (
	"context"
	"strings"
	"time"

	"github.com/bookcart-next/internal/cache"
	"github.com/bookcart-next/internal/config"
	"github.com/bookcart-next/internal/constants"
	"github.com/bookcart-next/internal/logger"
	"github.com/bookcart-next/internal/models"
	"github.com/bookcart-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

const defaultUserJWTExpireHours = 24

// Identity 已认证的调用方
type Identity struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID       uint   `json:"user_id"`
	Role         string `json:"role"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// IdentityService 解析 Bearer Token 得到用户身份
type IdentityService struct {
	cfg      config.JWTConfig
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewIdentityService 创建身份服务
func NewIdentityService(cfg config.JWTConfig, userRepo repository.UserRepository) *IdentityService {
	return &IdentityService{
		cfg:      cfg,
		userRepo: userRepo,
		now:      time.Now,
	}
}

// IssueToken 签发用户 JWT（种子数据与测试使用，登录流程不在本服务内）
func (s *IdentityService) IssueToken(user *models.User) (string, time.Time, error) {
	if user == nil || user.ID == 0 {
		return "", time.Time{}, ErrInvalidInput
	}
	hours := s.cfg.ExpireHours
	if hours <= 0 {
		hours = defaultUserJWTExpireHours
	}
	now := s.now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := UserJWTClaims{
		UserID:       user.ID,
		Role:         normalizeRole(user.Role),
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken 解析并校验签名与有效期
func (s *IdentityService) ParseToken(tokenString string) (*UserJWTClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil || !token.Valid || claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Authenticate 解析 Authorization 头（Bearer xxx），返回用户 ID 与当前角色
func (s *IdentityService) Authenticate(ctx context.Context, authorization string) (*Identity, error) {
	authorization = strings.TrimSpace(authorization)
	if authorization == "" {
		return nil, ErrUnauthenticated
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, ErrTokenInvalid
	}
	claims, err := s.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}

	if cached, hit, cacheErr := cache.GetUserAuthState(ctx, claims.UserID); cacheErr == nil && hit && cached != nil {
		if err := checkAuthState(claims, cached.Status, cached.TokenVersion); err != nil {
			return nil, err
		}
		return &Identity{UserID: claims.UserID, Role: normalizeRole(cached.Role)}, nil
	} else if cacheErr != nil {
		logger.Warnw("identity_auth_state_cache_read_failed", "user_id", claims.UserID, "error", cacheErr)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if user == nil {
		return nil, ErrTokenInvalid
	}
	if err := checkAuthState(claims, user.Status, user.TokenVersion); err != nil {
		return nil, err
	}
	if err := cache.SetUserAuthState(ctx, cache.BuildUserAuthState(user)); err != nil {
		logger.Warnw("identity_auth_state_cache_write_failed", "user_id", user.ID, "error", err)
	}
	return &Identity{UserID: user.ID, Role: normalizeRole(user.Role)}, nil
}

func checkAuthState(claims *UserJWTClaims, status string, tokenVersion uint64) error {
	if !strings.EqualFold(strings.TrimSpace(status), constants.UserStatusActive) {
		return ErrUserDisabled
	}
	if claims.TokenVersion != tokenVersion {
		return ErrTokenRevoked
	}
	return nil
}

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case constants.RoleAdmin:
		return constants.RoleAdmin
	case constants.RoleCoach:
		return constants.RoleCoach
	default:
		return constants.RoleUser
	}
}
