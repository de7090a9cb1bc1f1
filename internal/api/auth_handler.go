package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/config"
	"resumeBuilder/internal/database"
)

const refreshTokenCookieName = "refresh_token"
const refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"

// AuthHandler 处理注册、登录、刷新与退出。redis 为 nil 时不做限流与吊销。
type AuthHandler struct {
	db          *gorm.DB
	authService *auth.AuthService
	redis       redis.UniversalClient
	logger      *slog.Logger
	cfg         config.AuthConfig
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, redisClient redis.UniversalClient, logger *slog.Logger, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{
		db:          db,
		authService: authService,
		redis:       redisClient,
		logger:      logger,
		cfg:         cfg,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"max=128"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type userResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Register 创建新用户账号并直接返回 TokenPair。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := normalizeEmail(req.Email)
	logger := loggerFrom(c).With(slog.String("email", email))

	var existing database.User
	if err := h.db.WithContext(ctx).Where(&database.User{Email: email}).First(&existing).Error; err == nil {
		logger.Info("register conflict: user already exists")
		Conflict(c, "email already registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("register lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	user := database.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hashed,
	}
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	h.replyWithTokenPair(c, http.StatusCreated, tokenPair)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 校验口令并返回 Token。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := normalizeEmail(req.Email)
	logger := loggerFrom(c).With(slog.String("email", email))

	if h.redis != nil {
		// 速率限制：每 IP+邮箱 每小时固定窗口
		count, err := hitWindow(ctx, h.redis, loginRateKey(c.ClientIP(), email, time.Now()), time.Hour)
		if err != nil {
			logger.Warn("login rate counter failed", slog.Any("error", err))
		}
		if h.cfg.LoginRateLimitPerHour > 0 && count > int64(h.cfg.LoginRateLimitPerHour) {
			TooManyRequests(c, "rate limit exceeded")
			return
		}

		if ttl, _ := h.redis.TTL(ctx, loginLockKey(email)).Result(); ttl > 0 {
			TooManyRequests(c, "account temporarily locked")
			return
		}
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where(&database.User{Email: email}).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: user not found")
			h.incrementLoginFail(ctx, email)
			Unauthorized(c)
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		h.incrementLoginFail(ctx, email)
		Unauthorized(c)
		return
	}

	if h.redis != nil {
		_ = h.redis.Del(ctx, loginFailKey(email)).Err()
	}

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, http.StatusOK, tokenPair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh 校验刷新令牌并颁发新的 TokenPair，旧令牌随即吊销。
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	logger := loggerFrom(c)

	claims, ok := h.validRefreshClaims(c, logger)
	if !ok {
		Unauthorized(c)
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if h.redis != nil {
		if err := h.redis.Get(ctx, key).Err(); err == nil {
			logger.Info("refresh token revoked", slog.String("jti", claims.ID))
			Unauthorized(c)
			return
		} else if !errors.Is(err, redis.Nil) {
			logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		logger.Info("refresh user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("refresh generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("refresh revoke old token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, http.StatusOK, tokenPair)
}

// Logout 将刷新令牌加入黑名单，防止继续使用。
func (h *AuthHandler) Logout(c *gin.Context) {
	logger := loggerFrom(c)

	claims, ok := h.validRefreshClaims(c, logger)
	if !ok {
		BadRequest(c, "valid refresh token required")
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.revokeRefreshToken(c.Request.Context(), key, claims.ExpiresAt); err != nil {
		logger.Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.Status(http.StatusNoContent)
}

// Me 返回当前登录用户。
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var user database.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		lookupFailed(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	})
}

func (h *AuthHandler) validRefreshClaims(c *gin.Context, logger *slog.Logger) (*auth.TokenClaims, bool) {
	refreshToken := extractRefreshToken(c)
	if refreshToken == "" {
		return nil, false
	}
	claims, err := h.authService.ValidateToken(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		logger.Info("refresh token invalid", slog.Any("error", err))
		return nil, false
	}
	if claims.ID == "" {
		logger.Info("refresh token missing jti")
		return nil, false
	}
	return claims, true
}

func (h *AuthHandler) replyWithTokenPair(c *gin.Context, status int, tokenPair auth.TokenPair) {
	h.setRefreshCookie(c, tokenPair.RefreshToken)
	c.JSON(status, tokenResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.authService.AccessTokenTTL().Seconds()),
	})
}

func extractRefreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshTokenCookieName); err == nil && token != "" {
		return token
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, refreshToken string) {
	maxAge := int(h.authService.RefreshTokenTTL().Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    refreshToken,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) revokeRefreshToken(ctx context.Context, key string, expiresAt *jwt.NumericDate) error {
	if h.redis == nil {
		return nil
	}
	ttl := h.authService.RefreshTokenTTL()
	if expiresAt != nil {
		ttl = time.Until(expiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return h.redis.Set(ctx, key, "revoked", ttl).Err()
}

func (h *AuthHandler) incrementLoginFail(ctx context.Context, email string) {
	if h.redis == nil || h.cfg.LoginLockThreshold <= 0 {
		return
	}
	count, err := hitWindow(ctx, h.redis, loginFailKey(email), h.cfg.LoginLockTTL)
	if err != nil {
		h.logger.Warn("increment login failures failed", slog.Any("error", err))
		return
	}
	if count >= int64(h.cfg.LoginLockThreshold) {
		_ = h.redis.Set(ctx, loginLockKey(email), "1", h.cfg.LoginLockTTL).Err()
	}
}

func isHTTPSRequest(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
