package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	db          *gorm.DB
	cfg         *config.Config
	adminEmails []string
	now         func() time.Time
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		db:          db,
		cfg:         cfg,
		adminEmails: cfg.AdminEmailList(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if n := utf8.RuneCountInString(name); n < 3 || n > 100 {
		return nil, validationf("name must be between 3 and 100 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil || len(email) > 255 {
		return nil, validationf("a valid email is required")
	}
	if len(req.Password) < 6 {
		return nil, validationf("password must be at least 6 characters")
	}
	role := req.Role
	if role == "" {
		role = models.RoleDonor
	}
	if role != models.RoleDonor && role != models.RoleOrganizer {
		return nil, validationf("role must be donor or organizer")
	}
	if s.isConfiguredAdmin(email) {
		role = models.RoleAdmin
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
	defer cancel()
	db := s.db.WithContext(ctx)

	var existing int64
	if err := db.Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, storeErr(err, nil, "check email")
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := models.User{
		Name:      name,
		Email:     email,
		Password:  string(hash),
		Role:      role,
		LastLogin: &now,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, storeErr(err, nil, "create user")
	}

	slog.Info("user registered", "user_id", user.ID.String(), "role", role)
	return s.generateTokenPair(db, &user)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
	defer cancel()
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr(err, nil, "load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	updates := map[string]any{"last_login": now}
	if user.Role != models.RoleAdmin && s.isConfiguredAdmin(user.Email) {
		updates["role"] = models.RoleAdmin
		user.Role = models.RoleAdmin
		slog.Warn("user promoted to admin from ADMIN_EMAILS", "user_id", user.ID.String())
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return nil, storeErr(err, nil, "record login")
	}
	user.LastLogin = &now

	return s.generateTokenPair(db, &user)
}

// Refresh rotates a refresh token. A token can be exchanged once; the revoke
// is conditional so two concurrent exchanges cannot both succeed.
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
	defer cancel()

	var resp *dto.AuthResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.RefreshToken
		if err := tx.Where("token_hash = ? AND revoked = ?", hashToken(req.RefreshToken), false).First(&stored).Error; err != nil {
			return storeErr(err, ErrInvalidToken, "load refresh token")
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked = ?", stored.ID, false).
			Update("revoked", true)
		if res.Error != nil {
			return storeErr(res.Error, nil, "revoke refresh token")
		}
		if res.RowsAffected == 0 || s.now().After(stored.ExpiresAt) {
			return ErrInvalidToken
		}

		var user models.User
		if err := tx.First(&user, "id = ?", stored.UserID).Error; err != nil {
			return storeErr(err, ErrInvalidToken, "load user")
		}
		var err error
		resp, err = s.generateTokenPair(tx, &user)
		return err
	})
	if err != nil {
		return nil, storeErr(err, nil, "refresh token")
	}
	return resp, nil
}

func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
	defer cancel()
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(req.RefreshToken)).
		Update("revoked", true).Error
	return storeErr(err, nil, "revoke refresh token")
}

// CurrentUser returns the profile for an authenticated caller.
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
	defer cancel()
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, storeErr(err, ErrUserNotFound, "load user")
	}
	resp := userResponse(&user)
	return &resp, nil
}

// HasRole checks the stored role, so a role change takes effect before the
// access token expires.
func (s *AuthService) HasRole(ctx context.Context, userID uuid.UUID, roles ...string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DBTimeout)
	defer cancel()
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "role").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, storeErr(err, nil, "load user")
	}
	return slices.Contains(roles, user.Role), nil
}

func (s *AuthService) isConfiguredAdmin(email string) bool {
	return slices.Contains(s.adminEmails, email)
}

func (s *AuthService) generateTokenPair(db *gorm.DB, user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateRefreshToken(db, user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userResponse(user),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  user.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(db *gorm.DB, user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	rawToken := base64.RawURLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: s.now().Add(s.cfg.JWTRefreshExpiry),
	}
	if err := db.Create(&record).Error; err != nil {
		return "", storeErr(err, nil, "store refresh token")
	}
	return rawToken, nil
}

func userResponse(u *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
