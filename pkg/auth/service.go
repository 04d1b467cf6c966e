package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mankai/mankai-server/pkg/config"
	"github.com/mankai/mankai-server/pkg/errcodes"
	"github.com/mankai/mankai-server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing.
	BcryptCost = 12

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// JWTClaims represents the claims in both access and refresh tokens. Refresh
// tokens also carry a fingerprint of the password hash they were issued
// against.
type JWTClaims struct {
	UserID      int    `json:"user_id"`
	Email       string `json:"email"`
	IsAdmin     bool   `json:"is_admin,omitempty"`
	Type        string `json:"type"`
	Fingerprint string `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is what a successful login hands back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service handles authentication operations.
type Service struct {
	db         *bun.DB
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a new auth service.
func NewService(db *bun.DB, cfg *config.Config) *Service {
	return &Service{
		db:         db,
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}
}

// Authenticate validates credentials and returns the user if valid.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return nil, errcodes.Unauthorized("Invalid email or password")
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, errcodes.Unauthorized("Invalid email or password")
	}

	return user, nil
}

// GenerateTokens issues a fresh access/refresh pair for the user.
func (s *Service) GenerateTokens(user *models.User) (*TokenPair, error) {
	access, err := s.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refresh, err := s.sign(JWTClaims{
		UserID:      user.ID,
		Email:       user.Email,
		Type:        tokenTypeRefresh,
		Fingerprint: fingerprint(user.PasswordHash),
	}, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// GenerateAccessToken creates a short-lived token for API calls.
func (s *Service) GenerateAccessToken(user *models.User) (string, error) {
	return s.sign(JWTClaims{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		Type:    tokenTypeAccess,
	}, s.accessTTL)
}

// ValidateAccessToken validates an access token and returns its claims.
// Refresh tokens are rejected.
func (s *Service) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != tokenTypeAccess {
		return nil, errors.New("not an access token")
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new access token. The token stops
// working once the user's password changes or the user is removed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, *models.User, error) {
	claims, err := s.parse(refreshToken)
	if err != nil || claims.Type != tokenTypeRefresh {
		return "", nil, errcodes.Unauthorized("Invalid or expired refresh token")
	}

	user, err := s.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return "", nil, errcodes.Unauthorized("Invalid or expired refresh token")
	}

	if subtle.ConstantTimeCompare([]byte(claims.Fingerprint), []byte(fingerprint(user.PasswordHash))) != 1 {
		return "", nil, errcodes.Unauthorized("Invalid or expired refresh token")
	}

	access, err := s.GenerateAccessToken(user)
	if err != nil {
		return "", nil, err
	}
	return access, user, nil
}

// GetUserByID retrieves a user by ID.
func (s *Service) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// EnsureAdmin makes sure an admin account exists for the given email. A new
// user is created with the password; an existing user is promoted but keeps
// their password. It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	log := logger.FromContext(ctx)

	user, err := s.getUserByEmail(ctx, email)
	if err == nil {
		if user.IsAdmin {
			return false, nil
		}
		user.IsAdmin = true
		user.UpdatedAt = time.Now()
		_, err = s.db.NewUpdate().
			Model(user).
			Column("is_admin", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return false, errors.WithStack(err)
		}
		log.Info("promoted existing user to admin", logger.Data{"user_id": user.ID})
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, errors.WithStack(err)
	}

	if password == "" {
		return false, errors.Errorf("admin %s doesn't exist and no admin password is configured", email)
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return false, err
	}

	now := time.Now()
	user = &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        email,
		PasswordHash: hashed,
		IsAdmin:      true,
	}
	_, err = s.db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	log.Info("created admin user", logger.Data{"user_id": user.ID})
	return true, nil
}

func (s *Service) getUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.email = ? COLLATE NOCASE", email).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return user, nil
}

func (s *Service) sign(claims JWTClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return signedToken, nil
}

func (s *Service) parse(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:])
}

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
