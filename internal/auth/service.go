// backend/internal/auth/service.go
package auth

import (
	"context"
	"strings"
	"time"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/dgrijalva/jwt-go"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// TokenRevoker remembers signed-out token ids until they expire.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type Service struct {
	repo      UserStore
	revoker   TokenRevoker
	jwtSecret []byte
	now       func() time.Time
}

func NewService(repo UserStore, revoker TokenRevoker, jwtSecret string) *Service {
	return &Service{
		repo:      repo,
		revoker:   revoker,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

type SignUpRequest struct {
	FullName        string `json:"full_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Claims are carried by every access token.
type Claims struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.StandardClaims
}

func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	if err := apperr.Validate(req); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	fullName := req.FullName
	user := &models.User{
		Email:    strings.ToLower(req.Email),
		Password: string(hashedPassword),
		FullName: &fullName,
		Role:     models.RoleStudent,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return nil, apperr.Duplicate("an account with this email already exists")
		}
		return nil, err
	}
	glog.Infof("registered user %s", user.ID)
	return user, nil
}

// SignIn returns a signed access token.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (string, error) {
	if err := apperr.Validate(req); err != nil {
		return "", err
	}
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		glog.V(2).Infof("sign-in lookup failed: %v", err)
		return "", errors.Wrap(apperr.ErrUnauthorized, "invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", errors.Wrap(apperr.ErrUnauthorized, "invalid credentials")
	}

	now := s.now()
	claims := Claims{
		UserID: user.ID.String(),
		Role:   user.Role,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(tokenTTL).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ParseToken validates signature, expiry and revocation.
func (s *Service) ParseToken(ctx context.Context, raw string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.Wrap(apperr.ErrUnauthorized, "invalid token")
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, errors.Wrap(apperr.ErrUnauthorized, "invalid user id in token")
	}
	if s.revoker != nil && claims.Id != "" {
		revoked, err := s.revoker.IsTokenRevoked(ctx, claims.Id)
		if err != nil {
			glog.Warningf("error checking token revocation: %v", err)
		}
		if revoked {
			return nil, errors.Wrap(apperr.ErrUnauthorized, "token signed out")
		}
	}
	return &claims, nil
}

func (s *Service) Session(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}
	return user.ToProfile(), nil
}

func (s *Service) Role(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// SignOut revokes the token for the rest of its lifetime.
func (s *Service) SignOut(ctx context.Context, claims *Claims) error {
	if s.revoker == nil || claims.Id == "" {
		return nil
	}
	ttl := time.Unix(claims.ExpiresAt, 0).Sub(s.now())
	return s.revoker.RevokeToken(ctx, claims.Id, ttl)
}
