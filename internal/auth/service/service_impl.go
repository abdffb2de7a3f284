package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/smallbiznis/jewelbill/internal/auth/domain"
	"github.com/smallbiznis/jewelbill/internal/auth/password"
	"github.com/smallbiznis/jewelbill/internal/clock"
	"github.com/smallbiznis/jewelbill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var validate = validator.New()

const (
	defaultTokenTTL = 24 * time.Hour
	tokenType       = "Bearer"
	subjectPrefix   = "admin:"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Config config.Config
	Clock  clock.Clock
}

type Service struct {
	log          *zap.Logger
	clock        clock.Clock
	secret       []byte
	issuer       string
	ttl          time.Duration
	adminEmail   string
	adminName    string
	passwordHash string
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func New(p Params) (domain.Service, error) {
	log := p.Log.Named("auth.service")

	secret := []byte(strings.TrimSpace(p.Config.AuthJWTSecret))
	if len(secret) == 0 {
		if p.Config.IsProduction() {
			return nil, fmt.Errorf("AUTH_JWT_SECRET: %w", domain.ErrAuthNotConfigured)
		}
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		log.Warn("AUTH_JWT_SECRET not set, tokens will not survive a restart")
	}

	ttl := p.Config.AuthTokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &Service{
		log:          log,
		clock:        p.Clock,
		secret:       secret,
		issuer:       p.Config.AppName,
		ttl:          ttl,
		adminEmail:   strings.ToLower(strings.TrimSpace(p.Config.AdminEmail)),
		adminName:    strings.TrimSpace(p.Config.AdminName),
		passwordHash: strings.TrimSpace(p.Config.AdminPasswordHash),
	}, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	if s.passwordHash == "" || s.adminEmail == "" {
		return nil, domain.ErrAuthNotConfigured
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.adminEmail)) == 1
	passwordOK := password.Verify(req.Password, s.passwordHash)
	if !emailOK || !passwordOK {
		s.log.Info("auth.login.rejected", zap.String("email", email))
		return nil, domain.ErrInvalidCredentials
	}

	now := s.clock.Now().UTC()
	principal := &domain.Principal{
		Subject:   subjectPrefix + email,
		Email:     email,
		Name:      s.adminName,
		Role:      domain.RoleAdmin,
		ExpiresAt: now.Add(s.ttl).Truncate(time.Second),
	}
	token, err := s.sign(principal, now)
	if err != nil {
		return nil, err
	}

	s.log.Info("auth.login.succeeded", zap.String("subject", principal.Subject))
	return &domain.LoginResult{
		Token:     token,
		TokenType: tokenType,
		ExpiresAt: principal.ExpiresAt,
		Principal: principal,
	}, nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Principal, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, domain.ErrMissingToken
	}

	parsed := &claims{}
	_, err := jwt.ParseWithClaims(rawToken, parsed, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	// expiry is checked against the injected clock, not wall time
	now := s.clock.Now().UTC()
	if !parsed.VerifyExpiresAt(now, true) {
		return nil, domain.ErrTokenExpired
	}
	if !parsed.VerifyIssuer(s.issuer, s.issuer != "") {
		return nil, domain.ErrInvalidToken
	}
	if strings.TrimSpace(parsed.Role) == "" || strings.TrimSpace(parsed.Subject) == "" {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Principal{
		Subject:   parsed.Subject,
		Email:     parsed.Email,
		Name:      parsed.Name,
		Role:      parsed.Role,
		ExpiresAt: parsed.ExpiresAt.Time,
	}, nil
}

func (s *Service) sign(p *domain.Principal, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: p.Email,
		Name:  p.Name,
		Role:  p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", errors.New("empty email")
	}
	if err := validate.Var(raw, "email"); err != nil {
		return "", err
	}
	return raw, nil
}
