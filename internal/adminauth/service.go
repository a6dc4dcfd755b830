package adminauth

import (
	"context"
	"fmt"
	"time"

	"github.com/printly/printly-backend/pkg/config"
	pkgerrors "github.com/printly/printly-backend/pkg/errors"
	"github.com/printly/printly-backend/pkg/logger"
	"github.com/printly/printly-backend/pkg/security"
	"github.com/golang-jwt/jwt/v5"
)

const adminScope = "admin"

// Session is the capability grant returned by a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type capabilityClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Service gates the admin surface. A correct passcode yields a short-lived
// signed capability token; every admin request presents it.
type Service interface {
	Login(ctx context.Context, passcode string) (*Session, error)
	Validate(token string) error
}

type service struct {
	cfg  config.AdminConfig
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the admin auth service.
func NewService(cfg config.AdminConfig, logg *logger.Logger) (Service, error) {
	if cfg.PasscodeHash == "" {
		return nil, fmt.Errorf("admin passcode hash required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("admin jwt secret required")
	}
	if cfg.SessionTTL() <= 0 {
		return nil, fmt.Errorf("admin session ttl must be positive")
	}
	return &service{cfg: cfg, logg: logg, now: time.Now}, nil
}

func (s *service) Login(ctx context.Context, passcode string) (*Session, error) {
	if passcode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "passcode is required")
	}

	match, err := security.VerifyPasscode(passcode, s.cfg.PasscodeHash)
	if err != nil {
		// A malformed stored hash is an operator mistake, not a bad login.
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "passcode hash unusable")
	}
	if !match {
		if s.logg != nil {
			s.logg.Warn(ctx, "admin login rejected")
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid passcode")
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.cfg.SessionTTL())
	claims := capabilityClaims{
		Scope: adminScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.JWTIssuer,
			Subject:   adminScope,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign capability token")
	}

	if s.logg != nil {
		s.logg.Info(ctx, "admin session issued")
	}
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *service) Validate(token string) error {
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "capability token required")
	}

	claims := &capabilityClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.JWTIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid capability token")
	}
	if claims.Scope != adminScope {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "token lacks admin scope")
	}
	return nil
}
