package adminauth

import (
	"context"
	"testing"
	"time"

	"github.com/printly/printly-backend/pkg/config"
	pkgerrors "github.com/printly/printly-backend/pkg/errors"
	"github.com/printly/printly-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAdminConfig(t *testing.T, passcode string) config.AdminConfig {
	t.Helper()
	cfg := config.AdminConfig{
		JWTSecret:         "test-secret",
		JWTIssuer:         "printly-test",
		SessionTTLMinutes: 60,
		ArgonMemoryKB:     8,
		ArgonTime:         1,
		ArgonParallelism:  1,
		ArgonSaltLen:      8,
		ArgonKeyLen:       16,
	}
	hash, err := security.HashPasscode(passcode, cfg)
	require.NoError(t, err)
	cfg.PasscodeHash = hash
	return cfg
}

func TestLoginIssuesValidSession(t *testing.T) {
	cfg := testAdminConfig(t, "shop-passcode")
	svc, err := NewService(cfg, nil)
	require.NoError(t, err)

	session, err := svc.Login(context.Background(), "shop-passcode")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

	require.NoError(t, svc.Validate(session.Token))
}

func TestLoginRejectsWrongPasscode(t *testing.T) {
	svc, err := NewService(testAdminConfig(t, "correct"), nil)
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "incorrect")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	_, err = svc.Login(context.Background(), "")
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	cfg := testAdminConfig(t, "shop-passcode")
	svc, err := NewService(cfg, nil)
	require.NoError(t, err)

	session, err := svc.Login(context.Background(), "shop-passcode")
	require.NoError(t, err)

	err = svc.Validate(session.Token + "x")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	err = svc.Validate("")
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	cfg := testAdminConfig(t, "shop-passcode")
	svc, err := NewService(cfg, nil)
	require.NoError(t, err)

	otherCfg := cfg
	otherCfg.JWTSecret = "different-secret"
	other, err := NewService(otherCfg, nil)
	require.NoError(t, err)

	session, err := other.Login(context.Background(), "shop-passcode")
	require.NoError(t, err)

	err = svc.Validate(session.Token)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	cfg := testAdminConfig(t, "shop-passcode")
	base, err := NewService(cfg, nil)
	require.NoError(t, err)

	issuer := base.(*service)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	session, err := issuer.Login(context.Background(), "shop-passcode")
	require.NoError(t, err)

	verifier, err := NewService(cfg, nil)
	require.NoError(t, err)
	err = verifier.Validate(session.Token)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}
