package jwt

import (
	"context"
	"testing"
	"time"

	"unidata/survey-platform-backend/internal/user"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

func newTestTokenService(secret string, accessExpiration time.Duration) Service {
	return Service{
		logger:                zap.NewNop(),
		secret:                secret,
		accessTokenExpiration: accessExpiration,
		tracer:                noop.NewTracerProvider().Tracer("test"),
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService("test-secret", time.Hour)

	subject := user.User{
		ID:    uuid.New(),
		Email: "chinedu@unidata.ng",
		Name:  pgtype.Text{String: "Chinedu", Valid: true},
		Role:  string(user.RoleResearcher),
	}

	token, err := svc.New(context.Background(), subject)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := svc.Parse(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	require.Equal(t, subject.ID, parsed.ID)
	require.Equal(t, subject.Email, parsed.Email)
	require.Equal(t, subject.Role, parsed.Role)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	svc := newTestTokenService("test-secret", -time.Minute)

	token, err := svc.New(context.Background(), user.User{ID: uuid.New(), Role: string(user.RoleRespondent)})
	require.NoError(t, err)

	_, err = svc.Parse(context.Background(), token)
	require.ErrorIs(t, err, jwtlib.ErrTokenExpired)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	issuer := newTestTokenService("secret-a", time.Hour)
	verifier := newTestTokenService("secret-b", time.Hour)

	token, err := issuer.New(context.Background(), user.User{ID: uuid.New(), Role: string(user.RoleRespondent)})
	require.NoError(t, err)

	_, err = verifier.Parse(context.Background(), token)
	require.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	svc := newTestTokenService("test-secret", time.Hour)

	_, err := svc.Parse(context.Background(), "not-a-token")
	require.ErrorIs(t, err, jwtlib.ErrTokenMalformed)
}
