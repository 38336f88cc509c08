package user

import (
	"context"
	"testing"

	"unidata/survey-platform-backend/internal"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Create(ctx context.Context, arg CreateParams) (User, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(User), args.Error(1)
}

func (m *mockQuerier) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}

func (m *mockQuerier) GetByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(User), args.Error(1)
}

func (m *mockQuerier) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func newTestService(q Querier) *Service {
	return &Service{
		logger:  zap.NewNop(),
		queries: q,
		tracer:  noop.NewTracerProvider().Tracer("test"),
	}
}

func TestServiceRegister(t *testing.T) {
	params := CreateParams{
		Email:    "ada@unidata.ng",
		Name:     pgtype.Text{String: "Ada", Valid: true},
		Role:     string(RoleRespondent),
		State:    pgtype.Text{String: "Lagos", Valid: true},
		Gender:   pgtype.Text{String: "Female", Valid: true},
		AgeRange: pgtype.Text{String: "18-24", Valid: true},
	}

	t.Run("creates new profile", func(t *testing.T) {
		q := new(mockQuerier)
		q.On("Create", mock.Anything, params).Return(User{
			ID:       uuid.New(),
			Email:    params.Email,
			Name:     params.Name,
			Role:     params.Role,
			State:    params.State,
			Gender:   params.Gender,
			AgeRange: params.AgeRange,
		}, nil)

		created, err := newTestService(q).Register(context.Background(), params)
		require.NoError(t, err)
		require.Equal(t, "ada@unidata.ng", created.Email)
		require.True(t, created.HasProfile())
		q.AssertExpectations(t)
	})

	t.Run("duplicate email maps to registration error", func(t *testing.T) {
		q := new(mockQuerier)
		q.On("Create", mock.Anything, params).Return(User{}, &pgconn.PgError{
			Code:           "23505",
			ConstraintName: "users_email_key",
		})

		_, err := newTestService(q).Register(context.Background(), params)
		require.ErrorIs(t, err, internal.ErrEmailAlreadyRegistered)
		q.AssertExpectations(t)
	})

	t.Run("rejects unknown role before touching the store", func(t *testing.T) {
		q := new(mockQuerier)
		bad := params
		bad.Role = "moderator"

		_, err := newTestService(q).Register(context.Background(), bad)
		require.ErrorIs(t, err, internal.ErrInvalidRole)
		q.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown state before touching the store", func(t *testing.T) {
		q := new(mockQuerier)
		bad := params
		bad.State = pgtype.Text{String: "Atlantis", Valid: true}

		_, err := newTestService(q).Register(context.Background(), bad)
		require.ErrorIs(t, err, internal.ErrInvalidState)
		q.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestUserHasProfile(t *testing.T) {
	testCases := []struct {
		name string
		user User
		want bool
	}{
		{
			name: "all attributes present",
			user: User{
				State:    pgtype.Text{String: "Kano", Valid: true},
				Gender:   pgtype.Text{String: "Male", Valid: true},
				AgeRange: pgtype.Text{String: "25-34", Valid: true},
			},
			want: true,
		},
		{
			name: "missing state",
			user: User{
				Gender:   pgtype.Text{String: "Male", Valid: true},
				AgeRange: pgtype.Text{String: "25-34", Valid: true},
			},
			want: false,
		},
		{
			name: "empty values do not count",
			user: User{
				State:    pgtype.Text{String: "", Valid: true},
				Gender:   pgtype.Text{String: "Male", Valid: true},
				AgeRange: pgtype.Text{String: "25-34", Valid: true},
			},
			want: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.HasProfile(); got != tc.want {
				t.Errorf("HasProfile() = %v, want %v", got, tc.want)
			}
		})
	}
}
