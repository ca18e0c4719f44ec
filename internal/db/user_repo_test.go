package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dttools/internal/types"
)

// Note: mockDBTX, mockRow, and mockRows are defined in session_repo_test.go.

func scanUserRow(u types.User) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = u.ID
		*dest[1].(*string) = u.Email
		*dest[2].(**string) = nilIfEmpty(u.Name)
		*dest[3].(**string) = nilIfEmpty(u.PasswordHash)
		*dest[4].(*types.UserRole) = u.Role
		*dest[5].(*types.UserStatus) = u.Status
		*dest[6].(**string) = u.SubscriptionPlanID
		*dest[7].(**string) = nilIfEmpty(u.StripeCustomerID)
		*dest[8].(**int) = u.CustomMaxProjects
		*dest[9].(**int) = u.CustomAIChatLimit
		*dest[10].(**int) = u.CustomMaxDoubleDiamondProjects
		*dest[11].(**int) = u.CustomMaxDoubleDiamondExports
		*dest[12].(*time.Time) = u.CreatedAt
		*dest[13].(**time.Time) = u.LastLoginAt
		*dest[14].(**time.Time) = u.DeletedAt
		return nil
	}
}

func TestUserRepository_GetByID_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)
	ctx := context.Background()

	planID := "plan_pro"
	override := 50
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	row := &mockRow{scanFn: scanUserRow(types.User{
		ID:                 "user_123",
		Email:              "test@example.com",
		Name:               "Jane Doe",
		PasswordHash:       "$2a$12$hash",
		Role:               types.RoleUser,
		Status:             types.UserStatusActive,
		SubscriptionPlanID: &planID,
		CustomMaxProjects:  &override,
		CreatedAt:          now,
	})}

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"user_123"}).Return(row)

	user, err := repo.GetByID(ctx, "user_123")
	require.NoError(t, err)
	assert.Equal(t, "user_123", user.ID)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, "Jane Doe", user.Name)
	assert.Equal(t, types.RoleUser, user.Role)
	require.NotNil(t, user.SubscriptionPlanID)
	assert.Equal(t, "plan_pro", *user.SubscriptionPlanID)
	require.NotNil(t, user.CustomMaxProjects)
	assert.Equal(t, 50, *user.CustomMaxProjects)
	db.AssertExpectations(t)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)
	ctx := context.Background()

	row := &mockRow{scanErr: pgx.ErrNoRows}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"user_missing"}).Return(row)

	_, err := repo.GetByID(ctx, "user_missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundUser, appErr.Code)
}

func TestUserRepository_GetByEmail_NotFoundUsesAuthCode(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)
	ctx := context.Background()

	row := &mockRow{scanErr: pgx.ErrNoRows}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"missing@example.com"}).Return(row)

	_, err := repo.GetByEmail(ctx, "missing@example.com")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeAuthUserNotFound, appErr.Code)
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &types.User{
		Email:  "dup@example.com",
		Role:   types.RoleUser,
		Status: types.UserStatusActive,
	})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeConflictEmail, appErr.Code)
}

func TestUserRepository_Create_GeneratesID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	u := &types.User{Email: "new@example.com", Role: types.RoleUser, Status: types.UserStatusActive}
	err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
}

func TestUserRepository_SetPlan_ClearsWithNil(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{(*string)(nil), "user_1"}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := repo.SetPlan(context.Background(), "user_1", nil)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestUserRepository_UpdateOverrides_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	limit := 20
	err := repo.UpdateOverrides(context.Background(), "user_missing", &limit, nil, nil, nil)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundUser, appErr.Code)
}
