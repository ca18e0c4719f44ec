package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dttools/internal/types"
)

// Note: mockDBTX, mockRow, and mockRows are defined in session_repo_test.go.

func TestDoubleDiamondRepository_Create_DefaultsPhase(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDoubleDiamondRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	p := &types.DoubleDiamondProject{UserID: "user_1", Name: "Service redesign"}
	err := repo.Create(context.Background(), p)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, types.PhaseDiscover, p.Phase)
}

func TestDoubleDiamondRepository_CountByUserID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDoubleDiamondRepository(db)
	ctx := context.Background()

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*int) = 3
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"user_1"}).Return(row)

	count, err := repo.CountByUserID(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDoubleDiamondRepository_SumExportsByUserID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDoubleDiamondRepository(db)
	ctx := context.Background()

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*int) = 7
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"user_1"}).Return(row)

	total, err := repo.SumExportsByUserID(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 7, total)
}

func TestDoubleDiamondRepository_IncrementExportCount_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDoubleDiamondRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.IncrementExportCount(context.Background(), "dd_missing", "user_1")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundProject, appErr.Code)
}

func TestDoubleDiamondRepository_UpdatePhase_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDoubleDiamondRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"),
		[]any{types.PhaseDeliver, "dd_1", "user_1"}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := repo.UpdatePhase(context.Background(), "dd_1", "user_1", types.PhaseDeliver)
	require.NoError(t, err)
	db.AssertExpectations(t)
}
