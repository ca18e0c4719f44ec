package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jackc/pgx/v5/pgconn"

	"dttools/internal/types"
)

func TestPersonaRepository_Create_AssignsID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPersonaRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	p := &types.Persona{ProjectID: "proj_1", Name: "Maria", Occupation: "Nurse"}
	err := repo.Create(context.Background(), p)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
}

func TestPersonaRepository_Create_DBErrorWrapped(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPersonaRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection reset"))

	err := repo.Create(context.Background(), &types.Persona{ProjectID: "proj_1", Name: "Maria"})
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestPersonaRepository_ListByProjectID_NullBio(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPersonaRepository(db)
	ctx := context.Background()

	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	rows := newMockRows(func(dest ...any) error {
		*dest[0].(*string) = "persona_1"
		*dest[1].(*string) = "proj_1"
		*dest[2].(*string) = "Maria"
		*dest[3].(*int) = 34
		*dest[4].(*string) = "Nurse"
		*dest[5].(**string) = nil
		*dest[6].(*[]string) = []string{"Less paperwork"}
		*dest[7].(*[]string) = []string{"Shift handover chaos"}
		*dest[8].(*time.Time) = created
		return nil
	})
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{"proj_1"}).Return(rows, nil)

	personas, err := repo.ListByProjectID(ctx, "proj_1")
	require.NoError(t, err)
	require.Len(t, personas, 1)
	assert.Equal(t, "Maria", personas[0].Name)
	assert.Empty(t, personas[0].Bio)
	assert.Equal(t, []string{"Less paperwork"}, personas[0].Goals)
}

func TestPersonaRepository_CountByProjectID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPersonaRepository(db)
	ctx := context.Background()

	row := &mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*int) = 4
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"proj_1"}).Return(row)

	count, err := repo.CountByProjectID(ctx, "proj_1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
