package itinerary

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*RepositoryImpl, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewRepositoryImpl(mockPool, testLogger()), mockPool
}

func TestSaveTripMapData(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	tripID := uuid.New()
	payload := []byte(`{"chatId": "chat-123", "map_data": []}`)

	mockPool.ExpectExec("UPDATE trips").
		WithArgs(payload, tripID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.SaveTripMapData(context.Background(), tripID, payload)
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveTripMapData_TripNotFound(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	tripID := uuid.New()

	mockPool.ExpectExec("UPDATE trips").
		WithArgs([]byte(`{}`), tripID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SaveTripMapData(context.Background(), tripID, []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetTripMapData(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	tripID := uuid.New()
	stored := []byte(`{"chatId": "chat-123"}`)

	mockPool.ExpectQuery("SELECT map_data FROM trips").
		WithArgs(tripID).
		WillReturnRows(pgxmock.NewRows([]string{"map_data"}).AddRow(stored))

	mapData, err := repo.GetTripMapData(context.Background(), tripID)
	require.NoError(t, err)
	assert.Equal(t, stored, mapData)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetTripMapData_NotFound(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	tripID := uuid.New()

	mockPool.ExpectQuery("SELECT map_data FROM trips").
		WithArgs(tripID).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetTripMapData(context.Background(), tripID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
