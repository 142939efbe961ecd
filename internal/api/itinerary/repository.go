package itinerary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository persists parse results onto trip records.
type Repository interface {
	SaveTripMapData(ctx context.Context, tripID uuid.UUID, mapData []byte) error
	GetTripMapData(ctx context.Context, tripID uuid.UUID) ([]byte, error)
}

// PGXPool is the subset of pgxpool.Pool the repository uses; pgxmock
// satisfies it in tests.
type PGXPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewRepositoryImpl(pgpool PGXPool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

// SaveTripMapData stores the serialized parse response on the trip row.
func (r *RepositoryImpl) SaveTripMapData(ctx context.Context, tripID uuid.UUID, mapData []byte) error {
	ctx, span := otel.Tracer("ItineraryRepo").Start(ctx, "SaveTripMapData", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "trips"),
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()

	query := `
        UPDATE trips
        SET map_data = $1, updated_at = now()
        WHERE id = $2
    `

	tag, err := r.pgpool.Exec(ctx, query, mapData, tripID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update trip map data")
		return fmt.Errorf("failed to update trip map data: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Trip not found for map data storage", slog.String("tripID", tripID.String()))
		return fmt.Errorf("trip %s not found", tripID)
	}

	span.SetStatus(codes.Ok, "Trip map data saved")
	return nil
}

// GetTripMapData returns the stored parse response for a trip, or nil when
// none has been saved yet.
func (r *RepositoryImpl) GetTripMapData(ctx context.Context, tripID uuid.UUID) ([]byte, error) {
	ctx, span := otel.Tracer("ItineraryRepo").Start(ctx, "GetTripMapData", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "trips"),
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()

	query := `SELECT map_data FROM trips WHERE id = $1`

	var mapData []byte
	err := r.pgpool.QueryRow(ctx, query, tripID).Scan(&mapData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("trip %s not found", tripID)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch trip map data")
		return nil, fmt.Errorf("failed to fetch trip map data: %w", err)
	}

	span.SetStatus(codes.Ok, "Trip map data fetched")
	return mapData, nil
}
