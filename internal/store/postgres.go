package store

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"

	"github.com/Greeshmanth1/daw/internal/models"
)

// PostgresStore persists rides in the rides table. The conditional update is
// a single UPDATE guarded by the current status column, so the database row
// lock is the compare-and-swap.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Insert(ctx context.Context, r *models.Ride) error {
	var dropLat, dropLon *float64
	if r.Drop != nil {
		dropLat, dropLon = &r.Drop.Lat, &r.Drop.Lon
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rides (id, rider_id, driver_id, pickup_lat, pickup_long,
		                   drop_lat, drop_long, status, fare, payment_status,
		                   created_at, start_time, end_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		r.ID, r.RiderID, r.DriverID, r.Pickup.Lat, r.Pickup.Lon,
		dropLat, dropLon, string(r.Status), r.Fare, string(r.PaymentStatus),
		r.CreatedAt, r.StartTime, r.EndTime)
	return err
}

func (p *PostgresStore) GetByID(ctx context.Context, id string) (*models.Ride, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, rider_id, driver_id, pickup_lat, pickup_long,
		       drop_lat, drop_long, status, fare, payment_status,
		       created_at, start_time, end_time
		FROM rides WHERE id = $1`, id)
	return scanRide(row)
}

func (p *PostgresStore) ConditionalUpdate(ctx context.Context, id string, expected models.RideStatus, upd Update) (*models.Ride, error) {
	var dropLat, dropLon *float64
	if upd.Drop != nil {
		dropLat, dropLon = &upd.Drop.Lat, &upd.Drop.Lon
	}
	row := p.db.QueryRowContext(ctx, `
		UPDATE rides
		SET status         = $1,
		    fare           = COALESCE($2, fare),
		    payment_status = COALESCE($3, payment_status),
		    start_time     = COALESCE($4, start_time),
		    end_time       = COALESCE($5, end_time),
		    drop_lat       = COALESCE($6, drop_lat),
		    drop_long      = COALESCE($7, drop_long)
		WHERE id = $8 AND status = $9
		RETURNING id, rider_id, driver_id, pickup_lat, pickup_long,
		          drop_lat, drop_long, status, fare, payment_status,
		          created_at, start_time, end_time`,
		string(upd.Status), upd.Fare, paymentStatusArg(upd.PaymentStatus),
		upd.StartTime, upd.EndTime, dropLat, dropLon,
		id, string(expected))
	r, err := scanRide(row)
	if errors.Is(err, ErrNotFound) {
		// zero rows: the id may not exist at all, or the status guard failed
		if _, getErr := p.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrConflict
	}
	return r, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*models.Ride, error) {
	var r models.Ride
	var driverID sql.NullString
	var dropLat, dropLon sql.NullFloat64
	var startTime, endTime sql.NullTime
	err := row.Scan(&r.ID, &r.RiderID, &driverID, &r.Pickup.Lat, &r.Pickup.Lon,
		&dropLat, &dropLon, &r.Status, &r.Fare, &r.PaymentStatus,
		&r.CreatedAt, &startTime, &endTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if driverID.Valid {
		r.DriverID = driverID.String
	}
	if dropLat.Valid && dropLon.Valid {
		r.Drop = &models.Coord{Lat: dropLat.Float64, Lon: dropLon.Float64}
	}
	if startTime.Valid {
		t := startTime.Time
		r.StartTime = &t
	}
	if endTime.Valid {
		t := endTime.Time
		r.EndTime = &t
	}
	return &r, nil
}

func paymentStatusArg(ps *models.PaymentStatus) *string {
	if ps == nil {
		return nil
	}
	s := string(*ps)
	return &s
}

func (p *PostgresStore) Close() error { return p.db.Close() }
