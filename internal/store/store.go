package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"

	"horizons/internal/ephemeris"
	"horizons/internal/worker"
)

// batchSize bounds the rows sent in one pgx batch.
const batchSize = 500

// DB is the part of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Series identifies the records of one target body relative to one center.
type Series struct {
	Target int `json:"target" yaml:"target"`
	Center int `json:"center" yaml:"center"`
}

func (s Series) String() string { return fmt.Sprintf("%d@%d", s.Target, s.Center) }

// Nearest is a stored state vector and its distance to a search position.
type Nearest struct {
	ephemeris.StateVector `yaml:",inline"`
	Distance              float64 `json:"distance" yaml:"distance"`
}

// Store persists parsed records in PostgreSQL. Positions and velocities are
// pgvector columns so states can be searched by distance.
type Store struct {
	db DB
}

// New creates a store on db.
func New(db DB) *Store {
	return &Store{db: db}
}

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS state_vectors (
		target   INTEGER NOT NULL,
		center   INTEGER NOT NULL,
		epoch    TIMESTAMPTZ NOT NULL,
		position vector(3) NOT NULL,
		velocity vector(3) NOT NULL,
		PRIMARY KEY (target, center, epoch)
	)`,
	`CREATE TABLE IF NOT EXISTS orbital_elements (
		target                      INTEGER NOT NULL,
		center                      INTEGER NOT NULL,
		epoch                       TIMESTAMPTZ NOT NULL,
		eccentricity                REAL NOT NULL,
		periapsis_distance          REAL NOT NULL,
		inclination                 REAL NOT NULL,
		longitude_of_ascending_node REAL NOT NULL,
		argument_of_perifocus       REAL NOT NULL,
		time_of_periapsis           REAL NOT NULL,
		mean_motion                 REAL NOT NULL,
		mean_anomaly                REAL NOT NULL,
		true_anomaly                REAL NOT NULL,
		semi_major_axis             REAL NOT NULL,
		apoapsis_distance           REAL NOT NULL,
		sidereal_orbit_period       REAL NOT NULL,
		PRIMARY KEY (target, center, epoch)
	)`,
}

// EnsureSchema creates the pgvector extension and the record tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	log.Info().Msg("Store schema ensured")
	return nil
}

const upsertStateVector = `
	INSERT INTO state_vectors (target, center, epoch, position, velocity)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (target, center, epoch) DO UPDATE
	SET position = EXCLUDED.position, velocity = EXCLUDED.velocity`

// SaveStateVectors upserts records of series and returns how many rows were
// written.
func (s *Store) SaveStateVectors(ctx context.Context, series Series, records []ephemeris.StateVector) (int, error) {
	written := 0
	for _, chunk := range worker.Batch(records, batchSize) {
		b := &pgx.Batch{}
		for _, r := range chunk {
			b.Queue(upsertStateVector, series.Target, series.Center, r.Time,
				pgvector.NewVector(r.Position[:]), pgvector.NewVector(r.Velocity[:]))
		}
		n, err := s.sendBatch(ctx, b)
		written += n
		if err != nil {
			return written, fmt.Errorf("save state vectors %s: %w", series, err)
		}
	}
	log.Info().Str("series", series.String()).Int("rows", written).Msg("Stored state vectors")
	return written, nil
}

const upsertOrbitalElements = `
	INSERT INTO orbital_elements (
		target, center, epoch,
		eccentricity, periapsis_distance, inclination,
		longitude_of_ascending_node, argument_of_perifocus, time_of_periapsis,
		mean_motion, mean_anomaly, true_anomaly,
		semi_major_axis, apoapsis_distance, sidereal_orbit_period)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (target, center, epoch) DO UPDATE SET
		eccentricity = EXCLUDED.eccentricity,
		periapsis_distance = EXCLUDED.periapsis_distance,
		inclination = EXCLUDED.inclination,
		longitude_of_ascending_node = EXCLUDED.longitude_of_ascending_node,
		argument_of_perifocus = EXCLUDED.argument_of_perifocus,
		time_of_periapsis = EXCLUDED.time_of_periapsis,
		mean_motion = EXCLUDED.mean_motion,
		mean_anomaly = EXCLUDED.mean_anomaly,
		true_anomaly = EXCLUDED.true_anomaly,
		semi_major_axis = EXCLUDED.semi_major_axis,
		apoapsis_distance = EXCLUDED.apoapsis_distance,
		sidereal_orbit_period = EXCLUDED.sidereal_orbit_period`

// SaveOrbitalElements upserts records of series and returns how many rows
// were written.
func (s *Store) SaveOrbitalElements(ctx context.Context, series Series, records []ephemeris.OrbitalElements) (int, error) {
	written := 0
	for _, chunk := range worker.Batch(records, batchSize) {
		b := &pgx.Batch{}
		for _, r := range chunk {
			b.Queue(upsertOrbitalElements, series.Target, series.Center, r.Time,
				r.Eccentricity, r.PeriapsisDistance, r.Inclination,
				r.LongitudeOfAscendingNode, r.ArgumentOfPerifocus, r.TimeOfPeriapsis,
				r.MeanMotion, r.MeanAnomaly, r.TrueAnomaly,
				r.SemiMajorAxis, r.ApoapsisDistance, r.SiderealOrbitPeriod)
		}
		n, err := s.sendBatch(ctx, b)
		written += n
		if err != nil {
			return written, fmt.Errorf("save orbital elements %s: %w", series, err)
		}
	}
	log.Info().Str("series", series.String()).Int("rows", written).Msg("Stored orbital elements")
	return written, nil
}

func (s *Store) sendBatch(ctx context.Context, b *pgx.Batch) (int, error) {
	br := s.db.SendBatch(ctx, b)
	written := 0
	for range b.Len() {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return written, err
		}
		written += int(tag.RowsAffected())
	}
	return written, br.Close()
}

// StateVectors returns the stored states of series in time order.
func (s *Store) StateVectors(ctx context.Context, series Series) ([]ephemeris.StateVector, error) {
	rows, err := s.db.Query(ctx, `
		SELECT epoch, position, velocity FROM state_vectors
		WHERE target = $1 AND center = $2
		ORDER BY epoch
	`, series.Target, series.Center)
	if err != nil {
		return nil, fmt.Errorf("query state vectors: %w", err)
	}
	defer rows.Close()

	var out []ephemeris.StateVector
	for rows.Next() {
		var (
			t        time.Time
			pos, vel pgvector.Vector
		)
		if err := rows.Scan(&t, &pos, &vel); err != nil {
			return nil, fmt.Errorf("scan state vector: %w", err)
		}
		out = append(out, stateVector(t, pos, vel))
	}
	return out, rows.Err()
}

// NearestStates returns the k stored states of series whose position is
// closest to position, nearest first.
func (s *Store) NearestStates(ctx context.Context, series Series, position [3]float32, k int) ([]Nearest, error) {
	rows, err := s.db.Query(ctx, `
		SELECT epoch, position, velocity, position <-> $3 AS distance
		FROM state_vectors
		WHERE target = $1 AND center = $2
		ORDER BY position <-> $3
		LIMIT $4
	`, series.Target, series.Center, pgvector.NewVector(position[:]), k)
	if err != nil {
		return nil, fmt.Errorf("nearest states: %w", err)
	}
	defer rows.Close()

	var out []Nearest
	for rows.Next() {
		var (
			t        time.Time
			pos, vel pgvector.Vector
			distance float64
		)
		if err := rows.Scan(&t, &pos, &vel, &distance); err != nil {
			return nil, fmt.Errorf("scan nearest state: %w", err)
		}
		out = append(out, Nearest{StateVector: stateVector(t, pos, vel), Distance: distance})
	}
	return out, rows.Err()
}

// OrbitalElements returns the stored elements of series in time order.
func (s *Store) OrbitalElements(ctx context.Context, series Series) ([]ephemeris.OrbitalElements, error) {
	rows, err := s.db.Query(ctx, `
		SELECT epoch,
			eccentricity, periapsis_distance, inclination,
			longitude_of_ascending_node, argument_of_perifocus, time_of_periapsis,
			mean_motion, mean_anomaly, true_anomaly,
			semi_major_axis, apoapsis_distance, sidereal_orbit_period
		FROM orbital_elements
		WHERE target = $1 AND center = $2
		ORDER BY epoch
	`, series.Target, series.Center)
	if err != nil {
		return nil, fmt.Errorf("query orbital elements: %w", err)
	}
	defer rows.Close()

	var out []ephemeris.OrbitalElements
	for rows.Next() {
		var r ephemeris.OrbitalElements
		if err := rows.Scan(&r.Time,
			&r.Eccentricity, &r.PeriapsisDistance, &r.Inclination,
			&r.LongitudeOfAscendingNode, &r.ArgumentOfPerifocus, &r.TimeOfPeriapsis,
			&r.MeanMotion, &r.MeanAnomaly, &r.TrueAnomaly,
			&r.SemiMajorAxis, &r.ApoapsisDistance, &r.SiderealOrbitPeriod,
		); err != nil {
			return nil, fmt.Errorf("scan orbital elements: %w", err)
		}
		r.Time = r.Time.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func stateVector(t time.Time, pos, vel pgvector.Vector) ephemeris.StateVector {
	sv := ephemeris.StateVector{Time: t.UTC()}
	copy(sv.Position[:], pos.Slice())
	copy(sv.Velocity[:], vel.Slice())
	return sv
}
