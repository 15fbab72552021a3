package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"horizons/internal/ephemeris"
)

type batchResults struct {
	remaining int
	failAt    int
	calls     int
}

func (b *batchResults) Exec() (pgconn.CommandTag, error) {
	b.calls++
	if b.failAt > 0 && b.calls == b.failAt {
		return pgconn.CommandTag{}, errors.New("duplicate key")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}
func (b *batchResults) Query() (pgx.Rows, error) { return nil, errors.New("unused") }
func (b *batchResults) QueryRow() pgx.Row        { return nil }
func (b *batchResults) Close() error             { return nil }

// rows replays canned values into Scan destinations.
type rows struct {
	values [][]any
	i      int
}

func (r *rows) Close()                                       {}
func (r *rows) Err() error                                   { return nil }
func (r *rows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *rows) Values() ([]any, error)                       { return r.values[r.i-1], nil }
func (r *rows) RawValues() [][]byte                          { return nil }
func (r *rows) Conn() *pgx.Conn                              { return nil }

func (r *rows) Next() bool {
	r.i++
	return r.i <= len(r.values)
}

func (r *rows) Scan(dest ...any) error {
	for i, v := range r.values[r.i-1] {
		switch d := dest[i].(type) {
		case *time.Time:
			*d = v.(time.Time)
		case *pgvector.Vector:
			*d = v.(pgvector.Vector)
		case *float64:
			*d = v.(float64)
		case *float32:
			*d = v.(float32)
		default:
			return errors.New("unexpected destination")
		}
	}
	return nil
}

type fakeDB struct {
	execs   []string
	batches []*pgx.Batch
	results *batchResults
	rows    *rows
	queries []string
}

func (db *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (db *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	db.queries = append(db.queries, sql)
	return db.rows, nil
}

func (db *fakeDB) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	db.batches = append(db.batches, b)
	if db.results == nil {
		return &batchResults{}
	}
	return db.results
}

var epoch = time.Date(2022, time.August, 13, 19, 55, 56, 0, time.UTC)

func sampleVectors(n int) []ephemeris.StateVector {
	out := make([]ephemeris.StateVector, n)
	for i := range out {
		out[i] = ephemeris.StateVector{
			Time:     epoch.Add(time.Duration(i) * time.Hour),
			Position: [3]float32{float32(i), 2, 3},
			Velocity: [3]float32{-0.5, 0.25, 0},
		}
	}
	return out
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, New(db).EnsureSchema(context.Background()))
	require.Len(t, db.execs, 3)
	assert.Contains(t, db.execs[0], "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, db.execs[1], "position vector(3)")
}

func TestSaveStateVectorsBatches(t *testing.T) {
	db := &fakeDB{}
	n, err := New(db).SaveStateVectors(context.Background(), Series{Target: -125544, Center: 399}, sampleVectors(batchSize+3))
	require.NoError(t, err)
	assert.Equal(t, batchSize+3, n)

	require.Len(t, db.batches, 2)
	assert.Equal(t, batchSize, db.batches[0].Len())
	assert.Equal(t, 3, db.batches[1].Len())

	q := db.batches[1].QueuedQueries[0]
	assert.Contains(t, q.SQL, "INSERT INTO state_vectors")
	assert.Equal(t, -125544, q.Arguments[0])
	assert.Equal(t, pgvector.NewVector([]float32{float32(batchSize), 2, 3}), q.Arguments[3])
}

func TestSaveOrbitalElementsStopsOnError(t *testing.T) {
	db := &fakeDB{results: &batchResults{failAt: 2}}
	records := []ephemeris.OrbitalElements{{Time: epoch}, {Time: epoch.Add(time.Hour)}, {Time: epoch.Add(2 * time.Hour)}}

	n, err := New(db).SaveOrbitalElements(context.Background(), Series{Target: 399, Center: 10}, records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "399@10")
	assert.Equal(t, 1, n)
	assert.Len(t, db.batches[0].QueuedQueries[0].Arguments, 15)
}

func TestStateVectorsScan(t *testing.T) {
	db := &fakeDB{rows: &rows{values: [][]any{
		{epoch, pgvector.NewVector([]float32{1, 2, 3}), pgvector.NewVector([]float32{4, 5, 6})},
	}}}
	got, err := New(db).StateVectors(context.Background(), Series{Target: 399, Center: 10})
	require.NoError(t, err)
	assert.Equal(t, []ephemeris.StateVector{{
		Time:     epoch,
		Position: [3]float32{1, 2, 3},
		Velocity: [3]float32{4, 5, 6},
	}}, got)
}

func TestNearestStates(t *testing.T) {
	db := &fakeDB{rows: &rows{values: [][]any{
		{epoch, pgvector.NewVector([]float32{1, 2, 3}), pgvector.NewVector([]float32{0, 0, 0}), 0.5},
		{epoch.Add(time.Hour), pgvector.NewVector([]float32{9, 9, 9}), pgvector.NewVector([]float32{0, 0, 0}), 12.0},
	}}}
	got, err := New(db).NearestStates(context.Background(), Series{Target: 399, Center: 10}, [3]float32{1, 2, 3.5}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0.5, got[0].Distance)
	assert.Equal(t, [3]float32{9, 9, 9}, got[1].Position)
	assert.Contains(t, db.queries[0], "ORDER BY position <-> $3")
}

func TestWriteVectorsTSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVectorsTSV(&buf, sampleVectors(2)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "time\tx\ty\tz\tvx\tvy\tvz", lines[0])
	assert.Equal(t, "2022-08-13T20:55:56Z\t1\t2\t3\t-0.5\t0.25\t0", lines[2])
}

func TestWriteElementsTSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteElementsTSV(&buf, []ephemeris.OrbitalElements{{
		Time:         epoch.Add(250 * time.Millisecond),
		Eccentricity: 0.0171,
	}}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, strings.Split(lines[0], "\t"), 13)
	assert.True(t, strings.HasPrefix(lines[1], "2022-08-13T19:55:56.25Z\t0.0171\t0\t"))
}

func TestExportJSON(t *testing.T) {
	db := &fakeDB{rows: &rows{values: [][]any{
		{epoch, pgvector.NewVector([]float32{1, 2, 3}), pgvector.NewVector([]float32{4, 5, 6})},
	}}}
	path := filepath.Join(t.TempDir(), "iss.json")
	require.NoError(t, New(db).ExportJSON(context.Background(), Series{Target: -125544, Center: 399}, ephemeris.KindVectors, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []ephemeris.StateVector
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, [3]float32{4, 5, 6}, got[0].Velocity)
}

func TestExportUnknownKind(t *testing.T) {
	err := New(&fakeDB{}).ExportTSV(context.Background(), Series{}, ephemeris.KindUnknown, filepath.Join(t.TempDir(), "x.tsv"))
	assert.Error(t, err)
}
