package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"

	"horizons/internal/horizons"
)

// SeriesLink records that records of Target relative to Center were stored.
type SeriesLink struct {
	Target  int
	Center  int
	Kind    string
	Start   time.Time
	Stop    time.Time
	Records int
}

// Catalog keeps the body catalog in Neo4j: one Body node per major body and
// (Body)-[:HAS_SERIES]->(Series)-[:RELATIVE_TO]->(Body) for every stored
// series.
type Catalog struct {
	driver neo4j.DriverWithContext
}

// NewCatalog creates a catalog on driver.
func NewCatalog(driver neo4j.DriverWithContext) *Catalog {
	return &Catalog{driver: driver}
}

// EnsureSchema creates constraints on the Neo4j database.
func (c *Catalog) EnsureSchema(ctx context.Context) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (b:Body) REQUIRE b.id IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (s:Series) REQUIRE s.key IS UNIQUE",
	}

	for _, q := range constraints {
		if _, err := session.Run(ctx, q, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Catalog schema ensured")
	return nil
}

// UpsertBodies merges one Body node per major body.
func (c *Catalog) UpsertBodies(ctx context.Context, bodies []horizons.MajorBody) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, b := range bodies {
		_, err := session.Run(ctx, `
			MERGE (b:Body {id: $id})
			SET b.name = $name,
			    b.designation = $designation,
			    b.aliases = $aliases
		`, bodyParams(b))
		if err != nil {
			return fmt.Errorf("upsert body %d: %w", b.ID, err)
		}
	}

	log.Info().Int("bodies", len(bodies)).Msg("Synced body catalog")
	return nil
}

// LinkSeries records a stored series. Bodies missing from the catalog are
// created with only their id.
func (c *Catalog) LinkSeries(ctx context.Context, link SeriesLink) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MERGE (t:Body {id: $target})
		MERGE (c:Body {id: $center})
		MERGE (s:Series {key: $key})
		SET s.kind = $kind,
		    s.start = $start,
		    s.stop = $stop,
		    s.records = $records
		MERGE (t)-[:HAS_SERIES]->(s)
		MERGE (s)-[:RELATIVE_TO]->(c)
	`, seriesParams(link))
	if err != nil {
		return fmt.Errorf("link series %d@%d: %w", link.Target, link.Center, err)
	}
	return nil
}

func bodyParams(b horizons.MajorBody) map[string]any {
	aliases := make([]any, len(b.Aliases))
	for i, a := range b.Aliases {
		aliases[i] = a
	}
	return map[string]any{
		"id":          int64(b.ID),
		"name":        b.Name,
		"designation": b.Designation,
		"aliases":     aliases,
	}
}

func seriesParams(l SeriesLink) map[string]any {
	return map[string]any{
		"target":  int64(l.Target),
		"center":  int64(l.Center),
		"key":     seriesKey(l),
		"kind":    l.Kind,
		"start":   l.Start.UTC(),
		"stop":    l.Stop.UTC(),
		"records": int64(l.Records),
	}
}

func seriesKey(l SeriesLink) string {
	return fmt.Sprintf("%s:%d@%d", l.Kind, l.Target, l.Center)
}
