package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// SeriesResult is one stored series of a body.
type SeriesResult struct {
	Kind    string
	Center  int
	Records int
}

// SeriesOf lists the series stored for body.
func (c *Catalog) SeriesOf(ctx context.Context, body int) ([]SeriesResult, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (:Body {id: $id})-[:HAS_SERIES]->(s:Series)-[:RELATIVE_TO]->(c:Body)
		RETURN s.kind AS kind, c.id AS center, s.records AS records
		ORDER BY kind, center
	`, map[string]any{"id": int64(body)})
	if err != nil {
		return nil, fmt.Errorf("query series of %d: %w", body, err)
	}

	var out []SeriesResult
	for result.Next(ctx) {
		record := result.Record()
		kind, _ := record.Get("kind")
		center, _ := record.Get("center")
		records, _ := record.Get("records")

		out = append(out, SeriesResult{
			Kind:    fmt.Sprintf("%v", kind),
			Center:  asInt(center),
			Records: asInt(records),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read series of %d: %w", body, err)
	}

	log.Debug().Int("body", body).Int("series", len(out)).Msg("Catalog query complete")
	return out, nil
}

// BodyNames returns the catalog as an id → name lookup.
func (c *Catalog) BodyNames(ctx context.Context) (map[int]string, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (b:Body)
		WHERE b.name IS NOT NULL
		RETURN b.id AS id, b.name AS name
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("get body names: %w", err)
	}

	names := make(map[int]string)
	for result.Next(ctx) {
		record := result.Record()
		id, _ := record.Get("id")
		name, _ := record.Get("name")
		names[asInt(id)] = fmt.Sprintf("%v", name)
	}

	log.Info().Int("count", len(names)).Msg("Loaded body names from catalog")
	return names, nil
}

// Neo4j returns integers as int64.
func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
