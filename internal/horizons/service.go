package horizons

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"horizons/internal/ephemeris"
)

// ResponseCache stores raw response text by query key.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Put(ctx context.Context, key, text string) error
}

// Service fetches and parses ephemerides.
type Service struct {
	client *Client
	cache  ResponseCache
	center int
	step   StepSize
}

// NewService creates a service. center is the body id positions are given
// relative to; cache may be nil.
func NewService(client *Client, cache ResponseCache, center int) *Service {
	return &Service{
		client: client,
		cache:  cache,
		center: center,
		step:   StepSize{N: 1, Unit: Hours},
	}
}

// WithStep returns a copy of s that requests tables at the given spacing.
func (s *Service) WithStep(step StepSize) *Service {
	c := *s
	c.step = step
	return &c
}

// WithCenter returns a copy of s relative to another center body.
func (s *Service) WithCenter(center int) *Service {
	c := *s
	c.center = center
	return &c
}

// Fetch returns the response text of q, from the cache when possible.
func (s *Service) Fetch(ctx context.Context, q Query) (string, error) {
	key := q.Key()
	if s.cache != nil {
		if text, ok := s.cache.Get(ctx, key); ok {
			log.Debug().Str("command", q.Command).Msg("Horizons response served from cache")
			return text, nil
		}
	}

	text, err := s.client.Text(ctx, q)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, text); err != nil {
			log.Warn().Err(err).Msg("Failed to cache Horizons response")
		}
	}
	return text, nil
}

// StateVectors fetches the state vectors of body between start and stop.
func (s *Service) StateVectors(ctx context.Context, body int, start, stop time.Time) ([]ephemeris.StateVector, error) {
	text, err := s.Fetch(ctx, VectorsQuery(body, s.center, start, stop, s.step))
	if err != nil {
		return nil, err
	}
	records, err := ephemeris.Collect(ephemeris.ParseStateVectors(ephemeris.Lines(text)))
	if err != nil {
		return nil, fmt.Errorf("parse vectors of body %d: %w", body, err)
	}
	log.Info().Int("body", body).Int("records", len(records)).Msg("Fetched state vectors")
	return records, nil
}

// OrbitalElements fetches the orbital elements of body between start and stop.
func (s *Service) OrbitalElements(ctx context.Context, body int, start, stop time.Time) ([]ephemeris.OrbitalElements, error) {
	text, err := s.Fetch(ctx, ElementsQuery(body, s.center, start, stop, s.step))
	if err != nil {
		return nil, err
	}
	records, err := ephemeris.Collect(ephemeris.ParseOrbitalElements(ephemeris.Lines(text)))
	if err != nil {
		return nil, fmt.Errorf("parse elements of body %d: %w", body, err)
	}
	log.Info().Int("body", body).Int("records", len(records)).Msg("Fetched orbital elements")
	return records, nil
}

// MajorBodies fetches the list of major bodies.
func (s *Service) MajorBodies(ctx context.Context) ([]MajorBody, error) {
	text, err := s.Fetch(ctx, MajorBodiesQuery())
	if err != nil {
		return nil, err
	}
	bodies := ParseMajorBodies(ephemeris.Lines(text))
	log.Info().Int("bodies", len(bodies)).Msg("Fetched major bodies")
	return bodies, nil
}
