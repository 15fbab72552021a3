package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"horizons/internal/ephemeris"
)

var (
	vectorHeader   = []string{"time", "x", "y", "z", "vx", "vy", "vz"}
	elementsHeader = []string{
		"time", "eccentricity", "periapsis_distance", "inclination",
		"longitude_of_ascending_node", "argument_of_perifocus", "time_of_periapsis",
		"mean_motion", "mean_anomaly", "true_anomaly",
		"semi_major_axis", "apoapsis_distance", "sidereal_orbit_period",
	}
)

// WriteVectorsTSV writes records as tab-separated values with a header row.
func WriteVectorsTSV(w io.Writer, records []ephemeris.StateVector) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			formatTime(r.Time),
			formatFloat(r.Position[0]), formatFloat(r.Position[1]), formatFloat(r.Position[2]),
			formatFloat(r.Velocity[0]), formatFloat(r.Velocity[1]), formatFloat(r.Velocity[2]),
		})
	}
	return writeTSV(w, vectorHeader, rows)
}

// WriteElementsTSV writes records as tab-separated values with a header row.
func WriteElementsTSV(w io.Writer, records []ephemeris.OrbitalElements) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			formatTime(r.Time),
			formatFloat(r.Eccentricity), formatFloat(r.PeriapsisDistance), formatFloat(r.Inclination),
			formatFloat(r.LongitudeOfAscendingNode), formatFloat(r.ArgumentOfPerifocus), formatFloat(r.TimeOfPeriapsis),
			formatFloat(r.MeanMotion), formatFloat(r.MeanAnomaly), formatFloat(r.TrueAnomaly),
			formatFloat(r.SemiMajorAxis), formatFloat(r.ApoapsisDistance), formatFloat(r.SiderealOrbitPeriod),
		})
	}
	return writeTSV(w, elementsHeader, rows)
}

func writeTSV(w io.Writer, header []string, rows [][]string) error {
	var b strings.Builder
	b.WriteString(strings.Join(header, "\t"))
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// ExportTSV writes every stored record of series and kind to a TSV file.
func (s *Store) ExportTSV(ctx context.Context, series Series, kind ephemeris.Kind, outputPath string) error {
	return s.export(ctx, series, kind, outputPath, "TSV", func(w io.Writer, vectors []ephemeris.StateVector, elements []ephemeris.OrbitalElements) error {
		if kind == ephemeris.KindVectors {
			return WriteVectorsTSV(w, vectors)
		}
		return WriteElementsTSV(w, elements)
	})
}

// ExportJSON writes every stored record of series and kind to a JSON file.
func (s *Store) ExportJSON(ctx context.Context, series Series, kind ephemeris.Kind, outputPath string) error {
	return s.export(ctx, series, kind, outputPath, "JSON", func(w io.Writer, vectors []ephemeris.StateVector, elements []ephemeris.OrbitalElements) error {
		if kind == ephemeris.KindVectors {
			return WriteJSON(w, vectors)
		}
		return WriteJSON(w, elements)
	})
}

type writeFunc func(w io.Writer, vectors []ephemeris.StateVector, elements []ephemeris.OrbitalElements) error

func (s *Store) export(ctx context.Context, series Series, kind ephemeris.Kind, outputPath, format string, write writeFunc) error {
	var (
		vectors  []ephemeris.StateVector
		elements []ephemeris.OrbitalElements
		count    int
		err      error
	)
	switch kind {
	case ephemeris.KindVectors:
		vectors, err = s.StateVectors(ctx, series)
		count = len(vectors)
	case ephemeris.KindElements:
		elements, err = s.OrbitalElements(ctx, series)
		count = len(elements)
	default:
		return fmt.Errorf("export %s: unknown record kind %q", series, kind)
	}
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create %s file: %w", format, err)
	}
	defer f.Close()

	if err := write(f, vectors, elements); err != nil {
		return err
	}

	log.Info().Str("path", outputPath).Str("series", series.String()).Int("records", count).Msgf("Exported series to %s", format)
	return nil
}
