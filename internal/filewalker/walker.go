package filewalker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"horizons/internal/ephemeris"
)

// SupportedExtensions lists the file types treated as saved Horizons responses.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".eph":      true,
	".horizons": true,
}

// Walker finds ephemeris files and parses them.
type Walker struct {
	// Kind forces every file to be read as this kind. KindUnknown sniffs
	// each file.
	Kind ephemeris.Kind
	// Elements reads orbital element files.
	Elements ephemeris.ElementsParser
}

// NewWalker creates a Walker that sniffs files and reads elements with the
// streaming parser.
func NewWalker() *Walker {
	return &Walker{Elements: ephemeris.StreamParser{}}
}

// FileEntry is a discovered file ready for processing.
type FileEntry struct {
	Path string
	Ext  string
}

// ParseResult holds the records read from one file. Only the slice matching
// Kind is set.
type ParseResult struct {
	Path     string                      `json:"path" yaml:"path"`
	Kind     ephemeris.Kind              `json:"kind" yaml:"kind"`
	Header   ephemeris.Header            `json:"header" yaml:"header"`
	Vectors  []ephemeris.StateVector     `json:"vectors,omitempty" yaml:"vectors,omitempty"`
	Elements []ephemeris.OrbitalElements `json:"elements,omitempty" yaml:"elements,omitempty"`
}

// Len is the number of records read.
func (r *ParseResult) Len() int {
	return len(r.Vectors) + len(r.Elements)
}

// Walk discovers all supported files under the given root directory, sorted
// by path.
func (w *Walker) Walk(root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []FileEntry

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if SupportedExtensions[ext] {
			entries = append(entries, FileEntry{Path: path, Ext: ext})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	log.Info().Int("count", len(entries)).Str("root", root).Msg("Discovered files")
	return entries, nil
}

// Collect expands paths into file entries. Directories are walked; files are
// taken as given whatever their extension.
func (w *Walker) Collect(paths ...string) ([]FileEntry, error) {
	var entries []FileEntry
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.IsDir() {
			found, err := w.Walk(p)
			if err != nil {
				return nil, err
			}
			entries = append(entries, found...)
			continue
		}
		entries = append(entries, FileEntry{Path: p, Ext: strings.ToLower(filepath.Ext(p))})
	}
	return entries, nil
}

// ParseFile reads a file and decodes its records.
func (w *Walker) ParseFile(entry FileEntry) (*ParseResult, error) {
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Path, err)
	}
	return w.Parse(entry.Path, string(data))
}

// Parse decodes text read from path.
func (w *Walker) Parse(path, text string) (*ParseResult, error) {
	kind := w.Kind
	if kind == ephemeris.KindUnknown {
		kind = ephemeris.Sniff(text)
	}

	result := &ParseResult{Path: path, Kind: kind, Header: ephemeris.ParseHeader(ephemeris.Lines(text))}
	var err error
	switch kind {
	case ephemeris.KindVectors:
		result.Vectors, err = ephemeris.Collect(ephemeris.ParseStateVectors(ephemeris.Lines(text)))
	case ephemeris.KindElements:
		elements := w.Elements
		if elements == nil {
			elements = ephemeris.StreamParser{}
		}
		result.Elements, err = elements.ParseElements(text)
	default:
		return nil, fmt.Errorf("%s: cannot tell record kind", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	log.Debug().Str("path", path).Str("kind", string(kind)).Int("records", result.Len()).Msg("Parsed file")
	return result, nil
}
