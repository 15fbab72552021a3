package horizons

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// timeLayout is how START_TIME and STOP_TIME are sent.
const timeLayout = "2006-01-02 15:04:05"

// EphemerisType selects the table Horizons generates.
type EphemerisType string

const (
	Observer EphemerisType = "OBSERVER"
	Vectors  EphemerisType = "VECTORS"
	Elements EphemerisType = "ELEMENTS"
)

// RefPlane is the reference plane of vector and element tables.
type RefPlane string

const (
	Ecliptic    RefPlane = "ECLIPTIC"
	Frame       RefPlane = "FRAME"
	BodyEquator RefPlane = "BODY EQUATOR"
)

// StepUnit is the unit of a StepSize.
type StepUnit string

const (
	Days     StepUnit = "d"
	Hours    StepUnit = "h"
	Minutes  StepUnit = "m"
	Years    StepUnit = "y"
	Months   StepUnit = "mo"
	Unitless StepUnit = ""
)

// StepSize is the table spacing. A Unitless step splits the time span into
// that many equal intervals.
type StepSize struct {
	N    int
	Unit StepUnit
}

func (s StepSize) String() string {
	if s.Unit == Unitless {
		return strconv.Itoa(s.N)
	}
	return fmt.Sprintf("%d %s", s.N, s.Unit)
}

// ParseStepSize reads "<n> <unit>" or a bare count, e.g. "1 d", "30m", "12".
func ParseStepSize(s string) (StepSize, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n <= 0 {
		return StepSize{}, fmt.Errorf("invalid step size %q", s)
	}
	unit := StepUnit(strings.TrimSpace(s[i:]))
	switch unit {
	case Days, Hours, Minutes, Years, Months, Unitless:
		return StepSize{N: n, Unit: unit}, nil
	}
	return StepSize{}, fmt.Errorf("invalid step size unit %q", unit)
}

// Query is one Horizons API request. The zero value asks for nothing useful;
// start from MajorBodiesQuery, VectorsQuery or ElementsQuery.
type Query struct {
	// Command is "MB", a body id or a name search.
	Command    string
	Type       EphemerisType
	Center     int
	Start      time.Time
	Stop       time.Time
	Step       StepSize
	RefPlane   RefPlane
	OutUnits   string
	Quantities []string
	ObjData    bool
	MakeEphem  bool
}

// MajorBodiesQuery lists every major body with its id.
func MajorBodiesQuery() Query {
	return Query{Command: "MB"}
}

// VectorsQuery asks for state vectors of body relative to center.
func VectorsQuery(body, center int, start, stop time.Time, step StepSize) Query {
	return Query{
		Command:   strconv.Itoa(body),
		Type:      Vectors,
		Center:    center,
		Start:     start,
		Stop:      stop,
		Step:      step,
		RefPlane:  Ecliptic,
		OutUnits:  "KM-S",
		ObjData:   true,
		MakeEphem: true,
	}
}

// ElementsQuery asks for osculating orbital elements of body around center.
func ElementsQuery(body, center int, start, stop time.Time, step StepSize) Query {
	q := VectorsQuery(body, center, start, stop, step)
	q.Type = Elements
	return q
}

// Params maps the query onto request parameters. The response is always
// requested as plain text.
func (q Query) Params() url.Values {
	v := url.Values{}
	v.Set("format", "text")
	if q.Command != "" {
		v.Set("COMMAND", quoteCommand(q.Command))
	}
	if q.Type == "" {
		return v
	}
	v.Set("OBJ_DATA", yesNo(q.ObjData))
	v.Set("MAKE_EPHEM", yesNo(q.MakeEphem))
	v.Set("EPHEM_TYPE", string(q.Type))
	v.Set("CENTER", fmt.Sprintf("500@%d", q.Center))
	if !q.Start.IsZero() {
		v.Set("START_TIME", q.Start.UTC().Format(timeLayout))
	}
	if !q.Stop.IsZero() {
		v.Set("STOP_TIME", q.Stop.UTC().Format(timeLayout))
	}
	if q.Step.N > 0 {
		v.Set("STEP_SIZE", q.Step.String())
	}
	if q.RefPlane != "" && q.Type != Observer {
		v.Set("REF_PLANE", string(q.RefPlane))
	}
	if q.OutUnits != "" && q.Type != Observer {
		v.Set("OUT_UNITS", q.OutUnits)
	}
	if len(q.Quantities) > 0 {
		v.Set("QUANTITIES", strings.Join(q.Quantities, ","))
	}
	return v
}

// Key identifies the request for caching. Encode sorts by parameter name.
func (q Query) Key() string {
	return q.Params().Encode()
}

// Horizons wants multi-word commands in single quotes.
func quoteCommand(c string) string {
	if strings.ContainsAny(c, " ") && !strings.HasPrefix(c, "'") {
		return "'" + c + "'"
	}
	return c
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
