// Package ephemeris turns the fixed-column text tables returned by the JPL
// Horizons service into typed records.
//
// Two record kinds are supported. State vectors span four physical lines per
// record and orbital elements span five. Both are bounded by the $$SOE and
// $$EOE sentinel lines. Records can be read lazily with the line-driven state
// machines (ParseStateVectors, ParseOrbitalElements) or, for orbital elements,
// all at once with the grammar-driven ParseElementsDocument, which reports
// every syntax error it finds instead of stopping at the first one.
package ephemeris

import "time"

// Sentinel lines bounding the data block of a Horizons response.
const (
	StartOfEphemeris = "$$SOE"
	EndOfEphemeris   = "$$EOE"
)

// fieldWidth is the column width of every numeric field after its label.
const fieldWidth = 22

// Kind identifies which record type a response carries.
type Kind string

const (
	KindUnknown  Kind = ""
	KindVectors  Kind = "vectors"
	KindElements Kind = "elements"
)

// StateVector is the position (km) and velocity (km/s) of a body relative to
// the coordinate center of the request.
//
// The light-time, range and range-rate line that follows every record is
// consumed but not surfaced.
type StateVector struct {
	// Time is the epoch of the record in UTC, truncated to whole seconds.
	Time time.Time `json:"time" yaml:"time"`
	// Position is [x, y, z] in km.
	Position [3]float32 `json:"position" yaml:"position"`
	// Velocity is [vx, vy, vz] in km/s.
	Velocity [3]float32 `json:"velocity" yaml:"velocity"`
}

// OrbitalElements is one osculating Keplerian element set. Distances are in
// km, angles in degrees, rates in degrees/s and periods in seconds.
//
//	EC  eccentricity                  OM  longitude of ascending node
//	QR  periapsis distance            W   argument of perifocus
//	IN  inclination (X-Y plane)       Tp  time of periapsis (Julian day)
//	N   mean motion                   A   semi-major axis
//	MA  mean anomaly                  AD  apoapsis distance
//	TA  true anomaly                  PR  sidereal orbit period
type OrbitalElements struct {
	Time time.Time `json:"time" yaml:"time"`

	Eccentricity      float32 `json:"eccentricity" yaml:"eccentricity"`
	PeriapsisDistance float32 `json:"periapsis_distance" yaml:"periapsis_distance"`
	Inclination       float32 `json:"inclination" yaml:"inclination"`

	LongitudeOfAscendingNode float32 `json:"longitude_of_ascending_node" yaml:"longitude_of_ascending_node"`
	ArgumentOfPerifocus      float32 `json:"argument_of_perifocus" yaml:"argument_of_perifocus"`
	TimeOfPeriapsis          float32 `json:"time_of_periapsis" yaml:"time_of_periapsis"`

	MeanMotion  float32 `json:"mean_motion" yaml:"mean_motion"`
	MeanAnomaly float32 `json:"mean_anomaly" yaml:"mean_anomaly"`
	TrueAnomaly float32 `json:"true_anomaly" yaml:"true_anomaly"`

	SemiMajorAxis       float32 `json:"semi_major_axis" yaml:"semi_major_axis"`
	ApoapsisDistance    float32 `json:"apoapsis_distance" yaml:"apoapsis_distance"`
	SiderealOrbitPeriod float32 `json:"sidereal_orbit_period" yaml:"sidereal_orbit_period"`
}
