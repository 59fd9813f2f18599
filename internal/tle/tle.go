// Package tle derives drawable orbital elements for an Earth satellite from a
// two-line element set.
package tle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/orbiter/core"
)

const (
	// MuEarthKm3s2 is the WGS72 gravitational parameter used by SGP4.
	MuEarthKm3s2 = 398600.8
	// KmPerAU is the IAU 2012 astronomical unit.
	KmPerAU = 149597870.7

	secondsPerYear = 365.25 * 86400
)

// ErrInvalidTLE is returned when a TLE cannot be parsed or propagated.
var ErrInvalidTLE = errors.New("invalid TLE")

// Elements is the osculating orbit of a satellite at one instant.
type Elements struct {
	core.OrbitalElements

	SemiMajorAxisKm float64
	Period          time.Duration
	Epoch           time.Time
}

// PeriodYears is the orbital period in Julian years, the unit
// core.WithPeriodYears expects.
func (e Elements) PeriodYears() float64 {
	return e.Period.Seconds() / secondsPerYear
}

// FromTLE propagates the TLE to at and derives the semi-major axis from the
// vis-viva equation and the eccentricity from the eccentricity vector.
func FromTLE(line1, line2 string, at time.Time) (Elements, error) {
	line1, line2 = strings.TrimSpace(line1), strings.TrimSpace(line2)
	if err := validate(line1, line2); err != nil {
		return Elements{}, err
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	at = at.UTC()
	pos, vel := satellite.Propagate(sat, at.Year(), int(at.Month()), at.Day(), at.Hour(), at.Minute(), at.Second())

	el, err := fromStateVector(pos, vel)
	if err != nil {
		return Elements{}, err
	}
	el.Epoch = at
	return el, nil
}

// validate checks what SGP4 parsing assumes: the column layout, matching
// catalog numbers, the mod-10 checksums and numeric element fields.
func validate(line1, line2 string) error {
	if len(line1) < 69 || len(line2) < 69 || line1[0] != '1' || line2[0] != '2' {
		return fmt.Errorf("%w: expected two 69-column lines starting with 1 and 2", ErrInvalidTLE)
	}
	if line1[2:7] != line2[2:7] {
		return fmt.Errorf("%w: catalog numbers %q and %q differ", ErrInvalidTLE, line1[2:7], line2[2:7])
	}
	for i, line := range []string{line1, line2} {
		if got, want := checksum(line), line[68]; got != want {
			return fmt.Errorf("%w: line %d checksum is %c, computed %c", ErrInvalidTLE, i+1, want, got)
		}
	}

	// Each field is rebuilt exactly as satellite.ParseTLE reads it, since
	// the library exits the process on a parse failure.
	ints := []struct {
		name string
		s    string
	}{
		{"catalog number", strings.TrimSpace(line1[2:7])},
		{"epoch year", line1[18:20]},
	}
	for _, f := range ints {
		if _, err := strconv.ParseInt(f.s, 10, 0); err != nil {
			return fmt.Errorf("%w: %s %q is not an integer", ErrInvalidTLE, f.name, f.s)
		}
	}

	floats := []struct {
		name string
		s    string
	}{
		{"epoch day", line1[20:32]},
		{"mean motion derivative", strings.Replace(line1[33:43], " ", "", 2)},
		{"mean motion second derivative", strings.Replace(line1[44:45]+"."+line1[45:50]+"e"+line1[50:52], " ", "", 2)},
		{"drag term", strings.Replace(line1[53:54]+"."+line1[54:59]+"e"+line1[59:61], " ", "", 2)},
		{"inclination", strings.Replace(line2[8:16], " ", "", 2)},
		{"right ascension", strings.Replace(line2[17:25], " ", "", 2)},
		{"eccentricity", "." + line2[26:33]},
		{"argument of perigee", strings.Replace(line2[34:42], " ", "", 2)},
		{"mean anomaly", strings.Replace(line2[43:51], " ", "", 2)},
		{"mean motion", strings.Replace(line2[52:63], " ", "", 2)},
	}
	for _, f := range floats {
		if _, err := strconv.ParseFloat(f.s, 64); err != nil {
			return fmt.Errorf("%w: %s %q is not a number", ErrInvalidTLE, f.name, f.s)
		}
	}
	return nil
}

// checksum sums the digits of the first 68 columns, counting '-' as 1.
func checksum(line string) byte {
	sum := 0
	for _, c := range line[:68] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return byte('0' + sum%10)
}

func fromStateVector(pos, vel satellite.Vector3) (Elements, error) {
	r := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	v2 := vel.X*vel.X + vel.Y*vel.Y + vel.Z*vel.Z
	if math.IsNaN(r) || math.IsNaN(v2) || r == 0 {
		return Elements{}, fmt.Errorf("%w: propagation failed", ErrInvalidTLE)
	}

	energy := v2/2 - MuEarthKm3s2/r
	if energy >= 0 {
		return Elements{}, fmt.Errorf("%w: state vector is not a bound orbit", ErrInvalidTLE)
	}
	aKm := -MuEarthKm3s2 / (2 * energy)

	rv := pos.X*vel.X + pos.Y*vel.Y + pos.Z*vel.Z
	k := v2 - MuEarthKm3s2/r
	ex := (k*pos.X - rv*vel.X) / MuEarthKm3s2
	ey := (k*pos.Y - rv*vel.Y) / MuEarthKm3s2
	ez := (k*pos.Z - rv*vel.Z) / MuEarthKm3s2
	ecc := math.Sqrt(ex*ex + ey*ey + ez*ez)

	periodSec := 2 * math.Pi * math.Sqrt(aKm*aKm*aKm/MuEarthKm3s2)

	el := Elements{
		OrbitalElements: core.OrbitalElements{
			SemiMajorAxis: aKm / KmPerAU,
			Eccentricity:  ecc,
		},
		SemiMajorAxisKm: aKm,
		Period:          time.Duration(periodSec * float64(time.Second)),
	}
	if err := el.Validate(); err != nil {
		return Elements{}, fmt.Errorf("%w: %v", ErrInvalidTLE, err)
	}
	return el, nil
}
