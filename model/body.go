package model

// BodyKind classifies catalog entries.
type BodyKind int

const (
	BodyKindUnknown BodyKind = iota
	BodyKindPlanet
	BodyKindDwarfPlanet
	BodyKindComet
	BodyKindSatellite // TLE-derived Earth orbiter
)

func (k BodyKind) String() string {
	switch k {
	case BodyKindPlanet:
		return "planet"
	case BodyKindDwarfPlanet:
		return "dwarf_planet"
	case BodyKindComet:
		return "comet"
	case BodyKindSatellite:
		return "satellite"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON responses.
func (k BodyKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText accepts the names MarshalText produces. Unrecognised names
// decode as BodyKindUnknown.
func (k *BodyKind) UnmarshalText(text []byte) error {
	*k = BodyKindUnknown
	for _, kind := range []BodyKind{BodyKindPlanet, BodyKindDwarfPlanet, BodyKindComet, BodyKindSatellite} {
		if string(text) == kind.String() {
			*k = kind
		}
	}
	return nil
}

// Body is a named orbit preset.
type Body struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Kind          BodyKind `json:"kind"`
	CentralBody   string   `json:"central_body"`
	SemiMajorAxis float64  `json:"semi_major_axis_au"`
	Eccentricity  float64  `json:"eccentricity"`
	Color         string   `json:"color,omitempty"` // planet fill on the diagram
}
