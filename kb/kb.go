package kb

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/signalsfoundry/orbiter/core"
	"github.com/signalsfoundry/orbiter/model"
)

var (
	ErrBodyExists   = errors.New("body already exists")
	ErrBodyNotFound = errors.New("body not found")
	ErrBodyInvalid  = errors.New("invalid body")
)

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventBodyAdded EventType = iota
	EventBodyRemoved
)

func (t EventType) String() string {
	if t == EventBodyRemoved {
		return "removed"
	}
	return "added"
}

// Event is emitted to subscribers when the catalog changes.
type Event struct {
	Type EventType
	Body model.Body
}

// Catalog is an in-memory, thread-safe store of orbit presets keyed by a
// case-insensitive ID.
type Catalog struct {
	mu sync.RWMutex

	bodies map[string]model.Body
	subs   map[int]func(Event)
	nextID int
}

// NewCatalog constructs an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		bodies: make(map[string]model.Body),
		subs:   make(map[int]func(Event)),
	}
}

// NewSolarSystemCatalog returns a catalog preloaded with SolarSystem.
func NewSolarSystemCatalog() *Catalog {
	c := NewCatalog()
	for _, b := range SolarSystem() {
		// Static data; IDs are unique.
		_ = c.Add(b)
	}
	return c
}

func key(id string) string { return strings.ToLower(strings.TrimSpace(id)) }

// Add stores a new body. It returns an error if the ID is empty, taken, or
// the elements do not describe a closed orbit.
func (c *Catalog) Add(b model.Body) error {
	k := key(b.ID)
	if k == "" {
		return fmt.Errorf("%w: id is required", ErrBodyInvalid)
	}
	el := core.OrbitalElements{SemiMajorAxis: b.SemiMajorAxis, Eccentricity: b.Eccentricity}
	if err := el.Validate(); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrBodyInvalid, b.ID, err)
	}

	c.mu.Lock()
	if _, exists := c.bodies[k]; exists {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrBodyExists, b.ID)
	}
	c.bodies[k] = b
	subs := c.snapshotSubs()
	c.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(Event{Type: EventBodyAdded, Body: b})
	}
	return nil
}

// Remove deletes a body by ID.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	b, ok := c.bodies[key(id)]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrBodyNotFound, id)
	}
	delete(c.bodies, key(id))
	subs := c.snapshotSubs()
	c.mu.Unlock()

	for _, sub := range subs {
		sub(Event{Type: EventBodyRemoved, Body: b})
	}
	return nil
}

// Get returns the body with the given ID.
func (c *Catalog) Get(id string) (model.Body, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bodies[key(id)]
	if !ok {
		return model.Body{}, fmt.Errorf("%w: %q", ErrBodyNotFound, id)
	}
	return b, nil
}

// List returns a snapshot of all bodies ordered by semi-major axis.
func (c *Catalog) List() []model.Body {
	c.mu.RLock()
	res := make([]model.Body, 0, len(c.bodies))
	for _, b := range c.bodies {
		res = append(res, b)
	}
	c.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].SemiMajorAxis != res[j].SemiMajorAxis {
			return res[i].SemiMajorAxis < res[j].SemiMajorAxis
		}
		return res[i].ID < res[j].ID
	})
	return res
}

// Subscribe registers a callback for catalog events. It returns an
// unsubscribe function.
func (c *Catalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Catalog) snapshotSubs() []func(Event) {
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}

// SolarSystem lists J2000 semi-major axes and eccentricities of the planets
// plus a few well-known small bodies.
func SolarSystem() []model.Body {
	planet := func(id, name string, a, e float64, color string) model.Body {
		return model.Body{ID: id, Name: name, Kind: model.BodyKindPlanet, CentralBody: "Sun", SemiMajorAxis: a, Eccentricity: e, Color: color}
	}
	return []model.Body{
		planet("mercury", "Mercury", 0.387, 0.2056, "#B5B5B5"),
		planet("venus", "Venus", 0.723, 0.0068, "#E6C229"),
		planet("earth", "Earth", 1.0, 0.0167, "lightblue"),
		planet("mars", "Mars", 1.524, 0.0934, "#C1440E"),
		planet("jupiter", "Jupiter", 5.203, 0.0484, "#D8CA9D"),
		planet("saturn", "Saturn", 9.537, 0.0539, "#F4D59E"),
		planet("uranus", "Uranus", 19.191, 0.0473, "#D1E7E7"),
		planet("neptune", "Neptune", 30.069, 0.0086, "#5B5DDF"),
		{ID: "pluto", Name: "Pluto", Kind: model.BodyKindDwarfPlanet, CentralBody: "Sun", SemiMajorAxis: 39.482, Eccentricity: 0.2488, Color: "#C2B280"},
		{ID: "ceres", Name: "Ceres", Kind: model.BodyKindDwarfPlanet, CentralBody: "Sun", SemiMajorAxis: 2.767, Eccentricity: 0.0785, Color: "#9E9E9E"},
		{ID: "halley", Name: "1P/Halley", Kind: model.BodyKindComet, CentralBody: "Sun", SemiMajorAxis: 17.834, Eccentricity: 0.96714, Color: "#FFFFFF"},
	}
}
