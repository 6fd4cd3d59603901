package main

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// MobSpawn is a fixed spawn point holding 1..Count mobs of eligible types
type MobSpawn struct {
	X     float64  `yaml:"x"`
	Y     float64  `yaml:"y"`
	Count int      `yaml:"count"`
	Types []string `yaml:"types"`
}

// Layout is the static world description: bounds, walls and spawn points
type Layout struct {
	Name         string     `yaml:"name"`
	HalfSize     float64    `yaml:"half_size"`
	Walls        []Wall     `yaml:"walls"`
	Corridors    []Corridor `yaml:"corridors"`
	PlayerSpawns []Vec2     `yaml:"player_spawns"`
	MobSpawns    []MobSpawn `yaml:"mob_spawns"`
}

// Corridor describes a maze-style wall built by thickening a centerline
// path into a polygon
type Corridor struct {
	Path      []Vec2  `yaml:"path"`
	HalfWidth float64 `yaml:"half_width"`
}

// ThickenPath turns a centerline into a closed polygon outline by offsetting
// each vertex perpendicular to the local direction. Returns nil when the
// path is too short to form a polygon.
func ThickenPath(path []Vec2, halfWidth float64) []Vec2 {
	if len(path) < 2 || halfWidth <= 0 {
		return nil
	}
	n := len(path)
	left := make([]Vec2, 0, n)
	right := make([]Vec2, 0, n)
	for i := 0; i < n; i++ {
		var dx, dy float64
		switch {
		case i == 0:
			dx = path[1].X - path[0].X
			dy = path[1].Y - path[0].Y
		case i == n-1:
			dx = path[n-1].X - path[n-2].X
			dy = path[n-1].Y - path[n-2].Y
		default:
			dx = path[i+1].X - path[i-1].X
			dy = path[i+1].Y - path[i-1].Y
		}
		l := math.Sqrt(dx*dx + dy*dy)
		if l == 0 {
			return nil
		}
		// Perpendicular to the local direction
		px := -dy / l * halfWidth
		py := dx / l * halfWidth
		left = append(left, Vec2{path[i].X + px, path[i].Y + py})
		right = append(right, Vec2{path[i].X - px, path[i].Y - py})
	}
	out := make([]Vec2, 0, 2*n)
	out = append(out, left...)
	for i := n - 1; i >= 0; i-- {
		out = append(out, right[i])
	}
	return out
}

// Validate checks a layout for usable geometry and spawn references.
// Generated polygons must be simple; bad geometry is an error here, never a
// runtime surprise in the tick.
func (l *Layout) Validate(content *Content) error {
	if l.HalfSize <= 0 {
		return fmt.Errorf("half_size must be positive")
	}
	if len(l.PlayerSpawns) == 0 {
		return fmt.Errorf("no player spawns")
	}
	for i := range l.Walls {
		w := &l.Walls[i]
		switch w.Kind {
		case WallRect:
			if w.W <= 0 || w.H <= 0 {
				return fmt.Errorf("wall %d: rect needs positive size", i)
			}
		case WallPolygon:
			if !PolygonSimple(w.Points) {
				return fmt.Errorf("wall %d: polygon not simple", i)
			}
		default:
			return fmt.Errorf("wall %d: unknown kind %d", i, w.Kind)
		}
	}
	for i, sp := range l.MobSpawns {
		if sp.Count < 1 || len(sp.Types) == 0 {
			return fmt.Errorf("mob spawn %d: needs count and types", i)
		}
		for _, t := range sp.Types {
			if _, ok := content.MobTypes[t]; !ok {
				return fmt.Errorf("mob spawn %d: unknown mob type %q", i, t)
			}
		}
	}
	return nil
}

// Build expands corridors into polygon walls and validates the result.
// Corridors that fail to thicken into a simple polygon are rejected as a
// validation error so callers can fall back deterministically.
func (l *Layout) Build(content *Content) error {
	for i, c := range l.Corridors {
		pts := ThickenPath(c.Path, c.HalfWidth)
		if pts == nil || !PolygonSimple(pts) {
			return fmt.Errorf("corridor %d: degenerate outline", i)
		}
		l.Walls = append(l.Walls, Wall{Kind: WallPolygon, Points: pts})
	}
	l.Corridors = nil
	return l.Validate(content)
}

// LoadLayout reads a layout from YAML and builds it. Any validation failure
// falls back to the compiled-in default layout deterministically, not via
// error-driven control flow at tick time. The returned error reports why a
// fallback happened; the layout is always usable.
func LoadLayout(path string, content *Content) (*Layout, error) {
	if path == "" {
		return DefaultLayout(content), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultLayout(content), fmt.Errorf("read layout %s: %w", path, err)
	}
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return DefaultLayout(content), fmt.Errorf("parse layout %s: %w", path, err)
	}
	if err := l.Build(content); err != nil {
		return DefaultLayout(content), fmt.Errorf("layout %s: %w", path, err)
	}
	return &l, nil
}

// DefaultLayout is the compiled-in arena: a bounded square with a few block
// walls, one corridor, and mob camps near the edges
func DefaultLayout(content *Content) *Layout {
	l := &Layout{
		Name:     "arena",
		HalfSize: 2000,
		Walls: []Wall{
			{Kind: WallRect, X: -700, Y: -700, W: 300, H: 120},
			{Kind: WallRect, X: 400, Y: -650, W: 140, H: 420},
			{Kind: WallRect, X: -500, Y: 500, W: 520, H: 130},
			{Kind: WallRect, X: 900, Y: 700, W: 260, H: 260},
		},
		Corridors: []Corridor{
			{
				Path: []Vec2{
					{-1500, -200}, {-1100, -200}, {-1100, 300}, {-600, 300},
				},
				HalfWidth: 40,
			},
		},
		PlayerSpawns: []Vec2{
			{0, 0}, {-200, 150}, {220, -160}, {90, 260},
		},
		MobSpawns: []MobSpawn{
			{X: -1400, Y: -1400, Count: 3, Types: []string{"goblin", "wolf"}},
			{X: 1400, Y: -1300, Count: 2, Types: []string{"wolf", "boar"}},
			{X: 1350, Y: 1400, Count: 3, Types: []string{"slime", "goblin"}},
			{X: -1300, Y: 1350, Count: 2, Types: []string{"boar", "slime"}},
			{X: 0, Y: -1600, Count: 1, Types: []string{"golem"}},
		},
	}
	if err := l.Build(content); err != nil {
		// The compiled-in layout must always build; a wall-only arena is
		// the last-resort shape if it ever does not.
		l.Corridors = nil
		l.Walls = l.Walls[:0]
	}
	return l
}
