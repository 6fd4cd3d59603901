package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestThickenPathProducesSimplePolygon(t *testing.T) {
	path := []Vec2{{0, 0}, {100, 0}, {100, 100}}
	pts := ThickenPath(path, 20)
	if len(pts) != 6 {
		t.Fatalf("expected 6 outline points, got %d", len(pts))
	}
	if !PolygonSimple(pts) {
		t.Error("thickened L-path should be a simple polygon")
	}
	// The centerline must end up inside the outline.
	for _, c := range path {
		if !pointInPolygon(c.X, c.Y, pts) {
			t.Errorf("centerline point (%f, %f) outside outline", c.X, c.Y)
		}
	}
}

func TestThickenPathDegenerateInputs(t *testing.T) {
	if ThickenPath([]Vec2{{0, 0}}, 20) != nil {
		t.Error("single point should not thicken")
	}
	if ThickenPath([]Vec2{{0, 0}, {100, 0}}, 0) != nil {
		t.Error("zero width should not thicken")
	}
	if ThickenPath([]Vec2{{0, 0}, {0, 0}, {5, 5}}, 10) != nil {
		t.Error("repeated points should not thicken")
	}
}

func TestDefaultLayoutBuilds(t *testing.T) {
	content := DefaultContent()
	l := DefaultLayout(content)
	if l.HalfSize != 2000 {
		t.Errorf("expected half size 2000, got %f", l.HalfSize)
	}
	if len(l.Walls) == 0 {
		t.Fatal("default layout should carry walls")
	}
	if len(l.Corridors) != 0 {
		t.Error("corridors should be expanded into walls by Build")
	}
	polys := 0
	for _, w := range l.Walls {
		if w.Kind == WallPolygon {
			polys++
			if !PolygonSimple(w.Points) {
				t.Error("corridor polygon should be simple")
			}
		}
	}
	if polys == 0 {
		t.Error("the corridor should survive as a polygon wall")
	}
	if err := l.Validate(content); err != nil {
		t.Errorf("default layout should validate: %v", err)
	}
}

func TestValidateRejectsBadLayouts(t *testing.T) {
	content := DefaultContent()
	cases := []struct {
		name string
		l    Layout
	}{
		{"no half size", Layout{PlayerSpawns: []Vec2{{0, 0}}}},
		{"no spawns", Layout{HalfSize: 100}},
		{"flat rect", Layout{HalfSize: 100, PlayerSpawns: []Vec2{{0, 0}},
			Walls: []Wall{{Kind: WallRect, W: 100, H: 0}}}},
		{"bowtie polygon", Layout{HalfSize: 100, PlayerSpawns: []Vec2{{0, 0}},
			Walls: []Wall{{Kind: WallPolygon, Points: []Vec2{{0, 0}, {10, 10}, {10, 0}, {0, 10}}}}}},
		{"unknown mob type", Layout{HalfSize: 100, PlayerSpawns: []Vec2{{0, 0}},
			MobSpawns: []MobSpawn{{Count: 1, Types: []string{"dragon"}}}}},
	}
	for _, tc := range cases {
		if err := tc.l.Validate(content); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadLayoutFallsBackOnMissingFile(t *testing.T) {
	content := DefaultContent()
	l, err := LoadLayout("/no/such/layout.yaml", content)
	if err == nil {
		t.Error("missing file should report why the fallback happened")
	}
	if l == nil || l.Name != "arena" {
		t.Error("fallback should be the compiled-in layout")
	}
}

func TestLoadLayoutFallsBackOnBadGeometry(t *testing.T) {
	content := DefaultContent()
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	bad := `
name: broken
half_size: 500
player_spawns:
  - {x: 0, y: 0}
walls:
  - kind: 1
    points:
      - {x: 0, y: 0}
      - {x: 10, y: 10}
      - {x: 10, y: 0}
      - {x: 0, y: 10}
`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := LoadLayout(path, content)
	if err == nil {
		t.Error("self-crossing wall should force a fallback")
	}
	if l.Name != "arena" {
		t.Errorf("expected fallback layout, got %s", l.Name)
	}
}

func TestLoadLayoutFromFile(t *testing.T) {
	content := DefaultContent()
	dir := t.TempDir()
	path := filepath.Join(dir, "ok.yaml")
	good := `
name: duel
half_size: 800
player_spawns:
  - {x: -100, y: 0}
  - {x: 100, y: 0}
corridors:
  - half_width: 30
    path:
      - {x: -300, y: 0}
      - {x: 0, y: 200}
      - {x: 300, y: 0}
mob_spawns:
  - {x: 0, y: -400, count: 2, types: [goblin]}
`
	if err := os.WriteFile(path, []byte(good), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := LoadLayout(path, content)
	if err != nil {
		t.Fatalf("good layout should load: %v", err)
	}
	if l.Name != "duel" || l.HalfSize != 800 {
		t.Error("loaded layout should keep its own fields")
	}
	if len(l.Walls) != 1 || l.Walls[0].Kind != WallPolygon {
		t.Error("corridor should become one polygon wall")
	}
}
