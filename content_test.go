package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultContentValidates(t *testing.T) {
	c := DefaultContent()
	if len(c.Classes) == 0 || len(c.MobTypes) == 0 {
		t.Fatal("default content should carry classes and mob types")
	}
	for _, cd := range c.Classes {
		if err := validateClass(cd); err != nil {
			t.Errorf("class %s: %v", cd.Name, err)
		}
		if len(cd.Skills) != SlotCount {
			t.Errorf("class %s: expected %d slots", cd.Name, SlotCount)
		}
	}
	for _, mt := range c.MobTypes {
		if err := validateMobType(mt); err != nil {
			t.Errorf("mob %s: %v", mt.Name, err)
		}
	}
}

func TestLoadContentEmptyPathUsesDefaults(t *testing.T) {
	c, err := LoadContent("")
	if err != nil {
		t.Fatalf("empty path should yield defaults: %v", err)
	}
	if _, ok := c.Classes["warrior"]; !ok {
		t.Error("defaults should include the warrior class")
	}
}

func TestLoadContentOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "content.yaml")
	data := `
mob_types:
  - name: goblin
    max_hp: 99
    attack: 3
    speed: 100
    aggro_radius: 200
    xp: 10
    gold_min: 1
    gold_max: 2
    respawn_seconds: 5
    radius: 20
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadContent(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.MobTypes["goblin"].MaxHP != 99 {
		t.Errorf("file should override the default goblin, got hp %f", c.MobTypes["goblin"].MaxHP)
	}
	if _, ok := c.MobTypes["golem"]; !ok {
		t.Error("untouched defaults should survive an override file")
	}
	if _, ok := c.Classes["mage"]; !ok {
		t.Error("classes should keep their defaults")
	}
}

func TestLoadContentRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	data := `
classes:
  - name: cheater
    max_hp: 100
    base_speed: 100
    base_damage: 10
    attack_cooldown: 1
    attack_range: 50
    damage_mult: 1
    skills:
      - {name: only_one, kind: melee, cooldown_ms: 100, range: 50, damage: 5}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadContent(path); err == nil {
		t.Error("a class with one skill should fail validation")
	}
}

func TestClassNamesStableOrder(t *testing.T) {
	c := DefaultContent()
	names := c.ClassNames()
	if len(names) != 3 {
		t.Fatalf("expected 3 classes, got %d", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Error("class names should come back sorted")
		}
	}
}
