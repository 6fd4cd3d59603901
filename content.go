package main

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SkillKind tags the variant of a skill definition
type SkillKind string

const (
	SkillMelee          SkillKind = "melee"
	SkillAoe            SkillKind = "aoe"
	SkillAoeStun        SkillKind = "aoe_stun"
	SkillBuff           SkillKind = "buff"
	SkillProjTarget     SkillKind = "proj_target"
	SkillProjTargetStun SkillKind = "proj_target_stun"
	SkillProjBurst      SkillKind = "proj_burst"
	SkillProjAoeSpread  SkillKind = "proj_aoe_spread"
)

// BuffStat names the stat a buff multiplies
type BuffStat string

const (
	StatSpeed  BuffStat = "speed"
	StatDamage BuffStat = "damage"
)

// SkillDef is one ability slot entry. Only the fields relevant to its Kind
// are meaningful; the loader validates the required ones.
type SkillDef struct {
	Name          string    `yaml:"name"`
	Kind          SkillKind `yaml:"kind"`
	CooldownMs    int64     `yaml:"cooldown_ms"`
	Range         float64   `yaml:"range"`          // melee reach / cast range
	Radius        float64   `yaml:"radius"`         // aoe radius
	Damage        float64   `yaml:"damage"`
	DurationMs    int64     `yaml:"duration_ms"`    // buff duration
	Multiplier    float64   `yaml:"multiplier"`     // buff multiplier
	Stat          BuffStat  `yaml:"stat"`           // buff stat
	Count         int       `yaml:"count"`          // projectiles per cast
	SpreadRad     float64   `yaml:"spread_rad"`     // fan width in radians
	Speed         float64   `yaml:"speed"`          // projectile speed
	TTLMs         int64     `yaml:"ttl_ms"`         // projectile lifetime
	StunMs        int64     `yaml:"stun_ms"`
	ExplodeRadius float64   `yaml:"explode_radius"` // area damage on impact
}

// ClassDef holds the stats and the four ability slots of a player class
type ClassDef struct {
	Name           string     `yaml:"name"`
	MaxHP          float64    `yaml:"max_hp"`
	BaseSpeed      float64    `yaml:"base_speed"`
	BaseDamage     float64    `yaml:"base_damage"`
	AttackCooldown float64    `yaml:"attack_cooldown"` // seconds, auto-attack
	AttackRange    float64    `yaml:"attack_range"`
	DamageMult     float64    `yaml:"damage_mult"` // class/equipment multiplier
	Skills         []SkillDef `yaml:"skills"`      // exactly SlotCount entries
}

// SlotCount is the fixed number of ability slots per class
const SlotCount = 4

// MobType is the static definition bound to every mob of a species
type MobType struct {
	Name           string  `yaml:"name"`
	MaxHP          float64 `yaml:"max_hp"`
	Attack         float64 `yaml:"attack"`
	Speed          float64 `yaml:"speed"`
	AggroRadius    float64 `yaml:"aggro_radius"`
	XP             int     `yaml:"xp"`
	GoldMin        int     `yaml:"gold_min"`
	GoldMax        int     `yaml:"gold_max"`
	RespawnSeconds float64 `yaml:"respawn_seconds"`
	Radius         float64 `yaml:"radius"`
}

// Content groups every static definition table the simulation consumes
type Content struct {
	MobTypes map[string]*MobType
	Classes  map[string]*ClassDef
}

type contentFile struct {
	MobTypes []MobType  `yaml:"mob_types"`
	Classes  []ClassDef `yaml:"classes"`
}

// LoadContent reads definition tables from YAML. Entries replace same-named
// defaults; anything not mentioned keeps its compiled-in definition.
func LoadContent(path string) (*Content, error) {
	c := DefaultContent()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", path, err)
	}
	var f contentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse content %s: %w", path, err)
	}
	for i := range f.MobTypes {
		mt := f.MobTypes[i]
		if err := validateMobType(&mt); err != nil {
			return nil, fmt.Errorf("mob type %q: %w", mt.Name, err)
		}
		c.MobTypes[mt.Name] = &mt
	}
	for i := range f.Classes {
		cd := f.Classes[i]
		if err := validateClass(&cd); err != nil {
			return nil, fmt.Errorf("class %q: %w", cd.Name, err)
		}
		c.Classes[cd.Name] = &cd
	}
	return c, nil
}

func validateMobType(mt *MobType) error {
	if mt.Name == "" {
		return fmt.Errorf("missing name")
	}
	if mt.MaxHP <= 0 || mt.Speed < 0 || mt.Radius <= 0 {
		return fmt.Errorf("non-positive stat")
	}
	if mt.GoldMax < mt.GoldMin {
		return fmt.Errorf("gold_max below gold_min")
	}
	return nil
}

func validateClass(cd *ClassDef) error {
	if cd.Name == "" {
		return fmt.Errorf("missing name")
	}
	if len(cd.Skills) != SlotCount {
		return fmt.Errorf("expected %d skills, got %d", SlotCount, len(cd.Skills))
	}
	for i := range cd.Skills {
		s := &cd.Skills[i]
		if s.CooldownMs <= 0 {
			return fmt.Errorf("skill %q: cooldown_ms must be positive", s.Name)
		}
		switch s.Kind {
		case SkillBuff:
			if s.Stat != StatSpeed && s.Stat != StatDamage {
				return fmt.Errorf("skill %q: unknown buff stat %q", s.Name, s.Stat)
			}
			if s.Multiplier <= 0 || s.DurationMs <= 0 {
				return fmt.Errorf("skill %q: buff needs multiplier and duration", s.Name)
			}
		case SkillProjTarget, SkillProjTargetStun:
			if s.Speed <= 0 || s.TTLMs <= 0 {
				return fmt.Errorf("skill %q: projectile needs speed and ttl", s.Name)
			}
			if s.Range <= 0 {
				return fmt.Errorf("skill %q: targeted projectile needs a cast range", s.Name)
			}
		case SkillProjBurst, SkillProjAoeSpread:
			if s.Speed <= 0 || s.TTLMs <= 0 {
				return fmt.Errorf("skill %q: projectile needs speed and ttl", s.Name)
			}
			if s.Count < 1 {
				return fmt.Errorf("skill %q: volley needs a projectile count", s.Name)
			}
		}
	}
	return nil
}

// ClassNames returns the configured class names in stable order
func (c *Content) ClassNames() []string {
	names := make([]string, 0, len(c.Classes))
	for name := range c.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultContent returns the compiled-in definition tables
func DefaultContent() *Content {
	mobs := []*MobType{
		{Name: "goblin", MaxHP: 60, Attack: 8, Speed: 120, AggroRadius: 260,
			XP: 20, GoldMin: 5, GoldMax: 12, RespawnSeconds: 8, Radius: 20},
		{Name: "wolf", MaxHP: 45, Attack: 12, Speed: 170, AggroRadius: 320,
			XP: 25, GoldMin: 4, GoldMax: 10, RespawnSeconds: 10, Radius: 18},
		{Name: "slime", MaxHP: 80, Attack: 5, Speed: 70, AggroRadius: 200,
			XP: 15, GoldMin: 2, GoldMax: 8, RespawnSeconds: 6, Radius: 22},
		{Name: "boar", MaxHP: 100, Attack: 10, Speed: 140, AggroRadius: 240,
			XP: 30, GoldMin: 8, GoldMax: 16, RespawnSeconds: 12, Radius: 24},
		{Name: "golem", MaxHP: 240, Attack: 20, Speed: 60, AggroRadius: 300,
			XP: 90, GoldMin: 25, GoldMax: 60, RespawnSeconds: 30, Radius: 34},
	}

	classes := []*ClassDef{
		{
			Name: "warrior", MaxHP: 140, BaseSpeed: 200, BaseDamage: 14,
			AttackCooldown: 0.8, AttackRange: 60, DamageMult: 1.2,
			Skills: []SkillDef{
				{Name: "slash", Kind: SkillMelee, CooldownMs: 2500, Range: 70, Damage: 22},
				{Name: "shockwave", Kind: SkillAoeStun, CooldownMs: 9000, Radius: 140, Damage: 15, StunMs: 1200},
				{Name: "war_cry", Kind: SkillBuff, CooldownMs: 12000, Stat: StatDamage, Multiplier: 1.5, DurationMs: 5000},
				{Name: "whirlwind", Kind: SkillAoe, CooldownMs: 10000, Radius: 110, Damage: 30},
			},
		},
		{
			Name: "ranger", MaxHP: 100, BaseSpeed: 230, BaseDamage: 10,
			AttackCooldown: 0.7, AttackRange: 70, DamageMult: 1.0,
			Skills: []SkillDef{
				{Name: "volley", Kind: SkillProjBurst, CooldownMs: 3500, Count: 3, SpreadRad: 0.18, Speed: 520, Damage: 12, TTLMs: 1400},
				{Name: "piercing_arrow", Kind: SkillProjTarget, CooldownMs: 6000, Range: 700, Speed: 640, Damage: 28, TTLMs: 2000},
				{Name: "swiftness", Kind: SkillBuff, CooldownMs: 10000, Stat: StatSpeed, Multiplier: 1.4, DurationMs: 4000},
				{Name: "arrow_rain", Kind: SkillProjAoeSpread, CooldownMs: 12000, Count: 8, SpreadRad: 1.1, Speed: 420, Damage: 9, ExplodeRadius: 40, TTLMs: 1200},
			},
		},
		{
			Name: "mage", MaxHP: 90, BaseSpeed: 190, BaseDamage: 8,
			AttackCooldown: 1.0, AttackRange: 80, DamageMult: 1.0,
			Skills: []SkillDef{
				{Name: "firebolt", Kind: SkillProjTarget, CooldownMs: 2500, Range: 650, Speed: 540, Damage: 20, TTLMs: 1800},
				{Name: "frost_lance", Kind: SkillProjTargetStun, CooldownMs: 8000, Range: 600, Speed: 600, Damage: 16, StunMs: 1500, TTLMs: 2000},
				{Name: "nova", Kind: SkillAoe, CooldownMs: 9000, Radius: 160, Damage: 26},
				{Name: "meteor", Kind: SkillProjAoeSpread, CooldownMs: 14000, Count: 5, SpreadRad: 1.4, Speed: 380, Damage: 14, ExplodeRadius: 70, TTLMs: 1500},
			},
		},
	}

	c := &Content{
		MobTypes: make(map[string]*MobType, len(mobs)),
		Classes:  make(map[string]*ClassDef, len(classes)),
	}
	for _, mt := range mobs {
		c.MobTypes[mt.Name] = mt
	}
	for _, cd := range classes {
		c.Classes[cd.Name] = cd
	}
	return c
}
