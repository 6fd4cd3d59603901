package main

import "math"

const (
	PlayerRadius     = 28.0
	PlayerBaseMaxHP  = 100.0
	RespawnInvulnMs  = 3000 // invulnerability window after respawn
	LevelHPBonus     = 50.0 // max hp gained per level
	LevelXPGrowth    = 1.3  // next threshold multiplier
	FirstLevelXP     = 100
	MaxNameLen       = 24
	DeathGoldPortion = 0.05 // share of victim gold transferred on a player kill
)

// Buff is a temporary multiplicative stat modifier
type Buff struct {
	Stat  BuffStat
	Mult  float64
	Until int64 // ms
}

// PlayerInput is the staged movement intent, normalized server-side
type PlayerInput struct {
	X, Y float64
}

// Player is one connected, joined session's avatar
type Player struct {
	Body
	ID    string
	Name  string
	Class *ClassDef

	HP    float64
	MaxHP float64

	BaseDamage       float64
	AttackCooldown   float64 // seconds
	LastAttackAt     int64   // ms
	InvulnerableTill int64   // ms; damage ignored while now < this
	StunnedUntil     int64   // ms; no movement or actions while active

	XP          int
	Level       int
	NextLevelXP int
	Gold        int
	Kills       int
	Deaths      int

	// Persistent progression modifiers (grown on milestone levels)
	DamageMult  float64
	BuffDurMult float64

	Buffs     []Buff
	Cooldowns map[int]int64 // slot -> usable again at (ms)

	Input PlayerInput
}

// NewPlayer creates a player of the given class at a spawn position
func NewPlayer(id, name string, class *ClassDef, spawn Vec2) *Player {
	return &Player{
		Body:           Body{X: spawn.X, Y: spawn.Y, Radius: PlayerRadius},
		ID:             id,
		Name:           name,
		Class:          class,
		HP:             class.MaxHP,
		MaxHP:          class.MaxHP,
		BaseDamage:     class.BaseDamage,
		AttackCooldown: class.AttackCooldown,
		Level:          1,
		NextLevelXP:    FirstLevelXP,
		DamageMult:     1,
		BuffDurMult:    1,
		Cooldowns:      make(map[int]int64, SlotCount),
	}
}

// Alive reports whether the player can act
func (p *Player) Alive() bool {
	return p.HP > 0
}

// Stunned reports whether the player is currently stunned
func (p *Player) Stunned(now int64) bool {
	return now < p.StunnedUntil
}

// Invulnerable reports whether damage is currently ignored
func (p *Player) Invulnerable(now int64) bool {
	return now < p.InvulnerableTill
}

// SetInput stages a normalized movement intent. Called from the network
// side; the tick integrates it later, so this never touches position.
func (p *Player) SetInput(x, y float64) {
	x, y = NormalizeVec(x, y)
	p.Input = PlayerInput{X: x, Y: y}
}

// ExpireBuffs drops buffs whose until has passed. Expiry is lazy: the tick
// calls this before reading the buff list.
func (p *Player) ExpireBuffs(now int64) {
	kept := p.Buffs[:0]
	for _, b := range p.Buffs {
		if b.Until > now {
			kept = append(kept, b)
		}
	}
	p.Buffs = kept
}

// AddBuff applies a stat buff, duration scaled by the persistent
// buff-duration multiplier
func (p *Player) AddBuff(now int64, stat BuffStat, mult float64, durationMs int64) {
	scaled := int64(math.Round(float64(durationMs) * p.BuffDurMult))
	p.Buffs = append(p.Buffs, Buff{Stat: stat, Mult: mult, Until: now + scaled})
}

// BuffProduct multiplies the active buff multipliers for one stat
func (p *Player) BuffProduct(stat BuffStat) float64 {
	mult := 1.0
	for _, b := range p.Buffs {
		if b.Stat == stat {
			mult *= b.Mult
		}
	}
	return mult
}

// EffectiveSpeed is base speed times active speed-buff multipliers
func (p *Player) EffectiveSpeed() float64 {
	return p.Class.BaseSpeed * p.BuffProduct(StatSpeed)
}

// EffectiveDamage is base damage times damage buffs, the class multiplier
// and the persistent progression multiplier
func (p *Player) EffectiveDamage() float64 {
	return p.BaseDamage * p.Class.DamageMult * p.DamageMult * p.BuffProduct(StatDamage)
}

// Stun forces the player inert until the given deadline, keeping the later
// of an existing stun and the new one
func (p *Player) Stun(until int64) {
	if until > p.StunnedUntil {
		p.StunnedUntil = until
	}
}

// RespawnAt teleports the player to a spawn point with full hp and a
// temporary invulnerability window
func (p *Player) RespawnAt(now int64, spawn Vec2) {
	p.X = spawn.X
	p.Y = spawn.Y
	p.VX = 0
	p.VY = 0
	p.HP = p.MaxHP
	p.StunnedUntil = 0
	p.Buffs = p.Buffs[:0]
	p.InvulnerableTill = now + RespawnInvulnMs
}
