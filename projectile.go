package main

import "math"

const ProjectileRadius = 6.0

// Projectile is a short-lived kinetic hazard. It never hits its owner, is
// removed on its first successful hit or at TTL expiry, and homing variants
// lock their heading at creation time.
type Projectile struct {
	Body
	ID      string
	OwnerID string
	Skill   string // skill name, for cast_effect rendering

	Damage        float64
	ExpiresAt     int64 // ms, absolute
	StunMs        int64
	ExplodeRadius float64
	TargetID      string // set for proj_target variants; heading only
}

// NewProjectile creates a projectile flying at the given angle
func NewProjectile(now int64, owner *Player, def *SkillDef, angle float64) *Projectile {
	return &Projectile{
		Body: Body{
			X:      owner.X + math.Cos(angle)*owner.Radius,
			Y:      owner.Y + math.Sin(angle)*owner.Radius,
			VX:     math.Cos(angle) * def.Speed,
			VY:     math.Sin(angle) * def.Speed,
			Radius: ProjectileRadius,
		},
		ID:            GenerateID(3),
		OwnerID:       owner.ID,
		Skill:         def.Name,
		Damage:        def.Damage,
		ExpiresAt:     now + def.TTLMs,
		StunMs:        def.StunMs,
		ExplodeRadius: def.ExplodeRadius,
	}
}

// NewTargetedProjectile locks the heading toward the target's current
// position at cast time; there is no homing correction after launch
func NewTargetedProjectile(now int64, owner *Player, def *SkillDef, targetID string, tx, ty float64) *Projectile {
	angle := math.Atan2(ty-owner.Y, tx-owner.X)
	p := NewProjectile(now, owner, def, angle)
	p.TargetID = targetID
	return p
}

// Expired reports TTL expiry
func (p *Projectile) Expired(now int64) bool {
	return now >= p.ExpiresAt
}

// Advance integrates motion and clamps to map bounds
func (p *Projectile) Advance(dt, halfSize float64) {
	p.X += p.VX * dt
	p.Y += p.VY * dt
	p.X = Clamp(p.X, -halfSize, halfSize)
	p.Y = Clamp(p.Y, -halfSize, halfSize)
}

// Hits reports circle contact with a body
func (p *Projectile) Hits(b *Body) bool {
	return DistanceSq(p.X, p.Y, b.X, b.Y) <= (p.Radius+b.Radius)*(p.Radius+b.Radius)
}
