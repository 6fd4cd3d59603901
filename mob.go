package main

import "math"

const (
	// MobAttackFactor scales tick-based melee damage (atk * dt * factor)
	MobAttackFactor = 1.0
	// MobIdleDamping is the per-second exponential velocity decay while a
	// mob has no target
	MobIdleDamping = 3.0
	// MobMeleeReach is added to radii when checking melee contact
	MobMeleeReach = 10.0
)

// contribution is one attacker's entry in a mob's damage ledger
type contribution struct {
	AttackerID string
	Damage     float64
}

// Mob is an AI-controlled hostile entity bound to a spawn point
type Mob struct {
	Body
	ID   string
	Type *MobType

	HP           float64
	StunnedUntil int64
	Spawn        *MobSpawn
	SpawnPos     Vec2
	RespawnAt    int64 // ms; zero until death is handled

	// Damage ledger, insertion-ordered for deterministic kill attribution:
	// ties go to the earliest first contribution.
	ledger []contribution
}

// NewMob spawns a fresh instance of a type at a spawn point
func NewMob(id string, mt *MobType, sp *MobSpawn, pos Vec2) *Mob {
	return &Mob{
		Body:     Body{X: pos.X, Y: pos.Y, Radius: mt.Radius},
		ID:       id,
		Type:     mt,
		HP:       mt.MaxHP,
		Spawn:    sp,
		SpawnPos: pos,
	}
}

// Alive reports whether the mob is live. A mob with hp<=0 is inert: it does
// not move, does not attack and cannot be damaged again until replaced.
func (m *Mob) Alive() bool {
	return m.HP > 0
}

// Stunned reports whether the mob is currently stunned
func (m *Mob) Stunned(now int64) bool {
	return now < m.StunnedUntil
}

// Stun forces the mob inert until the given deadline
func (m *Mob) Stun(until int64) {
	if until > m.StunnedUntil {
		m.StunnedUntil = until
	}
}

// recordContribution accumulates damage under an attacker id
func (m *Mob) recordContribution(attackerID string, amount float64) {
	for i := range m.ledger {
		if m.ledger[i].AttackerID == attackerID {
			m.ledger[i].Damage += amount
			return
		}
	}
	m.ledger = append(m.ledger, contribution{AttackerID: attackerID, Damage: amount})
}

// topContributor returns the attacker with the highest cumulative damage.
// Exact ties break toward the earliest first contribution; the fallback id
// wins when the ledger is empty.
func (m *Mob) topContributor(fallback string) string {
	best := fallback
	bestDmg := 0.0
	for _, c := range m.ledger {
		if c.Damage > bestDmg {
			bestDmg = c.Damage
			best = c.AttackerID
		}
	}
	return best
}

// clearLedger resets kill-attribution bookkeeping after death handling
func (m *Mob) clearLedger() {
	m.ledger = m.ledger[:0]
}

// Advance runs one AI tick: acquire the nearest alive player inside the
// aggro radius, steer straight at it at fixed speed, and melee once in
// contact range. With no target the mob decays toward rest while drifting.
// A stunned mob sheds velocity in place without covering ground.
// Returns the player hit this tick (nil if none) and the damage dealt.
func (m *Mob) Advance(now int64, dt float64, players []*Player) (*Player, float64) {
	if !m.Alive() {
		return nil, 0
	}

	if m.Stunned(now) {
		m.decay(dt)
		return nil, 0
	}

	var target *Player
	bestD2 := m.Type.AggroRadius * m.Type.AggroRadius
	for _, p := range players {
		if !p.Alive() {
			continue
		}
		d2 := DistanceSq(m.X, m.Y, p.X, p.Y)
		if d2 <= bestD2 {
			bestD2 = d2
			target = p
		}
	}

	if target == nil {
		m.decay(dt)
		m.X += m.VX * dt
		m.Y += m.VY * dt
		return nil, 0
	}

	d := math.Sqrt(bestD2)
	if d > 0 {
		m.VX = (target.X - m.X) / d * m.Type.Speed
		m.VY = (target.Y - m.Y) / d * m.Type.Speed
	}
	m.X += m.VX * dt
	m.Y += m.VY * dt

	reach := m.Radius + target.Radius + MobMeleeReach
	if d <= reach && !target.Invulnerable(now) {
		return target, m.Type.Attack * dt * MobAttackFactor
	}
	return nil, 0
}

// decay applies exponential velocity damping toward rest
func (m *Mob) decay(dt float64) {
	f := math.Exp(-MobIdleDamping * dt)
	m.VX *= f
	m.VY *= f
}
