package main

import (
	"math"
)

// resolveCast validates one staged ability request and applies its effect.
// Checks run in a fixed order: caster alive, slot valid, not stunned,
// cooldown, then target. The cooldown is committed before any effect so a
// fault mid-effect can never yield a free recast.
func (w *World) resolveCast(p *Player, req CastMsg) {
	if !p.Alive() {
		w.sendTo(p.ID, Envelope{T: MsgReject, Data: RejectMsg{Action: "cast", Slot: req.Slot, Reason: RejectDead}})
		return
	}
	if req.Slot < 1 || req.Slot > SlotCount {
		w.sendTo(p.ID, Envelope{T: MsgReject, Data: RejectMsg{Action: "cast", Slot: req.Slot, Reason: RejectBadSlot}})
		return
	}
	slot := req.Slot - 1
	if p.Stunned(w.now) {
		w.sendTo(p.ID, Envelope{T: MsgReject, Data: RejectMsg{Action: "cast", Slot: req.Slot, Reason: RejectCooldown}})
		return
	}
	def := &p.Class.Skills[slot]
	if until, ok := p.Cooldowns[slot]; ok && w.now < until {
		w.sendTo(p.ID, Envelope{T: MsgReject, Data: RejectMsg{Action: "cast", Slot: req.Slot, Reason: RejectCooldown}})
		return
	}

	var target *Mob
	var targetPlayer *Player
	if def.Kind == SkillProjTarget || def.Kind == SkillProjTargetStun {
		target, targetPlayer = w.lockTarget(p, req, def)
		if target == nil && targetPlayer == nil {
			reason := RejectNoTarget
			if req.TargetID != "" {
				reason = RejectInvalidTarget
			}
			w.sendTo(p.ID, Envelope{T: MsgReject, Data: RejectMsg{Action: "cast", Slot: req.Slot, Reason: reason}})
			return
		}
	}

	p.Cooldowns[slot] = w.now + def.CooldownMs

	switch def.Kind {
	case SkillMelee:
		w.castMelee(p, def)
	case SkillAoe:
		w.castAoE(p, def, 0)
	case SkillAoeStun:
		w.castAoE(p, def, def.StunMs)
	case SkillBuff:
		w.castBuff(p, def)
	case SkillProjTarget:
		w.castTargeted(p, def, target, targetPlayer, 0)
	case SkillProjTargetStun:
		w.castTargeted(p, def, target, targetPlayer, def.StunMs)
	case SkillProjBurst:
		w.castBurst(p, def, req)
	case SkillProjAoeSpread:
		w.castSpread(p, def, req)
	default:
		// Unknown kinds degrade to a plain self-centered burst so bad
		// content never bricks a slot.
		w.castAoE(p, def, 0)
	}

	w.broadcast(Envelope{T: MsgCastEffect, Data: CastEffectMsg{
		CasterID: p.ID, CasterName: p.Name, Skill: def.Name, Kind: string(def.Kind),
		X: roundi(p.X), Y: roundi(p.Y), Angle: w.aimAngle(p, req), Radius: roundi(def.Radius),
	}})
}

// lockTarget resolves a targeted projectile's victim. An explicit id must
// name a live mob or a live enemy player in range; with no id the nearest
// live mob in range is chosen.
func (w *World) lockTarget(p *Player, req CastMsg, def *SkillDef) (*Mob, *Player) {
	maxD2 := def.Range * def.Range
	if req.TargetID != "" {
		if m, ok := w.mobs[req.TargetID]; ok && m.Alive() &&
			DistanceSq(p.X, p.Y, m.X, m.Y) <= maxD2 {
			return m, nil
		}
		if t, ok := w.players[req.TargetID]; ok && t.ID != p.ID && t.Alive() &&
			!t.Invulnerable(w.now) && DistanceSq(p.X, p.Y, t.X, t.Y) <= maxD2 {
			return nil, t
		}
		return nil, nil
	}
	var best *Mob
	bestD2 := maxD2
	for _, m := range w.sortedMobs() {
		if !m.Alive() {
			continue
		}
		d2 := DistanceSq(p.X, p.Y, m.X, m.Y)
		if d2 <= bestD2 && (best == nil || d2 < bestD2) {
			bestD2 = d2
			best = m
		}
	}
	return best, nil
}

// castMelee strikes exactly one victim: the nearest live mob within the
// skill's arc range, or failing that the nearest live enemy player
func (w *World) castMelee(p *Player, def *SkillDef) {
	var best *Mob
	bestD2 := math.MaxFloat64
	for _, m := range w.sortedMobs() {
		if !m.Alive() {
			continue
		}
		reach := def.Range + p.Radius + m.Radius
		d2 := DistanceSq(p.X, p.Y, m.X, m.Y)
		if d2 <= reach*reach && d2 < bestD2 {
			bestD2 = d2
			best = m
		}
	}
	if best != nil {
		w.DamageMob(best, w.skillDamage(p, def), p.ID)
		return
	}
	var victim *Player
	bestD2 = math.MaxFloat64
	for _, t := range w.sortedPlayers() {
		if t.ID == p.ID || !t.Alive() || t.Invulnerable(w.now) {
			continue
		}
		reach := def.Range + p.Radius + t.Radius
		d2 := DistanceSq(p.X, p.Y, t.X, t.Y)
		if d2 <= reach*reach && d2 < bestD2 {
			bestD2 = d2
			victim = t
		}
	}
	if victim != nil {
		w.ApplyDamageToPlayer(victim, w.skillDamage(p, def), p.ID)
	}
}

// castAoE damages every live mob and live enemy player inside the radius
// around the caster, optionally stunning them
func (w *World) castAoE(p *Player, def *SkillDef, stunMs int64) {
	dmg := w.skillDamage(p, def)
	r := def.Radius
	for _, m := range w.sortedMobs() {
		if !m.Alive() {
			continue
		}
		if DistanceSq(p.X, p.Y, m.X, m.Y) <= (r+m.Radius)*(r+m.Radius) {
			if stunMs > 0 {
				w.stunMob(m, stunMs)
			}
			w.DamageMob(m, dmg, p.ID)
		}
	}
	for _, t := range w.sortedPlayers() {
		if t.ID == p.ID || !t.Alive() || t.Invulnerable(w.now) {
			continue
		}
		if DistanceSq(p.X, p.Y, t.X, t.Y) <= (r+t.Radius)*(r+t.Radius) {
			if stunMs > 0 {
				w.stunPlayer(t, stunMs)
			}
			w.ApplyDamageToPlayer(t, dmg, p.ID)
		}
	}
}

// castBuff applies a timed stat multiplier to the caster
func (w *World) castBuff(p *Player, def *SkillDef) {
	p.AddBuff(w.now, def.Stat, def.Multiplier, def.DurationMs)
}

// castTargeted spawns a projectile whose heading is locked toward the
// victim's position at cast time; it never homes afterwards
func (w *World) castTargeted(p *Player, def *SkillDef, m *Mob, t *Player, stunMs int64) {
	var tx, ty float64
	targetID := ""
	if m != nil {
		tx, ty = m.X, m.Y
		targetID = m.ID
	} else {
		tx, ty = t.X, t.Y
		targetID = t.ID
	}
	pr := NewTargetedProjectile(w.now, p, def, targetID, tx, ty)
	pr.Damage = w.skillDamage(p, def)
	pr.StunMs = stunMs
	w.projectiles[pr.ID] = pr
}

// burstJitterRad is the per-projectile angular wobble on a burst fan
const burstJitterRad = 0.04

// castBurst launches Count projectiles fanned evenly across SpreadRad
// around the requested aim angle, each nudged by a little random jitter
func (w *World) castBurst(p *Player, def *SkillDef, req CastMsg) {
	base := w.aimAngle(p, req)
	n := def.Count
	if n < 1 {
		n = 1
	}
	dmg := w.skillDamage(p, def)
	for i := 0; i < n; i++ {
		angle := base
		if n > 1 {
			angle = base - def.SpreadRad/2 + def.SpreadRad*float64(i)/float64(n-1)
		}
		angle += (w.rng.Float64() - 0.5) * burstJitterRad
		pr := NewProjectile(w.now, p, def, angle)
		pr.Damage = dmg
		w.projectiles[pr.ID] = pr
	}
}

// castSpread scatters Count exploding projectiles at random angles within
// SpreadRad around the aim direction
func (w *World) castSpread(p *Player, def *SkillDef, req CastMsg) {
	base := w.aimAngle(p, req)
	n := def.Count
	if n < 1 {
		n = 1
	}
	dmg := w.skillDamage(p, def)
	for i := 0; i < n; i++ {
		angle := base + (w.rng.Float64()-0.5)*def.SpreadRad
		pr := NewProjectile(w.now, p, def, angle)
		pr.Damage = dmg
		w.projectiles[pr.ID] = pr
	}
}

// aimAngle resolves the firing direction: an explicit aim point wins, then
// an explicit angle, then current movement, then facing right
func (w *World) aimAngle(p *Player, req CastMsg) float64 {
	if req.HasAim {
		return math.Atan2(req.AimY-p.Y, req.AimX-p.X)
	}
	if req.Angle != 0 {
		return req.Angle
	}
	if p.Input.X != 0 || p.Input.Y != 0 {
		return math.Atan2(p.Input.Y, p.Input.X)
	}
	return 0
}

// skillDamage scales a skill's base damage by the caster's class and level
// multipliers plus any active damage buff, matching the auto-attack math
func (w *World) skillDamage(p *Player, def *SkillDef) float64 {
	return def.Damage * p.Class.DamageMult * p.DamageMult * p.BuffProduct(StatDamage)
}
