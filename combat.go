package main

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// DamageMob applies damage from an attacker, records the contribution for
// kill attribution and handles death. Hits on an already dead instance are
// dropped so a burst landing after the killing blow changes nothing.
func (w *World) DamageMob(m *Mob, damage float64, attackerID string) {
	if !m.Alive() || damage <= 0 {
		return
	}
	m.recordContribution(attackerID, damage)
	m.HP -= damage
	if m.HP > 0 {
		w.broadcast(Envelope{T: MsgMobHurt, Data: MobHurtMsg{
			ID: m.ID, HP: roundi(m.HP), Damage: roundi(damage), By: attackerID,
		}})
		return
	}
	m.HP = 0
	w.handleMobDeath(m)
}

// handleMobDeath credits the top contributor and schedules the respawn.
// The RespawnAt guard makes death handling run exactly once per life no
// matter how many damage sources land on the same tick.
func (w *World) handleMobDeath(m *Mob) {
	if m.RespawnAt != 0 {
		return
	}
	m.RespawnAt = w.now + int64(m.Type.RespawnSeconds*1000)

	killerID := m.topContributor("")
	gold := 0
	xp := m.Type.XP
	if killer, ok := w.players[killerID]; ok {
		span := m.Type.GoldMax - m.Type.GoldMin
		gold = m.Type.GoldMin
		if span > 0 {
			gold += w.rng.Intn(span + 1)
		}
		killer.Gold += gold
		w.AwardXP(killer, xp)
		w.track("mob_kill", killer.Name, fmt.Sprintf("%s xp=%d gold=%d", m.Type.Name, xp, gold))
	}
	m.clearLedger()

	w.broadcast(Envelope{T: MsgMobDied, Data: MobDiedMsg{
		ID: m.ID, Type: m.Type.Name, Killer: killerID, XP: xp, Gold: gold,
	}})
}

// ApplyDamageToPlayer damages a player unless dead or inside the respawn
// invulnerability window
func (w *World) ApplyDamageToPlayer(p *Player, damage float64, attackerID string) {
	if !p.Alive() || p.Invulnerable(w.now) || damage <= 0 {
		return
	}
	p.HP -= damage
	if p.HP > 0 {
		w.broadcast(Envelope{T: MsgPlayerHurt, Data: PlayerHurtMsg{
			ID: p.ID, HP: roundi(p.HP), Damage: roundi(damage), By: attackerID,
		}})
		return
	}
	p.HP = 0
	w.handlePlayerDeath(p, attackerID)
}

// handlePlayerDeath books the kill and moves a slice of the victim's gold
// to a player killer. The corpse stays down until the next player phase
// respawns it.
func (w *World) handlePlayerDeath(victim *Player, killerID string) {
	victim.Deaths++
	victim.Input = PlayerInput{}
	victim.VX = 0
	victim.VY = 0

	loot := 0
	if killer, ok := w.players[killerID]; ok && killer.ID != victim.ID {
		loot = roundDown(float64(victim.Gold) * DeathGoldPortion)
		victim.Gold -= loot
		killer.Gold += loot
		killer.Kills++
		w.track("player_kill", killer.Name, victim.Name)
	}

	w.log.Debug("player down",
		zap.String("match", w.MatchID),
		zap.String("victim", victim.ID),
		zap.String("killer", killerID))

	w.broadcast(Envelope{T: MsgPlayerDied, Data: PlayerDiedMsg{
		ID: victim.ID, Killer: killerID, GoldLost: loot,
	}})
}

// AwardXP adds experience and resolves any number of level-ups in one
// pass, announcing the final state once
func (w *World) AwardXP(p *Player, xp int) {
	if xp <= 0 {
		return
	}
	p.XP += xp
	levels := 0
	for p.XP >= p.NextLevelXP {
		p.XP -= p.NextLevelXP
		p.Level++
		levels++
		p.MaxHP += LevelHPBonus
		p.HP = math.Min(p.HP+LevelHPBonus, p.MaxHP)
		p.NextLevelXP = int(math.Ceil(float64(p.NextLevelXP) * LevelXPGrowth))
		if p.Level%5 == 0 {
			p.DamageMult *= 1.3
			p.BuffDurMult *= 1.1
		}
	}
	if levels == 0 {
		return
	}
	w.track("level_up", p.Name, fmt.Sprintf("level=%d", p.Level))
	w.broadcast(Envelope{T: MsgPlayerLevelup, Data: LevelUpMsg{
		ID: p.ID, Level: p.Level, Levels: levels,
		HPGained: levels * LevelHPBonus,
	}})
}

// track forwards a gameplay event to the recorder when one is attached
func (w *World) track(event, actor, detail string) {
	if w.rec != nil {
		w.rec.Track(w.MatchID, event, actor, detail)
	}
}

func roundDown(v float64) int {
	return int(math.Floor(v))
}
