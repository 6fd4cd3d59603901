package main

import "testing"

func TestMobDeathIsIdempotent(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("Killer", "warrior")
	m := addTestMob(w, "m1", "goblin", 50, 0)
	w.now = nowMillis()

	w.DamageMob(m, m.Type.MaxHP, p.ID)
	if m.Alive() {
		t.Fatal("mob should be dead")
	}
	xp := p.XP
	gold := p.Gold
	respawnAt := m.RespawnAt

	// A second lethal hit on the same tick must change nothing.
	w.DamageMob(m, 999, p.ID)
	if p.XP != xp || p.Gold != gold {
		t.Error("second kill credited rewards twice")
	}
	if m.RespawnAt != respawnAt {
		t.Error("second kill rescheduled the respawn")
	}
}

func TestKillCreditGoesToTopContributor(t *testing.T) {
	w := newTestWorld()
	a := w.AddPlayer("Alice", "warrior")
	b := w.AddPlayer("Bob", "warrior")
	m := addTestMob(w, "m1", "boar", 50, 0)
	w.now = nowMillis()

	w.DamageMob(m, 40, a.ID)
	w.DamageMob(m, 60, b.ID)
	if m.Alive() {
		t.Fatal("mob should be dead")
	}
	if b.XP == 0 {
		t.Error("top contributor should get the XP")
	}
	if a.XP != 0 {
		t.Error("minor contributor should get nothing")
	}
}

func TestKillCreditTieBreaksToEarliest(t *testing.T) {
	w := newTestWorld()
	a := w.AddPlayer("Alice", "warrior")
	b := w.AddPlayer("Bob", "warrior")
	m := addTestMob(w, "m1", "boar", 50, 0)
	w.now = nowMillis()

	w.DamageMob(m, 50, a.ID)
	w.DamageMob(m, 50, b.ID)
	if a.XP == 0 {
		t.Error("equal damage should credit whoever dealt it first")
	}
	if b.XP != 0 {
		t.Error("later contributor should lose the tie")
	}
}

func TestMobGoldWithinRange(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("Farmer", "warrior")
	w.now = nowMillis()

	for i := 0; i < 20; i++ {
		m := addTestMob(w, GenerateID(3), "goblin", 50, 0)
		before := p.Gold
		w.DamageMob(m, m.Type.MaxHP, p.ID)
		got := p.Gold - before
		if got < m.Type.GoldMin || got > m.Type.GoldMax {
			t.Fatalf("gold %d outside [%d, %d]", got, m.Type.GoldMin, m.Type.GoldMax)
		}
	}
}

func TestLevelingCurve(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("Grinder", "warrior")
	w.now = nowMillis()
	baseMaxHP := p.MaxHP

	// 100 then ceil(100*1.3)=130 to reach level 3 with 20 left over.
	w.AwardXP(p, 250)
	if p.Level != 3 {
		t.Fatalf("expected level 3, got %d", p.Level)
	}
	if p.XP != 20 {
		t.Errorf("expected 20 carried XP, got %d", p.XP)
	}
	if p.NextLevelXP != 169 {
		t.Errorf("expected next threshold 169, got %d", p.NextLevelXP)
	}
	if p.MaxHP != baseMaxHP+2*LevelHPBonus {
		t.Errorf("expected +%d max HP, got %f", 2*int(LevelHPBonus), p.MaxHP-baseMaxHP)
	}
}

func TestEveryFifthLevelBoostsMultipliers(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("Grinder", "warrior")
	w.now = nowMillis()

	w.AwardXP(p, 100_000)
	if p.Level < 5 {
		t.Fatalf("expected at least level 5, got %d", p.Level)
	}
	if p.DamageMult <= 1.0 {
		t.Error("damage multiplier should grow at milestone levels")
	}
	if p.BuffDurMult <= 1.0 {
		t.Error("buff duration multiplier should grow at milestone levels")
	}
}

func TestPlayerKillTransfersGold(t *testing.T) {
	w := newTestWorld()
	killer := w.AddPlayer("Killer", "warrior")
	victim := w.AddPlayer("Victim", "warrior")
	victim.Gold = 100
	w.now = nowMillis()

	w.ApplyDamageToPlayer(victim, victim.HP+1, killer.ID)
	if victim.Alive() {
		t.Fatal("victim should be dead")
	}
	if killer.Gold != 5 {
		t.Errorf("expected 5 gold looted, got %d", killer.Gold)
	}
	if victim.Gold != 95 {
		t.Errorf("expected victim at 95 gold, got %d", victim.Gold)
	}
	if killer.Kills != 1 || victim.Deaths != 1 {
		t.Error("kill and death counters should advance")
	}
}

func TestMobKillDoesNotCountAsPlayerKill(t *testing.T) {
	w := newTestWorld()
	victim := w.AddPlayer("Victim", "warrior")
	victim.Gold = 100
	w.now = nowMillis()

	w.ApplyDamageToPlayer(victim, victim.HP+1, "some-mob")
	if victim.Gold != 100 {
		t.Error("death to a mob should not forfeit gold")
	}
	if victim.Deaths != 1 {
		t.Error("death counter should advance regardless of killer")
	}
}

func TestInvulnerablePlayerTakesNoDamage(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("Fresh", "warrior")
	w.now = nowMillis()
	p.InvulnerableTill = w.now + 1000

	w.ApplyDamageToPlayer(p, 50, "m1")
	if p.HP != p.MaxHP {
		t.Error("invulnerable player should take no damage")
	}
}

func TestDamageToDeadPlayerIsDropped(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("Corpse", "warrior")
	w.now = nowMillis()
	p.HP = 0
	deaths := p.Deaths

	w.ApplyDamageToPlayer(p, 50, "m1")
	if p.Deaths != deaths {
		t.Error("hitting a corpse should not count another death")
	}
}
