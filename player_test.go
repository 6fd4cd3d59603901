package main

import (
	"math"
	"testing"
	"unicode/utf8"
)

func testPlayer(class string) *Player {
	content := DefaultContent()
	return NewPlayer("p1", "Tester", content.Classes[class], Vec2{})
}

func TestSetInputNormalizes(t *testing.T) {
	p := testPlayer("warrior")
	p.SetInput(3, 4)
	l := math.Hypot(p.Input.X, p.Input.Y)
	if math.Abs(l-1) > 1e-9 {
		t.Errorf("oversized input should normalize to unit length, got %f", l)
	}

	p.SetInput(0.5, 0)
	if p.Input.X != 0.5 {
		t.Error("sub-unit input should pass through unchanged")
	}

	p.SetInput(math.NaN(), math.Inf(1))
	if p.Input.X != 0 || p.Input.Y != 0 {
		t.Error("non-finite input should be dropped to zero")
	}
}

func TestBuffStacksAndExpires(t *testing.T) {
	p := testPlayer("warrior")
	base := p.EffectiveSpeed()
	now := int64(1000)

	p.AddBuff(now, StatSpeed, 1.5, 2000)
	p.AddBuff(now, StatSpeed, 1.2, 500)
	want := base * 1.5 * 1.2
	if math.Abs(p.EffectiveSpeed()-want) > 1e-9 {
		t.Errorf("speed buffs should stack multiplicatively, got %f want %f", p.EffectiveSpeed(), want)
	}

	p.ExpireBuffs(now + 600)
	want = base * 1.5
	if math.Abs(p.EffectiveSpeed()-want) > 1e-9 {
		t.Error("shorter buff should expire first")
	}

	p.ExpireBuffs(now + 2001)
	if p.EffectiveSpeed() != base {
		t.Error("all buffs should be gone")
	}
}

func TestBuffDurationScalesWithMultiplier(t *testing.T) {
	p := testPlayer("warrior")
	p.BuffDurMult = 1.1
	now := int64(0)
	p.AddBuff(now, StatDamage, 1.5, 1000)
	if p.Buffs[0].Until != 1100 {
		t.Errorf("expected scaled duration 1100, got %d", p.Buffs[0].Until)
	}
}

func TestEffectiveDamageComposition(t *testing.T) {
	p := testPlayer("warrior")
	base := p.BaseDamage * p.Class.DamageMult
	if math.Abs(p.EffectiveDamage()-base) > 1e-9 {
		t.Errorf("fresh player damage should be base*class, got %f", p.EffectiveDamage())
	}
	p.DamageMult = 1.3
	p.AddBuff(0, StatDamage, 2, 1000)
	want := base * 1.3 * 2
	if math.Abs(p.EffectiveDamage()-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, p.EffectiveDamage())
	}
}

func TestRespawnResetsCombatState(t *testing.T) {
	p := testPlayer("warrior")
	p.HP = 0
	p.VX, p.VY = 50, 50
	p.StunnedUntil = 99999
	p.AddBuff(0, StatSpeed, 2, 100000)

	p.RespawnAt(1000, Vec2{X: 7, Y: -7})
	if p.X != 7 || p.Y != -7 {
		t.Error("respawn should move the player to the spawn point")
	}
	if p.HP != p.MaxHP {
		t.Error("respawn should restore full HP")
	}
	if p.VX != 0 || p.VY != 0 {
		t.Error("respawn should stop movement")
	}
	if p.Stunned(1001) {
		t.Error("respawn should clear stuns")
	}
	if len(p.Buffs) != 0 {
		t.Error("respawn should clear buffs")
	}
	if !p.Invulnerable(1000 + RespawnInvulnMs - 1) {
		t.Error("respawn invulnerability should last its window")
	}
}

func TestSanitizeName(t *testing.T) {
	if got := SanitizeName("  Hero\x00One  ", 24); got != "HeroOne" {
		t.Errorf("expected HeroOne, got %q", got)
	}
	long := SanitizeName("abcdefghijklmnopqrstuvwxyz", 10)
	if len(long) != 10 {
		t.Errorf("expected capped length 10, got %d", len(long))
	}
}

func TestSanitizeKeepsRunesWhole(t *testing.T) {
	// 4 two-byte runes; a 5-byte cap lands mid-rune and must back off to
	// the previous boundary.
	got := SanitizeName("éééé", 5)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if got != "éé" {
		t.Errorf("expected two whole runes, got %q", got)
	}

	chat := SanitizeChat("日本語テスト", 7)
	if !utf8.ValidString(chat) {
		t.Fatalf("chat truncation produced invalid UTF-8: %q", chat)
	}
	if chat != "日本" {
		t.Errorf("expected two whole runes, got %q", chat)
	}
}

func TestSanitizeChat(t *testing.T) {
	if got := SanitizeChat("hello\nworld\r!", 200); got != "hello world !" {
		t.Errorf("expected newlines flattened, got %q", got)
	}
	if got := SanitizeChat("   ", 200); got != "" {
		t.Errorf("whitespace-only chat should empty out, got %q", got)
	}
}
