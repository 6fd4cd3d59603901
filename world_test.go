package main

import (
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu     sync.Mutex
	sent   []interface{}
	raw    [][]byte
	packed [][]byte
	binary bool
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
}

func (m *mockBroadcaster) SendRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = append(m.raw, data)
}

func (m *mockBroadcaster) SendPacked(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packed = append(m.packed, data)
}

func (m *mockBroadcaster) WantsBinary() bool { return m.binary }

// envelopes returns everything sent via SendJSON as envelopes
func (m *mockBroadcaster) envelopes() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Envelope, 0, len(m.sent))
	for _, msg := range m.sent {
		if env, ok := msg.(Envelope); ok {
			out = append(out, env)
		}
	}
	return out
}

func (m *mockBroadcaster) countType(t string) int {
	n := 0
	for _, env := range m.envelopes() {
		if env.T == t {
			n++
		}
	}
	return n
}

func testLayout() *Layout {
	return &Layout{
		Name:         "test",
		HalfSize:     1000,
		PlayerSpawns: []Vec2{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: -100, Y: 0}},
	}
}

// newTestWorld builds an empty world: no walls, no mobs, tick rate from
// the default config
func newTestWorld() *World {
	cfg := defaults()
	return NewWorld("test-match", DefaultContent(), testLayout(), &cfg.Game, nil, zap.NewNop(), 1)
}

func addTestMob(w *World, id string, typeName string, x, y float64) *Mob {
	mt := w.content.MobTypes[typeName]
	sp := &MobSpawn{X: x, Y: y, Count: 1, Types: []string{typeName}}
	m := NewMob(id, mt, sp, Vec2{X: x, Y: y})
	w.mobs[m.ID] = m
	return m
}

func TestWorldAddRemovePlayer(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("Hero", "warrior")
	if p == nil {
		t.Fatal("expected player")
	}
	if p.Name != "Hero" {
		t.Errorf("expected name Hero, got %s", p.Name)
	}
	if w.PlayerCount() != 1 {
		t.Errorf("expected 1 player, got %d", w.PlayerCount())
	}
	w.RemovePlayer(p.ID)
	if w.PlayerCount() != 0 {
		t.Errorf("expected 0 players, got %d", w.PlayerCount())
	}
}

func TestWorldUnknownClassFallsBack(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("X", "necromancer")
	if p == nil {
		t.Fatal("expected player with default class")
	}
	if p.Class.Name != w.cfg.DefaultClass {
		t.Errorf("expected default class, got %s", p.Class.Name)
	}
}

func TestWorldFullRejectsJoin(t *testing.T) {
	w := newTestWorld()
	w.cfg.MaxPlayers = 1
	defer func() { w.cfg.MaxPlayers = 32 }()
	if w.AddPlayer("A", "warrior") == nil {
		t.Fatal("first join should succeed")
	}
	if w.AddPlayer("B", "warrior") != nil {
		t.Error("join beyond capacity should fail")
	}
}

func TestStepKeepsPlayerInBounds(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("Runner", "warrior")
	p.X = w.HalfSize() - p.Radius - 1
	w.StageInput(p.ID, 1, 0)

	now := nowMillis()
	for i := 0; i < 100; i++ {
		now += 50
		w.Step(now)
	}
	limit := w.HalfSize() - p.Radius
	if p.X > limit {
		t.Errorf("player escaped the map: x=%f limit=%f", p.X, limit)
	}
}

func TestStepKeepsPlayerOutOfWalls(t *testing.T) {
	layout := testLayout()
	layout.Walls = []Wall{{Kind: WallRect, X: 200, Y: -50, W: 100, H: 100}}
	cfg := defaults()
	w := NewWorld("t", DefaultContent(), layout, &cfg.Game, nil, zap.NewNop(), 1)

	p := w.AddPlayer("Runner", "warrior")
	p.X, p.Y = 0, 0
	w.StageInput(p.ID, 1, 0)

	now := nowMillis()
	for i := 0; i < 200; i++ {
		now += 50
		w.Step(now)
		for _, wall := range layout.Walls {
			if wall.PointInSolid(p.X, p.Y, 0) {
				t.Fatalf("player center inside wall at tick %d: (%f, %f)", i, p.X, p.Y)
			}
		}
	}
}

func TestProjectileExpiresAtTTL(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("Shooter", "mage")
	now := nowMillis()
	w.now = now

	def := &p.Class.Skills[0]
	pr := NewProjectile(now, p, def, 0)
	w.projectiles[pr.ID] = pr

	w.Step(now + def.TTLMs - 1)
	if _, ok := w.projectiles[pr.ID]; !ok {
		t.Fatal("projectile expired early")
	}
	w.Step(now + def.TTLMs)
	if _, ok := w.projectiles[pr.ID]; ok {
		t.Error("projectile should be gone at TTL")
	}
}

func TestProjectileSingleHit(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("Shooter", "mage")
	p.X, p.Y = -500, -500 // out of the way

	m1 := addTestMob(w, "m1", "goblin", 100, 0)
	m2 := addTestMob(w, "m2", "goblin", 100, 0)

	now := nowMillis()
	pr := &Projectile{
		Body:      Body{X: 100, Y: 0, Radius: ProjectileRadius},
		ID:        "pr1",
		OwnerID:   p.ID,
		Damage:    10,
		ExpiresAt: now + 10_000,
	}
	w.projectiles[pr.ID] = pr

	w.Step(now + 50)
	if _, ok := w.projectiles[pr.ID]; ok {
		t.Fatal("projectile should be consumed by its first hit")
	}
	hurt := 0
	if m1.HP < m1.Type.MaxHP {
		hurt++
	}
	if m2.HP < m2.Type.MaxHP {
		hurt++
	}
	if hurt != 1 {
		t.Errorf("expected exactly one mob hurt, got %d", hurt)
	}
}

func TestMobRespawnCycle(t *testing.T) {
	w := newTestWorld()
	m := addTestMob(w, "m1", "goblin", 300, 300)
	m.SpawnPos = Vec2{X: 300, Y: 300}
	respawnMs := int64(m.Type.RespawnSeconds * 1000)

	now := nowMillis()
	w.now = now
	w.DamageMob(m, m.Type.MaxHP+1, "nobody")
	if m.Alive() {
		t.Fatal("mob should be dead")
	}
	if m.RespawnAt != now+respawnMs {
		t.Errorf("expected respawn at +%dms", respawnMs)
	}

	w.Step(now + respawnMs - 50)
	if len(w.mobs) != 1 {
		t.Fatalf("expected 1 mob entry, got %d", len(w.mobs))
	}
	if _, ok := w.mobs[m.ID]; !ok {
		t.Fatal("dead mob should linger until its respawn fires")
	}

	w.Step(now + respawnMs + 50)
	if _, ok := w.mobs[m.ID]; ok {
		t.Error("old instance should be replaced on respawn")
	}
	if len(w.mobs) != 1 {
		t.Fatalf("expected 1 mob after respawn, got %d", len(w.mobs))
	}
	for _, nm := range w.mobs {
		if nm.Type != m.Type {
			t.Error("respawned mob should keep the same type")
		}
		if nm.X != 300 || nm.Y != 300 {
			t.Errorf("respawned mob should stand at its spawn point, got (%f, %f)", nm.X, nm.Y)
		}
		if !nm.Alive() {
			t.Error("respawned mob should be alive")
		}
	}
}

func TestDeadMobAbsentFromSnapshot(t *testing.T) {
	w := newTestWorld()
	b := &mockBroadcaster{}
	p := w.AddPlayer("Watcher", "warrior")
	p.X, p.Y = -900, -900
	w.SetClient(p.ID, b)

	m := addTestMob(w, "m1", "goblin", 500, 500)
	now := nowMillis()
	w.now = now
	w.DamageMob(m, m.Type.MaxHP+1, p.ID)

	w.Step(now + 50)
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.raw) == 0 {
		t.Fatal("expected a snapshot")
	}
	last := string(b.raw[len(b.raw)-1])
	if strings.Contains(last, `"m1"`) {
		t.Error("dead mob leaked into snapshot")
	}
}

func TestPlayerRespawnGrantsInvulnerability(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("Victim", "warrior")
	now := nowMillis()
	w.now = now
	p.HP = 0

	w.Step(now + 50)
	if !p.Alive() {
		t.Fatal("player should respawn on the next tick")
	}
	if p.HP != p.MaxHP {
		t.Errorf("expected full HP on respawn, got %f", p.HP)
	}
	if !p.Invulnerable(now + 50) {
		t.Error("respawn should grant an invulnerability window")
	}
	if p.Invulnerable(now + 50 + RespawnInvulnMs) {
		t.Error("invulnerability should lapse after its window")
	}
}

func TestAutoAttackHitsMobInRange(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("Fighter", "warrior")
	p.X, p.Y = 0, 0
	m := addTestMob(w, "m1", "golem", p.Class.AttackRange, 0)

	now := nowMillis()
	w.Step(now + 50)
	if m.HP >= m.Type.MaxHP {
		t.Error("auto-attack should have damaged the mob")
	}
	hp := m.HP
	// Within the cooldown, no second hit.
	w.Step(now + 100)
	if m.HP != hp {
		t.Error("auto-attack fired inside its cooldown")
	}
}

func TestPassiveHeal(t *testing.T) {
	w := newTestWorld()
	p := w.AddPlayer("Wounded", "warrior")
	p.HP = p.MaxHP - 1
	w.PassiveHeal()
	if p.HP != p.MaxHP {
		t.Errorf("heal should cap at max HP, got %f of %f", p.HP, p.MaxHP)
	}
	w.PassiveHeal()
	if p.HP != p.MaxHP {
		t.Error("healing at full HP should be a no-op")
	}
}

func TestLeaderboardOrder(t *testing.T) {
	w := newTestWorld()
	a := w.AddPlayer("Alice", "warrior")
	b := w.AddPlayer("Bob", "warrior")
	c := w.AddPlayer("Cara", "warrior")
	a.Kills = 1
	b.Kills = 3
	c.Kills = 1

	board := w.Leaderboard()
	if board[0].Name != "Bob" {
		t.Errorf("expected Bob first, got %s", board[0].Name)
	}
	if board[1].Name != "Alice" || board[2].Name != "Cara" {
		t.Error("equal kills should order by name")
	}
}
