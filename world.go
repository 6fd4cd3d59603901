package main

import (
	"encoding/json"
	"math"
	"math/rand"
	"sort"

	"github.com/sasha-s/go-deadlock"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const spatialCellSize = 160.0

// Broadcaster is what the world knows about a connection
type Broadcaster interface {
	SendJSON(msg interface{})
	SendRaw(data []byte)    // pre-marshaled JSON text frame
	SendPacked(data []byte) // pre-encoded msgpack binary frame
	WantsBinary() bool
}

// stagedCast is a cast request queued by the network side and drained at
// the start of the next tick
type stagedCast struct {
	playerID string
	req      CastMsg
}

// World owns all entity state for one match and runs its simulation. All
// mutation happens under mu; network callbacks only stage intent.
type World struct {
	mu deadlock.Mutex

	MatchID string
	log     *zap.Logger
	cfg     *GameConfig
	content *Content
	layout  *Layout
	rec     *Recorder
	rng     *rand.Rand

	players     map[string]*Player
	mobs        map[string]*Mob
	projectiles map[string]*Projectile
	clients     map[string]Broadcaster

	casts    []stagedCast
	grid     *SpatialGrid
	tick     uint64
	now      int64 // ms, advanced by Step
	dt       float64
	spawnIdx int

	// TimeLeftMs is mirrored into snapshots by the match lifecycle; zero
	// means no duration limit.
	TimeLeftMs int64
}

// NewWorld builds a world from a layout, spawning the initial mob
// population from its spawn points
func NewWorld(matchID string, content *Content, layout *Layout, cfg *GameConfig, rec *Recorder, log *zap.Logger, seed int64) *World {
	w := &World{
		MatchID:     matchID,
		log:         log,
		cfg:         cfg,
		content:     content,
		layout:      layout,
		rec:         rec,
		rng:         rand.New(rand.NewSource(seed)),
		players:     make(map[string]*Player),
		mobs:        make(map[string]*Mob),
		projectiles: make(map[string]*Projectile),
		clients:     make(map[string]Broadcaster),
		grid:        NewSpatialGrid(layout.HalfSize, spatialCellSize),
		dt:          1.0 / float64(cfg.TickRate),
		now:         nowMillis(),
	}
	for i := range layout.MobSpawns {
		sp := &layout.MobSpawns[i]
		for n := 0; n < sp.Count; n++ {
			w.spawnMob(sp)
		}
	}
	return w
}

// spawnMob creates one instance of a randomly chosen eligible type at a
// spawn point. Caller holds mu (or is the constructor).
func (w *World) spawnMob(sp *MobSpawn) *Mob {
	typeName := sp.Types[w.rng.Intn(len(sp.Types))]
	mt := w.content.MobTypes[typeName]
	pos := Vec2{sp.X, sp.Y}
	m := NewMob(GenerateID(4), mt, sp, pos)
	w.mobs[m.ID] = m
	return m
}

// respawnMobAs replaces a dead instance with a fresh one of the same type
// at its spawn point
func (w *World) respawnMobAs(dead *Mob) *Mob {
	m := NewMob(GenerateID(4), dead.Type, dead.Spawn, dead.SpawnPos)
	w.mobs[m.ID] = m
	return m
}

// AddPlayer creates a player at the next spawn point. Returns nil when the
// world is full or the class is unknown.
func (w *World) AddPlayer(name, className string) *Player {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.players) >= w.cfg.MaxPlayers {
		return nil
	}
	class, ok := w.content.Classes[className]
	if !ok {
		class, ok = w.content.Classes[w.cfg.DefaultClass]
		if !ok {
			return nil
		}
	}
	spawn := w.nextSpawn()
	p := NewPlayer(GenerateID(4), SanitizeName(name, MaxNameLen), class, spawn)
	w.players[p.ID] = p
	return p
}

func (w *World) nextSpawn() Vec2 {
	spawn := w.layout.PlayerSpawns[w.spawnIdx%len(w.layout.PlayerSpawns)]
	w.spawnIdx++
	return spawn
}

// RemovePlayer drops a player and its client binding
func (w *World) RemovePlayer(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.players, id)
	delete(w.clients, id)
}

// SetClient binds a broadcaster to a player id
func (w *World) SetClient(playerID string, b Broadcaster) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clients[playerID] = b
}

// PlayerCount returns the number of joined players
func (w *World) PlayerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.players)
}

// StageInput overwrites a player's movement intent. Never runs physics;
// the next tick integrates it.
func (w *World) StageInput(playerID string, x, y float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.players[playerID]; ok {
		p.SetInput(x, y)
	}
}

// StageCast enqueues a cast request for the next tick
func (w *World) StageCast(playerID string, req CastMsg) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.players[playerID]; !ok {
		return
	}
	w.casts = append(w.casts, stagedCast{playerID: playerID, req: req})
}

// SetTimeLeft mirrors the remaining match time into future snapshots
func (w *World) SetTimeLeft(ms int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ms < 0 {
		ms = 0
	}
	w.TimeLeftMs = ms
}

// broadcastAll sends an event to every bound client, for callers outside
// the tick
func (w *World) broadcastAll(msg Envelope) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.broadcast(msg)
}

// UnbindAll detaches every client, used when a match is torn down
func (w *World) UnbindAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, c := range w.clients {
		if sc, ok := c.(interface{ Unbind() }); ok {
			sc.Unbind()
		}
		delete(w.clients, id)
	}
}

// Walls exposes the immutable wall list for welcome messages
func (w *World) Walls() []Wall {
	return w.layout.Walls
}

// HalfSize exposes the world bound for welcome messages
func (w *World) HalfSize() float64 {
	return w.layout.HalfSize
}

// sortedPlayers returns players in stable id order; the tick iterates
// entities in this order so outcomes never depend on map iteration
func (w *World) sortedPlayers() []*Player {
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) sortedMobs() []*Mob {
	out := make([]*Mob, 0, len(w.mobs))
	for _, m := range w.mobs {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) sortedProjectiles() []*Projectile {
	out := make([]*Projectile, 0, len(w.projectiles))
	for _, pr := range w.projectiles {
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Step advances the simulation one tick to the given time. A fault in the
// tick is logged and skips the remainder of this step rather than killing
// the shared loop.
func (w *World) Step(now int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("tick fault", zap.String("match", w.MatchID), zap.Any("panic", r))
		}
	}()

	w.now = now
	w.tick++

	players := w.sortedPlayers()
	mobs := w.sortedMobs()

	w.drainCasts()
	w.respawnSweep(mobs)
	mobs = w.sortedMobs() // respawn replaces instances
	w.mobPhase(mobs, players)
	w.playerPhase(players, mobs)
	w.rebuildGrid(players, mobs)
	w.projectilePhase()
	w.broadcastSnapshot(players)
}

// drainCasts resolves every staged ability request in arrival order
func (w *World) drainCasts() {
	casts := w.casts
	w.casts = nil
	for _, c := range casts {
		p, ok := w.players[c.playerID]
		if !ok {
			continue
		}
		w.resolveCast(p, c.req)
	}
}

// respawnSweep replaces dead mobs whose respawn schedule has fired
func (w *World) respawnSweep(mobs []*Mob) {
	for _, m := range mobs {
		if m.Alive() || m.RespawnAt == 0 || w.now < m.RespawnAt {
			continue
		}
		delete(w.mobs, m.ID)
		w.respawnMobAs(m)
	}
}

// mobPhase runs AI for every live mob and clamps them into the map
func (w *World) mobPhase(mobs []*Mob, players []*Player) {
	half := w.layout.HalfSize
	for _, m := range mobs {
		if !m.Alive() {
			continue
		}
		target, dmg := m.Advance(w.now, w.dt, players)
		limit := half - m.Radius
		m.X = Clamp(m.X, -limit, limit)
		m.Y = Clamp(m.Y, -limit, limit)
		ResolveWalls(&m.Body, w.layout.Walls)
		if target != nil && dmg > 0 {
			w.ApplyDamageToPlayer(target, dmg, m.ID)
		}
	}
}

// playerPhase integrates inputs, resolves walls, auto-attacks and handles
// observed deaths
func (w *World) playerPhase(players []*Player, mobs []*Mob) {
	half := w.layout.HalfSize
	for _, p := range players {
		p.ExpireBuffs(w.now)

		if !p.Alive() {
			// Death observed in this phase: teleport to a spawn point
			// with an invulnerability window. The next snapshot carries
			// the revived state.
			p.RespawnAt(w.now, w.nextSpawn())
			continue
		}

		if p.Stunned(w.now) {
			p.VX = 0
			p.VY = 0
			continue
		}

		speed := p.EffectiveSpeed()
		p.VX = p.Input.X * speed
		p.VY = p.Input.Y * speed
		p.X += p.VX * w.dt
		p.Y += p.VY * w.dt

		limit := half - p.Radius
		p.X = Clamp(p.X, -limit, limit)
		p.Y = Clamp(p.Y, -limit, limit)
		ResolveWalls(&p.Body, w.layout.Walls)

		w.autoAttack(p, mobs)
	}
}

// autoAttack hits the nearest live mob in melee range when the per-player
// attack cooldown has elapsed
func (w *World) autoAttack(p *Player, mobs []*Mob) {
	if w.now-p.LastAttackAt < int64(p.AttackCooldown*1000) {
		return
	}
	var best *Mob
	bestD2 := math.MaxFloat64
	for _, m := range mobs {
		if !m.Alive() {
			continue
		}
		reach := p.Class.AttackRange + p.Radius + m.Radius
		d2 := DistanceSq(p.X, p.Y, m.X, m.Y)
		if d2 <= reach*reach && d2 < bestD2 {
			bestD2 = d2
			best = m
		}
	}
	if best == nil {
		return
	}
	p.LastAttackAt = w.now
	w.DamageMob(best, p.EffectiveDamage(), p.ID)
}

// rebuildGrid refreshes the broad-phase index before projectile hit tests
func (w *World) rebuildGrid(players []*Player, mobs []*Mob) {
	w.grid.Clear()
	for _, m := range mobs {
		if m.Alive() {
			w.grid.Insert(m.X, m.Y, m.Radius, EntityRef{Kind: KindMob, ID: m.ID})
		}
	}
	for _, p := range players {
		if p.Alive() {
			w.grid.Insert(p.X, p.Y, p.Radius, EntityRef{Kind: KindPlayer, ID: p.ID})
		}
	}
}

// projectilePhase expires, advances and hit-tests every projectile. A
// projectile is removed after its first successful hit or at TTL expiry,
// never both, never neither.
func (w *World) projectilePhase() {
	var buf []EntityRef
	for _, pr := range w.sortedProjectiles() {
		if pr.Expired(w.now) {
			delete(w.projectiles, pr.ID)
			continue
		}
		pr.Advance(w.dt, w.layout.HalfSize)

		buf = w.grid.Query(pr.X, pr.Y, pr.Radius+64, buf[:0])
		hitMob, hitPlayer := w.firstHit(pr, buf)
		if hitMob == nil && hitPlayer == nil {
			continue
		}

		if pr.ExplodeRadius > 0 {
			w.explode(pr)
		} else if hitMob != nil {
			if pr.StunMs > 0 {
				w.stunMob(hitMob, pr.StunMs)
			}
			w.DamageMob(hitMob, pr.Damage, pr.OwnerID)
		} else {
			if pr.StunMs > 0 {
				w.stunPlayer(hitPlayer, pr.StunMs)
			}
			w.ApplyDamageToPlayer(hitPlayer, pr.Damage, pr.OwnerID)
		}
		delete(w.projectiles, pr.ID)
	}
}

// firstHit picks the first collision: the nearest overlapping live mob,
// then, if none, the nearest overlapping live player other than the
// owner. Candidates come from the grid; nearest-then-id ordering keeps the
// choice deterministic.
func (w *World) firstHit(pr *Projectile, candidates []EntityRef) (*Mob, *Player) {
	var bestMob *Mob
	var bestPlayer *Player
	bestMobD2 := math.MaxFloat64
	bestPlayerD2 := math.MaxFloat64
	for _, ref := range candidates {
		switch ref.Kind {
		case KindMob:
			m := w.mobs[ref.ID]
			if m == nil || !m.Alive() || !pr.Hits(&m.Body) {
				continue
			}
			d2 := DistanceSq(pr.X, pr.Y, m.X, m.Y)
			if d2 < bestMobD2 || (d2 == bestMobD2 && (bestMob == nil || m.ID < bestMob.ID)) {
				bestMobD2 = d2
				bestMob = m
			}
		case KindPlayer:
			p := w.players[ref.ID]
			if p == nil || p.ID == pr.OwnerID || !p.Alive() || p.Invulnerable(w.now) || !pr.Hits(&p.Body) {
				continue
			}
			d2 := DistanceSq(pr.X, pr.Y, p.X, p.Y)
			if d2 < bestPlayerD2 || (d2 == bestPlayerD2 && (bestPlayer == nil || p.ID < bestPlayer.ID)) {
				bestPlayerD2 = d2
				bestPlayer = p
			}
		}
	}
	if bestMob != nil {
		return bestMob, nil
	}
	return nil, bestPlayer
}

// explode applies area damage around the impact point to every live mob
// and every live non-owner player, with the projectile's stun if any
func (w *World) explode(pr *Projectile) {
	r := pr.ExplodeRadius
	for _, m := range w.sortedMobs() {
		if !m.Alive() {
			continue
		}
		if DistanceSq(pr.X, pr.Y, m.X, m.Y) <= (r+m.Radius)*(r+m.Radius) {
			if pr.StunMs > 0 {
				w.stunMob(m, pr.StunMs)
			}
			w.DamageMob(m, pr.Damage, pr.OwnerID)
		}
	}
	for _, p := range w.sortedPlayers() {
		if p.ID == pr.OwnerID || !p.Alive() || p.Invulnerable(w.now) {
			continue
		}
		if DistanceSq(pr.X, pr.Y, p.X, p.Y) <= (r+p.Radius)*(r+p.Radius) {
			if pr.StunMs > 0 {
				w.stunPlayer(p, pr.StunMs)
			}
			w.ApplyDamageToPlayer(p, pr.Damage, pr.OwnerID)
		}
	}
}

func (w *World) stunMob(m *Mob, ms int64) {
	m.Stun(w.now + ms)
	w.broadcast(Envelope{T: MsgStun, Data: StunMsg{Kind: "mob", ID: m.ID, Ms: ms}})
}

func (w *World) stunPlayer(p *Player, ms int64) {
	p.Stun(w.now + ms)
	w.broadcast(Envelope{T: MsgStun, Data: StunMsg{Kind: "player", ID: p.ID, Ms: ms}})
}

// PassiveHeal runs on its own timer outside the tick; it only touches hp,
// which the tick re-checks before acting
func (w *World) PassiveHeal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	amount := w.cfg.PassiveHealAmount
	if amount <= 0 {
		return
	}
	for _, p := range w.sortedPlayers() {
		if !p.Alive() || p.HP >= p.MaxHP {
			continue
		}
		healed := math.Min(amount, p.MaxHP-p.HP)
		p.HP += healed
		w.broadcast(Envelope{T: MsgPlayerHealed, Data: PlayerHealedMsg{
			ID: p.ID, HP: roundi(p.HP), Amount: roundi(healed),
		}})
	}
}

// Leaderboard derives the per-match standings, sorted by kills then name
func (w *World) leaderboardLocked(players []*Player) []BoardEntry {
	board := make([]BoardEntry, 0, len(players))
	for _, p := range players {
		board = append(board, BoardEntry{
			ID: p.ID, Name: p.Name, Kills: p.Kills, Deaths: p.Deaths, Level: p.Level,
		})
	}
	sort.Slice(board, func(i, j int) bool {
		if board[i].Kills != board[j].Kills {
			return board[i].Kills > board[j].Kills
		}
		return board[i].Name < board[j].Name
	})
	return board
}

// Leaderboard returns the current standings
func (w *World) Leaderboard() []BoardEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.leaderboardLocked(w.sortedPlayers())
}

type packedEnvelope struct {
	T string       `msgpack:"t"`
	D *SnapshotMsg `msgpack:"d"`
}

// broadcastSnapshot assembles the rounded state view and ships it to every
// bound client, encoding JSON once and msgpack once
func (w *World) broadcastSnapshot(players []*Player) {
	snap := &SnapshotMsg{
		Tick:       w.tick,
		TimeLeftMs: w.TimeLeftMs,
		Board:      w.leaderboardLocked(players),
	}
	for _, p := range players {
		if !p.Alive() && !w.cfg.IncludeDeadPlayers {
			continue
		}
		snap.Players = append(snap.Players, PlayerSnap{
			ID: p.ID, Name: p.Name, Class: p.Class.Name,
			X: roundi(p.X), Y: roundi(p.Y),
			HP: roundi(p.HP), MaxHP: roundi(p.MaxHP),
			Level: p.Level, XP: p.XP, NextXP: p.NextLevelXP, Gold: p.Gold,
			Alive: p.Alive(), Stun: p.Stunned(w.now), Invuln: p.Invulnerable(w.now),
		})
	}
	for _, m := range w.sortedMobs() {
		if !m.Alive() {
			continue
		}
		snap.Mobs = append(snap.Mobs, MobSnap{
			ID: m.ID, Type: m.Type.Name,
			X: roundi(m.X), Y: roundi(m.Y),
			HP: roundi(m.HP), MaxHP: roundi(m.Type.MaxHP),
			Stun: m.Stunned(w.now),
		})
	}
	for _, pr := range w.sortedProjectiles() {
		snap.Projectiles = append(snap.Projectiles, ProjSnap{
			ID: pr.ID, Owner: pr.OwnerID, Skill: pr.Skill,
			X: roundi(pr.X), Y: roundi(pr.Y),
		})
	}

	jsonData, err := json.Marshal(Envelope{T: MsgSnapshot, Data: snap})
	if err != nil {
		w.log.Error("snapshot marshal", zap.Error(err))
		return
	}
	var packed []byte
	for _, c := range w.clients {
		if c.WantsBinary() {
			packed, err = msgpack.Marshal(packedEnvelope{T: MsgSnapshot, D: snap})
			if err != nil {
				w.log.Error("snapshot pack", zap.Error(err))
				packed = nil
			}
			break
		}
	}
	for _, c := range w.clients {
		if c.WantsBinary() && packed != nil {
			c.SendPacked(packed)
		} else {
			c.SendRaw(jsonData)
		}
	}
}

// broadcast fans an event out to every bound client. Sends are
// fire-and-forget: one slow or dead socket never aborts the loop.
func (w *World) broadcast(msg Envelope) {
	for _, c := range w.clients {
		c.SendJSON(msg)
	}
}

// sendTo delivers an event to one player's client if bound
func (w *World) sendTo(playerID string, msg Envelope) {
	if c, ok := w.clients[playerID]; ok {
		c.SendJSON(msg)
	}
}
