package main

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/remeh/sizedwaitgroup"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// MatchPhase is the lifecycle state of a match
type MatchPhase int

const (
	PhaseCountdown MatchPhase = iota
	PhaseActive
	PhaseFinished
)

func (p MatchPhase) String() string {
	switch p {
	case PhaseCountdown:
		return "countdown"
	case PhaseActive:
		return "active"
	case PhaseFinished:
		return "finished"
	}
	return "unknown"
}

// sessionClient is the manager's view of a connection: a broadcaster that
// can be re-bound to a world when its match starts or ends
type sessionClient interface {
	Broadcaster
	Bind(w *World, p *Player)
	Unbind()
}

type queueEntry struct {
	c     sessionClient
	name  string
	class string
}

// Match ties a world to its lifecycle. COUNTDOWN matches have entries but
// no world yet; FINISHED matches linger for a grace window so clients can
// read the final board.
type Match struct {
	ID    string
	Phase MatchPhase
	World *World

	entries         []queueEntry // countdown roster
	CountdownEndsAt int64
	StartedAt       int64
	EndsAt          int64 // 0 = unlimited (the standing free-for-all world)
	RemoveAt        int64
	announcedSec    int
}

// MatchManager owns the standing world, the matchmaking queue and every
// match. A single lock-step ticker advances all worlds each tick.
type MatchManager struct {
	mu deadlock.Mutex

	cfg     *Config
	content *Content
	layout  *Layout
	rec     *Recorder
	log     *zap.Logger

	standing *Match
	pending  *Match
	matches  []*Match
	queue    []queueEntry
	seed     int64
}

var errWorldFull = errors.New("world is full")

// NewMatchManager creates the manager and its standing world, which runs
// ACTIVE with no duration from the start
func NewMatchManager(cfg *Config, content *Content, layout *Layout, rec *Recorder, log *zap.Logger) *MatchManager {
	mm := &MatchManager{
		cfg:     cfg,
		content: content,
		layout:  layout,
		rec:     rec,
		log:     log,
		seed:    nowMillis(),
	}
	id := GenerateID(4)
	mm.standing = &Match{
		ID:        id,
		Phase:     PhaseActive,
		StartedAt: nowMillis(),
		World:     NewWorld(id, content, layout, &cfg.Game, rec, log, mm.nextSeed()),
	}
	mm.matches = append(mm.matches, mm.standing)
	return mm
}

func (mm *MatchManager) nextSeed() int64 {
	mm.seed++
	return mm.seed
}

// Run drives the lock-step simulation ticker and the passive heal timer
// until the context is cancelled
func (mm *MatchManager) Run(ctx context.Context) {
	interval := time.Second / time.Duration(mm.cfg.Game.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	heal := time.NewTicker(mm.cfg.Game.PassiveHealEvery)
	defer heal.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mm.step(nowMillis())
		case <-heal.C:
			for _, w := range mm.activeWorlds() {
				w.PassiveHeal()
			}
		}
	}
}

// step advances lifecycle state for every match and then ticks all live
// worlds in parallel, waiting for the slowest before the next tick
func (mm *MatchManager) step(now int64) {
	mm.mu.Lock()
	mm.advancePending(now)
	mm.advanceMatches(now)
	worlds := make([]*World, 0, len(mm.matches))
	for _, m := range mm.matches {
		if m.Phase == PhaseActive {
			if m.EndsAt > 0 {
				m.World.SetTimeLeft(m.EndsAt - now)
			}
			worlds = append(worlds, m.World)
		}
	}
	mm.mu.Unlock()

	swg := sizedwaitgroup.New(runtime.NumCPU())
	for _, w := range worlds {
		swg.Add()
		go func(w *World) {
			defer swg.Done()
			w.Step(now)
		}(w)
	}
	swg.Wait()
}

// advancePending announces countdown progress and resolves the pending
// match when the countdown runs out. Caller holds mu.
func (mm *MatchManager) advancePending(now int64) {
	m := mm.pending
	if m == nil {
		return
	}
	left := m.CountdownEndsAt - now
	if left > 0 {
		sec := int((left + 999) / 1000)
		if sec != m.announcedSec {
			m.announcedSec = sec
			mm.notifyEntries(m, Envelope{T: MsgMatchCountdown, Data: MatchLifecycleMsg{MatchID: m.ID, Seconds: sec}})
		}
		return
	}
	mm.pending = nil
	if len(m.entries) >= mm.cfg.Match.MinPlayers {
		mm.activate(m, now)
		// Players who overflowed this match may already fill the next.
		if len(mm.queue) >= mm.cfg.Match.MinPlayers {
			mm.createPending(now)
		}
	} else {
		mm.cancel(m)
	}
}

// advanceMatches finishes expired matches and garbage-collects finished
// ones after the grace window. Caller holds mu.
func (mm *MatchManager) advanceMatches(now int64) {
	kept := mm.matches[:0]
	for _, m := range mm.matches {
		if m.Phase == PhaseActive && m.EndsAt > 0 && now >= m.EndsAt {
			mm.finish(m, now)
		}
		if m.Phase == PhaseFinished && now >= m.RemoveAt {
			mm.log.Info("match removed", zap.String("match", m.ID))
			continue
		}
		kept = append(kept, m)
	}
	mm.matches = kept
}

// JoinStanding puts a player straight into the standing world
func (mm *MatchManager) JoinStanding(c sessionClient, name, class string) (*World, *Player, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	w := mm.standing.World
	p := w.AddPlayer(name, class)
	if p == nil {
		return nil, nil, errWorldFull
	}
	w.SetClient(p.ID, c)
	return w, p, nil
}

// Enqueue adds a client to matchmaking. It lands in the pending countdown
// match when one has room, otherwise in the queue; the queue converts to a
// new countdown match once it holds enough players.
func (mm *MatchManager) Enqueue(c sessionClient, name, class string) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	now := nowMillis()
	e := queueEntry{c: c, name: name, class: class}
	if m := mm.pending; m != nil && len(m.entries) < mm.cfg.Match.Capacity {
		m.entries = append(m.entries, e)
		secs := int((m.CountdownEndsAt - now + 999) / 1000)
		c.SendJSON(Envelope{T: MsgMatchCreated, Data: MatchLifecycleMsg{MatchID: m.ID, Seconds: secs}})
		// A full roster skips the rest of the countdown.
		if len(m.entries) >= mm.cfg.Match.Capacity {
			mm.pending = nil
			mm.activate(m, now)
			if len(mm.queue) >= mm.cfg.Match.MinPlayers {
				mm.createPending(now)
			}
		}
		return
	}

	mm.queue = append(mm.queue, e)
	mm.notifyQueue()
	if mm.pending == nil && len(mm.queue) >= mm.cfg.Match.MinPlayers {
		mm.createPending(nowMillis())
	}
}

// Dequeue removes a client from the queue or from a pending match roster
func (mm *MatchManager) Dequeue(c sessionClient) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	for i, e := range mm.queue {
		if e.c == c {
			mm.queue = append(mm.queue[:i], mm.queue[i+1:]...)
			mm.notifyQueue()
			return
		}
	}
	if m := mm.pending; m != nil {
		for i, e := range m.entries {
			if e.c == c {
				m.entries = append(m.entries[:i], m.entries[i+1:]...)
				return
			}
		}
	}
}

// createPending moves up to Capacity queued players into a new countdown
// match. Caller holds mu.
func (mm *MatchManager) createPending(now int64) {
	n := len(mm.queue)
	if n > mm.cfg.Match.Capacity {
		n = mm.cfg.Match.Capacity
	}
	m := &Match{
		ID:              GenerateID(4),
		Phase:           PhaseCountdown,
		entries:         mm.queue[:n:n],
		CountdownEndsAt: now + mm.cfg.Match.Countdown.Milliseconds(),
	}
	mm.queue = append([]queueEntry(nil), mm.queue[n:]...)
	mm.pending = m
	mm.matches = append(mm.matches, m)
	mm.log.Info("match countdown", zap.String("match", m.ID), zap.Int("players", n))
	secs := int(mm.cfg.Match.Countdown.Seconds())
	mm.notifyEntries(m, Envelope{T: MsgMatchCreated, Data: MatchLifecycleMsg{MatchID: m.ID, Seconds: secs}})
	mm.notifyQueue()
}

// activate promotes a countdown match: builds its world, joins every
// remaining roster entry and announces the start. Caller holds mu.
func (mm *MatchManager) activate(m *Match, now int64) {
	m.Phase = PhaseActive
	m.StartedAt = now
	m.EndsAt = now + mm.cfg.Match.Duration.Milliseconds()
	m.World = NewWorld(m.ID, mm.content, mm.layout, &mm.cfg.Game, mm.rec, mm.log, mm.nextSeed())

	for _, e := range m.entries {
		p := m.World.AddPlayer(e.name, e.class)
		if p == nil {
			e.c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "match is full"}})
			continue
		}
		m.World.SetClient(p.ID, e.c)
		e.c.Bind(m.World, p)
		e.c.SendJSON(newWelcome(m.World, p, mm.cfg.Game.TickRate))
	}
	m.entries = nil

	mm.log.Info("match started", zap.String("match", m.ID))
	if mm.rec != nil {
		mm.rec.MatchStarted(m.ID, now)
	}
	m.World.broadcastAll(Envelope{T: MsgMatchStart, Data: MatchLifecycleMsg{
		MatchID: m.ID, Seconds: int(mm.cfg.Match.Duration.Seconds()),
	}})
}

// cancel aborts a countdown that ended below the player minimum, returning
// its roster to the queue head. Caller holds mu.
func (mm *MatchManager) cancel(m *Match) {
	m.Phase = PhaseFinished
	m.RemoveAt = 0
	mm.notifyEntries(m, Envelope{T: MsgMatchCancelled, Data: MatchLifecycleMsg{MatchID: m.ID}})
	mm.log.Info("match cancelled", zap.String("match", m.ID), zap.Int("players", len(m.entries)))

	mm.queue = append(append([]queueEntry(nil), m.entries...), mm.queue...)
	m.entries = nil
	mm.notifyQueue()
	if len(mm.queue) >= mm.cfg.Match.MinPlayers {
		mm.createPending(nowMillis())
	}
}

// finish closes out an expired match: final board, persistence, and a
// grace window before removal. Caller holds mu.
func (mm *MatchManager) finish(m *Match, now int64) {
	m.Phase = PhaseFinished
	m.RemoveAt = now + mm.cfg.Match.FinishedGrace.Milliseconds()

	board := m.World.Leaderboard()
	if mm.rec != nil {
		mm.rec.MatchFinished(m.ID, now, board)
	}
	mm.log.Info("match finished", zap.String("match", m.ID))
	m.World.broadcastAll(Envelope{T: MsgMatchFinished, Data: MatchLifecycleMsg{
		MatchID: m.ID, Board: board,
	}})
	m.World.UnbindAll()
}

// notifyEntries sends a message to every roster entry of a countdown match
func (mm *MatchManager) notifyEntries(m *Match, msg Envelope) {
	for _, e := range m.entries {
		e.c.SendJSON(msg)
	}
}

// notifyQueue sends each queued client its current position
func (mm *MatchManager) notifyQueue() {
	size := len(mm.queue)
	for i, e := range mm.queue {
		e.c.SendJSON(Envelope{T: MsgQueueUpdate, Data: QueueUpdateMsg{
			Position: i + 1, Size: size, Needed: mm.cfg.Match.MinPlayers,
		}})
	}
}

// activeWorlds snapshots the worlds that should receive aux timers
func (mm *MatchManager) activeWorlds() []*World {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	out := make([]*World, 0, len(mm.matches))
	for _, m := range mm.matches {
		if m.Phase == PhaseActive {
			out = append(out, m.World)
		}
	}
	return out
}

// MatchCount reports matches by phase for the stats endpoint
func (mm *MatchManager) MatchCount() (active, countdown, queued int) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for _, m := range mm.matches {
		switch m.Phase {
		case PhaseActive:
			active++
		case PhaseCountdown:
			countdown++
		}
	}
	return active, countdown, len(mm.queue)
}

// newWelcome builds the one-time world entry message
func newWelcome(w *World, p *Player, tickRate int) Envelope {
	return Envelope{T: MsgWelcome, Data: WelcomeMsg{
		ID:       p.ID,
		MatchID:  w.MatchID,
		HalfSize: w.HalfSize(),
		TickRate: tickRate,
		Walls:    w.Walls(),
		SpawnX:   roundi(p.X),
		SpawnY:   roundi(p.Y),
		Class:    p.Class.Name,
	}}
}
