package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin        = "join"
	MsgQueue       = "queue"
	MsgQueueCancel = "queue_cancel"
	MsgLeave       = "leave"
	MsgInput       = "input"
	MsgCast        = "cast"
	MsgChat        = "chat"
	MsgPing        = "ping"
)

// Server -> Client message types
const (
	MsgWelcome        = "welcome"
	MsgSnapshot       = "snapshot"
	MsgPong           = "pong"
	MsgReject         = "reject"
	MsgChatOut        = "chat"
	MsgChatBlocked    = "chat_blocked"
	MsgMobHurt        = "mob_hurt"
	MsgMobDied        = "mob_died"
	MsgPlayerHurt     = "player_hurt"
	MsgPlayerDied     = "player_died"
	MsgPlayerHealed   = "player_healed"
	MsgPlayerLevelup  = "player_levelup"
	MsgStun           = "stun"
	MsgCastEffect     = "cast_effect"
	MsgQueueUpdate    = "queue_update"
	MsgMatchCreated   = "match_created"
	MsgMatchCountdown = "match_countdown"
	MsgMatchStart     = "match_start"
	MsgMatchCancelled = "match_cancelled"
	MsgMatchFinished  = "match_finished"
	MsgError          = "error"
)

// Rejection reasons for invalid game actions
const (
	RejectCooldown      = "cooldown"
	RejectNoTarget      = "no_target"
	RejectInvalidTarget = "invalid_target"
	RejectDead          = "dead"
	RejectBadSlot       = "bad_slot"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope decodes incoming messages in a single pass: json.RawMessage
// avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg asks to join the default world (or, via queue, matchmaking)
type JoinMsg struct {
	Name  string `json:"name"`
	Class string `json:"class"`
	Codec string `json:"codec,omitempty"` // "" = json, "msgpack" = binary snapshots
}

// InputMsg is the staged movement intent, a normalized direction vector
type InputMsg struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CastMsg requests an ability cast on one of the four slots
type CastMsg struct {
	Slot     int     `json:"slot"` // 1..4
	Class    string  `json:"class,omitempty"`
	TargetID string  `json:"target,omitempty"`
	Angle    float64 `json:"angle,omitempty"`
	AimX     float64 `json:"ax,omitempty"`
	AimY     float64 `json:"ay,omitempty"`
	HasAim   bool    `json:"aim,omitempty"`
}

// ChatMsg carries a chat line in either direction
type ChatMsg struct {
	From string `json:"from,omitempty"`
	Text string `json:"text"`
}

// PingMsg echoes the client's own timestamp back as a pong
type PingMsg struct {
	T int64 `json:"t"`
}

// RejectMsg names the reason an action was refused
type RejectMsg struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
	Slot   int    `json:"slot,omitempty"`
}

// WelcomeMsg is sent once when a player enters a world
type WelcomeMsg struct {
	ID       string  `json:"id"`
	MatchID  string  `json:"mid"`
	HalfSize float64 `json:"half"`
	TickRate int     `json:"rate"`
	Walls    []Wall  `json:"walls"`
	SpawnX   int     `json:"sx"`
	SpawnY   int     `json:"sy"`
	Class    string  `json:"class"`
}

// PlayerSnap is the integer-rounded per-player snapshot entry
type PlayerSnap struct {
	ID     string `json:"id" msgpack:"id"`
	Name   string `json:"n" msgpack:"n"`
	Class  string `json:"c" msgpack:"c"`
	X      int    `json:"x" msgpack:"x"`
	Y      int    `json:"y" msgpack:"y"`
	HP     int    `json:"hp" msgpack:"hp"`
	MaxHP  int    `json:"mhp" msgpack:"mhp"`
	Level  int    `json:"lvl" msgpack:"lvl"`
	XP     int    `json:"xp" msgpack:"xp"`
	NextXP int    `json:"nxp" msgpack:"nxp"`
	Gold   int    `json:"g" msgpack:"g"`
	Alive  bool   `json:"a" msgpack:"a"`
	Stun   bool   `json:"st,omitempty" msgpack:"st"`
	Invuln bool   `json:"iv,omitempty" msgpack:"iv"`
}

// MobSnap is the per-mob snapshot entry; dead mobs are absent
type MobSnap struct {
	ID    string `json:"id" msgpack:"id"`
	Type  string `json:"ty" msgpack:"ty"`
	X     int    `json:"x" msgpack:"x"`
	Y     int    `json:"y" msgpack:"y"`
	HP    int    `json:"hp" msgpack:"hp"`
	MaxHP int    `json:"mhp" msgpack:"mhp"`
	Stun  bool   `json:"st,omitempty" msgpack:"st"`
}

// ProjSnap is the per-projectile snapshot entry
type ProjSnap struct {
	ID    string `json:"id" msgpack:"id"`
	Owner string `json:"o" msgpack:"o"`
	Skill string `json:"sk" msgpack:"sk"`
	X     int    `json:"x" msgpack:"x"`
	Y     int    `json:"y" msgpack:"y"`
}

// BoardEntry is one leaderboard row, sorted by kills
type BoardEntry struct {
	ID     string `json:"id" msgpack:"id"`
	Name   string `json:"n" msgpack:"n"`
	Kills  int    `json:"k" msgpack:"k"`
	Deaths int    `json:"d" msgpack:"d"`
	Level  int    `json:"lvl" msgpack:"lvl"`
}

// SnapshotMsg is the periodic full state broadcast
type SnapshotMsg struct {
	Tick        uint64       `json:"tick" msgpack:"tick"`
	Players     []PlayerSnap `json:"p" msgpack:"p"`
	Mobs        []MobSnap    `json:"m" msgpack:"m"`
	Projectiles []ProjSnap   `json:"pr" msgpack:"pr"`
	Board       []BoardEntry `json:"lb,omitempty" msgpack:"lb"`
	TimeLeftMs  int64        `json:"tl,omitempty" msgpack:"tl"`
}

// MobHurtMsg is broadcast when a mob takes damage
type MobHurtMsg struct {
	ID     string `json:"id"`
	HP     int    `json:"hp"`
	Damage int    `json:"dmg"`
	By     string `json:"by,omitempty"`
}

// MobDiedMsg is broadcast when a mob dies, naming the credited killer
type MobDiedMsg struct {
	ID     string `json:"id"`
	Type   string `json:"ty"`
	Killer string `json:"by,omitempty"`
	Gold   int    `json:"g"`
	XP     int    `json:"xp"`
}

// PlayerHurtMsg is broadcast when a player takes non-lethal damage
type PlayerHurtMsg struct {
	ID     string `json:"id"`
	HP     int    `json:"hp"`
	Damage int    `json:"dmg"`
	By     string `json:"by,omitempty"`
}

// PlayerDiedMsg is broadcast on player death
type PlayerDiedMsg struct {
	ID       string `json:"id"`
	Killer   string `json:"by,omitempty"`
	GoldLost int    `json:"gl,omitempty"`
}

// PlayerHealedMsg is broadcast on passive healing
type PlayerHealedMsg struct {
	ID     string `json:"id"`
	HP     int    `json:"hp"`
	Amount int    `json:"amt"`
}

// LevelUpMsg summarizes every level gained by one XP award
type LevelUpMsg struct {
	ID       string `json:"id"`
	Level    int    `json:"lvl"`
	Levels   int    `json:"n"`
	HPGained int    `json:"hp"`
}

// StunMsg announces a stun applied to an entity
type StunMsg struct {
	Kind string `json:"kind"` // "player" or "mob"
	ID   string `json:"id"`
	Ms   int64  `json:"ms"`
}

// CastEffectMsg is broadcast for every successful cast, hit or miss, so
// clients can render the animation
type CastEffectMsg struct {
	CasterID   string  `json:"id"`
	CasterName string  `json:"n"`
	Skill      string  `json:"sk"`
	Kind       string  `json:"kind"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Angle      float64 `json:"ang,omitempty"`
	Radius     int     `json:"r,omitempty"`
	TargetID   string  `json:"tgt,omitempty"`
}

// QueueUpdateMsg reports matchmaking queue position
type QueueUpdateMsg struct {
	Position int `json:"pos"`
	Size     int `json:"size"`
	Needed   int `json:"need"`
}

// MatchLifecycleMsg covers the match_* event family
type MatchLifecycleMsg struct {
	MatchID   string       `json:"mid"`
	Seconds   int          `json:"sec,omitempty"`
	Board     []BoardEntry `json:"lb,omitempty"`
}

// ErrorMsg is a generic server-error notice for one connection
type ErrorMsg struct {
	Msg string `json:"msg"`
}
