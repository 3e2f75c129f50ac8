package game

import (
	"sync"
	"time"
)

const (
	MessageRateLimit  = 5
	MessageRateWindow = 10 * time.Second

	IdleTimeout     = 30 * time.Minute
	IdleWarningTime = IdleTimeout - 5*time.Minute
)

// Conn is the session-side surface a Player holds. Send must be safe to call
// from any goroutine; Kick must be idempotent.
type Conn interface {
	Send(msg string)
	Kick()
	Active() bool
}

// Player is the in-memory state of one logged-in account.
type Player struct {
	Id       string
	Username string

	sess      Conn
	sessionId string

	mu           sync.Mutex
	roomId       string
	lastActivity time.Time
	msgTimes     []time.Time
	idleWarned   bool
}

func NewPlayer(id, username string, sess Conn) *Player {
	return &Player{
		Id:           id,
		Username:     username,
		sess:         sess,
		lastActivity: time.Now(),
	}
}

func (p *Player) Conn() Conn {
	return p.sess
}

func (p *Player) Room() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roomId
}

func (p *Player) setRoom(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roomId = id
}

// MarkActive records player input, resetting the idle clock and any pending
// idle warning.
func (p *Player) MarkActive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastActivity = time.Now()
	p.idleWarned = false
}

func (p *Player) LastActivity() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastActivity
}

// AllowMessage reports whether the player may send another chat message under
// the sliding-window rate limit. A successful call counts against the window.
func (p *Player) AllowMessage(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.msgTimes[:0]
	for _, t := range p.msgTimes {
		if now.Sub(t) < MessageRateWindow {
			kept = append(kept, t)
		}
	}
	p.msgTimes = kept

	if len(p.msgTimes) >= MessageRateLimit {
		return false
	}

	p.msgTimes = append(p.msgTimes, now)
	return true
}
