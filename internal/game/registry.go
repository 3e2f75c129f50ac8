package game

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-samud/internal/storage"
)

// Notifier delivers system notices on behalf of the registry. The broadcast
// layer implements it; keeping it as an interface here avoids a dependency
// cycle with the transport.
type Notifier interface {
	SystemToRoom(roomId, message string, exclude ...string)
	SystemToAll(message string)
}

type noopNotifier struct{}

func (noopNotifier) SystemToRoom(string, string, ...string) {}
func (noopNotifier) SystemToAll(string)                     {}

// Registry tracks the logged-in players and owns the lifecycle around them:
// room placement, duplicate-login eviction, idle enforcement, and persistence
// of where everyone is.
type Registry struct {
	mu      sync.Mutex
	players map[string]*Player

	world        *World
	notifier     Notifier
	playerStore  storage.Storer[*PlayerRecord]
	sessionStore storage.Storer[*SessionRecord]
}

func NewRegistry(world *World, playerStore storage.Storer[*PlayerRecord], sessionStore storage.Storer[*SessionRecord]) *Registry {
	return &Registry{
		players:      map[string]*Player{},
		world:        world,
		notifier:     noopNotifier{},
		playerStore:  playerStore,
		sessionStore: sessionStore,
	}
}

// SetNotifier wires the broadcast layer in after construction. The broadcaster
// needs the registry to resolve recipients, so this runs as a second phase.
func (r *Registry) SetNotifier(n Notifier) {
	r.notifier = n
}

// Add registers a logged-in player and places them in the world. If the same
// account is already online the old session is evicted first. Room resolution
// order: the explicit argument, then the persisted record, then the world's
// starting room.
func (r *Registry) Add(username string, conn Conn, ip string, roomId string) *Player {
	id := strings.ToLower(username)
	now := time.Now()

	r.mu.Lock()

	if old, ok := r.players[id]; ok {
		r.evictLocked(old)
	}

	p := NewPlayer(id, username, conn)
	p.sessionId = uuid.NewString()

	rec := r.playerStore.Get(id)
	switch {
	case roomId != "" && r.world.GetRoom(roomId) != nil:
	case rec != nil && r.world.GetRoom(rec.CurrentRoom) != nil:
		roomId = rec.CurrentRoom
	default:
		roomId = r.world.StartingRoom()
	}
	p.setRoom(roomId)

	r.players[id] = p
	r.world.PlacePlayer(id, roomId)
	r.mu.Unlock()

	if rec != nil {
		rec.CurrentRoom = roomId
		rec.LastLogin = now
		if err := r.playerStore.Save(id, rec); err != nil {
			slog.Error("saving player record", "player", id, "error", err)
		}
	}

	r.endActiveSessions(id, now)
	err := r.sessionStore.Save(p.sessionId, &SessionRecord{
		PlayerId:  id,
		IP:        ip,
		Active:    true,
		StartedAt: now,
	})
	if err != nil {
		slog.Error("saving session record", "player", id, "error", err)
	}

	slog.Info("player joined", "player", id, "room", roomId, "ip", ip)
	return p
}

// evictLocked kicks an already-online session for the same account. Called
// with the registry lock held; the evicted connection's own teardown becomes
// a no-op because it no longer owns the registry entry.
func (r *Registry) evictLocked(old *Player) {
	roomId := old.Room()
	r.world.RemovePlayer(old.Id, roomId)
	delete(r.players, old.Id)

	old.sess.Send("\n[System] You have been disconnected (logged in from another location).")
	old.sess.Kick()

	go r.notifier.SystemToRoom(roomId, fmt.Sprintf("%s has disconnected.", old.Username), old.Id)
	slog.Info("duplicate login, kicked old session", "player", old.Id)
}

// Remove takes a player out of the game. The conn argument must be the
// session that owns the entry; a stale teardown after a duplicate-login kick
// does nothing. Safe to call more than once.
func (r *Registry) Remove(id string, conn Conn) {
	r.mu.Lock()
	p, ok := r.players[id]
	if !ok || p.sess != conn {
		r.mu.Unlock()
		return
	}
	delete(r.players, id)
	roomId := p.Room()
	r.world.RemovePlayer(id, roomId)
	r.mu.Unlock()

	if rec := r.playerStore.Get(id); rec != nil {
		rec.CurrentRoom = roomId
		if err := r.playerStore.Save(id, rec); err != nil {
			slog.Error("saving player record", "player", id, "error", err)
		}
	}
	r.endActiveSessions(id, time.Now())

	r.notifier.SystemToRoom(roomId, fmt.Sprintf("%s has disconnected.", p.Username), id)
	slog.Info("player left", "player", id)
}

func (r *Registry) endActiveSessions(playerId string, now time.Time) {
	for sid, rec := range r.sessionStore.GetAll() {
		if rec.PlayerId != playerId || !rec.Active {
			continue
		}
		rec.Active = false
		rec.EndedAt = now
		if err := r.sessionStore.Save(sid, rec); err != nil {
			slog.Error("ending session record", "session", sid, "error", err)
		}
	}
}

// MovePlayer relocates a player and sends the exit and entry notices. The
// direction argument is the exit the player took; empty means a teleport-style
// move like login placement.
func (r *Registry) MovePlayer(p *Player, toId, direction string) {
	fromId := p.Room()
	r.world.MovePlayer(p.Id, fromId, toId)
	p.setRoom(toId)

	if rec := r.playerStore.Get(p.Id); rec != nil {
		rec.CurrentRoom = toId
		if err := r.playerStore.Save(p.Id, rec); err != nil {
			slog.Error("saving player record", "player", p.Id, "error", err)
		}
	}

	arrivalDir := ""
	if direction != "" {
		arrivalDir = Opposite(direction)
	} else if dir, ok := r.world.DirectionBetween(toId, fromId); ok {
		arrivalDir = dir
	}

	if fromId != "" && fromId != toId {
		exitMsg := fmt.Sprintf("%s has left.", p.Username)
		if direction != "" {
			exitMsg = fmt.Sprintf("%s heads %s.", p.Username, direction)
		}
		r.notifier.SystemToRoom(fromId, exitMsg, p.Id)
	}

	entryMsg := fmt.Sprintf("%s has arrived.", p.Username)
	if arrivalDir != "" {
		entryMsg = fmt.Sprintf("%s arrives from the %s.", p.Username, arrivalDir)
	}
	r.notifier.SystemToRoom(toId, entryMsg, p.Id)

	slog.Debug("player moved", "player", p.Id, "from", fromId, "to", toId)
}

func (r *Registry) Get(id string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.players[strings.ToLower(id)]
}

// PlayersInRoom returns the players currently in a room, sorted by username.
func (r *Registry) PlayersInRoom(roomId string) []*Player {
	ids := r.world.PlayersIn(roomId)

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.players[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Online returns all logged-in players, sorted by username.
func (r *Registry) Online() []*Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (r *Registry) OnlineCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// CheckIdle warns players approaching the idle timeout and kicks those past
// it. The warning is sent once; any input clears it.
func (r *Registry) CheckIdle(now time.Time) {
	for _, p := range r.Online() {
		idle := now.Sub(p.LastActivity())

		switch {
		case idle > IdleTimeout:
			p.sess.Send("\n[System] You have been disconnected due to inactivity.")
			p.sess.Kick()
			slog.Info("player kicked for inactivity", "player", p.Id)
		case idle > IdleWarningTime:
			p.mu.Lock()
			warned := p.idleWarned
			p.idleWarned = true
			p.mu.Unlock()
			if !warned {
				p.sess.Send("\n[System] You will be disconnected in 5 minutes due to inactivity.")
			}
		}
	}
}
