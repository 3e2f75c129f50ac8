package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/pixil98/go-samud/internal/auth"
	"github.com/pixil98/go-samud/internal/broadcast"
	"github.com/pixil98/go-samud/internal/commands"
	"github.com/pixil98/go-samud/internal/display"
	"github.com/pixil98/go-samud/internal/game"
	"github.com/pixil98/go-samud/internal/messaging"
)

const welcomeBanner = `
================================================================
           Welcome to the San Antonio MUD (SAMUD)

   Experience the Alamo City through text-based adventure!

   Commands:
   * 'login' - Log in to existing account
   * 'signup' - Create a new account
   * 'help' - Show available commands
   * 'quit' - Disconnect from the server
================================================================

Type 'login' or 'signup' to begin your adventure!
`

const preAuthHelp = `
Available commands before login:
  login  - Log into an existing account
  signup - Create a new account
  help   - Show this help message
  quit   - Disconnect from the server
`

// Subscriber is the bus surface a session uses to receive its messages.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

// Manager drives the conversation with each connected client, from welcome
// banner through authentication to the command loop and teardown.
type Manager struct {
	world      *game.World
	reg        *game.Registry
	auth       *auth.Manager
	dispatcher *commands.Dispatcher
	bc         *broadcast.Broadcaster
	npcs       commands.NPCEngine
	bus        Subscriber

	maxConnections int64
	connCount      atomic.Int64
}

func NewManager(world *game.World, reg *game.Registry, am *auth.Manager,
	dispatcher *commands.Dispatcher, bc *broadcast.Broadcaster,
	npcs commands.NPCEngine, bus Subscriber, maxConnections int) *Manager {
	return &Manager{
		world:          world,
		reg:            reg,
		auth:           am,
		dispatcher:     dispatcher,
		bc:             bc,
		npcs:           npcs,
		bus:            bus,
		maxConnections: int64(maxConnections),
	}
}

// Run owns one client session for its whole life. It returns when the client
// quits, disconnects, idles out, or is kicked.
func (m *Manager) Run(ctx context.Context, sess *Session) error {
	defer sess.Kick()

	count := m.connCount.Add(1)
	defer m.connCount.Add(-1)
	if m.maxConnections > 0 && count > m.maxConnections {
		sess.Send("Server is full. Please try again later.\n")
		return nil
	}

	slog.InfoContext(ctx, "client connected", "remote", sess.RemoteAddr())

	sess.Negotiate()
	sess.Send(welcomeBanner)

	username, ok := m.preAuthLoop(ctx, sess)
	if !ok {
		slog.InfoContext(ctx, "client disconnected before login", "remote", sess.RemoteAddr())
		return nil
	}

	return m.gameLoop(ctx, sess, username)
}

// preAuthLoop handles the welcome screen until the client authenticates or
// leaves. Returns the username and true once authenticated.
func (m *Manager) preAuthLoop(ctx context.Context, sess *Session) (string, bool) {
	for sess.Active() && ctx.Err() == nil {
		sess.Prompt()
		line, ok := sess.ReadLine(true)
		if !ok {
			return "", false
		}

		switch strings.ToLower(line) {
		case "login":
			if username, ok := m.auth.Login(sess); ok {
				return username, true
			}
		case "signup":
			if username, ok := m.auth.Signup(sess); ok {
				return username, true
			}
		case "help":
			sess.Send(preAuthHelp)
		case "quit", "exit":
			sess.Send("Goodbye!\n")
			return "", false
		case "":
		default:
			sess.Send("Please type 'login' or 'signup' to begin.\n")
		}
	}
	return "", false
}

func (m *Manager) gameLoop(ctx context.Context, sess *Session, username string) error {
	id := strings.ToLower(username)

	if m.reg.Get(id) != nil {
		sess.Send("This account is already logged in. Disconnecting other session...\n")
	}

	p := m.reg.Add(username, sess, sess.RemoteAddr(), "")

	m.bc.AnnounceConnection(p.Username, true)

	unsubscribe, err := m.bus.Subscribe(messaging.PlayerSubject(id), func(data []byte) {
		sess.Send("\n" + string(data) + "\n")
	})
	if err != nil {
		m.reg.Remove(id, sess)
		return fmt.Errorf("subscribing player channel: %w", err)
	}
	defer unsubscribe()
	// A stale teardown after a duplicate-login kick must not announce a
	// departure; the account is still online on its new session.
	defer func() {
		if m.reg.Get(id) == nil {
			m.bc.AnnounceConnection(p.Username, false)
		}
	}()
	defer m.reg.Remove(id, sess)

	m.showArrival(sess, p)
	m.npcs.HandlePlayerArrival(p.Username, p.Room())

	for sess.Active() && ctx.Err() == nil {
		sess.Prompt()
		line, ok := sess.ReadLine(true)
		if !ok {
			break
		}
		if line == "" {
			continue
		}

		if quit := m.dispatcher.Dispatch(p, sess.Send, line); quit {
			break
		}
	}

	slog.InfoContext(ctx, "client session ended", "player", id, "remote", sess.RemoteAddr())
	return nil
}

func (m *Manager) showArrival(sess *Session, p *game.Player) {
	room := m.world.GetRoom(p.Room())
	if room != nil {
		sess.Send(fmt.Sprintf("\nYou appear at %s.\n", room.Name))
		if room.Art != "" {
			sess.Send(room.Art + "\n")
		}
		sess.Send(display.Wrap(room.Description) + "\n")
		sess.Send(fmt.Sprintf("Exits: %s\n", room.ExitList()))

		var names []string
		for _, other := range m.reg.PlayersInRoom(p.Room()) {
			if other.Id != p.Id {
				names = append(names, other.Username)
			}
		}
		if len(names) > 0 {
			sess.Send(fmt.Sprintf("Players here: %s\n", strings.Join(names, ", ")))
		}
	}
	sess.Send("\nType 'help' for a list of commands.\n")
}
