package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-samud/internal/auth"
	"github.com/pixil98/go-samud/internal/broadcast"
	"github.com/pixil98/go-samud/internal/commands"
	"github.com/pixil98/go-samud/internal/game"
	"github.com/pixil98/go-samud/internal/storage"
)

// fakeBus stands in for the message bus. Publishes are delivered
// synchronously to the matching subscriber.
type fakeBus struct {
	mu       sync.Mutex
	handlers map[string]func(data []byte)
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: map[string]func([]byte){}}
}

func (b *fakeBus) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, subject)
	}, nil
}

func (b *fakeBus) Publish(subject string, data []byte) error {
	b.mu.Lock()
	handler := b.handlers[subject]
	b.mu.Unlock()
	if handler != nil {
		handler(data)
	}
	return nil
}

type memStore[T storage.ValidatingSpec] struct {
	mu      sync.Mutex
	records map[string]T
}

func newMemStore[T storage.ValidatingSpec]() *memStore[T] {
	return &memStore[T]{records: map[string]T{}}
}

func (s *memStore[T]) Save(id string, o T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = o
	return nil
}

func (s *memStore[T]) Get(id string) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

func (s *memStore[T]) GetAll() map[string]T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]T{}
	for id, v := range s.records {
		out[id] = v
	}
	return out
}

func (s *memStore[T]) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

type noopNPCs struct{}

func (noopNPCs) ProcessRoomMessage(string, string, string)    {}
func (noopNPCs) HandlePlayerArrival(string, string)           {}
func (noopNPCs) HandlePlayerDeparture(string, string, string) {}

type loopFixture struct {
	m       *Manager
	reg     *game.Registry
	players *memStore[*game.PlayerRecord]
}

func newLoopFixture() *loopFixture {
	rooms := map[string]*game.Room{
		"plaza": game.NewRoom("plaza", "The Plaza", "A busy plaza."),
	}
	world := game.NewWorld(rooms, "plaza")
	players := newMemStore[*game.PlayerRecord]()
	reg := game.NewRegistry(world, players, newMemStore[*game.SessionRecord]())
	bus := newFakeBus()
	bc := broadcast.New(world, reg, bus)
	reg.SetNotifier(bc)
	disp := commands.NewDispatcher(world, reg, bc)
	m := NewManager(world, reg, auth.NewManager(players), disp, bc, noopNPCs{}, bus, 0)
	return &loopFixture{m: m, reg: reg, players: players}
}

// client is one connection driven through the manager on its own goroutine.
type client struct {
	wire *fakeWire
	done chan error
}

func (f *loopFixture) connect() *client {
	c := &client{wire: newFakeWire(), done: make(chan error, 1)}
	sess := NewPlain(c.wire, "test")
	go func() { c.done <- f.m.Run(context.Background(), sess) }()
	return c
}

func (c *client) signup(username, password string) {
	c.wire.feed("signup\r\n" + username + "\r\n" + password + "\r\n" + password + "\r\n")
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestManagerRun_TwoPlayers(t *testing.T) {
	f := newLoopFixture()

	bob := f.connect()
	bob.signup("Bob", "hunter22")
	waitFor(t, "bob to log in", func() bool { return f.reg.Get("bob") != nil })

	out := bob.wire.output()
	if !strings.Contains(out, "Welcome to the San Antonio MUD") {
		t.Errorf("missing welcome banner: %q", out)
	}
	if !strings.Contains(out, "You appear at The Plaza.") {
		t.Errorf("missing room placement: %q", out)
	}

	alice := f.connect()
	alice.signup("Alice", "hunter22")
	waitFor(t, "alice to log in", func() bool { return f.reg.Get("alice") != nil })

	if rec := f.players.Get("alice"); rec == nil || rec.Username != "Alice" {
		t.Fatalf("expected persisted account, got %+v", rec)
	}

	waitFor(t, "join announcement at bob", func() bool {
		return strings.Contains(bob.wire.output(), "[System] Alice has joined the game.")
	})

	alice.wire.feed("say howdy neighbor\r\n")
	waitFor(t, "room message at bob", func() bool {
		return strings.Contains(bob.wire.output(), "[Room] Alice: howdy neighbor")
	})
	if !strings.Contains(alice.wire.output(), "[Room] Alice: howdy neighbor") {
		t.Error("sender should see their own message")
	}

	alice.wire.feed("quit\r\n")
	select {
	case <-alice.done:
	case <-time.After(5 * time.Second):
		t.Fatal("alice session did not end")
	}
	if f.reg.Get("alice") != nil {
		t.Error("expected alice removed on quit")
	}
	waitFor(t, "departure notice at bob", func() bool {
		return strings.Contains(bob.wire.output(), "Alice has disconnected.")
	})

	bob.wire.disconnect()
	select {
	case <-bob.done:
	case <-time.After(5 * time.Second):
		t.Fatal("bob session did not end")
	}
}

func TestManagerRun_QuitBeforeLogin(t *testing.T) {
	f := newLoopFixture()

	c := f.connect()
	c.wire.feed("quit\r\n")

	select {
	case err := <-c.done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
	}
	if !strings.Contains(c.wire.output(), "Goodbye!") {
		t.Errorf("got %q", c.wire.output())
	}
}
