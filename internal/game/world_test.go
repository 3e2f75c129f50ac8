package game

import (
	"reflect"
	"testing"
)

func newTestRoom(id, name string, exits map[string]string) *Room {
	r := NewRoom(id, name, "A test room.")
	for dir, target := range exits {
		r.Exits[dir] = target
	}
	return r
}

func newTestWorld() *World {
	rooms := map[string]*Room{
		"plaza":  newTestRoom("plaza", "The Plaza", map[string]string{"north": "cantina", "east": "riverwalk"}),
		"cantina": newTestRoom("cantina", "The Cantina", map[string]string{"south": "plaza"}),
		"riverwalk": newTestRoom("riverwalk", "The Riverwalk", map[string]string{"west": "plaza"}),
	}
	return NewWorld(rooms, "plaza")
}

func TestOpposite(t *testing.T) {
	tests := map[string]struct {
		direction string
		exp       string
	}{
		"north":            {direction: "north", exp: "south"},
		"south":            {direction: "south", exp: "north"},
		"east":             {direction: "east", exp: "west"},
		"up":               {direction: "up", exp: "down"},
		"northeast":        {direction: "northeast", exp: "southwest"},
		"custom direction": {direction: "inside", exp: "inside"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := Opposite(tt.direction)
			if got != tt.exp {
				t.Errorf("got %q, expected %q", got, tt.exp)
			}
		})
	}
}

func TestKnownOpposite(t *testing.T) {
	tests := map[string]struct {
		direction string
		exp       string
		expKnown  bool
	}{
		"known direction": {
			direction: "west",
			exp:       "east",
			expKnown:  true,
		},
		"diagonal direction": {
			direction: "southeast",
			exp:       "northwest",
			expKnown:  true,
		},
		"custom direction": {
			direction: "portal",
			exp:       "",
			expKnown:  false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, known := KnownOpposite(tt.direction)
			if known != tt.expKnown {
				t.Errorf("known: got %v, expected %v", known, tt.expKnown)
			}
			if got != tt.exp {
				t.Errorf("got %q, expected %q", got, tt.exp)
			}
		})
	}
}

func TestWorld_MovePlayer(t *testing.T) {
	w := newTestWorld()
	w.PlacePlayer("alice", "plaza")

	w.MovePlayer("alice", "plaza", "cantina")

	if got := w.PlayersIn("plaza"); len(got) != 0 {
		t.Errorf("expected plaza empty, got %v", got)
	}
	if got := w.PlayersIn("cantina"); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Errorf("expected alice in cantina, got %v", got)
	}
}

func TestWorld_MovePlayer_UnknownRooms(t *testing.T) {
	w := newTestWorld()
	w.PlacePlayer("alice", "plaza")

	// Missing target drops the player from occupancy without panicking.
	w.MovePlayer("alice", "plaza", "void")

	if got := w.PlayersIn("plaza"); len(got) != 0 {
		t.Errorf("expected plaza empty, got %v", got)
	}
}

func TestWorld_PlacePlayer_UnknownRoom(t *testing.T) {
	w := newTestWorld()

	w.PlacePlayer("alice", "void")

	if got := w.PlayersIn("void"); got != nil {
		t.Errorf("expected nil for unknown room, got %v", got)
	}
}

func TestWorld_PlayersIn_Sorted(t *testing.T) {
	w := newTestWorld()
	w.PlacePlayer("zed", "plaza")
	w.PlacePlayer("alice", "plaza")
	w.PlacePlayer("mira", "plaza")

	got := w.PlayersIn("plaza")
	exp := []string{"alice", "mira", "zed"}
	if !reflect.DeepEqual(got, exp) {
		t.Errorf("got %v, expected %v", got, exp)
	}
}

func TestWorld_MoveNPC(t *testing.T) {
	w := newTestWorld()
	w.PlaceNPC("barkeep", "cantina")

	w.MoveNPC("barkeep", "cantina", "plaza")

	if got := w.NPCsIn("cantina"); len(got) != 0 {
		t.Errorf("expected cantina empty, got %v", got)
	}
	if got := w.NPCsIn("plaza"); !reflect.DeepEqual(got, []string{"barkeep"}) {
		t.Errorf("expected barkeep in plaza, got %v", got)
	}
}

func TestWorld_DirectionBetween(t *testing.T) {
	tests := map[string]struct {
		from     string
		to       string
		expDir   string
		expFound bool
	}{
		"connected rooms": {
			from:     "plaza",
			to:       "cantina",
			expDir:   "north",
			expFound: true,
		},
		"reverse connection": {
			from:     "cantina",
			to:       "plaza",
			expDir:   "south",
			expFound: true,
		},
		"no connection": {
			from:     "cantina",
			to:       "riverwalk",
			expFound: false,
		},
		"unknown origin": {
			from:     "void",
			to:       "plaza",
			expFound: false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := newTestWorld()
			dir, found := w.DirectionBetween(tt.from, tt.to)
			if found != tt.expFound {
				t.Errorf("found: got %v, expected %v", found, tt.expFound)
			}
			if dir != tt.expDir {
				t.Errorf("direction: got %q, expected %q", dir, tt.expDir)
			}
		})
	}
}

func TestRoom_ExitList(t *testing.T) {
	tests := map[string]struct {
		exits map[string]string
		exp   string
	}{
		"no exits": {
			exits: nil,
			exp:   "none",
		},
		"single exit": {
			exits: map[string]string{"north": "cantina"},
			exp:   "north",
		},
		"multiple exits sorted": {
			exits: map[string]string{"west": "a", "east": "b", "north": "c"},
			exp:   "east, north, west",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := newTestRoom("test", "Test", tt.exits)
			got := r.ExitList()
			if got != tt.exp {
				t.Errorf("got %q, expected %q", got, tt.exp)
			}
		})
	}
}
