package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/pixil98/go-samud/internal/game"
)

type zonesFile struct {
	Settings zoneSettings `yaml:"settings"`
	Zones    []zoneEntry  `yaml:"zones"`
}

type zoneSettings struct {
	StartingRoom        string `yaml:"starting_room"`
	DefaultDescription  string `yaml:"default_description"`
	ValidateConnections *bool  `yaml:"validate_connections"`
}

type zoneEntry struct {
	Id        string `yaml:"id"`
	File      string `yaml:"file"`
	LoadOrder int    `yaml:"load_order"`
	Enabled   *bool  `yaml:"enabled"`
}

type zoneFile struct {
	Rooms map[string]roomDef `yaml:"rooms"`
}

type roomDef struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	ArtFile     string            `yaml:"ascii_art_file"`
	Art         string            `yaml:"ascii_art"`
	Exits       map[string]string `yaml:"exits"`
	NPCs        []string          `yaml:"npcs"`
}

type pendingExit struct {
	fromRoom  string
	direction string
	toRoom    string
}

// WorldData is the loaded room graph plus the spawn table the NPC layer
// needs. Warnings are soft problems the world came up despite.
type WorldData struct {
	Rooms        map[string]*game.Room
	StartingRoom string
	RoomNPCs     map[string][]string
	Warnings     []string
}

// LoadRooms reads zones.yml plus every enabled zone file under dataDir and
// assembles the room graph. Bad references produce warnings; an empty world
// or a missing starting room is fatal since the game cannot place anyone.
func LoadRooms(dataDir string) (*WorldData, error) {
	zonesPath := filepath.Join(dataDir, "zones.yml")
	raw, err := os.ReadFile(zonesPath)
	if err != nil {
		return nil, fmt.Errorf("reading zones file: %w", err)
	}

	var zf zonesFile
	if err := yaml.Unmarshal(raw, &zf); err != nil {
		return nil, fmt.Errorf("parsing zones file: %w", err)
	}

	data := &WorldData{
		Rooms:        map[string]*game.Room{},
		StartingRoom: zf.Settings.StartingRoom,
		RoomNPCs:     map[string][]string{},
	}

	zones := append([]zoneEntry(nil), zf.Zones...)
	sort.SliceStable(zones, func(i, j int) bool { return zones[i].LoadOrder < zones[j].LoadOrder })

	var exits []pendingExit
	for _, zone := range zones {
		if zone.Enabled != nil && !*zone.Enabled {
			slog.Debug("skipping disabled zone", "zone", zone.Id)
			continue
		}
		zoneExits, err := loadZone(dataDir, zone, &zf.Settings, data)
		if err != nil {
			data.warnf("loading zone %s: %s", zone.Id, err)
			continue
		}
		exits = append(exits, zoneExits...)
	}

	connectRooms(data, exits)

	if zf.Settings.ValidateConnections == nil || *zf.Settings.ValidateConnections {
		validateConnections(data)
	}

	if len(data.Rooms) == 0 {
		return nil, fmt.Errorf("no rooms loaded from %s", dataDir)
	}
	if _, ok := data.Rooms[data.StartingRoom]; !ok {
		return nil, fmt.Errorf("starting room %q not found", data.StartingRoom)
	}

	slog.Info("loaded world", "rooms", len(data.Rooms), "zones", len(zones), "warnings", len(data.Warnings))
	return data, nil
}

func (d *WorldData) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	d.Warnings = append(d.Warnings, msg)
	slog.Warn(msg)
}

func loadZone(dataDir string, zone zoneEntry, settings *zoneSettings, data *WorldData) ([]pendingExit, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, zone.File))
	if err != nil {
		return nil, fmt.Errorf("reading zone file: %w", err)
	}

	var zf zoneFile
	if err := yaml.Unmarshal(raw, &zf); err != nil {
		return nil, fmt.Errorf("parsing zone file: %w", err)
	}

	var exits []pendingExit
	for roomId, def := range zf.Rooms {
		if _, exists := data.Rooms[roomId]; exists {
			data.warnf("duplicate room id %q in zone %s", roomId, zone.Id)
			continue
		}

		name := def.Name
		if name == "" {
			name = roomId
		}
		description := def.Description
		if description == "" {
			description = settings.DefaultDescription
		}

		room := game.NewRoom(roomId, name, description)
		room.Art = loadArt(dataDir, roomId, def, data)
		data.Rooms[roomId] = room

		for direction, target := range def.Exits {
			exits = append(exits, pendingExit{fromRoom: roomId, direction: direction, toRoom: target})
		}

		if len(def.NPCs) > 0 {
			data.RoomNPCs[roomId] = def.NPCs
		}
	}

	slog.Info("loaded zone", "zone", zone.Id, "file", zone.File)
	return exits, nil
}

func loadArt(dataDir, roomId string, def roomDef, data *WorldData) string {
	if def.ArtFile == "" {
		return def.Art
	}

	art, err := os.ReadFile(filepath.Join(dataDir, "art", def.ArtFile))
	if err != nil {
		data.warnf("art file for room %q: %s", roomId, err)
		return ""
	}
	return string(art)
}

// connectRooms applies declared exits, then generates return exits. A return
// exit is only created when the direction has a defined reverse and the
// target room has not declared that direction itself.
func connectRooms(data *WorldData, exits []pendingExit) {
	declared := map[string]map[string]bool{}
	for _, e := range exits {
		if declared[e.fromRoom] == nil {
			declared[e.fromRoom] = map[string]bool{}
		}
		declared[e.fromRoom][e.direction] = true
	}

	for _, e := range exits {
		from, ok := data.Rooms[e.fromRoom]
		if !ok {
			data.warnf("exit references non-existent room: %s", e.fromRoom)
			continue
		}
		to, ok := data.Rooms[e.toRoom]
		if !ok {
			data.warnf("exit references non-existent room: %s", e.toRoom)
			continue
		}

		from.Exits[e.direction] = e.toRoom

		if opposite, ok := game.KnownOpposite(e.direction); ok {
			if !declared[e.toRoom][opposite] {
				if _, exists := to.Exits[opposite]; !exists {
					to.Exits[opposite] = e.fromRoom
				}
			}
		}
	}
}

// validateConnections flags unreachable rooms and one-way passages. These are
// warnings, not errors; a deliberately one-way chute is legal world design.
func validateConnections(data *WorldData) {
	start, ok := data.Rooms[data.StartingRoom]
	if !ok {
		return
	}

	visited := map[string]bool{}
	queue := []*game.Room{start}
	for len(queue) > 0 {
		room := queue[0]
		queue = queue[1:]
		if visited[room.Id] {
			continue
		}
		visited[room.Id] = true

		for _, targetId := range room.Exits {
			if target, ok := data.Rooms[targetId]; ok && !visited[targetId] {
				queue = append(queue, target)
			}
		}
	}

	var unreachable []string
	for id := range data.Rooms {
		if !visited[id] {
			unreachable = append(unreachable, id)
		}
	}
	sort.Strings(unreachable)
	for _, id := range unreachable {
		data.warnf("room %q is unreachable from the starting room", id)
	}

	for id, room := range data.Rooms {
		for _, targetId := range room.Exits {
			target, ok := data.Rooms[targetId]
			if !ok {
				data.warnf("room %q has exit to non-existent room %q", id, targetId)
				continue
			}

			hasReturn := false
			for _, backId := range target.Exits {
				if backId == id {
					hasReturn = true
					break
				}
			}
			if !hasReturn {
				data.warnf("room %q -> %q lacks return connection", id, targetId)
			}
		}
	}
}
