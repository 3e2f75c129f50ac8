package loader

import (
	"testing"
)

const barkeepYAML = `
npc:
  id: barkeep
  name: Rosa
  description: The cantina's owner.
  dialogue:
    greeting_new: "Welcome to my cantina, {player}!"
  keywords:
    "drink|beer": "One for {player}, coming up."
  ambient_actions:
    - "polishes a glass"
  movement:
    allowed_rooms:
      - cantina
      - plaza
    departure_message: "{npc_name} heads toward {destination}."
    arrival_message: "{npc_name} strolls in from {origin}."
`

func TestLoadNPCs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "barkeep.yml", barkeepYAML)

	defs, warnings, err := LoadNPCs(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(defs) != 1 {
		t.Fatalf("expected 1 npc, got %d", len(defs))
	}

	def := defs[0]
	if def.Id != "barkeep" || def.Name != "Rosa" {
		t.Errorf("got %+v", def)
	}
	if len(def.Movement.AllowedRooms) != 2 {
		t.Errorf("movement: %+v", def.Movement)
	}
}

func TestLoadNPCs_ConvertsPlaceholders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "barkeep.yml", barkeepYAML)

	defs, _, err := LoadNPCs(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := defs[0]

	if got := def.Dialogue["greeting_new"]; got != "Welcome to my cantina, {{.Player}}!" {
		t.Errorf("dialogue: got %q", got)
	}
	if got := def.Keywords["drink|beer"]; got != "One for {{.Player}}, coming up." {
		t.Errorf("keyword: got %q", got)
	}
	if got := def.Movement.DepartureMessage; got != "{{.NPC}} heads toward {{.Destination}}." {
		t.Errorf("departure: got %q", got)
	}
	if got := def.Movement.ArrivalMessage; got != "{{.NPC}} strolls in from {{.Origin}}." {
		t.Errorf("arrival: got %q", got)
	}
}

func TestLoadNPCs_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "night_watchman.yml", `
npc:
  id: night_watchman
`)

	defs, warnings, err := LoadNPCs(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected 1 npc, got %d", len(defs))
	}

	def := defs[0]
	if def.Name != "Night watchman" {
		t.Errorf("name: got %q", def.Name)
	}
	if def.Description != "A Night watchman." {
		t.Errorf("description: got %q", def.Description)
	}
	if len(warnings) != 2 {
		t.Errorf("expected default warnings, got %v", warnings)
	}
}

func TestLoadNPCs_SkipsTemplatesAndReadme(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "barkeep.yml", barkeepYAML)
	writeFile(t, dir, "_template.yml", `
npc:
  id: template
`)
	writeFile(t, dir, "README.yml", `
npc:
  id: readme
`)
	writeFile(t, dir, "notes.txt", "not yaml")

	defs, _, err := LoadNPCs(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 1 || defs[0].Id != "barkeep" {
		t.Errorf("got %d defs", len(defs))
	}
}

func TestLoadNPCs_MalformedFileCostsOneNPC(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "barkeep.yml", barkeepYAML)
	writeFile(t, dir, "broken.yml", "npc: [not a mapping")
	writeFile(t, dir, "no_id.yml", `
npc:
  name: Anonymous
`)

	defs, warnings, err := LoadNPCs(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 1 {
		t.Errorf("expected 1 npc, got %d", len(defs))
	}
	if !hasWarning(warnings, "broken.yml") {
		t.Errorf("expected parse warning, got %v", warnings)
	}
	if !hasWarning(warnings, "missing id") {
		t.Errorf("expected missing id warning, got %v", warnings)
	}
}

func TestLoadNPCs_DuplicateIdWarns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_barkeep.yml", barkeepYAML)
	writeFile(t, dir, "b_barkeep.yml", barkeepYAML)

	defs, warnings, err := LoadNPCs(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 1 {
		t.Errorf("expected 1 npc, got %d", len(defs))
	}
	if !hasWarning(warnings, "duplicate npc id") {
		t.Errorf("expected duplicate warning, got %v", warnings)
	}
}

func TestLoadNPCs_MissingDirectory(t *testing.T) {
	defs, warnings, err := LoadNPCs("/nonexistent/npc/dir")
	if err != nil {
		t.Errorf("missing directory is not an error, got %v", err)
	}
	if defs != nil || warnings != nil {
		t.Errorf("got defs=%v warnings=%v", defs, warnings)
	}
}

func TestLoadNPCs_SortedById(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zeke.yml", "npc:\n  id: zeke\n  name: Zeke\n  description: Z.\n")
	writeFile(t, dir, "abel.yml", "npc:\n  id: abel\n  name: Abel\n  description: A.\n")

	defs, _, err := LoadNPCs(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 2 || defs[0].Id != "abel" || defs[1].Id != "zeke" {
		t.Errorf("got order %v", []string{defs[0].Id, defs[1].Id})
	}
}
