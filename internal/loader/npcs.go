package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pixil98/go-samud/internal/display"
	"github.com/pixil98/go-samud/internal/npc"
)

// Dialogue placeholders in NPC files use the short {player} style. They are
// rewritten to template references at load so authors never see Go template
// syntax.
var placeholderMap = map[string]string{
	"{player}":      "{{.Player}}",
	"{npc_name}":    "{{.NPC}}",
	"{destination}": "{{.Destination}}",
	"{origin}":      "{{.Origin}}",
}

type npcFile struct {
	NPC *npc.Definition `yaml:"npc"`
}

// LoadNPCs reads every NPC definition under dataDir. Files starting with an
// underscore are templates and skipped. A malformed file costs that one NPC,
// not the load.
func LoadNPCs(dataDir string) ([]*npc.Definition, []string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("npc directory not found", "dir", dataDir)
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("reading npc directory: %w", err)
	}

	var warnings []string
	warnf := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		warnings = append(warnings, msg)
		slog.Warn(msg)
	}

	var defs []*npc.Definition
	seen := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		if entry.IsDir() || (ext != ".yml" && ext != ".yaml") {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		if strings.HasPrefix(stem, "_") || stem == "README" {
			continue
		}

		def, err := loadNPCFile(filepath.Join(dataDir, name))
		if err != nil {
			warnf("npc file %s: %s", name, err)
			continue
		}

		if seen[def.Id] {
			warnf("duplicate npc id %q in %s", def.Id, name)
			continue
		}
		seen[def.Id] = true

		applyDefaults(def, warnf)
		convertPlaceholders(def)
		defs = append(defs, def)
		slog.Info("loaded npc", "npc", def.Id, "name", def.Name)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Id < defs[j].Id })

	slog.Info("loaded npcs", "count", len(defs), "warnings", len(warnings))
	return defs, warnings, nil
}

func loadNPCFile(path string) (*npc.Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f npcFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	if f.NPC == nil {
		return nil, fmt.Errorf("missing npc document")
	}
	if f.NPC.Id == "" {
		return nil, fmt.Errorf("npc missing id")
	}

	return f.NPC, nil
}

func applyDefaults(def *npc.Definition, warnf func(string, ...any)) {
	if def.Name == "" {
		def.Name = display.Capitalize(strings.ReplaceAll(def.Id, "_", " "))
		warnf("npc %q missing name, defaulting to %q", def.Id, def.Name)
	}
	if def.Description == "" {
		def.Description = fmt.Sprintf("A %s.", def.Name)
		warnf("npc %q missing description", def.Id)
	}
}

func convertPlaceholders(def *npc.Definition) {
	for k, v := range def.Dialogue {
		def.Dialogue[k] = expandPlaceholders(v)
	}
	for k, v := range def.Keywords {
		def.Keywords[k] = expandPlaceholders(v)
	}
	for i, a := range def.Ambient {
		def.Ambient[i] = expandPlaceholders(a)
	}
	if def.Movement != nil {
		def.Movement.DepartureMessage = expandPlaceholders(def.Movement.DepartureMessage)
		def.Movement.ArrivalMessage = expandPlaceholders(def.Movement.ArrivalMessage)
	}
	if def.Context != nil {
		for k, v := range def.Context.CrowdReactions {
			def.Context.CrowdReactions[k] = expandPlaceholders(v)
		}
	}
}

func expandPlaceholders(s string) string {
	for from, to := range placeholderMap {
		s = strings.ReplaceAll(s, from, to)
	}
	return s
}
