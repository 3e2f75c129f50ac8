package display

import (
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	long := strings.Repeat("word ", 40)

	for _, line := range strings.Split(Wrap(long), "\n") {
		if len(line) > DefaultWidth {
			t.Errorf("line exceeds %d chars: %q", DefaultWidth, line)
		}
	}

	short := "fits on one line"
	if got := Wrap(short); got != short {
		t.Errorf("short text should be unchanged, got %q", got)
	}
}

func TestCapitalize(t *testing.T) {
	tests := map[string]struct {
		input string
		exp   string
	}{
		"lowercase word":     {input: "barkeep", exp: "Barkeep"},
		"already capital":    {input: "Barkeep", exp: "Barkeep"},
		"multiple words":     {input: "night watchman", exp: "Night watchman"},
		"empty string":       {input: "", exp: ""},
		"single rune":        {input: "a", exp: "A"},
		"leaves rest intact": {input: "mCDonald", exp: "MCDonald"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := Capitalize(tt.input)
			if got != tt.exp {
				t.Errorf("got %q, expected %q", got, tt.exp)
			}
		})
	}
}
