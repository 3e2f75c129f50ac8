package game

import (
	"strings"
	"testing"
)

func TestPlayerRecord_Validate(t *testing.T) {
	tests := map[string]struct {
		record  PlayerRecord
		expErrs []string
	}{
		"valid record": {
			record: PlayerRecord{
				Username:     "alice",
				PasswordHash: "hash",
				CurrentRoom:  "plaza",
			},
			expErrs: nil,
		},
		"missing username": {
			record: PlayerRecord{
				PasswordHash: "hash",
			},
			expErrs: []string{"username must be set"},
		},
		"missing password hash": {
			record: PlayerRecord{
				Username: "alice",
			},
			expErrs: []string{"password hash must be set"},
		},
		"missing everything": {
			record: PlayerRecord{},
			expErrs: []string{
				"username must be set",
				"password hash must be set",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			checkValidationErrs(t, tt.record.Validate(), tt.expErrs)
		})
	}
}

func TestSessionRecord_Validate(t *testing.T) {
	tests := map[string]struct {
		record  SessionRecord
		expErrs []string
	}{
		"valid record": {
			record:  SessionRecord{PlayerId: "alice", IP: "127.0.0.1"},
			expErrs: nil,
		},
		"missing player id": {
			record:  SessionRecord{IP: "127.0.0.1"},
			expErrs: []string{"player id must be set"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			checkValidationErrs(t, tt.record.Validate(), tt.expErrs)
		})
	}
}

func TestNPCStateRecord_Validate(t *testing.T) {
	tests := map[string]struct {
		record  NPCStateRecord
		expErrs []string
	}{
		"valid record": {
			record:  NPCStateRecord{CurrentRoom: "cantina"},
			expErrs: nil,
		},
		"missing room": {
			record:  NPCStateRecord{},
			expErrs: []string{"current room must be set"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			checkValidationErrs(t, tt.record.Validate(), tt.expErrs)
		})
	}
}

func TestNPCMemoryRecord_Validate(t *testing.T) {
	tests := map[string]struct {
		record  NPCMemoryRecord
		expErrs []string
	}{
		"valid record": {
			record:  NPCMemoryRecord{NPCId: "barkeep", PlayerName: "alice"},
			expErrs: nil,
		},
		"missing npc id": {
			record:  NPCMemoryRecord{PlayerName: "alice"},
			expErrs: []string{"npc id must be set"},
		},
		"missing player name": {
			record:  NPCMemoryRecord{NPCId: "barkeep"},
			expErrs: []string{"player name must be set"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			checkValidationErrs(t, tt.record.Validate(), tt.expErrs)
		})
	}
}

func checkValidationErrs(t *testing.T, err error, expErrs []string) {
	t.Helper()

	if len(expErrs) == 0 {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		return
	}

	if err == nil {
		t.Errorf("expected errors %v, got nil", expErrs)
		return
	}

	for _, e := range expErrs {
		if !strings.Contains(err.Error(), e) {
			t.Errorf("error %q does not contain %q", err.Error(), e)
		}
	}
}
