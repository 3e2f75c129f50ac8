package auth

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pixil98/go-samud/internal/game"
	"github.com/pixil98/go-samud/internal/storage"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 20
	minPasswordLength = 6

	maxAttempts = 3

	// Applied after a failed login so credential guessing stays slow.
	failDelay = time.Second
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Terminal is the slice of a session the auth flows need: prompting and
// reading lines, with echo off for passwords.
type Terminal interface {
	Send(msg string)
	ReadLine(echo bool) (string, bool)
}

// Manager runs the signup and login conversations against the player store.
type Manager struct {
	players storage.Storer[*game.PlayerRecord]
}

func NewManager(players storage.Storer[*game.PlayerRecord]) *Manager {
	return &Manager{players: players}
}

func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("Username cannot be empty.")
	}
	if len(username) < minUsernameLength {
		return fmt.Errorf("Username must be at least %d characters.", minUsernameLength)
	}
	if len(username) > maxUsernameLength {
		return fmt.Errorf("Username cannot exceed %d characters.", maxUsernameLength)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("Username can only contain letters, numbers, and underscores.")
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("Password cannot be empty.")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("Password must be at least %d characters.", minPasswordLength)
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Signup walks a new player through account creation. Returns the username
// as typed and true on success; the caller completes the login.
func (m *Manager) Signup(t Terminal) (string, bool) {
	t.Send("\n=== Create New Account ===\n")

	var username string
	ok := false
	for attempt := 0; attempt < maxAttempts; attempt++ {
		t.Send("\nChoose a username: ")
		line, alive := t.ReadLine(true)
		if !alive || line == "" {
			t.Send("Signup cancelled.\n")
			return "", false
		}

		if err := ValidateUsername(line); err != nil {
			t.Send(fmt.Sprintf("Error: %s\n", err))
			continue
		}

		if m.players.Get(strings.ToLower(line)) != nil {
			t.Send(fmt.Sprintf("Username '%s' is already taken. Please choose another.\n", line))
			continue
		}

		username = line
		ok = true
		break
	}
	if !ok {
		t.Send("Too many attempts. Signup cancelled.\n")
		return "", false
	}

	var password string
	ok = false
	for attempt := 0; attempt < maxAttempts; attempt++ {
		t.Send("Choose a password: ")
		line, alive := t.ReadLine(false)
		if !alive || line == "" {
			t.Send("Signup cancelled.\n")
			return "", false
		}

		if err := ValidatePassword(line); err != nil {
			t.Send(fmt.Sprintf("Error: %s\n", err))
			continue
		}

		t.Send("Confirm password: ")
		confirm, alive := t.ReadLine(false)
		if !alive {
			t.Send("Signup cancelled.\n")
			return "", false
		}
		if line != confirm {
			t.Send("Passwords do not match. Please try again.\n")
			continue
		}

		password = line
		ok = true
		break
	}
	if !ok {
		t.Send("Too many attempts. Signup cancelled.\n")
		return "", false
	}

	hash, err := HashPassword(password)
	if err != nil {
		slog.Error("hashing password", "error", err)
		t.Send("Failed to create account. Please try again.\n")
		return "", false
	}

	now := time.Now()
	err = m.players.Save(strings.ToLower(username), &game.PlayerRecord{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		LastLogin:    now,
	})
	if err != nil {
		slog.Error("creating player record", "player", username, "error", err)
		t.Send("Failed to create account. Please try again.\n")
		return "", false
	}

	t.Send(fmt.Sprintf("\nAccount created successfully! Welcome, %s!\n", username))
	slog.Info("account created", "player", username)
	return username, true
}

// Login verifies credentials. Failures get the same message whether the
// account exists or not.
func (m *Manager) Login(t Terminal) (string, bool) {
	t.Send("\n=== Login ===\n")

	t.Send("Username: ")
	username, alive := t.ReadLine(true)
	if !alive || username == "" {
		t.Send("Login cancelled.\n")
		return "", false
	}

	t.Send("Password: ")
	password, alive := t.ReadLine(false)
	if !alive || password == "" {
		t.Send("Login cancelled.\n")
		return "", false
	}

	rec := m.players.Get(strings.ToLower(username))
	if rec == nil || !VerifyPassword(password, rec.PasswordHash) {
		t.Send("Invalid username or password.\n")
		time.Sleep(failDelay)
		return "", false
	}

	t.Send(fmt.Sprintf("\nWelcome back, %s!\n", rec.Username))
	return rec.Username, true
}
