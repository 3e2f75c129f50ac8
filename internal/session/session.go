package session

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pixil98/go-samud/internal/game"
)

// Telnet protocol bytes. The listener library handles the transport; option
// negotiation and line editing stay here so the SSH path shares them.
const (
	tnIAC  = 255
	tnWILL = 251
	tnWONT = 252
	tnDO   = 253
	tnDONT = 254

	optEcho = 1
	optSGA  = 3
)

const (
	maxInputLength = 1024

	// How long to wait for the second byte of a CR LF pair.
	pairedTerminatorWait = 10 * time.Millisecond
)

// Session wraps one client connection with the wire concerns: CRLF
// translation, IAC escaping, character-at-a-time line editing, and the idle
// read timeout. A pump goroutine feeds raw bytes into a channel so reads can
// be multiplexed with cancellation.
type Session struct {
	conn       io.ReadWriter
	remoteAddr string

	// plain sessions (ssh channels without a pty) keep client-side echo and
	// line buffering, so the server neither negotiates options nor echoes.
	plain bool

	in      chan byte
	pending []byte

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
	inactive  atomic.Bool
}

// New wraps a telnet connection: character mode, server-side echo.
func New(conn io.ReadWriter, remoteAddr string) *Session {
	return newSession(conn, remoteAddr, false)
}

// NewPlain wraps a line-buffered connection such as an ssh channel without a
// pty. The client does its own echo; telnet option bytes are never sent.
func NewPlain(conn io.ReadWriter, remoteAddr string) *Session {
	return newSession(conn, remoteAddr, true)
}

func newSession(conn io.ReadWriter, remoteAddr string, plain bool) *Session {
	s := &Session{
		conn:       conn,
		remoteAddr: remoteAddr,
		plain:      plain,
		in:         make(chan byte, 256),
		done:       make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *Session) RemoteAddr() string {
	return s.remoteAddr
}

// pump moves bytes from the connection into the input channel. It exits when
// the connection errors out, which happens naturally once the listener closes
// the socket.
func (s *Session) pump() {
	buf := make([]byte, 256)
	for {
		n, err := s.conn.Read(buf)
		for i := 0; i < n; i++ {
			select {
			case s.in <- buf[i]:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.inactive.Store(true)
			close(s.in)
			return
		}
	}
}

// Active reports whether the session can still be written to.
func (s *Session) Active() bool {
	if s.inactive.Load() {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Kick marks the session dead and unblocks any pending ReadLine. The session
// loop observes this and tears the connection down. Safe to call repeatedly
// and from any goroutine.
func (s *Session) Kick() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Send writes a message to the client, translating newlines for the telnet
// wire and escaping any literal IAC bytes. A write failure marks the session
// inactive; it does not propagate, matching the rule that one broken client
// never affects the others.
func (s *Session) Send(msg string) {
	if !s.Active() {
		return
	}

	out := strings.ReplaceAll(msg, "\n", "\r\n")
	if !s.plain {
		out = strings.ReplaceAll(out, string([]byte{tnIAC}), string([]byte{tnIAC, tnIAC}))
	}

	s.write([]byte(out))
}

func (s *Session) write(b []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.Write(b)
	if err != nil {
		s.inactive.Store(true)
		slog.Debug("session write failed", "remote", s.remoteAddr, "error", err)
	}
}

// Negotiate sends the initial option offers: we handle echo suppression per
// line, and SGA keeps the client in character mode.
func (s *Session) Negotiate() {
	s.sendIAC(tnWILL, optSGA)
}

func (s *Session) sendIAC(cmd, opt byte) {
	if s.plain {
		return
	}
	s.write([]byte{tnIAC, cmd, opt})
}

// readByte blocks for the next input byte, honoring pushback, the kick
// channel, and the idle timeout.
func (s *Session) readByte(timeout time.Duration) (byte, bool) {
	if len(s.pending) > 0 {
		b := s.pending[0]
		s.pending = s.pending[1:]
		return b, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case b, ok := <-s.in:
		return b, ok
	case <-s.done:
		return 0, false
	case <-timer.C:
		return 0, false
	}
}

func (s *Session) pushback(b byte) {
	s.pending = append(s.pending, b)
}

// ReadLine reads one line with server-side editing: telnet command sequences
// are filtered, backspace erases, printable bytes echo back (masked with '*'
// when echo is false), and CR LF pairs count as a single terminator. Returns
// false when the connection is gone, the session was kicked, or the client
// sat idle past the timeout.
func (s *Session) ReadLine(echo bool) (string, bool) {
	s.sendIAC(tnWILL, optEcho)

	var line []byte
	for {
		b, ok := s.readByte(game.IdleTimeout)
		if !ok {
			return "", false
		}

		switch {
		case b == tnIAC:
			cmd, ok := s.readByte(game.IdleTimeout)
			if !ok {
				return "", false
			}
			if cmd >= tnWILL && cmd <= tnDONT {
				if _, ok := s.readByte(game.IdleTimeout); !ok {
					return "", false
				}
			}

		case b == '\r' || b == '\n':
			// Swallow the other half of a CR LF (or CR NUL) pair if it
			// arrives promptly; anything else is the next line's first byte.
			if next, ok := s.readByte(pairedTerminatorWait); ok {
				if !(b == '\r' && (next == '\n' || next == 0)) && !(b == '\n' && next == '\r') {
					s.pushback(next)
				}
			}
			if !s.plain {
				s.write([]byte("\r\n"))
			}
			s.sendIAC(tnWONT, optEcho)
			return strings.TrimSpace(string(line)), true

		case b == '\b' || b == 0x7f:
			if len(line) > 0 {
				line = line[:len(line)-1]
				if !s.plain {
					s.write([]byte("\b \b"))
				}
			}

		case b >= 32 && b <= 126:
			if len(line) >= maxInputLength {
				continue
			}
			line = append(line, b)
			if s.plain {
				continue
			}
			if echo {
				s.write([]byte{b})
			} else {
				s.write([]byte{'*'})
			}

		default:
			// Other control bytes are ignored.
		}
	}
}

// Prompt writes the command prompt on a fresh line.
func (s *Session) Prompt() {
	s.write([]byte("\r\n> "))
}
