package session

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeWire is an in-memory connection. Reads block on fed input; writes are
// captured without ever blocking.
type fakeWire struct {
	in chan byte

	mu  sync.Mutex
	out bytes.Buffer
}

func newFakeWire() *fakeWire {
	return &fakeWire{in: make(chan byte, 4096)}
}

func (f *fakeWire) Read(p []byte) (int, error) {
	b, ok := <-f.in
	if !ok {
		return 0, io.EOF
	}
	p[0] = b
	return 1, nil
}

func (f *fakeWire) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.Write(p)
}

func (f *fakeWire) feed(s string) {
	for i := 0; i < len(s); i++ {
		f.in <- s[i]
	}
}

func (f *fakeWire) feedBytes(b []byte) {
	for _, c := range b {
		f.in <- c
	}
}

func (f *fakeWire) disconnect() {
	close(f.in)
}

func (f *fakeWire) output() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.String()
}

func TestReadLine(t *testing.T) {
	tests := map[string]struct {
		input string
		exp   string
	}{
		"crlf terminator":    {input: "hello\r\n", exp: "hello"},
		"bare lf terminator": {input: "hello\n", exp: "hello"},
		"bare cr terminator": {input: "hello\r", exp: "hello"},
		"cr nul terminator":  {input: "hello\r\x00", exp: "hello"},
		"whitespace trimmed": {input: "  hello  \r\n", exp: "hello"},
		"empty line":         {input: "\r\n", exp: ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			wire := newFakeWire()
			s := New(wire, "test")
			defer s.Kick()

			wire.feed(tt.input)

			got, ok := s.ReadLine(true)
			if !ok {
				t.Fatal("expected line")
			}
			if got != tt.exp {
				t.Errorf("got %q, expected %q", got, tt.exp)
			}
		})
	}
}

func TestReadLine_PushesBackNextLineByte(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")
	defer s.Kick()

	// A bare CR followed by the next line's first byte must not eat it.
	wire.feed("hi\rx\r\n")

	got, ok := s.ReadLine(true)
	if !ok || got != "hi" {
		t.Fatalf("first line: got %q ok=%v", got, ok)
	}

	got, ok = s.ReadLine(true)
	if !ok || got != "x" {
		t.Errorf("second line: got %q ok=%v", got, ok)
	}
}

func TestReadLine_Backspace(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")
	defer s.Kick()

	wire.feed("helx\blo\r\n")

	got, ok := s.ReadLine(true)
	if !ok || got != "hello" {
		t.Errorf("got %q ok=%v", got, ok)
	}
	if !strings.Contains(wire.output(), "\b \b") {
		t.Error("expected erase sequence in output")
	}
}

func TestReadLine_BackspaceOnEmptyLine(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")
	defer s.Kick()

	wire.feed("\b\bok\r\n")

	got, ok := s.ReadLine(true)
	if !ok || got != "ok" {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestReadLine_FiltersTelnetCommands(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")
	defer s.Kick()

	wire.feedBytes([]byte{tnIAC, tnDO, optEcho})
	wire.feed("hi")
	wire.feedBytes([]byte{tnIAC, tnWONT, optSGA})
	wire.feed("\r\n")

	got, ok := s.ReadLine(true)
	if !ok || got != "hi" {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestReadLine_Echo(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")
	defer s.Kick()

	wire.feed("abc\r\n")

	_, ok := s.ReadLine(true)
	if !ok {
		t.Fatal("expected line")
	}
	if !strings.Contains(wire.output(), "abc") {
		t.Errorf("expected echoed input, output %q", wire.output())
	}
}

func TestReadLine_MaskedEcho(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")
	defer s.Kick()

	wire.feed("secret\r\n")

	_, ok := s.ReadLine(false)
	if !ok {
		t.Fatal("expected line")
	}
	out := wire.output()
	if strings.Contains(out, "secret") {
		t.Errorf("password must not echo in clear, output %q", out)
	}
	if !strings.Contains(out, "******") {
		t.Errorf("expected mask characters, output %q", out)
	}
}

func TestReadLine_EchoNegotiation(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")
	defer s.Kick()

	wire.feed("x\r\n")

	_, ok := s.ReadLine(true)
	if !ok {
		t.Fatal("expected line")
	}

	out := wire.output()
	if !strings.Contains(out, string([]byte{tnIAC, tnWILL, optEcho})) {
		t.Error("expected WILL ECHO at line start")
	}
	if !strings.Contains(out, string([]byte{tnIAC, tnWONT, optEcho})) {
		t.Error("expected WONT ECHO at line end")
	}
}

func TestReadLine_Disconnect(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")

	wire.feed("partial")
	wire.disconnect()

	_, ok := s.ReadLine(true)
	if ok {
		t.Error("expected false after disconnect")
	}
	if s.Active() {
		t.Error("expected session inactive")
	}
}

func TestReadLine_KickUnblocks(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")

	result := make(chan bool, 1)
	go func() {
		_, ok := s.ReadLine(true)
		result <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	s.Kick()

	select {
	case ok := <-result:
		if ok {
			t.Error("expected false after kick")
		}
	case <-time.After(time.Second):
		t.Fatal("ReadLine did not unblock")
	}
}

func TestReadLine_MaxLength(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")
	defer s.Kick()

	wire.feed(strings.Repeat("a", maxInputLength+50) + "\r\n")

	got, ok := s.ReadLine(true)
	if !ok {
		t.Fatal("expected line")
	}
	if len(got) != maxInputLength {
		t.Errorf("got %d chars, expected %d", len(got), maxInputLength)
	}
}

func TestSend(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")
	defer s.Kick()

	s.Send("line one\nline two")

	if got := wire.output(); got != "line one\r\nline two" {
		t.Errorf("got %q", got)
	}
}

func TestSend_EscapesIAC(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")
	defer s.Kick()

	s.Send("x" + string([]byte{tnIAC}) + "y")

	exp := "x" + string([]byte{tnIAC, tnIAC}) + "y"
	if got := wire.output(); got != exp {
		t.Errorf("got %q, expected %q", got, exp)
	}
}

func TestSend_AfterKickIsDropped(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")

	s.Kick()
	s.Send("too late")

	if wire.output() != "" {
		t.Errorf("expected no output, got %q", wire.output())
	}
}

func TestNegotiate(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")
	defer s.Kick()

	s.Negotiate()

	if got := wire.output(); got != string([]byte{tnIAC, tnWILL, optSGA}) {
		t.Errorf("got %q", got)
	}
}

func TestPlainSession(t *testing.T) {
	wire := newFakeWire()
	s := NewPlain(wire, "test")
	defer s.Kick()

	// No option negotiation on a plain channel.
	s.Negotiate()
	if wire.output() != "" {
		t.Errorf("plain session sent telnet bytes: %q", wire.output())
	}

	// The client does its own echo; the server stays quiet while reading.
	wire.feed("hello\r\n")
	got, ok := s.ReadLine(true)
	if !ok || got != "hello" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
	if wire.output() != "" {
		t.Errorf("plain session echoed: %q", wire.output())
	}

	// Newline translation still applies on the way out.
	s.Send("a\nb")
	if wire.output() != "a\r\nb" {
		t.Errorf("got %q", wire.output())
	}
}

func TestKick_Idempotent(t *testing.T) {
	wire := newFakeWire()
	s := New(wire, "test")

	s.Kick()
	s.Kick()

	if s.Active() {
		t.Error("expected inactive after kick")
	}
}
