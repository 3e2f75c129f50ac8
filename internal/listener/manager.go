package listener

import (
	"context"
	"io"
	"log/slog"
	"net"

	"github.com/pixil98/go-samud/internal/session"
)

// ConnectionManager adapts accepted connections into sessions and hands them
// to the session manager. Telnet connections get the character-mode wire;
// ssh channels come in already line-buffered.
type ConnectionManager struct {
	sm *session.Manager
}

func NewConnectionManager(sm *session.Manager) *ConnectionManager {
	return &ConnectionManager{
		sm: sm,
	}
}

func (m *ConnectionManager) AcceptTelnet(ctx context.Context, conn io.ReadWriter) {
	sess := session.New(conn, remoteAddr(conn))
	if err := m.sm.Run(ctx, sess); err != nil {
		slog.WarnContext(ctx, "player session", "error", err)
	}
}

func (m *ConnectionManager) AcceptPlain(ctx context.Context, conn io.ReadWriter, addr string) {
	sess := session.NewPlain(conn, addr)
	if err := m.sm.Run(ctx, sess); err != nil {
		slog.WarnContext(ctx, "player session", "error", err)
	}
}

func remoteAddr(conn any) string {
	if c, ok := conn.(interface{ RemoteAddr() net.Addr }); ok {
		return c.RemoteAddr().String()
	}
	return "unknown"
}
