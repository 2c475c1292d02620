// CLAUDE:SUMMARY MCP JSON-RPC over QUIC: one bidirectional stream per connection, preamble then newline-delimited messages.
package mcpquic

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hazyhaar/formsync/pkg/kit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"
)

// Handler serves MCP sessions on accepted QUIC connections.
type Handler struct {
	mcp    *server.MCPServer
	logger *slog.Logger
}

func NewHandler(srv *server.MCPServer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{mcp: srv, logger: logger}
}

// ServeConn runs one MCP session until the peer closes its stream or ctx ends.
func (h *Handler) ServeConn(ctx context.Context, conn *quic.Conn) {
	remote := conn.RemoteAddr().String()
	log := h.logger.With("remote", remote)

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		log.Warn("mcp stream not opened", "error", err)
		conn.CloseWithError(ConnBadProtocol, "no stream")
		return
	}
	if err := ReadPreamble(stream); err != nil {
		log.Warn("mcp preamble rejected", "error", err)
		stream.CancelRead(StreamBadPreamble)
		stream.CancelWrite(StreamBadPreamble)
		conn.CloseWithError(ConnBadProtocol, "bad preamble")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := newSession("quic-"+uuid.NewString(), stream)
	log = log.With("session", sess.id)
	if err := h.mcp.RegisterSession(ctx, sess); err != nil {
		log.Error("mcp session not registered", "error", err)
		stream.Close()
		return
	}
	defer h.mcp.UnregisterSession(ctx, sess.id)
	log.Info("mcp session started")

	ctx = kit.WithTransport(ctx, "mcp_quic")
	ctx = h.mcp.WithContext(ctx, sess)
	go sess.forwardNotifications(ctx)

	sc := bufio.NewScanner(stream)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := h.mcp.HandleMessage(ctx, json.RawMessage(line))
		if resp == nil {
			continue
		}
		if err := sess.send(resp); err != nil {
			log.Warn("mcp write failed", "error", err)
			break
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		if errors.Is(err, bufio.ErrTooLong) {
			stream.CancelRead(StreamLineTooLong)
		}
		log.Warn("mcp read failed", "error", err)
	}
	stream.Close()
	log.Info("mcp session ended")
}

// Listener owns a QUIC listener and hands each connection to a Handler.
type Listener struct {
	ql      *quic.Listener
	handler *Handler
	logger  *slog.Logger
}

func NewListener(addr string, tlsCfg *tls.Config, srv *server.MCPServer, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ql, err := quic.ListenAddr(addr, tlsCfg, QUICConfig())
	if err != nil {
		return nil, err
	}
	logger.Info("mcp quic listener ready", "addr", ql.Addr().String())
	return &Listener{ql: ql, handler: NewHandler(srv, logger), logger: logger}, nil
}

// Addr is the bound UDP address.
func (l *Listener) Addr() string { return l.ql.Addr().String() }

// Serve accepts connections until ctx is cancelled or the listener is closed.
func (l *Listener) Serve(ctx context.Context) error {
	for {
		conn, err := l.ql.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			l.logger.Warn("quic accept failed", "error", err)
			continue
		}
		if got := conn.ConnectionState().TLS.NegotiatedProtocol; got != ALPN {
			cerr := &ConnError{Remote: conn.RemoteAddr().String(), Code: ConnBadALPN, Err: ErrBadALPN}
			l.logger.Warn("connection refused", "error", cerr, "alpn", got)
			conn.CloseWithError(ConnBadALPN, "unsupported alpn")
			continue
		}
		go l.handler.ServeConn(ctx, conn)
	}
}

func (l *Listener) Close() error { return l.ql.Close() }

// session is the server.ClientSession of one QUIC stream. Responses and
// notifications share the stream, so writes are serialized.
type session struct {
	id            string
	w             io.Writer
	mu            sync.Mutex
	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool
}

func newSession(id string, w io.Writer) *session {
	return &session{id: id, w: w, notifications: make(chan mcp.JSONRPCNotification, 64)}
}

func (s *session) SessionID() string                                   { return s.id }
func (s *session) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.notifications }
func (s *session) Initialize()                                         { s.initialized.Store(true) }
func (s *session) Initialized() bool                                   { return s.initialized.Load() }

func (s *session) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(append(data, '\n'))
	return err
}

func (s *session) forwardNotifications(ctx context.Context) {
	for {
		select {
		case n := <-s.notifications:
			_ = s.send(n)
		case <-ctx.Done():
			return
		}
	}
}
