// Package chassis serves the browse API over TLS on one port:
//   - TCP: HTTP/1.1 and HTTP/2
//   - UDP: QUIC, demuxed by ALPN between HTTP/3 ("h3") and MCP (mcpquic.ALPN)
//
// TCP responses advertise HTTP/3 through Alt-Svc.
package chassis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/hazyhaar/formsync/pkg/mcpquic"
	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

const alpnH3 = "h3"

// Config of a chassis Server.
type Config struct {
	Addr string
	// CertFile and KeyFile select a real certificate; empty means self-signed.
	CertFile string
	KeyFile  string
	Handler  http.Handler
	// MCPServer is optional; without it MCP connections are refused.
	MCPServer *server.MCPServer
	Logger    *slog.Logger
}

// Server owns the TCP and QUIC listeners.
type Server struct {
	cfg    Config
	tls    *tls.Config
	mcp    *mcpquic.Handler
	logger *slog.Logger

	mu   sync.Mutex
	tcp  *http.Server
	h3   *http3.Server
	quic *quic.Listener
}

func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Handler == nil {
		return nil, errors.New("chassis: nil handler")
	}

	var (
		tlsCfg *tls.Config
		err    error
	)
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsCfg, err = mcpquic.LoadTLSConfig(cfg.CertFile, cfg.KeyFile)
	} else {
		tlsCfg, err = mcpquic.SelfSignedTLSConfig()
		cfg.Logger.Info("chassis using self-signed certificate")
	}
	if err != nil {
		return nil, fmt.Errorf("chassis tls: %w", err)
	}
	tlsCfg.NextProtos = []string{alpnH3, mcpquic.ALPN}

	s := &Server{cfg: cfg, tls: tlsCfg, logger: cfg.Logger}
	if cfg.MCPServer != nil {
		s.mcp = mcpquic.NewHandler(cfg.MCPServer, cfg.Logger)
	}
	return s, nil
}

// Run serves until ctx is cancelled or a listener fails.
func (s *Server) Run(ctx context.Context) error {
	handler := securityHeaders(altSvc(s.cfg.Addr, s.cfg.Handler))

	tcpTLS := s.tls.Clone()
	tcpTLS.NextProtos = []string{"h2", "http/1.1"}
	tcpLn, err := tls.Listen("tcp", s.cfg.Addr, tcpTLS)
	if err != nil {
		return fmt.Errorf("chassis tcp: %w", err)
	}
	ql, err := quic.ListenAddr(s.cfg.Addr, s.tls, mcpquic.QUICConfig())
	if err != nil {
		tcpLn.Close()
		return fmt.Errorf("chassis quic: %w", err)
	}

	s.mu.Lock()
	s.tcp = &http.Server{Handler: handler}
	s.h3 = &http3.Server{Handler: handler}
	s.quic = ql
	s.mu.Unlock()
	s.logger.Info("chassis listening", "addr", s.cfg.Addr, "mcp", s.mcp != nil)

	errCh := make(chan error, 2)
	go func() {
		if err := s.tcp.Serve(tcpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("chassis tcp: %w", err)
		}
	}()
	go func() {
		errCh <- s.acceptQUIC(ctx, ql)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) acceptQUIC(ctx context.Context, ql *quic.Listener) error {
	for {
		conn, err := ql.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("chassis quic accept: %w", err)
		}
		switch alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn {
		case alpnH3:
			go func() {
				if err := s.h3.ServeQUICConn(conn); err != nil {
					s.logger.Debug("http3 connection closed", "remote", conn.RemoteAddr(), "error", err)
				}
			}()
		case mcpquic.ALPN:
			if s.mcp == nil {
				conn.CloseWithError(mcpquic.ConnBadALPN, "mcp disabled")
				continue
			}
			go s.mcp.ServeConn(ctx, conn)
		default:
			s.logger.Warn("connection refused", "alpn", alpn, "remote", conn.RemoteAddr())
			conn.CloseWithError(mcpquic.ConnBadALPN, "unsupported alpn")
		}
	}
}

// Shutdown stops both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.tcp != nil {
		errs = append(errs, s.tcp.Shutdown(ctx))
	}
	if s.h3 != nil {
		errs = append(errs, s.h3.Close())
	}
	if s.quic != nil {
		errs = append(errs, s.quic.Close())
	}
	return errors.Join(errs...)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func altSvc(addr string, next http.Handler) http.Handler {
	_, port, _ := net.SplitHostPort(addr)
	value := fmt.Sprintf(`h3=":%s"; ma=86400`, port)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alt-Svc", value)
		next.ServeHTTP(w, r)
	})
}
