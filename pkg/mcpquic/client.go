package mcpquic

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/quic-go/quic-go"
)

// Client calls browse tools on a remote formsync server.
type Client struct {
	addr   string
	tls    *tls.Config
	conn   *quic.Conn
	stream *quic.Stream
	mcp    *client.Client
}

// NewClient prepares a client. A nil tlsCfg accepts self-signed servers.
func NewClient(addr string, tlsCfg *tls.Config) *Client {
	if tlsCfg == nil {
		tlsCfg = ClientTLSConfig(true)
	}
	return &Client{addr: addr, tls: tlsCfg}
}

// Connect dials, sends the preamble and performs the MCP handshake.
func (c *Client) Connect(ctx context.Context, name, version string) error {
	conn, err := quic.DialAddr(ctx, c.addr, c.tls, QUICConfig())
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}
	if got := conn.ConnectionState().TLS.NegotiatedProtocol; got != ALPN {
		conn.CloseWithError(ConnBadALPN, "unsupported alpn")
		return &ConnError{Remote: c.addr, Code: ConnBadALPN, Err: ErrBadALPN}
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(ConnBadProtocol, "no stream")
		return fmt.Errorf("open stream: %w", err)
	}
	if err := WritePreamble(stream); err != nil {
		conn.CloseWithError(ConnBadProtocol, "preamble")
		return err
	}
	c.conn, c.stream = conn, stream

	mc := client.NewClient(transport.NewIO(stream, streamCloser{stream}, io.NopCloser(eofReader{})))
	if err := mc.Start(ctx); err != nil {
		c.teardown()
		return fmt.Errorf("start mcp client: %w", err)
	}

	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: name, Version: version}
	initCtx, cancel := context.WithTimeout(ctx, HandshakeTimeout)
	defer cancel()
	if _, err := mc.Initialize(initCtx, init); err != nil {
		c.teardown()
		return fmt.Errorf("mcp initialize: %w", err)
	}
	c.mcp = mc
	return nil
}

// ListTools returns the tools advertised by the server.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if c.mcp == nil {
		return nil, ErrNotConnected
	}
	res, err := c.mcp.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	return res.Tools, nil
}

// CallTool returns the text content of the tool result. A tool-level error is
// returned as an error carrying that text.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if c.mcp == nil {
		return "", ErrNotConnected
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.mcp.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", name, err)
	}
	var text string
	for _, content := range res.Content {
		switch tc := content.(type) {
		case mcp.TextContent:
			text += tc.Text
		case *mcp.TextContent:
			text += tc.Text
		}
	}
	if res.IsError {
		return "", fmt.Errorf("%s: %s", name, text)
	}
	return text, nil
}

func (c *Client) Close() error {
	if c.mcp != nil {
		c.mcp.Close()
	}
	c.teardown()
	return nil
}

func (c *Client) teardown() {
	if c.stream != nil {
		c.stream.Close()
	}
	if c.conn != nil {
		c.conn.CloseWithError(ConnOK, "bye")
	}
}

type streamCloser struct{ s *quic.Stream }

func (w streamCloser) Write(p []byte) (int, error) { return w.s.Write(p) }
func (w streamCloser) Close() error                { return w.s.Close() }

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
