// Package transport implements the dual-socket acceptor of spec.md §4.5: two
// listening stream sockets — one local UNIX-domain, one cross-core — sharing
// identical Accept → ReadReq → Dispatch → WriteRes → Close handling. Grounded
// on the teacher's internal/ctrl.Controller for its "log each state
// transition, never let one bad connection take down the loop" shape; the
// teacher itself has no network listener (ublk talks to the kernel over
// io_uring, not a socket), so the accept/serve loop itself is the idiomatic
// Go shape rather than a teacher transplant.
package transport

import (
	"encoding/binary"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-haptic/internal/dispatch"
	"github.com/ehrlich-b/go-haptic/internal/interfaces"
	"github.com/ehrlich-b/go-haptic/internal/logging"
	"github.com/ehrlich-b/go-haptic/internal/uapi"
)

// socketListener is the seam both socket flavors satisfy, letting Server run
// one shared accept loop over either.
type socketListener interface {
	Accept() (net.Conn, error)
	Close() error
}

// Server runs the shared accept/dispatch loop over one or more listeners.
type Server struct {
	dispatcher *dispatch.Dispatcher
	logger     interfaces.Logger
	listeners  []socketListener
}

// NewServer builds a Server with no listeners yet; call AddLocal/AddRPMSG (or
// AddListener directly) before Serve.
func NewServer(dispatcher *dispatch.Dispatcher, logger interfaces.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{dispatcher: dispatcher, logger: logger}
}

// AddLocal binds the ordinary local UNIX-domain socket at path, removing any
// stale socket file left behind by a previous run.
func (s *Server) AddLocal(path string) error {
	l, err := listenUnix(path)
	if err != nil {
		return err
	}
	s.listeners = append(s.listeners, l)
	return nil
}

// AddRPMSG binds the cross-core socket at path. There is no stable, portable
// AF_RPMSG socket-family constant available outside the target kernel's own
// headers (see DESIGN.md); haptic.CreateAndServe passes unix.AF_UNIX when
// no domain is configured so the daemon still runs on a development host,
// but the raw unix.Socket/unix.Bind path below takes whatever domain it is
// given.
func (s *Server) AddRPMSG(path string, domain int) error {
	l, err := listenRaw(path, domain)
	if err != nil {
		return err
	}
	s.listeners = append(s.listeners, l)
	return nil
}

// Serve accepts connections on every registered listener until all of them
// report a listener error (normally because Close was called during
// shutdown). Each connection is handled on its own goroutine; no state is
// shared between connections except the Server's single Dispatcher, which
// already serializes device access.
func (s *Server) Serve() {
	done := make(chan struct{}, len(s.listeners))
	for _, l := range s.listeners {
		go s.acceptLoop(l, done)
	}
	for range s.listeners {
		<-done
	}
}

// Close shuts down every listener, unblocking Serve's accept loops.
func (s *Server) Close() {
	for _, l := range s.listeners {
		_ = l.Close()
	}
}

func (s *Server) acceptLoop(l socketListener, done chan struct{}) {
	defer func() { done <- struct{}{} }()
	for {
		conn, err := l.Accept()
		if err != nil {
			s.logger.Debugf("transport: listener closed: %v", err)
			return
		}
		go s.handleConn(conn)
	}
}

// handleConn implements the per-connection state machine of spec.md §4.5:
// read the 8-byte header, read the kind's payload, dispatch, write exactly
// response_len(kind) bytes, close. A short payload read (fewer bytes than
// request_len requires) short-circuits straight to an -EINVAL reply without
// touching the dispatcher.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	headerBuf := make([]byte, uapi.HeaderSize)
	if _, err := io.ReadFull(conn, headerBuf); err != nil {
		s.logger.Debugf("transport: header read failed: %v", err)
		return
	}
	header, err := uapi.UnmarshalFrameHeader(headerBuf)
	if err != nil {
		s.logger.Debugf("transport: malformed header: %v", err)
		return
	}

	wantPayload := uapi.RequestLen(header.Type) - uapi.HeaderSize
	responseLen := uapi.ResponseLen(header.Type)

	var payload []byte
	if wantPayload > 0 {
		payload = make([]byte, wantPayload)
		n, _ := conn.Read(payload)
		if n < wantPayload {
			s.writeShortFrame(conn, responseLen)
			return
		}
	}

	resp := s.dispatcher.Dispatch(header, payload)
	if _, err := conn.Write(resp); err != nil {
		s.logger.Debugf("transport: response write failed: %v", err)
	}
}

// writeShortFrame replies -EINVAL in exactly responseLen bytes, matching
// spec.md §4.5's "received_bytes < request_len(kind)" case.
func (s *Server) writeShortFrame(conn net.Conn, responseLen int) {
	buf := make([]byte, responseLen)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(-int32(unix.EINVAL)))
	_, _ = conn.Write(buf)
}

// listenUnix binds an ordinary local UNIX-domain stream socket via the
// standard net package.
func listenUnix(path string) (socketListener, error) {
	_ = os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// listenRaw binds a stream socket in the given address family via raw
// golang.org/x/sys/unix calls, for domains net.Listen has no dialect for.
func listenRaw(path string, domain int) (socketListener, error) {
	_ = os.Remove(path)
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	sa := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &rawListener{fd: fd, path: path}, nil
}

// rawListener adapts a raw unix.Socket fd to the socketListener interface.
type rawListener struct {
	fd   int
	path string
}

func (l *rawListener) Accept() (net.Conn, error) {
	nfd, _, err := unix.Accept(l.fd)
	if err != nil {
		return nil, err
	}
	return &rawConn{fd: nfd}, nil
}

func (l *rawListener) Close() error {
	err := unix.Close(l.fd)
	_ = os.Remove(l.path)
	return err
}

// rawConn adapts a raw accepted fd to net.Conn. Deadlines are no-ops: the
// protocol has no per-command timeout (spec.md §5), so nothing here ever
// sets one.
type rawConn struct {
	fd int
}

var _ net.Conn = (*rawConn)(nil)

func (c *rawConn) Read(b []byte) (int, error)  { return unix.Read(c.fd, b) }
func (c *rawConn) Write(b []byte) (int, error) { return unix.Write(c.fd, b) }
func (c *rawConn) Close() error                { return unix.Close(c.fd) }

func (c *rawConn) LocalAddr() net.Addr                { return nil }
func (c *rawConn) RemoteAddr() net.Addr               { return nil }
func (c *rawConn) SetDeadline(t time.Time) error      { return nil }
func (c *rawConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *rawConn) SetWriteDeadline(t time.Time) error { return nil }
