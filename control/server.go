package control

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/internal/rtlog"
)

// maxLine bounds one request/response line; a control client has no
// business sending more than this in a single io.write/io.force params
// object.
const maxLine = 1 << 20

// Handler answers one request type with a JSON-marshalable result or an
// error, which the Server reports back as Response.Error.
type Handler func(params json.RawMessage) (any, error)

// Server dispatches decoded Requests to registered Handlers by exact
// Request.Type match and serves the protocol over any net.Listener
// (§6.3: "a TCP or Unix-domain socket carries the stream").
type Server struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	log      rtlog.Logger
}

// NewServer builds an empty Server; call Handle (or RegisterIO) to wire in
// request types before Serve.
func NewServer(log rtlog.Logger) *Server {
	if log == nil {
		log = rtlog.Nop()
	}
	return &Server{handlers: make(map[string]Handler), log: log}
}

// Handle registers h under reqType, replacing any existing handler for
// that exact type. "hmi.…" request types (§6.3) have no built-in
// semantics; a caller wires its own HMI surface through this method the
// same way RegisterIO wires the io.* surface.
func (s *Server) Handle(reqType string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[reqType] = h
}

// Serve listens on network/address (e.g. "tcp"/"127.0.0.1:4840" or
// "unix"/"/run/stcore.sock") and serves connections until ctx is canceled,
// at which point the listener and every open connection are closed and any
// in-flight handler call is allowed to return before Serve returns.
// Grounded on runtime.Supervisor.Run's shape: an errgroup fans out one
// goroutine per unit of concurrent work (here, per connection) and a
// watcher goroutine closes the shared resource (the listener) on ctx.Done.
func (s *Server) Serve(ctx context.Context, network, address string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, network, address)
	if err != nil {
		return errs.Wrap(errs.KindControlError, err, "listen on %s %q", network, address)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return g.Wait()
			default:
				return errs.Wrap(errs.KindControlError, err, "accept connection on %s %q", network, address)
			}
		}
		g.Go(func() error {
			stop := context.AfterFunc(ctx, func() { conn.Close() })
			defer stop()
			s.serveConn(conn)
			return nil
		})
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLine)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			if encErr := enc.Encode(Response{OK: false, Error: fmt.Sprintf("malformed request: %v", err)}); encErr != nil {
				return
			}
			continue
		}
		if err := enc.Encode(s.dispatch(req)); err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.log.Warnf("control connection read error: %v", err)
	}
}

func (s *Server) dispatch(req Request) Response {
	s.mu.RLock()
	h, ok := s.handlers[req.Type]
	s.mu.RUnlock()
	if !ok {
		return Response{ID: req.ID, OK: false, Error: fmt.Sprintf("unrecognized request type %q", req.Type)}
	}
	result, err := h(req.Params)
	if err != nil {
		return Response{ID: req.ID, OK: false, Error: err.Error()}
	}
	return Response{ID: req.ID, OK: true, Result: result}
}
