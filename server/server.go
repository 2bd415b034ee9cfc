/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package server is the thin listen-side wrapper over transport.Listen
// and connection.New (spec §4.8): accept Endpoints in a loop, wrap each
// in a Connection sharing one rpcctx.Context, and track them for
// broadcast and shutdown.
package server

import (
	"context"
	"sync"

	"github.com/opsnet/rpcgo/connection"
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
	"github.com/opsnet/rpcgo/rpcctx"
	"github.com/opsnet/rpcgo/transport"
)

// Options configures Listen beyond the bare URI.
type Options struct {
	Codec         string
	TransportOpts *object.Object
}

// Server accepts Connections on one Listener and dispatches them all
// against the same Context.
type Server struct {
	ln   transport.Listener
	ctx  *rpcctx.Context
	opts Options

	mu    sync.Mutex
	conns map[*connection.Connection]struct{}

	acceptDone chan struct{}
}

// Listen starts listening on uri and returns a Server bound to ctx. ctx
// is retained for the Server's lifetime and released on Close.
func Listen(parent context.Context, uri string, ctx *rpcctx.Context, opts Options) (*Server, liberr.Error) {
	ln, err := transport.Listen(parent, uri, opts.TransportOpts)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:         ln,
		ctx:        ctx.Retain(),
		opts:       opts,
		conns:      make(map[*connection.Connection]struct{}),
		acceptDone: make(chan struct{}),
	}
	go s.acceptLoop(parent)
	return s, nil
}

// URI returns the Listener's own bound address.
func (s *Server) URI() string { return s.ln.URI() }

func (s *Server) acceptLoop(ctx context.Context) {
	defer close(s.acceptDone)
	for {
		ep, err := s.ln.Accept(ctx)
		if err != nil {
			return
		}
		conn := connection.New(ep, s.opts.Codec)
		conn.RegisterContext(s.ctx)
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
	}
}

// Broadcast fans an event out to every currently connected peer (spec
// §4.4 "Events": "broadcast is server-initiated").
func (s *Server) Broadcast(path, iface, name string, args *object.Object) {
	s.mu.Lock()
	conns := make([]*connection.Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.BroadcastEvent(path, iface, name, args)
	}
}

// Close stops accepting new Connections, closes every live one, and
// releases the shared Context.
func (s *Server) Close() liberr.Error {
	err := s.ln.Close()
	<-s.acceptDone

	s.mu.Lock()
	conns := make([]*connection.Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.conns = make(map[*connection.Connection]struct{})
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	s.ctx.Release()
	return err
}
