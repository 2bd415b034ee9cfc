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

// Package connection ties a transport.Endpoint, a call.Call/call.ServerCall
// factory and an rpcctx.Context together into the single reader task / one
// writer mutex runtime described in spec §4.4 and §5: one envelope
// namespace table (rpc/events/connection/discover), one pending_calls map
// for the client role, one active_calls map for the server role.
package connection

import (
	"context"
	"sync"
	"sync/atomic"

	libatm "github.com/nabbar/golib/atomic"
	libctx "github.com/nabbar/golib/context"
	"github.com/opsnet/rpcgo/call"
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/idgen"
	"github.com/opsnet/rpcgo/logger"
	"github.com/opsnet/rpcgo/object"
	"github.com/opsnet/rpcgo/rpcctx"
	"github.com/opsnet/rpcgo/transport"
)

// State is the Connection's own lifecycle, distinct from any one Call's.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// EventPattern is one registered event subscription; a nil field matches
// any value in that position (spec §4.4 "Events").
type EventPattern struct {
	Path      *string
	Interface *string
	Name      *string
}

func (p EventPattern) matches(path, iface, name string) bool {
	if p.Path != nil && *p.Path != path {
		return false
	}
	if p.Interface != nil && *p.Interface != iface {
		return false
	}
	if p.Name != nil && *p.Name != name {
		return false
	}
	return true
}

// EventHandler is invoked for every broadcast event whose pattern matches.
type EventHandler func(path, iface, name string, args *object.Object)

// Connection is one bidirectional RPC session over a transport.Endpoint.
// A given process may use a Connection purely as a client (Call), purely
// as a server (attach a rpcctx.Context with RegisterContext), or both.
type Connection struct {
	ep     transport.Endpoint
	codec  string
	seq    idgen.Sequence
	state  atomic.Int32
	ctx    atomic.Pointer[rpcctx.Context]
	log    logger.Logger

	writeMu sync.Mutex

	pendingCalls libatm.MapTyped[uint64, *call.Call]
	activeCalls  libatm.MapTyped[uint64, *call.ServerCall]

	subsMu sync.Mutex
	subs   map[uint64]struct {
		pattern EventPattern
		handler EventHandler
	}
	subSeq uint64

	readerDone chan struct{}
	closeOnce  sync.Once

	meta libctx.Config[string]
}

// New wraps ep in a Connection using codecName (e.g. "msgpack") for
// payload encoding, and starts its reader task.
func New(ep transport.Endpoint, codecName string) *Connection {
	if codecName == "" {
		codecName = defaultCodec
	}
	c := &Connection{
		ep:           ep,
		codec:        codecName,
		log:          logger.Noop(),
		pendingCalls: libatm.NewMapTyped[uint64, *call.Call](),
		activeCalls:  libatm.NewMapTyped[uint64, *call.ServerCall](),
		subs: make(map[uint64]struct {
			pattern EventPattern
			handler EventHandler
		}),
		readerDone: make(chan struct{}),
		meta:       libctx.New[string](context.Background()),
	}
	c.meta.Store("codec", codecName)
	c.meta.Store("uri", ep.URI())
	go c.readLoop()
	return c
}

// Meta returns the session-scoped metadata bag negotiated for this
// Connection (at minimum "codec" and "uri"; handlers may Store further
// keys such as an authenticated identity). It is independent of any one
// Call's context.Context and lives for the Connection's whole lifetime.
func (c *Connection) Meta() libctx.Config[string] { return c.meta }

// SetLogger installs the structured logger used for connection lifecycle
// and dispatch errors (SPEC_FULL.md §2: "default is a no-op logger").
func (c *Connection) SetLogger(l logger.Logger) {
	if l == nil {
		l = logger.Noop()
	}
	c.log = l
}

// RegisterContext attaches the rpcctx.Context this Connection dispatches
// rpc.call and discover.* requests against (server role). Retains a
// reference for the Connection's lifetime.
func (c *Connection) RegisterContext(ctx *rpcctx.Context) {
	c.ctx.Store(ctx.Retain())
}

func (c *Connection) State() State { return State(c.state.Load()) }

// send encodes and writes one envelope. Per spec §4.7, a payload carrying
// an fd or shmem Object is rejected up front when the underlying
// Transport cannot pass descriptors, rather than silently dropping them.
func (c *Connection) send(e envelope) liberr.Error {
	if e.Payload != nil && hasDescriptorPayload(e.Payload) && !c.ep.SupportsDescriptors() {
		return liberr.KindUnsupportedByTransport.Error(nil)
	}

	frame, atts, err := encodeEnvelope(e, c.codec)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.State() == StateClosed {
		return liberr.KindTransportClosed.Error(nil)
	}
	return c.ep.Send(context.Background(), frame, atts)
}

// Close shuts the Transport down, unblocking the reader, which then fails
// every pending Call with transport-closed (spec §5).
func (c *Connection) Close() liberr.Error {
	var err liberr.Error
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		err = c.ep.Close()
		<-c.readerDone
		if old := c.ctx.Load(); old != nil {
			old.Release()
		}
	})
	return err
}

func (c *Connection) readLoop() {
	defer close(c.readerDone)
	for {
		frame, atts, rerr := c.ep.Recv(context.Background())
		if rerr != nil {
			c.log.Debug("connection reader stopping", logger.Fields{"reason": rerr.Error()})
			c.failAllPending(rerr)
			return
		}
		e, derr := decodeEnvelope(frame, atts, c.codec)
		if derr != nil {
			c.log.Warning("dropping undecodable envelope", logger.Fields{"error": derr.Error()})
			continue
		}
		c.dispatch(e)
	}
}

func (c *Connection) failAllPending(reason liberr.Error) {
	errObj := object.NewError(int64(reason.GetCode()), reason.Error(), nil, nil)
	defer errObj.Release()
	c.pendingCalls.Range(func(id uint64, cl *call.Call) bool {
		cl.OnError(errObj)
		c.pendingCalls.Delete(id)
		return true
	})
	c.activeCalls.Range(func(id uint64, sc *call.ServerCall) bool {
		sc.Cancel()
		c.activeCalls.Delete(id)
		return true
	})
}

func (c *Connection) dispatch(e envelope) {
	switch e.Namespace {
	case "rpc":
		c.dispatchRPC(e)
	case "events":
		c.dispatchEvents(e)
	case "connection":
		c.dispatchConnection(e)
	case "discover":
		c.dispatchDiscover(e)
	}
	if e.Payload != nil {
		e.Payload.Release()
	}
}

func (c *Connection) dispatchConnection(e envelope) {
	switch e.Name {
	case "ping":
		_ = c.send(envelope{Namespace: "connection", Name: "pong", ID: e.ID})
	case "pong":
		// keepalive acknowledgement; nothing to do.
	case "close":
		c.state.Store(int32(StateClosing))
	}
}

// Ping sends an opportunistic keepalive (spec §4.4: "Ping/pong is
// opportunistic and keepalive-only").
func (c *Connection) Ping() liberr.Error {
	return c.send(envelope{Namespace: "connection", Name: "ping", ID: c.seq.Next()})
}
