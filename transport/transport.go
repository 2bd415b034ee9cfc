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

// Package transport abstracts the bidirectional, message-oriented channel a
// Connection speaks over. Concrete schemes (unix, tcp, ws, loopback, bus)
// register themselves in a process-wide registry keyed by URI scheme, the
// same pattern database/sql drivers use: import the sub-package for its
// side effect, then Dial/Listen by URI.
package transport

import (
	"context"
	"net/url"
	"sync"

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

// Attachment is one file descriptor carried alongside a frame. FD is the
// descriptor number valid in the sending process; transports that cannot
// pass descriptors (tcp, ws) must reject any Send carrying attachments.
type Attachment struct {
	FD int
}

// Endpoint is one end of an established bidirectional channel.
type Endpoint interface {
	// Send enqueues frame (plus any attachments) on the wire. It returns
	// once the frame has been handed to the transport, not once the peer
	// has received it.
	Send(ctx context.Context, frame []byte, attachments []Attachment) liberr.Error

	// Recv blocks for the next frame. It is called from the Connection's
	// single reader task and must not be called concurrently.
	Recv(ctx context.Context) (frame []byte, attachments []Attachment, err liberr.Error)

	// Close initiates graceful shutdown; a blocked Recv unblocks with
	// errors.KindTransportClosed, and any further Send fails the same way.
	Close() liberr.Error

	// SupportsDescriptors reports whether Send/Recv may carry Attachments.
	SupportsDescriptors() bool

	// URI returns the endpoint's own address, as dialed or listened on.
	URI() string
}

// Listener accepts inbound Endpoints for a server-side URI.
type Listener interface {
	Accept(ctx context.Context) (Endpoint, liberr.Error)
	Close() liberr.Error
	URI() string
}

// DialFunc connects to uri (already parsed) and returns an Endpoint.
// opts carries transport-specific options (e.g. `{tls: bool}` for tcp) as a
// dictionary Object, or nil for defaults.
type DialFunc func(ctx context.Context, u *url.URL, opts *object.Object) (Endpoint, liberr.Error)

// ListenFunc starts listening on uri and returns a Listener.
type ListenFunc func(ctx context.Context, u *url.URL, opts *object.Object) (Listener, liberr.Error)

type scheme struct {
	dial   DialFunc
	listen ListenFunc
}

var registry = struct {
	mu sync.RWMutex
	m  map[string]scheme
}{m: make(map[string]scheme)}

// Register installs dial/listen functions for a URI scheme (without the
// trailing "://"). Either may be nil if that direction is unsupported
// (e.g. a client-only bus resolver).
func Register(name string, dial DialFunc, listen ListenFunc) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.m[name] = scheme{dial: dial, listen: listen}
}

func lookup(name string) (scheme, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	s, ok := registry.m[name]
	return s, ok
}

// Dial parses uri and connects via the scheme's registered DialFunc.
func Dial(ctx context.Context, uri string, opts *object.Object) (Endpoint, liberr.Error) {
	u, e := url.Parse(uri)
	if e != nil {
		return nil, liberr.KindInvalidArguments.Error(e)
	}
	s, ok := lookup(u.Scheme)
	if !ok || s.dial == nil {
		return nil, liberr.KindNotFound.Error(nil)
	}
	return s.dial(ctx, u, opts)
}

// Listen parses uri and starts listening via the scheme's registered
// ListenFunc.
func Listen(ctx context.Context, uri string, opts *object.Object) (Listener, liberr.Error) {
	u, e := url.Parse(uri)
	if e != nil {
		return nil, liberr.KindInvalidArguments.Error(e)
	}
	s, ok := lookup(u.Scheme)
	if !ok || s.listen == nil {
		return nil, liberr.KindNotFound.Error(nil)
	}
	return s.listen(ctx, u, opts)
}
