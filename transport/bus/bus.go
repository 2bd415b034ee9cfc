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

// Package bus implements the `bus://<name>` transport over
// github.com/nats-io/nats.go: each endpoint publishes frames to a subject
// derived from its peer's name under a well-known root subject, matching
// the "local registry service" description of the discover namespace
// (spec §6). bus_enumerate/bus_ping are plain NATS request/reply calls
// against that root.
package bus

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
	"github.com/opsnet/rpcgo/transport"
)

func init() {
	transport.Register("bus", dial, listen)
}

// RootSubject is the well-known subject namespace every bus endpoint
// publishes and subscribes under.
const RootSubject = "rpcgo.bus"

const natsDefaultURL = nats.DefaultURL

func natsURLFromOpts(opts *object.Object) string {
	if opts == nil {
		return natsDefaultURL
	}
	if u, ok := opts.Get("nats_url"); ok {
		if s, serr := u.String(); serr == nil && s != "" {
			return s
		}
	}
	return natsDefaultURL
}

func subjectFor(name string) string { return fmt.Sprintf("%s.endpoint.%s", RootSubject, name) }

type endpoint struct {
	nc      *nats.Conn
	name    string
	peer    string
	sub     *nats.Subscription
	inbox   string
	uri     string
	msgCh   chan *nats.Msg
	closeMu sync.Once
	closed  chan struct{}
}

// dial connects to the NATS server and subscribes a private inbox subject
// for replies; the peer's listener learns of it from the first Send.
func dial(ctx context.Context, u *url.URL, opts *object.Object) (transport.Endpoint, liberr.Error) {
	nc, e := nats.Connect(natsURLFromOpts(opts))
	if e != nil {
		return nil, liberr.KindTransportClosed.Error(e)
	}
	peer := u.Host
	if peer == "" {
		peer = u.Opaque
	}
	inbox := nats.NewInbox()
	msgCh := make(chan *nats.Msg, 256)
	sub, e := nc.ChanSubscribe(inbox, msgCh)
	if e != nil {
		nc.Close()
		return nil, liberr.KindTransportClosed.Error(e)
	}
	return &endpoint{nc: nc, name: inbox, peer: subjectFor(peer), sub: sub, inbox: inbox, uri: u.String(), msgCh: msgCh, closed: make(chan struct{})}, nil
}

// listen subscribes name to the bus and answers inbound frames, handing
// each new peer's first message off as a freshly accepted Endpoint.
func listen(ctx context.Context, u *url.URL, opts *object.Object) (transport.Listener, liberr.Error) {
	nc, e := nats.Connect(natsURLFromOpts(opts))
	if e != nil {
		return nil, liberr.KindTransportClosed.Error(e)
	}
	name := u.Host
	if name == "" {
		name = u.Opaque
	}
	accepted := make(chan transport.Endpoint, 16)
	peers := make(map[string]*endpoint)
	var mu sync.Mutex

	subj := subjectFor(name)
	sub, e := nc.Subscribe(subj, func(msg *nats.Msg) {
		mu.Lock()
		ep, ok := peers[msg.Reply]
		if !ok {
			msgCh := make(chan *nats.Msg, 256)
			rsub, serr := nc.ChanSubscribe(msg.Reply, msgCh)
			if serr != nil {
				mu.Unlock()
				return
			}
			ep = &endpoint{nc: nc, name: subj, peer: msg.Reply, sub: rsub, inbox: subj, uri: u.String(), msgCh: msgCh, closed: make(chan struct{})}
			peers[msg.Reply] = ep
			mu.Unlock()
			accepted <- ep
		} else {
			mu.Unlock()
		}
		ep.msgCh <- msg
	})
	if e != nil {
		nc.Close()
		return nil, liberr.KindTransportClosed.Error(e)
	}
	return &listener{nc: nc, sub: sub, uri: u.String(), accepted: accepted}, nil
}

type listener struct {
	nc       *nats.Conn
	sub      *nats.Subscription
	uri      string
	accepted chan transport.Endpoint
}

func (l *listener) Accept(ctx context.Context) (transport.Endpoint, liberr.Error) {
	select {
	case ep := <-l.accepted:
		return ep, nil
	case <-ctx.Done():
		return nil, liberr.KindTimeout.Error(nil)
	}
}

func (l *listener) Close() liberr.Error {
	_ = l.sub.Unsubscribe()
	l.nc.Close()
	return nil
}

func (l *listener) URI() string { return l.uri }

func (e *endpoint) Send(ctx context.Context, frame []byte, attachments []transport.Attachment) liberr.Error {
	if len(attachments) > 0 {
		return liberr.KindUnsupportedByTransport.Error(nil)
	}
	if err := e.nc.PublishRequest(e.peer, e.inbox, frame); err != nil {
		return liberr.KindTransportClosed.Error(err)
	}
	return nil
}

func (e *endpoint) Recv(ctx context.Context) ([]byte, []transport.Attachment, liberr.Error) {
	select {
	case msg, ok := <-e.msgCh:
		if !ok {
			return nil, nil, liberr.KindTransportClosed.Error(nil)
		}
		return msg.Data, nil, nil
	case <-e.closed:
		return nil, nil, liberr.KindTransportClosed.Error(nil)
	case <-ctx.Done():
		return nil, nil, liberr.KindTimeout.Error(nil)
	}
}

func (e *endpoint) Close() liberr.Error {
	e.closeMu.Do(func() {
		_ = e.sub.Unsubscribe()
		close(e.closed)
	})
	return nil
}

func (e *endpoint) SupportsDescriptors() bool { return false }
func (e *endpoint) URI() string               { return e.uri }

// Enumerate performs a bus_enumerate request against the root subject,
// returning the names of every instance currently registered with rpcd
// (spec §6).
func Enumerate(ctx context.Context, natsURL string, timeout time.Duration) ([]string, liberr.Error) {
	nc, e := nats.Connect(firstNonEmpty(natsURL, natsDefaultURL))
	if e != nil {
		return nil, liberr.KindTransportClosed.Error(e)
	}
	defer nc.Close()
	msg, e := nc.Request(RootSubject+".enumerate", nil, timeout)
	if e != nil {
		return nil, liberr.KindTimeout.Error(e)
	}
	return splitNonEmpty(string(msg.Data)), nil
}

// Ping performs a bus_ping request for a single named instance (spec §6).
func Ping(ctx context.Context, natsURL, name string, timeout time.Duration) liberr.Error {
	nc, e := nats.Connect(firstNonEmpty(natsURL, natsDefaultURL))
	if e != nil {
		return liberr.KindTransportClosed.Error(e)
	}
	defer nc.Close()
	if _, e = nc.Request(subjectFor(name)+".ping", nil, timeout); e != nil {
		return liberr.KindTimeout.Error(e)
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func splitNonEmpty(s string) []string {
	out := make([]string, 0)
	cur := ""
	for _, r := range s {
		if r == '\n' {
			if cur != "" {
				out = append(out, cur)
			}
			cur = ""
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
