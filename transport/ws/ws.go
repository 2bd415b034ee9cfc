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

// Package ws implements the `ws://` and `wss://` transport over
// github.com/gorilla/websocket, one binary message per frame. Like tcpsock
// it cannot pass descriptors.
package ws

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nabbar/golib/certificates"
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
	"github.com/opsnet/rpcgo/transport"
)

func init() {
	transport.Register("ws", dial, listen)
	transport.Register("wss", dial, listen)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 << 10,
	WriteBufferSize: 64 << 10,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

type endpoint struct {
	conn *websocket.Conn
	uri  string
	mu   writeMu
}

type writeMu struct{ ch chan struct{} }

func newWriteMu() writeMu {
	w := writeMu{ch: make(chan struct{}, 1)}
	w.ch <- struct{}{}
	return w
}

func (w writeMu) lock()   { <-w.ch }
func (w writeMu) unlock() { w.ch <- struct{}{} }

func dial(ctx context.Context, u *url.URL, opts *object.Object) (transport.Endpoint, liberr.Error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = certificates.New().TLS(u.Hostname())
	}
	c, _, e := dialer.DialContext(ctx, u.String(), nil)
	if e != nil {
		return nil, liberr.KindTransportClosed.Error(e)
	}
	return &endpoint{conn: c, uri: u.String(), mu: newWriteMu()}, nil
}

// listen is not implemented directly: accepting ws connections requires an
// http.Server and mux registration owned by the caller. Servers embed
// UpgradeHandler in their own mux instead of calling transport.Listen for
// this scheme.
func listen(ctx context.Context, u *url.URL, opts *object.Object) (transport.Listener, liberr.Error) {
	return nil, liberr.KindUnsupportedByTransport.Error(nil)
}

// UpgradeHandler upgrades an inbound http.Request to a websocket Endpoint
// and delivers it on accepted. Wire it into a server's mux:
//
//	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
//	    ws.UpgradeHandler(accepted)(w, r)
//	})
func UpgradeHandler(accepted chan<- transport.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, e := upgrader.Upgrade(w, r, nil)
		if e != nil {
			return
		}
		accepted <- &endpoint{conn: c, uri: r.URL.String(), mu: newWriteMu()}
	}
}

func (e *endpoint) Send(ctx context.Context, frame []byte, attachments []transport.Attachment) liberr.Error {
	if len(attachments) > 0 {
		return liberr.KindUnsupportedByTransport.Error(nil)
	}
	e.mu.lock()
	defer e.mu.unlock()
	if dl, ok := ctx.Deadline(); ok {
		_ = e.conn.SetWriteDeadline(dl)
	} else {
		_ = e.conn.SetWriteDeadline(time.Time{})
	}
	if err := e.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return liberr.KindTransportClosed.Error(err)
	}
	return nil
}

func (e *endpoint) Recv(ctx context.Context) ([]byte, []transport.Attachment, liberr.Error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = e.conn.SetReadDeadline(dl)
	} else {
		_ = e.conn.SetReadDeadline(time.Time{})
	}
	_, data, err := e.conn.ReadMessage()
	if err != nil {
		if _, ok := err.(net.Error); ok {
			return nil, nil, liberr.KindTimeout.Error(err)
		}
		return nil, nil, liberr.KindTransportClosed.Error(err)
	}
	return data, nil, nil
}

func (e *endpoint) Close() liberr.Error {
	if err := e.conn.Close(); err != nil {
		return liberr.KindTransportClosed.Error(err)
	}
	return nil
}

func (e *endpoint) SupportsDescriptors() bool { return false }
func (e *endpoint) URI() string               { return e.uri }
