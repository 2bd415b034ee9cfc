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

// Package tcpsock implements the `tcp://` and `tcps://` transports (TLS for
// `tcps://`, or for `tcp://` with opts.tls=true): length-prefixed frames
// over a plain or TLS net.Conn
// (spec §4.3). Descriptor passing is not possible over a stream socket, so
// SupportsDescriptors is always false and Send rejects attachments.
package tcpsock

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/nabbar/golib/certificates"
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
	"github.com/opsnet/rpcgo/query"
	"github.com/opsnet/rpcgo/transport"
)

func init() {
	transport.Register("tcp", dial, listen)
	transport.Register("tcps", dial, listen)
}

const maxFrameSize = 64 << 20

func optsTLS(scheme string, opts *object.Object) bool {
	if scheme == "tcps" {
		return true
	}
	if opts == nil {
		return false
	}
	v := query.Get(opts, "tls", object.NewBool(false))
	b, _ := v.Bool()
	return b
}

type endpoint struct {
	conn net.Conn
	uri  string
}

func dial(ctx context.Context, u *url.URL, opts *object.Object) (transport.Endpoint, liberr.Error) {
	d := net.Dialer{}
	conn, e := d.DialContext(ctx, "tcp", u.Host)
	if e != nil {
		return nil, liberr.KindTransportClosed.Error(e)
	}
	if optsTLS(u.Scheme, opts) {
		conn = tls.Client(conn, certificates.New().TLS(u.Hostname()))
	}
	return &endpoint{conn: conn, uri: u.String()}, nil
}

func listen(ctx context.Context, u *url.URL, opts *object.Object) (transport.Listener, liberr.Error) {
	lc := net.ListenConfig{}
	ln, e := lc.Listen(ctx, "tcp", u.Host)
	if e != nil {
		return nil, liberr.KindTransportClosed.Error(e)
	}
	uri := u.Scheme + "://" + ln.Addr().String()
	return &listener{ln: ln, uri: uri, tls: optsTLS(u.Scheme, opts)}, nil
}

type listener struct {
	ln  net.Listener
	uri string
	tls bool
}

func (l *listener) Accept(ctx context.Context) (transport.Endpoint, liberr.Error) {
	type result struct {
		c net.Conn
		e error
	}
	ch := make(chan result, 1)
	go func() {
		c, e := l.ln.Accept()
		ch <- result{c, e}
	}()
	select {
	case r := <-ch:
		if r.e != nil {
			return nil, liberr.KindTransportClosed.Error(r.e)
		}
		conn := r.c
		if l.tls {
			conn = tls.Server(conn, certificates.New().TLS(""))
		}
		return &endpoint{conn: conn, uri: l.uri}, nil
	case <-ctx.Done():
		return nil, liberr.KindTimeout.Error(nil)
	}
}

func (l *listener) Close() liberr.Error {
	if e := l.ln.Close(); e != nil {
		return liberr.KindTransportClosed.Error(e)
	}
	return nil
}

func (l *listener) URI() string { return l.uri }

func (e *endpoint) Send(ctx context.Context, frame []byte, attachments []transport.Attachment) liberr.Error {
	if len(attachments) > 0 {
		return liberr.KindUnsupportedByTransport.Error(nil)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = e.conn.SetWriteDeadline(dl)
	} else {
		_ = e.conn.SetWriteDeadline(time.Time{})
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(frame)))
	if _, err := e.conn.Write(hdr[:]); err != nil {
		return liberr.KindTransportClosed.Error(err)
	}
	if _, err := e.conn.Write(frame); err != nil {
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
	var hdr [4]byte
	if _, err := io.ReadFull(e.conn, hdr[:]); err != nil {
		return nil, nil, liberr.KindTransportClosed.Error(err)
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxFrameSize {
		return nil, nil, liberr.KindInvalidArguments.Error(nil)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(e.conn, buf); err != nil {
		return nil, nil, liberr.KindTransportClosed.Error(err)
	}
	return buf, nil, nil
}

func (e *endpoint) Close() liberr.Error {
	if err := e.conn.Close(); err != nil {
		return liberr.KindTransportClosed.Error(err)
	}
	return nil
}

func (e *endpoint) SupportsDescriptors() bool { return false }
func (e *endpoint) URI() string               { return e.uri }
