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

// Package loopback implements the `loopback://` transport: an in-process
// pair of Endpoints joined by channels, sharing descriptors by value
// (spec §4.3). It exists for tests and same-process client/server pairs.
package loopback

import (
	"context"
	"net/url"
	"sync"

	"github.com/opsnet/rpcgo/transport"

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

func init() {
	transport.Register("loopback", dial, nil)
}

type frame struct {
	data []byte
	atts []transport.Attachment
}

type endpoint struct {
	uri  string
	out  chan frame
	in   chan frame
	once sync.Once
	done chan struct{}
}

// Pair returns two connected Endpoints, as if one had dialed the other's
// `loopback://<id>` address.
func Pair(id string) (a, b transport.Endpoint) {
	ab := make(chan frame, 64)
	ba := make(chan frame, 64)
	ea := &endpoint{uri: "loopback://" + id, out: ab, in: ba, done: make(chan struct{})}
	eb := &endpoint{uri: "loopback://" + id, out: ba, in: ab, done: make(chan struct{})}
	return ea, eb
}

// dial is registered under the "loopback" scheme but a bare Dial cannot
// conjure a peer out of thin air; real users call Pair directly (as the
// loopback scheme is for same-process test wiring, not a resolvable
// network address).
func dial(_ context.Context, _ *url.URL, _ *object.Object) (transport.Endpoint, liberr.Error) {
	return nil, liberr.KindNotFound.Error(nil)
}

func (e *endpoint) Send(ctx context.Context, data []byte, atts []transport.Attachment) liberr.Error {
	select {
	case <-e.done:
		return liberr.KindTransportClosed.Error(nil)
	default:
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	select {
	case e.out <- frame{data: cp, atts: atts}:
		return nil
	case <-e.done:
		return liberr.KindTransportClosed.Error(nil)
	case <-ctx.Done():
		return liberr.KindTimeout.Error(nil)
	}
}

func (e *endpoint) Recv(ctx context.Context) ([]byte, []transport.Attachment, liberr.Error) {
	select {
	case f, ok := <-e.in:
		if !ok {
			return nil, nil, liberr.KindTransportClosed.Error(nil)
		}
		return f.data, f.atts, nil
	case <-e.done:
		return nil, nil, liberr.KindTransportClosed.Error(nil)
	case <-ctx.Done():
		return nil, nil, liberr.KindTimeout.Error(nil)
	}
}

func (e *endpoint) Close() liberr.Error {
	e.once.Do(func() { close(e.done) })
	return nil
}

func (e *endpoint) SupportsDescriptors() bool { return true }
func (e *endpoint) URI() string               { return e.uri }
