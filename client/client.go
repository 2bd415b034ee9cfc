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

// Package client is the thin dial-side wrapper over transport.Dial and
// connection.New (spec §4.8): resolve a URI to a Transport endpoint, wrap
// it in a Connection, and hand back a ready-to-Call session.
package client

import (
	"context"
	"time"

	"github.com/nabbar/golib/duration"
	"github.com/opsnet/rpcgo/connection"
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
	"github.com/opsnet/rpcgo/transport"
)

// Options configures Dial beyond the bare URI.
type Options struct {
	// Codec names the payload serializer negotiated for this session,
	// e.g. "msgpack", "json", "yaml". Defaults to "msgpack".
	Codec string
	// TransportOpts is passed through to the registered transport's
	// DialFunc verbatim (e.g. {"tls": true} for tcpsock, {"nats_url": ...}
	// for bus).
	TransportOpts *object.Object
}

// Client is one outbound Connection, dialed against a single peer.
type Client struct {
	*connection.Connection
}

// Dial resolves uri against the transport registry (spec §4.1 "Transport
// abstraction") and returns a Client ready to issue Call/Subscribe/
// Discover* requests.
func Dial(ctx context.Context, uri string, opts Options) (*Client, liberr.Error) {
	ep, err := transport.Dial(ctx, uri, opts.TransportOpts)
	if err != nil {
		return nil, err
	}
	return &Client{Connection: connection.New(ep, opts.Codec)}, nil
}

// DialRetry calls Dial repeatedly, backing off between attempts along a
// PID-smoothed schedule from duration.Duration's RangeDefTo (the same
// ramp the teacher's duration package uses for paced polling), instead
// of a fixed or naively-doubling delay. It gives up once attempts is
// exhausted or ctx is done, returning the last dial error.
func DialRetry(ctx context.Context, uri string, opts Options, attempts int, start, max time.Duration) (*Client, liberr.Error) {
	schedule := duration.ParseDuration(start).RangeDefTo(duration.ParseDuration(max))

	var lastErr liberr.Error
	for i := 0; i < attempts; i++ {
		cl, err := Dial(ctx, uri, opts)
		if err == nil {
			return cl, nil
		}
		lastErr = err

		delay := schedule[len(schedule)-1]
		if i < len(schedule) {
			delay = schedule[i]
		}
		select {
		case <-ctx.Done():
			return nil, liberr.KindTimeout.Error(ctx.Err())
		case <-time.After(delay.Time()):
		}
	}
	return nil, lastErr
}
