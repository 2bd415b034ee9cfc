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

// Package unixsock implements the `unix://` transport over
// AF_UNIX SOCK_STREAM sockets, the only socket scheme in this module able to
// pass file descriptors (loopback hands them over by value in-process)
// (spec §4.3, §4.8): attachments ride alongside each frame
// as SCM_RIGHTS ancillary data via golang.org/x/sys/unix.
package unixsock

import (
	"context"
	"encoding/binary"
	"net"
	"net/url"
	"os"

	"golang.org/x/sys/unix"

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/nabbar/golib/file/perm"
	"github.com/opsnet/rpcgo/object"
	"github.com/opsnet/rpcgo/query"
	"github.com/opsnet/rpcgo/transport"
)

func init() {
	transport.Register("unix", dial, listen)
}

const maxFrameSize = 64 << 20
const maxAttachments = 16

func socketPath(u *url.URL) string {
	if u.Path != "" {
		return u.Path
	}
	return u.Opaque
}

func dial(ctx context.Context, u *url.URL, _ *object.Object) (transport.Endpoint, liberr.Error) {
	d := net.Dialer{}
	conn, e := d.DialContext(ctx, "unix", socketPath(u))
	if e != nil {
		return nil, liberr.KindTransportClosed.Error(e)
	}
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, liberr.KindInternal.Error(nil)
	}
	return &endpoint{conn: uc, uri: u.String()}, nil
}

func listen(ctx context.Context, u *url.URL, opts *object.Object) (transport.Listener, liberr.Error) {
	path := socketPath(u)
	_ = os.Remove(path)
	ln, e := net.Listen("unix", path)
	if e != nil {
		return nil, liberr.KindTransportClosed.Error(e)
	}
	if opts != nil {
		if query.Contains(opts, "mode") {
			s, _ := query.Get(opts, "mode", object.NewNull()).String()
			if p, perr := perm.Parse(s); perr == nil {
				_ = os.Chmod(path, p.FileMode())
			}
		}
	}
	return &listener{ln: ln.(*net.UnixListener), uri: u.String(), path: path}, nil
}

type listener struct {
	ln   *net.UnixListener
	uri  string
	path string
}

func (l *listener) Accept(ctx context.Context) (transport.Endpoint, liberr.Error) {
	type result struct {
		c *net.UnixConn
		e error
	}
	ch := make(chan result, 1)
	go func() {
		c, e := l.ln.AcceptUnix()
		ch <- result{c, e}
	}()
	select {
	case r := <-ch:
		if r.e != nil {
			return nil, liberr.KindTransportClosed.Error(r.e)
		}
		return &endpoint{conn: r.c, uri: l.uri}, nil
	case <-ctx.Done():
		return nil, liberr.KindTimeout.Error(nil)
	}
}

func (l *listener) Close() liberr.Error {
	if e := l.ln.Close(); e != nil {
		return liberr.KindTransportClosed.Error(e)
	}
	_ = os.Remove(l.path)
	return nil
}

func (l *listener) URI() string { return l.uri }

type endpoint struct {
	conn *net.UnixConn
	uri  string
}

func (e *endpoint) Send(ctx context.Context, frame []byte, attachments []transport.Attachment) liberr.Error {
	if len(attachments) > maxAttachments {
		return liberr.KindInvalidArguments.Error(nil)
	}
	raw, rerr := e.conn.SyscallConn()
	if rerr != nil {
		return liberr.KindTransportClosed.Error(rerr)
	}

	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(frame)))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(attachments)))

	var oob []byte
	if len(attachments) > 0 {
		fds := make([]int, len(attachments))
		for i, a := range attachments {
			fds[i] = a.FD
		}
		oob = unix.UnixRights(fds...)
	}

	payload := append(append([]byte{}, hdr[:]...), frame...)

	// conn.Write cannot run inside raw.Write (both take the fd write lock).
	if oob == nil {
		if _, err := e.conn.Write(payload); err != nil {
			return liberr.KindTransportClosed.Error(err)
		}
		return nil
	}

	var werr error
	cerr := raw.Write(func(fd uintptr) bool {
		werr = unix.Sendmsg(int(fd), payload, oob, nil, 0)
		return true
	})
	if cerr != nil {
		return liberr.KindTransportClosed.Error(cerr)
	}
	if werr != nil {
		return liberr.KindTransportClosed.Error(werr)
	}
	return nil
}

func (e *endpoint) Recv(ctx context.Context) ([]byte, []transport.Attachment, liberr.Error) {
	var hdr [8]byte
	if err := readFull(e.conn, hdr[:]); err != nil {
		return nil, nil, liberr.KindTransportClosed.Error(err)
	}
	n := binary.BigEndian.Uint32(hdr[0:4])
	nAtt := binary.BigEndian.Uint32(hdr[4:8])
	if n > maxFrameSize || nAtt > maxAttachments {
		return nil, nil, liberr.KindInvalidArguments.Error(nil)
	}

	buf := make([]byte, n)
	oob := make([]byte, unix.CmsgSpace(4*int(nAtt)))

	raw, rerr := e.conn.SyscallConn()
	if rerr != nil {
		return nil, nil, liberr.KindTransportClosed.Error(rerr)
	}

	var (
		nRead, nOOB int
		rcvErr      error
	)
	cerr := raw.Read(func(fd uintptr) bool {
		nRead, nOOB, _, _, rcvErr = unix.Recvmsg(int(fd), buf, oob, 0)
		return true
	})
	if cerr != nil {
		return nil, nil, liberr.KindTransportClosed.Error(cerr)
	}
	if rcvErr != nil {
		return nil, nil, liberr.KindTransportClosed.Error(rcvErr)
	}
	if nRead < len(buf) {
		if err := readFull(e.conn, buf[nRead:]); err != nil {
			return nil, nil, liberr.KindTransportClosed.Error(err)
		}
	}

	var atts []transport.Attachment
	if nOOB > 0 {
		cmsgs, perr := unix.ParseSocketControlMessage(oob[:nOOB])
		if perr == nil {
			for _, c := range cmsgs {
				fds, ferr := unix.ParseUnixRights(&c)
				if ferr == nil {
					for _, fd := range fds {
						atts = append(atts, transport.Attachment{FD: fd})
					}
				}
			}
		}
	}
	return buf, atts, nil
}

func readFull(conn net.Conn, buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := conn.Read(buf[read:])
		if err != nil {
			return err
		}
		read += n
	}
	return nil
}

func (e *endpoint) Close() liberr.Error {
	if err := e.conn.Close(); err != nil {
		return liberr.KindTransportClosed.Error(err)
	}
	return nil
}

func (e *endpoint) SupportsDescriptors() bool { return true }
func (e *endpoint) URI() string               { return e.uri }
