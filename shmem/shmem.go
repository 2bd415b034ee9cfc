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

// Package shmem backs object.Object values of kind shmem with POSIX shared
// memory (spec §4.7): Allocate creates a named /dev/shm region of the
// requested size at offset 0, Map/Unmap attach and detach it in the local address
// space, and the backing id travels out-of-band on the wire the same way a
// transferred fd does.
package shmem

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/idgen"
	"github.com/opsnet/rpcgo/object"
)

const shmDir = "/dev/shm"

// Mapping is a live mmap of a shmem Object's backing region.
type Mapping struct {
	mu     sync.Mutex
	region object.ShmemRegion
	data   []byte
	file   *os.File
	closed bool
}

// Allocate creates a new backing region of size bytes and wraps it in a
// shmem Object at offset 0. The caller owns the returned Object's lifetime;
// Release it (spec §3) when the region is no longer needed — this does not
// itself unlink the backing file, see Destroy.
func Allocate(size uint64) (*object.Object, liberr.Error) {
	id := idgen.ShmemBackingID()
	path := shmDir + "/" + id
	f, e := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if e != nil {
		return nil, liberr.KindInternal.Error(e)
	}
	defer f.Close()
	if e = f.Truncate(int64(size)); e != nil {
		_ = os.Remove(path)
		return nil, liberr.KindInternal.Error(e)
	}
	return object.NewShmem(size, 0, id), nil
}

// Map attaches the backing region named by obj's BackingID into the local
// address space, honoring obj's Size and Offset (spec §4.7: "size and
// offset are immutable on an existing Object").
func Map(obj *object.Object) (*Mapping, liberr.Error) {
	region, err := obj.Shmem()
	if err != nil {
		return nil, err
	}
	path := shmDir + "/" + region.BackingID
	f, e := os.OpenFile(path, os.O_RDWR, 0)
	if e != nil {
		return nil, liberr.KindInternal.Error(e)
	}
	data, e := unix.Mmap(int(f.Fd()), int64(region.Offset), int(region.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if e != nil {
		f.Close()
		return nil, liberr.KindInternal.Error(e)
	}
	return &Mapping{region: region, data: data, file: f}, nil
}

// Bytes returns the mapped region for direct read/write access. The slice
// is only valid until Unmap.
func (m *Mapping) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Unmap releases the mapping. It does not unlink the backing file; call
// Destroy for that once every mapper is done.
func (m *Mapping) Unmap() liberr.Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	var err liberr.Error
	if e := unix.Munmap(m.data); e != nil {
		err = liberr.KindInternal.Error(e)
	}
	_ = m.file.Close()
	return err
}

// Destroy unlinks a region's backing file. Safe to call after every mapper
// has Unmap'd; POSIX shared memory semantics keep existing mappings valid
// until the last one is released.
func Destroy(obj *object.Object) liberr.Error {
	region, err := obj.Shmem()
	if err != nil {
		return err
	}
	if e := os.Remove(shmDir + "/" + region.BackingID); e != nil && !os.IsNotExist(e) {
		return liberr.KindInternal.Error(e)
	}
	return nil
}

// Describe renders a region for logging/debugging.
func Describe(obj *object.Object) (string, liberr.Error) {
	region, err := obj.Shmem()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("shmem(id=%s, size=%d, offset=%d)", region.BackingID, region.Size, region.Offset), nil
}
