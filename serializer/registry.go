/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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
 *
 */

package serializer

import (
	"sync"

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

var registry = struct {
	mu sync.RWMutex
	m  map[string]Codec
}{m: make(map[string]Codec)}

func init() {
	Register(newMsgpackCodec())
	Register(newJSONCodec())
	Register(newYAMLCodec())
}

// Register adds or replaces the codec under its own Name() in the
// process-wide registry.
func Register(c Codec) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.m[c.Name()] = c
}

// Lookup returns the codec registered under name, or false if none is.
func Lookup(name string) (Codec, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	c, ok := registry.m[name]
	return c, ok
}

// Dump encodes o with the named codec.
func Dump(name string, o *object.Object) ([]byte, []OOBAttachment, liberr.Error) {
	c, ok := Lookup(name)
	if !ok {
		return nil, nil, liberr.KindNotFound.Error(nil)
	}
	return c.Dump(o)
}

// Load decodes data (plus any out-of-band attachments) with the named
// codec into an Object.
func Load(name string, data []byte, attachments []OOBAttachment) (*object.Object, liberr.Error) {
	c, ok := Lookup(name)
	if !ok {
		return nil, liberr.KindNotFound.Error(nil)
	}
	return c.Load(data, attachments)
}
