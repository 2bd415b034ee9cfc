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

package object

import (
	"encoding/binary"
	"hash/fnv"
	"sort"
)

// Hash returns an FNV-1a digest of the Object's structural content. Per
// spec §3, fd and shmem Objects and volatile binaries have no reproducible
// identity and are excluded from the computation (only their Kind tag
// contributes); dictionaries hash their entries in sorted-key order so
// that insertion order does not affect the result, and arrays hash in
// iteration order since that order is part of their identity.
func Hash(o *Object) uint64 {
	h := fnv.New64a()
	hashInto(h, o)
	return h.Sum64()
}

func hashInto(h interface{ Write([]byte) (int, error) }, o *Object) {
	if o == nil {
		_, _ = h.Write([]byte{byte(KindNull)})
		return
	}
	o.mu.RLock()
	defer o.mu.RUnlock()

	_, _ = h.Write([]byte{byte(o.kind)})

	var buf [8]byte
	switch o.kind {
	case KindNull:
	case KindBool:
		if o.boolVal {
			_, _ = h.Write([]byte{1})
		} else {
			_, _ = h.Write([]byte{0})
		}
	case KindInt64:
		binary.BigEndian.PutUint64(buf[:], uint64(o.i64Val))
		_, _ = h.Write(buf[:])
	case KindUint64:
		binary.BigEndian.PutUint64(buf[:], o.u64Val)
		_, _ = h.Write(buf[:])
	case KindDouble:
		binary.BigEndian.PutUint64(buf[:], uint64(int64(o.f64Val*1e9)))
		_, _ = h.Write(buf[:])
	case KindDate:
		binary.BigEndian.PutUint64(buf[:], uint64(o.dateVal))
		_, _ = h.Write(buf[:])
	case KindString:
		_, _ = h.Write([]byte(o.strVal))
	case KindBinary:
		if !o.binVolatile {
			_, _ = h.Write(o.binVal)
		}
	case KindFD, KindShmem:
		// no reproducible identity; tag byte already written above
	case KindArray:
		for _, c := range o.arrVal {
			hashInto(h, c)
		}
	case KindDictionary:
		keys := make([]string, len(o.dictKeys))
		copy(keys, o.dictKeys)
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = h.Write([]byte(k))
			hashInto(h, o.dictVal[k])
		}
	case KindError:
		binary.BigEndian.PutUint64(buf[:], uint64(o.errCode))
		_, _ = h.Write(buf[:])
		_, _ = h.Write([]byte(o.errMsg))
		hashInto(h, o.errExtra)
	}
}
