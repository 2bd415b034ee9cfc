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

// Package idgen mints the two kinds of identifier this module hands out:
// monotonic per-Connection request ids (spec §4.4) and shared-memory
// backing ids (spec §4.7), the latter via google/uuid fed through
// nabbar-golib's sha256/hexa encoders the way the teacher composes its own
// encoding sub-packages.
package idgen

import (
	"sync/atomic"

	"github.com/google/uuid"

	libhexa "github.com/nabbar/golib/encoding/hexa"
	libsha "github.com/nabbar/golib/encoding/sha256"
)

// Sequence hands out monotonically increasing request ids for one
// Connection. The zero value is usable; ids start at 1 (0 is reserved for
// "no request" in the wire envelope).
type Sequence struct {
	n uint64
}

// Next returns the next id in the sequence.
func (s *Sequence) Next() uint64 {
	return atomic.AddUint64(&s.n, 1)
}

// ShmemBackingID derives a stable, filesystem-safe backing name for a new
// shared-memory region: a random UUID digested with sha256 and hex-encoded,
// so no two regions collide even across processes sharing a clock.
func ShmemBackingID() string {
	seed := uuid.New()
	digest := libsha.New().Encode(seed[:])
	return string(libhexa.New().Encode(digest))
}
