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

import "github.com/opsnet/rpcgo/object"

// OOBKind distinguishes the two payload shapes a Connection carries
// out-of-band rather than inline in the dumped bytes.
type OOBKind uint8

const (
	OOBFD OOBKind = iota
	OOBShmem
)

// OOBAttachment is one out-of-band payload referenced from the dumped
// stream by index. The Connection is responsible for actually
// transferring the descriptor or shmem backing alongside the bytes; the
// serializer only knows how to leave a compact placeholder behind.
type OOBAttachment struct {
	Kind  OOBKind
	FD    object.FD
	Shmem object.ShmemRegion
}
