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

package errors

// Kind enumerates the closed error taxonomy every package in this module
// returns errors from. Each Kind is also a CodeError so it can travel
// through the generic Error/Return machinery unchanged.
const (
	KindNotFound CodeError = MinAvailable + iota
	KindInvalidArguments
	KindTypeMismatch
	KindTransportClosed
	KindUnsupportedByTransport
	KindUnsupportedType
	KindTimeout
	KindAborted
	KindConcurrentMutation
	KindInternal
)

func init() {
	RegisterIdFctMessage(KindNotFound, func(CodeError) string {
		return "unknown path/interface/method"
	})
	RegisterIdFctMessage(KindInvalidArguments, func(CodeError) string {
		return "unpack type mismatch or schema validation failure"
	})
	RegisterIdFctMessage(KindTypeMismatch, func(CodeError) string {
		return "object accessor used against the wrong tag"
	})
	RegisterIdFctMessage(KindTransportClosed, func(CodeError) string {
		return "send/recv on a shut-down transport"
	})
	RegisterIdFctMessage(KindUnsupportedByTransport, func(CodeError) string {
		return "fd/shmem over a transport lacking descriptor passing"
	})
	RegisterIdFctMessage(KindUnsupportedType, func(CodeError) string {
		return "serializer refuses a tag"
	})
	RegisterIdFctMessage(KindTimeout, func(CodeError) string {
		return "deadline elapsed on a wait"
	})
	RegisterIdFctMessage(KindAborted, func(CodeError) string {
		return "peer or local abort"
	})
	RegisterIdFctMessage(KindConcurrentMutation, func(CodeError) string {
		return "container mutated during iteration"
	})
	RegisterIdFctMessage(KindInternal, func(CodeError) string {
		return "invariant violated; should be unreachable"
	})
}
