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

import "bytes"

// Equal reports structural equality: same tag and same value, recursing
// into containers element-by-element (arrays) or key-by-key (dictionaries,
// order-independent). fd and shmem Objects compare equal only by their
// local handle/backing-id, never by the resource they reference being
// live. Error Objects compare by code, message and extra; the stack trace
// is not part of equality.
func Equal(a, b *Object) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	a.mu.RLock()
	b.mu.RLock()
	defer a.mu.RUnlock()
	defer b.mu.RUnlock()

	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.boolVal == b.boolVal
	case KindInt64:
		return a.i64Val == b.i64Val
	case KindUint64:
		return a.u64Val == b.u64Val
	case KindDouble:
		return a.f64Val == b.f64Val
	case KindDate:
		return a.dateVal == b.dateVal
	case KindString:
		return a.strVal == b.strVal
	case KindBinary:
		return bytes.Equal(a.binVal, b.binVal)
	case KindFD:
		return a.fdVal == b.fdVal
	case KindShmem:
		return a.shmemVal == b.shmemVal
	case KindArray:
		if len(a.arrVal) != len(b.arrVal) {
			return false
		}
		for i := range a.arrVal {
			if !Equal(a.arrVal[i], b.arrVal[i]) {
				return false
			}
		}
		return true
	case KindDictionary:
		if len(a.dictVal) != len(b.dictVal) {
			return false
		}
		for k, av := range a.dictVal {
			bv, ok := b.dictVal[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindError:
		if a.errCode != b.errCode || a.errMsg != b.errMsg {
			return false
		}
		return Equal(a.errExtra, b.errExtra)
	default:
		return false
	}
}
