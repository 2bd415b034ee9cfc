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
	"fmt"
	"time"

	liberr "github.com/opsnet/rpcgo/errors"
)

func typeMismatch(o *Object, want Kind) liberr.Error {
	got := KindNull
	if o != nil {
		got = o.kind
	}
	msg := fmt.Sprintf("%s: want %s, got %s", liberr.KindTypeMismatch.Message(), want, got)
	return liberr.New(liberr.KindTypeMismatch.Uint16(), msg)
}

func (o *Object) Bool() (bool, liberr.Error) {
	if o == nil || o.kind != KindBool {
		return false, typeMismatch(o, KindBool)
	}
	return o.boolVal, nil
}

func (o *Object) Int64() (int64, liberr.Error) {
	if o == nil || o.kind != KindInt64 {
		return 0, typeMismatch(o, KindInt64)
	}
	return o.i64Val, nil
}

func (o *Object) Uint64() (uint64, liberr.Error) {
	if o == nil || o.kind != KindUint64 {
		return 0, typeMismatch(o, KindUint64)
	}
	return o.u64Val, nil
}

func (o *Object) Double() (float64, liberr.Error) {
	if o == nil || o.kind != KindDouble {
		return 0, typeMismatch(o, KindDouble)
	}
	return o.f64Val, nil
}

func (o *Object) Date() (time.Time, liberr.Error) {
	if o == nil || o.kind != KindDate {
		return time.Time{}, typeMismatch(o, KindDate)
	}
	return time.UnixMicro(o.dateVal), nil
}

func (o *Object) DateMicros() (int64, liberr.Error) {
	if o == nil || o.kind != KindDate {
		return 0, typeMismatch(o, KindDate)
	}
	return o.dateVal, nil
}

func (o *Object) String() (string, liberr.Error) {
	if o == nil || o.kind != KindString {
		return "", typeMismatch(o, KindString)
	}
	return o.strVal, nil
}

func (o *Object) Binary() ([]byte, liberr.Error) {
	if o == nil || o.kind != KindBinary {
		return nil, typeMismatch(o, KindBinary)
	}
	return o.binVal, nil
}

func (o *Object) FD() (FD, liberr.Error) {
	if o == nil || o.kind != KindFD {
		return FD{}, typeMismatch(o, KindFD)
	}
	return o.fdVal, nil
}

func (o *Object) Shmem() (ShmemRegion, liberr.Error) {
	if o == nil || o.kind != KindShmem {
		return ShmemRegion{}, typeMismatch(o, KindShmem)
	}
	return o.shmemVal, nil
}

// ErrorParts returns the composite fields of an error Object.
func (o *Object) ErrorParts() (code int64, message string, extra *Object, stack []Frame, err liberr.Error) {
	if o == nil || o.kind != KindError {
		return 0, "", nil, nil, typeMismatch(o, KindError)
	}
	return o.errCode, o.errMsg, o.errExtra, append([]Frame(nil), o.errStack...), nil
}

// AppendFrame records a boundary crossing on an error Object. Per spec §3
// the stack is appended to, never rewritten.
func (o *Object) AppendFrame(f Frame) liberr.Error {
	if o == nil || o.kind != KindError {
		return typeMismatch(o, KindError)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errStack = append(o.errStack, f)
	return nil
}
