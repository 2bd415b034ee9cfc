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
	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

// wireNode is the common, struct-tagged shape every codec (de)serializes
// directly — ugorji's codec, encoding/json and yaml.v3 all honour their
// respective struct tag, so one type serves all three backends.
type wireNode struct {
	T    string      `codec:"t" json:"t" yaml:"t"`
	B    bool        `codec:"b,omitempty" json:"b,omitempty" yaml:"b,omitempty"`
	I    int64       `codec:"i,omitempty" json:"i,omitempty" yaml:"i,omitempty"`
	U    uint64      `codec:"u,omitempty" json:"u,omitempty" yaml:"u,omitempty"`
	D    float64     `codec:"d,omitempty" json:"d,omitempty" yaml:"d,omitempty"`
	S    string      `codec:"s,omitempty" json:"s,omitempty" yaml:"s,omitempty"`
	Bin  []byte      `codec:"bin,omitempty" json:"bin,omitempty" yaml:"bin,omitempty"`
	Arr  []*wireNode `codec:"arr,omitempty" json:"arr,omitempty" yaml:"arr,omitempty"`
	Dict []wireEntry `codec:"dict,omitempty" json:"dict,omitempty" yaml:"dict,omitempty"`
	OOB  *int        `codec:"oob,omitempty" json:"oob,omitempty" yaml:"oob,omitempty"`
	Err  *wireError  `codec:"err,omitempty" json:"err,omitempty" yaml:"err,omitempty"`
}

type wireEntry struct {
	K string    `codec:"k" json:"k" yaml:"k"`
	V *wireNode `codec:"v" json:"v" yaml:"v"`
}

type wireError struct {
	Code    int64       `codec:"code" json:"code" yaml:"code"`
	Message string      `codec:"message" json:"message" yaml:"message"`
	Extra   *wireNode   `codec:"extra,omitempty" json:"extra,omitempty" yaml:"extra,omitempty"`
	Stack   []wireFrame `codec:"stack,omitempty" json:"stack,omitempty" yaml:"stack,omitempty"`
}

type wireFrame struct {
	File     string `codec:"file" json:"file" yaml:"file"`
	Line     int    `codec:"line" json:"line" yaml:"line"`
	Function string `codec:"function" json:"function" yaml:"function"`
}

// toWire converts o into the codec-neutral wire shape. allowOOB controls
// whether fd/shmem tags are permitted (false for the json backend, which
// refuses them per spec §4.2); attachments accumulates the out-of-band
// payloads encountered, in the order their placeholders appear.
func toWire(o *object.Object, allowOOB bool, attachments *[]OOBAttachment) (*wireNode, liberr.Error) {
	if o == nil {
		return &wireNode{T: "n"}, nil
	}
	switch o.Kind() {
	case object.KindNull:
		return &wireNode{T: "n"}, nil
	case object.KindBool:
		v, _ := o.Bool()
		return &wireNode{T: "b", B: v}, nil
	case object.KindInt64:
		v, _ := o.Int64()
		return &wireNode{T: "i", I: v}, nil
	case object.KindUint64:
		v, _ := o.Uint64()
		return &wireNode{T: "u", U: v}, nil
	case object.KindDouble:
		v, _ := o.Double()
		return &wireNode{T: "d", D: v}, nil
	case object.KindDate:
		v, _ := o.DateMicros()
		return &wireNode{T: "t", I: v}, nil
	case object.KindString:
		v, _ := o.String()
		return &wireNode{T: "s", S: v}, nil
	case object.KindBinary:
		v, _ := o.Binary()
		return &wireNode{T: "bin", Bin: v}, nil
	case object.KindFD:
		if !allowOOB {
			return nil, liberr.KindUnsupportedType.Error(nil)
		}
		fd, _ := o.FD()
		idx := len(*attachments)
		*attachments = append(*attachments, OOBAttachment{Kind: OOBFD, FD: fd})
		return &wireNode{T: "fd", OOB: &idx}, nil
	case object.KindShmem:
		if !allowOOB {
			return nil, liberr.KindUnsupportedType.Error(nil)
		}
		shm, _ := o.Shmem()
		idx := len(*attachments)
		*attachments = append(*attachments, OOBAttachment{Kind: OOBShmem, Shmem: shm})
		return &wireNode{T: "shmem", OOB: &idx}, nil
	case object.KindArray:
		elems, err := o.Elements()
		if err != nil {
			return nil, err
		}
		out := make([]*wireNode, len(elems))
		for i, e := range elems {
			w, err := toWire(e, allowOOB, attachments)
			if err != nil {
				return nil, err
			}
			out[i] = w
		}
		return &wireNode{T: "arr", Arr: out}, nil
	case object.KindDictionary:
		keys, err := o.Keys()
		if err != nil {
			return nil, err
		}
		out := make([]wireEntry, 0, len(keys))
		for _, k := range keys {
			v, _ := o.Get(k)
			w, err := toWire(v, allowOOB, attachments)
			if err != nil {
				return nil, err
			}
			out = append(out, wireEntry{K: k, V: w})
		}
		return &wireNode{T: "dict", Dict: out}, nil
	case object.KindError:
		code, msg, extra, stack, err := o.ErrorParts()
		if err != nil {
			return nil, err
		}
		we := &wireError{Code: code, Message: msg}
		if extra != nil {
			ew, eerr := toWire(extra, allowOOB, attachments)
			if eerr != nil {
				return nil, eerr
			}
			we.Extra = ew
		}
		for _, f := range stack {
			we.Stack = append(we.Stack, wireFrame{File: f.File, Line: f.Line, Function: f.Function})
		}
		return &wireNode{T: "err", Err: we}, nil
	default:
		return nil, liberr.KindUnsupportedType.Error(nil)
	}
}

// fromWire is the inverse of toWire. The returned Object owns one
// reference, as if freshly constructed.
func fromWire(w *wireNode, attachments []OOBAttachment) (*object.Object, liberr.Error) {
	if w == nil {
		return object.NewNull(), nil
	}
	switch w.T {
	case "n":
		return object.NewNull(), nil
	case "b":
		return object.NewBool(w.B), nil
	case "i":
		return object.NewInt64(w.I), nil
	case "u":
		return object.NewUint64(w.U), nil
	case "d":
		return object.NewDouble(w.D), nil
	case "t":
		return object.NewDateMicros(w.I), nil
	case "s":
		return object.NewString(w.S), nil
	case "bin":
		return object.NewBinary(w.Bin, nil), nil
	case "fd":
		if w.OOB == nil || *w.OOB >= len(attachments) {
			return nil, liberr.KindInvalidArguments.Error(nil)
		}
		a := attachments[*w.OOB]
		return object.NewFD(a.FD.ID, a.FD.Owned), nil
	case "shmem":
		if w.OOB == nil || *w.OOB >= len(attachments) {
			return nil, liberr.KindInvalidArguments.Error(nil)
		}
		a := attachments[*w.OOB]
		return object.NewShmem(a.Shmem.Size, a.Shmem.Offset, a.Shmem.BackingID), nil
	case "arr":
		elems := make([]*object.Object, len(w.Arr))
		for i, c := range w.Arr {
			v, err := fromWire(c, attachments)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		arr := object.NewArray(elems...)
		for _, e := range elems {
			e.Release()
		}
		return arr, nil
	case "dict":
		order := make([]string, 0, len(w.Dict))
		pairs := make(map[string]*object.Object, len(w.Dict))
		for _, e := range w.Dict {
			v, err := fromWire(e.V, attachments)
			if err != nil {
				return nil, err
			}
			order = append(order, e.K)
			pairs[e.K] = v
		}
		dict := object.NewDictionary(pairs, order)
		for _, v := range pairs {
			v.Release()
		}
		return dict, nil
	case "err":
		if w.Err == nil {
			return nil, liberr.KindInvalidArguments.Error(nil)
		}
		var extra *object.Object
		if w.Err.Extra != nil {
			e, err := fromWire(w.Err.Extra, attachments)
			if err != nil {
				return nil, err
			}
			extra = e
		}
		frames := make([]object.Frame, len(w.Err.Stack))
		for i, f := range w.Err.Stack {
			frames[i] = object.Frame{File: f.File, Line: f.Line, Function: f.Function}
		}
		o := object.NewError(w.Err.Code, w.Err.Message, extra, frames)
		if extra != nil {
			extra.Release()
		}
		return o, nil
	default:
		return nil, liberr.KindUnsupportedType.Error(nil)
	}
}
