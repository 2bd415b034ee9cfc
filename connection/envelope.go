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

package connection

import (
	"bytes"

	"github.com/ugorji/go/codec"

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
	"github.com/opsnet/rpcgo/serializer"
	"github.com/opsnet/rpcgo/transport"
)

// envelope is the logical message header from spec §4.4:
// { namespace, name, id, address?, payload? }
type envelope struct {
	Namespace string
	Name      string
	ID        uint64
	Address   string
	Payload   *object.Object
}

// onWire is what actually crosses the Transport for one envelope: the
// payload is pre-dumped by the negotiated codec into Body, and any
// out-of-band attachments ride as Meta (shmem metadata travels inline
// here since it is plain data; fd attachments additionally get a real
// transport.Attachment built from their descriptor number).
type onWire struct {
	Namespace string          `codec:"ns"`
	Name      string          `codec:"nm"`
	ID        uint64          `codec:"id"`
	Address   string          `codec:"addr,omitempty"`
	HasBody   bool            `codec:"hb"`
	Body      []byte          `codec:"body,omitempty"`
	Meta      []attachmentRow `codec:"meta,omitempty"`
}

type attachmentRow struct {
	Kind      uint8  `codec:"k"`
	ShmemSize uint64 `codec:"ssz,omitempty"`
	ShmemOff  uint64 `codec:"soff,omitempty"`
	ShmemID   string `codec:"sid,omitempty"`
	FDOwned   bool   `codec:"fdo,omitempty"`
}

var envelopeHandle = &codec.MsgpackHandle{}

// defaultCodec is the payload serializer a Connection uses when none is
// negotiated. Defaulted to msgpack per spec §6.
const defaultCodec = "msgpack"

func encodeEnvelope(e envelope, payloadCodec string) ([]byte, []transport.Attachment, liberr.Error) {
	w := onWire{Namespace: e.Namespace, Name: e.Name, ID: e.ID, Address: e.Address}

	var fdAttachments []transport.Attachment
	if e.Payload != nil {
		body, oobs, derr := serializer.Dump(payloadCodec, e.Payload)
		if derr != nil {
			return nil, nil, derr
		}
		w.HasBody = true
		w.Body = body
		for _, a := range oobs {
			switch a.Kind {
			case serializer.OOBFD:
				w.Meta = append(w.Meta, attachmentRow{Kind: 0, FDOwned: a.FD.Owned})
				fdAttachments = append(fdAttachments, transport.Attachment{FD: a.FD.ID})
			case serializer.OOBShmem:
				w.Meta = append(w.Meta, attachmentRow{Kind: 1, ShmemSize: a.Shmem.Size, ShmemOff: a.Shmem.Offset, ShmemID: a.Shmem.BackingID})
			}
		}
	}

	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, envelopeHandle)
	if err := enc.Encode(&w); err != nil {
		return nil, nil, liberr.KindInternal.Error(err)
	}
	return buf.Bytes(), fdAttachments, nil
}

func decodeEnvelope(frame []byte, fdAttachments []transport.Attachment, payloadCodec string) (envelope, liberr.Error) {
	var w onWire
	dec := codec.NewDecoder(bytes.NewReader(frame), envelopeHandle)
	if err := dec.Decode(&w); err != nil {
		return envelope{}, liberr.KindInvalidArguments.Error(err)
	}

	e := envelope{Namespace: w.Namespace, Name: w.Name, ID: w.ID, Address: w.Address}
	if !w.HasBody {
		return e, nil
	}

	oobs := make([]serializer.OOBAttachment, 0, len(w.Meta))
	fdCursor := 0
	for _, m := range w.Meta {
		switch m.Kind {
		case 0:
			var fd int = -1
			if fdCursor < len(fdAttachments) {
				fd = fdAttachments[fdCursor].FD
				fdCursor++
			}
			oobs = append(oobs, serializer.OOBAttachment{Kind: serializer.OOBFD, FD: object.FD{ID: fd, Owned: m.FDOwned}})
		case 1:
			oobs = append(oobs, serializer.OOBAttachment{Kind: serializer.OOBShmem, Shmem: object.ShmemRegion{Size: m.ShmemSize, Offset: m.ShmemOff, BackingID: m.ShmemID}})
		}
	}

	payload, lerr := serializer.Load(payloadCodec, w.Body, oobs)
	if lerr != nil {
		return envelope{}, lerr
	}
	e.Payload = payload
	return e, nil
}

func hasDescriptorPayload(o *object.Object) bool {
	if o == nil {
		return false
	}
	switch o.Kind() {
	case object.KindFD, object.KindShmem:
		return true
	case object.KindArray:
		elems, _ := o.Elements()
		for _, c := range elems {
			if hasDescriptorPayload(c) {
				return true
			}
		}
	case object.KindDictionary:
		keys, _ := o.Keys()
		for _, k := range keys {
			v, _ := o.Get(k)
			if hasDescriptorPayload(v) {
				return true
			}
		}
	}
	return false
}
