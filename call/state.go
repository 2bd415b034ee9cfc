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

// Package call implements the per-invocation state machines described in
// spec §4.5: Call is the client-side view a caller of Connection.Call
// receives back; ServerCall is the dispatch-side counterpart a registered
// handler drives through Yield/Respond.
package call

// Status is the client-side Call status set (spec §4.5).
type Status int32

const (
	StatusInProgress Status = iota
	StatusStreamStart
	StatusMoreAvailable
	StatusDone
	StatusEnded
	StatusError
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusStreamStart:
		return "stream_start"
	case StatusMoreAvailable:
		return "more_available"
	case StatusDone:
		return "done"
	case StatusEnded:
		return "ended"
	case StatusError:
		return "error"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is one of the four terminal states.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusEnded, StatusError, StatusAborted:
		return true
	default:
		return false
	}
}

// ServerStatus is the server-side ServerCall status set (spec §4.5).
type ServerStatus int32

const (
	ServerAccepted ServerStatus = iota
	ServerRunning
	ServerResponded
	ServerStreaming
	ServerEnding
	ServerCancelling
	ServerRetired
)

func (s ServerStatus) String() string {
	switch s {
	case ServerAccepted:
		return "accepted"
	case ServerRunning:
		return "running"
	case ServerResponded:
		return "responded"
	case ServerStreaming:
		return "streaming"
	case ServerEnding:
		return "ending"
	case ServerCancelling:
		return "cancelling"
	case ServerRetired:
		return "retired"
	default:
		return "unknown"
	}
}
