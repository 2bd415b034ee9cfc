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
	"strconv"
	"strings"

	liberr "github.com/opsnet/rpcgo/errors"
)

// tplNode is one parsed unit of a pack/unpack template (spec §4.1).
type tplNode struct {
	tok      byte // one of n,b,i,u,d,s,f,v,[,{
	children []*tplNode
	key      string // dict entry: explicit key, "" if bare (key comes from args)
	schema   string // set when this node is wrapped by <name>
	index    int  // array entry: explicit N:tok index
	hasIndex bool
}

// parseTemplate parses a pack/unpack format string into a single root node
// (array and dict templates nest further tplNodes as children).
func parseTemplate(tpl string) (*tplNode, liberr.Error) {
	p := &tplParser{s: tpl}
	n, err := p.parseOne()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, liberr.KindInvalidArguments.Error(nil)
	}
	return n, nil
}

type tplParser struct {
	s   string
	pos int
}

func (p *tplParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t' || p.s[p.pos] == '\n') {
		p.pos++
	}
}

func (p *tplParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *tplParser) parseOne() (*tplNode, liberr.Error) {
	c := p.peek()
	switch c {
	case 0:
		return nil, liberr.KindInvalidArguments.Error(nil)
	case '<':
		p.pos++
		start := p.pos
		for p.pos < len(p.s) && p.s[p.pos] != '>' {
			p.pos++
		}
		if p.pos >= len(p.s) {
			return nil, liberr.KindInvalidArguments.Error(nil)
		}
		name := p.s[start:p.pos]
		p.pos++ // consume '>'
		inner, err := p.parseOne()
		if err != nil {
			return nil, err
		}
		inner.schema = name
		return inner, nil
	case '[':
		p.pos++
		n := &tplNode{tok: '['}
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			return n, nil
		}
		for {
			child, idx, hasIdx, err := p.parseArrayEntry()
			if err != nil {
				return nil, err
			}
			child.index = idx
			child.hasIndex = hasIdx
			n.children = append(n.children, child)
			p.skipSpace()
			if p.peek() == ',' {
				p.pos++
				continue
			}
			break
		}
		if p.peek() != ']' {
			return nil, liberr.KindInvalidArguments.Error(nil)
		}
		p.pos++
		return n, nil
	case '{':
		p.pos++
		n := &tplNode{tok: '{'}
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return n, nil
		}
		for {
			child, err := p.parseDictEntry()
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
			p.skipSpace()
			if p.peek() == ',' {
				p.pos++
				continue
			}
			break
		}
		if p.peek() != '}' {
			return nil, liberr.KindInvalidArguments.Error(nil)
		}
		p.pos++
		return n, nil
	case 'n', 'b', 'i', 'u', 'd', 's', 'f', 'v':
		p.pos++
		return &tplNode{tok: c}, nil
	default:
		return nil, liberr.KindInvalidArguments.Error(nil)
	}
}

// parseArrayEntry handles an optional "N:" explicit-index prefix ahead of a
// token inside an array template.
func (p *tplParser) parseArrayEntry() (*tplNode, int, bool, liberr.Error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if p.pos > start && p.pos < len(p.s) && p.s[p.pos] == ':' {
		idx, convErr := strconv.Atoi(p.s[start:p.pos])
		if convErr != nil {
			return nil, 0, false, liberr.KindInvalidArguments.Error(convErr)
		}
		p.pos++ // consume ':'
		n, err := p.parseOne()
		if err != nil {
			return nil, 0, false, err
		}
		return n, idx, true, nil
	}
	p.pos = start
	n, err := p.parseOne()
	if err != nil {
		return nil, 0, false, err
	}
	return n, 0, false, nil
}

// parseDictEntry handles "key:token" or a bare token (whose key is taken
// from the preceding pack argument at execution time).
func (p *tplParser) parseDictEntry() (*tplNode, liberr.Error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) && isIdentByte(p.s[p.pos]) {
		p.pos++
	}
	if p.pos > start && p.peek() == ':' {
		key := p.s[start:p.pos]
		// peek ensures we don't consume space incorrectly; find the real ':'
		for p.pos < len(p.s) && p.s[p.pos] != ':' {
			p.pos++
		}
		p.pos++ // consume ':'
		n, err := p.parseOne()
		if err != nil {
			return nil, err
		}
		n.key = key
		return n, nil
	}
	p.pos = start
	n, err := p.parseOne()
	if err != nil {
		return nil, err
	}
	return n, nil
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (n *tplNode) String() string {
	var sb strings.Builder
	n.writeTo(&sb)
	return sb.String()
}

func (n *tplNode) writeTo(sb *strings.Builder) {
	if n.schema != "" {
		fmt.Fprintf(sb, "<%s>", n.schema)
	}
	switch n.tok {
	case '[':
		sb.WriteByte('[')
		for i, c := range n.children {
			if i > 0 {
				sb.WriteByte(',')
			}
			c.writeTo(sb)
		}
		sb.WriteByte(']')
	case '{':
		sb.WriteByte('{')
		for i, c := range n.children {
			if i > 0 {
				sb.WriteByte(',')
			}
			if c.key != "" {
				sb.WriteString(c.key)
				sb.WriteByte(':')
			}
			c.writeTo(sb)
		}
		sb.WriteByte('}')
	default:
		sb.WriteByte(n.tok)
	}
}
