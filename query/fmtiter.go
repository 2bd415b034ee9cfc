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

package query

import (
	"path"
	"regexp"
	"sort"
	"strings"

	liberr "github.com/opsnet/rpcgo/errors"
	"github.com/opsnet/rpcgo/object"
)

// Params controls pagination, ordering and result shape for FmtIter.
type Params struct {
	Offset  int
	Limit   int // 0 means unbounded
	Reverse bool
	Sort    string // dotted-path key within each matched entry; "" disables sorting
	Single  bool   // stop after the first match
	Count   bool   // caller only wants Iterator.Total(), not the entries
}

// Iterator serves matched entries one at a time. The match/sort/page work
// is done up front by FmtIter (a predicate involving regex or glob has to
// scan the source array regardless), so Iterator is a cursor over an
// already-materialised result rather than a true streaming pull — callers
// see the same lazy-consumption shape the spec's fmt_iter describes.
type Iterator struct {
	items []*object.Object
	pos   int
	total int
}

// Next returns the next matched entry, or (nil, false) when exhausted.
func (it *Iterator) Next() (*object.Object, bool) {
	if it.pos >= len(it.items) {
		return nil, false
	}
	v := it.items[it.pos]
	it.pos++
	return v, true
}

// Total returns the number of matches before offset/limit were applied.
func (it *Iterator) Total() int { return it.total }

// FmtIter scans root (must be an array) for entries matching predicate —
// an array of one or more `[key, operator, value]` triples, ANDed
// together — and returns an Iterator over the matches shaped by params.
func FmtIter(root *object.Object, params Params, predicate *object.Object) (*Iterator, liberr.Error) {
	if root == nil || root.Kind() != object.KindArray {
		return nil, liberr.KindTypeMismatch.Error(nil)
	}
	triples, err := parseTriples(predicate)
	if err != nil {
		return nil, err
	}
	elems, err := root.Elements()
	if err != nil {
		return nil, err
	}

	matched := make([]*object.Object, 0, len(elems))
	for _, e := range elems {
		ok, err := matchesAll(e, triples)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, e)
		}
	}
	total := len(matched)

	if params.Reverse {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if params.Sort != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			return lessByPath(matched[i], matched[j], params.Sort)
		})
	}

	if params.Single && len(matched) > 1 {
		matched = matched[:1]
	}

	start := params.Offset
	if start > len(matched) {
		start = len(matched)
	}
	matched = matched[start:]
	if params.Limit > 0 && len(matched) > params.Limit {
		matched = matched[:params.Limit]
	}

	return &Iterator{items: matched, total: total}, nil
}

type triple struct {
	key   string
	op    string
	value *object.Object
}

func parseTriples(predicate *object.Object) ([]triple, liberr.Error) {
	if predicate == nil {
		return nil, nil
	}
	if predicate.Kind() != object.KindArray {
		return nil, liberr.KindInvalidArguments.Error(nil)
	}
	elems, err := predicate.Elements()
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return nil, nil
	}
	// A bare single triple is [key, op, value]; a predicate with more than
	// one triple nests them as [[k,o,v], [k,o,v], ...]. Distinguish by the
	// kind of the first element: a nested list of triples has an array
	// there, a single triple has a string key.
	if elems[0].Kind() == object.KindArray {
		out := make([]triple, 0, len(elems))
		for _, e := range elems {
			t, terr := parseOneTriple(e)
			if terr != nil {
				return nil, terr
			}
			out = append(out, t)
		}
		return out, nil
	}
	t, terr := parseOneTriple(predicate)
	if terr != nil {
		return nil, terr
	}
	return []triple{t}, nil
}

func parseOneTriple(e *object.Object) (triple, liberr.Error) {
	elems, err := e.Elements()
	if err != nil {
		return triple{}, err
	}
	if len(elems) != 3 {
		return triple{}, liberr.KindInvalidArguments.Error(nil)
	}
	key, err := elems[0].String()
	if err != nil {
		return triple{}, err
	}
	op, err := elems[1].String()
	if err != nil {
		return triple{}, err
	}
	return triple{key: key, op: op, value: elems[2]}, nil
}

func matchesAll(entry *object.Object, triples []triple) (bool, liberr.Error) {
	for _, t := range triples {
		field := Get(entry, t.key, nil)
		ok, err := matchOne(field, t.op, t.value)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchOne(field *object.Object, op string, value *object.Object) (bool, liberr.Error) {
	switch op {
	case "=":
		return object.Equal(field, value), nil
	case "!=":
		return !object.Equal(field, value), nil
	case ">", ">=", "<", "<=":
		return compareOrdered(field, value, op)
	case "~":
		fs, ferr := field.String()
		vs, verr := value.String()
		if ferr != nil || verr != nil {
			return false, nil
		}
		re, cerr := regexp.Compile(vs)
		if cerr != nil {
			return false, liberr.KindInvalidArguments.Error(cerr)
		}
		return re.MatchString(fs), nil
	case "in":
		return memberOf(field, value), nil
	case "nin":
		return !memberOf(field, value), nil
	case "contains":
		return containsValue(field, value), nil
	case "match":
		fs, ferr := field.String()
		vs, verr := value.String()
		if ferr != nil || verr != nil {
			return false, nil
		}
		m, _ := path.Match(vs, fs)
		return m, nil
	default:
		return false, liberr.KindInvalidArguments.Error(nil)
	}
}

// compareOrdered implements >,>=,<,<= for same-kind numeric/string/date
// fields; per the resolved Open Question, a kind mismatch never matches.
func compareOrdered(field, value *object.Object, op string) (bool, liberr.Error) {
	if field == nil || value == nil || field.Kind() != value.Kind() {
		return false, nil
	}
	var cmp int
	switch field.Kind() {
	case object.KindInt64:
		a, _ := field.Int64()
		b, _ := value.Int64()
		cmp = cmpInt64(a, b)
	case object.KindUint64:
		a, _ := field.Uint64()
		b, _ := value.Uint64()
		cmp = cmpUint64(a, b)
	case object.KindDouble:
		a, _ := field.Double()
		b, _ := value.Double()
		cmp = cmpFloat64(a, b)
	case object.KindDate:
		a, _ := field.DateMicros()
		b, _ := value.DateMicros()
		cmp = cmpInt64(a, b)
	case object.KindString:
		a, _ := field.String()
		b, _ := value.String()
		cmp = strings.Compare(a, b)
	default:
		return false, nil
	}
	switch op {
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	}
	return false, nil
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func memberOf(field, set *object.Object) bool {
	if set == nil || set.Kind() != object.KindArray {
		return false
	}
	elems, err := set.Elements()
	if err != nil {
		return false
	}
	for _, e := range elems {
		if object.Equal(field, e) {
			return true
		}
	}
	return false
}

func containsValue(field, value *object.Object) bool {
	if field == nil {
		return false
	}
	switch field.Kind() {
	case object.KindArray:
		return memberOf(value, field)
	case object.KindString:
		fs, ferr := field.String()
		vs, verr := value.String()
		if ferr != nil || verr != nil {
			return false
		}
		return strings.Contains(fs, vs)
	default:
		return false
	}
}

func lessByPath(a, b *object.Object, key string) bool {
	av := Get(a, key, nil)
	bv := Get(b, key, nil)
	lt, _ := compareOrdered(av, bv, "<")
	return lt
}
