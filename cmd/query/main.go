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

// Command query mirrors original_source/examples/query: build a small
// tree with object.Pack, then walk it with the query package's dotted
// paths (Get/Set/Delete), printing each step as JSON.
package main

import (
	"fmt"
	"os"

	"github.com/opsnet/rpcgo/object"
	"github.com/opsnet/rpcgo/query"
	"github.com/opsnet/rpcgo/serializer"
)

func describe(o *object.Object) string {
	if o == nil {
		return "<nil>"
	}
	data, _, err := serializer.Dump("json", o)
	if err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}
	return string(data)
}

func main() {
	root, err := object.Pack("{s,i,u,b,n,[i,i,i,{s}]}",
		"hello", "world",
		"int", int64(-12345),
		"uint", uint64(0x80808080),
		"true_or_false", true,
		"nothing", nil,
		"array",
		int64(1), int64(2), int64(3), "!", "?")
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot pack:", err)
		os.Exit(1)
	}
	defer root.Release()

	fmt.Printf("start dictionary: %s\n\n", describe(root))

	fmt.Println("adding nonexistent containers with set function")
	tru := object.NewBool(true)
	_ = query.Set(root, "a.0.bunch.1.of.2.nonexistent.3.values", tru, true)
	tru.Release()
	fmt.Printf("generated tree: %s\n\n", describe(query.Get(root, "a", nil)))
	_ = query.Delete(root, "a")

	fmt.Printf("array.0 (1): %s\n\n", describe(query.Get(root, "array.0", nil)))

	def := object.NewInt64(19)
	fmt.Printf("array.10 (nonexistent, default: 19): %s\n\n", describe(query.Get(root, "array.10", def)))
	def.Release()

	fmt.Println("Set array.0 = true")
	tru2 := object.NewBool(true)
	_ = query.Set(root, "array.0", tru2, false)
	tru2.Release()
	fmt.Printf("array.0 (true): %s\n\n", describe(query.Get(root, "array.0", nil)))
}
