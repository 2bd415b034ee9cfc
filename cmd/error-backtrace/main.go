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

// Command error-backtrace mirrors original_source/examples/error-backtrace:
// three nested calls build an error Object, each appending its own frame,
// and the final object is printed with its accumulated stack.
package main

import (
	"fmt"
	"runtime"
	"syscall"

	"github.com/opsnet/rpcgo/object"
)

func frameHere() object.Frame {
	pc, file, line, _ := runtime.Caller(1)
	fn := runtime.FuncForPC(pc)
	name := ""
	if fn != nil {
		name = fn.Name()
	}
	return object.Frame{File: file, Line: line, Function: name}
}

func funA() *object.Object {
	return object.NewError(int64(syscall.ENOSYS), "It broke!", nil, []object.Frame{frameHere()})
}

func funB() *object.Object {
	err := funA()
	_ = err.AppendFrame(frameHere())
	return err
}

func funC() *object.Object {
	err := funB()
	_ = err.AppendFrame(frameHere())
	return err
}

func main() {
	err := funC()
	defer err.Release()

	code, msg, _, stack, _ := err.ErrorParts()
	fmt.Printf("error %d: %s\n", code, msg)
	for _, f := range stack {
		fmt.Printf("  at %s (%s:%d)\n", f.Function, f.File, f.Line)
	}
}
