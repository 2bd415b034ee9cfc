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

// Package logger is the structured logging facade every Connection,
// Context and Transport accepts (SPEC_FULL.md §2): a thin wrapper over
// sirupsen/logrus, grounded on nabbar-golib/logger's Logger interface
// but scoped down to the fields this module actually needs. Default is
// a no-op logger so the core carries no hard logging dependency.
package logger

import "github.com/sirupsen/logrus"

// Fields are key/value pairs attached to a single log entry, mirroring
// nabbar-golib/logger/fields.Fields.
type Fields map[string]interface{}

// Logger is the minimal structured-logging surface this module's
// packages depend on.
type Logger interface {
	SetLevel(lvl Level)
	GetLevel() Level
	SetFields(f Fields)
	WithFields(f Fields) Logger

	Debug(message string, fields Fields)
	Info(message string, fields Fields)
	Warning(message string, fields Fields)
	Error(message string, fields Fields)
}

type logrusLogger struct {
	entry *logrus.Entry
	level Level
}

// New wraps a fresh logrus.Logger at InfoLevel, writing to stderr with
// the text formatter (the teacher's own CLI default before config
// overrides it to JSON/syslog/file).
func New() Logger {
	l := logrus.New()
	l.SetLevel(InfoLevel.toLogrus())
	return &logrusLogger{entry: logrus.NewEntry(l), level: InfoLevel}
}

// Noop returns a Logger that discards everything, used as the default
// so the core packages never require a caller to configure logging.
func Noop() Logger { return noopLogger{} }

func (l *logrusLogger) SetLevel(lvl Level) {
	l.level = lvl
	l.entry.Logger.SetLevel(lvl.toLogrus())
}

func (l *logrusLogger) GetLevel() Level { return l.level }

func (l *logrusLogger) SetFields(f Fields) {
	l.entry = l.entry.WithFields(logrus.Fields(f))
}

func (l *logrusLogger) WithFields(f Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(f)), level: l.level}
}

func (l *logrusLogger) Debug(message string, fields Fields) {
	l.withFields(fields).Debug(message)
}

func (l *logrusLogger) Info(message string, fields Fields) {
	l.withFields(fields).Info(message)
}

func (l *logrusLogger) Warning(message string, fields Fields) {
	l.withFields(fields).Warning(message)
}

func (l *logrusLogger) Error(message string, fields Fields) {
	l.withFields(fields).Error(message)
}

func (l *logrusLogger) withFields(fields Fields) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	return l.entry.WithFields(logrus.Fields(fields))
}

type noopLogger struct{}

func (noopLogger) SetLevel(Level)             {}
func (noopLogger) GetLevel() Level            { return NilLevel }
func (noopLogger) SetFields(Fields)           {}
func (noopLogger) WithFields(Fields) Logger   { return noopLogger{} }
func (noopLogger) Debug(string, Fields)       {}
func (noopLogger) Info(string, Fields)        {}
func (noopLogger) Warning(string, Fields)     {}
func (noopLogger) Error(string, Fields)       {}
