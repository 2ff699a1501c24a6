// Copyright 2026 The Caster Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package serrors provides errors that carry key/value context. The context is
// rendered in the error string and, when the error is logged through zap, as
// structured fields. All errors returned by this package support errors.Is and
// errors.As against their cause and, for joined errors, their base error.
package serrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type pair struct {
	Key   string
	Value any
}

type info struct {
	ctx   []pair
	cause error
	stack *stack
}

func newInfo(cause error, withStack bool, errCtx []any) info {
	ctx := make([]pair, 0, len(errCtx)/2)
	for i := 0; i+1 < len(errCtx); i += 2 {
		ctx = append(ctx, pair{Key: fmt.Sprint(errCtx[i]), Value: errCtx[i+1]})
	}
	sort.SliceStable(ctx, func(a, b int) bool { return ctx[a].Key < ctx[b].Key })
	in := info{ctx: ctx, cause: cause}
	if withStack && !hasStack(cause) {
		in.stack = callers()
	}
	return in
}

func (in info) suffix() string {
	var b strings.Builder
	if len(in.ctx) != 0 {
		b.WriteString(" {")
		for i, p := range in.ctx {
			if i != 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s=%v", p.Key, p.Value)
		}
		b.WriteString("}")
	}
	if in.cause != nil {
		b.WriteString(": ")
		b.WriteString(in.cause.Error())
	}
	return b.String()
}

func (in info) marshal(enc zapcore.ObjectEncoder) error {
	if in.cause != nil {
		if m, ok := in.cause.(zapcore.ObjectMarshaler); ok {
			if err := enc.AddObject("cause", m); err != nil {
				return err
			}
		} else {
			enc.AddString("cause", in.cause.Error())
		}
	}
	if in.stack != nil {
		if err := enc.AddArray("stacktrace", in.stack); err != nil {
			return err
		}
	}
	for _, p := range in.ctx {
		zap.Any(p.Key, p.Value).AddTo(enc)
	}
	return nil
}

// StackTrace returns the recorded call stack, if any.
func (in info) StackTrace() StackTrace {
	if in.stack == nil {
		return nil
	}
	return in.stack.trace()
}

type msgError struct {
	info
	msg string
}

func (e *msgError) Error() string { return e.msg + e.suffix() }

func (e *msgError) Unwrap() error { return e.cause }

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e *msgError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("msg", e.msg)
	return e.marshal(enc)
}

type joinedError struct {
	info
	base error
}

func (e *joinedError) Error() string { return e.base.Error() + e.suffix() }

func (e *joinedError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.base}
	}
	return []error{e.base, e.cause}
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e *joinedError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("msg", e.base.Error())
	return e.marshal(enc)
}

func hasStack(err error) bool {
	var m *msgError
	var j *joinedError
	return errors.As(err, &m) || errors.As(err, &j)
}

// New creates an error with the given message and context. A stack trace is
// recorded. For package level sentinel errors prefer errors.New.
func New(msg string, errCtx ...any) error {
	return &msgError{info: newInfo(nil, true, errCtx), msg: msg}
}

// Wrap returns an error with the given message that wraps cause. A stack trace
// is recorded unless cause already carries one.
func Wrap(msg string, cause error, errCtx ...any) error {
	return &msgError{info: newInfo(cause, true, errCtx), msg: msg}
}

// WrapNoStack is like Wrap but never records a stack trace.
func WrapNoStack(msg string, cause error, errCtx ...any) error {
	return &msgError{info: newInfo(cause, false, errCtx), msg: msg}
}

// Join attaches cause and context to the base error err. The result matches
// both err and cause with errors.Is. Join returns nil if both are nil.
func Join(err, cause error, errCtx ...any) error {
	if err == nil && cause == nil {
		return nil
	}
	if err == nil {
		return Wrap("error", cause, errCtx...)
	}
	return &joinedError{info: newInfo(cause, true, errCtx), base: err}
}

// JoinNoStack is like Join but never records a stack trace.
func JoinNoStack(err, cause error, errCtx ...any) error {
	if err == nil && cause == nil {
		return nil
	}
	if err == nil {
		return WrapNoStack("error", cause, errCtx...)
	}
	return &joinedError{info: newInfo(cause, false, errCtx), base: err}
}

// IsTimeout returns whether err is or is caused by a timeout error.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// List is a slice of errors.
type List []error

// Error implements the error interface.
func (e List) Error() string {
	s := make([]string, 0, len(e))
	for _, err := range e {
		s = append(s, err.Error())
	}
	return fmt.Sprintf("[ %s ]", strings.Join(s, "; "))
}

// Unwrap returns the errors in the list.
func (e List) Unwrap() []error {
	return e
}

// ToError returns nil for an empty list and the list itself otherwise.
func (e List) ToError() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// MarshalLogArray implements zapcore.ArrayMarshaler.
func (e List) MarshalLogArray(ae zapcore.ArrayEncoder) error {
	for _, err := range e {
		if m, ok := err.(zapcore.ObjectMarshaler); ok {
			if err := ae.AppendObject(m); err != nil {
				return err
			}
			continue
		}
		ae.AppendString(err.Error())
	}
	return nil
}
