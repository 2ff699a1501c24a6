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

package serrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/rtkcaster/caster/pkg/private/serrors"
)

type timeoutErr struct {
	timeout bool
	cause   error
}

func (e *timeoutErr) Error() string { return "to" }
func (e *timeoutErr) Timeout() bool { return e.timeout }
func (e *timeoutErr) Unwrap() error { return e.cause }

func TestIsTimeout(t *testing.T) {
	assert.False(t, serrors.IsTimeout(serrors.New("no timeout")))
	assert.True(t, serrors.IsTimeout(serrors.Wrap("timeout", &timeoutErr{timeout: true})))
	assert.False(t, serrors.IsTimeout(serrors.Wrap("outer", &timeoutErr{
		cause: &timeoutErr{timeout: true},
	})))
}

func TestErrorString(t *testing.T) {
	base := errors.New("base")
	testCases := map[string]struct {
		err  error
		want string
	}{
		"new with context": {
			err:  serrors.New("msg", "b", 2, "a", 1),
			want: "msg {a=1; b=2}",
		},
		"wrap": {
			err:  serrors.Wrap("outer", base, "k", "v"),
			want: "outer {k=v}: base",
		},
		"join": {
			err:  serrors.Join(base, errors.New("cause")),
			want: "base: cause",
		},
		"join no cause": {
			err:  serrors.JoinNoStack(base, nil, "id", 7),
			want: "base {id=7}",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestIs(t *testing.T) {
	base := errors.New("base")
	cause := errors.New("cause")
	joined := serrors.Join(base, cause)
	assert.ErrorIs(t, joined, base)
	assert.ErrorIs(t, joined, cause)
	assert.ErrorIs(t, serrors.Wrap("x", joined), base)
	assert.NotErrorIs(t, serrors.New("x"), base)
	assert.Nil(t, serrors.Join(nil, nil))
}

func TestList(t *testing.T) {
	var l serrors.List
	assert.NoError(t, l.ToError())
	l = append(l, errors.New("a"), serrors.New("b"))
	assert.Equal(t, "[ a; b ]", l.ToError().Error())
	enc := zapcore.NewMapObjectEncoder()
	assert.NoError(t, enc.AddArray("errs", l))
	assert.Len(t, enc.Fields["errs"], 2)

	base := errors.New("base")
	l = append(l, serrors.Wrap("wrapped", base))
	assert.ErrorIs(t, l.ToError(), base)
}

func TestStackTrace(t *testing.T) {
	err := serrors.New("with stack")
	var st interface{ StackTrace() serrors.StackTrace }
	if assert.True(t, errors.As(err, &st)) {
		assert.NotEmpty(t, st.StackTrace())
	}
}
