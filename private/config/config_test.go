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


package config_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtkcaster/caster/private/config"
)

type section struct {
	Rate int `toml:"rate"`
	err  error
}

func (s *section) Sample(dst io.Writer, _ config.Path, ctx config.CtxMap) {
	config.WriteString(dst, "# Frames per second. (default "+ctx["rate"]+")\nrate = 1\n\n")
}

func (s *section) ConfigName() string { return "stream" }

func (s *section) Validate() error { return s.err }

func (s *section) InitDefaults() {
	if s.Rate == 0 {
		s.Rate = 1
	}
}

type file struct {
	Stream section `toml:"stream"`
}

func TestWriteSample(t *testing.T) {
	var buf bytes.Buffer
	config.WriteSample(&buf, nil, config.CtxMap{"rate": "1"}, &section{})
	assert.Equal(t, "\n[stream]\n    # Frames per second. (default 1)\n    rate = 1\n\n",
		buf.String())

	var f file
	require.NoError(t, config.Decode(buf.Bytes(), &f))
	assert.Equal(t, 1, f.Stream.Rate)
}

func TestDecodeUnknownKey(t *testing.T) {
	var f file
	err := config.Decode([]byte("[stream]\nrate = 2\nburst = 3\n"), &f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config keys")
}

func TestValidateAll(t *testing.T) {
	ok := &section{}
	bad := &section{err: assert.AnError}
	assert.NoError(t, config.ValidateAll(ok, ok))
	err := config.ValidateAll(ok, bad)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "stream")
}

func TestInitAll(t *testing.T) {
	s := &section{}
	config.InitAll(s)
	assert.Equal(t, 1, s.Rate)
}

func TestPathExtend(t *testing.T) {
	p := config.Path{"caster"}
	q := p.Extend("stream")
	assert.Equal(t, config.Path{"caster"}, p)
	assert.Equal(t, config.Path{"caster", "stream"}, q)
}
