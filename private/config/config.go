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

// Package config provides a common pattern for configuration structs.
//
// Every configuration struct implements Config. A struct is initialized with
// InitDefaults, which fills all fields that were left unset, and checked with
// Validate. Sample writes a commented TOML block that decodes back into the
// defaults; unit tests keep the samples and the defaults consistent.
//
// Sample is allowed to panic if writing fails.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/rtkcaster/caster/pkg/private/serrors"
)

// Config is implemented by every configuration block.
type Config interface {
	Sampler
	Validator
	Defaulter
}

// Validator defines the validation part of Config.
type Validator interface {
	// Validate recursively checks that all fields contain valid values.
	Validate() error
}

// Defaulter defines the initialization part of Config.
type Defaulter interface {
	// InitDefaults recursively initializes the default values of all
	// uninitialized fields.
	InitDefaults()
}

// Sampler defines the sample generation part of Config.
type Sampler interface {
	// Sample writes a sample config to dst.
	Sample(dst io.Writer, path Path, ctx CtxMap)
}

// TableSampler is a Sampler that owns a named TOML table.
type TableSampler interface {
	Sampler
	ConfigName() string
}

// Path is the header of a config block possibly consisting of multiple parts.
type Path []string

// Extend creates a copy of the path with s appended.
func (p Path) Extend(s string) Path {
	c := append(Path(nil), p...)
	return append(c, s)
}

// ValidateAll validates all validators and stops at the first failure. The
// error names the failing table if the validator is also a TableSampler.
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		err := v.Validate()
		if err == nil {
			continue
		}
		if ts, ok := v.(TableSampler); ok {
			return serrors.Wrap("invalid config", err, "table", ts.ConfigName())
		}
		return serrors.Wrap("invalid config", err, "type", fmt.Sprintf("%T", v))
	}
	return nil
}

// InitAll initializes all defaulters.
func InitAll(defaulters ...Defaulter) {
	for _, v := range defaulters {
		v.InitDefaults()
	}
}

// Decode decodes raw TOML into cfg. Keys that cfg does not declare are an
// error, so that a misspelled option never silently falls back to its default.
func Decode(raw []byte, cfg any) error {
	dec := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return serrors.New("unknown config keys", "detail", strict.String())
		}
		return err
	}
	return nil
}

// LoadFile reads file and decodes it into cfg.
func LoadFile(file string, cfg any) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return serrors.Wrap("reading config", err, "file", file)
	}
	if err := Decode(raw, cfg); err != nil {
		return serrors.Wrap("decoding config", err, "file", file)
	}
	return nil
}
