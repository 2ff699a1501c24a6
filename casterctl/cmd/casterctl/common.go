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

package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/rtkcaster/caster/pkg/private/serrors"
)

const formatUsage = "Specify the output format (human|json|yaml)"

// getPrintf returns a printf function for the "human" format and a no-op for
// the machine readable formats.
func getPrintf(output string, w io.Writer) (func(format string, ctx ...any), error) {
	switch output {
	case "human":
		return func(format string, ctx ...any) {
			fmt.Fprintf(w, format, ctx...)
		}, nil
	case "yaml", "json":
		return func(format string, ctx ...any) {}, nil
	default:
		return nil, serrors.New("format not supported", "format", output)
	}
}

// encode writes v in one of the machine readable formats.
func encode(output string, w io.Writer, v any) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml":
		return yaml.NewEncoder(w).Encode(v)
	default:
		return serrors.New("output format not supported", "format", output)
	}
}

// loadPrivateKey reads a hex encoded ed25519 private key. Both the 32 byte
// seed and the 64 byte expanded form are accepted.
func loadPrivateKey(file string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, serrors.Wrap("reading key file", err, "file", file)
	}
	b, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, serrors.Wrap("decoding key file", err, "file", file)
	}
	switch len(b) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(b), nil
	default:
		return nil, serrors.New("invalid private key length", "file", file, "len", len(b))
	}
}

func parsePublicKey(s string) (ed25519.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, serrors.Wrap("decoding public key", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, serrors.New("invalid public key length", "len", len(b))
	}
	return ed25519.PublicKey(b), nil
}

// parseGrant parses "<hex key>[@<RFC 3339 expiry>]".
func parseGrant(s string) (ed25519.PublicKey, time.Time, error) {
	key, expiry, found := strings.Cut(s, "@")
	pub, err := parsePublicKey(key)
	if err != nil {
		return nil, time.Time{}, err
	}
	if !found {
		return pub, time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, expiry)
	if err != nil {
		return nil, time.Time{}, serrors.Wrap("parsing expiry", err, "expiry", expiry)
	}
	return pub, t, nil
}
