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

package launcher

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	libconfig "github.com/rtkcaster/caster/private/config"
)

type testConfig struct {
	Name    string     `toml:"name,omitempty"`
	Logging log.Config `toml:"log,omitempty"`
}

func (c *testConfig) InitDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	c.Logging.InitDefaults()
}

func (c *testConfig) Validate() error {
	if c.Name == "invalid" {
		return serrors.New("invalid name")
	}
	return c.Logging.Validate()
}

func (c *testConfig) Sample(dst io.Writer, _ libconfig.Path, _ libconfig.CtxMap) {
	libconfig.WriteString(dst, "name = \"sample\"\n")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "caster.toml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestRun(t *testing.T) {
	testCases := map[string]struct {
		Config    string
		Env       map[string]string
		Name      string
		Level     string
		Main      bool
		AssertErr assert.ErrorAssertionFunc
	}{
		"defaults": {
			Config:    "",
			Name:      "default",
			Level:     log.DefaultConsoleLevel,
			Main:      true,
			AssertErr: assert.NoError,
		},
		"file values": {
			Config:    "name = \"zurich\"\n[log.console]\nlevel = \"debug\"\n",
			Name:      "zurich",
			Level:     "debug",
			Main:      true,
			AssertErr: assert.NoError,
		},
		"env overrides log level": {
			Config:    "[log.console]\nlevel = \"debug\"\n",
			Env:       map[string]string{"CASTER_LOG_CONSOLE_LEVEL": "error"},
			Name:      "default",
			Level:     "error",
			Main:      true,
			AssertErr: assert.NoError,
		},
		"unknown key": {
			Config:    "unknown = 1\n",
			AssertErr: assert.Error,
		},
		"invalid config": {
			Config:    "name = \"invalid\"\n",
			Name:      "invalid",
			Level:     log.DefaultConsoleLevel,
			AssertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			for k, v := range tc.Env {
				t.Setenv(k, v)
			}
			var cfg testConfig
			ran := false
			a := &Application{
				TOMLConfig:  &cfg,
				ErrorWriter: io.Discard,
				Main: func(ctx context.Context) error {
					ran = true
					return nil
				},
			}
			err := a.run(context.Background(), []string{"--config", writeConfig(t, tc.Config)})
			tc.AssertErr(t, err)
			assert.Equal(t, tc.Main, ran)
			if tc.Name == "" {
				return
			}
			assert.Equal(t, tc.Name, cfg.Name)
			assert.Equal(t, tc.Level, a.getLogging().Console.Level)
		})
	}
}

func TestRunMainError(t *testing.T) {
	a := &Application{
		TOMLConfig:  &testConfig{},
		ErrorWriter: io.Discard,
		Main: func(ctx context.Context) error {
			return serrors.New("main failed")
		},
	}
	err := a.run(context.Background(), []string{"--config", writeConfig(t, "")})
	assert.ErrorContains(t, err, "main failed")
}

func TestRunRequiresConfig(t *testing.T) {
	a := &Application{TOMLConfig: &testConfig{}, ErrorWriter: io.Discard}
	assert.Error(t, a.run(context.Background(), []string{}))
}

func TestSampleConfig(t *testing.T) {
	var out bytes.Buffer
	a := &Application{TOMLConfig: &testConfig{}, ErrorWriter: io.Discard}
	cmd := newCommandTemplate("caster", "Caster", a.TOMLConfig)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"sample", "config"})
	require.NoError(t, cmd.Execute())

	var cfg testConfig
	require.NoError(t, libconfig.Decode(out.Bytes(), &cfg))
	assert.Equal(t, "sample", cfg.Name)
}
