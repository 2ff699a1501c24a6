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

package flag_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtkcaster/caster/private/app/flag"
)

func TestCasterEnvironment(t *testing.T) {
	setupFile := func(t *testing.T, env *flag.CasterEnvironment) {
		name := filepath.Join(t.TempDir(), "environment.json")
		raw, err := json.Marshal(flag.File{
			Query: "tcp://file:6601",
			API:   "http://file:30455",
		})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(name, raw, 0o644))
		env.SetFilePath(name)
	}
	noFile := func(_ *testing.T, env *flag.CasterEnvironment) {
		env.SetFilePath("/non-existing")
	}
	setupEnv := func(t *testing.T) {
		t.Setenv("CASTER_QUERY", "tcp://env:6601")
		t.Setenv("CASTER_API", "http://env:30455")
	}
	noEnv := func(t *testing.T) {
		t.Setenv("CASTER_QUERY", "")
		os.Unsetenv("CASTER_QUERY")
		t.Setenv("CASTER_API", "")
		os.Unsetenv("CASTER_API")
	}
	setupFlags := func(t *testing.T, fs *pflag.FlagSet) {
		require.NoError(t, fs.Parse([]string{
			"--query", "tcp://flag:6601",
			"--api", "http://flag:30455",
		}))
	}
	noFlags := func(t *testing.T, fs *pflag.FlagSet) {
		require.NoError(t, fs.Parse([]string{}))
	}
	testCases := map[string]struct {
		flags func(t *testing.T, fs *pflag.FlagSet)
		file  func(t *testing.T, env *flag.CasterEnvironment)
		env   func(t *testing.T)
		query string
		api   string
	}{
		"defaults only": {
			flags: noFlags,
			env:   noEnv,
			file:  noFile,
			query: flag.DefaultQuery,
			api:   flag.DefaultAPI,
		},
		"flag values set": {
			flags: setupFlags,
			env:   noEnv,
			file:  noFile,
			query: "tcp://flag:6601",
			api:   "http://flag:30455",
		},
		"env values set": {
			flags: noFlags,
			env:   setupEnv,
			file:  noFile,
			query: "tcp://env:6601",
			api:   "http://env:30455",
		},
		"file values set": {
			flags: noFlags,
			env:   noEnv,
			file:  setupFile,
			query: "tcp://file:6601",
			api:   "http://file:30455",
		},
		"all set, flag precedence": {
			flags: setupFlags,
			env:   setupEnv,
			file:  setupFile,
			query: "tcp://flag:6601",
			api:   "http://flag:30455",
		},
		"env set, file set, env precedence": {
			flags: noFlags,
			env:   setupEnv,
			file:  setupFile,
			query: "tcp://env:6601",
			api:   "http://env:30455",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var env flag.CasterEnvironment
			fs := pflag.NewFlagSet("testSet", pflag.ContinueOnError)
			env.Register(fs)
			tc.flags(t, fs)
			tc.env(t)
			tc.file(t, &env)
			require.NoError(t, env.LoadExternalVars())
			assert.Equal(t, tc.query, env.Query())
			assert.Equal(t, tc.api, env.API())
			assert.Equal(t, flag.DefaultClientPublish, env.ClientPublish())
		})
	}
}

func TestCasterEnvironmentMalformedFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "environment.json")
	require.NoError(t, os.WriteFile(name, []byte("{"), 0o644))
	var env flag.CasterEnvironment
	env.SetFilePath(name)
	assert.Error(t, env.LoadExternalVars())
}

func TestCasterEnvironmentUnregistered(t *testing.T) {
	var env flag.CasterEnvironment
	assert.Equal(t, flag.DefaultKeyManagement, env.KeyManagement())
	assert.Equal(t, flag.DefaultNotifications, env.Notifications())
}
