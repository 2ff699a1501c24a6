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

package log_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/private/serrors"
)

func TestConsoleValidate(t *testing.T) {
	testCases := map[string]struct {
		console log.Console
		wantErr bool
	}{
		"defaults":       {},
		"json debug":     {console: log.Console{Level: "debug", Format: "json"}},
		"unknown level":  {console: log.Console{Level: "verbose"}, wantErr: true},
		"unknown format": {console: log.Console{Format: "xml"}, wantErr: true},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			tc.console.InitDefaults()
			err := tc.console.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFieldsAndContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := log.Wrap(zap.New(core)).New("worker", "stream")
	ctx := log.CtxWith(context.Background(), l)
	log.FromCtx(ctx).Info("registered", "stream_id", 7,
		"err", serrors.New("boom", "peer", "a"))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		m := entries[0].ContextMap()
		assert.Equal(t, "stream", m["worker"])
		assert.EqualValues(t, 7, m["stream_id"])
		assert.Contains(t, m, "err")
	}
	assert.True(t, l.Enabled(log.DebugLevel))
}

func TestFromCtxFallsBackToRoot(t *testing.T) {
	assert.NotNil(t, log.FromCtx(context.Background()))
}
