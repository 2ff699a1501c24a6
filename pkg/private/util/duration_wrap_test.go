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

package util_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rtkcaster/caster/pkg/private/util"
)

func TestParseDuration(t *testing.T) {
	tests := map[string]struct {
		Input     string
		Expected  time.Duration
		AssertErr assert.ErrorAssertionFunc
	}{
		"seconds":  {Input: "30s", Expected: 30 * time.Second, AssertErr: assert.NoError},
		"millis":   {Input: "250ms", Expected: 250 * time.Millisecond, AssertErr: assert.NoError},
		"days":     {Input: "2d", Expected: 48 * time.Hour, AssertErr: assert.NoError},
		"bad days": {Input: "xd", AssertErr: assert.Error},
		"garbage":  {Input: "soon", AssertErr: assert.Error},
		"empty":    {Input: "", AssertErr: assert.Error},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d, err := util.ParseDuration(tc.Input)
			tc.AssertErr(t, err)
			if err == nil {
				assert.Equal(t, tc.Expected, d)
			}
		})
	}
}

func TestDurWrapText(t *testing.T) {
	var d util.DurWrap
	assert.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration)
	text, err := d.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
}
