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

package db

import "math"

// The caster's spatial queries need trigonometry in degrees, which SQLite does
// not provide. Both drivers register these under the same SQL names.
const (
	FuncDegSin  = "deg_sin"
	FuncDegCos  = "deg_cos"
	FuncDegAcos = "deg_acos"
)

const radPerDeg = math.Pi / 180

// DegSin returns the sine of an angle given in degrees.
func DegSin(deg float64) float64 {
	return math.Sin(deg * radPerDeg)
}

// DegCos returns the cosine of an angle given in degrees.
func DegCos(deg float64) float64 {
	return math.Cos(deg * radPerDeg)
}

// DegAcos returns the arc cosine in degrees. The input is clamped to [-1, 1]
// so rounding errors on nearly identical points do not produce NaN.
func DegAcos(x float64) float64 {
	return math.Acos(max(-1, min(1, x))) / radPerDeg
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
