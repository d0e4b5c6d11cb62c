// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package transcript turns raw caption streams into labelled, time-ordered
// chunks and selects the chunks relevant to a playback position.
//
// The package is pure: no I/O, no shared state. Every function is safe for
// concurrent use.
package transcript

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatTimestamp renders an offset in seconds as M:SS, or H:MM:SS from one
// hour onwards. Fractions are truncated and negative values clamp to 0:00.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ParseTimestamp reads a M:SS or H:MM:SS label, or a bare number of seconds,
// back into seconds.
func ParseTimestamp(label string) (float64, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	parts := strings.Split(label, ":")
	if len(parts) == 1 {
		v, err := strconv.ParseFloat(label, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", label)
		}
		return v, nil
	}
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", label)
	}
	total := 0.0
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", label)
		}
		// Minutes and seconds after the leading component are two-digit, base 60.
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("invalid timestamp %q", label)
		}
		total = total*60 + float64(v)
	}
	return total, nil
}
