package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Count is a non-negative cumulative counter. Upstream and hand-edited files
// carry counters as numbers, numeric strings, null or garbage; anything that
// is not a finite number decodes as zero instead of failing the whole file.
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(b []byte) error {
	*c = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		*c = parseCount(s)
		return nil
	}
	*c = parseCount(string(b))
	return nil
}

// parseCount truncates numeric input toward zero; negatives, NaN and Inf give 0.
func parseCount(s string) Count {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return Count(math.MaxInt32)
	}
	return Count(f)
}

// Int returns the counter as an int.
func (c Count) Int() int { return int(c) }
