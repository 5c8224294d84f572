/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Timestamps and intervals.

NOW() and TIMESTAMP(x) produce time.Time values inside expressions;
INTERVAL literals produce Interval values. Arithmetic combines them
("NOW() - INTERVAL '1 h'"), and the engine converts any time.Time bound
for the store into an epoch-seconds decimal.

TIMESTAMP accepts datetime strings in a handful of layouts and numeric
epochs. A numeric epoch is read as seconds; when the resulting year
falls outside [1970, 9999] the value is re-read as milliseconds, so both
conventions work without a unit marker.
*/

package dql

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/apd/v3"
)

// Interval is a mixed-unit duration. Calendar units apply with AddDate
// semantics, clock units as an exact duration.
type Interval struct {
	Years   int64
	Months  int64
	Weeks   int64
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
	Millis  int64
	Micros  int64
}

// IsZero reports whether every component is zero.
func (iv Interval) IsZero() bool {
	return iv == Interval{}
}

// Negate returns the interval with every component negated.
func (iv Interval) Negate() Interval {
	return Interval{
		Years: -iv.Years, Months: -iv.Months, Weeks: -iv.Weeks,
		Days: -iv.Days, Hours: -iv.Hours, Minutes: -iv.Minutes,
		Seconds: -iv.Seconds, Millis: -iv.Millis, Micros: -iv.Micros,
	}
}

// Plus returns the componentwise sum of two intervals.
func (iv Interval) Plus(other Interval) Interval {
	return Interval{
		Years:   iv.Years + other.Years,
		Months:  iv.Months + other.Months,
		Weeks:   iv.Weeks + other.Weeks,
		Days:    iv.Days + other.Days,
		Hours:   iv.Hours + other.Hours,
		Minutes: iv.Minutes + other.Minutes,
		Seconds: iv.Seconds + other.Seconds,
		Millis:  iv.Millis + other.Millis,
		Micros:  iv.Micros + other.Micros,
	}
}

// AddTo applies the interval to a point in time.
func (iv Interval) AddTo(t time.Time) time.Time {
	t = t.AddDate(int(iv.Years), int(iv.Months), int(iv.Weeks*7+iv.Days))
	d := time.Duration(iv.Hours)*time.Hour +
		time.Duration(iv.Minutes)*time.Minute +
		time.Duration(iv.Seconds)*time.Second +
		time.Duration(iv.Millis)*time.Millisecond +
		time.Duration(iv.Micros)*time.Microsecond
	return t.Add(d)
}

// String renders the interval in the compact unit spelling ParseInterval
// accepts.
func (iv Interval) String() string {
	var parts []string
	add := func(n int64, unit string) {
		if n != 0 {
			parts = append(parts, strconv.FormatInt(n, 10)+unit)
		}
	}
	add(iv.Years, "y")
	add(iv.Months, "mo")
	add(iv.Weeks, "w")
	add(iv.Days, "d")
	add(iv.Hours, "h")
	add(iv.Minutes, "m")
	add(iv.Seconds, "s")
	add(iv.Millis, "ms")
	add(iv.Micros, "us")
	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}

// ParseInterval parses an interval spelling: a sequence of signed
// numbers each followed by a unit, e.g. "1 year 2 months" or "1y 30m".
func ParseInterval(text string) (Interval, error) {
	var iv Interval
	i := 0
	seen := false
	for i < len(text) {
		for i < len(text) && (unicode.IsSpace(rune(text[i])) || text[i] == ',') {
			i++
		}
		if i >= len(text) {
			break
		}
		j := i
		if text[j] == '+' || text[j] == '-' {
			j++
		}
		for j < len(text) && unicode.IsDigit(rune(text[j])) {
			j++
		}
		n, err := strconv.ParseInt(text[i:j], 10, 64)
		if err != nil {
			return Interval{}, fmt.Errorf("invalid interval %q", text)
		}
		i = j
		for i < len(text) && unicode.IsSpace(rune(text[i])) {
			i++
		}
		j = i
		for j < len(text) && unicode.IsLetter(rune(text[j])) {
			j++
		}
		unit := strings.ToLower(text[i:j])
		i = j
		switch unit {
		case "y", "yr", "year", "years":
			iv.Years += n
		case "mo", "month", "months":
			iv.Months += n
		case "w", "week", "weeks":
			iv.Weeks += n
		case "d", "day", "days":
			iv.Days += n
		case "h", "hr", "hour", "hours":
			iv.Hours += n
		case "m", "min", "minute", "minutes":
			iv.Minutes += n
		case "s", "sec", "second", "seconds":
			iv.Seconds += n
		case "ms", "millisecond", "milliseconds":
			iv.Millis += n
		case "us", "microsecond", "microseconds":
			iv.Micros += n
		default:
			return Interval{}, fmt.Errorf("invalid interval unit %q", unit)
		}
		seen = true
	}
	if !seen {
		return Interval{}, fmt.Errorf("invalid interval %q", text)
	}
	return iv, nil
}

// timestampLayouts are the datetime string spellings TIMESTAMP accepts,
// tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2 15:4:5",
	"2006-1-2",
}

// ParseTimestamp resolves a TIMESTAMP argument to a point in time.
// Strings parse against timestampLayouts, numbers as epochs; a
// time.Time passes through unchanged.
func ParseTimestamp(v interface{}, utc bool) (time.Time, error) {
	loc := time.Local
	if utc {
		loc = time.UTC
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.ParseInLocation(layout, t, loc); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse datetime %q", t)
	case int64:
		return epochToTime(float64(t)), nil
	case *apd.Decimal:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("epoch out of range: %s", t)
		}
		return epochToTime(f), nil
	}
	return time.Time{}, fmt.Errorf("cannot interpret %T as a timestamp", v)
}

// epochToTime reads a numeric epoch as seconds, falling back to
// milliseconds when the seconds reading lands outside [1970, 9999].
func epochToTime(epoch float64) time.Time {
	t := secondsToTime(epoch)
	if t.Year() < 1970 || t.Year() > 9999 {
		return secondsToTime(epoch / 1000)
	}
	return t
}

func secondsToTime(sec float64) time.Time {
	whole := int64(sec)
	frac := sec - float64(whole)
	return time.Unix(whole, int64(frac*1e9)).UTC()
}

// ToEpoch converts a point in time to an epoch-seconds decimal with
// microsecond resolution, the representation the store receives.
func ToEpoch(t time.Time) *apd.Decimal {
	micros := t.UnixMicro()
	d := apd.New(micros, -6)
	d.Reduce(d)
	return d
}
