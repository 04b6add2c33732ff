package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayArithmetic(t *testing.T) {
	d := NewDay(2024, time.February, 28)

	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, "2024-02-27", d.AddDays(-1).String())
	assert.Equal(t, 2, d.AddDays(2).Sub(d))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))
	assert.Equal(t, d, d.AddDays(3).AddDays(-3))
}

func TestDayOfIgnoresClockAndLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	late := time.Date(2025, time.March, 10, 23, 59, 0, 0, loc)

	assert.Equal(t, NewDay(2025, time.March, 10), DayOf(late))
}

func TestDayScan(t *testing.T) {
	var d Day
	require.NoError(t, d.Scan("2025-01-02"))
	assert.Equal(t, NewDay(2025, time.January, 2), d)

	require.NoError(t, d.Scan([]byte("2025-01-03")))
	assert.Equal(t, NewDay(2025, time.January, 3), d)

	require.NoError(t, d.Scan(time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, NewDay(2025, time.January, 4), d)

	assert.Error(t, d.Scan("yesterday"))
	assert.Error(t, d.Scan(42))
}

func TestDayUsableAsMapKey(t *testing.T) {
	parsed, err := ParseDay("2025-06-01")
	require.NoError(t, err)

	seen := map[Day]bool{NewDay(2025, time.June, 1): true}
	assert.True(t, seen[parsed])
}

func TestDayJSON(t *testing.T) {
	type row struct {
		Day Day `json:"day"`
	}

	b, err := json.Marshal(row{Day: NewDay(2025, time.June, 9)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2025-06-09"}`, string(b))

	var back row
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, NewDay(2025, time.June, 9), back.Day)

	assert.Error(t, json.Unmarshal([]byte(`{"day":"9 June"}`), &back))
}
