package dateutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name        string
		dateStr     string
		expectedOk  bool
		expected    time.Time
		expectedFmt string
	}{
		{"ISO format", "2025-01-15", true, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), DateLayoutISO},
		{"RFC3339 with offset keeps wall clock", "2025-01-15T23:30:00-05:00", true, time.Date(2025, 1, 15, 23, 30, 0, 0, time.UTC), time.RFC3339Nano},
		{"ISO with time", "2025-12-31T10:00:00", true, time.Date(2025, 12, 31, 10, 0, 0, 0, time.UTC), DateLayoutISOTime},
		{"Full timestamp", "2025-01-15 10:30:45", true, time.Date(2025, 1, 15, 10, 30, 45, 0, time.UTC), DateLayoutFull},
		{"Padded", "  2025-02-01 ", true, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), DateLayoutISO},
		{"European format", "15.01.2025", true, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), DateLayoutEuropean},
		{"Empty string", "", false, time.Time{}, ""},
		{"Invalid format", "not a date", false, time.Time{}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			date, format, err := ParseDate(tc.dateStr)
			if !tc.expectedOk {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expected.Equal(date), "got %s", date)
			assert.Equal(t, tc.expectedFmt, format)
		})
	}
}

func TestCleanDateString(t *testing.T) {
	assert.Equal(t, "2023-01-15", CleanDateString("  2023-01-15  "))
	assert.Equal(t, "2023 01 15", CleanDateString("2023  01  15"))
	assert.Equal(t, "", CleanDateString("   "))
}

func TestStartAndEndOfMonth(t *testing.T) {
	d := time.Date(2024, time.February, 17, 13, 5, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), StartOfMonth(d))
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), EndOfMonth(d))
	assert.Equal(t, time.Date(2024, time.February, 17, 0, 0, 0, 0, time.UTC), StartOfDay(d))
}

func TestMonthRange(t *testing.T) {
	t.Run("spans year boundary", func(t *testing.T) {
		months := MonthRange(MustParseISO("2024-11-20"), MustParseISO("2025-02-03"))
		require.Len(t, months, 4)
		assert.Equal(t, "2024-11-01", ToISODate(months[0]))
		assert.Equal(t, "2024-12-01", ToISODate(months[1]))
		assert.Equal(t, "2025-01-01", ToISODate(months[2]))
		assert.Equal(t, "2025-02-01", ToISODate(months[3]))
	})

	t.Run("same month", func(t *testing.T) {
		months := MonthRange(MustParseISO("2025-03-31"), MustParseISO("2025-03-01"))
		require.Len(t, months, 1)
		assert.Equal(t, "2025-03-01", ToISODate(months[0]))
	})

	t.Run("end before start", func(t *testing.T) {
		assert.Nil(t, MonthRange(MustParseISO("2025-05-01"), MustParseISO("2025-01-01")))
	})
}
