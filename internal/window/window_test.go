package window

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("working days start", func(t *testing.T) {
		f, err := Decode(CronPair{CronStart: "0 7 * * 1-5", CronStop: "0 17 * * *"})
		require.NoError(t, err)
		assert.Equal(t, Fields{StartHour: 7, EndHour: 17, Days: WorkingDays}, f)
	})

	t.Run("all days start", func(t *testing.T) {
		f, err := Decode(CronPair{CronStart: "0 2 * * *", CronStop: "0 18 * * *"})
		require.NoError(t, err)
		assert.Equal(t, Fields{StartHour: 2, EndHour: 18, Days: AllDays}, f)
	})

	t.Run("stop day-of-week is ignored", func(t *testing.T) {
		f, err := Decode(CronPair{CronStart: "0 8 * * *", CronStop: "0 20 * * 1-5"})
		require.NoError(t, err)
		assert.Equal(t, AllDays, f.Days)
	})

	failures := []struct {
		name  string
		pair  CronPair
		field string
	}{
		{"empty start", CronPair{CronStart: "", CronStop: "0 17 * * *"}, "cron_start"},
		{"empty stop", CronPair{CronStart: "0 7 * * *", CronStop: "  "}, "cron_stop"},
		{"too few fields", CronPair{CronStart: "0 7 * *", CronStop: "0 17 * * *"}, "cron_start"},
		{"not cron", CronPair{CronStart: "0 7 * * *", CronStop: "a b c d e"}, "cron_stop"},
		{"hour step", CronPair{CronStart: "0 */2 * * *", CronStop: "0 17 * * *"}, "cron_start"},
		{"weekend", CronPair{CronStart: "0 7 * * 0,6", CronStop: "0 17 * * *"}, "cron_start"},
		{"hour out of range", CronPair{CronStart: "0 7 * * *", CronStop: "0 24 * * *"}, "cron_stop"},
		{"non-zero minute", CronPair{CronStart: "30 7 * * 1-5", CronStop: "0 17 * * *"}, "cron_start"},
		{"stop minute", CronPair{CronStart: "0 7 * * 1-5", CronStop: "15 17 * * *"}, "cron_stop"},
		{"day-of-month", CronPair{CronStart: "0 7 1 * 1-5", CronStop: "0 17 * * *"}, "cron_start"},
		{"month", CronPair{CronStart: "0 7 * * 1-5", CronStop: "0 17 * 6 *"}, "cron_stop"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.pair)
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, tt.field, decodeErr.Field)
		})
	}

	t.Run("unknown day-of-week wraps ErrUnknownDaySet", func(t *testing.T) {
		_, err := Decode(CronPair{CronStart: "0 7 * * 1-4", CronStop: "0 17 * * *"})
		assert.True(t, errors.Is(err, ErrUnknownDaySet))
	})
}

func TestEncode(t *testing.T) {
	pair, err := Encode(Fields{StartHour: 2, EndHour: 18, Days: AllDays})
	require.NoError(t, err)
	assert.Equal(t, CronPair{CronStart: "0 2 * * *", CronStop: "0 18 * * *"}, pair)

	pair, err = Encode(Fields{StartHour: 2, EndHour: 18, Days: WorkingDays})
	require.NoError(t, err)
	assert.Equal(t, CronPair{CronStart: "0 2 * * 1-5", CronStop: "0 18 * * *"}, pair)

	t.Run("wire payload", func(t *testing.T) {
		body, err := json.Marshal(pair)
		require.NoError(t, err)
		assert.Equal(t, `{"cron_start":"0 2 * * 1-5","cron_stop":"0 18 * * *"}`, string(body))
	})

	t.Run("zero day set is rejected", func(t *testing.T) {
		_, err := Encode(Fields{StartHour: 1, EndHour: 2})
		assert.ErrorIs(t, err, ErrUnknownDaySet)
	})

	t.Run("hour out of range is rejected", func(t *testing.T) {
		_, err := Encode(Fields{StartHour: 1, EndHour: 24, Days: AllDays})
		assert.ErrorIs(t, err, ErrHourOutOfRange)
	})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, days := range DaySets {
		for h1 := MinHour; h1 <= MaxHour; h1++ {
			for h2 := MinHour; h2 <= MaxHour; h2++ {
				in := Fields{StartHour: h1, EndHour: h2, Days: days}
				pair, err := Encode(in)
				require.NoError(t, err)
				require.Equal(t, "*", pair.CronStop[len(pair.CronStop)-1:], "stop expression must run every day")

				out, err := Decode(pair)
				require.NoError(t, err)
				require.Equal(t, in, out)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	for start := MinHour; start <= MaxHour; start++ {
		for end := MinHour; end <= MaxHour; end++ {
			r := Validate(Fields{StartHour: start, EndHour: end, Days: AllDays})
			if r.Valid != (end > start) {
				t.Fatalf("Validate(%d, %d).Valid = %v", start, end, r.Valid)
			}
		}
	}

	r := Validate(Fields{StartHour: 20, EndHour: 20, Days: AllDays})
	assert.False(t, r.Valid)
	assert.Equal(t, MessageEndDateShouldBeAfterStartDate, r.Message(BoundaryEnd))
	assert.Equal(t, MessageStartHourShouldBeBeforeEndHour, r.Message(BoundaryStart))
	assert.NotEqual(t, r.Start, r.End)

	var verr *ValidationError
	require.ErrorAs(t, r.Err(BoundaryEnd), &verr)
	assert.Equal(t, BoundaryEnd, verr.Boundary)
	assert.NoError(t, Validate(Fields{StartHour: 1, EndHour: 2}).Err(BoundaryEnd))
}

func TestParseHour(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr error
	}{
		{"0", 0, nil},
		{" 18 ", 18, nil},
		{"23", 23, nil},
		{"24", 0, ErrHourOutOfRange},
		{"-1", 0, ErrHourOutOfRange},
		{"", 0, ErrHourNotNumber},
		{"7am", 0, ErrHourNotNumber},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseHour(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDaySet(t *testing.T) {
	assert.Equal(t, "All days", AllDays.Label())
	assert.Equal(t, "Working days (Monday to Friday)", WorkingDays.Label())

	d, err := ParseDaySetName("Working")
	require.NoError(t, err)
	assert.Equal(t, WorkingDays, d)

	_, err = ParseDaySetName("weekend")
	assert.ErrorIs(t, err, ErrUnknownDaySet)

	_, err = DaySet(0).DayOfWeek()
	assert.ErrorIs(t, err, ErrUnknownDaySet)
}

func TestPreview(t *testing.T) {
	// Wednesday 4 March 2026, 10:30 local time.
	now := time.Date(2026, time.March, 4, 10, 30, 0, 0, time.Local)

	t.Run("all days opens tomorrow when today's start has passed", func(t *testing.T) {
		occ, err := Preview(Fields{StartHour: 7, EndHour: 17, Days: AllDays}, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, time.March, 5, 7, 0, 0, 0, time.Local), occ.Start)
		assert.Equal(t, time.Date(2026, time.March, 5, 17, 0, 0, 0, time.Local), occ.Stop)
	})

	t.Run("working days skip the weekend", func(t *testing.T) {
		friday := time.Date(2026, time.March, 6, 12, 0, 0, 0, time.Local)
		occ, err := Preview(Fields{StartHour: 7, EndHour: 17, Days: WorkingDays}, friday)
		require.NoError(t, err)
		assert.Equal(t, time.Monday, occ.Start.Weekday())
		assert.Equal(t, 7, occ.Start.Hour())
		assert.True(t, occ.Stop.After(occ.Start))
	})

	t.Run("invalid fields", func(t *testing.T) {
		_, err := Preview(Fields{StartHour: 7, EndHour: 17}, now)
		assert.Error(t, err)
	})
}
