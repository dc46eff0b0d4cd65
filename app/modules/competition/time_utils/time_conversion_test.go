package comptime

import (
	"log/slog"
	"testing"
	"time"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeParser_ParseScheduleTime(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	// 7 AM CDT
	now := time.Date(2027, 6, 5, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		loc     *time.Location
		want    time.Time
		wantErr error
		anyErr  bool
	}{
		{
			name:  "time later today",
			input: "7pm",
			loc:   chicago,
			want:  time.Date(2027, 6, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "compact time format",
			input: "932am",
			loc:   chicago,
			want:  time.Date(2027, 6, 5, 14, 32, 0, 0, time.UTC),
		},
		{
			name:    "time already passed",
			input:   "6am",
			loc:     chicago,
			wantErr: ErrNotInFuture,
		},
		{
			name:  "RFC 3339 timestamp",
			input: "2027-06-05T18:30:00Z",
			loc:   chicago,
			want:  time.Date(2027, 6, 5, 18, 30, 0, 0, time.UTC),
		},
		{
			name:  "absolute layout in venue timezone",
			input: "2027-06-05 15:00",
			loc:   chicago,
			want:  time.Date(2027, 6, 5, 20, 0, 0, 0, time.UTC),
		},
		{
			name:  "nil location means UTC",
			input: "2027-06-05 15:00",
			want:  time.Date(2027, 6, 5, 15, 0, 0, 0, time.UTC),
		},
		{
			name:    "past absolute timestamp",
			input:   "2027-06-04T18:30:00Z",
			loc:     chicago,
			wantErr: ErrNotInFuture,
		},
		{name: "unrecognized input", input: "invalid date", loc: chicago, anyErr: true},
		{name: "empty input", input: "", loc: chicago, anyErr: true},
		{name: "whitespace only", input: "   ", loc: chicago, anyErr: true},
	}

	tp := NewTimeParser(slog.New(slog.DiscardHandler))
	clock := &FakeClock{NowFn: func() time.Time { return now }}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tp.ParseScheduleTime(tt.input, tt.loc, clock)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.True(t, tt.want.Equal(got), "got %s, want %s", got.Format(time.RFC3339), tt.want.Format(time.RFC3339))
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestVenueLocation(t *testing.T) {
	tests := []struct {
		name    string
		venues  []comptypes.Venue
		want    string
		wantErr bool
	}{
		{name: "no venues", want: "UTC"},
		{name: "first venue with a timezone", venues: []comptypes.Venue{{ID: 1}, {ID: 2, Timezone: "Europe/Warsaw"}}, want: "Europe/Warsaw"},
		{name: "unknown timezone", venues: []comptypes.Venue{{ID: 1, Timezone: "Mars/Olympus"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := comptypes.Competition{Schedule: comptypes.Schedule{Venues: tt.venues}}
			loc, err := VenueLocation(comp)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, loc.String())
		})
	}
}
