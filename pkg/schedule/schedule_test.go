package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestSchedule(t *testing.T) *Schedule {
	t.Helper()
	s := New()
	a := s.AddStop("A", 0, 0)
	b := s.AddStop("B", 1000, 0)
	c := s.AddStop("C", 2000, 0)
	line := s.AddLine("L1")
	line.AddRoute("R1", "bus").
		AddStop(a, UndefinedTime, 0).
		AddStop(b, 120, 150).
		AddStop(c, 300, UndefinedTime).
		AddDeparture("d1", 6*3600)
	return s
}

func TestValidate(t *testing.T) {
	s := buildTestSchedule(t)
	require.NoError(t, s.Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Schedule)
	}{
		{
			name: "duplicate stop id",
			mutate: func(s *Schedule) {
				s.AddStop("A", 5, 5)
			},
		},
		{
			name: "decreasing offsets",
			mutate: func(s *Schedule) {
				s.Lines[0].Routes[0].Stops[2].ArrivalOffset = 100
			},
		},
		{
			name: "foreign stop",
			mutate: func(s *Schedule) {
				s.Lines[0].Routes[0].AddStop(&Stop{ID: "X"}, 400, 400)
			},
		},
		{
			name: "unknown transfer pair",
			mutate: func(s *Schedule) {
				s.SetMinimalTransferTime("A", "Z", 60)
			},
		},
		{
			name: "no offsets at all",
			mutate: func(s *Schedule) {
				s.Lines[0].Routes[0].AddStop(s.Stops[0], UndefinedTime, UndefinedTime)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := buildTestSchedule(t)
			tt.mutate(s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSchedule)
		})
	}
}

func TestNormalizedOffsets(t *testing.T) {
	arr, dep := RouteStop{ArrivalOffset: UndefinedTime, DepartureOffset: 30}.NormalizedOffsets()
	assert.Equal(t, 30.0, arr)
	assert.Equal(t, 30.0, dep)

	arr, dep = RouteStop{ArrivalOffset: 45, DepartureOffset: UndefinedTime}.NormalizedOffsets()
	assert.Equal(t, 45.0, arr)
	assert.Equal(t, 45.0, dep)
}

func TestStopLookup(t *testing.T) {
	s := buildTestSchedule(t)
	assert.Equal(t, StopID("B"), s.Stop("B").ID)
	assert.Nil(t, s.Stop("nope"))

	v, ok := s.Stops[0].Attr("bike")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "07:40:00", want: 7*3600 + 40*60},
		{in: "07:40", want: 7*3600 + 40*60},
		{in: "25:01:02", want: 25*3600 + 62},
		{in: "7:61:00", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1:2:3:4", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "08:14:06", FormatTime(8*3600+14*60+6.7))
	assert.Equal(t, "00:00:00", FormatTime(0))
	assert.Equal(t, "26:00:00", FormatTime(26*3600))
}
