package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", in: `"3s"`, want: 3 * time.Second},
		{name: "nanoseconds", in: `1000`, want: 1000},
		{name: "bad string", in: `"soon"`, wantErr: true},
		{name: "bool", in: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration)
		})
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	var v struct {
		Interval Duration `yaml:"interval"`
		Raw      Duration `yaml:"raw"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("interval: 2m\nraw: 5\n"), &v))
	assert.Equal(t, 2*time.Minute, v.Interval.Duration)
	assert.Equal(t, time.Duration(5), v.Raw.Duration)
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{Duration: 1500 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(b))
}

func TestFormatISO_FixedWidthAndSortable(t *testing.T) {
	a := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 2, 8, 0, 0, 5_000_000, time.FixedZone("BRT", -3*3600))

	sa, sb := FormatISO(a), FormatISO(b)
	assert.Equal(t, "2024-01-02T08:00:00.000Z", sa)
	assert.Equal(t, "2024-01-02T11:00:00.005Z", sb)
	assert.Len(t, sb, len(ISOLayout))
	assert.Less(t, sa, sb)
}

func TestParseISO_RoundTripsNormalized(t *testing.T) {
	orig := Normalize(time.Date(2024, 5, 6, 7, 8, 9, 123_456_789, time.Local))

	got, err := ParseISO(FormatISO(orig))
	require.NoError(t, err)
	assert.Equal(t, orig, got)

	got, err = ParseISO("2024-05-06T07:08:09.5+02:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06T05:08:09.500Z", FormatISO(got))

	_, err = ParseISO("yesterday")
	require.Error(t, err)
}
