package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTrackArgs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    trackArgs
		wantErr bool
	}{
		{
			name: "url and interval",
			raw:  "https://example.com/releases 30",
			want: trackArgs{url: "https://example.com/releases", interval: 30 * time.Minute},
		},
		{
			name: "night mode",
			raw:  "https://example.com 45 night",
			want: trackArgs{url: "https://example.com", interval: 45 * time.Minute, night: true},
		},
		{
			name: "night keyword is case-insensitive",
			raw:  "https://example.com 45 NIGHT",
			want: trackArgs{url: "https://example.com", interval: 45 * time.Minute, night: true},
		},
		{
			name: "third argument other than night is ignored",
			raw:  "https://example.com 45 day",
			want: trackArgs{url: "https://example.com", interval: 45 * time.Minute},
		},
		{
			name:    "missing interval",
			raw:     "https://example.com",
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "non-numeric interval",
			raw:     "https://example.com soon",
			wantErr: true,
		},
		{
			name:    "zero interval",
			raw:     "https://example.com 0",
			wantErr: true,
		},
		{
			name:    "negative interval",
			raw:     "https://example.com -5",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTrackArgs(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, errUsage)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseURLArg(t *testing.T) {
	url, err := parseURLArg("  https://example.com  ")
	assert.NoError(t, err)
	assert.Equal(t, "https://example.com", url)

	_, err = parseURLArg("")
	assert.ErrorIs(t, err, errUsage)

	_, err = parseURLArg("https://a.example https://b.example")
	assert.ErrorIs(t, err, errUsage)
}

func TestParseIDArg(t *testing.T) {
	id, err := parseIDArg("12345")
	assert.NoError(t, err)
	assert.Equal(t, int64(12345), id)

	// Channel IDs are negative.
	id, err = parseIDArg("-1001234567890")
	assert.NoError(t, err)
	assert.Equal(t, int64(-1001234567890), id)

	for _, raw := range []string{"", "abc", "0", "1 2"} {
		_, err := parseIDArg(raw)
		assert.ErrorIs(t, err, errUsage, "input %q", raw)
	}
}
