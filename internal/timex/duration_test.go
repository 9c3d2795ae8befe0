package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type holder struct {
	TTL Duration `json:"ttl" yaml:"ttl"`
}

func TestDuration_JSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", in: `{"ttl":"30m"}`, want: 30 * time.Minute},
		{name: "nanoseconds", in: `{"ttl":1000000000}`, want: time.Second},
		{name: "bad string", in: `{"ttl":"soon"}`, wantErr: true},
		{name: "bool", in: `{"ttl":true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h holder
			err := json.Unmarshal([]byte(tt.in), &h)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.TTL.Duration)
		})
	}
}

func TestDuration_YAML(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", in: "ttl: 1h30m\n", want: 90 * time.Minute},
		{name: "nanoseconds", in: "ttl: 2000000000\n", want: 2 * time.Second},
		{name: "bad string", in: "ttl: later\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h holder
			err := yaml.Unmarshal([]byte(tt.in), &h)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.TTL.Duration)
		})
	}
}

func TestDuration_MarshalRoundTrip(t *testing.T) {
	b, err := json.Marshal(holder{TTL: Duration{Duration: 45 * time.Second}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ttl":"45s"}`, string(b))

	y, err := yaml.Marshal(holder{TTL: Duration{Duration: time.Minute}})
	require.NoError(t, err)
	assert.Equal(t, "ttl: 1m0s\n", string(y))
}
