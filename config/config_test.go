package config

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation_ConcurrentAccess(t *testing.T) {
	cfg := &Config{TimeZone: "America/New_York"}

	// Batch polls resolve publish dates from several goroutines at
	// once; all must observe the same resolved zone.
	results := make([]*time.Location, 5)
	var wg sync.WaitGroup
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = cfg.Location()
		}()
	}
	wg.Wait()

	want, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestLocation_Resolution(t *testing.T) {
	for _, tc := range []struct {
		name     string
		timeZone string
		want     string
	}{
		{name: "named zone", timeZone: "America/New_York", want: "America/New_York"},
		{name: "unset falls back to UTC", timeZone: "", want: "UTC"},
		{name: "unknown falls back to UTC", timeZone: "Mars/Olympus_Mons", want: "UTC"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{TimeZone: tc.timeZone}
			assert.Equal(t, tc.want, cfg.Location().String())
		})
	}
}

func TestParseCreds(t *testing.T) {
	cfg := &Config{BasicAuthCreds: "jo:hunter2, ada:lovelace"}
	creds, err := cfg.parseCreds()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"jo": "hunter2", "ada": "lovelace"}, creds)
}

func TestParseCreds_Malformed(t *testing.T) {
	cfg := &Config{BasicAuthCreds: "jo-hunter2"}
	_, err := cfg.parseCreds()
	assert.Error(t, err)
}
