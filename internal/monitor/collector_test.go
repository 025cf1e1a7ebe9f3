package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	sshtesting "github.com/rileyhilliard/hostwatch/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectorFixture struct {
	dialer    *sshtesting.MockDialer
	pool      *Pool
	cache     *Cache
	collector *Collector
	log       *logger.BufferLogger
}

func newCollectorFixture(setup func(*sshtesting.MockClient)) *collectorFixture {
	f := &collectorFixture{
		dialer: sshtesting.NewMockDialer(setup),
		log:    logger.NewBufferLogger(),
	}
	f.pool = NewPool(dialFunc(f.dialer), DefaultSettings(), f.log)
	f.cache = NewCache(DefaultCacheTTL)
	f.collector = NewCollector(f.pool, f.cache, DefaultSettings(), f.log)
	return f
}

func TestCollectorCollectsLinuxSample(t *testing.T) {
	f := newCollectorFixture(linuxHost("12.5", "40.2", "77"))

	sample, err := f.collector.Collect(context.Background(), 1, testCreds)
	require.NoError(t, err)
	assert.Equal(t, Sample{CPU: 12.5, RAM: 40.2, Disk: 77}, sample)

	cached, ok := f.cache.Get(1)
	assert.True(t, ok)
	assert.Equal(t, sample, cached)
}

func TestCollectorClampsAndDefaults(t *testing.T) {
	tests := []struct {
		name           string
		cpu, ram, disk string
		want           Sample
	}{
		{"over 100", "150", "50", "50", Sample{CPU: 100, RAM: 50, Disk: 50}},
		{"negative", "-5", "50", "50", Sample{CPU: 0, RAM: 50, Disk: 50}},
		{"garbage", "n/a", "50", "50", Sample{CPU: 0, RAM: 50, Disk: 50}},
		{"empty", "", "50", "50", Sample{CPU: 0, RAM: 50, Disk: 50}},
		{"nan", "NaN", "50", "50", Sample{CPU: 0, RAM: 50, Disk: 50}},
		{"all garbage", "x", "y", "z", Sample{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCollectorFixture(linuxHost(tt.cpu, tt.ram, tt.disk))

			sample, err := f.collector.Collect(context.Background(), 1, testCreds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sample)
			for _, r := range Resources {
				assert.GreaterOrEqual(t, sample.Value(r), 0.0)
				assert.LessOrEqual(t, sample.Value(r), 100.0)
			}
		})
	}
}

func TestCollectorLogsFailedMetric(t *testing.T) {
	f := newCollectorFixture(linuxHost("oops", "10", "10"))

	_, err := f.collector.Collect(context.Background(), 1, testCreds)
	require.NoError(t, err)
	assert.True(t, f.log.Contains("warn", "cpu metric failed"))
}

func TestCollectorServesFromCache(t *testing.T) {
	f := newCollectorFixture(linuxHost("10", "20", "30"))
	ctx := context.Background()

	_, err := f.collector.Collect(ctx, 1, testCreds)
	require.NoError(t, err)
	_, err = f.collector.Collect(ctx, 1, testCreds)
	require.NoError(t, err)

	client := f.dialer.Last()
	assert.Equal(t, 1, client.CallCount("vmstat"))
	assert.Equal(t, 0, client.CallCount(LivenessCommand), "cache hit never touches the pool")
}

func TestCollectorDetectsPlatformOncePerConnection(t *testing.T) {
	f := newCollectorFixture(linuxHost("10", "20", "30"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.collector.Collect(ctx, 1, testCreds)
		require.NoError(t, err)
		f.cache.Invalidate(1)
	}

	client := f.dialer.Last()
	assert.Equal(t, 1, f.dialer.Dials())
	assert.Equal(t, 1, client.CallCount("uname"))
	assert.Equal(t, 3, client.CallCount("vmstat"))
}

func TestCollectorIdleConnectionPolicy(t *testing.T) {
	f := newCollectorFixture(linuxHost("10", "20", "30"))
	clock := newFakeClock()
	f.pool.now = clock.Now
	f.cache.now = clock.Now
	ctx := context.Background()

	_, err := f.collector.Collect(ctx, 1, testCreds)
	require.NoError(t, err)

	// A sleep shorter than the idle timeout reuses the connection.
	clock.Advance(DefaultMinInterval)
	_, err = f.collector.Collect(ctx, 1, testCreds)
	require.NoError(t, err)
	assert.Equal(t, 1, f.dialer.Dials())

	// A full default base interval plus the cycle's own work exceeds the
	// default idle timeout, so the next cycle redials and detects again.
	clock.Advance(DefaultBaseInterval + time.Second)
	_, err = f.collector.Collect(ctx, 1, testCreds)
	require.NoError(t, err)
	assert.Equal(t, 2, f.dialer.Dials())
	assert.True(t, f.dialer.Clients()[0].IsClosed())
	assert.Equal(t, 1, f.dialer.Last().CallCount("uname"))
}

func TestCollectorUsesPlatformCommands(t *testing.T) {
	tests := []struct {
		name     string
		uname    string
		platform Platform
		marker   string
	}{
		{"linux", "Linux", PlatformLinux, "vmstat"},
		{"darwin", "Darwin", PlatformDarwin, "top -l"},
		{"windows", "Microsoft Windows [Version 10.0.19045.3803]", PlatformWindows, "Get-Counter"},
		{"unknown falls back to linux", "", PlatformLinux, "vmstat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCollectorFixture(func(c *sshtesting.MockClient) {
				c.SetPlatform(tt.uname)
			})

			_, err := f.collector.Collect(context.Background(), 1, testCreds)
			require.NoError(t, err)

			conn, _, err := f.pool.Acquire(context.Background(), 1, testCreds)
			require.NoError(t, err)
			assert.Equal(t, tt.platform, conn.Platform())
			assert.Equal(t, 1, f.dialer.Last().CallCount(tt.marker))
		})
	}
}

func TestCollectorRunsMetricsConcurrently(t *testing.T) {
	delay := 150 * time.Millisecond
	f := newCollectorFixture(func(c *sshtesting.MockClient) {
		c.SetCommandResponse("^vmstat", sshtesting.CommandResponse{Stdout: []byte("1"), Delay: delay})
		c.SetCommandResponse("^free", sshtesting.CommandResponse{Stdout: []byte("2"), Delay: delay})
		c.SetCommandResponse("^df -P", sshtesting.CommandResponse{Stdout: []byte("3"), Delay: delay})
	})

	start := time.Now()
	sample, err := f.collector.Collect(context.Background(), 1, testCreds)
	require.NoError(t, err)
	assert.Equal(t, Sample{CPU: 1, RAM: 2, Disk: 3}, sample)
	assert.Less(t, time.Since(start), 3*delay)
}

func TestCollectorPartialTimeout(t *testing.T) {
	f := newCollectorFixture(func(c *sshtesting.MockClient) {
		linuxHost("10", "20", "30")(c)
		c.SetCommandResponse("^vmstat", sshtesting.CommandResponse{Stdout: []byte("10"), Delay: time.Second})
	})
	f.collector.commandTimeout = 30 * time.Millisecond

	sample, err := f.collector.Collect(context.Background(), 1, testCreds)
	require.NoError(t, err)
	assert.Equal(t, Sample{CPU: 0, RAM: 20, Disk: 30}, sample)
	assert.Equal(t, 1, f.pool.Size())
}

func TestCollectorCommandExitErrorsDegradeToZero(t *testing.T) {
	failing := sshtesting.CommandResponse{ExitCode: 127, Stderr: []byte("command not found")}
	f := newCollectorFixture(func(c *sshtesting.MockClient) {
		c.SetCommandResponse("^vmstat", failing)
		c.SetCommandResponse("^free", failing)
		c.SetCommandResponse("^df -P", failing)
	})

	sample, err := f.collector.Collect(context.Background(), 1, testCreds)
	require.NoError(t, err)
	assert.Equal(t, Sample{}, sample)
	assert.Equal(t, 1, f.pool.Size())
}

func TestCollectorAllTransportFailures(t *testing.T) {
	lost := sshtesting.CommandResponse{Error: errors.New(errors.ErrConnection, "session closed", "")}
	f := newCollectorFixture(func(c *sshtesting.MockClient) {
		c.SetCommandResponse("^vmstat", lost)
		c.SetCommandResponse("^free", lost)
		c.SetCommandResponse("^df -P", lost)
	})

	_, err := f.collector.Collect(context.Background(), 1, testCreds)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCollection))
	assert.True(t, errors.HasCode(err, errors.ErrConnection))
	assert.Equal(t, 0, f.pool.Size())
	assert.True(t, f.dialer.Last().IsClosed())

	_, ok := f.cache.Get(1)
	assert.False(t, ok)
}

func TestCollectorAcquireFailure(t *testing.T) {
	f := newCollectorFixture(nil)
	f.dialer.SetErr(errors.New(errors.ErrConnection, "Can't reach host", ""))

	_, err := f.collector.Collect(context.Background(), 1, testCreds)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCollection))
	assert.True(t, errors.HasCode(err, errors.ErrConnection))
	_, ok := f.cache.Get(1)
	assert.False(t, ok)
}

func TestCollectorRecoversAfterBrokenConnection(t *testing.T) {
	f := newCollectorFixture(linuxHost("10", "20", "30"))
	ctx := context.Background()

	_, err := f.collector.Collect(ctx, 1, testCreds)
	require.NoError(t, err)
	f.dialer.Last().Break()
	f.cache.Invalidate(1)

	sample, err := f.collector.Collect(ctx, 1, testCreds)
	require.NoError(t, err)
	assert.Equal(t, 10.0, sample.CPU)
	assert.Equal(t, 2, f.dialer.Dials())
	assert.Equal(t, 1, f.dialer.Last().CallCount("uname"), "new connection is probed again")
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"42", 42, false},
		{" 42.5\n", 42.5, false},
		{"42%", 42, false},
		{"42,5", 42.5, false},
		{"17 extra", 17, false},
		{"250", 100, false},
		{"-1", 0, false},
		{"", 0, true},
		{"abc", 0, true},
		{"Inf", 0, true},
		{"NaN", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePercent(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
