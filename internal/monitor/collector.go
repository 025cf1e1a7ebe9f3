package monitor

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
)

// Collector gathers one Sample per call, going through the cache and the pool.
type Collector struct {
	pool           *Pool
	cache          *Cache
	commandTimeout time.Duration
	log            logger.Logger
}

// NewCollector creates a collector on top of pool and cache.
func NewCollector(pool *Pool, cache *Cache, settings Settings, log logger.Logger) *Collector {
	settings = settings.WithDefaults()
	if log == nil {
		log = logger.Noop()
	}
	return &Collector{
		pool:           pool,
		cache:          cache,
		commandTimeout: settings.CommandTimeout,
		log:            log,
	}
}

// metricResult is the outcome of one resource command.
type metricResult struct {
	value float64
	err   error
}

// Collect returns a fresh or cached sample for userID.
//
// A single failing metric reads as 0. The call only fails when no
// connection could be acquired or when every metric command failed at the
// transport level; in both cases the cache entry is dropped so the next
// cycle starts clean.
func (c *Collector) Collect(ctx context.Context, userID UserID, creds sshutil.Credentials) (Sample, error) {
	if sample, ok := c.cache.Get(userID); ok {
		return sample, nil
	}

	conn, fresh, err := c.pool.Acquire(ctx, userID, creds)
	if err != nil {
		c.cache.Invalidate(userID)
		return Sample{}, errors.WrapWithCode(err, errors.ErrCollection,
			fmt.Sprintf("Couldn't collect metrics from %s", creds.Host),
			"Monitoring stops until it is started again.")
	}

	commands := conn.Commands()
	if fresh || commands == nil {
		commands = c.detectCommands(ctx, conn)
		conn.SetCommands(commands)
	}

	results := c.runAll(ctx, conn, commands)

	var sample Sample
	transportFailures := 0
	for i, r := range Resources {
		res := results[i]
		if res.err != nil {
			c.log.Warn("user %d: %s metric failed: %s", userID, r, errors.Summary(res.err))
			if isTransportFailure(res.err) {
				transportFailures++
			}
			continue
		}
		sample = sample.With(r, res.value)
	}

	if transportFailures == len(Resources) {
		c.pool.Close(userID)
		c.cache.Invalidate(userID)
		return Sample{}, errors.WrapWithCode(results[0].err, errors.ErrCollection,
			fmt.Sprintf("Lost connection to %s while collecting metrics", creds.Host),
			"Check that the host is still up, then start monitoring again.")
	}

	c.pool.Return(userID)
	c.cache.Set(userID, sample)
	return sample, nil
}

// detectCommands probes the OS family once for a new connection.
func (c *Collector) detectCommands(ctx context.Context, conn *Conn) MetricCommandSet {
	probeCtx, cancel := context.WithTimeout(ctx, c.commandTimeout)
	defer cancel()

	out, err := conn.Run(probeCtx, PlatformDetectCommand)
	if err != nil {
		c.log.Warn("user %d: platform detection failed, assuming linux: %s", conn.UserID, errors.Summary(err))
		return CommandSetFor(PlatformUnknown)
	}
	platform := ParsePlatform(out)
	c.log.Debug("user %d: detected platform %s", conn.UserID, platform)
	return CommandSetFor(platform)
}

// runAll runs the resource commands concurrently, one goroutine each.
// Results are indexed like Resources.
func (c *Collector) runAll(ctx context.Context, conn *Conn, commands MetricCommandSet) []metricResult {
	results := make([]metricResult, len(Resources))
	var wg sync.WaitGroup

	for i, r := range Resources {
		wg.Add(1)
		go func(i int, r Resource) {
			defer wg.Done()

			cmdCtx, cancel := context.WithTimeout(ctx, c.commandTimeout)
			defer cancel()

			out, err := conn.Run(cmdCtx, commands.Command(r))
			if err != nil {
				results[i] = metricResult{err: err}
				return
			}
			v, err := ParsePercent(out)
			if err != nil {
				results[i] = metricResult{err: errors.WrapWithCode(err, errors.ErrExec,
					fmt.Sprintf("Unreadable %s output %q", r, out), "")}
				return
			}
			results[i] = metricResult{value: v}
		}(i, r)
	}

	wg.Wait()
	return results
}

// isTransportFailure reports whether err means the channel itself failed,
// as opposed to a command that ran and exited badly or printed garbage.
func isTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return true
	}
	return !errors.HasCode(err, errors.ErrExec)
}

// ParsePercent reads the first field of out as a percentage and clamps it to [0, 100].
// Accepts "42", "42.5", "42%" and "42,5".
func ParsePercent(out string) (float64, error) {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty output")
	}
	raw := strings.TrimSuffix(fields[0], "%")
	raw = strings.ReplaceAll(raw, ",", ".")

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	return ClampPercent(v), nil
}
