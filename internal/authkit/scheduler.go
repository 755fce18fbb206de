package authkit

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"authkit-session/internal/common/logging"
)

// interval fires every d. cron's own @every rounds to whole seconds.
type interval time.Duration

func (i interval) Next(t time.Time) time.Time {
	return t.Add(time.Duration(i))
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keyValueFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, err, keyValueFields(keysAndValues)...)
}

func keyValueFields(keysAndValues []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Field{Key: fmt.Sprint(keysAndValues[i]), Value: keysAndValues[i+1]})
	}
	return fields
}

// scheduleAutomaticRefresh starts the background refresh check once. A tick
// is skipped while the previous one is still running.
func (c *Client) scheduleAutomaticRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || c.cron != nil {
		return
	}

	logger := cronLogger{logger: c.logger}
	c.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.cron.Schedule(interval(c.opts.autoRefreshInterval), cron.FuncJob(c.autoRefresh))
	c.cron.Start()

	c.logger.Debug("Automatic refresh scheduled",
		logging.Field{Key: "interval", Value: c.opts.autoRefreshInterval.String()},
	)
}

func (c *Client) autoRefresh() {
	if c.lifetime.Err() != nil {
		return
	}
	if !c.ShouldRefresh() || !c.opts.onBeforeAutoRefresh() {
		return
	}
	if _, err := c.RefreshSession(c.lifetime, ""); err != nil {
		c.logger.Debug("Automatic refresh failed", logging.Err(err))
	}
}
