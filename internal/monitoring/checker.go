package monitoring

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/competitor-research/internal/config"
	"github.com/sells-group/competitor-research/internal/metrics"
)

const defaultCheckInterval = 5 * time.Minute

// Checker evaluates task health on an interval. An alert is delivered when
// it starts firing or its subjects change, not on every tick, and a log line
// marks when it resolves.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig

	mu     sync.Mutex
	active map[AlertType]string
}

// NewChecker creates a background task health checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		active:    make(map[AlertType]string),
	}
}

// Run checks once immediately and then on every tick until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting task health checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
		zap.Int("stuck_after_mins", c.cfg.StuckAfterMins),
	)

	if ctx.Err() == nil {
		c.check(ctx, log)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("task health checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

// activeTypes returns the alert types firing as of the last check.
func (c *Checker) activeTypes() []AlertType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]AlertType, 0, len(c.active))
	for t := range c.active {
		out = append(out, t)
	}
	return out
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: failed to collect task health", zap.Error(err))
		return
	}
	metrics.StuckTasks.Set(float64(snap.TasksStuck))
	for _, st := range snap.Stuck {
		log.Warn("monitoring: task stuck",
			zap.String("task_id", st.ID),
			zap.String("company", st.Company),
			zap.Int("progress", st.Progress),
			zap.Time("updated_at", st.UpdatedAt),
		)
	}

	fresh := c.reconcile(c.alerter.Evaluate(snap), log)
	if len(fresh) == 0 {
		log.Debug("monitoring: no new alerts",
			zap.Int("tasks", snap.TasksTotal),
			zap.Float64("fail_rate", snap.FailRate),
		)
		return
	}

	sent := c.alerter.SendAlerts(ctx, fresh)
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_new", len(fresh)),
		zap.Int("alerts_sent", sent),
	)
}

// reconcile records the currently firing alerts and returns those that are
// new or whose subjects changed since the previous check.
func (c *Checker) reconcile(alerts []Alert, log *zap.Logger) []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	firing := make(map[AlertType]string, len(alerts))
	var fresh []Alert
	for _, a := range alerts {
		key := strings.Join(a.Subjects, ",")
		firing[a.Type] = key
		if prev, ok := c.active[a.Type]; ok && prev == key {
			continue
		}
		fresh = append(fresh, a)
	}

	for t := range c.active {
		if _, ok := firing[t]; !ok {
			log.Info("monitoring: alert resolved", zap.String("type", string(t)))
			metrics.AlertsFiring.WithLabelValues(string(t)).Set(0)
		}
	}
	for t := range firing {
		metrics.AlertsFiring.WithLabelValues(string(t)).Set(1)
	}
	c.active = firing
	return fresh
}
