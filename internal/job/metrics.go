package job

import (
	"fmt"
	"strings"

	"dqx/internal/config"
	"dqx/internal/metrics"
	"dqx/internal/metrics/datadog"
	"dqx/internal/metrics/prompush"

	"github.com/sirupsen/logrus"
)

// DefaultDatadogAddr is the local DogStatsD agent.
const DefaultDatadogAddr = "127.0.0.1:8125"

// SetupMetrics installs the backend named by m and returns a function that
// flushes it. Unknown or disabled backends leave the no-op backend in place;
// the returned flush is always safe to call.
func SetupMetrics(m config.Metrics, job string, log logrus.FieldLogger) (flush func(), err error) {
	if job == "" {
		job = "dqx"
	}
	var b metrics.Backend
	switch strings.ToLower(m.Backend) {
	case "", "none":
		log.WithField("backend", m.Backend).Debug("metrics disabled")
		return func() {}, nil
	case "prometheus":
		b, err = prompush.NewBackend(job, m.PushgatewayURL)
	case "datadog":
		addr := m.DatadogAddr
		if addr == "" {
			addr = DefaultDatadogAddr
		}
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "dqx.",
			GlobalTags: []string{"job:" + job},
		})
	default:
		log.WithField("backend", m.Backend).Warn("unknown metrics backend; metrics disabled")
		return func() {}, nil
	}
	if err != nil {
		return func() {}, fmt.Errorf("metrics %s: %w", m.Backend, err)
	}

	metrics.SetBackend(b)
	log.WithField("backend", m.Backend).Info("metrics enabled")
	return func() {
		if err := metrics.Flush(); err != nil {
			log.WithError(err).Warn("metrics flush failed")
		}
	}, nil
}
