package telemetry

import (
	"os"
	"sync"

	"github.com/grafana/pyroscope-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/leasegen/backend/internal/infrastructure/config"
)

// Profiler runs Pyroscope continuous profiling of CPU, heap and goroutines.
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	mu       sync.Mutex
	stopped  bool
}

// NewProfiler starts profiling when cfg.ProfilingEnabled is set and
// returns a no-op profiler otherwise.
func NewProfiler(cfg config.TelemetryConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger}

	if !cfg.ProfilingEnabled {
		logger.Info("Continuous profiling disabled")
		return p, nil
	}
	if cfg.ProfilingServer == "" {
		return nil, errors.New("profiling server address is required when profiling is enabled")
	}
	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required when profiling is enabled")
	}

	tags := map[string]string{}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		tags["hostname"] = hostname
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.ProfilingServer,
		Logger:          pyroscopeLogger{logger.Named("pyroscope").Sugar()},
		Tags:            tags,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "start pyroscope profiler")
	}
	p.profiler = profiler

	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.ProfilingServer),
		zap.String("application_name", cfg.ServiceName),
	)
	return p, nil
}

// Stop flushes pending profiles. It is safe to call more than once.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true

	if p.profiler == nil {
		return nil
	}
	if err := p.profiler.Stop(); err != nil {
		return errors.Wrap(err, "stop profiler")
	}
	p.logger.Info("Pyroscope profiler stopped")
	return nil
}

func (p *Profiler) IsEnabled() bool {
	return p.profiler != nil
}

// pyroscopeLogger satisfies pyroscope.Logger through the sugared methods.
type pyroscopeLogger struct {
	*zap.SugaredLogger
}
