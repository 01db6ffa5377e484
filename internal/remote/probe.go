package remote

import (
	"runtime"

	"go.uber.org/zap"

	"goflare.io/strata/internal/config"
)

// serverSide reports whether this process may open network connections to a cache server.
var serverSide = func() bool {
	return runtime.GOOS != "js" && runtime.GOOS != "wasip1"
}

// Probe decides once whether this process gets a remote tier. The result is
// Nop unless the deployment asks for one, the process is server-side and the
// client can be built.
func Probe(cfg *config.Config) Tier {
	logger := cfg.Logger

	if !cfg.RemoteEnabled() {
		logger.Info("Remote cache not requested, running local only",
			zap.String("environment", cfg.Environment))
		return Nop{}
	}

	if !serverSide() {
		logger.Info("Remote cache not supported on this platform, running local only",
			zap.String("goos", runtime.GOOS))
		return Nop{}
	}

	tier, err := NewRedis(cfg.Remote, cfg.ResilienceConfig, logger)
	if err != nil {
		logger.Warn("Remote cache client unavailable, running local only", zap.Error(err))
		return Nop{}
	}
	return tier
}
