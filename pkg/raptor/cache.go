package raptor

import (
	"log/slog"
	"sync"

	"transit_router/pkg/schedule"
)

// Compiler memoizes compiled data per schedule. Concurrent callers asking for
// the same schedule wait for a single compilation and share its result.
// Failed compilations are not remembered.
type Compiler struct {
	cfg    StaticConfig
	logger *slog.Logger

	mu    sync.Mutex
	cache map[*schedule.Schedule]*Data
}

// NewCompiler returns a compiler using cfg for every schedule.
func NewCompiler(cfg StaticConfig, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{cfg: cfg, logger: logger, cache: make(map[*schedule.Schedule]*Data)}
}

// Get returns the compiled data for sched, compiling it on first use.
func (c *Compiler) Get(sched *schedule.Schedule) (*Data, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.cache[sched]; ok {
		return d, nil
	}
	d, err := compile(sched, c.cfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.cache[sched] = d
	return d, nil
}
