// Package pipeline orchestrates the full download flows: verify the login,
// build or load the catalog, then process items one by one (articles, Q&A)
// or in browser-driven waves (unlock).
package pipeline

import (
	"sync"

	"articlegrab/pkg/config"
	"articlegrab/pkg/logger"
	"articlegrab/pkg/render"
	"articlegrab/pkg/site"
)

// Summary is the outcome of one run.
type Summary struct {
	Total   int
	Done    int
	Failed  int
	Skipped int
	Locked  int
}

// Runner owns the shared pieces of every flow.
type Runner struct {
	cfg    *config.Config
	client *site.Client
	logger logger.Logger

	mu       sync.Mutex
	state    State
	renderer render.Renderer
}

// NewRunner builds a runner from the config.
func NewRunner(cfg *config.Config, log logger.Logger) (*Runner, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	client, err := site.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:    cfg,
		client: client,
		logger: log,
		state:  StateInit,
	}, nil
}

// SetRenderer injects a renderer for the unlock flow. When unset, RunUnlock
// launches a browser itself.
func (r *Runner) SetRenderer(rd render.Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderer = rd
}

func (r *Runner) getRenderer() render.Renderer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renderer
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	prev := r.state
	r.state = s
	r.mu.Unlock()
	r.logger.WithFields(map[string]interface{}{
		"from": prev.String(),
		"to":   s.String(),
	}).Debug("state change")
}

// State is the runner's current phase.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
