package registry

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"plugind/internal/discovery"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultConcurrency = 1
)

// Config encapsulates all tunables for Registry construction.
type Config struct {
	Source discovery.Source
	// Roots is the ordered, non-empty list of discovery roots.
	Roots []string
	// Concurrency bounds how many plugins one dispatch invokes in parallel.
	// Values <= 1 dispatch sequentially in discovery order.
	Concurrency int
	// Suspended starts the registry with dispatch turned off.
	Suspended bool
	Logger    *zerolog.Logger
	Publisher EventPublisher
}

// NewWithConfig validates cfg and constructs an empty Registry. Call Reload to
// run the first discovery pass.
func NewWithConfig(cfg Config) (*Registry, error) {
	if cfg.Source == nil {
		return nil, &ConfigurationError{Field: "source", Value: nil, Msg: "a discovery source is required"}
	}
	if len(cfg.Roots) == 0 {
		return nil, &ConfigurationError{Field: "roots", Value: cfg.Roots, Msg: "at least one discovery root is required"}
	}
	roots := make([]string, 0, len(cfg.Roots))
	for _, r := range cfg.Roots {
		if strings.TrimSpace(r) == "" {
			return nil, &ConfigurationError{Field: "roots", Value: cfg.Roots, Msg: "discovery roots must not be empty"}
		}
		roots = append(roots, r)
	}
	r := &Registry{
		source:      cfg.Source,
		roots:       roots,
		concurrency: cfg.Concurrency,
		suspended:   cfg.Suspended,
		gen:         &generation{index: map[string]*entry{}},
		created:     time.Now(),
		pub:         cfg.Publisher,
	}
	if r.concurrency <= 0 {
		r.concurrency = defaultConcurrency
	}
	if cfg.Logger != nil {
		r.log = *cfg.Logger
	} else {
		r.log = zerolog.Nop()
	}
	if r.pub == nil {
		r.pub = noopPublisher{}
	}
	return r, nil
}
