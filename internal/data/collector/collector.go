package collector

import (
	"context"
	"fmt"

	"github.com/songzhibin97/memeflux/internal/models"
)

// MultiSourceCollector implements DataCollector by merging several token sources
type MultiSourceCollector struct {
	sources []DataSource
	logger  Logger
	warn    WarnFunc
}

type Logger interface {
	Warn(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
}

// WarnFunc receives a partial upstream failure for operator notification.
type WarnFunc func(ctx context.Context, source string, err error)

type DataSource interface {
	Name() string
	// CollectTokens returns what could be fetched plus one error per failed unit of work.
	CollectTokens(ctx context.Context) ([]models.TokenData, []error)
}

func NewMultiSourceCollector(sources []DataSource, logger Logger) *MultiSourceCollector {
	return &MultiSourceCollector{
		sources: sources,
		logger:  logger,
		warn:    func(context.Context, string, error) {},
	}
}

// OnWarning registers a callback for partial failures.
func (c *MultiSourceCollector) OnWarning(fn WarnFunc) *MultiSourceCollector {
	if fn != nil {
		c.warn = fn
	}
	return c
}

// CollectTokens implements DataCollector interface. Sources are queried in order and the
// first record seen for an address wins.
func (c *MultiSourceCollector) CollectTokens(ctx context.Context) ([]models.TokenData, error) {
	seen := make(map[string]struct{})
	var out []models.TokenData

	for _, source := range c.sources {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		tokens, errs := source.CollectTokens(ctx)
		for _, err := range errs {
			c.logger.Warn("token source partial failure", "source", source.Name(), "error", err)
			c.warn(ctx, source.Name(), err)
		}

		added := 0
		for _, t := range tokens {
			if t.Address == "" {
				continue
			}
			if _, dup := seen[t.Address]; dup {
				continue
			}
			seen[t.Address] = struct{}{}
			out = append(out, t)
			added++
		}
		c.logger.Info("collected tokens", "source", source.Name(), "fetched", len(tokens), "added", added)
	}

	if len(out) == 0 && len(c.sources) == 0 {
		return nil, fmt.Errorf("no token sources configured")
	}
	return out, nil
}
