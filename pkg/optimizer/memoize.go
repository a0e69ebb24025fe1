package optimizer

import (
	"context"

	"github.com/raykavin/paramwalk/pkg/logger"
)

// ScoreCache stores objective scores by ParameterSet.Key.
type ScoreCache interface {
	Get(key string) (float64, bool, error)
	Put(key string, score float64) error
}

// Memoize returns an objective that consults cache before calling obj and
// stores every successful score. Failures are never cached. Cache errors are
// logged and the objective is called directly.
func Memoize(obj Objective, cache ScoreCache, log logger.Logger) Objective {
	return &memoized{obj: obj, cache: cache, log: logger.OrNop(log)}
}

type memoized struct {
	obj   Objective
	cache ScoreCache
	log   logger.Logger
}

func (m *memoized) Evaluate(ctx context.Context, params ParameterSet) (float64, error) {
	key := params.Key()

	score, ok, err := m.cache.Get(key)
	if err != nil {
		m.log.WithError(err).Warnf("Score cache lookup failed for %s", key)
	} else if ok {
		return score, nil
	}

	score, err = m.obj.Evaluate(ctx, params)
	if err != nil {
		return score, err
	}

	if err := m.cache.Put(key, score); err != nil {
		m.log.WithError(err).Warnf("Score cache store failed for %s", key)
	}
	return score, nil
}

func (m *memoized) ConcurrencySafe() bool {
	return isConcurrencySafe(m.obj)
}
