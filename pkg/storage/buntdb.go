package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/buntdb"
)

const scoreIndex = "score_index"

// CachedScore is a stored objective score.
type CachedScore struct {
	Key       string    `json:"key"`
	Score     float64   `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScoreCache persists objective scores keyed by parameter set, so repeated
// evaluations of the same parameters are answered without re-running the
// objective. It is safe for concurrent use.
type ScoreCache struct {
	db        *buntdb.DB
	namespace string
}

// FromMemory creates an in-memory cache
func FromMemory(namespace string) (*ScoreCache, error) {
	return NewScoreCache(":memory:", namespace)
}

// FromFile creates a file-based cache
func FromFile(file, namespace string) (*ScoreCache, error) {
	return NewScoreCache(file, namespace)
}

// NewScoreCache opens a BuntDB backed cache. Keys are scoped by namespace so
// one file can hold scores of several objectives.
func NewScoreCache(sourceFile, namespace string) (*ScoreCache, error) {
	if namespace == "" {
		namespace = "default"
	}

	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	err = db.CreateIndex(scoreIndex+":"+namespace, namespace+":*", buntdb.IndexJSON("score"))
	if err != nil && !errors.Is(err, buntdb.ErrIndexExists) {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &ScoreCache{db: db, namespace: namespace}, nil
}

func (c *ScoreCache) key(key string) string {
	return c.namespace + ":" + key
}

// Get returns the cached score for key.
func (c *ScoreCache) Get(key string) (float64, bool, error) {
	var (
		entry CachedScore
		found bool
	)

	err := c.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(c.key(key))
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(value), &entry); err != nil {
			return fmt.Errorf("failed to unmarshal score: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return entry.Score, found, nil
}

// Put stores the score for key, replacing any previous value.
func (c *ScoreCache) Put(key string, score float64) error {
	return c.db.Update(func(tx *buntdb.Tx) error {
		content, err := json.Marshal(CachedScore{Key: key, Score: score, UpdatedAt: time.Now()})
		if err != nil {
			return fmt.Errorf("failed to marshal score: %w", err)
		}

		_, _, err = tx.Set(c.key(key), string(content), nil)
		if err != nil {
			return fmt.Errorf("failed to store score: %w", err)
		}
		return nil
	})
}

// Len returns the number of cached scores in the namespace.
func (c *ScoreCache) Len() (int, error) {
	count := 0
	err := c.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(c.namespace+":*", func(_, _ string) bool {
			count++
			return true
		})
	})
	return count, err
}

// Best returns up to n cached scores, highest first when maximize is set and
// lowest first otherwise.
func (c *ScoreCache) Best(n int, maximize bool) ([]CachedScore, error) {
	if n <= 0 {
		return nil, nil
	}
	scores := make([]CachedScore, 0, n)
	index := scoreIndex + ":" + c.namespace

	err := c.db.View(func(tx *buntdb.Tx) error {
		collect := func(_, value string) bool {
			var entry CachedScore
			if err := json.Unmarshal([]byte(value), &entry); err != nil {
				return true
			}
			scores = append(scores, entry)
			return len(scores) < n
		}

		if maximize {
			return tx.Descend(index, collect)
		}
		return tx.Ascend(index, collect)
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// Close releases the database.
func (c *ScoreCache) Close() error {
	return c.db.Close()
}
