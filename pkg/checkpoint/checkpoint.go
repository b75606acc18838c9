// Package checkpoint stores the topological feature tables of a run so
// feature extraction can be skipped when a detection is repeated.
package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-anomaly/pkg/features"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
)

// Checkpoint object names.
const (
	TrainFile = "train_topological_features.csv"
	TestFile  = "test_topological_features.csv"

	// CompressedSuffix marks snappy-compressed objects.
	CompressedSuffix = ".sz"
)

// Checkpoint reads and writes the train and test feature tables.
type Checkpoint struct {
	store    Store
	compress bool
	logger   logging.Logger
}

// Option configures a Checkpoint.
type Option func(*Checkpoint)

// WithCompression stores tables snappy-compressed under a ".sz" suffix.
func WithCompression(on bool) Option {
	return func(c *Checkpoint) { c.compress = on }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Checkpoint) { c.logger = l }
}

// New creates a checkpoint on store.
func New(store Store, opts ...Option) *Checkpoint {
	c := &Checkpoint{store: store}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDefault(c.logger).With(logging.Component("checkpoint"))
	return c
}

func (c *Checkpoint) objectName(name string) string {
	if c.compress {
		return name + CompressedSuffix
	}
	return name
}

func (c *Checkpoint) otherName(name string) string {
	if c.compress {
		return name
	}
	return name + CompressedSuffix
}

// Save writes both tables.
func (c *Checkpoint) Save(ctx context.Context, train, test *features.Table) error {
	if err := c.put(ctx, TrainFile, train); err != nil {
		return err
	}
	return c.put(ctx, TestFile, test)
}

func (c *Checkpoint) put(ctx context.Context, name string, t *features.Table) error {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	data := buf.Bytes()
	if c.compress {
		data = snappy.Encode(nil, data)
	}

	object := c.objectName(name)
	if err := c.store.Put(ctx, object, data); err != nil {
		return err
	}
	// The other form is now stale and must not shadow this one on Load.
	if err := c.store.Delete(ctx, c.otherName(name)); err != nil {
		return err
	}
	c.logger.Info("checkpoint saved",
		logging.Path(c.store.Location(object)),
		logging.Count(t.Len()),
		logging.Int("bytes", len(data)))
	return nil
}

// Load reads both tables. Either form of each object is accepted, with the
// configured form tried first.
func (c *Checkpoint) Load(ctx context.Context) (train, test *features.Table, err error) {
	if train, err = c.get(ctx, TrainFile); err != nil {
		return nil, nil, err
	}
	if test, err = c.get(ctx, TestFile); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

func (c *Checkpoint) get(ctx context.Context, name string) (*features.Table, error) {
	candidates := []string{name + CompressedSuffix, name}
	if !c.compress {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}

	for _, object := range candidates {
		data, err := c.store.Get(ctx, object)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if object != name {
			if data, err = snappy.Decode(nil, data); err != nil {
				return nil, fmt.Errorf("failed to decompress %s: %w", c.store.Location(object), err)
			}
		}
		t, err := features.ReadCSV(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", c.store.Location(object), err)
		}
		c.logger.Info("checkpoint loaded", logging.Path(c.store.Location(object)), logging.Count(t.Len()))
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, c.store.Location(c.objectName(name)))
}

// Exists reports whether both tables are present in either form.
func (c *Checkpoint) Exists(ctx context.Context) (bool, error) {
	for _, name := range []string{TrainFile, TestFile} {
		found := false
		for _, object := range []string{name, name + CompressedSuffix} {
			ok, err := c.store.Exists(ctx, object)
			if err != nil {
				return false, err
			}
			if ok {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}
