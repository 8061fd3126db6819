// Package embedding turns chunk texts into fixed-dimension unit vectors.
//
// The package fronts an expensive model with a Gateway: the model is
// constructed lazily on first use, shared by all callers, and can be torn
// down and rebuilt with Reset. Requests are split into bounded batches so a
// large ingestion never produces one oversized model call.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/aggroso/knowspace/distance"
	"github.com/aggroso/knowspace/index"
)

// Model computes embedding vectors for texts. Implementations must return
// one vector per input text, in input order.
type Model interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// ModelCloser is an optional extension for models holding releasable
// resources.
type ModelCloser interface {
	Model
	Close() error
}

// ModelFactory constructs the model on first use.
type ModelFactory func(ctx context.Context) (Model, error)

const (
	// DefaultBatchSize bounds how many texts go into one model call.
	DefaultBatchSize = 32

	// DefaultConcurrency bounds how many batches are in flight at once.
	DefaultConcurrency = 4
)

// Options contains configuration options for the gateway.
type Options struct {
	// BatchSize bounds the number of texts per model call.
	BatchSize int

	// Concurrency bounds the number of concurrent model calls.
	Concurrency int

	// RateLimit caps model calls per second. Zero means unlimited.
	RateLimit rate.Limit

	// Normalize scales every returned vector to unit length.
	Normalize bool

	// Logger receives operational events.
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	BatchSize:   DefaultBatchSize,
	Concurrency: DefaultConcurrency,
	Normalize:   true,
}

// Gateway is the shared entry point to the embedding model.
//
// It is safe for concurrent use. The underlying model is created at most
// once between resets.
type Gateway struct {
	factory ModelFactory
	opts    Options
	logger  *slog.Logger
	limiter *rate.Limiter

	mu       sync.Mutex
	initOnce *sync.Once
	model    Model
	initErr  error
}

// NewGateway creates a gateway around a model factory.
func NewGateway(factory ModelFactory, optFns ...func(o *Options)) (*Gateway, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if factory == nil {
		return nil, fmt.Errorf("embedding: model factory is required")
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("embedding: batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.Concurrency <= 0 {
		return nil, fmt.Errorf("embedding: concurrency must be positive, got %d", opts.Concurrency)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(opts.RateLimit, 1)
	}

	return &Gateway{
		factory:  factory,
		opts:     opts,
		logger:   logger,
		limiter:  limiter,
		initOnce: new(sync.Once),
	}, nil
}

// acquire returns the shared model, constructing it on first call.
// A failed construction is sticky until Reset.
func (g *Gateway) acquire(ctx context.Context) (Model, error) {
	g.mu.Lock()
	once := g.initOnce
	g.mu.Unlock()

	once.Do(func() {
		model, err := g.factory(ctx)
		g.mu.Lock()
		g.model, g.initErr = model, err
		g.mu.Unlock()
		if err != nil {
			g.logger.Error("embedding model initialization failed", "error", err)
			return
		}
		g.logger.Info("embedding model initialized", "dimension", model.Dimension())
	})

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.model, g.initErr
}

// Reset tears down the model. The next embed call constructs a fresh one.
func (g *Gateway) Reset() error {
	g.mu.Lock()
	model := g.model
	g.model, g.initErr = nil, nil
	g.initOnce = new(sync.Once)
	g.mu.Unlock()

	if closer, ok := model.(ModelCloser); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("close embedding model: %w", err)
		}
	}
	return nil
}

// Dimension returns the model's output dimensionality, constructing the
// model if needed.
func (g *Gateway) Dimension(ctx context.Context) (int, error) {
	model, err := g.acquire(ctx)
	if err != nil {
		return 0, err
	}
	return model.Dimension(), nil
}

// Embed returns one vector per text, in input order. Texts are processed in
// batches of at most BatchSize, with at most Concurrency batches in flight.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	model, err := g.acquire(ctx)
	if err != nil {
		return nil, err
	}
	dim := model.Dimension()

	vectors := make([][]float32, len(texts))

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.opts.Concurrency)

	for start := 0; start < len(texts); start += g.opts.BatchSize {
		end := min(start+g.opts.BatchSize, len(texts))
		start, end := start, end

		grp.Go(func() error {
			if g.limiter != nil {
				if err := g.limiter.Wait(ctx); err != nil {
					return err
				}
			}

			batch, err := model.Encode(ctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("encode batch [%d:%d]: %w", start, end, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("encode batch [%d:%d]: got %d vectors for %d texts", start, end, len(batch), end-start)
			}

			for i, v := range batch {
				if len(v) != dim {
					return &index.ErrDimensionMismatch{Expected: dim, Actual: len(v)}
				}
				if g.opts.Normalize {
					normalized, ok := distance.NormalizeL2Copy(v)
					if !ok {
						return fmt.Errorf("text %d: %w", start+i, index.ErrZeroVector)
					}
					v = normalized
				}
				vectors[start+i] = v
			}
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// EmbedOne embeds a single text.
func (g *Gateway) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
