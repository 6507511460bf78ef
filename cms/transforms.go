package cms

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wudi/queconverter/cmm"
	"github.com/wudi/queconverter/observability"
)

// TransformKey identifies a cached transform.
type TransformKey struct {
	In     cmm.ColorSpace
	Out    cmm.ColorSpace
	Intent cmm.RenderingIntent
	Flags  cmm.Flags
}

func (k TransformKey) String() string {
	return fmt.Sprintf("%v->%v/%v/%#x", k.In, k.Out, k.Intent, uint32(k.Flags))
}

// ProofParams configures the soft-proofing transform of one input space.
// The proof profile is always the CMYK profile.
type ProofParams struct {
	// UseDisplayProfile selects the display profile as the output profile.
	// Without it, or without a configured display profile, RGB is used.
	UseDisplayProfile bool
	ProofIntent       cmm.RenderingIntent
	OutputIntent      cmm.RenderingIntent
	Flags             cmm.Flags
	Alarm             cmm.AlarmCodes
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Entries      int
	ProofEntries int
	Hits         int64
	Misses       int64
	Creations    int64
	Evictions    int64
}

// TransformCache creates each transform at most once and hands out the same
// handle until it is invalidated. Evicted handles are released.
type TransformCache struct {
	profiles *ProfileStore
	factory  cmm.Factory
	logger   observability.Logger
	tracer   observability.Tracer

	mu         sync.Mutex
	transforms map[TransformKey]cmm.Transform
	proofs     map[cmm.ColorSpace]cmm.Transform
	gen        uint64

	group singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	creations atomic.Int64
	evictions atomic.Int64
}

// NewTransformCache returns an empty cache creating transforms from the
// profiles in store.
func NewTransformCache(store *ProfileStore, f cmm.Factory, logger observability.Logger, tracer observability.Tracer) *TransformCache {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	return &TransformCache{
		profiles:   store,
		factory:    f,
		logger:     logger,
		tracer:     tracer,
		transforms: make(map[TransformKey]cmm.Transform),
		proofs:     make(map[cmm.ColorSpace]cmm.Transform),
	}
}

// profileFor returns the profile used for space. Display falls back to the
// RGB profile when no display profile is configured.
func (c *TransformCache) profileFor(space cmm.ColorSpace) (cmm.Profile, error) {
	if space == cmm.Display && !c.profiles.Has(cmm.Display) {
		return c.profiles.Get(cmm.RGB)
	}
	return c.profiles.Get(space)
}

func (c *TransformCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Get returns the transform for key, creating it on first use. Concurrent
// first uses of the same key share one creation.
func (c *TransformCache) Get(ctx context.Context, key TransformKey) (cmm.Transform, error) {
	if key.In == cmm.Spot || key.Out == cmm.Spot || !key.In.Valid() || !key.Out.Valid() {
		return nil, fmt.Errorf("%w: no transform %v", ErrUnsupportedTarget, key)
	}
	for {
		c.mu.Lock()
		t, ok := c.transforms[key]
		gen := c.gen
		c.mu.Unlock()
		if ok {
			c.hits.Add(1)
			return t, nil
		}
		c.misses.Add(1)

		v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
			c.mu.Lock()
			if t, ok := c.transforms[key]; ok {
				c.mu.Unlock()
				return t, nil
			}
			c.mu.Unlock()
			return c.create(ctx, key, gen)
		})
		if err != nil {
			return nil, err
		}
		if t, ok := v.(cmm.Transform); ok && t != nil {
			return t, nil
		}
		// Invalidated while creating; start over with the new profiles.
	}
}

func (c *TransformCache) create(ctx context.Context, key TransformKey, gen uint64) (cmm.Transform, error) {
	_, span := c.tracer.StartSpan(ctx, observability.SpanTransformCreate)
	defer span.Finish()
	span.SetTag("key", key.String())

	start := time.Now()
	src, err := c.profileFor(key.In)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	dst, err := c.profileFor(key.Out)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	t, err := c.factory.NewTransform(src, key.In, dst, key.Out, key.Intent, key.Flags)
	if err != nil {
		if errors.Is(err, cmm.ErrReleased) && c.generation() != gen {
			return nil, nil
		}
		span.SetError(err)
		return nil, engineError("create", key.In, key.Out, err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		t.Release()
		return nil, nil
	}
	c.transforms[key] = t
	c.mu.Unlock()

	c.creations.Add(1)
	c.logger.Debug("transform created",
		observability.String("key", key.String()),
		observability.String("src", src.Name()),
		observability.String("dst", dst.Name()),
		observability.Duration("took", time.Since(start)))
	return t, nil
}

// GetProof returns the soft-proofing transform from in to Display.
func (c *TransformCache) GetProof(ctx context.Context, in cmm.ColorSpace, params ProofParams) (cmm.Transform, error) {
	if !HasBuiltin(in) {
		return nil, fmt.Errorf("%w: no proofing transform from %v", ErrUnsupportedTarget, in)
	}
	for {
		c.mu.Lock()
		t, ok := c.proofs[in]
		gen := c.gen
		c.mu.Unlock()
		if ok {
			c.hits.Add(1)
			return t, nil
		}
		c.misses.Add(1)

		v, err, _ := c.group.Do("proof:"+in.String(), func() (interface{}, error) {
			c.mu.Lock()
			if t, ok := c.proofs[in]; ok {
				c.mu.Unlock()
				return t, nil
			}
			c.mu.Unlock()
			return c.createProof(ctx, in, params, gen)
		})
		if err != nil {
			return nil, err
		}
		if t, ok := v.(cmm.Transform); ok && t != nil {
			return t, nil
		}
	}
}

func (c *TransformCache) createProof(ctx context.Context, in cmm.ColorSpace, params ProofParams, gen uint64) (cmm.Transform, error) {
	_, span := c.tracer.StartSpan(ctx, observability.SpanProofCreate)
	defer span.Finish()
	span.SetTag("in", in.String())

	src, err := c.profileFor(in)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	proof, err := c.profiles.Get(cmm.CMYK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	out := cmm.RGB
	if params.UseDisplayProfile && c.profiles.Has(cmm.Display) {
		out = cmm.Display
	}
	dst, err := c.profiles.Get(out)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	t, err := c.factory.NewProofingTransform(src, in, dst, cmm.Display, proof,
		params.ProofIntent, params.OutputIntent, params.Flags, params.Alarm)
	if err != nil {
		if errors.Is(err, cmm.ErrReleased) && c.generation() != gen {
			return nil, nil
		}
		span.SetError(err)
		return nil, engineError("proof", in, cmm.Display, err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		t.Release()
		return nil, nil
	}
	c.proofs[in] = t
	c.mu.Unlock()

	c.creations.Add(1)
	c.logger.Debug("proofing transform created",
		observability.String("in", in.String()),
		observability.String("proof", proof.Name()),
		observability.String("dst", dst.Name()))
	return t, nil
}

// InvalidateAll evicts every transform.
func (c *TransformCache) InvalidateAll() {
	c.InvalidateWhere(func(TransformKey) bool { return true }, true)
}

// InvalidateSpace evicts the transforms that depend on the profile of space.
func (c *TransformCache) InvalidateSpace(space cmm.ColorSpace) {
	// Display borrows the RGB profile while it has none of its own.
	display := space == cmm.RGB && !c.profiles.Has(cmm.Display)
	match := func(k TransformKey) bool {
		if k.In == space || k.Out == space {
			return true
		}
		return display && (k.In == cmm.Display || k.Out == cmm.Display)
	}

	c.mu.Lock()
	var evicted []cmm.Transform
	for k, t := range c.transforms {
		if match(k) {
			evicted = append(evicted, t)
			delete(c.transforms, k)
		}
	}
	for in, t := range c.proofs {
		switch {
		case in == space, space == cmm.CMYK, space == cmm.RGB, space == cmm.Display:
			evicted = append(evicted, t)
			delete(c.proofs, in)
		}
	}
	c.gen++
	c.mu.Unlock()
	c.release(evicted, "space", space.String())
}

// InvalidateProof evicts the soft-proofing transforms.
func (c *TransformCache) InvalidateProof() {
	c.InvalidateWhere(func(TransformKey) bool { return false }, true)
}

// InvalidateWhere evicts the transforms whose key matches and, when proofs is
// set, all soft-proofing transforms.
func (c *TransformCache) InvalidateWhere(match func(TransformKey) bool, proofs bool) {
	c.mu.Lock()
	var evicted []cmm.Transform
	for k, t := range c.transforms {
		if match(k) {
			evicted = append(evicted, t)
			delete(c.transforms, k)
		}
	}
	if proofs {
		for in, t := range c.proofs {
			evicted = append(evicted, t)
			delete(c.proofs, in)
		}
	}
	c.gen++
	c.mu.Unlock()
	c.release(evicted, "proofs", fmt.Sprint(proofs))
}

func (c *TransformCache) release(evicted []cmm.Transform, key, value string) {
	for _, t := range evicted {
		t.Release()
	}
	if len(evicted) == 0 {
		return
	}
	c.evictions.Add(int64(len(evicted)))
	c.logger.Debug("transforms invalidated",
		observability.String(key, value),
		observability.Int("count", len(evicted)))
}

// Len returns the number of cached transforms, proofs included.
func (c *TransformCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.transforms) + len(c.proofs)
}

// Contains reports whether key has a cached transform.
func (c *TransformCache) Contains(key TransformKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.transforms[key]
	return ok
}

// HasProof reports whether in has a cached soft-proofing transform.
func (c *TransformCache) HasProof(in cmm.ColorSpace) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.proofs[in]
	return ok
}

// Stats returns a snapshot of the cache counters.
func (c *TransformCache) Stats() CacheStats {
	c.mu.Lock()
	entries, proofs := len(c.transforms), len(c.proofs)
	c.mu.Unlock()
	return CacheStats{
		Entries:      entries,
		ProofEntries: proofs,
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Creations:    c.creations.Load(),
		Evictions:    c.evictions.Load(),
	}
}
