package sampler

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/samplemv"

	"cosmofit/backend"
	"cosmofit/buffer"
	"cosmofit/rand"
)

// Ensemble runs one independent Metropolis-Hastings chain per walker against
// a shared checkpoint store. Each walker gets its own target instance so
// targets that mutate internal state (a cosmology model mid-evaluation) need
// no locking.
type Ensemble struct {
	targets []Target
	store   *backend.Backend
	log     *zap.Logger
	opts    Options
}

// NewEnsemble creates an ensemble of len(targets) walkers.
func NewEnsemble(targets []Target, store *backend.Backend, log *zap.Logger, opts ...Option) (*Ensemble, error) {
	if len(targets) < 1 {
		return nil, errors.Errorf("An ensemble needs at least one walker target")
	}
	if store == nil {
		return nil, errors.Errorf("An ensemble needs a backend store")
	}
	if log == nil {
		log = zap.NewNop()
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.CheckpointEvery < 1 {
		o.CheckpointEvery = 1
	}
	if o.Rate < 1 {
		o.Rate = 1
	}

	return &Ensemble{
		targets: targets,
		store:   store,
		log:     log,
		opts:    o,
	}, nil
}

// Walkers returns the walker count.
func (e *Ensemble) Walkers() int {
	return len(e.targets)
}

// Run advances every walker by steps stored samples, starting from pos0
// (one position per walker), appending to the backend as it goes. It blocks
// until all walkers finish; the first walker failure stops the run.
func (e *Ensemble) Run(pos0 [][]float64, steps int) error {
	if steps < 1 {
		return nil // nothing to do, matching a zero-sample request
	}
	if len(pos0) != len(e.targets) {
		return errors.Errorf("Have %d initial positions for %d walkers", len(pos0), len(e.targets))
	}

	ndim := len(pos0[0])
	if ndim < 1 {
		return errors.Errorf("Initial positions are empty")
	}
	for w, p := range pos0 {
		if len(p) != ndim {
			return errors.Errorf("Walker %d has %d coordinates, want %d", w, len(p), ndim)
		}
	}

	widths := e.opts.ProposalWidths
	if len(widths) != ndim {
		return errors.Errorf("Have %d proposal widths for %d dimensions", len(widths), ndim)
	}

	startStep, err := e.store.Steps()
	if err != nil {
		return errors.Wrap(err, "Could not determine resume step")
	}

	e.log.Info("Ensemble starting",
		zap.Int("walkers", len(e.targets)),
		zap.Int("ndim", ndim),
		zap.Int("steps", steps),
		zap.Int("startStep", startStep),
	)

	var wg sync.WaitGroup
	errCh := make(chan error, len(e.targets))

	for w := range e.targets {
		wg.Add(1)
		go func(walker int) {
			defer wg.Done()
			if err := e.runWalker(walker, pos0[walker], ndim, startStep, steps); err != nil {
				errCh <- errors.Wrapf(err, "Walker %d failed", walker)
			}
		}(w)
	}

	wg.Wait()
	close(errCh)

	// First failure wins; the other walkers already ran to completion
	for err := range errCh {
		return err
	}
	return nil
}

// runWalker advances a single chain, checkpointing every CheckpointEvery
// stored samples.
func (e *Ensemble) runWalker(walker int, start []float64, ndim, startStep, steps int) error {
	sigma := mat.NewSymDense(ndim, nil)
	for i, w := range e.opts.ProposalWidths {
		if w <= 0 {
			return errors.Errorf("Proposal width %f for dimension %d - widths must be positive", w, i)
		}
		sigma.SetSym(i, i, w*w)
	}

	propSrc := rand.NewSource(rand.WalkerSeed(e.opts.Seed, walker))
	proposal, ok := samplemv.NewProposalNormal(sigma, propSrc)
	if !ok {
		return errors.Errorf("Could not build a normal proposal - covariance is not positive definite")
	}

	// The kernel evaluates the target at every position it touches; keep
	// those evaluations so stored samples never need a model re-run.
	cache := &cachedTarget{
		inner: e.targets[walker],
		ring:  buffer.NewCircularEval(e.opts.CheckpointEvery*2 + 4),
	}

	kernelSrc := rand.NewSource(rand.WalkerSeed(e.opts.Seed+1, walker))

	current := make([]float64, ndim)
	copy(current, start)

	burnIn := e.opts.BurnIn
	if startStep > 0 {
		burnIn = 0 // resumed chains are already warm
	}

	done := 0
	for done < steps {
		batchLen := e.opts.CheckpointEvery
		if remain := steps - done; remain < batchLen {
			batchLen = remain
		}

		mh := samplemv.MetropolisHastingser{
			Initial:  current,
			Target:   cache,
			Proposal: proposal,
			Src:      kernelSrc,
			BurnIn:   burnIn,
			Rate:     e.opts.Rate,
		}
		burnIn = 0 // only the first batch burns in

		batch := mat.NewDense(batchLen, ndim, nil)
		mh.Sample(batch)

		for r := 0; r < batchLen; r++ {
			row := batch.RawRowView(r)
			lnp := cache.evaluate(row)

			step := startStep + done + r
			if err := e.store.Append(step, walker, row, lnp); err != nil {
				return err
			}
			if e.opts.Progress != nil {
				e.opts.Progress(walker, step, lnp)
			}
		}

		copy(current, batch.RawRowView(batchLen-1))
		done += batchLen
	}

	e.log.Debug("Walker finished", zap.Int("walker", walker), zap.Int("steps", steps))
	return nil
}

// cachedTarget remembers recent evaluations in a ring buffer.
type cachedTarget struct {
	inner Target
	ring  *buffer.CircularEval
}

// LogProb implements Target (and gonum's distmv.LogProber).
func (c *cachedTarget) LogProb(x []float64) float64 {
	lnp := c.inner.LogProb(x)
	c.ring.Add(x, lnp)
	return lnp
}

// evaluate returns the cached value when the kernel already computed it.
func (c *cachedTarget) evaluate(x []float64) float64 {
	if lnp, ok := c.ring.Lookup(x); ok {
		return lnp
	}
	return c.LogProb(x)
}
