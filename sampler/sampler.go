// Package sampler advances an ensemble of Metropolis-Hastings walkers. The
// proposal and accept/reject mechanics are gonum's; this package owns only
// the glue: per-walker PRNG streams, checkpointing into the backend store,
// and recovering log-probabilities for the stored positions.
package sampler

// A Target is anything the walkers can sample from. It matches gonum's
// distmv.LogProber so a target plugs straight into the kernel.
type Target interface {
	LogProb(x []float64) float64
}

// Options tune one call to Ensemble.Run. They are the pass-through surface
// for the underlying kernel.
type Options struct {
	// ProposalWidths is the per-dimension Gaussian proposal standard
	// deviation. Required.
	ProposalWidths []float64

	// CheckpointEvery is how many accepted steps a walker takes between
	// backend writes.
	CheckpointEvery int

	// BurnIn steps are discarded at the start of a fresh run.
	BurnIn int

	// Rate keeps every Rate-th sample (thinning).
	Rate int

	// Seed is the base random seed; each walker derives its own stream.
	Seed int64

	// Progress, when set, is called for every stored sample.
	Progress func(walker, step int, lnprob float64)
}

// Option mutates Options.
type Option func(*Options)

// WithProposalWidths sets the per-dimension proposal standard deviations.
func WithProposalWidths(widths []float64) Option {
	return func(o *Options) { o.ProposalWidths = widths }
}

// WithCheckpointEvery sets the walker steps between backend writes.
func WithCheckpointEvery(n int) Option {
	return func(o *Options) { o.CheckpointEvery = n }
}

// WithBurnIn sets the number of discarded initial steps.
func WithBurnIn(n int) Option {
	return func(o *Options) { o.BurnIn = n }
}

// WithRate sets the thinning rate.
func WithRate(n int) Option {
	return func(o *Options) { o.Rate = n }
}

// WithSeed sets the base random seed.
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithProgress registers a progress callback.
func WithProgress(f func(walker, step int, lnprob float64)) Option {
	return func(o *Options) { o.Progress = f }
}

func defaultOptions() Options {
	return Options{
		CheckpointEvery: 32,
		Rate:            1,
		Seed:            1,
	}
}
