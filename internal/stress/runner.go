// Package stress runs a concurrent randomized workload against a table
// and verifies the results against a per-worker model.
package stress

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/puzpuzpuz/lcmap"
	"github.com/puzpuzpuz/lcmap/internal/config"
)

// Report summarizes a finished run.
type Report struct {
	Counts
	Ops     int64
	Elapsed time.Duration
	// Live is the number of entries the workers expect in the table.
	Live uint64
	// Stats is taken after the workload, before the table is destroyed.
	Stats lcmap.Stats
}

// Runner drives one stress run.
type Runner struct {
	cfg        config.Config
	logger     *zap.Logger
	recorder   lcmap.Recorder
	registerer prometheus.Registerer
	seed       int64
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder makes the table under test report operations to r.
func WithRecorder(r lcmap.Recorder) Option {
	return func(rn *Runner) {
		rn.recorder = r
	}
}

// WithRegisterer registers a collector for the table under test with reg
// for the duration of the run.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(rn *Runner) {
		rn.registerer = reg
	}
}

// WithSeed fixes the seed of the random operation sequences.
func WithSeed(seed int64) Option {
	return func(rn *Runner) {
		rn.seed = seed
	}
}

// NewRunner validates cfg and returns a Runner for it.
func NewRunner(cfg config.Config, logger *zap.Logger, options ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cfg:    cfg,
		logger: logger,
		seed:   time.Now().UnixNano(),
	}
	for _, o := range options {
		o(r)
	}
	return r, nil
}

// Run executes the workload and verifies the table afterwards. A non-nil
// error wrapping ErrViolation means the table misbehaved; any other error
// means the run could not complete.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	w := r.cfg.Workload
	keys := newKeySpace(w.KeyKind, w.Workers*w.Keys)
	opts := []func(*lcmap.TableConfig){
		lcmap.WithCapacity(r.cfg.Capacity),
		lcmap.WithLogger(r.logger),
	}
	if r.recorder != nil {
		opts = append(opts, lcmap.WithRecorder(r.recorder))
	}
	table, err := lcmap.New(keys.behavior(), opts...)
	if err != nil {
		return Report{}, err
	}
	if r.registerer != nil {
		c := lcmap.NewCollector("lcmapstress", table)
		if err := r.registerer.Register(c); err != nil {
			return Report{}, errors.Wrap(err, "register table collector")
		}
		defer r.registerer.Unregister(c)
	}

	workers := make([]*worker, w.Workers)
	for i := range workers {
		workers[i] = newWorker(i, w, keys, table, r.seed+int64(i))
	}

	r.logger.Info("stress run started",
		zap.Int("capacity", r.cfg.Capacity),
		zap.Int("workers", w.Workers),
		zap.Int("ops", w.Ops),
		zap.Int("keys", w.Keys),
		zap.String("key-kind", w.KeyKind),
		zap.Stringer("mix", w.Mix),
		zap.Int64("seed", r.seed))

	start := time.Now()
	var progress atomic.Int64
	if err := r.runWorkload(ctx, workers, &progress); err != nil {
		// Handles may still be referenced by the table; tear it down anyway
		// so destructors run.
		table.Destroy()
		return Report{}, err
	}
	report := Report{
		Ops:     progress.Load(),
		Elapsed: time.Since(start),
	}
	for _, wk := range workers {
		report.Counts.add(wk.counts)
	}

	live, err := verifyContents(workers)
	report.Live = live
	report.Stats = table.Stats()
	if err == nil {
		err = verifyStructure(report.Stats, live)
	}
	table.Destroy()
	if err != nil {
		return report, err
	}
	for _, wk := range workers {
		if err := wk.checkReleased(); err != nil {
			return report, err
		}
	}
	r.logger.Info("stress run passed",
		zap.Int64("ops", report.Ops),
		zap.Duration("elapsed", report.Elapsed),
		zap.Uint64("live", report.Live),
		zap.Int("max-chain", report.Stats.MaxChain))
	return report, nil
}

// runWorkload runs every worker on an ants pool next to a progress
// reporter and returns once all workers are done.
func (r *Runner) runWorkload(ctx context.Context, workers []*worker, progress *atomic.Int64) error {
	pool, err := ants.NewPool(len(workers), ants.WithPanicHandler(func(v interface{}) {
		panic(v)
	}))
	if err != nil {
		return errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		var wg sync.WaitGroup
		errs := make([]error, len(workers))
		for i, wk := range workers {
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				errs[i] = wk.run(ctx, r.cfg.Workload.Ops, progress)
			}); err != nil {
				wg.Done()
				errs[i] = errors.Wrapf(err, "submit worker %d", i)
			}
		}
		wg.Wait()
		var combined error
		for _, err := range errs {
			combined = errors.CombineErrors(combined, err)
		}
		return combined
	})
	g.Go(func() error {
		r.reportProgress(ctx, done, progress)
		return nil
	})
	return g.Wait()
}

func (r *Runner) reportProgress(ctx context.Context, done <-chan struct{}, progress *atomic.Int64) {
	ticker := time.NewTicker(r.cfg.Workload.ReportInterval.Duration)
	defer ticker.Stop()
	total := int64(r.cfg.Workload.Workers) * int64(r.cfg.Workload.Ops)
	var last int64
	lastAt := time.Now()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			ops := progress.Load()
			r.logger.Info("stress progress",
				zap.Int64("ops", ops),
				zap.Int64("total", total),
				zap.Float64("ops/s", float64(ops-last)/now.Sub(lastAt).Seconds()))
			last, lastAt = ops, now
		}
	}
}

// verifyContents checks every owned key of every worker and returns the
// number of entries the workers expect in the table.
func verifyContents(workers []*worker) (uint64, error) {
	bitmaps := make([]*roaring.Bitmap, len(workers))
	for i, wk := range workers {
		if err := wk.check(); err != nil {
			return 0, err
		}
		bitmaps[i] = wk.live
	}
	return roaring.FastOr(bitmaps...).GetCardinality(), nil
}

// verifyStructure checks that the chains are well formed and that the
// size counter agrees with both the chains and the model.
func verifyStructure(s lcmap.Stats, live uint64) error {
	if s.Malformed != 0 {
		return errors.Wrapf(ErrViolation, "%d malformed chains", s.Malformed)
	}
	if s.Counter != s.Size {
		return errors.Wrapf(ErrViolation, "size counter %d does not match %d entries in the chains", s.Counter, s.Size)
	}
	if uint64(s.Size) != live {
		return errors.Wrapf(ErrViolation, "%d entries in the chains, want %d", s.Size, live)
	}
	return nil
}
