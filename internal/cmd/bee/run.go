package beecmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/rzbill/bee/internal/config"
	"github.com/rzbill/bee/internal/hive"
	"github.com/rzbill/bee/internal/identity"
	"github.com/rzbill/bee/internal/runtime"
	httpserver "github.com/rzbill/bee/internal/server/http"
	logpkg "github.com/rzbill/bee/pkg/log"
)

// Options is shared by every mode.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
	Stdout io.Writer
}

func (o *Options) normalize() {
	if o.Logger == nil {
		o.Logger = logpkg.NewNopLogger()
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
}

func open(ctx context.Context, opts Options) (*runtime.Runtime, error) {
	return runtime.Open(ctx, runtime.Options{Config: opts.Config, Logger: opts.Logger})
}

// serveHTTP starts the health/status/metrics endpoint in g when an address
// is set.
func serveHTTP(ctx context.Context, g *errgroup.Group, rt *runtime.Runtime, logger logpkg.Logger) {
	addr := rt.Config().Metrics.Addr
	if addr == "" {
		return
	}
	hsrv := httpserver.New(rt, logger.WithComponent("http"))
	g.Go(func() error {
		if err := hsrv.ListenAndServe(ctx, addr); err != nil && ctx.Err() == nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
}

// Run is loop mode: claim-or-follow until SIGINT/SIGTERM or a store failure.
func Run(ctx context.Context, opts Options) error {
	opts.normalize()
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := open(sctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	rng := identity.NewRand(time.Now().UnixNano())
	token := identity.ProcessToken(rng)
	loop, err := rt.NewLoop(token, rng)
	if err != nil {
		return err
	}
	opts.Logger.Info("starting bee",
		logpkg.Str(logpkg.TokenKey, token),
		logpkg.Str("store", rt.Config().Store.Backend),
		logpkg.Str("queue", rt.Config().MessagesKey()),
	)

	g, gctx := errgroup.WithContext(sctx)
	serveHTTP(gctx, g, rt, opts.Logger)
	g.Go(func() error {
		err := loop.Run(gctx)
		stop()
		return err
	})
	return g.Wait()
}

// Report drains the error queue and prints it as a single list.
func Report(ctx context.Context, opts Options) error {
	opts.normalize()
	rt, err := open(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	msgs, err := rt.DrainErrors(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(opts.Stdout, hive.FormatReport(msgs))
	return err
}

// Status prints the current writer and both queue lengths.
func Status(ctx context.Context, opts Options) error {
	opts.normalize()
	rt, err := open(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()
	return printStatus(ctx, opts.Stdout, rt)
}

func printStatus(ctx context.Context, w io.Writer, rt *runtime.Runtime) error {
	st, err := rt.Status(ctx)
	if err != nil {
		return err
	}
	writer := "(none)"
	if st.HasWriter {
		writer = st.Writer
	}
	_, err = fmt.Fprintf(w, "writer:  %s\npending: %d\nerrors:  %d\n", writer, st.Pending, st.Errors)
	return err
}

// SimulateOptions extends Options for the in-process simulation.
type SimulateOptions struct {
	Options
	Workers int
	// Duration stops the run after the given time; zero waits for a signal.
	Duration time.Duration
}

// Simulate runs several independent loops against one store, each under its
// own token, then prints the final status.
func Simulate(ctx context.Context, opts SimulateOptions) error {
	opts.normalize()
	if opts.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", opts.Workers)
	}
	runID := uuid.NewString()
	opts.Logger = opts.Logger.With(logpkg.Str("run_id", runID))

	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(sctx, opts.Duration)
		defer cancel()
	}

	rt, err := open(sctx, opts.Options)
	if err != nil {
		return err
	}
	defer rt.Close()

	base := time.Now().UnixNano()
	rngs := lo.Times(opts.Workers, func(i int) identity.Rand {
		return identity.NewRand(base + int64(i))
	})
	tokens := distinctTokens(os.Getpid(), rngs)

	opts.Logger.Info("starting simulation",
		logpkg.Int("workers", opts.Workers),
		logpkg.Dur("duration", opts.Duration),
		logpkg.Str("store", rt.Config().Store.Backend),
	)

	loops := make([]*hive.Loop, len(tokens))
	for i := range tokens {
		if loops[i], err = rt.NewLoop(tokens[i], rngs[i]); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(sctx)
	serveHTTP(gctx, g, rt, opts.Logger)
	for _, loop := range loops {
		loop := loop
		g.Go(func() error { return loop.Run(gctx) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(opts.Stdout, "run:     %s\n", runID)
	return printStatus(context.WithoutCancel(ctx), opts.Stdout, rt)
}

// distinctTokens draws one token per rand source, redrawing on collision.
func distinctTokens(pid int, rngs []identity.Rand) []string {
	seen := make(map[string]struct{}, len(rngs))
	tokens := make([]string, len(rngs))
	for i, r := range rngs {
		for {
			t := identity.NewToken(pid, r)
			if _, dup := seen[t]; !dup {
				seen[t] = struct{}{}
				tokens[i] = t
				break
			}
		}
	}
	return tokens
}
