// Command seed loads reference documents (campaigns, location references,
// pool learners and aggregates) into the document store.
//
//	seed -fixture testdata/fixture.json
//	seed -fixture gs://bucket/fixtures/kenya.json -merge
package main

import (
	"context"
	"flag"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/givers/learnerfund/internal/config"
	"github.com/givers/learnerfund/internal/docstore"
	"github.com/givers/learnerfund/internal/logging"
)

func main() {
	var (
		src         = flag.String("fixture", "", "fixture file path or gs://bucket/object")
		merge       = flag.Bool("merge", false, "merge fields into existing documents instead of replacing them")
		dryRun      = flag.Bool("dry-run", false, "validate the fixture and print the paths without writing")
		concurrency = flag.Int("concurrency", 8, "parallel writes")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("failed to load config", "error", err)
	}
	logging.Setup(cfg.Logging.Level)

	if *src == "" {
		flag.Usage()
		logging.Fatal("-fixture is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := readSource(ctx, *src)
	if err != nil {
		logging.Fatal("failed to read fixture", "source", *src, "error", err)
	}
	f, err := parseFixture(b)
	if err != nil {
		logging.Fatal("invalid fixture", "source", *src, "error", err)
	}
	docs, err := f.documents(docstore.NewID)
	if err != nil {
		logging.Fatal("invalid fixture", "source", *src, "error", err)
	}

	if *dryRun {
		for _, d := range docs {
			slog.Info("would write", "path", d.path, "fields", len(d.data))
		}
		slog.Info("dry run complete", "documents", len(docs))
		return
	}

	if cfg.Store.Driver != "postgres" {
		logging.Fatal("seeding needs the postgres store driver", "driver", cfg.Store.Driver)
	}
	pool, err := docstore.NewPool(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		logging.Fatal("connect failed", "error", err)
	}
	defer pool.Close()

	n, err := write(ctx, docstore.NewPgStore(pool), docs, *merge, *concurrency)
	if err != nil {
		logging.Fatal("seed failed", "written", n, "error", err)
	}
	slog.Info("seed complete", "source", *src, "documents", n)
}

// write stores docs with at most limit writes in flight and returns how many
// succeeded.
func write(ctx context.Context, store docstore.Store, docs []seedDoc, merge bool, limit int) (int, error) {
	var opts []docstore.SetOption
	if merge {
		opts = append(opts, docstore.MergeAll)
	}

	var written atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for _, d := range docs {
		g.Go(func() error {
			if err := store.Set(ctx, d.path, d.data, opts...); err != nil {
				return err
			}
			written.Add(1)
			slog.Debug("document written", "path", d.path)
			return nil
		})
	}
	err := g.Wait()
	return int(written.Load()), err
}
