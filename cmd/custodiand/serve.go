package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/custodian/archive"
	"xdao.co/custodian/archive/localfs"
	"xdao.co/custodian/config"
	"xdao.co/custodian/endorse"
	"xdao.co/custodian/eventbus"
	"xdao.co/custodian/ledger"
	"xdao.co/custodian/rpc"
	"xdao.co/custodian/storage"
	"xdao.co/custodian/telemetry"
)

func cmdServe(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(errOut)
	cfgPath := fs.String("config", "", "JSON config file (defaults to an in-memory ledger)")
	listen := fs.String("listen", "", "Override the gRPC listen address")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.LoadFile(*cfgPath); err != nil {
			fmt.Fprintln(errOut, err)
			return 2
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signalContext()
	defer stop()
	if err := serve(ctx, cfg, log, func(addr net.Addr) {
		fmt.Fprintf(out, "custodiand listening on %s (store=%s)\n", addr, cfg.Store.Backend)
	}); err != nil {
		log.Error("serve", zap.Error(err))
		return 1
	}
	return 0
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// serve runs the daemon until ctx is done. ready is called once the gRPC
// listener is bound.
func serve(ctx context.Context, cfg config.Config, log *zap.Logger, ready func(net.Addr)) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	store, err := storage.Open(cfg.Store.Backend, cfg.Store.Options)
	if err != nil {
		return err
	}
	defer store.Close()

	schemes, err := cfg.EndorsementSchemes()
	if err != nil {
		return err
	}
	metrics := telemetry.NewCollector("custodian")
	opts := []ledger.Option{
		ledger.WithLogger(log.Named("ledger")),
		ledger.WithObserver(metrics),
		ledger.WithSchemes(schemes...),
	}

	if len(cfg.Archive.Dirs) > 0 {
		cas, err := openArchive(cfg.Archive.Dirs)
		if err != nil {
			return err
		}
		opts = append(opts, ledger.WithPublisher(archive.Sink{CAS: cas}))
	}
	if cfg.NATS.URL != "" {
		busOpts := []eventbus.Option{}
		if cfg.NATS.Subject != "" {
			busOpts = append(busOpts, eventbus.WithSubject(cfg.NATS.Subject))
		}
		if cfg.NATS.Flush {
			busOpts = append(busOpts, eventbus.WithFlush())
		}
		pub, nc, err := eventbus.Dial(cfg.NATS.URL, "custodiand", busOpts...)
		if err != nil {
			return err
		}
		defer nc.Close()
		opts = append(opts, ledger.WithPublisher(pub))
	}

	eng := ledger.New(store, opts...)
	boot, err := cfg.Bootstrap.Parse()
	if err != nil {
		return err
	}
	if err := bootstrap(ctx, eng, boot, log); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	gs := grpc.NewServer(grpc.UnaryInterceptor(rpc.UnaryLogging(log.Named("rpc"))))
	rpc.RegisterCustodianServer(gs, &rpc.Server{Engine: eng, Oracle: endorse.DefaultOracle{}})

	var metricsSrv *http.Server
	if cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsListen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
	}

	errc := make(chan error, 1)
	go func() { errc <- gs.Serve(lis) }()
	log.Info("listening", zap.String("addr", lis.Addr().String()), zap.String("store", cfg.Store.Backend))
	if ready != nil {
		ready(lis.Addr())
	}

	select {
	case err = <-errc:
	case <-ctx.Done():
		gs.GracefulStop()
		err = <-errc
	}
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

func openArchive(dirs []string) (archive.CAS, error) {
	reps := make([]archive.Replica, 0, len(dirs))
	for _, d := range dirs {
		cas, err := localfs.Open(d)
		if err != nil {
			return nil, err
		}
		reps = append(reps, archive.Replica{Name: d, CAS: cas})
	}
	if len(reps) == 1 {
		return reps[0].CAS, nil
	}
	return archive.Replicating{Replicas: reps}, nil
}

// bootstrap initializes an empty ledger and opens the configured vaults.
// State that already exists is kept.
func bootstrap(ctx context.Context, eng *ledger.Engine, b config.Bootstrap, log *zap.Logger) error {
	if !b.Enabled() {
		return nil
	}
	_, err := eng.Initialize(ctx, b.Owner, b.FeeToAccount)
	switch {
	case err == nil:
		if b.Signer != b.Owner {
			if err := eng.ChangeSigner(ctx, b.Owner, b.Signer); err != nil {
				return err
			}
		}
		log.Info("ledger initialized", zap.Stringer("owner", b.Owner), zap.Stringer("signer", b.Signer))
	case errors.Is(err, ledger.ErrAlreadyInitialized):
	default:
		return err
	}
	for _, a := range b.Assets {
		_, err := eng.InitializeVault(ctx, b.Owner, a)
		switch {
		case err == nil:
			log.Info("vault initialized", zap.Stringer("asset", a))
		case errors.Is(err, ledger.ErrAlreadyInitialized):
		default:
			return fmt.Errorf("vault %s: %w", a, err)
		}
	}
	return nil
}
