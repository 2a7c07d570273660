package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/AltairaLabs/WizardKit/pkg/config"
	"github.com/AltairaLabs/WizardKit/pkg/httputil"
	"github.com/AltairaLabs/WizardKit/runtime/logger"
	metrics "github.com/AltairaLabs/WizardKit/runtime/metrics/prometheus"
	"github.com/AltairaLabs/WizardKit/runtime/telemetry"
	"github.com/AltairaLabs/WizardKit/runtime/version"
	"github.com/AltairaLabs/WizardKit/server/draftapi"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the draft API (and metrics) until interrupted",
		Long: `Serves the remote draft API over the store selected by --config.
When the ServiceConfig enables metrics, a Prometheus exporter runs alongside
it; when it names a tracing endpoint, spans are exported over OTLP/HTTP.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := g.serviceSpec()
			if err != nil {
				return err
			}
			if addr != "" {
				spec.Server.Addr = addr
			}
			if g.configPath != "" {
				logger.Configure(spec.Logging.LoggerSpec())
			}
			return serve(cmd.Context(), spec)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

// serve runs until ctx is cancelled or a server fails.
func serve(ctx context.Context, spec config.ServiceSpec) error {
	log := logger.WithModule("wizardctl")
	telemetry.SetupPropagation()

	var shutdownTracing func(context.Context) error
	if spec.Tracing.Endpoint != "" {
		tp, err := telemetry.NewTracerProvider(ctx, spec.Tracing.ProviderConfig())
		if err != nil {
			return err
		}
		otel.SetTracerProvider(tp)
		shutdownTracing = tp.Shutdown
	}

	store, closeStore, err := config.OpenStore(ctx, spec.Store)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	api := draftapi.NewServer(store,
		draftapi.WithAddr(spec.Server.Addr),
		draftapi.WithMaxBodySize(spec.Server.MaxBodyBytes),
		draftapi.WithRateLimit(spec.Server.RateLimit.RequestsPerSecond, spec.Server.RateLimit.Burst),
	)

	var exporter *metrics.Exporter
	if spec.Metrics.Enabled {
		exporter = metrics.NewExporter(spec.Metrics.Addr)
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		log.Info("draft API listening", append([]any{"addr", spec.Server.Addr, "store", spec.Store.Type}, version.Attrs()...)...)
		return ignoreClosed(api.ListenAndServe())
	})
	if exporter != nil {
		grp.Go(func() error {
			log.Info("metrics exporter listening", "addr", spec.Metrics.Addr)
			return ignoreClosed(exporter.Start())
		})
	}
	grp.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), httputil.DefaultShutdownTimeout)
		defer cancel()

		errs := []error{api.Shutdown(sctx)}
		if exporter != nil {
			errs = append(errs, exporter.Shutdown(sctx))
		}
		if shutdownTracing != nil {
			errs = append(errs, shutdownTracing(sctx))
		}
		log.Info("servers stopped")
		return errors.Join(errs...)
	})
	return grp.Wait()
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
