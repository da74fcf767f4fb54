package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	demo "github.com/hanpama/graphqlview/internal/demo"
	eventbus "github.com/hanpama/graphqlview/internal/eventbus"
	executor "github.com/hanpama/graphqlview/internal/executor"
	graphiql "github.com/hanpama/graphqlview/internal/graphiql"
	introspection "github.com/hanpama/graphqlview/internal/introspection"
	metrics "github.com/hanpama/graphqlview/internal/metrics"
	otel "github.com/hanpama/graphqlview/internal/otel"
	server "github.com/hanpama/graphqlview/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(conf *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL HTTP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), conf)
		},
	}
	f := cmd.Flags()
	f.String("server.addr", ":8080", "HTTP listen address")
	f.String("server.path", "/graphql", "Path of the GraphQL endpoint")
	f.Bool("server.pretty", false, "Pretty-print every JSON response")
	f.Bool("server.graphiql", true, "Serve GraphiQL to browsers")
	f.String("server.graphiql-version", graphiql.DefaultVersion, "GraphiQL version loaded by the explorer")
	f.String("server.graphiql-template", "", "Replace the explorer page with this template file")
	f.Bool("server.batch", false, "Accept JSON arrays of operations")
	f.Int("server.max-age", 86400, "Access-Control-Max-Age of preflight responses, in seconds")
	f.Duration("server.timeout", 10*time.Second, "Per-request timeout")
	f.Int64("server.max-body-bytes", 0, "Maximum request body size, 0 for unlimited")
	f.Bool("server.compress", false, "Gzip responses for clients accepting it")
	f.Bool("server.introspection", true, "Answer __schema and __type queries")
	f.String("otel.endpoint", "", "OTLP/gRPC collector endpoint, tracing is off when empty")
	f.String("otel.service", "graphqlview", "OpenTelemetry service name")
	f.String("metrics.path", "/metrics", "Path of the Prometheus endpoint, disabled when empty")
	return cmd
}

func runServe(ctx context.Context, conf *viper.Viper) error {
	logger, err := newLogger(conf.GetString("log.level"), conf.GetString("log.format"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	app, err := demo.Load(conf.GetString("schema.name"))
	if err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	shutdownTracing, err := otel.Setup(ctx, conf.GetString("otel.endpoint"), conf.GetString("otel.service"))
	if err != nil {
		return errors.Wrap(err, "otel setup")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return errors.Wrap(err, "metrics")
	}
	defer m.Subscribe()()

	h, err := newHandler(conf, app, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              conf.GetString("server.addr"),
		Handler:           newRouter(conf, h, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("graphql server listening",
			zap.String("addr", srv.Addr),
			zap.String("path", conf.GetString("server.path")),
			zap.String("schema", conf.GetString("schema.name")),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newHandler(conf *viper.Viper, app *demo.App, logger *zap.Logger) (*server.Handler, error) {
	var rt executor.Runtime = app.Runtime
	sch := app.Schema
	if conf.GetBool("server.introspection") {
		w := introspection.Wrap(rt, sch)
		rt, sch = w.Runtime, w.Schema
	}

	opts := []server.Option{
		server.WithPretty(conf.GetBool("server.pretty")),
		server.WithGraphiQL(conf.GetBool("server.graphiql")),
		server.WithGraphiQLVersion(conf.GetString("server.graphiql-version")),
		server.WithBatch(conf.GetBool("server.batch")),
		server.WithMaxAge(conf.GetInt("server.max-age")),
		server.WithTimeout(conf.GetDuration("server.timeout")),
		server.WithMaxBodyBytes(conf.GetInt64("server.max-body-bytes")),
		server.WithCompression(conf.GetBool("server.compress")),
		server.WithLogger(logger),
	}
	if path := conf.GetString("server.graphiql-template"); path != "" {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "graphiql template")
		}
		tmpl, err := graphiql.Parse(string(src))
		if err != nil {
			return nil, err
		}
		opts = append(opts, server.WithGraphiQLTemplate(tmpl))
	}

	h, err := server.New(rt, sch, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "server init")
	}
	return h, nil
}

func newRouter(conf *viper.Viper, h http.Handler, g prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	// The handler answers every method itself, including the 405s.
	r.Handle(conf.GetString("server.path"), h)
	if path := conf.GetString("metrics.path"); path != "" {
		r.Handle(path, promhttp.HandlerFor(g, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}
