package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mcpGoServer "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/i2y/postcrawl-mcp/configs"
	"github.com/i2y/postcrawl-mcp/internal/adapter/inbound/mcphttp"
	"github.com/i2y/postcrawl-mcp/internal/adapter/outbound/memrepo"
	"github.com/i2y/postcrawl-mcp/internal/adapter/outbound/postcrawl"
	"github.com/i2y/postcrawl-mcp/internal/adapter/outbound/schemavalidator"
	"github.com/i2y/postcrawl-mcp/internal/adapter/presenter"
	"github.com/i2y/postcrawl-mcp/internal/domain"
	"github.com/i2y/postcrawl-mcp/internal/usecase"
)

const serviceName = "postcrawl-mcp"

const (
	transportHTTP  = "http"
	transportStdio = "stdio"
)

func main() {
	// === Command Line Flags ===
	var transport string
	flag.StringVar(&transport, "transport", transportHTTP, "Transport mode: http or stdio")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Configuration ===
	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// === Logging ===
	logLevel := cfg.ParsedLogLevel()
	var logger *slog.Logger

	if transport == transportStdio {
		// stdout carries the protocol, so logs go to a file.
		logFile, err := os.OpenFile(os.TempDir()+"/postcrawl-mcp.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: logLevel}))
		} else {
			defer logFile.Close()
			logger = slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: logLevel}))
		}
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	}

	slog.SetDefault(logger)
	logger.Info("Logger initialized.", slog.String("level", logLevel.String()), slog.String("transport", transport))

	// === OpenTelemetry Initialization ===
	shutdownOtel, err := initOtelProvider(cfg)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry.", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
		}
	}()

	// === Dependency Injection ===
	newClient := func(apiKey string) usecase.PostCrawlAPI {
		return postcrawl.New(postcrawl.ClientConfig{
			APIKey:  apiKey,
			BaseURL: cfg.APIURL,
			Timeout: cfg.HTTPClientTimeout,
		}, logger)
	}

	repo := memrepo.NewInMemoryToolRepository(logger)
	invokeUC := usecase.NewInvokeToolUseCase(repo, schemavalidator.New(logger), newClient, logger)
	serveUC := usecase.NewServeToolsUseCase(repo, logger)

	// === MCP Server (mark3labs/mcp-go) ===
	mcpSrv := mcpGoServer.NewMCPServer(
		mcphttp.ServerName,
		mcphttp.ServerVersion,
		mcpGoServer.WithToolCapabilities(false),
		mcpGoServer.WithRecovery(),
	)

	registerUC := usecase.NewRegisterToolsUseCase(
		domain.Catalog(),
		repo,
		mcpSrv,
		invokeUC,
		presenter.ToolContent{},
		fallbackAPIKey(transport, cfg),
		logger,
	)
	if err := registerUC.Execute(ctx); err != nil {
		logger.Error("Failed to register tools.", slog.Any("error", err))
		os.Exit(1)
	}

	// === Transport Mode Selection ===
	switch transport {
	case transportStdio:
		logger.Info("Starting in STDIO mode")
		if cfg.APIKey == "" {
			logger.Warn("POSTCRAWL_API_KEY is not set; tool calls will fail authentication")
		}

		stdioServer := mcpGoServer.NewStdioServer(mcpSrv)
		if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("STDIO server error", slog.Any("error", err))
			os.Exit(1)
		}

	case transportHTTP:
		logger.Info("Starting in HTTP mode")

		// SSE transport for MCP clients that keep a session; the caller's key
		// travels in the request context.
		sseServer := mcpGoServer.NewSSEServer(mcpSrv,
			mcpGoServer.WithBaseURL(cfg.PublicBaseURL()),
			mcpGoServer.WithSSEContextFunc(func(ctx context.Context, r *http.Request) context.Context {
				if token, ok := mcphttp.BearerToken(r.Header.Get("Authorization")); ok && token != "" {
					return usecase.WithAPIKey(ctx, token)
				}
				return ctx
			}),
		)

		mux := http.NewServeMux()
		mcphttp.NewHandlers(invokeUC, serveUC, presenter.RPCErrors{DocsURL: cfg.DocsURL}, logger).RegisterRoutes(mux)
		mux.Handle("/sse", sseServer.SSEHandler())
		mux.Handle("/message", sseServer.MessageHandler())

		httpServer := &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      mux,
			ReadTimeout:  cfg.ServerReadTimeout,
			WriteTimeout: cfg.ServerWriteTimeout,
			IdleTimeout:  cfg.ServerIdleTimeout,
		}

		go func() {
			logger.Info("HTTP server starting.", slog.String("address", cfg.ListenAddr), slog.String("api_url", cfg.APIURL))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server failed to start.", slog.Any("error", err))
				stop()
			}
		}()

		// Wait for interrupt signal.
		<-ctx.Done()

		// === Server Shutdown ===
		logger.Info("Shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("MCP SSE server graceful shutdown failed.", slog.Any("error", err))
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server graceful shutdown failed.", slog.Any("error", err))
		}

		logger.Info("Servers shut down gracefully.")

	default:
		logger.Error("Invalid transport mode", slog.String("transport", transport))
		os.Exit(1)
	}
}

// fallbackAPIKey returns the key used for MCP tool calls whose context carries
// no caller key. Only stdio, which has a single local caller and no headers,
// uses the configured key; SSE callers must send their own.
func fallbackAPIKey(transport string, cfg *configs.Config) string {
	if transport == transportStdio {
		return cfg.APIKey
	}
	return ""
}

// initOtelProvider initializes the OpenTelemetry SDK and sets up the OTLP trace exporter.
// It returns a shutdown function to be called on application exit.
func initOtelProvider(cfg *configs.Config) (func(context.Context) error, error) {
	ctx := context.Background()

	// Propagate trace context to the remote API even when no exporter is configured.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if cfg.OtelExporterOtlpEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, OpenTelemetry tracing disabled.")
		return func(context.Context) error { return nil }, nil
	}

	slog.Info("Initializing OTLP exporter.", slog.String("endpoint", cfg.OtelExporterOtlpEndpoint))

	grpcOpts := []grpc.DialOption{}
	if cfg.OtelExporterOtlpInsecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		slog.Warn("Using insecure connection for OTLP exporter.")
	} else {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}

	conn, err := grpc.NewClient(cfg.OtelExporterOtlpEndpoint, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTLP endpoint: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)

	slog.Info("OpenTelemetry TracerProvider configured.")

	return func(ctx context.Context) error {
		providerErr := tp.Shutdown(ctx)
		connErr := conn.Close()
		return errors.Join(providerErr, connErr)
	}, nil
}
