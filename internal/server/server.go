// Package server orchestrates all components: NATS client, DB, catalog,
// operation registry, dispatcher, and the HTTP discovery surface.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/actionmesh/gateway/internal/config"
	"github.com/actionmesh/gateway/internal/modules/blog"
	"github.com/actionmesh/gateway/pkg/catalog"
	"github.com/actionmesh/gateway/pkg/commsutil"
	"github.com/actionmesh/gateway/pkg/db"
	"github.com/actionmesh/gateway/pkg/describe"
	"github.com/actionmesh/gateway/pkg/dispatch"
	"github.com/actionmesh/gateway/pkg/events"
	"github.com/actionmesh/gateway/pkg/manifest"
	"github.com/actionmesh/gateway/pkg/operation"
	"github.com/actionmesh/gateway/pkg/pluralize"
)

const logPrefix = "server:server"

// Version is the running gateway version, checked against manifest
// requires constraints.
const Version = "1.0.0"

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_dispatch_total",
		Help: "Dispatch requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	dispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_dispatch_duration_seconds",
		Help:    "Dispatch latency from decode to response.",
		Buckets: prometheus.DefBuckets,
	})

	catalogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_catalog_entities",
		Help: "Number of entities in the catalog.",
	})
)

// Server is the gateway orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	httpServer *http.Server

	catalog    *catalog.Catalog
	registry   *operation.Registry
	dispatcher *dispatch.Dispatcher
	describer  *describe.Engine
	repo       *db.Repository
}

// collectionSource adapts the repository's table listing to a catalog
// discovery source.
type collectionSource struct {
	repo *db.Repository
}

func (s collectionSource) Name() string { return catalog.SourceCollection }

func (s collectionSource) Entities(ctx context.Context) ([]string, error) {
	return s.repo.CollectionNames(ctx)
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	// Setup structured logging
	var logLevel slog.Level
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting actionmesh-gateway %s", logPrefix, Version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg}

	// Step 1: Load manifest and gate on the requires constraint
	man, err := manifest.Load(cfg.ManifestFile)
	if err != nil {
		return fmt.Errorf("%s - failed to load manifest: %w", logPrefix, err)
	}
	if err := man.CheckRequires(Version); err != nil {
		return fmt.Errorf("%s - manifest rejected: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Manifest %s %s loaded", logPrefix, man.Name, man.Version))

	// Determine dispatch subject
	dispatchSubject := cfg.DispatchSubject
	if dispatchSubject == "" {
		dispatchSubject = commsutil.SubjectDispatch
	}
	slog.Info(fmt.Sprintf("%s - Dispatch subject: %s", logPrefix, dispatchSubject))

	// Step 2: Connect to NATS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
	}
	s.nc = nc

	// Step 3: Connect to database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		nc.Close()
		return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	s.pool = pool

	// Step 3b: Run migrations if enabled
	if cfg.RunMigrations {
		migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
		if err != nil {
			pool.Close()
			nc.Close()
			return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
			pool.Close()
			nc.Close()
			return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
	}

	// Step 4: Build pluralizer, catalog and change event publisher
	pl := pluralize.New()
	for _, pair := range man.Irregulars {
		pl.AddIrregular(pair.Singular, pair.Plural)
	}
	cat := catalog.New(pl)
	s.catalog = cat

	publisherOpts := &events.CommsPublisherOpts{}
	if cfg.ChangeEventSubject != "" {
		publisherOpts.GlobalChangeSubject = cfg.ChangeEventSubject
	}
	publisher := events.NewCommsPublisher(nc, publisherOpts)
	cat.SetObserver(func(e catalog.Entry) {
		catalogSize.Set(float64(cat.Len()))
		event := &events.CatalogChangedEvent{
			Entity:    e.Canonical,
			Source:    e.Source,
			Total:     cat.Len(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if err := publisher.PublishChanged(ctx, event); err != nil {
			slog.Warn(fmt.Sprintf("%s - change event publish failed: %v", logPrefix, err))
		}
	})

	// Step 5: Feature modules and the operation registry
	repo := db.NewRepository(pool)
	s.repo = repo
	blogModule := blog.New(repo)
	reg := operation.NewRegistry(cat, blogModule)
	s.registry = reg

	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gateway_resolution_cache_hits",
		Help: "Resolutions served from the memoization cache.",
	}, func() float64 {
		hits, _ := reg.CacheStats()
		return float64(hits)
	}))
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gateway_resolution_cache_misses",
		Help: "Resolutions that missed the memoization cache.",
	}, func() float64 {
		_, misses := reg.CacheStats()
		return float64(misses)
	}))

	// Step 5b: Discovery passes per manifest settings
	var sources []catalog.Source
	if len(man.Entities) > 0 {
		sources = append(sources, &catalog.StaticSource{Tag: catalog.SourceManual, Names: man.Entities})
	}
	if man.Discovery.FromOperations {
		sources = append(sources, &catalog.OperationNameSource{
			Identifiers: reg.Identifiers(),
			Verbs:       catalog.DefaultVerbs,
			Singularize: pl.Singularize,
		})
	}
	if man.Discovery.FromCollections {
		sources = append(sources, collectionSource{repo: repo})
	}
	if man.Discovery.FromShapes {
		for _, shape := range blogModule.Shapes() {
			cat.RegisterShape(shape)
		}
	}
	cat.Discover(ctx, sources...)

	if err := reg.Build(); err != nil {
		pool.Close()
		nc.Close()
		return fmt.Errorf("%s - registry build failed: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Catalog has %d entities, registry has %d operations",
		logPrefix, cat.Len(), len(reg.List())))

	if man.Discovery.RefreshSeconds > 0 {
		interval := time.Duration(man.Discovery.RefreshSeconds) * time.Second
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					cat.Discover(ctx, sources...)
					if err := reg.Rebuild(); err != nil {
						slog.Warn(fmt.Sprintf("%s - registry rebuild failed: %v", logPrefix, err))
					}
				}
			}
		}()
	}

	// Step 6: Dispatcher and describe engine
	disp := dispatch.NewDispatcher(reg, cat, nil)
	s.dispatcher = disp
	s.describer = describe.New(man.DescribeConfig(), pl)

	// Step 7: Subscribe to the dispatch subject
	requestTimeout := cfg.RequestTimeout
	sub, err := nc.Subscribe(dispatchSubject, func(msg *comms.Msg) {
		started := time.Now()

		var req dispatch.Request
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
			resp := &dispatch.Result{
				Success: false,
				Error: &dispatch.ErrorDetail{
					Code:    dispatch.CodeInvalidRequest,
					Message: "Failed to decode request",
				},
			}
			data, _ := json.Marshal(resp)
			msg.Respond(data)
			return
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}

		reqCtx, cancelReq := context.WithTimeout(ctx, requestTimeout)
		defer cancelReq()

		res := disp.Dispatch(reqCtx, &req)
		s.observeDispatch(ctx, &req, res, time.Since(started))

		data, err := json.Marshal(res)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to encode response: %v", logPrefix, err))
			return
		}
		msg.Respond(data)
	})
	if err != nil {
		pool.Close()
		nc.Close()
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, dispatchSubject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, dispatchSubject))

	// Step 8: Start the HTTP discovery server
	mux := s.buildMux()

	httpAddr := cfg.HTTPAddr
	if httpAddr == "" {
		httpAddr = fmt.Sprintf(":%d", cfg.HTTPPort)
	}
	s.httpServer = &http.Server{Addr: httpAddr, Handler: mux}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Gateway is ready", logPrefix))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	sub.Unsubscribe()
	s.httpServer.Shutdown(ctx)
	nc.Drain()
	pool.Close()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// observeDispatch records metrics and, when enabled, the audit row for
// one dispatch.
func (s *Server) observeDispatch(ctx context.Context, req *dispatch.Request, res *dispatch.Result, took time.Duration) {
	operationName := res.Metadata["operation"]
	outcome := "success"
	var errorCode *string
	if !res.Success {
		outcome = res.Error.Code
		errorCode = &res.Error.Code
	}
	dispatchTotal.WithLabelValues(operationName, outcome).Inc()
	dispatchDuration.Observe(took.Seconds())

	if !s.cfg.AuditDispatches {
		return
	}
	rec := &db.DispatchRecord{
		RequestID:  req.ID,
		Action:     req.Action,
		Operation:  operationName,
		Entity:     res.Metadata["entity"],
		Verb:       res.Metadata["verb"],
		Kind:       res.Metadata["kind"],
		Success:    res.Success,
		ErrorCode:  errorCode,
		DurationMS: took.Milliseconds(),
	}
	auditCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.repo.LogDispatch(auditCtx, rec); err != nil {
		slog.Warn(fmt.Sprintf("%s - dispatch audit write failed: %v", logPrefix, err))
	}
}

// operationView is the JSON/HTML projection of one descriptor.
type operationView struct {
	Name        string            `json:"name"`
	Kind        string            `json:"kind"`
	Entity      string            `json:"entity"`
	Verb        string            `json:"verb"`
	Description string            `json:"description"`
	Input       operation.Shape   `json:"input"`
	Output      *operation.Shape  `json:"output,omitempty"`
}

func (s *Server) operationViews() []operationView {
	descriptors := s.registry.List()
	out := make([]operationView, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, operationView{
			Name:        d.Name,
			Kind:        string(d.Kind),
			Entity:      d.Entity,
			Verb:        d.Verb,
			Description: s.describer.Describe(d.Kind, d.Entity, d.Verb, d.Description),
			Input:       d.Input,
			Output:      d.Output,
		})
	}
	return out
}

// buildMux wires the HTTP discovery surface.
func (s *Server) buildMux() *http.ServeMux {
	healthTimeout := s.cfg.HealthCheckTimeout

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/operations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"operations": s.operationViews(),
			"entities":   s.catalog.ListEntries(),
		})
	})
	mux.HandleFunc("/operations/", s.handleOperationDetail())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		healthCtx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		checks := map[string]bool{
			"database": s.pool.Ping(healthCtx) == nil,
			"comms":    s.nc.IsConnected(),
		}
		status := "healthy"
		for _, ok := range checks {
			if !ok {
				status = "unhealthy"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    status,
			"checks":    checks,
			"version":   Version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// homePageTemplate is the HTML for the gateway home page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>ActionMesh Gateway</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
  </style>
</head>
<body>
  <h1>ActionMesh Gateway</h1>
  <p class="meta">Registered operations and known entities.</p>

  <section>
    <h2>Entities</h2>
    <p>Known entities: <span class="stat">{{len .Entities}}</span></p>
    <table>
      <thead>
        <tr><th>Entity</th><th>Source</th></tr>
      </thead>
      <tbody>
        {{range .Entities}}
        <tr><td>{{.Canonical}}</td><td>{{.Source}}</td></tr>
        {{end}}
      </tbody>
    </table>
  </section>

  <section>
    <h2>Operations</h2>
    {{if not .Operations}}
    <p>No operations registered.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Operation</th><th>Kind</th><th>Entity</th><th>Verb</th><th>Description</th></tr>
      </thead>
      <tbody>
        {{range .Operations}}
        <tr>
          <td><a href="/operations/{{.Name}}">{{.Name}}</a></td>
          <td>{{.Kind}}</td>
          <td>{{.Entity}}</td>
          <td>{{.Verb}}</td>
          <td>{{.Description}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
</body>
</html>
`

// homeData is the data passed to the home page template.
type homeData struct {
	Entities   []catalog.Entry
	Operations []operationView
}

// handleHome returns an HTTP handler for the gateway home page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		data := homeData{
			Entities:   s.catalog.ListEntries(),
			Operations: s.operationViews(),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

// handleOperationDetail returns a JSON detail view for one operation.
func (s *Server) handleOperationDetail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/operations/")
		if name == "" {
			http.Redirect(w, r, "/operations", http.StatusFound)
			return
		}

		d := s.registry.ResolveLiteral(name)
		if d == nil {
			http.NotFound(w, r)
			return
		}

		view := operationView{
			Name:        d.Name,
			Kind:        string(d.Kind),
			Entity:      d.Entity,
			Verb:        d.Verb,
			Description: s.describer.Describe(d.Kind, d.Entity, d.Verb, d.Description),
			Input:       d.Input,
			Output:      d.Output,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(view)
	}
}
