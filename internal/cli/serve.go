package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/friendlypipe/pkg/buildinfo"
	"github.com/matzehuels/friendlypipe/pkg/cache"
	"github.com/matzehuels/friendlypipe/pkg/config"
	apperr "github.com/matzehuels/friendlypipe/pkg/errors"
	"github.com/matzehuels/friendlypipe/pkg/observability"
)

// maxBodyBytes caps uploaded workflow documents.
const maxBodyBytes = 16 << 20

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve bundle layouts and diagrams over HTTP",
		Long: `Serve exposes the workflow tools as an HTTP API:

  GET  /healthz      liveness and version
  POST /v1/layouts   workflow JSON in, bundle layouts JSON out
  POST /v1/render    workflow JSON in, diagram out (?format=dot|svg|pdf|png&detailed=true)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			return c.runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from the config)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	store, err := c.openCache(ctx, false)
	if err != nil {
		return err
	}
	defer store.Close()

	s := newServer(c.loader(), store, c.Config.Cache.TTL.Duration, c.Logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return withLogger(ctx, c.Logger) },
	}

	errc := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", addr, "cache", c.Config.Cache.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// server holds the handlers of the HTTP API. Every request loads its own
// session, so handlers share nothing but the caches.
type server struct {
	loader   *loader
	renderer *renderer
	layouts  cache.Cache
	keyer    cache.Keyer
	ttl      time.Duration
	logger   *log.Logger
}

func newServer(l *loader, store cache.Cache, ttl time.Duration, logger *log.Logger) *server {
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "serve:")
	return &server{
		loader: l,
		renderer: &renderer{
			loader: l,
			cache:  store,
			keyer:  keyer,
			ttl:    ttl,
			logger: logger,
		},
		layouts: store,
		keyer:   keyer,
		ttl:     ttl,
		logger:  logger,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/layouts", s.handleLayouts)
		r.Post("/render", s.handleRender)
	})
	return r
}

// observe reports every request to the HTTP hooks under its route pattern.
func (s *server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		dur := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, route, status, dur)
		loggerFromContext(r.Context()).Debug("request", "method", r.Method, "route", route, "status", status, "dur", dur,
			"id", middleware.GetReqID(r.Context()))
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Resolved(),
	})
}

type layoutsResponse struct {
	ID      string         `json:"id,omitempty"`
	Bundles []bundleReport `json:"bundles"`
}

func (s *server) handleLayouts(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	key := s.keyer.LayoutKey(cache.Hash(data), layoutKeyOpts(s.loader.cfg))
	if out, ok, err := s.layouts.Get(r.Context(), key); err == nil && ok {
		w.Header().Set("X-Cache", "hit")
		writeRaw(w, "application/json", out)
		return
	}

	sess, err := s.loader.decode(r.Context(), data, "request")
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := json.Marshal(layoutsResponse{ID: sess.wf.ID, Bundles: nonNil(collectBundles(sess.root()))})
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.layouts.Set(r.Context(), key, out, s.ttl); err != nil {
		s.logger.Warn("cache write failed", "err", err)
	}
	w.Header().Set("X-Cache", "miss")
	writeRaw(w, "application/json", out)
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := artifactOpts{Format: q.Get("format"), Scale: 2}
	if opts.Format == "" {
		opts.Format = formatDOT
	}
	if v := q.Get("detailed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, apperr.New(apperr.ErrCodeInvalidInput, "detailed: %q is not a boolean", v))
			return
		}
		opts.Detailed = b
	}

	data, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, cached, err := s.renderer.render(r.Context(), data, "request", opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if cached {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	writeRaw(w, contentTypes[opts.Format], out)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	buf, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.New(apperr.ErrCodeInvalidInput, "workflow exceeds %d bytes", tooLarge.Limit)
		}
		return nil, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "read request body")
	}
	if len(buf) == 0 {
		return nil, apperr.New(apperr.ErrCodeInvalidInput, "empty request body")
	}
	return buf, nil
}

type errorResponse struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := apperr.GetCode(err)
	if code == "" {
		code = apperr.ErrCodeInternal
	}
	writeJSON(w, apperr.HTTPStatus(err), errorResponse{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func nonNil(r []bundleReport) []bundleReport {
	if r == nil {
		return []bundleReport{}
	}
	return r
}

// layoutKeyOpts lists every setting that changes the resolved layouts.
func layoutKeyOpts(cfg *config.Config) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		MaxDepth:             cfg.MaxDepth,
		MaxSlots:             cfg.MaxSlots,
		ContainerSearchDepth: cfg.ContainerSearchDepth,
		ResyncAttempts:       cfg.Resync.Attempts,
		ResyncDelay:          cfg.Resync.Delay.Duration,
	}
}
