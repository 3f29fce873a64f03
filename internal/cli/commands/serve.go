package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapbind/internal/cli/config"
	"github.com/leapstack-labs/leapbind/pkg/core"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var (
		addr  string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a JSON binding endpoint over HTTP",
		Long: `Start an HTTP server exposing the binder to editors and other tools.

Endpoints:
  POST /bind              {"expr": "...", "from": ["o=orders"], "expect": "int8"}
  GET  /relations         relation names and columns
  GET  /relations/{name}  one relation
  POST /reload            recompile the catalog
  GET  /healthz           liveness`,
		Example: `  leapbind serve --addr 127.0.0.1:8787 --watch
  curl -s localhost:8787/bind -d '{"expr":"1 + 2.5"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if addr == "" {
				addr = cmdCtx.Cfg.Serve.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cmdCtx, addr, watch)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: serve.addr, "+config.DefaultServeAddr+")")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the catalog file when it changes")
	return cmd
}

func serve(ctx context.Context, cmdCtx *CommandContext, addr string, watch bool) error {
	logger := cmdCtx.Logger
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: NewBindHandler(cmdCtx.Session, logger),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if watch && cmdCtx.Cfg.CatalogFile != "" {
		eg.Go(func() error {
			return watchCatalog(egctx, cmdCtx.Session, cmdCtx.Cfg.CatalogFile, logger, nil)
		})
	}

	eg.Go(func() error {
		cmdCtx.Renderer.Success(fmt.Sprintf("Serving %s on http://%s", cmdCtx.Session.Origin(), addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// NewBindHandler returns the HTTP API over sess.
func NewBindHandler(sess *Session, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &bindHandler{sess: sess, logger: logger}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		h.logRequests,
		middleware.Recoverer,
	)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/bind", h.bind)
	r.Post("/reload", h.reload)
	r.Route("/relations", func(r chi.Router) {
		r.Get("/", h.listRelations)
		r.Get("/{name}", h.getRelation)
	})
	return r
}

type bindHandler struct {
	sess   *Session
	logger *slog.Logger
}

// errorJSON is the body of every failed request.
type errorJSON struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Name   string `json:"name,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func (h *bindHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (h *bindHandler) bind(w http.ResponseWriter, r *http.Request) {
	var req BindRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid request body: " + err.Error()})
		return
	}

	res, err := h.sess.Bind(req)
	if err != nil {
		writeBindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBindJSON(res))
}

func writeBindError(w http.ResponseWriter, err error) {
	body := errorJSON{Error: err.Error()}
	status := http.StatusBadRequest

	var be *core.BindError
	if errors.As(err, &be) {
		status = http.StatusUnprocessableEntity
		body.Kind = string(be.Kind)
		body.Name = be.Name
	}
	if line, column, ok := errorPosition(err); ok {
		body.Line, body.Column = line, column
	}
	writeJSON(w, status, body)
}

func (h *bindHandler) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.Reload(r.Context()); err != nil {
		h.logger.Error("reload failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"catalog": h.sess.Origin()})
}

func (h *bindHandler) listRelations(w http.ResponseWriter, _ *http.Request) {
	rels := h.sess.Base().Relations()
	out := make([]relationJSON, 0, len(rels))
	for _, rel := range rels {
		out = append(out, newRelationJSON(rel))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *bindHandler) getRelation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rel, ok := h.sess.Catalog().LookupRelation(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorJSON{Error: fmt.Sprintf("relation %q not found", name)})
		return
	}
	writeJSON(w, http.StatusOK, newRelationJSON(rel))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
