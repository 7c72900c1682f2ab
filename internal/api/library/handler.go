// Package library implements the /v1/pipeline-library HTTP resource: role
// and execution-mode gating in front of the pipeline store and validators.
package library

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/pipeline-library/internal/api/wire"
	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/core/ports"
	"github.com/tjfontaine/pipeline-library/internal/server"
)

// BasePath is where the resource is mounted.
const BasePath = "/v1/pipeline-library"

const maxBodyBytes = 8 << 20

// Config holds the handler's collaborators. Events and Logger are optional.
type Config struct {
	Store   ports.PipelineStore
	Stages  ports.StageLibrary
	Runtime ports.RuntimeInfo
	Events  ports.EventPublisher
	Logger  *slog.Logger
}

// Handler serves the pipeline library resource. It holds no mutable state.
type Handler struct {
	store   ports.PipelineStore
	stages  ports.StageLibrary
	runtime ports.RuntimeInfo
	events  ports.EventPublisher
	logger  *slog.Logger
	tracer  trace.Tracer
	mux     chi.Router
}

// requestContext carries the per-request inputs each operation needs.
type requestContext struct {
	ctx       context.Context
	principal *domain.Principal
	baseURI   string
	requestID string
	name      string
}

// response is what an operation produces on success. A nil body writes no
// content.
type response struct {
	status int
	header http.Header
	body   any
}

// NewHandler builds the handler and its route table.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		store:   cfg.Store,
		stages:  cfg.Stages,
		runtime: cfg.Runtime,
		events:  cfg.Events,
		logger:  cfg.Logger,
		tracer:  otel.Tracer("github.com/tjfontaine/pipeline-library/internal/api/library"),
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	mux := chi.NewRouter()
	for _, rt := range h.routes() {
		mux.Method(rt.method, rt.pattern, h.dispatch(rt))
	}

	// Anything not in the route table is denied.
	deny := func(w http.ResponseWriter, r *http.Request) {
		wire.WriteError(w, domain.ErrPermission("access denied"))
	}
	mux.NotFound(deny)
	mux.MethodNotAllowed(deny)

	h.mux = mux
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) dispatch(rt route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), "pipelinelibrary."+rt.op)
		defer span.End()

		rc := &requestContext{
			ctx:       ctx,
			principal: server.GetPrincipal(ctx),
			baseURI:   h.baseURI(r),
			requestID: server.GetRequestID(ctx),
		}
		if name := pathName(r); name != "" {
			rc.name = name
			span.SetAttributes(attribute.String("pipeline.name", name))
		}
		server.AddLogField(ctx, "operation", rt.op)
		server.AddLogField(ctx, "pipeline", rc.name)

		resp, err := h.run(rt, rc, r)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			server.AddError(ctx, err)
			wire.WriteError(w, err)
			return
		}

		for k, vs := range resp.header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		if resp.body == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(resp.status)
			return
		}
		wire.WriteJSON(w, resp.status, resp.body)
	}
}

// pathName returns the {name} segment decoded exactly once. chi matches on
// RawPath only when the URL carries one; otherwise the segment is already
// decoded.
func pathName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if raw == "" || r.URL.RawPath == "" {
		return raw
	}
	name, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return name
}

// run applies the route's gates before handing off to the operation. Gates
// are checked before any store call.
func (h *Handler) run(rt route, rc *requestContext, r *http.Request) (*response, error) {
	if !rt.access.allows(rc.principal) {
		return nil, domain.ErrPermission("caller is not authorized for " + rt.op)
	}
	if rt.rejectSlave && h.runtime.ExecutionMode() == domain.ModeSlave {
		return nil, domain.ErrSlaveMode()
	}
	return rt.handle(rc, r)
}

func (h *Handler) baseURI(r *http.Request) string {
	if base := h.runtime.BaseURI(); base != "" {
		return base
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func (h *Handler) publish(rc *requestContext, typ domain.LifecycleEventType, rev string) {
	if h.events == nil {
		return
	}
	event := &domain.LifecycleEvent{
		Type:      typ,
		Pipeline:  rc.name,
		Rev:       rev,
		User:      rc.principal.Name,
		RequestID: rc.requestID,
		Timestamp: time.Now().UTC(),
	}
	if err := h.events.Publish(rc.ctx, event); err != nil {
		h.logger.Warn("failed to publish lifecycle event",
			slog.String("type", string(typ)),
			slog.String("pipeline", rc.name),
			slog.String("error", err.Error()))
	}
}
