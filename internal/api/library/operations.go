package library

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tjfontaine/pipeline-library/internal/api/wire"
	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/validation"
)

func okJSON(body any) *response {
	return &response{status: http.StatusOK, body: body}
}

func (h *Handler) getPipelines(rc *requestContext, _ *http.Request) (*response, error) {
	infos, err := h.store.ListPipelines(rc.ctx)
	if err != nil {
		return nil, err
	}
	return okJSON(wire.WrapInfos(infos)), nil
}

func (h *Handler) getPipeline(rc *requestContext, r *http.Request) (*response, error) {
	q := r.URL.Query()
	rev := domain.NormalizeRev(q.Get("rev"))

	attachment := false
	if v := q.Get("attachment"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, domain.ErrInvalidParameter("attachment", v)
		}
		attachment = b
	}

	var data any
	switch get := q.Get("get"); get {
	case "", "pipeline":
		cfg, err := h.store.Load(rc.ctx, rc.name, rev)
		if err != nil {
			return nil, err
		}
		data = wire.WrapPipeline(cfg, h.validate(rc.name, cfg))
	case "info":
		info, err := h.store.GetInfo(rc.ctx, rc.name)
		if err != nil {
			return nil, err
		}
		data = wire.WrapInfo(info)
	case "history":
		history, err := h.store.GetHistory(rc.ctx, rc.name)
		if err != nil {
			return nil, err
		}
		data = wire.WrapHistory(history)
	default:
		return nil, domain.ErrInvalidParameter("get", get)
	}

	if !attachment {
		return okJSON(data), nil
	}

	// Exported rules are not validated so stale rules never fail an export.
	rules, err := h.store.RetrieveRules(rc.ctx, rc.name, rev)
	if err != nil {
		return nil, err
	}
	resp := okJSON(&wire.ExportJSON{
		PipelineConfig: data,
		PipelineRules:  wire.WrapRules(rules),
	})
	resp.header = http.Header{}
	resp.header.Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": rc.name + ".json"}))
	return resp, nil
}

func (h *Handler) create(rc *requestContext, r *http.Request) (*response, error) {
	description := r.URL.Query().Get("description")

	cfg, err := h.store.Create(rc.ctx, rc.name, description, rc.principal.Name)
	if err != nil {
		return nil, err
	}

	if _, err := h.store.StoreRules(rc.ctx, rc.name, domain.HeadRevision, SeedRules()); err != nil {
		// Undo the create so the name is never left without rules.
		if delErr := h.store.Delete(rc.ctx, rc.name); delErr != nil {
			h.logger.Error("failed to remove pipeline after seeding rules failed",
				slog.String("pipeline", rc.name),
				slog.String("error", delErr.Error()))
		}
		return nil, err
	}

	h.publish(rc, domain.LifecycleEventCreated, domain.HeadRevision)

	resp := &response{
		status: http.StatusCreated,
		header: http.Header{},
		body:   wire.WrapPipeline(cfg, h.validate(rc.name, cfg)),
	}
	resp.header.Set("Location", rc.baseURI+BasePath+"/"+url.PathEscape(rc.name))
	return resp, nil
}

func (h *Handler) delete(rc *requestContext, _ *http.Request) (*response, error) {
	if err := h.store.Delete(rc.ctx, rc.name); err != nil {
		return nil, err
	}
	if err := h.store.DeleteRules(rc.ctx, rc.name); err != nil {
		return nil, err
	}
	h.publish(rc, domain.LifecycleEventDeleted, "")
	return &response{status: http.StatusOK}, nil
}

func (h *Handler) save(rc *requestContext, r *http.Request) (*response, error) {
	q := r.URL.Query()
	tag := domain.NormalizeRev(q.Get("tag"))

	var in *wire.PipelineConfigurationJSON
	if err := decodeBody(r, &in); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errBody("pipeline configuration is required")
	}

	cfg := wire.UnwrapPipeline(in)
	verdict := h.validate(rc.name, cfg)

	saved, err := h.store.Save(rc.ctx, rc.name, rc.principal.Name, tag, q.Get("tagDescription"), cfg)
	if err != nil {
		return nil, err
	}

	rev := ""
	if saved.Info != nil {
		rev = saved.Info.LastRev
	}
	h.publish(rc, domain.LifecycleEventSaved, rev)
	return okJSON(wire.WrapPipeline(saved, verdict)), nil
}

func (h *Handler) getRules(rc *requestContext, r *http.Request) (*response, error) {
	rev := domain.NormalizeRev(r.URL.Query().Get("rev"))

	rules, err := h.store.RetrieveRules(rc.ctx, rc.name, rev)
	if err != nil {
		return nil, err
	}
	if rules == nil {
		return okJSON(json.RawMessage("null")), nil
	}
	if err := validation.ValidateRules(rules); err != nil {
		return nil, err
	}
	return okJSON(wire.WrapRules(rules)), nil
}

func (h *Handler) saveRules(rc *requestContext, r *http.Request) (*response, error) {
	rev := domain.NormalizeRev(r.URL.Query().Get("rev"))

	var in *wire.RuleDefinitionsJSON
	if err := decodeBody(r, &in); err != nil {
		return nil, err
	}

	rules := wire.UnwrapRules(in)
	if err := validation.ValidateRules(rules); err != nil {
		return nil, err
	}

	stored, err := h.store.StoreRules(rc.ctx, rc.name, rev, rules)
	if err != nil {
		return nil, err
	}
	h.publish(rc, domain.LifecycleEventRulesStored, rev)
	return okJSON(wire.WrapRules(stored)), nil
}

// validate checks cfg against the stage library as it is right now.
func (h *Handler) validate(name string, cfg *domain.PipelineConfiguration) domain.Verdict {
	return validation.ValidatePipeline(h.stages.Snapshot(), name, cfg)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errBody("request body is required")
		}
		return errBody("malformed request body: " + err.Error())
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errBody("malformed request body: unexpected data after JSON value")
	}
	return nil
}

func errBody(msg string) *domain.APIError {
	return domain.ErrInvalidRequest(msg).WithCode(domain.ErrorCodeInvalidBody)
}
