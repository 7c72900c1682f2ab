package library

import (
	"net/http"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
)

// access is the policy attached to a route. The zero value denies everyone.
type access struct {
	permitAll bool
	roles     []domain.Role
}

func permitAll() access { return access{permitAll: true} }

func rolesAllowed(roles ...domain.Role) access { return access{roles: roles} }

// allows reports whether p may call the route. Every policy requires an
// authenticated principal.
func (a access) allows(p *domain.Principal) bool {
	if p == nil {
		return false
	}
	if a.permitAll {
		return true
	}
	return p.HasAnyRole(a.roles...)
}

// route pairs an endpoint with its access policy and execution-mode gate.
type route struct {
	op          string
	method      string
	pattern     string
	access      access
	rejectSlave bool
	handle      func(rc *requestContext, r *http.Request) (*response, error)
}

func (h *Handler) routes() []route {
	return []route{
		{
			op:      "getPipelines",
			method:  http.MethodGet,
			pattern: "/",
			access:  permitAll(),
			handle:  h.getPipelines,
		},
		{
			op:      "getPipeline",
			method:  http.MethodGet,
			pattern: "/{name}",
			access:  permitAll(),
			handle:  h.getPipeline,
		},
		{
			op:          "create",
			method:      http.MethodPut,
			pattern:     "/{name}",
			access:      rolesAllowed(domain.RoleCreator, domain.RoleAdmin),
			rejectSlave: true,
			handle:      h.create,
		},
		{
			op:          "delete",
			method:      http.MethodDelete,
			pattern:     "/{name}",
			access:      rolesAllowed(domain.RoleCreator, domain.RoleAdmin),
			rejectSlave: true,
			handle:      h.delete,
		},
		{
			op:          "save",
			method:      http.MethodPost,
			pattern:     "/{name}",
			access:      rolesAllowed(domain.RoleCreator, domain.RoleAdmin),
			rejectSlave: true,
			handle:      h.save,
		},
		{
			op:      "getRules",
			method:  http.MethodGet,
			pattern: "/{name}/rules",
			access:  permitAll(),
			handle:  h.getRules,
		},
		{
			// Rule edits stay available in SLAVE mode.
			op:      "saveRules",
			method:  http.MethodPost,
			pattern: "/{name}/rules",
			access:  rolesAllowed(domain.RoleCreator, domain.RoleManager, domain.RoleAdmin),
			handle:  h.saveRules,
		},
	}
}
