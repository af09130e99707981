package template

import (
	"encoding/json"
	"fmt"

	"github.com/cbroglie/mustache"

	"github.com/corvus-sh/orchd/corvuserr"
	"github.com/corvus-sh/orchd/model"
)

// Render expands a Mustache-style template string against a TemplateData
// context (§6.3: "three scopes in the root context: vars, networks,
// cargoes ... Expansion is pure: given the same context, output is
// byte-identical"). Used for both cargo-env substitution and proxy/DNS
// projection, just at different points in the flow.
//
// mustache.Render looks keys up by exact, case-sensitive Go field name when
// handed a struct, which would miss every snake_case key spec.md's
// templates use (target_ip, target_ips, ...). Marshaling data to JSON
// first and unmarshaling into a plain map makes the struct's json tags the
// source of truth for the keys mustache actually sees.
func Render(content string, data model.TemplateData) (string, error) {
	ctx, err := toMustacheContext(data)
	if err != nil {
		return "", corvuserr.Wrap(corvuserr.TemplateRender, fmt.Sprintf("failed to build template context for %q", truncate(content, 40)), err)
	}

	out, err := mustache.Render(content, ctx)
	if err != nil {
		return "", corvuserr.Wrap(corvuserr.TemplateRender, fmt.Sprintf("failed to render template %q", truncate(content, 40)), err)
	}
	return out, nil
}

// toMustacheContext round-trips data through encoding/json so its struct
// fields surface under their json tags (snake_case) rather than their Go
// field names.
func toMustacheContext(data model.TemplateData) (map[string]interface{}, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var ctx map[string]interface{}
	if err := json.Unmarshal(raw, &ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// RenderEnvValue expands a single cargo env value against the cluster's
// variable scope only (§4.3 step 1: "rendering each value through the
// cluster's variable map"). networks and cargoes are not yet resolved at
// this point in JoinCargo, so they are left empty.
func RenderEnvValue(value string, vars map[string]string) (string, error) {
	return Render(value, model.TemplateData{Vars: vars})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
