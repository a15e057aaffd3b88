package connect

import "strings"

// GranularScope is a Graph API granular permission grant: a scope name
// plus the asset ids it applies to. Only the scope name participates in
// permission checks.
type GranularScope struct {
	Scope     string   `json:"scope"`
	TargetIDs []string `json:"target_ids,omitempty"`
}

// RequiredInstagramScopes are the permissions the Instagram business
// account traversal cannot work without.
var RequiredInstagramScopes = []string{"pages_show_list", "instagram_basic"}

// MissingPermissions returns the required scopes absent from the union of
// granted scopes and granular scope entries. Matching is case-insensitive;
// the result preserves the order of required, so callers get deterministic
// output regardless of what the provider returned.
func MissingPermissions(granted []string, granular []GranularScope, required []string) []string {
	have := make(map[string]struct{}, len(granted)+len(granular))
	for _, s := range granted {
		if s = strings.TrimSpace(s); s != "" {
			have[strings.ToLower(s)] = struct{}{}
		}
	}
	for _, g := range granular {
		if s := strings.TrimSpace(g.Scope); s != "" {
			have[strings.ToLower(s)] = struct{}{}
		}
	}

	missing := []string{}
	for _, want := range required {
		if _, ok := have[strings.ToLower(want)]; !ok {
			missing = append(missing, want)
		}
	}
	return missing
}
