package connect

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ProviderError captures a normalized failure from an outbound provider
// call: an OAuth token endpoint, a Graph API fetch, or the TikTok open
// API. Providers fill in whatever the wire response carried. Trace and
// Subcode come from the Meta error envelope (fbtrace_id, error_subcode)
// and stay zero for providers that do not send them.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Subcode     int
	Description string
	Trace       string
	Err         error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider call failed"
	}

	parts := make([]string, 0, 2)
	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}
	if e.Operation != "" {
		parts = append(parts, e.Operation)
	}
	scope := strings.Join(parts, " ")
	if scope == "" {
		scope = "provider"
	}

	switch {
	case e.Description != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Description)
	case e.Code != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}
	return fmt.Sprintf("%s failed", scope)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Metadata flattens the call details into the map shape go-errors
// metadata expects. Zero-valued fields are left out.
func (e *ProviderError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{}
	if e.Provider != "" {
		meta["provider"] = e.Provider
	}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if e.Code != "" {
		meta["code"] = e.Code
	}
	if e.Subcode != 0 {
		meta["subcode"] = e.Subcode
	}
	if e.Description != "" {
		meta["description"] = e.Description
	}
	if e.Trace != "" {
		meta["trace_id"] = e.Trace
	}

	return meta
}

// WrapProviderError folds a raw provider failure into one of the package's
// error kinds, carrying the normalized call details as metadata.
func WrapProviderError(base *goerrors.Error, provider, operation string, err error) error {
	if base == nil {
		return err
	}

	meta := map[string]any{}
	if provider != "" {
		meta["provider"] = provider
	}
	if operation != "" {
		meta["operation"] = operation
	}

	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		for k, v := range perr.Metadata() {
			meta[k] = v
		}
	} else if err != nil {
		meta["error"] = err.Error()
	}

	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if err != nil {
		clone.Source = err
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}

	return clone
}
