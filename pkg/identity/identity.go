// Package identity resolves caller-supplied app identifiers. A configuration
// lists refs that are either a plain external id, or a remap pairing a
// desired internal appID with the upstream bundleIdentifier. Providers need
// both readings: the flat list of fetch keys, and the lookup table that
// assigns internal ids to fetched apps.
package identity

import (
	"encoding/json"
	"fmt"
)

// Ref is one entry of an id list. A plain ref carries only ID. A remap ref
// additionally carries AppID, the internal id to assign to the app whose
// bundleIdentifier is ID.
//
// In configuration documents a plain ref is a bare string and a remap ref is
// a single-entry mapping {appID: bundleIdentifier}. Malformed shapes (for
// example multi-entry mappings) are a caller contract violation; the first
// entry wins and the rest are ignored.
type Ref struct {
	// ID is the upstream identifier: the plain id itself, or the
	// bundleIdentifier side of a remap.
	ID string
	// AppID is the internal id to assign; empty for plain refs.
	AppID string
}

// IsRemap reports whether the ref renames the upstream id.
func (r Ref) IsRemap() bool {
	return r.AppID != ""
}

// Key returns the internal identity side of the ref.
func (r Ref) Key() string {
	if r.AppID != "" {
		return r.AppID
	}
	return r.ID
}

// UnmarshalJSON accepts either a bare string or a one-entry object.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Ref{ID: s}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("id ref must be a string or a single-entry mapping: %w", err)
	}
	for appID, bundleID := range m {
		*r = Ref{ID: bundleID, AppID: appID}
		break
	}
	return nil
}

// MarshalJSON emits the configuration shape the ref was declared in.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.IsRemap() {
		return json.Marshal(map[string]string{r.AppID: r.ID})
	}
	return json.Marshal(r.ID)
}

// UnmarshalYAML accepts either a bare string or a one-entry mapping.
func (r *Ref) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		*r = Ref{ID: s}
		return nil
	}
	var m map[string]string
	if err := unmarshal(&m); err != nil {
		return fmt.Errorf("id ref must be a string or a single-entry mapping: %w", err)
	}
	for appID, bundleID := range m {
		*r = Ref{ID: bundleID, AppID: appID}
		break
	}
	return nil
}

// Flatten converts a mixed ref list to a flat list of plain ids. With
// useKeys set, remap refs contribute their internal appID; otherwise they
// contribute their upstream bundleIdentifier. Plain refs contribute their id
// either way. A nil ref list flattens to nil, meaning no filtering.
func Flatten(refs []Ref, useKeys bool) []string {
	if refs == nil {
		return nil
	}
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.IsRemap() && useKeys {
			out = append(out, r.AppID)
			continue
		}
		out = append(out, r.ID)
	}
	return out
}

// Table combines all remap refs into a single lookup table from upstream
// bundleIdentifier to internal appID. Plain refs contribute nothing.
func Table(refs []Ref) map[string]string {
	tbl := make(map[string]string)
	for _, r := range refs {
		if r.IsRemap() {
			tbl[r.ID] = r.AppID
		}
	}
	return tbl
}

// Verbatim returns the set of ids that were given as plain refs. Providers
// use this to decide whether a fetched app keeps its bundleIdentifier as its
// appID or takes the remapped one.
func Verbatim(refs []Ref) map[string]struct{} {
	set := make(map[string]struct{})
	for _, r := range refs {
		if !r.IsRemap() {
			set[r.ID] = struct{}{}
		}
	}
	return set
}
