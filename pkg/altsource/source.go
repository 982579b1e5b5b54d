// Package altsource implements the canonical, versioned application catalog
// document: a source listing apps, their version histories and permissions,
// and news articles. Entities are explicit records with declarative
// required-key validation and an unknown-field side channel that keeps
// schema additions intact across a load/save cycle.
package altsource

import (
	"encoding/json"
	"os"

	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/logging"
)

// APIVersion is the source schema generation this module reads and writes.
const APIVersion = "v2"

// Source is the top-level catalog document. Apps and News keep their
// insertion order; that order is the display order.
type Source struct {
	Name         string                     `json:"name"`
	Subtitle     string                     `json:"subtitle,omitempty"`
	Identifier   string                     `json:"identifier"`
	APIVersion   string                     `json:"apiVersion,omitempty"`
	Description  string                     `json:"description,omitempty"`
	IconURL      string                     `json:"iconURL,omitempty"`
	HeaderURL    string                     `json:"headerURL,omitempty"`
	Website      string                     `json:"website,omitempty"`
	TintColor    string                     `json:"tintColor,omitempty"`
	FeaturedApps []string                   `json:"featuredApps,omitempty"`
	Apps         []*App                     `json:"apps"`
	News         []*Article                 `json:"news,omitempty"`
	UserInfo     map[string]json.RawMessage `json:"userinfo,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type sourceAlias Source

var sourceKeys = jsonKeys(Source{})

// UnmarshalJSON decodes a Source, capturing unknown fields in Extra.
func (s *Source) UnmarshalJSON(data []byte) error {
	var a sourceAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Extra = extraFields(data, sourceKeys)
	*s = Source(a)
	return nil
}

// MarshalJSON encodes a Source, splicing Extra back in.
func (s Source) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(sourceAlias(s))
	if err != nil {
		return nil, err
	}
	return appendExtra(b, s.Extra)
}

// New creates an empty Source with the given name and identifier.
func New(name, identifier string) *Source {
	return &Source{
		Name:       name,
		Identifier: identifier,
		APIVersion: APIVersion,
		Apps:       []*App{},
	}
}

// Parse decodes a source document. The schema tag is stamped to the current
// generation and missing required keys are warned, not rejected: callers
// that need strict validity check IsValid themselves.
func Parse(data []byte) (*Source, error) {
	var src Source
	if err := json.Unmarshal(data, &src); err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	src.APIVersion = APIVersion

	if missing := src.MissingKeys(); len(missing) > 0 {
		logging.Warn().Strs("missing_keys", missing).Msg("Source document missing required keys")
	}
	for _, app := range src.Apps {
		if missing := app.MissingKeys(); len(missing) > 0 {
			logging.Warn().
				Str("app", app.Name).
				Strs("missing_keys", missing).
				Msg("App missing required keys")
		}
		if app.AppPermissions != nil {
			if unknown := app.AppPermissions.UnknownPrivacyTypes(); len(unknown) > 0 {
				logging.Warn().
					Str("app", app.Name).
					Strs("privacy", unknown).
					Msg("Privacy names not found in known types")
			}
		}
	}
	return &src, nil
}

// Load reads and parses a source document from disk.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	src, err := Parse(data)
	if err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	return src, nil
}

// MissingKeys returns the required keys absent from the Source.
func (s *Source) MissingKeys() []string {
	var missing []string
	if s.Name == "" {
		missing = append(missing, "name")
	}
	if s.Identifier == "" {
		missing = append(missing, "identifier")
	}
	if s.Apps == nil {
		missing = append(missing, "apps")
	}
	return missing
}

// IsValid reports whether the Source and all of its Apps and News validate.
func (s *Source) IsValid() bool {
	for _, app := range s.Apps {
		if !app.IsValid() {
			return false
		}
	}
	for _, art := range s.News {
		if !art.IsValid() {
			return false
		}
	}
	return len(s.MissingKeys()) == 0
}

// AppIndex returns a map from identity key to position in the Apps slice.
func (s *Source) AppIndex() map[string]int {
	idx := make(map[string]int, len(s.Apps))
	for i, app := range s.Apps {
		idx[app.Key()] = i
	}
	return idx
}

// FindApp returns the App with the given identity key, or nil.
func (s *Source) FindApp(key string) *App {
	for _, app := range s.Apps {
		if app.Key() == key {
			return app
		}
	}
	return nil
}

// NewsIndex returns a map from article identifier to position in News.
func (s *Source) NewsIndex() map[string]int {
	idx := make(map[string]int, len(s.News))
	for i, art := range s.News {
		idx[art.Identifier] = i
	}
	return idx
}

// Clone returns a deep copy of the Source.
func (s *Source) Clone() *Source {
	if s == nil {
		return nil
	}
	out := *s
	out.Extra = cloneExtra(s.Extra)
	out.UserInfo = cloneExtra(s.UserInfo)
	if s.FeaturedApps != nil {
		out.FeaturedApps = append([]string(nil), s.FeaturedApps...)
	}
	if s.Apps != nil {
		out.Apps = make([]*App, len(s.Apps))
		for i, app := range s.Apps {
			out.Apps[i] = app.Clone()
		}
	}
	if s.News != nil {
		out.News = make([]*Article, len(s.News))
		for i, art := range s.News {
			out.News[i] = art.Clone()
		}
	}
	return &out
}

// Marshal serializes the Source. With pretty set, the document uses 2-space
// indentation, otherwise no whitespace; either way it ends with exactly one
// trailing newline. With full set, the deprecated mirror fields and unknown
// extension fields are written out; otherwise only the standard document
// properties are kept.
func (s *Source) Marshal(pretty, full bool) ([]byte, error) {
	out := s
	if !full {
		out = s.Clone()
		out.Extra = nil
		for _, app := range out.Apps {
			app.stripLegacy()
		}
		for _, art := range out.News {
			art.Extra = nil
		}
	}

	var data []byte
	var err error
	if pretty {
		data, err = json.MarshalIndent(out, "", "  ")
	} else {
		data, err = json.Marshal(out)
	}
	if err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	return append(data, '\n'), nil
}

// Save writes the Source to disk. See Marshal for the pretty and full knobs.
func (s *Source) Save(path string, pretty, full bool) error {
	data, err := s.Marshal(pretty, full)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
