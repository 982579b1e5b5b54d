package sourcekit

import (
	"encoding/json"

	"github.com/appstation/sourcekit/pkg/altsource"
	"github.com/appstation/sourcekit/pkg/errors"
	"github.com/appstation/sourcekit/pkg/logging"
)

// Overrides maps app keys to raw field values to force onto those apps.
// Values are document-shaped JSON: known fields (including "versions" and
// "appPermissions") decode into the typed model, anything else lands in the
// app's passthrough fields. Overrides bypass validation; they are the
// caller's escape hatch for fixing up entries by hand.
type Overrides map[string]map[string]json.RawMessage

// ApplyOverrides forces the given field values onto their apps. Keys naming
// apps absent from the source are logged and skipped.
func (m *Manager) ApplyOverrides(overrides Overrides) error {
	index := m.source.AppIndex()
	for key, fields := range overrides {
		i, ok := index[key]
		if !ok {
			logging.Warn().Str("app", key).Msg("Override target not present in source")
			continue
		}
		if len(fields) == 0 {
			continue
		}

		app := m.source.Apps[i]
		data, err := json.Marshal(app)
		if err != nil {
			return errors.WrapParse("json", key, err)
		}
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return errors.WrapParse("json", key, err)
		}
		for field, value := range fields {
			doc[field] = value
		}
		merged, err := json.Marshal(doc)
		if err != nil {
			return errors.WrapParse("json", key, err)
		}

		var updated altsource.App
		if err := json.Unmarshal(merged, &updated); err != nil {
			return errors.WrapParse("json", key, err)
		}
		m.source.Apps[i] = &updated
	}
	return nil
}
