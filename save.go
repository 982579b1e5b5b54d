package sourcekit

import (
	"github.com/appstation/sourcekit/pkg/errors"
)

// Save writes the document back to the path it was loaded from. With pretty
// set the output is indented; with full set the deprecated mirror fields and
// passthrough fields are kept instead of stripped.
func (m *Manager) Save(pretty, full bool) error {
	if m.path == "" {
		return errors.NewConfigError("manager", "no source file path configured", nil)
	}
	return m.source.Save(m.path, pretty, full)
}

// SaveAs writes the document to path.
func (m *Manager) SaveAs(path string, pretty, full bool) error {
	return m.source.Save(path, pretty, full)
}
