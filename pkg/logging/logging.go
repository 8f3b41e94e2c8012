// Package logging builds the shared structured logger.
package logging

import (
	"encoding/json"
	"os"

	"github.com/Gobusters/ectologger"
)

// New creates the logger used by every pipeline component. Output is one JSON
// record per line on stderr; pretty mode indents for local runs.
func New(pretty bool) ectologger.Logger {
	enc := json.NewEncoder(os.Stderr)
	if pretty {
		enc.SetIndent("", "  ")
	}

	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		_ = enc.Encode(msg)
	})
}
