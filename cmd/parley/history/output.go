package historycmder

import (
	"encoding/json"
	"io"

	"github.com/papercomputeco/parley/api"
)

func writeJSON(w io.Writer, records []api.RecordResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
