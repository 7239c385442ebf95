package output

import (
	"encoding/json"
	"io"
)

// WriteJSON writes a run or discovery result as indented JSON to w.
func WriteJSON(w io.Writer, result any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
