// internal/writers/writer.go
package writers

import (
	"fmt"
	"io"

	"phemas/internal/cli"
	"phemas/internal/output"
)

// Write renders the flattened result rows in the requested format, applying
// the presentation-only p-value sort when asked.
func Write(w io.Writer, format string, rows []output.Row, header, sortByP bool) error {
	if sortByP {
		output.SortByP(rows)
	}
	switch format {
	case cli.FormatText:
		return output.WriteTSV(w, rows, header)
	case cli.FormatJSON:
		return output.WriteJSON(w, rows)
	case cli.FormatJSONL:
		return output.WriteJSONL(w, rows)
	}
	return fmt.Errorf("unsupported output %q", format)
}
