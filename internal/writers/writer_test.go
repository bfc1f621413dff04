// internal/writers/writer_test.go
package writers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phemas-core/fitter"
	"phemas/internal/cli"
	"phemas/internal/output"
)

func sampleRows() []output.Row {
	return []output.Row{
		{Predictor: "x", Result: fitter.Result{Phenotype: "b", Status: fitter.StatusSuccess, P: 0.2}},
		{Predictor: "x", Result: fitter.Result{Phenotype: "a", Status: fitter.StatusSuccess, P: 0.01}},
	}
}

func TestWrite_TextKeepsInputOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cli.FormatText, sampleRows(), true, false))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "b", strings.Split(lines[1], "\t")[1])
}

func TestWrite_SortByP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cli.FormatText, sampleRows(), false, true))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, "a", strings.Split(lines[0], "\t")[1])
}

func TestWrite_Formats(t *testing.T) {
	for _, format := range []string{cli.FormatText, cli.FormatJSON, cli.FormatJSONL} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, format, sampleRows(), true, false), format)
		assert.NotEmpty(t, buf.String(), format)
	}

	err := Write(io.Discard, "yaml", sampleRows(), true, false)
	assert.ErrorContains(t, err, `unsupported output "yaml"`)
}

func TestIsBrokenPipe(t *testing.T) {
	assert.True(t, IsBrokenPipe(syscall.EPIPE))
	assert.True(t, IsBrokenPipe(fmt.Errorf("write: %w", io.ErrClosedPipe)))
	assert.False(t, IsBrokenPipe(nil))
	assert.False(t, IsBrokenPipe(errors.New("disk full")))
}
