package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/docky/internal/chunker"
	"github.com/rcliao/docky/internal/model"
)

func TestSplitKeepsPageNumbers(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "Tides are caused by the moon."},
		{Number: 3, Text: strings.Repeat("Wind drives currents. ", 10)},
	}

	chunks := Split("ocean.pdf", pages, chunker.Options{Size: 50, Overlap: 10})

	require.GreaterOrEqual(t, len(chunks), 3)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, "Tides are caused by the moon.", chunks[0].Text)
	for i, c := range chunks {
		assert.Equal(t, i, c.Seq)
		assert.Equal(t, "ocean.pdf", c.Document)
		if i > 0 {
			assert.Equal(t, 3, c.Page)
		}
	}
}

func TestComputeStats(t *testing.T) {
	st := ComputeStats([]model.Chunk{
		{Page: 1, Text: "abcd"},
		{Page: 1, Text: "ab"},
		{Page: 2, Text: "abc"},
	})
	assert.Equal(t, Stats{
		TotalChunks:     3,
		TotalCharacters: 9,
		AvgChunkSize:    3,
		MinChunkSize:    2,
		MaxChunkSize:    4,
		UniquePages:     2,
	}, st)

	assert.Equal(t, Stats{}, ComputeStats(nil))
}

func TestLoadPDFErrors(t *testing.T) {
	_, err := LoadPDF(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.pdf")
	require.NoError(t, os.WriteFile(bogus, []byte("not a pdf"), 0o644))
	_, err = Process(bogus, chunker.DefaultOptions())
	assert.Error(t, err)
}
