package scanner

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var update = flag.Bool("update", false, "update golden files")

func TestEmitGolden(t *testing.T) {
	matches, err := filepath.Glob("testdata/*.xml")
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no testdata inputs")

	for _, inFile := range matches {
		t.Run(filepath.Base(inFile), func(t *testing.T) {
			f, err := os.Open(inFile)
			require.NoError(t, err)
			defer f.Close()

			protocols, perr := Parse(f, inFile)
			require.NoError(t, perr)

			var buf bytes.Buffer
			require.NoError(t, NewEmitter(&buf).Emit(protocols))

			goldenFile := strings.TrimSuffix(inFile, ".xml") + "_golden.zig"
			if *update {
				require.NoError(t, os.WriteFile(goldenFile, buf.Bytes(), 0644))
			}

			expected, err := os.ReadFile(goldenFile)
			if os.IsNotExist(err) {
				t.Fatalf("golden file %s missing, run with -update to generate", goldenFile)
			}
			require.NoError(t, err)

			if !bytes.Equal(expected, buf.Bytes()) {
				t.Errorf("content mismatch for %s. Run with -update to fix.\ngot:\n%s", goldenFile, buf.String())
			}
		})
	}
}
