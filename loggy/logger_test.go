package loggy

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoFolderNoFiles(t *testing.T) {
	LogFolder = ""
	defer CloseAll()

	l := Get(1)
	l.Logf("hello %d", 1)
	require.Nil(t, l.logFile)
}

func TestConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	LogFolder = dir
	defer func() {
		CloseAll()
		LogFolder = ""
	}()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				Get(7).Debugf("line %d", i)
			}
		}()
	}
	wg.Wait()
	CloseAll()

	files, err := filepath.Glob(filepath.Join(dir, "*_7_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	b, err := os.ReadFile(files[0])
	require.NoError(t, err)
	require.Equal(t, 200, strings.Count(string(b), "DEBUG :: line"))
}
