package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateDisplay_FirstFree(t *testing.T) {
	lockDir := t.TempDir()
	claimDir := t.TempDir()

	d, err := AllocateDisplay(lockDir, claimDir)
	require.NoError(t, err)
	defer d.Release()

	assert.Equal(t, displayBase, d.Number)
	assert.Equal(t, fmt.Sprintf(":%d", displayBase), d.String())
	assert.FileExists(t, filepath.Join(claimDir, fmt.Sprintf(".gui-replay-X%d-claim", d.Number)))
}

func TestAllocateDisplay_SkipsLockedNumbers(t *testing.T) {
	lockDir := t.TempDir()
	claimDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(lockDir, fmt.Sprintf(".X%d-lock", displayBase)), nil, 0o644))

	d, err := AllocateDisplay(lockDir, claimDir)
	require.NoError(t, err)
	defer d.Release()
	assert.Equal(t, displayBase+1, d.Number)
}

func TestAllocateDisplay_SkipsClaimedNumbers(t *testing.T) {
	lockDir := t.TempDir()
	claimDir := t.TempDir()

	first, err := AllocateDisplay(lockDir, claimDir)
	require.NoError(t, err)
	defer first.Release()

	second, err := AllocateDisplay(lockDir, claimDir)
	require.NoError(t, err)
	defer second.Release()

	assert.NotEqual(t, first.Number, second.Number)
}

func TestAllocateDisplay_ReleaseFreesNumber(t *testing.T) {
	lockDir := t.TempDir()
	claimDir := t.TempDir()

	d, err := AllocateDisplay(lockDir, claimDir)
	require.NoError(t, err)
	n := d.Number
	d.Release()
	d.Release() // idempotent

	again, err := AllocateDisplay(lockDir, claimDir)
	require.NoError(t, err)
	defer again.Release()
	assert.Equal(t, n, again.Number)
}

func TestAllocateDisplay_Exhausted(t *testing.T) {
	lockDir := t.TempDir()
	claimDir := t.TempDir()
	for n := displayBase; n < displayBase+displayLimit; n++ {
		require.NoError(t, os.WriteFile(filepath.Join(lockDir, fmt.Sprintf(".X%d-lock", n)), nil, 0o644))
	}

	_, err := AllocateDisplay(lockDir, claimDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no free display number")
}
