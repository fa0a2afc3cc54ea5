package check

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expansiontools/marketcheck/pkg/errors"
)

func TestValidateArgs(t *testing.T) {
	cleaned, err := validateArgs([]string{`"C:\Profiles\Market"`, "  ", "./Traders"})
	require.NoError(t, err)
	assert.Equal(t, []string{`C:\Profiles\Market`, "./Traders"}, cleaned)
}

func TestValidateArgsRejectsRedirection(t *testing.T) {
	_, err := validateArgs([]string{"Market > out.txt"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	var argErr *errors.ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, 7, argErr.Position)

	var buf strings.Builder
	printCaret(&buf, argErr)
	assert.Equal(t, "Market > out.txt\n       ^\n", buf.String())
}

func TestExpandRootsSiblingInference(t *testing.T) {
	dir := t.TempDir()
	market := filepath.Join(dir, "Market")
	traders := filepath.Join(dir, "Traders")
	require.NoError(t, os.Mkdir(market, 0o755))
	require.NoError(t, os.Mkdir(traders, 0o755))

	assert.Equal(t, []string{market, traders}, expandRoots([]string{market}))
	assert.Equal(t, []string{traders, market}, expandRoots([]string{traders}))

	// Both given explicitly: no duplicates.
	assert.Equal(t, []string{market, traders}, expandRoots([]string{market, traders}))
}

func TestExpandRootsMarketWithoutSibling(t *testing.T) {
	dir := t.TempDir()
	market := filepath.Join(dir, "Market")
	require.NoError(t, os.Mkdir(market, 0o755))

	assert.Equal(t, []string{market}, expandRoots([]string{market}))
}

func TestExpandRootsContainingFolder(t *testing.T) {
	dir := t.TempDir()
	market := filepath.Join(dir, "Market")
	traders := filepath.Join(dir, "Traders")
	require.NoError(t, os.Mkdir(market, 0o755))
	require.NoError(t, os.Mkdir(traders, 0o755))

	assert.Equal(t, []string{market, traders}, expandRoots([]string{dir}))
}

func TestExpandRootsPlainFolder(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, []string{dir}, expandRoots([]string{dir}))
}
