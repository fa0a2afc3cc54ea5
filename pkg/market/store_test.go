package market

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expansiontools/marketcheck/pkg/errors"
	"github.com/expansiontools/marketcheck/pkg/logging"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRootDiscoversAndIndexes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Weapons.json", `{"Items": [{"ClassName": "AKM"}]}`)
	writeFile(t, dir, "sub/Ammo.json", `{"Items": []}`)
	writeFile(t, dir, "notes.txt", "ignored")

	s := NewStore()
	require.NoError(t, s.LoadRoot(context.Background(), dir))

	assert.Equal(t, 2, s.FilesCount())
	assert.Equal(t, []string{dir}, s.Roots())

	doc := s.Get(dir, "Weapons.json")
	require.NotNil(t, doc)
	assert.Equal(t, "weapons", doc.Category)
	assert.False(t, doc.IsTrader())

	// Category includes the subdirectory, lowercased.
	sub := s.ByCategory(dir, "sub/ammo")
	require.NotNil(t, sub)
	assert.Equal(t, filepath.Join("sub", "Ammo.json"), sub.Path)
}

func TestLoadRootSkipsUndecodableFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Good.json", `{"Items": []}`)
	writeFile(t, dir, "Bad.json", `{"Items": `)

	var buf strings.Builder
	logger := logging.New(&buf)
	ctx := logging.WithLogger(context.Background(), &logger)

	s := NewStore()
	require.NoError(t, s.LoadRoot(ctx, dir))

	assert.Equal(t, 1, s.FilesCount())
	assert.Nil(t, s.Get(dir, "Bad.json"))
	// The undecodable file is reported as a parse error, not silently dropped.
	assert.Contains(t, buf.String(), "parse error in json file")
}

func TestLoadRootMissingPath(t *testing.T) {
	s := NewStore()
	err := s.LoadRoot(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLoadRootNotADirectory(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "file.json", `{}`)

	s := NewStore()
	assert.ErrorIs(t, s.LoadRoot(context.Background(), path), errors.ErrNotADirectory)
}

func TestTraderDetection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Clothing.json", `{"Categories": ["Clothing:1"], "Items": {"Hat": 1}}`)

	s := NewStore()
	require.NoError(t, s.LoadRoot(context.Background(), dir))
	assert.True(t, s.Get(dir, "Clothing.json").IsTrader())
}

func TestAddGeneratedPicksFreeFilename(t *testing.T) {
	dir := t.TempDir()
	// An existing file on disk occupies slot 1 even though it isn't loaded.
	writeFile(t, dir, "Missing_Attachments_1.json", `{}`)

	s := NewStore()
	doc := s.AddGenerated(dir, NewObject())
	assert.Equal(t, "Missing_Attachments_2.json", doc.Path)
	assert.True(t, s.HasModified())

	// The next generated document under the same root takes the next slot.
	doc2 := s.AddGenerated(dir, NewObject())
	assert.Equal(t, "Missing_Attachments_3.json", doc2.Path)
}

func TestMarkModifiedDeduplicates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "A.json", `{"Items": []}`)

	s := NewStore()
	require.NoError(t, s.LoadRoot(context.Background(), dir))

	doc := s.Get(dir, "A.json")
	s.MarkModified(doc)
	s.MarkModified(doc)
	assert.Len(t, s.Modified(), 1)
}

func TestSaveModifiedCreatesBackup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "A.json", `{"Items": []}`)

	s := NewStore()
	require.NoError(t, s.LoadRoot(context.Background(), dir))

	doc := s.Get(dir, "A.json")
	doc.Object().Set("Touched", 0)
	s.MarkModified(doc)

	s.SaveModified(context.Background())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var backups []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".bak") {
			backups = append(backups, e.Name())
		}
	}
	require.Len(t, backups, 1)
	assert.True(t, strings.HasPrefix(backups[0], "A.json."))

	// Backup holds the prior content, the file the rewritten content.
	old, err := os.ReadFile(filepath.Join(dir, backups[0]))
	require.NoError(t, err)
	assert.Equal(t, `{"Items": []}`, string(old))

	current, err := os.ReadFile(filepath.Join(dir, "A.json"))
	require.NoError(t, err)
	assert.Contains(t, string(current), "\"Touched\"")
	assert.Contains(t, string(current), "    \"Items\"")
}

func TestSaveModifiedNewFileNoBackup(t *testing.T) {
	dir := t.TempDir()

	s := NewStore()
	content := NewObject()
	content.Set("Items", []any{})
	doc := s.AddGenerated(dir, content)

	s.SaveModified(context.Background())

	data, err := os.ReadFile(doc.FullPath())
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"Items\": []\n}", string(data))
}
