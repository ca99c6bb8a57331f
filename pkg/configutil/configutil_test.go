package configutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Database Database `json:"database"`
	Site     struct {
		BaseUrl        string `json:"base_url"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	} `json:"site"`
	Sports []string `json:"sports"`
}

func writeFile(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "courtwatch.json5"), `{
		// comments are allowed
		database: { file: "courts.db" },
		site: { base_url: "https://example.test", timeout_seconds: 30 },
		sports: ["tennis"],
	}`)
	writeFile(t, filepath.Join(dir, "courtwatch.local.json5"), `{
		site: { timeout_seconds: 5 },
	}`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "courtwatch.json5"))
	require.NoError(t, err)
	require.Equal(t, "courts.db", config.Database.File)
	require.Equal(t, "https://example.test", config.Site.BaseUrl)
	require.Equal(t, 5, config.Site.TimeoutSeconds)
	require.Equal(t, []string{"tennis"}, config.Sports)

	_, err = ReadConfig[testConfig](filepath.Join(dir, "missing.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	writeFile(t, filepath.Join(root, "courtwatch.json5"), `{ database: { file: "found.db" } }`)

	config, path, err := ReadRecursively[testConfig](nested, "courtwatch.json5")
	require.NoError(t, err)
	require.Equal(t, "found.db", config.Database.File)
	require.Equal(t, filepath.Join(root, "courtwatch.json5"), path)

	_, _, err = ReadRecursively[testConfig](nested, "nothing-here.json5")
	require.True(t, os.IsNotExist(err))
}

func TestWithDefaults(t *testing.T) {
	var defaults testConfig
	defaults.Database.File = "courts.db"
	defaults.Site.TimeoutSeconds = 30

	var config testConfig
	config.Site.TimeoutSeconds = 10

	merged, err := WithDefaults(config, defaults)
	require.NoError(t, err)
	require.Equal(t, "courts.db", merged.Database.File)
	require.Equal(t, 10, merged.Site.TimeoutSeconds)
}

func TestOpenDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "courts.db")
	db, err := Database{File: path}.OpenDB(context.Background(), "create table if not exists example (id integer primary key);")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("insert into example (id) values (1)")
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = Database{}.OpenDB(context.Background(), "")
	require.Error(t, err)
}
