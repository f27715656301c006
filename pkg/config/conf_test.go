package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	testDir := t.TempDir()

	c1, err := ReadOrCreate(testDir)
	assert.NoError(t, err)
	assert.NotNil(t, c1)
	assert.Equal(t, int64(15), c1.Thresholds.MinIntronSize)

	c1.Thresholds.MinIntronSize = 30
	c1.Thresholds.ApplyAll = true
	c1.Sources.Database = "lof.db"

	err = Save(testDir, c1)
	assert.NoError(t, err)

	c2, err := ReadOrCreate(testDir)
	assert.NoError(t, err)
	assert.NotNil(t, c2)
	assert.Equal(t, c1.Thresholds.MinIntronSize, c2.Thresholds.MinIntronSize)
	assert.Equal(t, c1.Thresholds.ApplyAll, c2.Thresholds.ApplyAll)
	assert.Equal(t, c1.Sources.Database, c2.Sources.Database)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  apply_all: true\n"), 0600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.Thresholds.ApplyAll)
	assert.Equal(t, 0.98, c.Thresholds.DeNovoDonorCutoff)
	assert.Equal(t, "linear", c.Sources.Kernel)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "thresholds: [\n"},
		{"negative intron size", "thresholds:\n  min_intron_size: -1\n"},
		{"cutoff out of range", "thresholds:\n  denovo_donor_cutoff: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	c := Default()
	c.Thresholds.CheckCompleteCDS = true
	o := c.Options()
	assert.Equal(t, int64(15), o.MinIntronSize)
	assert.True(t, o.CheckCompleteCDS)
	assert.Equal(t, 0.98, o.DeNovoDonorCutoff)

	s := c.SpliceThresholds()
	assert.Equal(t, int64(15), s.MaxScanDistance)
	assert.Equal(t, int64(200), s.MaxDeNovoDonorDistance)
}

func TestSave_Errors(t *testing.T) {
	assert.Error(t, Save("", Default()))
	assert.Error(t, Save(t.TempDir(), nil))
	_, err := ReadOrCreate("")
	assert.Error(t, err)
}

func TestGetOrCreateHomeDir_EmptyName(t *testing.T) {
	_, _, err := GetOrCreateHomeDir("")
	assert.Error(t, err)
}
