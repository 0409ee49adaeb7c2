package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearsel/internal/cache"
	"gearsel/internal/catalog"
	"gearsel/internal/pipeline"
	"gearsel/internal/selection"
)

const rawCatalog = `{
  "hcGearboxes": [
    {"model": "HC400", "ratios": [1.5, 2.0], "transferCapacity": [0.3, 0.28], "inputSpeedRange": "1000-2100", "thrust": 82, "price": 23000},
    {"model": "HC600A", "ratios": [2.0, 2.5], "transferCapacity": [0.45, 0.42], "inputSpeedRange": [1000, 2100], "thrust": 100, "basePrice": 30000}
  ],
  "flexibleCouplings": [
    {"model": "HGTHT4.5", "torque": 4500, "maxSpeed": 2400, "weight": 45, "price": 6200},
    {"model": "HGTHT8", "torque": 8, "maxSpeed": 2400, "weight": 90, "price": 9800}
  ],
  "standbyPumps": [
    {"model": "2CY7.5/2.5D", "flow": 7.5, "pressure": 2.5, "price": 4200}
  ]
}`

func setup(t *testing.T) (dir, configPath, rawPath string) {
	t.Helper()
	dir = t.TempDir()
	configPath = filepath.Join(dir, "gearsel.yaml")
	conf := fmt.Sprintf(`log:
  level: disabled
store:
  backend: pebble
  dir: %[1]s/store
snapshot:
  dir: %[1]s/snapshots
changelog:
  sink: file
  dir: %[1]s/changelog
  file: catalog.jsonl
`, dir)
	require.NoError(t, os.WriteFile(configPath, []byte(conf), 0o644))
	rawPath = filepath.Join(dir, "raw.json")
	require.NoError(t, os.WriteFile(rawPath, []byte(rawCatalog), 0o644))
	return dir, configPath, rawPath
}

func execute(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.Bytes()
}

func TestNormalizeCommand(t *testing.T) {
	dir, conf, raw := setup(t)
	out := filepath.Join(dir, "canonical.json")
	execute(t, "normalize", "-c", conf, "-i", raw, "-o", out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var cat catalog.Catalog
	require.NoError(t, json.Unmarshal(data, &cat))
	assert.Equal(t, 5, cat.Len())
	assert.Equal(t, 4.5, cat.Couplings[0].Torque, "N·m input is stored as kN·m")
}

func TestBuildRestoreSelect(t *testing.T) {
	dir, conf, raw := setup(t)

	var rep pipeline.Report
	require.NoError(t, json.Unmarshal(execute(t, "build", "-c", conf, "-i", raw, "--report", "-"), &rep))
	assert.Equal(t, 5, rep.Changed)
	assert.NotEmpty(t, rep.SnapshotID)

	restored := filepath.Join(dir, "restored.json")
	execute(t, "restore", "-c", conf, "-o", restored)
	data, err := os.ReadFile(restored)
	require.NoError(t, err)
	var cat catalog.Catalog
	require.NoError(t, json.Unmarshal(data, &cat))
	assert.Equal(t, 5, cat.Len())

	var res selection.Result
	require.NoError(t, json.Unmarshal(execute(t, "select", "-c", conf, "-p", "300", "-n", "1800", "-r", "2", "--series", "HC", "--cache"), &res))
	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.Gearbox)
	assert.Contains(t, []string{"HC400", "HC600A"}, res.Gearbox.Model)
	require.NotNil(t, res.Coupling)
	assert.NotEmpty(t, res.Recommendations)
}

func TestSelectCache_RebuildWithoutSnapshotChangesVersion(t *testing.T) {
	dir, conf, raw := setup(t)
	t.Cleanup(func() { buildSnapshot = true })
	ctx := context.Background()
	args := []string{"select", "-c", conf, "-p", "300", "-n", "1800", "-r", "2", "--series", "HC", "--cache"}

	execute(t, "build", "-c", conf, "-i", raw, "--snapshot=false", "--report", filepath.Join(dir, "r1.json"))
	cat, v1, err := loadSelectionCatalog()
	require.NoError(t, err)
	assert.Equal(t, 5, cat.Len())

	shared := cache.NewMemoryClient()
	var first selection.Result
	require.NoError(t, json.Unmarshal(execute(t, args...), &first))
	require.True(t, first.Success, first.Message)
	require.NoError(t, cache.NewSelectionCache(shared, 0, v1).Set(ctx, "gearbox", "req", first))

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(rawCatalog), &doc))
	doc["hcGearboxes"] = doc["hcGearboxes"].([]any)[1:]
	changed, err := json.Marshal(doc)
	require.NoError(t, err)
	raw2 := filepath.Join(dir, "raw2.json")
	require.NoError(t, os.WriteFile(raw2, changed, 0o644))
	execute(t, "build", "-c", conf, "-i", raw2, "--snapshot=false", "--report", filepath.Join(dir, "r2.json"))

	_, v2, err := loadSelectionCatalog()
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)

	var stale selection.Result
	err = cache.NewSelectionCache(shared, 0, v2).Get(ctx, "gearbox", "req", &stale)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	var second selection.Result
	require.NoError(t, json.Unmarshal(execute(t, args...), &second))
	require.True(t, second.Success, second.Message)
	require.NotNil(t, second.Gearbox)
	assert.Equal(t, "HC600A", second.Gearbox.Model)
}

func TestCatalogVersion_StableForSameContent(t *testing.T) {
	a := catalog.New()
	a.Pumps = []catalog.Pump{{Model: "2CY7.5/2.5D", Flow: 7.5}}
	v1, err := catalogVersion(a)
	require.NoError(t, err)
	v2, err := catalogVersion(a.Clone())
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	a.Pumps[0].Flow = 8
	v3, err := catalogVersion(a)
	require.NoError(t, err)
	assert.NotEqual(t, v1, v3)
}

func TestPriceCommand(t *testing.T) {
	_, conf, _ := setup(t)
	var out priceOutput
	require.NoError(t, json.Unmarshal(execute(t, "price", "-c", conf, "-m", "HCM435", "--base-price", "51000"), &out))
	assert.True(t, out.FixedPrice)
	assert.Equal(t, 51000.0, out.Price.MarketPrice)
}
