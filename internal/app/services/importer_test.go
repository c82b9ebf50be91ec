package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terratensor/geohierarchy/internal/adapters/exporters"
	"github.com/terratensor/geohierarchy/internal/config"
	"github.com/terratensor/geohierarchy/internal/core/domain"
)

// fakeSource stands in for the downloader: Fetch only records the request,
// Extract writes the prepared text file next to the archive.
type fakeSource struct {
	dir      string
	files    map[string]string // archive -> text content
	fetched  []string
	fetchErr error
}

func (f *fakeSource) Fetch(_ context.Context, name string) (string, error) {
	f.fetched = append(f.fetched, name)
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	return filepath.Join(f.dir, name), nil
}

func (f *fakeSource) Extract(archivePath string) ([]string, error) {
	name := filepath.Base(archivePath)
	target := filepath.Join(f.dir, strings.TrimSuffix(name, ".zip")+".txt")
	if err := os.WriteFile(target, []byte(f.files[name]), 0o644); err != nil {
		return nil, err
	}
	return []string{target}, nil
}

type fakeRelations struct {
	resets  int
	batches [][]domain.HierarchyRelation
}

func (f *fakeRelations) ResetRelations(context.Context) error {
	f.resets++
	return nil
}

func (f *fakeRelations) InsertBatchRelations(_ context.Context, batch []domain.HierarchyRelation) error {
	f.batches = append(f.batches, append([]domain.HierarchyRelation(nil), batch...))
	return nil
}

func geoLine(id, name, class, code, cc, admin1 string) string {
	return strings.Join([]string{id, name, name, "", "1.0", "2.0", class, code, cc, "", admin1, "", "", "", "0", "", "", "UTC", "2024-01-01"}, "\t")
}

func usGazetteer() string {
	return strings.Join([]string{
		geoLine("6295630", "Earth", "L", "AREA", "", ""),
		geoLine("6255149", "North America", "L", "CONT", "", ""),
		geoLine("6252001", "United States", "A", "PCLI", "US", "00"),
		geoLine("4736286", "Texas", "A", "ADM1", "US", "TX"),
		geoLine("4671654", "Austin", "P", "PPL", "US", "TX"),
		geoLine("5128581", "New York City", "P", "PPL", "US", "NY"),
		geoLine("5391959", "San Francisco", "P", "PPL", "US", "CA"),
	}, "\n") + "\n"
}

func usAlternates() string {
	return strings.Join([]string{
		"1\t4736286\ten\tTexas State\t1",
		"2\t4671654\tes\tAustín\t1",
		"3\t6252001\ten\tUSA\t1\t1",
	}, "\n") + "\n"
}

func importerConfig(t *testing.T, parallel bool) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:       filepath.Join(t.TempDir(), "output"),
		ParallelParse: parallel,
		BatchSize:     2,
	}
}

func newTestImporter(cfg *config.Config, gazetteer, alternates string) (*Importer, *fakeSource) {
	src := &fakeSource{
		dir: cfg.DataDir,
		files: map[string]string{
			GazetteerArchive:      gazetteer,
			AlternateNamesArchive: alternates,
		},
	}
	return NewImporter(cfg, src, src, exporters.NewWriterFactory(), nil), src
}

func readDocument(t *testing.T, path string) map[string]domain.Node {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]domain.Node
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestImporter_Run_WritesDocuments(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		name := "sequential"
		if parallel {
			name = "parallel"
		}
		t.Run(name, func(t *testing.T) {
			cfg := importerConfig(t, parallel)
			imp, src := newTestImporter(cfg, usGazetteer(), usAlternates())

			res, err := imp.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []string{GazetteerArchive, AlternateNamesArchive}, src.fetched)
			assert.Equal(t, 1, res.Stats.Continents)

			hierarchy := readDocument(t, filepath.Join(cfg.DataDir, HierarchyDocument))
			assert.Len(t, hierarchy, 3)
			assert.Equal(t, []domain.Child{{ID: 6252001, Name: "United States of America"}}, hierarchy["6295630"].Children)
			assert.Equal(t, "United States of America", hierarchy["6252001"].Name)
			assert.Equal(t, []domain.Child{{ID: 4736286, Name: "Texas State"}}, hierarchy["6252001"].Children)
			// Испанское имя не подходит, остаётся исходное
			assert.Equal(t, []domain.Child{{ID: 4671654, Name: "Austin"}}, hierarchy["4736286"].Children)

			unparented := readDocument(t, filepath.Join(cfg.DataDir, UnparentedDocument))
			require.Len(t, unparented, 1)
			assert.Equal(t, "United States of America", unparented["6252001"].Name)
			assert.Equal(t, []domain.Child{
				{ID: 5128581, Name: "New York City"},
				{ID: 5391959, Name: "San Francisco"},
			}, unparented["6252001"].Children)

			_, err = os.Stat(filepath.Join(cfg.DataDir, "hierarchy.csv"))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestImporter_Run_RegeneratesDocuments(t *testing.T) {
	cfg := importerConfig(t, false)
	imp, _ := newTestImporter(cfg, usGazetteer(), usAlternates())

	_, err := imp.Run(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(cfg.DataDir, HierarchyDocument))
	require.NoError(t, err)

	_, err = imp.Run(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(cfg.DataDir, HierarchyDocument))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.True(t, strings.HasPrefix(string(first), "{\n  \"6295630\": {"), "Earth must come first")
}

func TestImporter_Run_ExportsCSV(t *testing.T) {
	cfg := importerConfig(t, false)
	cfg.ExportCSV = true
	imp, _ := newTestImporter(cfg, usGazetteer(), usAlternates())

	_, err := imp.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.DataDir, "unparented_cities.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"parent_id,child_id,child_name,relation_type\n"+
			"6252001,5128581,New York City,unparented\n"+
			"6252001,5391959,San Francisco,unparented\n",
		string(data))

	_, err = os.Stat(filepath.Join(cfg.DataDir, "hierarchy.csv"))
	assert.NoError(t, err)
}

func TestImporter_Run_PublishesRelations(t *testing.T) {
	cfg := importerConfig(t, false)
	src := &fakeSource{dir: cfg.DataDir, files: map[string]string{
		GazetteerArchive:      usGazetteer(),
		AlternateNamesArchive: usAlternates(),
	}}
	rel := &fakeRelations{}

	_, err := NewImporter(cfg, src, src, exporters.NewWriterFactory(), rel).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rel.resets)
	// 3 связи иерархии и 2 без родителя, пачками по 2
	require.Len(t, rel.batches, 3)
	assert.Len(t, rel.batches[2], 1)

	var all []domain.HierarchyRelation
	for _, b := range rel.batches {
		all = append(all, b...)
	}
	assert.Equal(t, domain.HierarchyRelation{
		ParentID: domain.EarthID, ChildID: 6252001, ChildName: "United States of America", RelationType: domain.RelationContains,
	}, all[0])
	assert.Equal(t, domain.RelationUnparented, all[4].RelationType)
	assert.Equal(t, int64(5391959), all[4].ChildID)
}

func TestImporter_Run_ParseErrorAborts(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		cfg := importerConfig(t, parallel)
		gazetteer := geoLine("1", "Testland", "A", "PCLI", "TL", "") + "\n" +
			geoLine("abc", "Broken", "P", "PPL", "TL", "01") + "\n"
		imp, _ := newTestImporter(cfg, gazetteer, usAlternates())

		_, err := imp.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), GazetteerFile+":2")

		_, statErr := os.Stat(filepath.Join(cfg.DataDir, HierarchyDocument))
		assert.True(t, os.IsNotExist(statErr), "no document on failure")
	}
}

func TestImporter_Run_AlternateNamesErrorAborts(t *testing.T) {
	cfg := importerConfig(t, true)
	imp, _ := newTestImporter(cfg, usGazetteer(), "1\t2\ten\n")

	_, err := imp.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), AlternateNamesFile)
}

func TestImporter_Run_FetchErrorAborts(t *testing.T) {
	cfg := importerConfig(t, false)
	boom := errors.New("network down")
	src := &fakeSource{dir: cfg.DataDir, fetchErr: boom}

	_, err := NewImporter(cfg, src, src, exporters.NewWriterFactory(), nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
	assert.Equal(t, []string{GazetteerArchive}, src.fetched)
}

func TestImporter_Run_CreatesStorage(t *testing.T) {
	cfg := importerConfig(t, false)
	cfg.DataDir = filepath.Join(cfg.DataDir, "nested", "deeper")
	imp, _ := newTestImporter(cfg, usGazetteer(), usAlternates())

	_, err := imp.Run(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestImporter_WithOverrides(t *testing.T) {
	cfg := importerConfig(t, false)
	imp, _ := newTestImporter(cfg, usGazetteer(), usAlternates())

	res, err := imp.WithOverrides(nil).Run(context.Background())
	require.NoError(t, err)

	n, ok := res.Hierarchy.Get(6252001)
	require.True(t, ok)
	assert.Equal(t, "USA", n.Name)
}

func TestWithContext_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := make([]domain.AlternateName, ctxCheckEvery+10)
	var seen int
	var gotErr error
	for _, err := range withContext(ctx, sliceSeq(items, nil)) {
		if err != nil {
			gotErr = err
			break
		}
		seen++
	}

	assert.ErrorIs(t, gotErr, context.Canceled)
	assert.Equal(t, ctxCheckEvery-1, seen)
}

func TestImporter_ParserConfig(t *testing.T) {
	tests := []struct {
		name         string
		parallel     bool
		showProgress bool
		want         bool
	}{
		{"parallel hides bars", true, true, false},
		{"sequential keeps bars", false, true, true},
		{"bars off stay off", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := importerConfig(t, tt.parallel)
			cfg.ShowProgress = tt.showProgress
			imp, _ := newTestImporter(cfg, "", "")

			got := imp.parserConfig()
			assert.Equal(t, tt.want, got.ShowProgress)
			assert.Equal(t, cfg.DataDir, got.DataDir)
			// Исходная конфигурация не меняется
			assert.Equal(t, tt.showProgress, cfg.ShowProgress)
		})
	}
}
