package shims

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/internal/jobcontrol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFindKmerFinderDBResolvesTaxFile(t *testing.T) {
	dbDir := t.TempDir()
	writeFile(t, filepath.Join(dbDir, "config"), "bacteria.ATG\tAll bacteria\tv1\n")
	writeFile(t, filepath.Join(dbDir, "bacteria.ATG.seq.b"), "x")
	writeFile(t, filepath.Join(dbDir, "bacteria.tax"), "x")

	path, tax, err := findKmerFinderDB(dbDir, "bacteria")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dbDir, "bacteria.ATG"), path)
	assert.Equal(t, filepath.Join(dbDir, "bacteria.tax"), tax)
}

func TestFindKmerFinderDBUnknownName(t *testing.T) {
	dbDir := t.TempDir()
	writeFile(t, filepath.Join(dbDir, "config"), "bacteria.ATG\tAll bacteria\tv1\n")

	_, _, err := findKmerFinderDB(dbDir, "archaea")
	assert.Error(t, err)
}

func TestCollectKmerFinderOutputParsesTaxFile(t *testing.T) {
	dir := t.TempDir()
	header := "line1\n"
	row := make([]string, 19)
	for i := range row {
		row[i] = "0"
	}
	row[13], row[14] = "GCF_000001", "Escherichia coli strain"
	row[2], row[5], row[6] = "99", "0.95", "0.90"
	row[15], row[16], row[17], row[18] = "562", "Bacteria;Proteobacteria", "562", "Escherichia coli"
	content := header
	for i, f := range row {
		if i > 0 {
			content += "\t"
		}
		content += f
	}
	content += "\n"
	writeFile(t, filepath.Join(dir, "results.txt"), content)

	bb := blackboard.New(false)
	job := testJob(dir)

	require.NoError(t, collectKmerFinderOutput(bb, job, "KMERFINDER"))

	species, ok := bb.Get("checkpoints/species", nil).(string)
	require.True(t, ok)
	assert.Equal(t, "Escherichia coli", species)

	results, ok := bb.Get("services/KMERFINDER/results", nil).([]KmerFinderHit)
	require.True(t, ok)
	require.Len(t, results, 1)
}

func testJob(wdir string) *jobcontrol.Job {
	s := jobcontrol.NewScheduler(jobcontrol.WithTotals(1, 1, 1, 0))
	j, _ := s.ScheduleJob("t", jobcontrol.NewJobSpec("true", nil, 1, 1, 1, 0), wdir)
	return j
}
