package shims

import (
	"path/filepath"
	"testing"

	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/internal/execution"
	"github.com/kcri-tz/kcri-cge-bap/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinReadsSingleEnd(t *testing.T) {
	assert.Equal(t, "a.fq", joinReads([]string{"a.fq"}))
}

func TestJoinReadsPaired(t *testing.T) {
	assert.Equal(t, "a.fq,b.fq", joinReads([]string{"a.fq", "b.fq"}))
}

func TestCollectAssemblerOutputCountsContigsAndLength(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "contigs.fna"), ">contig1\nACGTACGT\n>contig2\nACGT\n")

	bb := blackboard.New(false)
	job := testJob(dir)

	require.NoError(t, collectAssemblerOutput(bb, job, "ASSEMBLER"))

	results, ok := bb.Get("services/ASSEMBLER/results", nil).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, results["num_contigs"])
	assert.Equal(t, 12, results["total_len"])

	contigsPath, ok := bb.Get("checkpoints/contigs", nil).(string)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "contigs.fna"), contigsPath)
}

func TestCollectAssemblerOutputFailsWhenContigsFileMissing(t *testing.T) {
	dir := t.TempDir()
	bb := blackboard.New(false)
	job := testJob(dir)

	err := collectAssemblerOutput(bb, job, "ASSEMBLER")
	assert.Error(t, err)
}

func TestAssemblerShimFailsFastWithoutReads(t *testing.T) {
	bb := blackboard.New(false)
	shim := AssemblerShim{Version: "1.0"}

	target := workflow.Service("ASSEMBLER")
	task, err := shim.Execute(target, bb, nil)
	require.NoError(t, err)
	assert.Equal(t, execution.StateFailed, task.State())
}
