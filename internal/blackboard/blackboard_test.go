package blackboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutGetRoundTrip(t *testing.T) {
	bb := New(false)
	bb.Put("services/assembler/results/contigs", "contigs.fa")

	assert.Equal(t, "contigs.fa", bb.Get("services/assembler/results/contigs", nil))
	assert.Nil(t, bb.Get("services/assembler/results/missing", nil))
	assert.Equal(t, "fallback", bb.Get("nope/nope", "fallback"))
}

func TestPutOverwritesAndCreatesIntermediateMaps(t *testing.T) {
	bb := New(false)
	bb.Put("a/b/c", 1)
	bb.Put("a/b/c", 2)
	assert.Equal(t, 2, bb.Get("a/b/c", nil))

	m, ok := bb.Get("a/b", nil).(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, 2, m["c"])
}

func TestAppendToPlain(t *testing.T) {
	bb := New(false)
	bb.AppendTo("warnings", "low coverage", false)
	bb.AppendTo("warnings", "low coverage", false)

	got := bb.Get("warnings", nil).([]any)
	assert.Equal(t, []any{"low coverage", "low coverage"}, got)
}

func TestAppendToUniqSkipsDuplicates(t *testing.T) {
	bb := New(false)
	bb.AppendTo("warnings", "low coverage", true)
	bb.AppendTo("warnings", "low coverage", true)
	bb.AppendTo("warnings", "contamination", true)

	got := bb.Get("warnings", nil).([]any)
	assert.Equal(t, []any{"low coverage", "contamination"}, got)
}

func TestAppendToFlattensSliceValues(t *testing.T) {
	bb := New(false)
	bb.AppendTo("warnings", []any{"a", "b"}, false)
	bb.AppendTo("warnings", "c", false)

	got := bb.Get("warnings", nil).([]any)
	assert.Equal(t, []any{"a", "b", "c"}, got)
}

func TestLogAndAsDict(t *testing.T) {
	bb := New(false)
	bb.Put("x", 1)
	bb.Log("hello %s", "world")

	withLog := bb.AsDict(true)
	lines, ok := withLog["log"].([]any)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, len(lines), 2) // "log started" + "hello world"
	assert.Equal(t, 1, withLog["x"])

	withoutLog := bb.AsDict(false)
	_, hasLog := withoutLog["log"]
	assert.False(t, hasLog)
}

func TestAsDictIsADeepCopy(t *testing.T) {
	bb := New(false)
	bb.Put("a/b", 1)

	snap := bb.AsDict(false)
	snap["a"].(map[string]any)["b"] = 999

	assert.Equal(t, 1, bb.Get("a/b", nil))
}
