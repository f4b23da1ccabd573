package shims

import (
	"testing"

	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/internal/execution"
	"github.com/kcri-tz/kcri-cge-bap/internal/workflow"
	"github.com/kcri-tz/kcri-cge-bap/pkg/bap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnimplementedShimAlwaysFailsWithSkipCode(t *testing.T) {
	bb := blackboard.New(false)
	shim := UnimplementedShim{Name: "MLSTFinder"}

	task, err := shim.Execute(workflow.Service("MLSTFINDER"), bb, nil)
	require.NoError(t, err)
	assert.Equal(t, execution.StateFailed, task.State())

	var bapErr *bap.Error
	require.ErrorAs(t, task.Err(), &bapErr)
	assert.Equal(t, bap.CodeSkip, bapErr.Code)
}
