// SPDX-License-Identifier: Apache-2.0

package bap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	u := UserError("no fastq files were provided")
	assert.Equal(t, CodeUserInput, u.Code)
	assert.False(t, u.Temporary())

	s := SkipError("organism is not cholerae")
	assert.True(t, IsSkip(s))
	assert.False(t, IsUser(s))

	b := BackendError("/tmp/j1.err")
	assert.Contains(t, b.Error(), "/tmp/j1.err")
	assert.True(t, b.Temporary())
}

func TestErrorIsAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(CodeBackend, cause, "assembler failed")

	assert.ErrorIs(t, wrapped, cause)
	assert.True(t, errors.Is(wrapped, New(CodeBackend, "anything")))
	assert.False(t, errors.Is(wrapped, New(CodeUserInput, "anything")))
}
