// Package shims implements the concrete service Shims that invoke
// backend analysis programs: one Go type per backend, each building a
// JobSpec, submitting it to the scheduler, and parsing its output back
// onto the blackboard.
package shims

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/pkg/bap"
)

// Inputs wraps a Blackboard with the accessor conventions shims use to
// read user-supplied parameters and upstream results, failing with a
// *bap.Error of CodeUserInput (never a panic) when a required value is
// absent — the shim is expected to propagate that straight into its
// Task's FAILED state.
type Inputs struct {
	bb     *blackboard.Blackboard
	dbRoot string
}

// NewInputs wraps bb, resolving database paths under dbRoot.
func NewInputs(bb *blackboard.Blackboard, dbRoot string) *Inputs {
	return &Inputs{bb: bb, dbRoot: dbRoot}
}

// Verbose reports whether the run was requested to be verbose.
func (in *Inputs) Verbose() bool {
	v, _ := in.bb.Get("user_input/verbose", false).(bool)
	return v
}

// UserInput returns the user-provided string value for param, or fails
// with CodeUserInput if absent.
func (in *Inputs) UserInput(param string) (string, error) {
	v := in.bb.Get("user_input/"+param, nil)
	if v == nil {
		return "", bap.New(bap.CodeUserInput, "required user input is missing: %s", param)
	}
	s, ok := v.(string)
	if !ok {
		return "", bap.New(bap.CodeUserInput, "user input %s is not a string", param)
	}
	return s, nil
}

// DBPath returns the path to name under the configured database root,
// failing if it is not a directory.
func (in *Inputs) DBPath(name string) (string, error) {
	path := filepath.Join(in.dbRoot, name)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", bap.New(bap.CodeUserInput, "database path not found: %s", path)
	}
	return path, nil
}

// FastqPaths returns the user-provided read files, failing if none were
// given.
func (in *Inputs) FastqPaths() ([]string, error) {
	v, _ := in.bb.Get("user_input/fastqs", nil).([]any)
	if len(v) == 0 {
		return nil, bap.New(bap.CodeUserInput, "no fastq files were provided")
	}
	return toStrings(v), nil
}

// UserContigsPath returns the user-supplied contigs file, if any.
func (in *Inputs) UserContigsPath() (string, bool) {
	s, ok := in.bb.Get("user_input/contigs", nil).(string)
	return s, ok
}

// AssembledContigsPath returns the contigs file produced by an
// assembler, failing if none was produced.
func (in *Inputs) AssembledContigsPath() (string, error) {
	s, ok := in.bb.Get("checkpoints/contigs", nil).(string)
	if !ok || s == "" {
		return "", bap.New(bap.CodeUserInput, "no contigs file was produced by an assembler")
	}
	return s, nil
}

// ContigsPath returns the assembled contigs if present, else the
// user-supplied contigs, failing if neither is available.
func (in *Inputs) ContigsPath() (string, error) {
	if path, err := in.AssembledContigsPath(); err == nil {
		return path, nil
	}
	if path, ok := in.UserContigsPath(); ok && path != "" {
		return path, nil
	}
	return "", bap.New(bap.CodeUserInput, "no contigs file was provided or produced")
}

// FastqsOrContigsPaths returns the fastqs if present, else a single
// contigs path, failing if neither is available.
func (in *Inputs) FastqsOrContigsPaths() ([]string, error) {
	if paths, err := in.FastqPaths(); err == nil {
		return paths, nil
	}
	if path, err := in.ContigsPath(); err == nil {
		return []string{path}, nil
	}
	return nil, bap.New(bap.CodeUserInput, "no fastq or contigs files were provided")
}

// Species returns the specified or detected species, failing if none is
// known yet.
func (in *Inputs) Species() (string, error) {
	s, ok := in.bb.Get("checkpoints/species", nil).(string)
	if !ok || s == "" {
		return "", bap.New(bap.CodeUserInput, "no species was specified or determined")
	}
	return s, nil
}

// AddSpecies records species as the determined species checkpoint if
// one is not already set, mirroring the original's "first writer wins"
// convention for cross-service findings.
func AddSpecies(bb *blackboard.Blackboard, species string) {
	if species == "" {
		return
	}
	if cur, ok := bb.Get("checkpoints/species", nil).(string); ok && cur != "" {
		return
	}
	bb.Put("checkpoints/species", species)
}

func toStrings(v []any) []string {
	out := make([]string, len(v))
	for i, e := range v {
		out[i] = fmt.Sprintf("%v", e)
	}
	return out
}
