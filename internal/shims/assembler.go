package shims

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/internal/execution"
	"github.com/kcri-tz/kcri-cge-bap/internal/jobcontrol"
	"github.com/kcri-tz/kcri-cge-bap/internal/scratch"
	"github.com/kcri-tz/kcri-cge-bap/internal/workflow"
	"github.com/kcri-tz/kcri-cge-bap/pkg/bap"
)

const (
	assemblerService = "Assembler"
	assemblerMaxCPU  = 8
	assemblerMaxMem  = 16
	assemblerMaxSpc  = 10
	assemblerMaxTim  = 60 * 60
)

// AssemblerShim assembles paired or single-end Illumina reads into
// contigs via the SKESA backend, grounded on the original's Assembler
// service wrapper (which itself only wires up SKESA; SPAdes is left
// unimplemented there too).
type AssemblerShim struct {
	Version string
	Scratch *scratch.Manager
}

func (s AssemblerShim) Execute(service workflow.Target, bb *blackboard.Blackboard, sched *jobcontrol.Scheduler) (execution.Task, error) {
	ident := service.ID
	in := NewInputs(bb, "")

	reads, err := in.FastqPaths()
	if err != nil {
		return failedTask(ident, assemblerService, s.Version, bb, err), nil
	}

	wdir, err := acquireScratch(s.Scratch, "assembler-"+ident)
	if err != nil {
		return failedTask(ident, assemblerService, s.Version, bb, err), nil
	}

	args := []string{"--cores", "8", "--contigs_out", "contigs.fna"}
	args = append(args, "--reads", joinReads(reads))

	spec := jobcontrol.NewJobSpec("skesa", args, assemblerMaxCPU, assemblerMaxMem, assemblerMaxSpc, assemblerMaxTim)
	job, err := sched.ScheduleJob("assembler-"+ident, spec, wdir)
	if err != nil {
		releaseScratch(s.Scratch, "assembler-"+ident)
		return failedTask(ident, assemblerService, s.Version, bb, bap.Wrap(bap.CodeInvariant, err, "could not schedule assembler job")), nil
	}

	exec := execution.NewServiceExecution(ident, assemblerService, s.Version, job, bb, func(bb *blackboard.Blackboard, job *jobcontrol.Job) error {
		return collectAssemblerOutput(bb, job, ident)
	})
	exec.SetOnTerminal(func() { releaseScratch(s.Scratch, "assembler-"+ident) })
	return exec, nil
}

func joinReads(reads []string) string {
	out := reads[0]
	for _, r := range reads[1:] {
		out += "," + r
	}
	return out
}

func collectAssemblerOutput(bb *blackboard.Blackboard, job *jobcontrol.Job, ident string) error {
	contigsPath := filepath.Join(job.Wdir(), "contigs.fna")
	f, err := os.Open(contigsPath)
	if err != nil {
		return bap.Wrap(bap.CodeBackend, err, "assembler ran but produced no contigs file")
	}
	defer f.Close()

	nContigs, totalLen := 0, 0
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1<<20)
	scanner.Buffer(buf, 1<<24)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			nContigs++
			continue
		}
		totalLen += len(line)
	}

	bb.Put("checkpoints/contigs", contigsPath)
	bb.Put(fmt.Sprintf("services/%s/results", ident), map[string]any{
		"contigs":     contigsPath,
		"num_contigs": nContigs,
		"total_len":   totalLen,
	})
	return nil
}
