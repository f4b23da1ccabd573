// Package jobcontrol implements the resource-constrained subprocess
// scheduler: JobSpec, Job, and Scheduler.
package jobcontrol

// JobSpec is the immutable description of a job: the command to run, its
// arguments, and the resources it requires.
type JobSpec struct {
	Command string
	Args    []string

	// CPU is the number of cores required.
	CPU int
	// MemGB is the memory required, in gigabytes.
	MemGB int
	// SpcGB is the disk space required, in gigabytes.
	SpcGB int
	// TimSec is the maximum wall-clock run time in seconds; 0 means no
	// per-job limit.
	TimSec int
}

// NewJobSpec builds a JobSpec with the given command, string-ified
// arguments, and resource requirements.
func NewJobSpec(command string, args []string, cpu, memGB, spcGB, timSec int) JobSpec {
	return JobSpec{
		Command: command,
		Args:    args,
		CPU:     cpu,
		MemGB:   memGB,
		SpcGB:   spcGB,
		TimSec:  timSec,
	}
}

// AsDict flattens the spec to a nested map suitable for storing on the
// blackboard (mirrors the Python JobSpec.as_dict()).
func (s JobSpec) AsDict() map[string]any {
	return map[string]any{
		"command": s.Command,
		"args":    s.Args,
		"resources": map[string]any{
			"cpu": s.CPU,
			"mem": s.MemGB,
			"spc": s.SpcGB,
			"tim": s.TimSec,
		},
	}
}
