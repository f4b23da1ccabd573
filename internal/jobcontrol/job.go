package jobcontrol

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a Job. Transitions are monotonic:
// QUEUED -> RUNNING -> {COMPLETED|FAILED}, or QUEUED -> FAILED directly.
type State string

const (
	StateQueued    State = "QUEUED"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
)

// killGrace is how long stop() waits after SIGTERM before the Scheduler's
// poll loop escalates to SIGKILL.
const killGrace = 3 * time.Second

// Job represents one external process wrapping a single invocation of a
// backend program. Jobs are owned by a Scheduler and only weakly
// referenced (by name) elsewhere.
type Job struct {
	id    string
	name  string
	spec  JobSpec
	wdir  string
	state State
	error string

	retCode  int
	hasRet   bool
	deadline time.Time
	hasDead  bool

	killAt      time.Time
	killPending bool

	cmd  *exec.Cmd
	fout *os.File
	ferr *os.File
}

// newJob constructs a QUEUED job. wdir defaults to "." when empty.
func newJob(name string, spec JobSpec, wdir string) *Job {
	if wdir == "" {
		wdir = "."
	}
	return &Job{
		id:    uuid.NewString(),
		name:  name,
		spec:  spec,
		wdir:  wdir,
		state: StateQueued,
	}
}

// ID returns a process-lifetime-unique identifier for this job,
// distinct from Name (which is caller-chosen and unique only within one
// Scheduler). Executions record it in their blackboard run_info to tie
// results back to one specific run.
func (j *Job) ID() string { return j.id }

// Name returns the job's unique (within its Scheduler) name.
func (j *Job) Name() string { return j.name }

// Spec returns the job's immutable JobSpec.
func (j *Job) Spec() JobSpec { return j.spec }

// Wdir returns the job's working directory.
func (j *Job) Wdir() string { return j.wdir }

// State returns the job's current state.
func (j *Job) State() State { return j.state }

// Error returns the human-readable failure message, non-empty iff
// State() == StateFailed.
func (j *Job) Error() string { return j.error }

// RetCode returns the exit code and whether it has been set yet (it is
// set exactly at the RUNNING->terminal transition).
func (j *Job) RetCode() (int, bool) { return j.retCode, j.hasRet }

// StdoutPath is the path of the job's stdout file, NAME.out inside wdir.
func (j *Job) StdoutPath() string { return filepath.Join(j.wdir, j.name+".out") }

// StderrPath is the path of the job's stderr file, NAME.err inside wdir.
func (j *Job) StderrPath() string { return filepath.Join(j.wdir, j.name+".err") }

func (j *Job) fail(format string, args ...any) {
	j.error = fmt.Sprintf(format, args...)
	j.state = StateFailed
}

// start transitions a QUEUED job to RUNNING: it creates wdir, opens the
// stdout/stderr files, and spawns the process with stdin closed. Any
// setup failure closes whatever files were opened and fails the job with
// the underlying error message instead.
func (j *Job) start() {
	if err := os.MkdirAll(j.wdir, 0o755); err != nil {
		j.fail("%s", err)
		return
	}

	fout, err := os.Create(j.StdoutPath())
	if err != nil {
		j.fail("%s", err)
		return
	}
	ferr, err := os.Create(j.StderrPath())
	if err != nil {
		fout.Close()
		j.fail("%s", err)
		return
	}

	cmd := exec.Command(j.spec.Command, j.spec.Args...)
	cmd.Dir = j.wdir
	cmd.Stdin = nil
	cmd.Stdout = fout
	cmd.Stderr = ferr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		fout.Close()
		ferr.Close()
		j.fail("%s", err)
		return
	}

	j.fout, j.ferr, j.cmd = fout, ferr, cmd
	if j.spec.TimSec > 0 {
		j.deadline = time.Now().Add(time.Duration(j.spec.TimSec) * time.Second)
		j.hasDead = true
	}
	j.state = StateRunning
}

// poll is a no-op unless RUNNING. It checks whether the child has
// terminated and, if so, records the exit code and transitions to
// COMPLETED or FAILED. If the child is still alive but the deadline has
// passed, it stops the job with a timeout message.
func (j *Job) poll() {
	if j.state != StateRunning {
		return
	}

	done, retCode := j.tryWait()
	if done {
		j.retCode, j.hasRet = retCode, true
		j.fout.Close()
		j.ferr.Close()
		if retCode == 0 {
			j.state = StateCompleted
		} else {
			j.fail("backend run failed, check its error log: %s", j.StderrPath())
		}
		return
	}

	if j.hasDead && time.Now().After(j.deadline) {
		j.stop(fmt.Sprintf("job exceeded its allowed run time (%ds)", j.spec.TimSec))
	}
}

// tryWait performs a non-blocking check of the child process.
func (j *Job) tryWait() (done bool, retCode int) {
	if j.cmd.ProcessState != nil {
		return true, j.cmd.ProcessState.ExitCode()
	}

	var ws syscall.WaitStatus
	pid, err := syscall.Wait4(j.cmd.Process.Pid, &ws, syscall.WNOHANG, nil)
	if err != nil || pid == 0 {
		return false, 0
	}
	if ws.Exited() {
		return true, ws.ExitStatus()
	}
	if ws.Signaled() {
		return true, -1
	}
	return false, 0
}

// stop dequeues or terminates the job and marks it FAILED, unless it is
// already terminal. From QUEUED, the job never touched any OS resource.
// From RUNNING, the process group is sent a termination signal and an
// abort line is appended to stderr before it is closed.
func (j *Job) stop(failMsg string) {
	switch j.state {
	case StateQueued:
		j.fail("job did not run: %s", failMsg)

	case StateRunning:
		if j.cmd != nil && j.cmd.Process != nil {
			_ = syscall.Kill(-j.cmd.Process.Pid, syscall.SIGTERM)
			j.killAt = time.Now().Add(killGrace)
			j.killPending = true
		}
		j.retCode, j.hasRet = -1, true
		j.fout.Close()
		fmt.Fprintf(j.ferr, "Error: job aborted: %s\n", failMsg)
		j.ferr.Close()
		j.fail("job aborted: %s", failMsg)

	default:
		// terminal: no-op
	}
}

// escalate sends SIGKILL once a job's post-SIGTERM grace period has
// elapsed. stop() marks a RUNNING job FAILED immediately, before the OS
// process has necessarily exited, so this has to be driven by the
// Scheduler's regular poll cycle rather than by the job's own state —
// there is no terminal-state guard here on purpose.
func (j *Job) escalate() {
	if !j.killPending || time.Now().Before(j.killAt) {
		return
	}
	j.killPending = false
	if j.cmd == nil || j.cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-j.cmd.Process.Pid, syscall.SIGKILL)
}
