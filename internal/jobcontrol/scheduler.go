package jobcontrol

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/kcri-tz/kcri-cge-bap/pkg/logging"
)

// Scheduler owns a pool of cpu/mem/disk resources and runs JobSpecs
// against it, single-threaded and poll-based. The only blocking call is
// Listen; everything else is synchronous from the caller's goroutine.
type Scheduler struct {
	totCPU, totMem, totSpc int
	totTim                 int // seconds, 0 = unlimited
	freeCPU, freeMem, freeSpc int

	deadline    time.Time
	hasDeadline bool

	pollInterval time.Duration
	log          logging.Logger

	names []string
	jobs  map[string]*Job
	dirty bool

	mu sync.Mutex // guards jobs/names/dirty; the core itself drives the scheduler from one goroutine
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithTotals fixes the total resource pool. Any zero value is replaced
// by the system-introspected default: all cores, 90% of physical memory,
// 80% of free disk under the current directory, unlimited wall time.
func WithTotals(cpu, memGB, spcGB, timSec int) Option {
	return func(s *Scheduler) {
		s.totCPU, s.totMem, s.totSpc, s.totTim = cpu, memGB, spcGB, timSec
	}
}

// WithPollInterval sets the interval Listen sleeps between polls.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.pollInterval = d }
}

// WithLogger attaches an operational logger; defaults to a no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// NewScheduler constructs a Scheduler. Defaults (all cpus, 90% of
// physical memory, 80% of free disk, unlimited time, 5s poll interval)
// apply to any dimension left at zero by the options.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		pollInterval: 5 * time.Second,
		log:          logging.NoOpLogger{},
		jobs:         make(map[string]*Job),
		dirty:        false,
	}
	for _, o := range opts {
		o(s)
	}

	if s.totCPU == 0 {
		s.totCPU = runtime.NumCPU()
	}
	if s.totMem == 0 {
		s.totMem = int(0.9 * float64(systemMemoryGB()))
	}
	if s.totSpc == 0 {
		s.totSpc = int(0.8 * float64(freeDiskGB(".")))
	}
	s.freeCPU, s.freeMem, s.freeSpc = s.totCPU, s.totMem, s.totSpc

	s.log.Info("job scheduler started", "tot_cpu", s.totCPU, "tot_mem", s.totMem, "tot_spc", s.totSpc)
	return s
}

// MaxCPU returns the scheduler's total cpu pool.
func (s *Scheduler) MaxCPU() int { return s.totCPU }

// MaxMem returns the scheduler's total memory pool, in gigabytes.
func (s *Scheduler) MaxMem() int { return s.totMem }

// ScheduleJob registers a new job under the unique name, according to
// spec, running in wdir (default current directory). If the
// requirements exceed the scheduler's totals, the returned job is
// already FAILED with a dedicated message (the returned error is nil;
// it is set only for a duplicate name). Otherwise it attempts to start
// the job right away.
func (s *Scheduler) ScheduleJob(name string, spec JobSpec, wdir string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return nil, fmt.Errorf("not a unique job name: %s", name)
	}

	if len(s.jobs) == 0 && s.totTim > 0 {
		s.deadline = time.Now().Add(time.Duration(s.totTim) * time.Second)
		s.hasDeadline = true
		s.log.Info("scheduler deadline set", "deadline", s.deadline.Format(time.RFC3339))
	}

	job := newJob(name, spec, wdir)
	s.names = append(s.names, name)
	s.jobs[name] = job

	if spec.CPU > s.totCPU || spec.MemGB > s.totMem || spec.SpcGB > s.totSpc {
		job.fail("job requirements exceed available system resources")
	} else {
		s.tryStart(job)
	}

	if job.state == StateCompleted || job.state == StateFailed {
		s.dirty = true
	}

	s.log.Info("job schedule", "job", job.name, "state", string(job.state))
	return job, nil
}

// tryStart starts a QUEUED job if its requirements currently fit within
// the free resources.
func (s *Scheduler) tryStart(job *Job) {
	if job.spec.CPU <= s.freeCPU && job.spec.MemGB <= s.freeMem && job.spec.SpcGB <= s.freeSpc {
		job.start()
		if job.state == StateRunning {
			s.freeCPU -= job.spec.CPU
			s.freeMem -= job.spec.MemGB
			s.freeSpc -= job.spec.SpcGB
		} else {
			s.dirty = true
		}
		s.log.Info("job start", "job", job.name, "state", string(job.state))
	}
}

// Listen blocks until a job changes to a terminal state, or returns
// immediately (false) if no job is QUEUED or RUNNING. It is the sole
// cooperative wait point in the core.
func (s *Scheduler) Listen() bool {
	for {
		s.mu.Lock()
		dirty := s.dirty
		active := s.anyActiveLocked()
		s.mu.Unlock()

		if dirty || !active {
			break
		}

		time.Sleep(s.pollInterval)
		s.Poll()

		s.mu.Lock()
		if s.hasDeadline && time.Now().After(s.deadline) {
			s.mu.Unlock()
			s.Stop(fmt.Sprintf("scheduler total run time (%ds) exceeded", s.totTim))
		} else {
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	ret := s.dirty
	s.dirty = false
	s.mu.Unlock()

	s.log.Info("job listen", "dirty", ret)
	return ret
}

func (s *Scheduler) anyActiveLocked() bool {
	for _, name := range s.names {
		st := s.jobs[name].state
		if st == StateQueued || st == StateRunning {
			return true
		}
	}
	return false
}

// Poll first gives every job a chance to escalate a pending SIGKILL
// (stop() may have sent SIGTERM to a job that hasn't exited yet), then
// checks every RUNNING job once, releasing its resources and setting
// dirty if it has left RUNNING, then re-scans QUEUED jobs in insertion
// order (first-fit admission) if anything became dirty.
func (s *Scheduler) Poll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range s.names {
		s.jobs[name].escalate()
	}

	for _, name := range s.names {
		job := s.jobs[name]
		if job.state != StateRunning {
			continue
		}
		job.poll()
		if job.state != StateRunning {
			s.log.Info("job poll", "job", job.name, "state", string(job.state))
			s.freeCPU += job.spec.CPU
			s.freeMem += job.spec.MemGB
			s.freeSpc += job.spec.SpcGB
			s.dirty = true
		}
	}

	if s.dirty {
		for _, name := range s.names {
			job := s.jobs[name]
			if job.state == StateQueued {
				s.tryStart(job)
			}
		}
	}
}

// Stop stops every owned job (QUEUED jobs fail without touching any OS
// resource, RUNNING jobs are terminated) with failMsg as their error,
// and marks the scheduler dirty.
func (s *Scheduler) Stop(failMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Info("job stop", "reason", failMsg)
	for _, name := range s.names {
		s.jobs[name].stop(failMsg)
	}
	s.dirty = true
}

// Job returns the job registered under name, if any.
func (s *Scheduler) Job(name string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	return j, ok
}

// Jobs returns every job owned by the scheduler, in insertion order.
func (s *Scheduler) Jobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.jobs[name])
	}
	return out
}

func systemMemoryGB() int {
	var info syscall.Sysinfo_t
	if err := syscall.Sysinfo(&info); err != nil {
		return 8
	}
	totalBytes := uint64(info.Totalram) * uint64(info.Unit)
	return int(totalBytes / (1 << 30))
}

func freeDiskGB(path string) int {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 100
	}
	freeBytes := stat.Bavail * uint64(stat.Bsize)
	return int(freeBytes / (1 << 30))
}
