// SPDX-License-Identifier: Apache-2.0

// Command jobscheduler exercises a Scheduler from the command line: it
// schedules one job (optionally replicated) against a resource pool
// sized from flags, waits for it to reach a terminal state, and exits
// with the count of FAILED jobs.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kcri-tz/kcri-cge-bap/internal/jobcontrol"
	"github.com/kcri-tz/kcri-cge-bap/pkg/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(2)
	}
}

func newRootCmd() *cobra.Command {
	var (
		name       string
		replicates int
		wdir       string
		cpu        int
		mem        int
		spc        int
		tim        int
		totCPU     int
		totMem     int
		totSpc     int
		totTim     int
		pollMs     int
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "jobscheduler COMMAND [ARGS...]",
		Short: "Run a job (or N replicates) through the resource-constrained scheduler",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var logger logging.Logger = logging.NoOpLogger{}
			if verbose {
				logger = logging.New(&logging.Config{Level: logging.DefaultConfig().Level, Format: logging.FormatText, Output: os.Stderr})
			}

			sched := jobcontrol.NewScheduler(
				jobcontrol.WithTotals(totCPU, totMem, totSpc, totTim),
				jobcontrol.WithPollInterval(time.Duration(pollMs)*time.Millisecond),
				jobcontrol.WithLogger(logger),
			)

			n := replicates
			if n < 1 {
				n = 1
			}

			var jobs []*jobcontrol.Job
			for i := 0; i < n; i++ {
				jobName := name
				if n > 1 {
					jobName = fmt.Sprintf("%s-%d", name, i)
				}
				spec := jobcontrol.NewJobSpec(args[0], args[1:], cpu, mem, spc, tim)
				job, err := sched.ScheduleJob(jobName, spec, wdir)
				if err != nil {
					return err
				}
				jobs = append(jobs, job)
			}

			for anyActive(jobs) {
				sched.Listen()
			}

			failed := 0
			for _, j := range jobs {
				fmt.Printf("%s: %s\n", j.Name(), j.State())
				if j.State() == jobcontrol.StateFailed {
					failed++
				}
			}
			os.Exit(failed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "job", "job name (suffixed with an index when --replicates > 1)")
	cmd.Flags().IntVarP(&replicates, "replicates", "r", 1, "number of parallel replicate jobs to run")
	cmd.Flags().StringVarP(&wdir, "wdir", "w", ".", "working directory for the job(s)")
	cmd.Flags().IntVarP(&cpu, "cpu", "c", 1, "cpu cores required per job")
	cmd.Flags().IntVarP(&mem, "mem", "m", 1, "memory in GB required per job")
	cmd.Flags().IntVarP(&spc, "spc", "s", 1, "scratch disk in GB required per job")
	cmd.Flags().IntVarP(&tim, "tim", "t", 0, "per-job wall time limit in seconds (0 = unlimited)")
	cmd.Flags().IntVar(&totCPU, "tot-cpu", 0, "scheduler total cpu pool (0 = all cores)")
	cmd.Flags().IntVar(&totMem, "tot-mem", 0, "scheduler total memory pool in GB (0 = 90% of physical memory)")
	cmd.Flags().IntVar(&totSpc, "tot-spc", 0, "scheduler total scratch disk pool in GB (0 = 80% of free disk)")
	cmd.Flags().IntVar(&totTim, "tot-tim", 0, "scheduler total wall time budget in seconds (0 = unlimited)")
	cmd.Flags().IntVarP(&pollMs, "poll", "p", 200, "scheduler poll interval in milliseconds")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log scheduler activity to stderr")

	return cmd
}

func anyActive(jobs []*jobcontrol.Job) bool {
	for _, j := range jobs {
		if j.State() == jobcontrol.StateQueued || j.State() == jobcontrol.StateRunning {
			return true
		}
	}
	return false
}
