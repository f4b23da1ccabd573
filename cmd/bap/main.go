// SPDX-License-Identifier: Apache-2.0

// Command bap runs the bacterial-isolate analysis pipeline: it builds
// the rule book for the requested user targets, wires the registered
// service shims to a scheduler and blackboard, and drives the workflow
// to completion through an Executor. An optional monitor server can be
// started alongside it to watch progress.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/internal/execution"
	"github.com/kcri-tz/kcri-cge-bap/internal/jobcontrol"
	"github.com/kcri-tz/kcri-cge-bap/internal/monitor"
	"github.com/kcri-tz/kcri-cge-bap/internal/scratch"
	"github.com/kcri-tz/kcri-cge-bap/internal/shims"
	"github.com/kcri-tz/kcri-cge-bap/internal/workflow"
	"github.com/kcri-tz/kcri-cge-bap/pkg/logging"
	"github.com/kcri-tz/kcri-cge-bap/pkg/runconfig"
)

const backendVersion = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		fastqs      []string
		contigs     string
		kfSearch    string
		targets     []string
		monitorAt   string
		scratchRoot string
		verbose     bool
		jsonLog     bool
	)

	cmd := &cobra.Command{
		Use:   "bap",
		Short: "Run the bacterial-isolate analysis pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := runconfig.NewDefault()
			cfg.Verbose = verbose
			if err := cfg.Validate(); err != nil {
				return err
			}

			format := logging.FormatText
			if jsonLog {
				format = logging.FormatJSON
			}
			log := logging.New(&logging.Config{Level: logging.DefaultConfig().Level, Format: format, Output: os.Stderr})

			bb := blackboard.New(cfg.Verbose)
			if len(fastqs) > 0 {
				asAny := make([]any, len(fastqs))
				for i, f := range fastqs {
					asAny[i] = f
				}
				bb.Put("user_input/fastqs", asAny)
			}
			if contigs != "" {
				bb.Put("user_input/contigs", contigs)
			}
			if kfSearch == "" {
				kfSearch = "bacteria"
			}
			bb.Put("user_input/kf_s", kfSearch)
			bb.Put("user_input/verbose", cfg.Verbose)

			rules, readsParam, contigsParam, userTargets := rulesForTargets(targets)

			var params []workflow.Target
			if len(fastqs) > 0 {
				params = append(params, readsParam)
			}
			if contigs != "" {
				params = append(params, contigsParam)
			}
			wf := workflow.New(rules, params, userTargets, nil)

			sched := jobcontrol.NewScheduler(
				jobcontrol.WithTotals(cfg.TotCPU, cfg.TotMem, cfg.TotSpc, cfg.TotTim),
				jobcontrol.WithPollInterval(cfg.PollInterval),
				jobcontrol.WithLogger(log),
			)

			scratchMgr, err := scratch.NewManager(scratchRoot)
			if err != nil {
				return err
			}

			registry := map[workflow.Target]execution.Shim{
				workflow.Service("ASSEMBLER"):   shims.AssemblerShim{Version: backendVersion, Scratch: scratchMgr},
				workflow.Service("KMERFINDER"):  shims.KmerFinderShim{DBRoot: cfg.DBRoot, Version: backendVersion, Scratch: scratchMgr},
				workflow.Service("MLSTFINDER"):  shims.UnimplementedShim{Name: "MLSTFinder"},
				workflow.Service("RESFINDER"):   shims.UnimplementedShim{Name: "ResFinder"},
				workflow.Service("POINTFINDER"): shims.UnimplementedShim{Name: "PointFinder"},
			}

			if monitorAt != "" {
				srv := monitor.New(bb, log)
				go func() {
					if err := srv.ListenAndServe(monitorAt); err != nil {
						log.Warn("monitor server stopped", "error", err)
					}
				}()
			}

			ex := execution.NewExecutor(wf, registry, sched, bb, log)
			if err := ex.Execute(); err != nil {
				return err
			}

			fmt.Printf("status: %s\n", wf.Status())
			for _, s := range wf.ListCompleted() {
				fmt.Printf("  completed: %s\n", s.ID)
			}
			for _, s := range wf.ListFailed() {
				fmt.Printf("  failed: %s\n", s.ID)
			}
			if wf.Status() == workflow.StatusFailed {
				failed := len(wf.ListFailed())
				if failed == 0 {
					failed = 1
				}
				os.Exit(failed)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&fastqs, "reads", nil, "input read file(s)")
	cmd.Flags().StringVar(&contigs, "contigs", "", "user-supplied contigs file")
	cmd.Flags().StringVar(&kfSearch, "kf-search", "bacteria", "KmerFinder database to search")
	cmd.Flags().StringSliceVar(&targets, "target", []string{"DEFAULT"}, "user target(s) to attain")
	cmd.Flags().StringVar(&monitorAt, "monitor", "", "address to serve the monitor HTTP/WebSocket status server on (e.g. :8080)")
	cmd.Flags().StringVar(&scratchRoot, "scratch-root", filepath.Join(os.TempDir(), "bap-scratch"), "root directory for per-service scratch working directories")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "mirror blackboard log lines to stderr")
	cmd.Flags().BoolVar(&jsonLog, "json-log", false, "emit structured logs as JSON")

	return cmd
}

func rulesForTargets(names []string) (rules workflow.RuleBook, readsParam, contigsParam workflow.Target, goals []workflow.Target) {
	reads := workflow.Param("READS")
	contigsParam = workflow.Param("CONTIGS")
	readsParam = reads
	contigsCkpt := workflow.Checkpoint("CONTIGS")
	speciesCkpt := workflow.Checkpoint("SPECIES")

	assembler := workflow.Service("ASSEMBLER")
	kmerfinder := workflow.Service("KMERFINDER")
	mlstfinder := workflow.Service("MLSTFINDER")
	resfinder := workflow.Service("RESFINDER")
	pointfinder := workflow.Service("POINTFINDER")

	speciesTarget := workflow.UserTarget("SPECIES")
	mlstTarget := workflow.UserTarget("MLST")
	resistanceTarget := workflow.UserTarget("RESISTANCE")
	defaultTarget := workflow.UserTarget("DEFAULT")

	rules = workflow.RuleBook{
		contigsCkpt:      workflow.NewFst(contigsParam, assembler),
		assembler:        reads,
		kmerfinder:       workflow.NewOne(reads, contigsCkpt),
		speciesCkpt:      kmerfinder,
		mlstfinder:       contigsCkpt,
		resfinder:        contigsCkpt,
		pointfinder:      workflow.NewAll(contigsCkpt, speciesCkpt),
		speciesTarget:    speciesCkpt,
		mlstTarget:       mlstfinder,
		resistanceTarget: workflow.NewAll(resfinder, workflow.NewOpt(pointfinder)),
		defaultTarget:    workflow.NewAll(speciesTarget, mlstTarget, resistanceTarget),
	}

	targetMap := map[string]workflow.Target{
		"SPECIES":    speciesTarget,
		"MLST":       mlstTarget,
		"RESISTANCE": resistanceTarget,
		"DEFAULT":    defaultTarget,
	}

	for _, n := range names {
		if t, ok := targetMap[strings.ToUpper(n)]; ok {
			goals = append(goals, t)
		}
	}
	if len(goals) == 0 {
		goals = []workflow.Target{defaultTarget}
	}

	return rules, readsParam, contigsParam, goals
}
