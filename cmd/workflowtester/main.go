// SPDX-License-Identifier: Apache-2.0

// Command workflowtester drives a Workflow interactively from stdin,
// for exercising rule books without a real executor: each line is
// "runnable", "started", "completed", "failed" (each listing those
// services), "started SERVICE", "completed SERVICE", "failed SERVICE"
// (each marking that service), or "quit". A prefix of the name of any
// runnable, started, completed or failed service may be used where
// unambiguous.
package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kcri-tz/kcri-cge-bap/internal/workflow"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflowtester",
		Short: "Interactively drive a small diamond-shaped example Workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(os.Stdin, os.Stdout)
		},
	}
	return cmd
}

func exampleRuleBook() (workflow.RuleBook, []workflow.Target, []workflow.Target) {
	reads := workflow.Param("READS")
	contigs := workflow.Checkpoint("CONTIGS")
	species := workflow.Checkpoint("SPECIES")

	assembler := workflow.Service("ASSEMBLER")
	kmerfinder := workflow.Service("KMERFINDER")
	mlstfinder := workflow.Service("MLSTFINDER")
	resfinder := workflow.Service("RESFINDER")
	pointfinder := workflow.Service("POINTFINDER")

	speciesTarget := workflow.UserTarget("SPECIES")
	mlstTarget := workflow.UserTarget("MLST")
	resistanceTarget := workflow.UserTarget("RESISTANCE")
	defaultTarget := workflow.UserTarget("DEFAULT")

	rules := workflow.RuleBook{
		contigs:           workflow.NewOpt(assembler),
		assembler:         reads,
		kmerfinder:        workflow.NewOne(reads, contigs),
		species:           kmerfinder,
		mlstfinder:        contigs,
		resfinder:         contigs,
		pointfinder:       workflow.NewAll(contigs, species),
		speciesTarget:     species,
		mlstTarget:        mlstfinder,
		resistanceTarget:  workflow.NewAll(resfinder, workflow.NewOpt(pointfinder)),
		defaultTarget:     workflow.NewAll(speciesTarget, mlstTarget, resistanceTarget),
	}

	return rules, []workflow.Target{reads}, []workflow.Target{defaultTarget}
}

func runREPL(in *os.File, out *os.File) error {
	rules, params, targets := exampleRuleBook()
	w := workflow.New(rules, params, targets, nil)

	printStatus(out, w)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			printStatus(out, w)
			continue
		}
		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])

		if cmd == "quit" || cmd == "exit" {
			return nil
		}

		if cmd == "runnable" {
			printRunnable(out, w)
			continue
		}

		if len(fields) < 2 {
			var list []workflow.Target
			switch cmd {
			case "started":
				list = w.ListStarted()
			case "completed":
				list = w.ListCompleted()
			case "failed":
				list = w.ListFailed()
			default:
				fmt.Fprintf(out, "usage: %s SERVICE\n", cmd)
			}
			for _, t := range list {
				fmt.Fprintln(out, t.ID)
			}
			printStatus(out, w)
			continue
		}

		target, err := resolveService(w, fields[1])
		if err != nil {
			fmt.Fprintln(out, err)
			printStatus(out, w)
			continue
		}

		switch cmd {
		case "started":
			w.MarkStarted(target)
		case "completed":
			w.MarkStarted(target)
			w.MarkCompleted(target)
		case "failed":
			w.MarkStarted(target)
			w.MarkFailed(target)
		default:
			fmt.Fprintf(out, "unknown command: %s\n", cmd)
		}
		printStatus(out, w)
	}
	return scanner.Err()
}

func printRunnable(out *os.File, w *workflow.Workflow) {
	for _, t := range w.ListRunnable() {
		fmt.Fprintln(out, t.ID)
	}
}

func printStatus(out *os.File, w *workflow.Workflow) {
	names := func(ts []workflow.Target) string {
		ids := make([]string, len(ts))
		for i, t := range ts {
			ids[i] = t.ID
		}
		sort.Strings(ids)
		return strings.Join(ids, ",")
	}
	fmt.Fprintf(out, "status=%s runnable=[%s] completed=[%s] failed=[%s]\n",
		w.Status(), names(w.ListRunnable()), names(w.ListCompleted()), names(w.ListFailed()))
}

func resolveService(w *workflow.Workflow, prefix string) (workflow.Target, error) {
	prefix = strings.ToUpper(prefix)
	candidates := append(append(w.ListRunnable(), w.ListStarted()...), append(w.ListCompleted(), w.ListFailed()...)...)

	var matches []workflow.Target
	seen := map[string]bool{}
	for _, t := range candidates {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		if strings.HasPrefix(t.ID, prefix) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return workflow.Target{}, fmt.Errorf("no known service matches %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return workflow.Target{}, fmt.Errorf("ambiguous service prefix %q", prefix)
	}
}
