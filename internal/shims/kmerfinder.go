package shims

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kcri-tz/kcri-cge-bap/internal/blackboard"
	"github.com/kcri-tz/kcri-cge-bap/internal/execution"
	"github.com/kcri-tz/kcri-cge-bap/internal/jobcontrol"
	"github.com/kcri-tz/kcri-cge-bap/internal/scratch"
	"github.com/kcri-tz/kcri-cge-bap/internal/workflow"
	"github.com/kcri-tz/kcri-cge-bap/pkg/bap"
)

const (
	kmerFinderService = "KmerFinder"
	kmerFinderMaxCPU  = 1
	kmerFinderMaxMem  = 4
	kmerFinderMaxSpc  = 1
	kmerFinderMaxTim  = 10 * 60
)

// KmerFinderHit is one result record from a KmerFinder run.
type KmerFinderHit struct {
	Accession string  `json:"accession"`
	Desc      string  `json:"desc"`
	Score     int     `json:"score"`
	QCov      float64 `json:"qcov"`
	SCov      float64 `json:"scov"`
	Species   string  `json:"species,omitempty"`
}

// KmerFinderShim runs KmerFinder against the sample's reads or contigs
// to establish species, database layout and output format grounded on
// the KmerFinder backend shim.
type KmerFinderShim struct {
	DBRoot  string
	Version string
	Scratch *scratch.Manager
}

func (s KmerFinderShim) Execute(service workflow.Target, bb *blackboard.Blackboard, sched *jobcontrol.Scheduler) (execution.Task, error) {
	ident := service.ID
	in := NewInputs(bb, s.DBRoot)

	search, err := in.UserInput("kf_s")
	if err != nil {
		return failedTask(ident, kmerFinderService, s.Version, bb, err), nil
	}
	dbDir, err := in.DBPath("kmerfinder")
	if err != nil {
		return failedTask(ident, kmerFinderService, s.Version, bb, err), nil
	}
	dbPath, taxFile, err := findKmerFinderDB(dbDir, search)
	if err != nil {
		return failedTask(ident, kmerFinderService, s.Version, bb, err), nil
	}
	inputs, err := in.FastqsOrContigsPaths()
	if err != nil {
		return failedTask(ident, kmerFinderService, s.Version, bb, err), nil
	}

	wdir, err := acquireScratch(s.Scratch, "kmerfinder-"+ident)
	if err != nil {
		return failedTask(ident, kmerFinderService, s.Version, bb, err), nil
	}

	args := []string{"-q", "-db", dbPath, "-o", "."}
	if taxFile != "" {
		args = append(args, "-tax", taxFile)
	}
	args = append(args, "-i")
	args = append(args, inputs...)

	spec := jobcontrol.NewJobSpec("kmerfinder.py", args, kmerFinderMaxCPU, kmerFinderMaxMem, kmerFinderMaxSpc, kmerFinderMaxTim)
	job, err := sched.ScheduleJob("kmerfinder-"+ident, spec, wdir)
	if err != nil {
		releaseScratch(s.Scratch, "kmerfinder-"+ident)
		return failedTask(ident, kmerFinderService, s.Version, bb, bap.Wrap(bap.CodeInvariant, err, "could not schedule kmerfinder job")), nil
	}

	exec := execution.NewServiceExecution(ident, kmerFinderService, s.Version, job, bb, func(bb *blackboard.Blackboard, job *jobcontrol.Job) error {
		return collectKmerFinderOutput(bb, job, ident)
	})
	exec.SetOnTerminal(func() { releaseScratch(s.Scratch, "kmerfinder-"+ident) })
	return exec, nil
}

func collectKmerFinderOutput(bb *blackboard.Blackboard, job *jobcontrol.Job, ident string) error {
	dir := job.Wdir()
	resultsFile := filepath.Join(dir, "results.txt")
	haveTax := true
	if _, err := os.Stat(resultsFile); err != nil {
		resultsFile = filepath.Join(dir, "results.spa")
		haveTax = false
		if _, err := os.Stat(resultsFile); err != nil {
			return bap.New(bap.CodeBackend, "service ran but no results.txt or results.spa file in %s", dir)
		}
	}

	f, err := os.Open(resultsFile)
	if err != nil {
		return bap.Wrap(bap.CodeBackend, err, "could not open %s", resultsFile)
	}
	defer f.Close()

	var hits []KmerFinderHit
	scanner := bufio.NewScanner(f)
	scanner.Scan() // header
	wantFields := 13
	if haveTax {
		wantFields = 19
	}
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec := strings.Split(line, "\t")
		if len(rec) != wantFields {
			return bap.New(bap.CodeBackend, "invalid line in KmerFinder results: %s", line)
		}

		var accDsc [2]string
		if haveTax {
			accDsc = [2]string{strings.TrimSpace(rec[13]), strings.TrimSpace(rec[14])}
		} else {
			parts := strings.SplitN(strings.TrimSpace(rec[0]), " ", 2)
			accDsc[0] = parts[0]
			if len(parts) > 1 {
				accDsc[1] = parts[1]
			}
		}

		score, _ := strconv.Atoi(strings.TrimSpace(rec[2]))
		qcov, _ := strconv.ParseFloat(strings.TrimSpace(rec[5]), 64)
		scov, _ := strconv.ParseFloat(strings.TrimSpace(rec[6]), 64)

		hit := KmerFinderHit{Accession: accDsc[0], Desc: accDsc[1], Score: score, QCov: qcov, SCov: scov}
		if haveTax {
			hit.Species = strings.TrimSpace(rec[18])
		}
		hits = append(hits, hit)
	}

	bb.Put(fmt.Sprintf("services/%s/results", ident), hits)
	if haveTax && len(hits) > 0 {
		AddSpecies(bb, hits[0].Species)
	}
	return nil
}

func findKmerFinderDB(dbDir, name string) (dbPath, taxFile string, err error) {
	configPath := filepath.Join(dbDir, "config")
	f, oerr := os.Open(configPath)
	if oerr != nil {
		return "", "", bap.New(bap.CodeUserInput, "database config not found: %s", configPath)
	}
	defer f.Close()

	lower := strings.ToLower(name)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(line), lower) {
			continue
		}
		dbPfx := strings.TrimSpace(strings.Split(line, "\t")[0])
		db := dbPfx
		if i := strings.Index(dbPfx, "."); i >= 0 {
			db = dbPfx[:i]
		}
		path := filepath.Join(dbDir, dbPfx)
		if _, err := os.Stat(path + ".seq.b"); err != nil {
			path = filepath.Join(dbDir, db, dbPfx)
			if _, err := os.Stat(path + ".seq.b"); err != nil {
				return "", "", bap.New(bap.CodeUserInput, "invalid database, no seq.b file: %s", dbPfx)
			}
		}
		tax := filepath.Join(filepath.Dir(path), db+".tax")
		if _, err := os.Stat(tax); err != nil {
			tax = filepath.Join(filepath.Dir(path), dbPfx+".tax")
			if _, err := os.Stat(tax); err != nil {
				tax = ""
			}
		}
		return path, tax, nil
	}

	return "", "", bap.New(bap.CodeUserInput, "database '%s' not in config under %s", name, dbDir)
}
