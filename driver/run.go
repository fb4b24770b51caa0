// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Fantom-foundation/Fidelio/fidelio"
	_ "github.com/Fantom-foundation/Fidelio/processor/basic"
	"github.com/Fantom-foundation/Fidelio/statetest"
	"github.com/Fantom-foundation/Fidelio/verification"
	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
)

var RunCmd = AddCommonFlags(cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Run state-test fixtures against a processor implementation",
	ArgsUsage: "<processor> <file-or-directory> ...",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "run",
			Usage: "run only fixtures whose <path>::<name> contains the given string",
		},
		&cli.IntFlag{
			Name:  "jobs",
			Usage: "number of jobs run simultaneously",
			Value: runtime.NumCPU(),
		},
		&cli.IntFlag{
			Name:  "max-errors",
			Usage: "aborts testing after the given number of issues",
			Value: -1,
		},
		&cli.BoolFlag{
			Name:  "strict-match",
			Usage: "require expected-exception labels to match exactly instead of accepting any failure",
		},
	},
})

func doRun(context *cli.Context) error {
	processorName := context.Args().Get(0)
	if processorName == "" {
		return fmt.Errorf("missing processor identifier, use one of: %v",
			maps.Keys(fidelio.GetAllRegisteredProcessors()))
	}
	processor, err := fidelio.NewProcessor(processorName)
	if err != nil {
		return fmt.Errorf("invalid processor identifier %q, use one of: %v",
			processorName, maps.Keys(fidelio.GetAllRegisteredProcessors()))
	}

	paths := context.Args().Slice()[1:]
	if len(paths) == 0 {
		return fmt.Errorf("no fixture paths given")
	}
	var files []string
	for _, path := range paths {
		found, err := statetest.FindTestFiles(path)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no fixture files found under %v", paths)
	}

	jobCount := context.Int("jobs")
	if jobCount <= 0 {
		jobCount = runtime.NumCPU()
	}
	maxErrors := context.Int("max-errors")
	if maxErrors <= 0 {
		maxErrors = math.MaxInt
	}

	run := &testRun{
		processor: processor,
		verifier:  verification.NewConfig(),
		match:     context.String("run"),
		strict:    context.Bool("strict-match"),
		maxErrors: maxErrors,
	}

	// Progress is reported from a separate goroutine so that slow fixture
	// files do not silence the driver.
	start := time.Now()
	reporterDone := make(chan struct{})
	var reporter sync.WaitGroup
	reporter.Add(1)
	go func() {
		defer reporter.Done()
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-reporterDone:
				return
			case <-ticker.C:
				run.printProgress(time.Since(start))
			}
		}
	}()

	fileChannel := make(chan string, jobCount)
	var workers sync.WaitGroup
	for i := 0; i < jobCount; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for file := range fileChannel {
				run.processFile(file)
			}
		}()
	}
	for _, file := range files {
		fileChannel <- file
	}
	close(fileChannel)
	workers.Wait()
	close(reporterDone)
	reporter.Wait()

	if err := run.fatal.get(); err != nil {
		return err
	}

	fmt.Printf("Processed %d test fixtures in %v, %d with executed cases\n",
		run.unitsDone.Load(), time.Since(start).Round(time.Second), run.executedUnits.Load())

	issues := run.issues.Issues()
	if len(issues) == 0 {
		fmt.Printf("All tests passed successfully!\n")
		return nil
	}
	for _, issue := range issues {
		fmt.Printf("----------------------------\n")
		fmt.Printf("%v\n", issue)
	}
	return fmt.Errorf("failed to pass %d test fixtures", len(issues))
}

// testRun holds the shared state of one driver invocation. Its methods are
// safe for concurrent use by the worker goroutines.
type testRun struct {
	processor fidelio.Processor
	verifier  *verification.Config
	match     string
	strict    bool
	maxErrors int

	issues        issuesCollector
	fatal         fatalError
	unitsDone     atomic.Int64
	executedUnits atomic.Int64
}

// processFile runs all fixtures of one file. Fixture disagreements are
// collected; any other failure is fatal and stops the remaining workers.
func (r *testRun) processFile(file string) {
	if r.fatal.get() != nil || r.issues.NumIssues() >= r.maxErrors {
		return
	}
	units, err := statetest.LoadTestUnits(file)
	if err != nil {
		r.fatal.set(err)
		return
	}

	names := maps.Keys(units)
	slices.Sort(names)
	for _, name := range names {
		if r.fatal.get() != nil || r.issues.NumIssues() >= r.maxErrors {
			return
		}
		tester := statetest.NewUnitTester(file, name, units[name])
		if r.strict {
			tester.SetExceptionMatcher(statetest.MatchLabels)
		}
		ran, err := tester.Run(r.processor, r.verifier, r.match)
		r.unitsDone.Add(1)
		if ran {
			r.executedUnits.Add(1)
		}
		if err != nil {
			var testErr *statetest.TestError
			if errors.As(err, &testErr) {
				r.issues.Add(testErr)
				fmt.Printf("Error: %v\n", testErr)
			} else {
				r.fatal.set(err)
				return
			}
		}
	}
}

func (r *testRun) printProgress(elapsed time.Duration) {
	total := r.unitsDone.Load()
	rate := float64(total) / elapsed.Seconds()
	fmt.Printf(
		"[t=%4d:%02d] - Processing ~%s fixtures per second, total %d, executed %d, found issues %d\n",
		int(elapsed.Seconds())/60, int(elapsed.Seconds())%60,
		unitconv.FormatPrefix(rate, unitconv.SI, 0), total, r.executedUnits.Load(), r.issues.NumIssues(),
	)
}

type issuesCollector struct {
	issues []*statetest.TestError
	mu     sync.Mutex
}

func (c *issuesCollector) Add(issue *statetest.TestError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues = append(c.issues, issue)
}

func (c *issuesCollector) NumIssues() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.issues)
}

func (c *issuesCollector) Issues() []*statetest.TestError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.issues)
}

// fatalError keeps the first infrastructure fault of a run.
type fatalError struct {
	err error
	mu  sync.Mutex
}

func (f *fatalError) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
	}
}

func (f *fatalError) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
