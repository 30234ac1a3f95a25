// Command arroyo-plan is a small demo harness around the planning core:
// it reads a JSON logical plan from stdin (or a file named by -plan),
// runs it through rewrite.Rewrite and graph.Visitor the way an embedding
// runtime would, and prints the resulting operator graph as JSON.
//
// Reading the plan is wrapped in internal/retry to model the shape
// original_source's run.rs uses when polling a pipeline API for a
// validated plan before acting on it: validateWithMockFrontend below
// stands in for that external call, since this harness has no network
// front-end of its own to poll.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/arroyo-project/planner/internal/config"
	"github.com/arroyo-project/planner/internal/retry"
	"github.com/arroyo-project/planner/internal/tracing"
	"github.com/arroyo-project/planner/pkg/graph"
	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/physical"
	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/rewrite"
)

func main() {
	planPath := flag.String("plan", "", "path to a JSON logical plan (defaults to stdin)")
	flag.Parse()

	if err := run(*planPath, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "arroyo-plan:", err)
		os.Exit(1)
	}
}

func run(planPath string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	tracer := tracing.New(tracing.Config{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled})
	defer func() {
		_ = tracer.Shutdown(context.Background())
	}()

	ctx, done := tracer.TrackOperation(context.Background(), "arroyo-plan.run")
	var runErr error
	defer func() { done(runErr) }()

	raw, err := readPlanInput(planPath, stdin)
	if err != nil {
		runErr = err
		return err
	}

	node, err := retry.Do(ctx, retry.Params{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
	}, func(attempt int) (logicalplan.Node, bool, error) {
		n, verr := validateWithMockFrontend(raw)
		if verr != nil {
			return nil, false, verr
		}
		return n, true, nil
	}, func(attempt int, attemptErr error) {
		tracer.Logger().WarnContext(ctx, "plan validation attempt failed", "attempt", attempt, "error", attemptErr)
	})
	if err != nil {
		runErr = err
		return err
	}

	rewritten, err := rewrite.Rewrite(node)
	if err != nil {
		runErr = planerr.Wrap(planerr.KindPlan, err, "arroyo-plan: rewrite failed")
		return runErr
	}

	visitor := graph.NewVisitor(physical.NewBridge())
	if _, _, err := visitor.Visit(rewritten); err != nil {
		runErr = planerr.Wrap(planerr.KindPlan, err, "arroyo-plan: graph visit failed")
		return runErr
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(visitor.Graph()); err != nil {
		runErr = planerr.Wrap(planerr.KindInternal, err, "arroyo-plan: encoding graph failed")
		return runErr
	}
	return nil
}

func readPlanInput(planPath string, stdin io.Reader) ([]byte, error) {
	if planPath == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, planerr.Wrap(planerr.KindInternal, err, "arroyo-plan: reading stdin failed")
		}
		return data, nil
	}
	data, err := os.ReadFile(planPath)
	if err != nil {
		return nil, planerr.Wrap(planerr.KindInternal, err, "arroyo-plan: reading %s failed", planPath)
	}
	return data, nil
}

// validateWithMockFrontend parses raw as a JSON logical plan. It stands in
// for the external "fetch a validated plan" call a real embedding runtime
// would retry against a control plane; here parsing the JSON itself is
// the only thing that can fail, so the retry loop above will only ever
// see one real attempt succeed or exhaust on a malformed plan.
func validateWithMockFrontend(raw []byte) (logicalplan.Node, error) {
	return parsePlan(raw)
}
