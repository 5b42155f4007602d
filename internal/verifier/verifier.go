// Package verifier runs the outer fixed-point loop of spec.md §4.7
// over a whole program.Program: it repeatedly verifies every interface
// function against a growing interference set until that set stops
// growing, at which point the program is linearizable. It is grounded
// on original_source's src/prover/verifyimpl/verify.cpp and
// src/prover/verifyimpl/worklist.cpp (the fixed-point driver and its
// per-function worklist), rebuilt as a recursive-descent interpreter
// over internal/program's tagged Stmt sum rather than a visitor
// hierarchy (spec.md §9).
package verifier

import (
	"fmt"

	"github.com/segmentio/ksuid"

	perrors "github.com/nyu-acsys/flowcert/internal/errors"

	"github.com/nyu-acsys/flowcert/internal/config"
	"github.com/nyu-acsys/flowcert/internal/encoding"
	"github.com/nyu-acsys/flowcert/internal/postimage"
	"github.com/nyu-acsys/flowcert/internal/program"
	"github.com/nyu-acsys/flowcert/internal/smt"
	"github.com/nyu-acsys/flowcert/internal/solver"
	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// OutcomeKind classifies how a run concluded.
type OutcomeKind int

const (
	Linearizable OutcomeKind = iota
	NotLinearizable
	Unknown
)

func (k OutcomeKind) String() string {
	switch k {
	case Linearizable:
		return "linearizable"
	case NotLinearizable:
		return "not linearizable"
	}
	return "unknown"
}

// Outcome is the result of one verification run, identified by a
// RunID so a driver (the CLI) can correlate it with
// whatever diagnostics the run also emitted.
type Outcome struct {
	Kind   OutcomeKind
	Reason error
	RunID  string
}

// Verifier wires a Config to the shared Encoder/Backend/solver a
// whole run executes against, plus the symbol pool every post-image
// computation draws fresh symbols from (spec.md §4.2 "one pool per
// run, shared by every thread's post-image computation").
type Verifier struct {
	Config  *config.Config
	Solver  *solver.Solver
	Pool    *symbols.Pool
	Encoder *encoding.Encoder
}

// New builds a Verifier over a fresh Encoder/Pool pair and backend.
func New(cfg *config.Config, backend smt.Backend) *Verifier {
	enc := encoding.NewEncoder()
	return &Verifier{
		Config:  cfg,
		Solver:  solver.New(cfg, enc, backend),
		Pool:    symbols.NewPool(),
		Encoder: enc,
	}
}

// Verify runs the fixed-point loop of spec.md §4.7: verify every
// interface function against the current interference set,
// collecting each statement's emitted effects into a candidate next
// interference set; consolidate that candidate against the current
// set; stop once consolidation adds nothing new.
func (v *Verifier) Verify(p *program.Program) Outcome {
	runID := ksuid.New().String()

	if err := v.Config.Validate(); err != nil {
		return v.classify(err, runID)
	}

	var interference []postimage.Effect
	for {
		var newInterference []postimage.Effect
		for _, f := range p.InterfaceFunctions() {
			effects, err := v.verifyFunction(f, interference)
			if err != nil {
				return v.classify(err, runID)
			}
			newInterference = append(newInterference, effects...)
		}

		grown, consolidated, err := v.consolidate(interference, newInterference)
		if err != nil {
			return v.classify(err, runID)
		}
		interference = consolidated
		if !grown {
			return Outcome{Kind: Linearizable, RunID: runID}
		}
	}
}

// classify turns an error the loop surfaced into an Outcome. Every
// error an engine package returns is one of: a *errors.VerifierError
// (spec.md §7's closed Kind set), a *encoding.SolverUnknownError
// (raised only when Config.StrictUnknown asks for it), or a
// *config.ConfigurationError from an upfront Validate call; anything
// else is a genuine bug and is allowed to reach the caller as a panic
// rather than be laundered into an Outcome (spec.md §9 "reserve
// panics for true bugs").
func (v *Verifier) classify(err error, runID string) Outcome {
	switch e := err.(type) {
	case *perrors.VerifierError:
		if e.Kind == perrors.LinearizationFailureKind || e.Kind == perrors.InvariantViolationKind {
			return Outcome{Kind: NotLinearizable, Reason: e, RunID: runID}
		}
		return Outcome{Kind: Unknown, Reason: e, RunID: runID}
	case *encoding.SolverUnknownError:
		return Outcome{Kind: Unknown, Reason: e, RunID: runID}
	case *config.ConfigurationError:
		return Outcome{Kind: Unknown, Reason: e, RunID: runID}
	}
	panic(fmt.Sprintf("verifier: unclassified error reached Verify: %v", err))
}
