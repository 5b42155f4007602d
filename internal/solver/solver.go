// Package solver is the facade of spec.md §4.6: join, makeStable,
// computeEffectImplications, and the post dispatch, all sharing one
// Encoder/Backend pair with the internal/postimage.Engine they wrap.
// Grounded on original_source's src/plankton/solver/solver.cpp, which
// exposes exactly this quartet of operations over the same encoder/
// context pair its post-image computation uses.
package solver

import (
	"github.com/nyu-acsys/flowcert/internal/config"
	"github.com/nyu-acsys/flowcert/internal/encoding"
	"github.com/nyu-acsys/flowcert/internal/logic"
	"github.com/nyu-acsys/flowcert/internal/postimage"
	"github.com/nyu-acsys/flowcert/internal/program"
	"github.com/nyu-acsys/flowcert/internal/smt"
	"github.com/nyu-acsys/flowcert/internal/symbols"
)

// Solver is stateless across calls beyond the Encoder's lazily grown
// Declarations, exactly like the postimage.Engine it wraps.
type Solver struct {
	Config  *config.Config
	Encoder *encoding.Encoder
	Backend smt.Backend
	engine  *postimage.Engine
}

// New builds a Solver over a shared Encoder/Backend pair. Both must be
// the same pair passed to internal/verifier's other collaborators so
// that every query in a single run sees the same set of declarations.
func New(cfg *config.Config, enc *encoding.Encoder, backend smt.Backend) *Solver {
	return &Solver{
		Config:  cfg,
		Encoder: enc,
		Backend: backend,
		engine:  postimage.NewEngine(cfg, enc, backend),
	}
}

// Post dispatches into the post-image engine (spec.md §4.6 "post(pre,
// cmd) — the dispatch into §4.5").
func (s *Solver) Post(pre logic.Annotation, stmt *program.Stmt, pool *symbols.Pool) (logic.Annotation, []postimage.Effect, error) {
	return s.engine.Post(pre, stmt, pool)
}

// implies checks premise ⊨ candidate under tag, strengthening the
// premise with the data-domain sentinels every query may implicitly
// rely on (MIN/MAX boundedness), via a fresh single-use checker.
func (s *Solver) implies(premise, candidate logic.Formula, tag encoding.Tag) (bool, error) {
	premiseTerm, err := s.Encoder.EncodeFormula(premise, tag)
	if err != nil {
		return false, err
	}
	bg := s.Encoder.DataDomainAxioms()
	full := smt.And(append([]smt.Term{premiseTerm}, bg...)...)
	checker := encoding.NewImplicationChecker(s.Backend, full, s.Config.StrictUnknown)
	defer checker.Close()

	candidateTerm, err := s.Encoder.EncodeFormula(candidate, tag)
	if err != nil {
		return false, err
	}
	return checker.Implies(candidateTerm)
}
