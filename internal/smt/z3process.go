package smt

import (
	"bufio"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// ProcessBackend drives a real SMT solver binary (z3, by default)
// over SMT-LIB2 text via stdin/stdout, the same external-collaborator
// shape other_examples' lhaig-intent verify/smt.go uses for contract
// verification conditions. It is the production Backend; MockBackend
// (mock.go) stands in for it in tests that do not need a real solver
// installed.
type ProcessBackend struct {
	BinaryPath string // defaults to "z3" on PATH
	Declarations *Declarations
}

func NewProcessBackend(decls *Declarations) *ProcessBackend {
	return &ProcessBackend{BinaryPath: "z3", Declarations: decls}
}

func (b *ProcessBackend) NewContext() Context {
	return &z3Context{backend: b}
}

// z3Context accumulates asserted terms and, on CheckSat/Consequences,
// spawns `z3 -in -smt2` once per query with the accumulated script.
// Each query is therefore a fresh process — simpler and safer than
// keeping one long-lived interactive process alive across a verifier
// run with push/pop bookkeeping that must never desync.
type z3Context struct {
	backend  *ProcessBackend
	mu       sync.Mutex
	frames   [][]Term // frames[0] is the base frame; Push appends, Pop removes
}

func (c *z3Context) Push() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frames == nil {
		c.frames = [][]Term{nil}
	}
	c.frames = append(c.frames, nil)
}

func (c *z3Context) Pop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) > 1 {
		c.frames = c.frames[:len(c.frames)-1]
	}
}

func (c *z3Context) Add(t Term) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frames == nil {
		c.frames = [][]Term{nil}
	}
	top := len(c.frames) - 1
	c.frames[top] = append(c.frames[top], t)
}

func (c *z3Context) allAsserted() []Term {
	var out []Term
	for _, frame := range c.frames {
		out = append(out, frame...)
	}
	return out
}

func (c *z3Context) script(extraAssertions []Term, goal string) string {
	var sb strings.Builder
	sb.WriteString("(set-option :produce-models false)\n")
	sb.WriteString("(declare-sort Ptr 0)\n")
	for name, sort := range c.backend.Declarations.ConstSorts {
		fmt.Fprintf(&sb, "(declare-const %s %s)\n", name, sort)
	}
	for _, p := range c.backend.Declarations.UnaryPredicates {
		fmt.Fprintf(&sb, "(declare-fun %s (Int) Bool)\n", p)
	}
	for name, sig := range c.backend.Declarations.Selectors {
		fmt.Fprintf(&sb, "(declare-fun %s (Ptr) %s)\n", name, sig.ResultSort)
	}
	for name, args := range c.backend.Declarations.Relations {
		fmt.Fprintf(&sb, "(declare-fun %s (%s) Bool)\n", name, strings.Join(args, " "))
	}
	for _, t := range c.allAsserted() {
		fmt.Fprintf(&sb, "(assert %s)\n", t.SExpr())
	}
	for _, t := range extraAssertions {
		fmt.Fprintf(&sb, "(assert %s)\n", t.SExpr())
	}
	sb.WriteString(goal)
	return sb.String()
}

func (c *z3Context) CheckSat() (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runCheckSat(nil)
}

func (c *z3Context) runCheckSat(extra []Term) (Result, error) {
	out, err := c.run(c.script(extra, "(check-sat)\n"))
	if err != nil {
		return Unknown, err
	}
	line := firstLine(out)
	switch line {
	case "sat":
		return Sat, nil
	case "unsat":
		return Unsat, nil
	default:
		return Unknown, nil
	}
}

// Consequences checks, one candidate at a time, whether
// `assertions ∧ assumptions ∧ ¬candidate` is unsatisfiable (i.e. the
// candidate is entailed). z3's native `(get-consequences)` command
// requires boolean-const tracking that our uninterpreted-predicate
// encoding does not set up, so this implements the same semantics as
// a sequence of validity checks instead — correct, if not as cheap as
// a single batched z3 call.
func (c *z3Context) Consequences(assumptions []Term, candidates []Term) ([]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	results := make([]bool, len(candidates))
	for i, cand := range candidates {
		extra := append(append([]Term{}, assumptions...), Not(cand))
		res, err := c.runCheckSat(extra)
		if err != nil {
			return nil, err
		}
		results[i] = res == Unsat
	}
	return results, nil
}

func (c *z3Context) Close() error { return nil }

func (c *z3Context) run(script string) (string, error) {
	cmd := exec.Command(c.backend.BinaryPath, "-in", "-smt2")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", pkgerrors.Wrap(err, "smt: opening z3 stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", pkgerrors.Wrap(err, "smt: opening z3 stdout")
	}
	if err := cmd.Start(); err != nil {
		return "", pkgerrors.Wrap(err, "smt: starting z3")
	}
	if _, err := stdin.Write([]byte(script)); err != nil {
		return "", pkgerrors.Wrap(err, "smt: writing query")
	}
	stdin.Close()
	var sb strings.Builder
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
	}
	if err := cmd.Wait(); err != nil {
		return sb.String(), pkgerrors.Wrap(err, "smt: z3 exited with error")
	}
	return sb.String(), nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}
