package milp

import (
	"errors"
	"log"
	"math"
	"time"
)

// Status is the outcome of a solve
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusUnbounded:
		return "UNBOUNDED"
	default:
		return "ERROR"
	}
}

// Budget errors. They are reported with StatusError before optimality is proven.
var (
	ErrNodeLimit      = errors.New("milp: branch-and-bound node limit reached")
	ErrTimeLimit      = errors.New("milp: time limit reached")
	ErrIterationLimit = errors.New("milp: simplex iteration limit reached")
)

// Options bounds and tunes a solve
type Options struct {
	// MaxNodes is the branch-and-bound budget: the number of search nodes
	// the solver may open. Cut rounds at a node do not count.
	MaxNodes int
	// TimeLimit bounds the wall-clock time of the whole solve, including
	// simplex pivots inside a single relaxation.
	TimeLimit time.Duration
	// Tol is the simplex's relative reduced-cost tolerance.
	Tol float64
	// IntTol is the distance from an integer below which a value counts as integral.
	IntTol float64
	// Gap is the relative distance to the incumbent below which a node is pruned.
	Gap float64
	// MaxCutRounds caps how often a node is re-solved after separation.
	MaxCutRounds int
	// Incumbent is an optional feasible assignment that seeds the search.
	// It is ignored when it violates a bound or constraint.
	Incumbent []float64
	// Separator returns constraints violated by the relaxation optimum x,
	// or none. They are added to the problem for the rest of the search, so
	// every feasible integral assignment must satisfy them.
	Separator func(x []float64) []Constraint
	// Rounder proposes an assignment built from the relaxation optimum x, or
	// nil. Proposals that fail Check are discarded.
	Rounder func(x []float64) []float64
}

// DefaultOptions returns the options used when a field is left zero
func DefaultOptions() Options {
	return Options{
		MaxNodes:     10000,
		TimeLimit:    2 * time.Minute,
		Tol:          1e-9,
		IntTol:       1e-6,
		Gap:          1e-9,
		MaxCutRounds: 100,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxNodes <= 0 {
		o.MaxNodes = d.MaxNodes
	}
	if o.Tol <= 0 {
		o.Tol = d.Tol
	}
	if o.IntTol <= 0 {
		o.IntTol = d.IntTol
	}
	if o.TimeLimit <= 0 {
		o.TimeLimit = d.TimeLimit
	}
	if o.Gap <= 0 {
		o.Gap = d.Gap
	}
	if o.MaxCutRounds <= 0 {
		o.MaxCutRounds = d.MaxCutRounds
	}
	return o
}

// Solution is the result of Solve. Values and Objective are set only when
// Status is StatusOptimal; Err is set only when Status is StatusError.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Nodes     int
	Cuts      int
	Err       error
}

type bbNode struct {
	lo, hi []float64
}

// Solve minimises p by depth-first branch and bound over LP relaxations.
// At each node the relaxation is tightened with Separator cuts and offered to
// Rounder before the node is pruned or split. The branching variable is the
// most fractional binary variable, then the most fractional integer one
// (lowest index on ties), and the up branch is explored first.
func Solve(p *Problem, opts Options) *Solution {
	opts = opts.withDefaults()
	deadline := time.Now().Add(opts.TimeLimit)

	lo, hi := p.rootBounds(opts.IntTol)
	stack := []bbNode{{lo: lo, hi: hi}}

	best := math.Inf(1)
	var bestX []float64
	nodes, cuts := 0, 0

	pruned := func(obj float64) bool {
		return bestX != nil && obj >= best-opts.Gap*math.Max(1, math.Abs(best))
	}
	offer := func(x []float64, source string) {
		if x == nil || p.Check(x, opts.IntTol) != nil {
			return
		}
		x = p.roundIntegral(x)
		if obj := p.Objective(x); bestX == nil || obj < best {
			best, bestX = obj, x
			log.Printf("[MILP] New incumbent: problem=%s source=%s objective=%.4f nodes=%d", p.Name, source, best, nodes)
		}
	}

	if opts.Incumbent != nil {
		if err := p.Check(opts.Incumbent, opts.IntTol); err != nil {
			log.Printf("[MILP] Ignoring infeasible incumbent: problem=%s err=%v", p.Name, err)
		} else {
			offer(opts.Incumbent, "seed")
		}
	}

	for len(stack) > 0 {
		if nodes >= opts.MaxNodes {
			log.Printf("[MILP] Node limit reached: problem=%s nodes=%d incumbent=%t", p.Name, nodes, bestX != nil)
			return &Solution{Status: StatusError, Nodes: nodes, Cuts: cuts, Err: ErrNodeLimit}
		}
		if time.Now().After(deadline) {
			log.Printf("[MILP] Time limit reached: problem=%s nodes=%d incumbent=%t", p.Name, nodes, bestX != nil)
			return &Solution{Status: StatusError, Nodes: nodes, Cuts: cuts, Err: ErrTimeLimit}
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		res := p.relax(nd.lo, nd.hi, opts.Tol, deadline)
		for round := 0; opts.Separator != nil && round < opts.MaxCutRounds; round++ {
			if res.status != StatusOptimal || pruned(res.obj) {
				break
			}
			found := opts.Separator(res.x)
			if len(found) == 0 {
				break
			}
			for _, c := range found {
				p.AddConstraint(c.Name, c.Sense, c.RHS, c.Terms...)
			}
			cuts += len(found)
			res = p.relax(nd.lo, nd.hi, opts.Tol, deadline)
		}

		switch res.status {
		case StatusInfeasible:
			continue
		case StatusUnbounded:
			if nodes == 1 {
				log.Printf("[MILP] Relaxation unbounded: problem=%s", p.Name)
				return &Solution{Status: StatusUnbounded, Nodes: nodes, Cuts: cuts}
			}
			return &Solution{Status: StatusError, Nodes: nodes, Cuts: cuts, Err: errors.New("milp: unbounded relaxation below a bounded root")}
		case StatusError:
			log.Printf("[ERROR] MILP relaxation failed: problem=%s node=%d err=%v", p.Name, nodes, res.err)
			return &Solution{Status: StatusError, Nodes: nodes, Cuts: cuts, Err: res.err}
		}

		if opts.Rounder != nil {
			offer(opts.Rounder(res.x), "rounding")
		}
		if pruned(res.obj) {
			continue
		}

		k := p.branchVariable(res.x, opts.IntTol)
		if k < 0 {
			offer(res.x, "relaxation")
			continue
		}

		v := res.x[k]
		down := bbNode{lo: nd.lo, hi: cloneWith(nd.hi, k, math.Floor(v))}
		up := bbNode{lo: cloneWith(nd.lo, k, math.Ceil(v)), hi: nd.hi}
		stack = append(stack, down, up)
	}

	if bestX == nil {
		log.Printf("[MILP] No feasible assignment: problem=%s nodes=%d", p.Name, nodes)
		return &Solution{Status: StatusInfeasible, Nodes: nodes, Cuts: cuts}
	}

	log.Printf("[MILP] Solved: problem=%s objective=%.4f nodes=%d cuts=%d", p.Name, best, nodes, cuts)
	return &Solution{Status: StatusOptimal, Objective: best, Values: bestX, Nodes: nodes, Cuts: cuts}
}

// branchVariable returns the binary variable farthest from integrality,
// else the integer one, or -1 when x is integral.
func (p *Problem) branchVariable(x []float64, intTol float64) int {
	for _, kind := range []VarKind{Binary, Integer} {
		idx, worst := -1, intTol
		for k, v := range p.vars {
			if v.Kind != kind {
				continue
			}
			if frac := math.Abs(x[k] - math.Round(x[k])); frac > worst {
				idx, worst = k, frac
			}
		}
		if idx >= 0 {
			return idx
		}
	}
	return -1
}

func (p *Problem) roundIntegral(x []float64) []float64 {
	out := make([]float64, len(x))
	for k, v := range p.vars {
		out[k] = x[k]
		if v.Kind != Continuous {
			out[k] = math.Round(x[k])
		}
	}
	return out
}

func cloneWith(src []float64, k int, v float64) []float64 {
	dst := make([]float64, len(src))
	copy(dst, src)
	dst[k] = v
	return dst
}
