// Package milp is a small mixed-integer linear programming engine. LP
// relaxations are solved by a dense bounded-variable primal simplex on gonum
// matrices, and integer restrictions are enforced by depth-first branch and
// bound with optional cutting planes.
//
// It is sized for models with a few hundred variables. Programming errors
// (unknown variable indices, infinite lower bounds) panic, in the manner of
// gonum's lp package; solve outcomes are reported through Solution.Status.
package milp

import (
	"fmt"
	"math"
)

// VarKind is the domain restriction of a decision variable
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("VarKind(%d)", int(k))
	}
}

// Var is a decision variable with bounds [Lo, Hi] and objective coefficient Cost.
// Lo must be finite; Hi may be +Inf.
type Var struct {
	Name string
	Kind VarKind
	Lo   float64
	Hi   float64
	Cost float64
}

// Sense is the relation of a linear constraint
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "=="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Term is a coefficient applied to a variable
type Term struct {
	Var  int
	Coef float64
}

// Constraint is sum(Terms) Sense RHS
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is a minimisation MILP
type Problem struct {
	Name string
	vars []Var
	cons []Constraint
}

// NewProblem creates an empty minimisation problem
func NewProblem(name string) *Problem {
	return &Problem{Name: name}
}

// AddVar declares a variable and returns its index. Binary variables are
// clamped to [0, 1].
func (p *Problem) AddVar(name string, kind VarKind, lo, hi, cost float64) int {
	if math.IsInf(lo, 0) || math.IsNaN(lo) {
		panic(fmt.Sprintf("milp: variable %s needs a finite lower bound", name))
	}
	if kind == Binary {
		lo = math.Max(lo, 0)
		hi = math.Min(hi, 1)
	}
	if hi < lo {
		panic(fmt.Sprintf("milp: variable %s has empty domain [%g, %g]", name, lo, hi))
	}
	p.vars = append(p.vars, Var{Name: name, Kind: kind, Lo: lo, Hi: hi, Cost: cost})
	return len(p.vars) - 1
}

// SetCost replaces the objective coefficient of variable v
func (p *Problem) SetCost(v int, cost float64) {
	p.checkVar(v)
	p.vars[v].Cost = cost
}

// AddConstraint appends a linear constraint and returns its index
func (p *Problem) AddConstraint(name string, sense Sense, rhs float64, terms ...Term) int {
	for _, t := range terms {
		p.checkVar(t.Var)
	}
	p.cons = append(p.cons, Constraint{
		Name:  name,
		Terms: append([]Term(nil), terms...),
		Sense: sense,
		RHS:   rhs,
	})
	return len(p.cons) - 1
}

// NumVars returns the number of declared variables
func (p *Problem) NumVars() int { return len(p.vars) }

// NumConstraints returns the number of declared constraints
func (p *Problem) NumConstraints() int { return len(p.cons) }

// Var returns the declaration of variable v
func (p *Problem) Var(v int) Var {
	p.checkVar(v)
	return p.vars[v]
}

// Constraint returns constraint i
func (p *Problem) Constraint(i int) Constraint {
	return p.cons[i]
}

// Objective evaluates the objective at x
func (p *Problem) Objective(x []float64) float64 {
	var total float64
	for k, v := range p.vars {
		total += v.Cost * x[k]
	}
	return total
}

// Check reports the first bound or constraint that x violates by more than tol
func (p *Problem) Check(x []float64, tol float64) error {
	if len(x) != len(p.vars) {
		return fmt.Errorf("milp: assignment has %d values, problem has %d variables", len(x), len(p.vars))
	}
	for k, v := range p.vars {
		if x[k] < v.Lo-tol || x[k] > v.Hi+tol {
			return fmt.Errorf("milp: variable %s=%g outside [%g, %g]", v.Name, x[k], v.Lo, v.Hi)
		}
		if v.Kind != Continuous && math.Abs(x[k]-math.Round(x[k])) > tol {
			return fmt.Errorf("milp: variable %s=%g is not integral", v.Name, x[k])
		}
	}
	for _, c := range p.cons {
		var lhs float64
		for _, t := range c.Terms {
			lhs += t.Coef * x[t.Var]
		}
		if !satisfied(lhs, c.Sense, c.RHS, tol) {
			return fmt.Errorf("milp: constraint %s violated: %g %s %g", c.Name, lhs, c.Sense, c.RHS)
		}
	}
	return nil
}

func (p *Problem) checkVar(v int) {
	if v < 0 || v >= len(p.vars) {
		panic(fmt.Sprintf("milp: variable index %d out of range", v))
	}
}

// rootBounds returns the variable bounds, tightened to integers for
// integer and binary variables.
func (p *Problem) rootBounds(intTol float64) (lo, hi []float64) {
	lo = make([]float64, len(p.vars))
	hi = make([]float64, len(p.vars))
	for k, v := range p.vars {
		lo[k], hi[k] = v.Lo, v.Hi
		if v.Kind != Continuous {
			lo[k] = math.Ceil(v.Lo - intTol)
			if !math.IsInf(v.Hi, 1) {
				hi[k] = math.Floor(v.Hi + intTol)
			}
		}
	}
	return lo, hi
}

func satisfied(lhs float64, sense Sense, rhs, tol float64) bool {
	switch sense {
	case LessEq:
		return lhs <= rhs+tol
	case GreaterEq:
		return lhs >= rhs-tol
	default:
		return math.Abs(lhs-rhs) <= tol
	}
}
