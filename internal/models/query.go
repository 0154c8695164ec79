// internal/models/query.go
package models

import "strings"

// PredicateKind tells the entity filter apart from the time filter.
type PredicateKind string

const (
	PredicateEntity PredicateKind = "entity"
	PredicateTime   PredicateKind = "time"
)

// Predicate is one WHERE condition with its bound values.
type Predicate struct {
	Kind   PredicateKind `json:"kind"`
	Clause string        `json:"clause"`
	Args   []interface{} `json:"args,omitempty"`
}

// QuerySpec is a compiled read-only query over readings joined to entities.
// Clauses are already written in the target dialect's placeholder style.
type QuerySpec struct {
	Projection []string    `json:"projection"`
	From       string      `json:"from"`
	Predicates []Predicate `json:"predicates"`
	OrderBy    string      `json:"orderBy"`
	Limit      int         `json:"limit"`
	Statement  string      `json:"statement"`
}

// Args flattens predicate arguments in clause order.
func (q QuerySpec) Args() []interface{} {
	var args []interface{}
	for _, p := range q.Predicates {
		args = append(args, p.Args...)
	}
	return args
}

// Where joins the predicates with AND.
func (q QuerySpec) Where() string {
	clauses := make([]string, len(q.Predicates))
	for i, p := range q.Predicates {
		clauses[i] = p.Clause
	}
	return strings.Join(clauses, " AND ")
}
