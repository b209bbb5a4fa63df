package packet

import "packetgen/header"

// Predicate is a tagged predicate DSL used in place of embedded lambdas,
// so bindings stay data-introspectable: Specificity lets the registry
// rank competing bindings without inspecting closures.
type Predicate interface {
	Eval(lower *header.Instance) bool
	Specificity() int
}

type equalsPredicate struct {
	field string
	value any
}

func (p equalsPredicate) Eval(lower *header.Instance) bool {
	return valuesEqual(lower.Get(p.field), p.value)
}
func (p equalsPredicate) Specificity() int { return 1 }

// Equals matches when lower's named field equals value.
func Equals(field string, value any) Predicate { return equalsPredicate{field: field, value: value} }

type inPredicate struct {
	field  string
	values []any
}

func (p inPredicate) Eval(lower *header.Instance) bool {
	v := lower.Get(p.field)
	for _, candidate := range p.values {
		if valuesEqual(v, candidate) {
			return true
		}
	}
	return false
}
func (p inPredicate) Specificity() int { return 1 }

// In matches when lower's named field equals any of values.
func In(field string, values ...any) Predicate { return inPredicate{field: field, values: values} }

type lambdaPredicate struct {
	fields []string
	fn     func(lower *header.Instance) bool
}

func (p lambdaPredicate) Eval(lower *header.Instance) bool { return p.fn(lower) }
func (p lambdaPredicate) Specificity() int {
	if len(p.fields) == 0 {
		return 1
	}
	return len(p.fields)
}

// ByLambda matches via an arbitrary function of the lower header, e.g. the
// MLD/MLQ body-length disambiguation. fields names the fields fn inspects,
// so the predicate's specificity participates correctly in the
// more-fields-wins tie-break.
func ByLambda(fields []string, fn func(lower *header.Instance) bool) Predicate {
	return lambdaPredicate{fields: fields, fn: fn}
}

type allPredicate struct{ preds []Predicate }

func (p allPredicate) Eval(lower *header.Instance) bool {
	for _, sub := range p.preds {
		if !sub.Eval(lower) {
			return false
		}
	}
	return true
}
func (p allPredicate) Specificity() int {
	total := 0
	for _, sub := range p.preds {
		total += sub.Specificity()
	}
	return total
}

// All is a conjunction (AND) of predicates.
func All(preds ...Predicate) Predicate { return allPredicate{preds: preds} }

type anyPredicate struct{ preds []Predicate }

func (p anyPredicate) Eval(lower *header.Instance) bool {
	for _, sub := range p.preds {
		if sub.Eval(lower) {
			return true
		}
	}
	return false
}
func (p anyPredicate) Specificity() int {
	total := 0
	for _, sub := range p.preds {
		total += sub.Specificity()
	}
	return total
}

// Any is a disjunction (OR) of predicates.
func Any(preds ...Predicate) Predicate { return anyPredicate{preds: preds} }

func valuesEqual(a, b any) bool {
	an, aok := toComparableUint(a)
	bn, bok := toComparableUint(b)
	if aok && bok {
		return an == bn
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	return a == b
}

func toComparableUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint32:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case int:
		return uint64(n), n >= 0
	case int64:
		return uint64(n), n >= 0
	}
	return 0, false
}
