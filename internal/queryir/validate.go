package queryir

import (
	"errors"
	"fmt"
)

// Validate checks a query for structural problems and returns all of them
// joined. Validate is a pure function with no side effects.
func Validate(q Query) error {
	v := &validator{}
	v.validateQuery(q)
	return errors.Join(v.errs...)
}

// validator accumulates errors during traversal.
type validator struct {
	errs []error
}

func (v *validator) addError(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addError("nil query")
	case Select:
		v.requireTable(query.Table)
		if query.Limit < 0 {
			v.addError("negative limit %d", query.Limit)
		}
		v.validatePredicate(query.Filter)
	case Count:
		v.requireTable(query.Table)
		v.validatePredicate(query.Filter)
	case MaxPosition:
		v.requireTable(query.Table)
	case *Select:
		v.validatePtr(query == nil, q, func() { v.validateQuery(*query) })
	case *Count:
		v.validatePtr(query == nil, q, func() { v.validateQuery(*query) })
	case *MaxPosition:
		v.validatePtr(query == nil, q, func() { v.validateQuery(*query) })
	default:
		v.addError("unknown query type %T", q)
	}
}

// validatePtr validates the pointer form of a node through its value
// form. A typed nil pointer is an error.
func (v *validator) validatePtr(isNil bool, node any, validate func()) {
	if isNil {
		v.addError("nil %T", node)
		return
	}
	validate()
}

func (v *validator) requireTable(table string) {
	if table == "" {
		v.addError("query has no table")
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		// no filter
	case Contains:
		if pred.Column == "" {
			v.addError("contains: empty column")
		}
		if pred.Needle == "" {
			v.addError("contains %q: empty needle", pred.Column)
		}
	case IDEquals:
		if pred.ID == "" {
			v.addError("id equals: empty id")
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *Contains:
		v.validatePtr(pred == nil, p, func() { v.validatePredicate(*pred) })
	case *IDEquals:
		v.validatePtr(pred == nil, p, func() { v.validatePredicate(*pred) })
	case *And:
		v.validatePtr(pred == nil, p, func() { v.validatePredicate(*pred) })
	default:
		v.addError("unknown predicate type %T", p)
	}
}
