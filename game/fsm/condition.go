package fsm

// Condition decides whether a transition fires. Conditions may record what
// they observed in the context; because the table stops at the first match,
// a condition on a later row never runs once an earlier row fired.
type Condition[C any] func(ctx C) bool

// Always holds unconditionally.
func Always[C any]() Condition[C] {
	return func(C) bool { return true }
}

// Not negates c.
func Not[C any](c Condition[C]) Condition[C] {
	return func(ctx C) bool { return !c(ctx) }
}

// And holds when every condition holds. Evaluation stops at the first
// false condition, left to right.
func And[C any](conds ...Condition[C]) Condition[C] {
	return func(ctx C) bool {
		for _, c := range conds {
			if !c(ctx) {
				return false
			}
		}
		return true
	}
}

// Or holds when any condition holds. Evaluation stops at the first true
// condition, left to right.
func Or[C any](conds ...Condition[C]) Condition[C] {
	return func(ctx C) bool {
		for _, c := range conds {
			if c(ctx) {
				return true
			}
		}
		return false
	}
}
