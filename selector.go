package querycache

import "sync"

// Selector memoizes a pure derivation over state S. The derivation is
// recomputed only when an input selector's current output differs from
// the previous call's recorded output; inputs are compared with ==, so
// callers signal change through value identity (version counters,
// pointers, or immutable values), not deep equality. A panicking
// combiner propagates to the caller of Select.
type Selector[S, R any] struct {
	mu         sync.Mutex
	recomputed uint64
	read       func(S) R
}

// Select returns the derived value, recomputing only on changed inputs.
func (s *Selector[S, R]) Select(state S) R {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(state)
}

// Recomputations reports how many times the combiner has run.
func (s *Selector[S, R]) Recomputations() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputed
}

// NewSelector1 builds a memoized selector with one input.
func NewSelector1[S any, I1 comparable, R any](in1 func(S) I1, combine func(I1) R) *Selector[S, R] {
	s := &Selector[S, R]{}
	var (
		have  bool
		prev1 I1
		out   R
	)
	s.read = func(state S) R {
		v1 := in1(state)
		if have && v1 == prev1 {
			return out
		}
		out = combine(v1)
		prev1 = v1
		have = true
		s.recomputed++
		return out
	}
	return s
}

// NewSelector2 builds a memoized selector with two inputs.
func NewSelector2[S any, I1, I2 comparable, R any](in1 func(S) I1, in2 func(S) I2, combine func(I1, I2) R) *Selector[S, R] {
	s := &Selector[S, R]{}
	var (
		have  bool
		prev1 I1
		prev2 I2
		out   R
	)
	s.read = func(state S) R {
		v1, v2 := in1(state), in2(state)
		if have && v1 == prev1 && v2 == prev2 {
			return out
		}
		out = combine(v1, v2)
		prev1, prev2 = v1, v2
		have = true
		s.recomputed++
		return out
	}
	return s
}

// NewSelector3 builds a memoized selector with three inputs.
func NewSelector3[S any, I1, I2, I3 comparable, R any](in1 func(S) I1, in2 func(S) I2, in3 func(S) I3, combine func(I1, I2, I3) R) *Selector[S, R] {
	s := &Selector[S, R]{}
	var (
		have  bool
		prev1 I1
		prev2 I2
		prev3 I3
		out   R
	)
	s.read = func(state S) R {
		v1, v2, v3 := in1(state), in2(state), in3(state)
		if have && v1 == prev1 && v2 == prev2 && v3 == prev3 {
			return out
		}
		out = combine(v1, v2, v3)
		prev1, prev2, prev3 = v1, v2, v3
		have = true
		s.recomputed++
		return out
	}
	return s
}

// SelectorOption configures a KeyedSelector.
type SelectorOption func(*selectorConfig)

type selectorConfig struct {
	singleSlot bool
}

// WithSingleSlot keeps one global cache slot instead of one per
// parameter: selecting with a new parameter discards the previous
// memo. The per-parameter default never evicts, which grows without
// bound over distinct parameters; pick per selector.
func WithSingleSlot() SelectorOption {
	return func(cfg *selectorConfig) {
		cfg.singleSlot = true
	}
}

type keyedSlot[I comparable, R any] struct {
	have bool
	prev I
	out  R
}

// KeyedSelector memoizes a parameterized derivation with one cache slot
// per distinct parameter value.
type KeyedSelector[S any, P comparable, R any] struct {
	mu         sync.Mutex
	recomputed uint64
	read       func(S, P) R
}

// Select returns the derived value for param.
func (s *KeyedSelector[S, P, R]) Select(state S, param P) R {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(state, param)
}

// Recomputations reports how many times the combiner has run.
func (s *KeyedSelector[S, P, R]) Recomputations() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputed
}

// NewKeyedSelector builds a memoized selector whose input and combiner
// also take a parameter.
func NewKeyedSelector[S any, P comparable, I1 comparable, R any](in1 func(S, P) I1, combine func(I1, P) R, opts ...SelectorOption) *KeyedSelector[S, P, R] {
	var cfg selectorConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &KeyedSelector[S, P, R]{}
	if cfg.singleSlot {
		var (
			have      bool
			prevParam P
			prev1     I1
			out       R
		)
		s.read = func(state S, param P) R {
			v1 := in1(state, param)
			if have && param == prevParam && v1 == prev1 {
				return out
			}
			out = combine(v1, param)
			prevParam, prev1 = param, v1
			have = true
			s.recomputed++
			return out
		}
		return s
	}
	slots := make(map[P]*keyedSlot[I1, R])
	s.read = func(state S, param P) R {
		v1 := in1(state, param)
		slot, ok := slots[param]
		if !ok {
			slot = &keyedSlot[I1, R]{}
			slots[param] = slot
		}
		if slot.have && v1 == slot.prev {
			return slot.out
		}
		slot.out = combine(v1, param)
		slot.prev = v1
		slot.have = true
		s.recomputed++
		return slot.out
	}
	return s
}
