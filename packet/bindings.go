package packet

import (
	"sync"

	"packetgen/header"
)

// FieldOverride is a single field assignment applied to a header instance —
// used both as Packet.Add's build-direction parameters and as a binding's
// setters.
type FieldOverride struct {
	Name  string
	Value any
}

type bindingEntry struct {
	lower, upper *header.Kind
	pred         Predicate
	setters      []FieldOverride
}

// Bindings is the binding registry: a write-once table of (lower, upper,
// predicate, setters) entries populated during header-kind declaration
// and read thereafter by Packet.Add/Parse.
type Bindings struct {
	mu        sync.RWMutex
	entries   []bindingEntry
	allowTies bool
}

// NewBindings creates an empty binding registry. A process-wide default
// instance (DefaultBindings) exists for convenience, but nothing requires
// using it — a Packet can be built against any registry.
func NewBindings() *Bindings { return &Bindings{} }

// DefaultBindings is the process-wide registry the proto catalog populates
// from its init() functions, so callers get a usable binding table without
// building their own, while still being free to inject a private one.
var DefaultBindings = NewBindings()

// AllowAmbiguousTies controls what Resolve does when two bindings of equal
// specificity and distinct upper kinds both match: false (default) fails
// with ErrAmbiguousBinding; true falls back to registration order.
func (b *Bindings) AllowAmbiguousTies(allow bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allowTies = allow
}

// Bind registers one binding entry. setters are the field assignments
// Packet.Add applies to the lower header when the upper is pushed.
func (b *Bindings) Bind(lower, upper *header.Kind, pred Predicate, setters ...FieldOverride) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, bindingEntry{lower: lower, upper: upper, pred: pred, setters: setters})
}

// Resolve returns the upper Kind that should follow lower, given lower's
// just-read instance, or (nil, nil) if no binding matches. Ties are broken
// per AllowAmbiguousTies.
func (b *Bindings) Resolve(lower *header.Kind, inst *header.Instance) (*header.Kind, error) {
	b.mu.RLock()
	entries := b.entries
	allowTies := b.allowTies
	b.mu.RUnlock()

	bestSpecificity := -1
	var tied []*bindingEntry
	for i := range entries {
		e := &entries[i]
		if e.lower != lower || !e.pred.Eval(inst) {
			continue
		}
		sp := e.pred.Specificity()
		switch {
		case sp > bestSpecificity:
			bestSpecificity = sp
			tied = []*bindingEntry{e}
		case sp == bestSpecificity:
			tied = append(tied, e)
		}
	}
	if len(tied) == 0 {
		return nil, nil
	}
	if len(tied) == 1 {
		return tied[0].upper, nil
	}

	first := tied[0].upper
	sameUpper := true
	for _, e := range tied[1:] {
		if e.upper != first {
			sameUpper = false
			break
		}
	}
	if sameUpper {
		return first, nil
	}
	if allowTies {
		return tied[0].upper, nil
	}
	return nil, ErrAmbiguousBinding
}

// DefaultsFor returns the field assignments registered for the (lower,
// upper) pair, used by Packet.Add to pre-fill the lower header's
// discriminator fields when the upper header is pushed.
func (b *Bindings) DefaultsFor(lower, upper *header.Kind) []FieldOverride {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := range b.entries {
		e := &b.entries[i]
		if e.lower == lower && e.upper == upper {
			return e.setters
		}
	}
	return nil
}

// HasBinding reports whether any entry links lower to upper, regardless of
// predicate — used by Packet.Add to fail fast with ErrUnboundStack only
// when the pair is truly unregistered rather than merely unmatched.
func (b *Bindings) HasBinding(lower, upper *header.Kind) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := range b.entries {
		if b.entries[i].lower == lower && b.entries[i].upper == upper {
			return true
		}
	}
	return false
}
