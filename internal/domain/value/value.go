package value

// Value is the tagged-union in-memory representation of a component-model
// value. Exactly the fields relevant to Kind are populated; the rest are
// zero. This mirrors the wire convention used throughout the host/guest
// ABI (internal/infrastructure/wasm): every cross-boundary payload is a
// small JSON envelope, never a raw Go type switch.
type Value struct {
	Kind Kind

	Bool bool

	// Int holds signed integer kinds; Uint holds unsigned integer kinds
	// (KindU64 may not fit in Int's range, hence the split).
	Int  int64
	Uint uint64

	Float float64 // f32/f64

	Str string // string, char (length-1), enum case name

	List []*Value

	Record map[string]*Value

	Tuple []*Value

	// Variant
	CaseName string
	CaseVal  *Value // nil when the case carries no payload

	// Option
	Some bool
	Elem *Value // the option's payload when Some

	// Result
	Ok     bool
	Result *Value

	// Flags
	Flags []string
}

// Equal reports deep value equality, used by round-trip codec tests.
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool:
		return a.Bool == b.Bool
	case KindU8, KindU16, KindU32, KindU64:
		return a.Uint == b.Uint
	case KindS8, KindS16, KindS32, KindS64:
		return a.Int == b.Int
	case KindF32, KindF64:
		return a.Float == b.Float
	case KindChar, KindString, KindEnum:
		return a.Str == b.Str
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if len(a.Record) != len(b.Record) {
			return false
		}
		for k, av := range a.Record {
			bv, ok := b.Record[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindTuple:
		if len(a.Tuple) != len(b.Tuple) {
			return false
		}
		for i := range a.Tuple {
			if !Equal(a.Tuple[i], b.Tuple[i]) {
				return false
			}
		}
		return true
	case KindVariant:
		return a.CaseName == b.CaseName && Equal(a.CaseVal, b.CaseVal)
	case KindOption:
		if a.Some != b.Some {
			return false
		}
		if !a.Some {
			return true
		}
		return Equal(a.Elem, b.Elem)
	case KindResult:
		if a.Ok != b.Ok {
			return false
		}
		return Equal(a.Result, b.Result)
	case KindFlags:
		if len(a.Flags) != len(b.Flags) {
			return false
		}
		seen := make(map[string]bool, len(a.Flags))
		for _, f := range a.Flags {
			seen[f] = true
		}
		for _, f := range b.Flags {
			if !seen[f] {
				return false
			}
		}
		return true
	}
	return false
}
