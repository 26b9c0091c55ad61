// Package value implements the component-model value representation and
// the structural, table-driven JSON codec between it and the wire
// format the schema bridge advertises. The codec law is
// decode(encode(v)) == v for any value of a representable type.
package value

// Kind enumerates the component-model type kinds this runtime projects.
type Kind string

const (
	KindBool    Kind = "bool"
	KindU8      Kind = "u8"
	KindU16     Kind = "u16"
	KindU32     Kind = "u32"
	KindU64     Kind = "u64"
	KindS8      Kind = "s8"
	KindS16     Kind = "s16"
	KindS32     Kind = "s32"
	KindS64     Kind = "s64"
	KindF32     Kind = "f32"
	KindF64     Kind = "f64"
	KindChar    Kind = "char"
	KindString  Kind = "string"
	KindList    Kind = "list"
	KindRecord  Kind = "record"
	KindTuple   Kind = "tuple"
	KindVariant Kind = "variant"
	KindEnum    Kind = "enum"
	KindOption  Kind = "option"
	KindResult  Kind = "result"
	KindFlags   Kind = "flags"
)

// IsInteger reports whether k is one of the sized integer kinds.
func (k Kind) IsInteger() bool {
	switch k {
	case KindU8, KindU16, KindU32, KindU64, KindS8, KindS16, KindS32, KindS64:
		return true
	}
	return false
}

// IsSigned reports whether k is a signed integer kind.
func (k Kind) IsSigned() bool {
	switch k {
	case KindS8, KindS16, KindS32, KindS64:
		return true
	}
	return false
}

// IntegerBounds returns the [min, max] range representable by k. Only
// valid when k.IsInteger().
func (k Kind) IntegerBounds() (min, max int64) {
	switch k {
	case KindU8:
		return 0, 1<<8 - 1
	case KindU16:
		return 0, 1<<16 - 1
	case KindU32:
		return 0, 1<<32 - 1
	case KindU64:
		// max uint64 overflows int64; callers needing the exact bound
		// should special-case KindU64.
		return 0, 1<<63 - 1
	case KindS8:
		return -1 << 7, 1<<7 - 1
	case KindS16:
		return -1 << 15, 1<<15 - 1
	case KindS32:
		return -1 << 31, 1<<31 - 1
	case KindS64:
		return -1 << 63, 1<<63 - 1
	}
	return 0, 0
}

// Field is a named, typed member of a record.
type Field struct {
	Name string
	Type *Type
}

// Case is a named, optionally-typed member of a variant.
type Case struct {
	Name string
	Type *Type // nil when the case carries no payload
}

// Type describes a component-model type, sufficient to drive both the
// JSON Schema projection (schema package) and the value codec below.
type Type struct {
	Kind Kind

	Elem *Type // list<Elem>, option<Elem>

	Fields []Field // record

	Items []*Type // tuple

	Cases []Case // variant

	Names []string // enum, flags (member names)

	Ok  *Type // result<Ok, Err>
	Err *Type

	Doc string // doc string extracted from WIT documentation, if any
}

// Func describes one exported function: its named parameters and its
// result type (nil result means the function returns nothing).
type Func struct {
	Name    string
	Params  []Field
	Result  *Type
	Doc     string
}
