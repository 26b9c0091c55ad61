package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRoundTrip exercises decode(encode(v)) == v for one representative
// value of every Kind, the codec law §8 describes.
func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		typ  *Type
		raw  json.RawMessage
	}{
		{name: "bool", typ: &Type{Kind: KindBool}, raw: json.RawMessage(`true`)},
		{name: "u8", typ: &Type{Kind: KindU8}, raw: json.RawMessage(`255`)},
		{name: "u64", typ: &Type{Kind: KindU64}, raw: json.RawMessage(`18446744073709551615`)},
		{name: "s8", typ: &Type{Kind: KindS8}, raw: json.RawMessage(`-128`)},
		{name: "s64", typ: &Type{Kind: KindS64}, raw: json.RawMessage(`-9223372036854775808`)},
		{name: "f64", typ: &Type{Kind: KindF64}, raw: json.RawMessage(`3.5`)},
		{name: "char", typ: &Type{Kind: KindChar}, raw: json.RawMessage(`"a"`)},
		{name: "string", typ: &Type{Kind: KindString}, raw: json.RawMessage(`"hello"`)},
		{
			name: "enum",
			typ:  &Type{Kind: KindEnum, Names: []string{"red", "green", "blue"}},
			raw:  json.RawMessage(`"green"`),
		},
		{
			name: "list",
			typ:  &Type{Kind: KindList, Elem: &Type{Kind: KindU32}},
			raw:  json.RawMessage(`[1,2,3]`),
		},
		{
			name: "record",
			typ: &Type{Kind: KindRecord, Fields: []Field{
				{Name: "id", Type: &Type{Kind: KindString}},
				{Name: "count", Type: &Type{Kind: KindU32}},
			}},
			raw: json.RawMessage(`{"id":"x","count":7}`),
		},
		{
			name: "tuple",
			typ:  &Type{Kind: KindTuple, Items: []*Type{{Kind: KindString}, {Kind: KindBool}}},
			raw:  json.RawMessage(`["a",true]`),
		},
		{
			name: "variant-no-payload",
			typ:  &Type{Kind: KindVariant, Cases: []Case{{Name: "none"}, {Name: "some", Type: &Type{Kind: KindU32}}}},
			raw:  json.RawMessage(`{"tag":"none"}`),
		},
		{
			name: "variant-with-payload",
			typ:  &Type{Kind: KindVariant, Cases: []Case{{Name: "none"}, {Name: "some", Type: &Type{Kind: KindU32}}}},
			raw:  json.RawMessage(`{"tag":"some","val":42}`),
		},
		{
			name: "option-some",
			typ:  &Type{Kind: KindOption, Elem: &Type{Kind: KindString}},
			raw:  json.RawMessage(`"present"`),
		},
		{
			name: "option-none",
			typ:  &Type{Kind: KindOption, Elem: &Type{Kind: KindString}},
			raw:  json.RawMessage(`null`),
		},
		{
			name: "result-ok",
			typ:  &Type{Kind: KindResult, Ok: &Type{Kind: KindU32}, Err: &Type{Kind: KindString}},
			raw:  json.RawMessage(`{"tag":"ok","val":1}`),
		},
		{
			name: "result-err",
			typ:  &Type{Kind: KindResult, Ok: &Type{Kind: KindU32}, Err: &Type{Kind: KindString}},
			raw:  json.RawMessage(`{"tag":"err","val":"boom"}`),
		},
		{
			name: "flags",
			typ:  &Type{Kind: KindFlags, Names: []string{"read", "write", "exec"}},
			raw:  json.RawMessage(`["read","exec"]`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(tt.raw, tt.typ)
			require.NoError(t, err)

			reencoded, err := Encode(decoded)
			require.NoError(t, err)

			redecoded, err := Decode(reencoded, tt.typ)
			require.NoError(t, err)

			assert.True(t, Equal(decoded, redecoded), "decode(encode(decode(raw))) should equal decode(raw)")
		})
	}
}

func TestDecode_RejectsUnknownRecordField(t *testing.T) {
	typ := &Type{Kind: KindRecord, Fields: []Field{{Name: "id", Type: &Type{Kind: KindString}}}}
	_, err := Decode(json.RawMessage(`{"id":"x","extra":1}`), typ)
	assert.Error(t, err)
}

func TestDecode_RejectsMissingRequiredField(t *testing.T) {
	typ := &Type{Kind: KindRecord, Fields: []Field{
		{Name: "id", Type: &Type{Kind: KindString}},
		{Name: "count", Type: &Type{Kind: KindU32}},
	}}
	_, err := Decode(json.RawMessage(`{"id":"x"}`), typ)
	assert.Error(t, err)
}

func TestDecode_RejectsOutOfRangeInteger(t *testing.T) {
	_, err := Decode(json.RawMessage(`256`), &Type{Kind: KindU8})
	assert.Error(t, err)
}

func TestDecode_RejectsMultiRuneChar(t *testing.T) {
	_, err := Decode(json.RawMessage(`"ab"`), &Type{Kind: KindChar})
	assert.Error(t, err)
}

func TestDecode_RejectsUnknownEnumMember(t *testing.T) {
	_, err := Decode(json.RawMessage(`"purple"`), &Type{Kind: KindEnum, Names: []string{"red", "green"}})
	assert.Error(t, err)
}

func TestDecode_RejectsDuplicateFlag(t *testing.T) {
	_, err := Decode(json.RawMessage(`["read","read"]`), &Type{Kind: KindFlags, Names: []string{"read", "write"}})
	assert.Error(t, err)
}

func TestDecode_RejectsUnknownFlag(t *testing.T) {
	_, err := Decode(json.RawMessage(`["execute"]`), &Type{Kind: KindFlags, Names: []string{"read", "write"}})
	assert.Error(t, err)
}

func TestDecode_RejectsWrongTupleArity(t *testing.T) {
	typ := &Type{Kind: KindTuple, Items: []*Type{{Kind: KindString}, {Kind: KindBool}}}
	_, err := Decode(json.RawMessage(`["a"]`), typ)
	assert.Error(t, err)
}

func TestDecode_RejectsUnknownVariantCase(t *testing.T) {
	typ := &Type{Kind: KindVariant, Cases: []Case{{Name: "a"}}}
	_, err := Decode(json.RawMessage(`{"tag":"b"}`), typ)
	assert.Error(t, err)
}

func TestDecode_RejectsInvalidResultTag(t *testing.T) {
	typ := &Type{Kind: KindResult, Ok: &Type{Kind: KindBool}, Err: &Type{Kind: KindString}}
	_, err := Decode(json.RawMessage(`{"tag":"maybe","val":true}`), typ)
	assert.Error(t, err)
}

func TestDecode_NilType(t *testing.T) {
	_, err := Decode(json.RawMessage(`1`), nil)
	assert.Error(t, err)
}
