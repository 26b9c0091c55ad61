package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_IsInteger(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindU8, true}, {KindU16, true}, {KindU32, true}, {KindU64, true},
		{KindS8, true}, {KindS16, true}, {KindS32, true}, {KindS64, true},
		{KindBool, false}, {KindF32, false}, {KindF64, false}, {KindString, false},
		{KindChar, false}, {KindList, false}, {KindRecord, false}, {KindTuple, false},
		{KindVariant, false}, {KindEnum, false}, {KindOption, false}, {KindResult, false},
		{KindFlags, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.IsInteger())
		})
	}
}

func TestKind_IsSigned(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindS8, true}, {KindS16, true}, {KindS32, true}, {KindS64, true},
		{KindU8, false}, {KindU16, false}, {KindU32, false}, {KindU64, false},
		{KindBool, false}, {KindString, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.IsSigned())
		})
	}
}

func TestKind_IntegerBounds(t *testing.T) {
	tests := []struct {
		kind    Kind
		wantMin int64
		wantMax int64
	}{
		{KindU8, 0, 255},
		{KindU16, 0, 65535},
		{KindU32, 0, 4294967295},
		{KindS8, -128, 127},
		{KindS16, -32768, 32767},
		{KindS32, -2147483648, 2147483647},
		{KindS64, -9223372036854775808, 9223372036854775807},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			min, max := tt.kind.IntegerBounds()
			assert.Equal(t, tt.wantMin, min)
			assert.Equal(t, tt.wantMax, max)
		})
	}
}

func TestEqual_Nil(t *testing.T) {
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(&Value{Kind: KindBool}, nil))
	assert.False(t, Equal(nil, &Value{Kind: KindBool}))
}

func TestEqual_KindMismatch(t *testing.T) {
	assert.False(t, Equal(&Value{Kind: KindBool}, &Value{Kind: KindString}))
}
