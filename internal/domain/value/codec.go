package value

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

const op = "value.codec"

func invalidArgs(format string, args ...any) error {
	return wassetteerr.Parsef(op, "InvalidArgs", format, args...)
}

// Decode parses raw JSON into a Value of type t, rejecting unknown
// object fields and missing required fields.
func Decode(raw json.RawMessage, t *Type) (*Value, error) {
	if t == nil {
		return nil, invalidArgs("nil type")
	}
	switch t.Kind {
	case KindBool:
		var b bool
		if err := strictUnmarshal(raw, &b); err != nil {
			return nil, invalidArgs("expected bool: %v", err)
		}
		return &Value{Kind: t.Kind, Bool: b}, nil

	case KindU8, KindU16, KindU32, KindU64:
		var n uint64
		if err := strictUnmarshal(raw, &n); err != nil {
			return nil, invalidArgs("expected unsigned integer: %v", err)
		}
		min, max := t.Kind.IntegerBounds()
		if t.Kind != KindU64 && (int64(n) < min || int64(n) > max) {
			return nil, invalidArgs("%s out of range: %d", t.Kind, n)
		}
		return &Value{Kind: t.Kind, Uint: n}, nil

	case KindS8, KindS16, KindS32, KindS64:
		var n int64
		if err := strictUnmarshal(raw, &n); err != nil {
			return nil, invalidArgs("expected signed integer: %v", err)
		}
		min, max := t.Kind.IntegerBounds()
		if n < min || n > max {
			return nil, invalidArgs("%s out of range: %d", t.Kind, n)
		}
		return &Value{Kind: t.Kind, Int: n}, nil

	case KindF32, KindF64:
		var f float64
		if err := strictUnmarshal(raw, &f); err != nil {
			return nil, invalidArgs("expected number: %v", err)
		}
		return &Value{Kind: t.Kind, Float: f}, nil

	case KindChar:
		var s string
		if err := strictUnmarshal(raw, &s); err != nil {
			return nil, invalidArgs("expected char string: %v", err)
		}
		if len([]rune(s)) != 1 {
			return nil, invalidArgs("char must be exactly one rune, got %q", s)
		}
		return &Value{Kind: t.Kind, Str: s}, nil

	case KindString:
		var s string
		if err := strictUnmarshal(raw, &s); err != nil {
			return nil, invalidArgs("expected string: %v", err)
		}
		return &Value{Kind: t.Kind, Str: s}, nil

	case KindEnum:
		var s string
		if err := strictUnmarshal(raw, &s); err != nil {
			return nil, invalidArgs("expected enum string: %v", err)
		}
		if !contains(t.Names, s) {
			return nil, invalidArgs("%q is not a member of enum %v", s, t.Names)
		}
		return &Value{Kind: t.Kind, Str: s}, nil

	case KindList:
		var items []json.RawMessage
		if err := strictUnmarshal(raw, &items); err != nil {
			return nil, invalidArgs("expected array: %v", err)
		}
		out := make([]*Value, len(items))
		for i, it := range items {
			v, err := Decode(it, t.Elem)
			if err != nil {
				return nil, invalidArgs("list[%d]: %v", i, err)
			}
			out[i] = v
		}
		return &Value{Kind: t.Kind, List: out}, nil

	case KindRecord:
		var obj map[string]json.RawMessage
		if err := strictUnmarshal(raw, &obj); err != nil {
			return nil, invalidArgs("expected object: %v", err)
		}
		allowed := make(map[string]*Type, len(t.Fields))
		for _, f := range t.Fields {
			allowed[f.Name] = f.Type
		}
		for k := range obj {
			if _, ok := allowed[k]; !ok {
				return nil, invalidArgs("unknown field %q", k)
			}
		}
		rec := make(map[string]*Value, len(t.Fields))
		for _, f := range t.Fields {
			raw, ok := obj[f.Name]
			if !ok {
				return nil, invalidArgs("missing required field %q", f.Name)
			}
			v, err := Decode(raw, f.Type)
			if err != nil {
				return nil, invalidArgs("field %q: %v", f.Name, err)
			}
			rec[f.Name] = v
		}
		return &Value{Kind: t.Kind, Record: rec}, nil

	case KindTuple:
		var items []json.RawMessage
		if err := strictUnmarshal(raw, &items); err != nil {
			return nil, invalidArgs("expected array: %v", err)
		}
		if len(items) != len(t.Items) {
			return nil, invalidArgs("tuple expects %d items, got %d", len(t.Items), len(items))
		}
		out := make([]*Value, len(items))
		for i, it := range items {
			v, err := Decode(it, t.Items[i])
			if err != nil {
				return nil, invalidArgs("tuple[%d]: %v", i, err)
			}
			out[i] = v
		}
		return &Value{Kind: t.Kind, Tuple: out}, nil

	case KindVariant:
		var obj struct {
			Tag string          `json:"tag"`
			Val json.RawMessage `json:"val,omitempty"`
		}
		var raw2 map[string]json.RawMessage
		if err := strictUnmarshal(raw, &raw2); err != nil {
			return nil, invalidArgs("expected {tag, val?} object: %v", err)
		}
		for k := range raw2 {
			if k != "tag" && k != "val" {
				return nil, invalidArgs("unknown variant field %q", k)
			}
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, invalidArgs("expected {tag, val?} object: %v", err)
		}
		var ct *Type
		found := false
		for _, c := range t.Cases {
			if c.Name == obj.Tag {
				ct = c.Type
				found = true
				break
			}
		}
		if !found {
			return nil, invalidArgs("%q is not a variant case", obj.Tag)
		}
		if ct == nil {
			if len(obj.Val) != 0 {
				return nil, invalidArgs("variant case %q carries no payload", obj.Tag)
			}
			return &Value{Kind: t.Kind, CaseName: obj.Tag}, nil
		}
		if len(obj.Val) == 0 {
			return nil, invalidArgs("variant case %q requires a payload", obj.Tag)
		}
		v, err := Decode(obj.Val, ct)
		if err != nil {
			return nil, invalidArgs("variant case %q: %v", obj.Tag, err)
		}
		return &Value{Kind: t.Kind, CaseName: obj.Tag, CaseVal: v}, nil

	case KindOption:
		if string(raw) == "null" {
			return &Value{Kind: t.Kind, Some: false}, nil
		}
		v, err := Decode(raw, t.Elem)
		if err != nil {
			return nil, invalidArgs("option payload: %v", err)
		}
		return &Value{Kind: t.Kind, Some: true, Elem: v}, nil

	case KindResult:
		var raw2 map[string]json.RawMessage
		if err := strictUnmarshal(raw, &raw2); err != nil {
			return nil, invalidArgs("expected {tag, val} object: %v", err)
		}
		for k := range raw2 {
			if k != "tag" && k != "val" {
				return nil, invalidArgs("unknown result field %q", k)
			}
		}
		var obj struct {
			Tag string          `json:"tag"`
			Val json.RawMessage `json:"val"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, invalidArgs("expected {tag, val} object: %v", err)
		}
		switch obj.Tag {
		case "ok":
			v, err := Decode(obj.Val, t.Ok)
			if err != nil {
				return nil, invalidArgs("result ok payload: %v", err)
			}
			return &Value{Kind: t.Kind, Ok: true, Result: v}, nil
		case "err":
			v, err := Decode(obj.Val, t.Err)
			if err != nil {
				return nil, invalidArgs("result err payload: %v", err)
			}
			return &Value{Kind: t.Kind, Ok: false, Result: v}, nil
		default:
			return nil, invalidArgs("result tag must be \"ok\" or \"err\", got %q", obj.Tag)
		}

	case KindFlags:
		var names []string
		if err := strictUnmarshal(raw, &names); err != nil {
			return nil, invalidArgs("expected array of flag names: %v", err)
		}
		seen := make(map[string]bool, len(names))
		for _, n := range names {
			if !contains(t.Names, n) {
				return nil, invalidArgs("%q is not a member of flags %v", n, t.Names)
			}
			if seen[n] {
				return nil, invalidArgs("duplicate flag %q", n)
			}
			seen[n] = true
		}
		return &Value{Kind: t.Kind, Flags: names}, nil
	}
	return nil, invalidArgs("unsupported type kind %q", t.Kind)
}

// Encode renders v as JSON following the same wire shapes Decode parses.
func Encode(v *Value) (json.RawMessage, error) {
	if v == nil {
		return json.Marshal(nil)
	}
	switch v.Kind {
	case KindBool:
		return json.Marshal(v.Bool)
	case KindU8, KindU16, KindU32, KindU64:
		return json.Marshal(v.Uint)
	case KindS8, KindS16, KindS32, KindS64:
		return json.Marshal(v.Int)
	case KindF32, KindF64:
		return json.Marshal(v.Float)
	case KindChar, KindString, KindEnum:
		return json.Marshal(v.Str)
	case KindList:
		items := make([]json.RawMessage, len(v.List))
		for i, e := range v.List {
			raw, err := Encode(e)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			items[i] = raw
		}
		return json.Marshal(items)
	case KindRecord:
		obj := make(map[string]json.RawMessage, len(v.Record))
		for k, e := range v.Record {
			raw, err := Encode(e)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			obj[k] = raw
		}
		return json.Marshal(obj)
	case KindTuple:
		items := make([]json.RawMessage, len(v.Tuple))
		for i, e := range v.Tuple {
			raw, err := Encode(e)
			if err != nil {
				return nil, fmt.Errorf("tuple[%d]: %w", i, err)
			}
			items[i] = raw
		}
		return json.Marshal(items)
	case KindVariant:
		obj := map[string]json.RawMessage{}
		tag, err := json.Marshal(v.CaseName)
		if err != nil {
			return nil, err
		}
		obj["tag"] = tag
		if v.CaseVal != nil {
			val, err := Encode(v.CaseVal)
			if err != nil {
				return nil, fmt.Errorf("variant case %q: %w", v.CaseName, err)
			}
			obj["val"] = val
		}
		return json.Marshal(obj)
	case KindOption:
		if !v.Some {
			return json.Marshal(nil)
		}
		return Encode(v.Elem)
	case KindResult:
		obj := map[string]json.RawMessage{}
		tagStr := "err"
		if v.Ok {
			tagStr = "ok"
		}
		tag, err := json.Marshal(tagStr)
		if err != nil {
			return nil, err
		}
		obj["tag"] = tag
		val, err := Encode(v.Result)
		if err != nil {
			return nil, fmt.Errorf("result %s payload: %w", tagStr, err)
		}
		obj["val"] = val
		return json.Marshal(obj)
	case KindFlags:
		return json.Marshal(v.Flags)
	}
	return nil, fmt.Errorf("unsupported value kind %q", v.Kind)
}

// strictUnmarshal decodes raw into dst, rejecting unknown struct fields
// when dst is (a pointer to) a struct. For non-struct targets this is
// equivalent to json.Unmarshal; object-shaped kinds (record, variant,
// result) perform their own field-set validation before calling this.
func strictUnmarshal(raw json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func contains(names []string, s string) bool {
	for _, n := range names {
		if n == s {
			return true
		}
	}
	return false
}
