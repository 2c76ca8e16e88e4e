package props

import (
	"bytes"
	"fmt"
)

// Kind is the tag of a property Value.
type Kind uint8

const (
	KindUInt8      Kind = iota // Byte
	KindUInt16                 // naive Short
	KindUInt32                 // NPC object ids
	KindShort14                // GShort
	KindInt21                  // GInt3
	KindInt35                  // GInt5
	KindString                 // every string encoding
	KindPowerImage             // sword / shield tuple
	KindBytes                  // fixed or counted byte arrays
)

func (k Kind) String() string {
	switch k {
	case KindUInt8:
		return "UInt8"
	case KindUInt16:
		return "UInt16"
	case KindUInt32:
		return "UInt32"
	case KindShort14:
		return "SignedShort14"
	case KindInt21:
		return "Int21"
	case KindInt35:
		return "Int35"
	case KindString:
		return "String"
	case KindPowerImage:
		return "PowerImage"
	case KindBytes:
		return "Bytes"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a decoded property value. Only the fields that belong to Kind are set.
type Value struct {
	Kind  Kind
	Int   int64
	Str   string
	Power int
	Bytes []byte
}

func UInt8(v int) Value { return Value{Kind: KindUInt8, Int: int64(v)} }
func UInt16(v int) Value { return Value{Kind: KindUInt16, Int: int64(v)} }
func UInt32(v int) Value { return Value{Kind: KindUInt32, Int: int64(v)} }
func Short14(v int) Value { return Value{Kind: KindShort14, Int: int64(v)} }
func Int21(v int) Value { return Value{Kind: KindInt21, Int: int64(v)} }
func Int35(v int64) Value { return Value{Kind: KindInt35, Int: v} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func ByteArray(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// PowerImage builds a sword/shield value. An empty image means "power only".
func PowerImage(power int, image string) Value {
	return Value{Kind: KindPowerImage, Power: power, Str: image}
}

// Equal reports whether two values carry the same tag and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindPowerImage:
		return v.Power == o.Power && v.Str == o.Str
	case KindBytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	default:
		return v.Int == o.Int
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindPowerImage:
		return fmt.Sprintf("(%d,%q)", v.Power, v.Str)
	case KindBytes:
		return fmt.Sprintf("%x", v.Bytes)
	default:
		return fmt.Sprintf("%d", v.Int)
	}
}

// Property is one (id, value) pair of a property-list packet.
type Property struct {
	ID    ID
	Value Value
}

// Find returns the last value for id in list.
func Find(list []Property, id ID) (Value, bool) {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].ID == id {
			return list[i].Value, true
		}
	}
	return Value{}, false
}
