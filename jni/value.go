package jni

// ValueKind discriminates the closed set of call argument variants.
type ValueKind uint8

const (
	ValueObject ValueKind = iota
	ValueBoolean
	ValueByte
	ValueChar
	ValueShort
	ValueInt
	ValueLong
	ValueFloat
	ValueDouble
)

// Value is a single argument to a JVM call. It is a tagged union: exactly
// one of the payload fields is meaningful, selected by Kind. Values are
// built through the typed constructors below, never by probing a Go value
// at runtime.
type Value struct {
	Kind ValueKind
	Obj  Ref
	I    int64
	F    float64
}

// Object wraps an object reference argument.
func Object(r Ref) Value { return Value{Kind: ValueObject, Obj: r} }

// Boolean wraps a jboolean argument.
func Boolean(v bool) Value {
	var i int64
	if v {
		i = 1
	}
	return Value{Kind: ValueBoolean, I: i}
}

// Byte wraps a jbyte argument.
func Byte(v int8) Value { return Value{Kind: ValueByte, I: int64(v)} }

// Char wraps a jchar argument.
func Char(v rune) Value { return Value{Kind: ValueChar, I: int64(v)} }

// Short wraps a jshort argument.
func Short(v int16) Value { return Value{Kind: ValueShort, I: int64(v)} }

// Int wraps a jint argument.
func Int(v int32) Value { return Value{Kind: ValueInt, I: int64(v)} }

// Long wraps a jlong argument.
func Long(v int64) Value { return Value{Kind: ValueLong, I: v} }

// Float wraps a jfloat argument.
func Float(v float32) Value { return Value{Kind: ValueFloat, F: float64(v)} }

// Double wraps a jdouble argument.
func Double(v float64) Value { return Value{Kind: ValueDouble, F: v} }
