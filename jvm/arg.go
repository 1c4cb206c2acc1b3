package jvm

import (
	"github.com/segmentio/encoding/json"

	"github.com/jvmkit/jni-runtime/errors"
	"github.com/jvmkit/jni-runtime/jni"
)

type argKind uint8

const (
	argInstance argKind = iota
	argSerialized
	argPrimitive
)

// InvocationArg is one argument of a JVM call. It is a closed union of
// three variants:
//
//   - an existing Instance, passed by reference
//   - a serialized value, carried as JSON and deserialized by the JVM side
//   - a pre-boxed primitive, constructed directly through JNI
//
// Strings and the 8/16/32/64-bit integers take the pre-boxed path; other
// primitives and arbitrary Go values take the serialized path.
type InvocationArg struct {
	kind      argKind
	className string
	instance  *Instance
	json      []byte
	boxed     *Instance
}

// ClassName returns the argument's type tag as sent on the wire.
func (a *InvocationArg) ClassName() string {
	return a.className
}

// InstanceArg passes an existing instance as an argument. The instance
// stays owned by the caller and must outlive the call.
func InstanceArg(inst *Instance) *InvocationArg {
	return &InvocationArg{kind: argInstance, className: inst.className, instance: inst}
}

// SerializedArg passes any JSON-serializable value, tagged with the Java
// class it deserializes into.
func SerializedArg(className string, v any) (*InvocationArg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Parse("failed to serialize argument for "+className, err)
	}
	return &InvocationArg{kind: argSerialized, className: className, json: data}, nil
}

// StringArg passes a string, boxed directly through JNI.
func StringArg(rt *Runtime, v string) (*InvocationArg, error) {
	local, err := rt.env.NewString(v)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshal, errors.KindJNI, err, "failed to box string argument")
	}
	inst, err := rt.promote(local, ClassString, errors.PhaseMarshal)
	if err != nil {
		return nil, err
	}
	return &InvocationArg{kind: argPrimitive, className: ClassString, boxed: inst}, nil
}

// ByteArg passes an int8 as java.lang.Byte.
func ByteArg(rt *Runtime, v int8) (*InvocationArg, error) {
	return boxedArg(rt, ClassByte, jni.Byte(v))
}

// ShortArg passes an int16 as java.lang.Short.
func ShortArg(rt *Runtime, v int16) (*InvocationArg, error) {
	return boxedArg(rt, ClassShort, jni.Short(v))
}

// IntArg passes an int32 as java.lang.Integer.
func IntArg(rt *Runtime, v int32) (*InvocationArg, error) {
	return boxedArg(rt, ClassInteger, jni.Int(v))
}

// LongArg passes an int64 as java.lang.Long.
func LongArg(rt *Runtime, v int64) (*InvocationArg, error) {
	return boxedArg(rt, ClassLong, jni.Long(v))
}

// BoolArg passes a bool as java.lang.Boolean, via the serialized path.
func BoolArg(v bool) (*InvocationArg, error) {
	return SerializedArg(ClassBoolean, v)
}

// CharArg passes a rune as java.lang.Character, via the serialized path.
func CharArg(v rune) (*InvocationArg, error) {
	return SerializedArg(ClassCharacter, string(v))
}

// FloatArg passes a float32 as java.lang.Float, via the serialized path.
func FloatArg(v float32) (*InvocationArg, error) {
	return SerializedArg(ClassFloat, v)
}

// DoubleArg passes a float64 as java.lang.Double, via the serialized path.
func DoubleArg(v float64) (*InvocationArg, error) {
	return SerializedArg(ClassDouble, v)
}

// VoidArg passes the unit value.
func VoidArg() *InvocationArg {
	return &InvocationArg{kind: argSerialized, className: ClassVoid, json: []byte("null")}
}

func boxedArg(rt *Runtime, className string, v jni.Value) (*InvocationArg, error) {
	entry, ok := rt.state.cache.boxed[className]
	if !ok {
		return nil, errors.Native(errors.PhaseMarshal, className+" has no cached boxed constructor")
	}
	local, err := rt.env.NewObject(entry.class, entry.ctor, v)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshal, errors.KindJNI, err, "failed to box "+className)
	}
	if err := rt.checkPending(errors.PhaseMarshal, className, "<init>"); err != nil {
		rt.env.DeleteLocalRef(local)
		return nil, err
	}
	inst, err := rt.promote(local, className, errors.PhaseMarshal)
	if err != nil {
		return nil, err
	}
	return &InvocationArg{kind: argPrimitive, className: className, boxed: inst}, nil
}

// Instance recovers the Instance behind an instance-variant argument.
// Serialized and primitive arguments report false.
func (a *InvocationArg) Instance() (*Instance, bool) {
	if a.kind != argInstance {
		return nil, false
	}
	return a.instance, true
}

// Close releases the boxed object of a primitive argument. Arguments of the
// other variants hold no JVM state and ignore Close.
func (a *InvocationArg) Close() error {
	if a.kind == argPrimitive && a.boxed != nil {
		return a.boxed.Close()
	}
	return nil
}

// primitiveNames maps boxed class tags to the primitive type names the JVM
// side expects when a parameter is declared primitive. Primitive names map
// to themselves. java.lang.String is deliberately absent: there is no
// primitive string.
var primitiveNames = map[string]string{
	ClassBoolean:   "boolean",
	ClassByte:      "byte",
	ClassCharacter: "char",
	ClassShort:     "short",
	ClassInteger:   "int",
	ClassLong:      "long",
	ClassFloat:     "float",
	ClassDouble:    "double",
	ClassVoid:      "void",
	"boolean":      "boolean",
	"byte":         "byte",
	"char":         "char",
	"short":        "short",
	"int":          "int",
	"long":         "long",
	"float":        "float",
	"double":       "double",
}

// IntoPrimitive retags the argument with the primitive counterpart of its
// boxed class, for calls whose parameters are declared as primitives. It
// fails for classes with no primitive counterpart, including
// java.lang.String.
func (a *InvocationArg) IntoPrimitive() (*InvocationArg, error) {
	p, ok := primitiveNames[a.className]
	if !ok {
		return nil, errors.Native(errors.PhaseMarshal, a.className+" cannot be made primitive")
	}
	cp := *a
	cp.className = p
	return &cp, nil
}

// asObject builds the wire DTO for this argument. The returned reference is
// call-scoped; the caller releases it after the invocation.
func (a *InvocationArg) asObject(rt *Runtime) (jni.LocalRef, error) {
	env, c := rt.env, &rt.state.cache

	nameRef, err := env.NewString(a.className)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseMarshal, errors.KindJNI, err, "failed to marshal argument class name")
	}
	defer env.DeleteLocalRef(nameRef)

	switch a.kind {
	case argInstance:
		return env.NewObject(c.invArgClass, c.invArgJavaCtor,
			jni.Object(jni.Ref(nameRef)), jni.Object(jni.Ref(a.instance.ref)))
	case argSerialized:
		jsonRef, err := env.NewString(string(a.json))
		if err != nil {
			return 0, errors.Wrap(errors.PhaseMarshal, errors.KindJNI, err, "failed to marshal serialized argument")
		}
		defer env.DeleteLocalRef(jsonRef)
		return env.NewObject(c.invArgClass, c.invArgSerializedCtor,
			jni.Object(jni.Ref(nameRef)), jni.Object(jni.Ref(jsonRef)))
	default:
		return env.NewObject(c.invArgClass, c.invArgBasicCtor,
			jni.Object(jni.Ref(nameRef)), jni.Object(jni.Ref(a.boxed.ref)))
	}
}
