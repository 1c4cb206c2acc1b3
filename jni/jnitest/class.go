package jnitest

// Method is a scripted instance method. recv is the value returned by the
// class's New function; args are the decoded invocation arguments.
// Returning a non-nil error makes the fake raise a pending JVM exception.
type Method func(recv any, args []any) (any, error)

// StaticMethod is a scripted static method.
type StaticMethod func(args []any) (any, error)

// ChannelMethod is a scripted method invoked through the channel bridge.
// Every returned value is delivered to the caller's token, in order.
type ChannelMethod func(recv any, args []any) []any

// Field reads a scripted instance field.
type Field func(recv any) (any, error)

// Class scripts the Java-side behavior of one class.
type Class struct {
	// Name is the dot-separated binary name, e.g. "java.util.ArrayList".
	Name string

	// New constructs an instance. A nil New makes construction fail with
	// an InstantiationException.
	New func(args []any) (any, error)

	Methods        map[string]Method
	Statics        map[string]StaticMethod
	ChannelMethods map[string]ChannelMethod
	Fields         map[string]Field

	// CastableTo lists class names a cast to which succeeds, in addition
	// to the class's own name.
	CastableTo []string
}

// Object lets a scripted method return a value bound to a class, so the
// result can be invoked on again. Plain return values are wrapped in an
// anonymous proxy that supports getJson but not further invocation.
type Object struct {
	Class string
	Value any
}
