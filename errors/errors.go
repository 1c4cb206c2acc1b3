package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseBootstrap Phase = "bootstrap" // VM creation and cache population
	PhaseAttach    Phase = "attach"    // thread attachment/detachment
	PhaseMarshal   Phase = "marshal"   // Go to JVM argument conversion
	PhaseInvoke    Phase = "invoke"    // method/constructor/field invocation
	PhaseCallback  Phase = "callback"  // channel bridge delivery
	PhaseParse     Phase = "parse"     // JSON serialization/deserialization
	PhaseConfig    Phase = "config"    // builder/classpath assembly
)

// Kind categorizes the error
type Kind string

const (
	// KindJava means a pending JVM exception was observed and cleared,
	// or VM bring-up failed on the Java side.
	KindJava Kind = "java"
	// KindJNI means a native-interop failure: string conversion, a null
	// method or class resolution, a failed reference promotion.
	KindJNI Kind = "jni"
	// KindNative means native-side protocol misuse, such as asking an
	// instance-backed argument for a value it cannot provide.
	KindNative Kind = "native"
	// KindParse means a JSON encode or decode failure.
	KindParse Kind = "parse"
	// KindGeneral covers I/O, filesystem and other environment failures.
	KindGeneral Kind = "general"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Cause     error
	Phase     Phase
	Kind      Kind
	ClassName string
	Method    string
	Detail    string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.ClassName != "" {
		b.WriteString(": class ")
		b.WriteString(e.ClassName)
		if e.Method != "" {
			b.WriteByte('.')
			b.WriteString(e.Method)
		}
	} else if e.Method != "" {
		b.WriteString(": ")
		b.WriteString(e.Method)
	}

	if e.Detail != "" {
		if e.ClassName != "" || e.Method != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Class sets the JVM class name the error relates to
func (b *Builder) Class(name string) *Builder {
	b.err.ClassName = name
	return b
}

// Method sets the method or field name the error relates to
func (b *Builder) Method(name string) *Builder {
	b.err.Method = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// JavaException records a pending JVM exception that was observed and
// cleared after the named operation.
func JavaException(phase Phase, class, method string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindJava,
		ClassName: class,
		Method:    method,
		Detail:    "an exception was thrown by the JVM and has been cleared",
	}
}

// Bootstrap creates a VM bring-up failure error
func Bootstrap(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseBootstrap,
		Kind:   KindJava,
		Detail: detail,
		Cause:  cause,
	}
}

// Resolution creates an error for a class or method that could not be resolved
func Resolution(class, member string, cause error) *Error {
	return &Error{
		Phase:     PhaseBootstrap,
		Kind:      KindJNI,
		ClassName: class,
		Method:    member,
		Detail:    "resolution failed",
		Cause:     cause,
	}
}

// JNI creates a native-interop failure error
func JNI(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindJNI,
		Detail: detail,
		Cause:  cause,
	}
}

// Native creates a native-side protocol misuse error
func Native(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNative,
		Detail: detail,
	}
}

// Parse creates a JSON encode/decode failure error
func Parse(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindParse,
		Detail: detail,
		Cause:  cause,
	}
}

// General creates an environment failure error
func General(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindGeneral,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// IsJava reports whether err is a bridge error carrying a cleared JVM exception.
func IsJava(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == KindJava
}

// KindOf returns the Kind of a bridge error, or KindGeneral for foreign errors.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindGeneral
}
