package jni

// Ref is an opaque JVM object reference as it crosses the native boundary.
// It carries no lifetime information by itself; LocalRef, GlobalRef and
// WeakRef wrap it with the lifetime the reference was obtained under.
type Ref uintptr

// LocalRef is a call-scoped reference. It is valid only on the thread that
// obtained it and only until control returns to the JVM. Callers that need
// to keep an object must promote it with Env.NewGlobalRef and release the
// local with Env.DeleteLocalRef.
type LocalRef Ref

// GlobalRef is a durable reference valid on any attached thread until it is
// explicitly released with Env.DeleteGlobalRef.
type GlobalRef Ref

// WeakRef is a durable reference that does not prevent collection of the
// referent.
type WeakRef Ref

// MethodID identifies a resolved method or constructor. IDs stay valid for
// the lifetime of the defining class and may be cached across threads.
type MethodID uintptr

// IsNil reports whether the reference is the null reference.
func (r Ref) IsNil() bool { return r == 0 }

// IsNil reports whether the reference is the null reference.
func (r LocalRef) IsNil() bool { return r == 0 }

// IsNil reports whether the reference is the null reference.
func (r GlobalRef) IsNil() bool { return r == 0 }
