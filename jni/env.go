package jni

// Env is the per-thread JNI capability. An Env is only valid on the OS
// thread it was obtained for; holders are expected to have pinned their
// goroutine with runtime.LockOSThread before attaching.
//
// Resolution and allocation methods return an error when the underlying
// JNI call produced a null result. Invocation methods do not inspect the
// JVM exception state; callers run ExceptionCheck after every invocation
// and before promoting any returned reference.
type Env interface {
	// FindClass resolves a class by its slash-separated binary name,
	// for example "java/lang/Integer".
	FindClass(name string) (LocalRef, error)

	// GetMethodID resolves an instance method or constructor
	// (name "<init>") by name and JNI type signature.
	GetMethodID(class GlobalRef, name, sig string) (MethodID, error)

	// GetStaticMethodID resolves a static method by name and signature.
	GetStaticMethodID(class GlobalRef, name, sig string) (MethodID, error)

	// NewObject invokes a constructor and returns the new object.
	NewObject(class GlobalRef, ctor MethodID, args ...Value) (LocalRef, error)

	// CallObjectMethod invokes an instance method returning an object.
	// The returned reference may be null for methods that legitimately
	// return null; it is still subject to ExceptionCheck.
	CallObjectMethod(obj Ref, method MethodID, args ...Value) (LocalRef, error)

	// CallVoidMethod invokes an instance method returning void.
	CallVoidMethod(obj Ref, method MethodID, args ...Value) error

	// CallStaticObjectMethod invokes a static method returning an object.
	CallStaticObjectMethod(class GlobalRef, method MethodID, args ...Value) (LocalRef, error)

	// CallStaticVoidMethod invokes a static method returning void.
	CallStaticVoidMethod(class GlobalRef, method MethodID, args ...Value) error

	// NewString converts a Go string to a java.lang.String reference.
	NewString(s string) (LocalRef, error)

	// GetString converts a java.lang.String reference to a Go string.
	GetString(ref Ref) (string, error)

	// NewObjectArray allocates an object array of the given element class.
	NewObjectArray(length int, elemClass GlobalRef) (LocalRef, error)

	// SetObjectArrayElement stores value at index in array.
	SetObjectArrayElement(array LocalRef, index int, value Ref) error

	// NewGlobalRef promotes a reference to a durable one.
	NewGlobalRef(ref Ref) (GlobalRef, error)

	// NewWeakGlobalRef creates a weak durable reference.
	NewWeakGlobalRef(ref Ref) (WeakRef, error)

	// DeleteLocalRef releases a call-scoped reference early.
	DeleteLocalRef(ref LocalRef)

	// DeleteGlobalRef releases a durable reference.
	DeleteGlobalRef(ref GlobalRef)

	// ExceptionCheck reports whether an exception is pending on this thread.
	ExceptionCheck() bool

	// ExceptionDescribe prints the pending exception and its stack trace
	// to the JVM's error channel.
	ExceptionDescribe()

	// ExceptionClear clears the pending exception.
	ExceptionClear()
}

// VM is a created Java virtual machine. There is at most one per process.
type VM interface {
	// AttachCurrentThread attaches the calling OS thread to the VM and
	// returns its Env. Attaching an already-attached thread returns the
	// existing Env.
	AttachCurrentThread() (Env, error)

	// DetachCurrentThread detaches the calling OS thread.
	DetachCurrentThread() error
}

// Provider locates the process VM or creates one.
type Provider interface {
	// ExistingVM returns the already-created process VM, if any.
	ExistingVM() (VM, bool, error)

	// CreateVM creates the process VM with the given options. It fails
	// if a VM already exists.
	CreateVM(opts *Options) (VM, error)
}
