// Package jniruntime provides a Go bridge for driving an embedded or
// externally-created Java Virtual Machine through JNI, and for receiving
// asynchronous callbacks back from Java code.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	jni-runtime/
//	├── jvm/          High-level API: runtime lifecycle, instances, invocation
//	├── jni/          Low-level JNI abstraction: environments, references, values
//	│   └── jnitest/  In-memory fake VM for tests (no JDK required)
//	├── classpath/    Classpath and library-path assembly
//	├── errors/       Structured error types for debugging
//	└── cmd/jshell/   Interactive terminal UI for exploring a JVM
//
// # Quick Start
//
// Attach to (or create) a JVM and call into it:
//
//	rt, err := jvm.NewBuilder().
//	    ClasspathEntry("my-app.jar").
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	list, err := rt.CreateInstance("java.util.ArrayList")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer list.Close()
//
//	size, err := rt.Invoke(list, "size")
//	var n int32
//	err = rt.ToNative(size, &n)
//
// # Reference Model
//
// Every Instance owns a durable (global) JVM reference that is released
// exactly once when the Instance is closed. Temporary (local) references
// created while marshaling a call are released before the call returns.
// The jni package keeps the two kinds as distinct types so they cannot be
// confused.
//
// # Thread Model
//
// A Runtime handle pins its goroutine to an OS thread and holds that
// thread's JNI environment. Handles are cheap; create one per goroutine
// that needs to call into the JVM. Instances may be passed between
// goroutines freely.
//
// # Callbacks
//
// InvokeToChannel and InitCallbackChannel return an InstanceReceiver whose
// channel yields Instances pushed by JVM-owned threads. Tokens passed to
// the JVM side are opaque registry handles, not raw pointers; deliveries
// that arrive after a receiver is closed are detected and dropped.
package jniruntime
