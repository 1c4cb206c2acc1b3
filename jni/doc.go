// Package jni abstracts the Java Native Interface surface the bridge needs.
//
// The package defines the per-thread Env capability, the VM attachment
// interface, and the Provider that locates or creates the process JVM.
// Implementations:
//
//   - the real JDK-backed implementation, enabled with the "jdk" build tag
//     (requires cgo and a JDK; set CGO_CFLAGS/CGO_LDFLAGS to point at it)
//   - jnitest, an in-memory fake used by tests
//
// Object references are carried by three distinct types (LocalRef,
// GlobalRef and WeakRef) so a durable reference can never be passed where
// a call-scoped one is expected, and vice versa. Promotion and release are
// explicit Env operations.
package jni
