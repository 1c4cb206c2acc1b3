// Package errors provides structured error types for the JNI bridge.
//
// Every error carries a Phase (where in processing it occurred) and a Kind
// (what category of failure it is), so callers can match on either without
// string inspection:
//
//	if errors.IsJava(err) {
//	    // a JVM exception was observed and cleared
//	}
//
// Errors support errors.Is/errors.Unwrap chains and a fluent Builder for
// the less common shapes.
package errors
