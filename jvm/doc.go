// Package jvm is the high-level bridge API: JVM lifecycle, instance
// creation and invocation, argument marshaling and the channel bridge for
// JVM-to-Go callbacks.
//
// A Runtime is obtained from a Builder and is the capability for calling
// into the JVM from its goroutine. Instances returned by calls own durable
// JVM references and may cross goroutines; each must be closed exactly
// once.
package jvm
