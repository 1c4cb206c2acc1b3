package jni

import "sync/atomic"

// Dispatcher receives an object pushed by a JVM thread together with the
// opaque channel token the native side handed out earlier. The object
// reference is call-scoped; the dispatcher must promote it before the
// native frame returns.
type Dispatcher func(env Env, token int64, obj Ref)

var dispatcher atomic.Pointer[Dispatcher]

// SetCallbackDispatcher installs the process-wide callback dispatcher.
// The JDK-backed exported entrypoint and test fakes both route through it.
func SetCallbackDispatcher(d Dispatcher) {
	dispatcher.Store(&d)
}

// DispatchCallback forwards a JVM-originated delivery to the installed
// dispatcher. Deliveries arriving before a dispatcher is installed are
// dropped.
func DispatchCallback(env Env, token int64, obj Ref) {
	if d := dispatcher.Load(); d != nil {
		(*d)(env, token, obj)
	}
}
