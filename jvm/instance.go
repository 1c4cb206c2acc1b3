package jvm

import (
	"sync/atomic"

	"github.com/jvmkit/jni-runtime/jni"
)

// Instance is a handle on a JVM object. It owns a durable reference that is
// released exactly once, on the first Close. Instances may be passed
// between goroutines; the underlying reference is valid on any attached
// thread, and Close resolves an environment for whichever thread runs it.
type Instance struct {
	className string
	ref       jni.GlobalRef
	state     *state
	closed    atomic.Bool
}

// ClassName returns the class name the bridge tracked for this instance.
// Invocation results carry an unknown class name; the JVM side still knows
// the real runtime class.
func (i *Instance) ClassName() string {
	return i.className
}

// Close releases the underlying JVM reference through the calling thread's
// environment. Further calls are no-ops.
func (i *Instance) Close() error {
	if i.closed.Swap(true) {
		return nil
	}
	env, err := i.state.threadEnv()
	if err != nil {
		return err
	}
	env.DeleteGlobalRef(i.ref)
	return nil
}
