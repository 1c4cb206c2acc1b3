//go:build jdk

package jni

/*
#include <jni.h>
*/
import "C"

import "unsafe"

// The companion jar declares this native method on its callback support
// class and calls it from JVM-owned threads. The build must produce a
// shared library (-buildmode=c-shared) for the JVM to find the symbol.

//export Java_org_astonbitecode_j4rs_api_invocation_NativeCallbackToRustChannelSupport_docallbacktochannel
func Java_org_astonbitecode_j4rs_api_invocation_NativeCallbackToRustChannelSupport_docallbacktochannel(env *C.JNIEnv, class C.jclass, token C.jlong, obj C.jobject) {
	DispatchCallback(
		envFromRaw(unsafe.Pointer(env)),
		int64(token),
		Ref(uintptr(unsafe.Pointer(obj))),
	)
}
