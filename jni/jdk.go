//go:build jdk

package jni

// The JDK backend needs jni.h and libjvm at build time. Point cgo at the
// installed JDK, for example:
//
//	CGO_CFLAGS="-I$JAVA_HOME/include -I$JAVA_HOME/include/linux" \
//	CGO_LDFLAGS="-L$JAVA_HOME/lib/server" \
//	go build -tags jdk ./...

/*
#cgo LDFLAGS: -ljvm

#include <jni.h>
#include <stdlib.h>

static jint existing_vm(JavaVM **vm) {
	jsize n = 0;
	jint rc = JNI_GetCreatedJavaVMs(vm, 1, &n);
	if (rc != JNI_OK) {
		return rc;
	}
	return n > 0 ? JNI_OK : JNI_ERR;
}

static jint create_vm(JavaVM **vm, JNIEnv **env, int nopts, char **opts, jboolean ignore) {
	JavaVMInitArgs args;
	JavaVMOption *vmopts = NULL;
	jint rc;
	int i;

	if (nopts > 0) {
		vmopts = calloc(nopts, sizeof(JavaVMOption));
		for (i = 0; i < nopts; i++) {
			vmopts[i].optionString = opts[i];
		}
	}
	args.version = JNI_VERSION_1_8;
	args.nOptions = nopts;
	args.options = vmopts;
	args.ignoreUnrecognized = ignore;

	rc = JNI_CreateJavaVM(vm, (void **)env, &args);
	free(vmopts);
	return rc;
}

static jint attach_thread(JavaVM *vm, JNIEnv **env) {
	return (*vm)->AttachCurrentThread(vm, (void **)env, NULL);
}

static jint detach_thread(JavaVM *vm) {
	return (*vm)->DetachCurrentThread(vm);
}

static jclass find_class(JNIEnv *env, const char *name) {
	return (*env)->FindClass(env, name);
}

static jmethodID get_method_id(JNIEnv *env, jclass c, const char *name, const char *sig) {
	return (*env)->GetMethodID(env, c, name, sig);
}

static jmethodID get_static_method_id(JNIEnv *env, jclass c, const char *name, const char *sig) {
	return (*env)->GetStaticMethodID(env, c, name, sig);
}

static jobject new_object(JNIEnv *env, jclass c, jmethodID m, const jvalue *a) {
	return (*env)->NewObjectA(env, c, m, a);
}

static jobject call_object_method(JNIEnv *env, jobject o, jmethodID m, const jvalue *a) {
	return (*env)->CallObjectMethodA(env, o, m, a);
}

static void call_void_method(JNIEnv *env, jobject o, jmethodID m, const jvalue *a) {
	(*env)->CallVoidMethodA(env, o, m, a);
}

static jobject call_static_object_method(JNIEnv *env, jclass c, jmethodID m, const jvalue *a) {
	return (*env)->CallStaticObjectMethodA(env, c, m, a);
}

static void call_static_void_method(JNIEnv *env, jclass c, jmethodID m, const jvalue *a) {
	(*env)->CallStaticVoidMethodA(env, c, m, a);
}

static jstring new_string_utf(JNIEnv *env, const char *s) {
	return (*env)->NewStringUTF(env, s);
}

static const char *get_string_utf_chars(JNIEnv *env, jstring s) {
	return (*env)->GetStringUTFChars(env, s, NULL);
}

static void release_string_utf_chars(JNIEnv *env, jstring s, const char *c) {
	(*env)->ReleaseStringUTFChars(env, s, c);
}

static jobjectArray new_object_array(JNIEnv *env, jsize n, jclass elem) {
	return (*env)->NewObjectArray(env, n, elem, NULL);
}

static void set_object_array_element(JNIEnv *env, jobjectArray arr, jsize i, jobject v) {
	(*env)->SetObjectArrayElement(env, arr, i, v);
}

static jobject new_global_ref(JNIEnv *env, jobject o) {
	return (*env)->NewGlobalRef(env, o);
}

static jweak new_weak_global_ref(JNIEnv *env, jobject o) {
	return (*env)->NewWeakGlobalRef(env, o);
}

static void delete_local_ref(JNIEnv *env, jobject o) {
	(*env)->DeleteLocalRef(env, o);
}

static void delete_global_ref(JNIEnv *env, jobject o) {
	(*env)->DeleteGlobalRef(env, o);
}

static jboolean exception_check(JNIEnv *env) {
	return (*env)->ExceptionCheck(env);
}

static void exception_describe(JNIEnv *env) {
	(*env)->ExceptionDescribe(env);
}

static void exception_clear(JNIEnv *env) {
	(*env)->ExceptionClear(env);
}

static void jv_object(jvalue *v, jobject o)  { v->l = o; }
static void jv_boolean(jvalue *v, jboolean b) { v->z = b; }
static void jv_byte(jvalue *v, jbyte b)    { v->b = b; }
static void jv_char(jvalue *v, jchar c)    { v->c = c; }
static void jv_short(jvalue *v, jshort s)  { v->s = s; }
static void jv_int(jvalue *v, jint i)      { v->i = i; }
static void jv_long(jvalue *v, jlong l)    { v->j = l; }
static void jv_float(jvalue *v, jfloat f)  { v->f = f; }
static void jv_double(jvalue *v, jdouble d) { v->d = d; }
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/jvmkit/jni-runtime/errors"
)

// Default returns the JDK-backed provider.
func Default() (Provider, error) {
	return &jdkProvider{}, nil
}

type jdkProvider struct{}

func (p *jdkProvider) ExistingVM() (VM, bool, error) {
	var vm *C.JavaVM
	if rc := C.existing_vm(&vm); rc != C.JNI_OK {
		return nil, false, nil
	}
	return &jdkVM{vm: vm}, true, nil
}

func (p *jdkProvider) CreateVM(opts *Options) (VM, error) {
	var strs []string
	ignore := C.jboolean(C.JNI_FALSE)
	if opts != nil {
		strs = opts.Options
		if opts.IgnoreUnrecognized {
			ignore = C.jboolean(C.JNI_TRUE)
		}
	}

	copts := make([]*C.char, len(strs))
	for i, s := range strs {
		copts[i] = C.CString(s)
	}
	defer func() {
		for _, c := range copts {
			C.free(unsafe.Pointer(c))
		}
	}()

	var cp **C.char
	if len(copts) > 0 {
		cp = &copts[0]
	}

	var vm *C.JavaVM
	var env *C.JNIEnv
	rc := C.create_vm(&vm, &env, C.int(len(copts)), cp, ignore)
	if rc != C.JNI_OK {
		return nil, errors.Bootstrap(fmt.Sprintf("JNI_CreateJavaVM returned %d", int(rc)), nil)
	}
	return &jdkVM{vm: vm}, nil
}

type jdkVM struct {
	vm *C.JavaVM
}

func (v *jdkVM) AttachCurrentThread() (Env, error) {
	var env *C.JNIEnv
	if rc := C.attach_thread(v.vm, &env); rc != C.JNI_OK {
		return nil, errors.JNI(errors.PhaseAttach,
			fmt.Sprintf("AttachCurrentThread returned %d", int(rc)), nil)
	}
	return &jdkEnv{env: env}, nil
}

func (v *jdkVM) DetachCurrentThread() error {
	if rc := C.detach_thread(v.vm); rc != C.JNI_OK {
		return errors.JNI(errors.PhaseAttach,
			fmt.Sprintf("DetachCurrentThread returned %d", int(rc)), nil)
	}
	return nil
}

type jdkEnv struct {
	env *C.JNIEnv
}

// envFromRaw wraps a JNIEnv pointer received from a JVM-originated native
// frame, such as the channel callback entrypoint.
func envFromRaw(raw unsafe.Pointer) Env {
	return &jdkEnv{env: (*C.JNIEnv)(raw)}
}

func (e *jdkEnv) FindClass(name string) (LocalRef, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	c := C.find_class(e.env, cname)
	if c == nil {
		return 0, errors.Resolution(name, "", nil)
	}
	return LocalRef(uintptr(unsafe.Pointer(c))), nil
}

func (e *jdkEnv) GetMethodID(class GlobalRef, name, sig string) (MethodID, error) {
	cname := C.CString(name)
	csig := C.CString(sig)
	defer C.free(unsafe.Pointer(cname))
	defer C.free(unsafe.Pointer(csig))
	m := C.get_method_id(e.env, e.class(class), cname, csig)
	if m == nil {
		return 0, errors.Resolution("", name+sig, nil)
	}
	return MethodID(uintptr(unsafe.Pointer(m))), nil
}

func (e *jdkEnv) GetStaticMethodID(class GlobalRef, name, sig string) (MethodID, error) {
	cname := C.CString(name)
	csig := C.CString(sig)
	defer C.free(unsafe.Pointer(cname))
	defer C.free(unsafe.Pointer(csig))
	m := C.get_static_method_id(e.env, e.class(class), cname, csig)
	if m == nil {
		return 0, errors.Resolution("", name+sig, nil)
	}
	return MethodID(uintptr(unsafe.Pointer(m))), nil
}

func (e *jdkEnv) NewObject(class GlobalRef, ctor MethodID, args ...Value) (LocalRef, error) {
	jargs, free := e.jvalues(args)
	defer free()
	o := C.new_object(e.env, e.class(class), cmethod(ctor), jargs)
	if o == nil && !e.ExceptionCheck() {
		return 0, errors.JNI(errors.PhaseInvoke, "NewObject returned null", nil)
	}
	return LocalRef(uintptr(unsafe.Pointer(o))), nil
}

func (e *jdkEnv) CallObjectMethod(obj Ref, method MethodID, args ...Value) (LocalRef, error) {
	jargs, free := e.jvalues(args)
	defer free()
	o := C.call_object_method(e.env, cobject(obj), cmethod(method), jargs)
	return LocalRef(uintptr(unsafe.Pointer(o))), nil
}

func (e *jdkEnv) CallVoidMethod(obj Ref, method MethodID, args ...Value) error {
	jargs, free := e.jvalues(args)
	defer free()
	C.call_void_method(e.env, cobject(obj), cmethod(method), jargs)
	return nil
}

func (e *jdkEnv) CallStaticObjectMethod(class GlobalRef, method MethodID, args ...Value) (LocalRef, error) {
	jargs, free := e.jvalues(args)
	defer free()
	o := C.call_static_object_method(e.env, e.class(class), cmethod(method), jargs)
	return LocalRef(uintptr(unsafe.Pointer(o))), nil
}

func (e *jdkEnv) CallStaticVoidMethod(class GlobalRef, method MethodID, args ...Value) error {
	jargs, free := e.jvalues(args)
	defer free()
	C.call_static_void_method(e.env, e.class(class), cmethod(method), jargs)
	return nil
}

func (e *jdkEnv) NewString(s string) (LocalRef, error) {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	js := C.new_string_utf(e.env, cs)
	if js == nil {
		return 0, errors.JNI(errors.PhaseMarshal, "NewStringUTF returned null", nil)
	}
	return LocalRef(uintptr(unsafe.Pointer(js))), nil
}

func (e *jdkEnv) GetString(ref Ref) (string, error) {
	if ref.IsNil() {
		return "", errors.JNI(errors.PhaseMarshal, "GetString on null reference", nil)
	}
	js := C.jstring(cobject(ref))
	cs := C.get_string_utf_chars(e.env, js)
	if cs == nil {
		return "", errors.JNI(errors.PhaseMarshal, "GetStringUTFChars returned null", nil)
	}
	s := C.GoString(cs)
	C.release_string_utf_chars(e.env, js, cs)
	return s, nil
}

func (e *jdkEnv) NewObjectArray(length int, elemClass GlobalRef) (LocalRef, error) {
	arr := C.new_object_array(e.env, C.jsize(length), e.class(elemClass))
	if arr == nil {
		return 0, errors.JNI(errors.PhaseMarshal, "NewObjectArray returned null", nil)
	}
	return LocalRef(uintptr(unsafe.Pointer(arr))), nil
}

func (e *jdkEnv) SetObjectArrayElement(array LocalRef, index int, value Ref) error {
	C.set_object_array_element(e.env, C.jobjectArray(cobject(Ref(array))), C.jsize(index), cobject(value))
	return nil
}

func (e *jdkEnv) NewGlobalRef(ref Ref) (GlobalRef, error) {
	g := C.new_global_ref(e.env, cobject(ref))
	if g == nil {
		return 0, errors.JNI(errors.PhaseInvoke, "NewGlobalRef returned null", nil)
	}
	return GlobalRef(uintptr(unsafe.Pointer(g))), nil
}

func (e *jdkEnv) NewWeakGlobalRef(ref Ref) (WeakRef, error) {
	w := C.new_weak_global_ref(e.env, cobject(ref))
	if w == nil {
		return 0, errors.JNI(errors.PhaseInvoke, "NewWeakGlobalRef returned null", nil)
	}
	return WeakRef(uintptr(unsafe.Pointer(w))), nil
}

func (e *jdkEnv) DeleteLocalRef(ref LocalRef) {
	if ref.IsNil() {
		return
	}
	C.delete_local_ref(e.env, cobject(Ref(ref)))
}

func (e *jdkEnv) DeleteGlobalRef(ref GlobalRef) {
	if ref.IsNil() {
		return
	}
	C.delete_global_ref(e.env, cobject(Ref(ref)))
}

func (e *jdkEnv) ExceptionCheck() bool {
	return C.exception_check(e.env) == C.JNI_TRUE
}

func (e *jdkEnv) ExceptionDescribe() {
	C.exception_describe(e.env)
}

func (e *jdkEnv) ExceptionClear() {
	C.exception_clear(e.env)
}

func (e *jdkEnv) class(ref GlobalRef) C.jclass {
	return C.jclass(unsafe.Pointer(uintptr(ref)))
}

func cobject(ref Ref) C.jobject {
	return C.jobject(unsafe.Pointer(uintptr(ref)))
}

func cmethod(m MethodID) C.jmethodID {
	return C.jmethodID(unsafe.Pointer(uintptr(m)))
}

// jvalues converts call arguments to a C jvalue array. The returned free
// function releases the array; it must run after the call completes.
func (e *jdkEnv) jvalues(args []Value) (*C.jvalue, func()) {
	if len(args) == 0 {
		return nil, func() {}
	}
	mem := C.calloc(C.size_t(len(args)), C.sizeof_jvalue)
	arr := (*[1 << 16]C.jvalue)(mem)[:len(args):len(args)]
	for i, a := range args {
		v := &arr[i]
		switch a.Kind {
		case ValueObject:
			C.jv_object(v, cobject(a.Obj))
		case ValueBoolean:
			b := C.jboolean(C.JNI_FALSE)
			if a.I != 0 {
				b = C.jboolean(C.JNI_TRUE)
			}
			C.jv_boolean(v, b)
		case ValueByte:
			C.jv_byte(v, C.jbyte(a.I))
		case ValueChar:
			C.jv_char(v, C.jchar(a.I))
		case ValueShort:
			C.jv_short(v, C.jshort(a.I))
		case ValueInt:
			C.jv_int(v, C.jint(a.I))
		case ValueLong:
			C.jv_long(v, C.jlong(a.I))
		case ValueFloat:
			C.jv_float(v, C.jfloat(a.F))
		case ValueDouble:
			C.jv_double(v, C.jdouble(a.F))
		}
	}
	return (*C.jvalue)(mem), func() { C.free(mem) }
}
