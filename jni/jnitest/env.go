package jnitest

import (
	"fmt"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/jvmkit/jni-runtime/errors"
	"github.com/jvmkit/jni-runtime/jni"
)

// Env is a fake per-thread environment. All Envs of one VM share its heap
// and its pending exception slot.
type Env struct {
	vm *VM
}

func (e *Env) FindClass(name string) (jni.LocalRef, error) {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()

	switch {
	case name == factoryClass, name == proxyClass, name == dtoClass,
		name == callbackClass, boxedClasses[name]:
		vm.resolutions[name]++
		return vm.alloc(&object{kind: kindClass, name: name}), nil
	}
	return 0, errors.Resolution(name, "", nil)
}

func (e *Env) GetMethodID(class jni.GlobalRef, name, sig string) (jni.MethodID, error) {
	return e.methodID(class, name, sig)
}

func (e *Env) GetStaticMethodID(class jni.GlobalRef, name, sig string) (jni.MethodID, error) {
	return e.methodID(class, name, sig)
}

func (e *Env) methodID(class jni.GlobalRef, name, sig string) (jni.MethodID, error) {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()

	c, err := vm.get(jni.Ref(class))
	if err != nil {
		return 0, err
	}
	if c.kind != kindClass {
		return 0, errors.JNI(errors.PhaseBootstrap, "method lookup on a non-class reference", nil)
	}
	vm.resolutions[c.name+"#"+name+sig]++
	vm.methods = append(vm.methods, methodInfo{owner: c.name, name: name, sig: sig})
	return jni.MethodID(len(vm.methods)), nil
}

func (e *Env) method(id jni.MethodID) (methodInfo, error) {
	i := int(id)
	if i < 1 || i > len(e.vm.methods) {
		return methodInfo{}, errors.JNI(errors.PhaseInvoke, fmt.Sprintf("dangling fake method id %d", i), nil)
	}
	return e.vm.methods[i-1], nil
}

func (e *Env) NewObject(class jni.GlobalRef, ctor jni.MethodID, args ...jni.Value) (jni.LocalRef, error) {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()

	c, err := vm.get(jni.Ref(class))
	if err != nil {
		return 0, err
	}
	m, err := e.method(ctor)
	if err != nil {
		return 0, err
	}

	if c.name == dtoClass {
		return e.newDTO(m.sig, args)
	}
	if boxedClasses[c.name] {
		if len(args) != 1 {
			return 0, errors.JNI(errors.PhaseMarshal, "boxed constructor takes one argument", nil)
		}
		return vm.alloc(&object{kind: kindBoxed, name: c.name, val: boxedValue(c.name, args[0])}), nil
	}
	return 0, errors.JNI(errors.PhaseInvoke, "fake cannot construct "+c.name, nil)
}

// newDTO builds an argument DTO, picking the variant by constructor
// signature the way the real class overloads its constructors.
// Callers must hold vm.mu.
func (e *Env) newDTO(sig string, args []jni.Value) (jni.LocalRef, error) {
	vm := e.vm
	if len(args) != 2 || args[0].Kind != jni.ValueObject {
		return 0, errors.JNI(errors.PhaseMarshal, "malformed InvocationArg constructor call", nil)
	}
	classNameObj, err := vm.get(args[0].Obj)
	if err != nil {
		return 0, err
	}
	d := &dtoPayload{className: classNameObj.str}

	switch {
	case strings.Contains(sig, proxyClass):
		d.variant = dtoJava
		d.payload = args[1].Obj
	case strings.HasPrefix(sig, "(Ljava/lang/String;Ljava/lang/String;)"):
		d.variant = dtoSerialized
		jsonObj, err := vm.get(args[1].Obj)
		if err != nil {
			return 0, err
		}
		d.json = jsonObj.str
	default:
		d.variant = dtoBasic
		d.payload = args[1].Obj
	}
	return vm.alloc(&object{kind: kindDTO, dto: d}), nil
}

func boxedValue(class string, v jni.Value) any {
	switch class {
	case "java/lang/Integer":
		return int32(v.I)
	case "java/lang/Long":
		return v.I
	case "java/lang/Short":
		return int16(v.I)
	case "java/lang/Byte":
		return int8(v.I)
	case "java/lang/Float":
		return float32(v.F)
	case "java/lang/Double":
		return v.F
	}
	return nil
}

func (e *Env) CallObjectMethod(obj jni.Ref, method jni.MethodID, args ...jni.Value) (jni.LocalRef, error) {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()

	recv, err := vm.get(obj)
	if err != nil {
		return 0, err
	}
	m, err := e.method(method)
	if err != nil {
		return 0, err
	}
	if recv.kind != kindProxy {
		return 0, errors.JNI(errors.PhaseInvoke, "instance call on a non-proxy reference", nil)
	}

	switch m.name {
	case "invoke":
		return e.dispatchInvoke(recv, args)
	case "invokeStatic":
		return e.dispatchInvokeStatic(recv, args)
	case "field":
		return e.dispatchField(recv, args)
	case "getJson":
		data, err := json.Marshal(recv.val)
		if err != nil {
			vm.throw("java.lang.RuntimeException", err.Error())
			return 0, nil
		}
		return vm.alloc(&object{kind: kindString, str: string(data)}), nil
	}
	return 0, errors.JNI(errors.PhaseInvoke, "fake proxy has no object method "+m.name, nil)
}

func (e *Env) CallVoidMethod(obj jni.Ref, method jni.MethodID, args ...jni.Value) error {
	vm := e.vm
	vm.mu.Lock()

	recv, err := vm.get(obj)
	if err != nil {
		vm.mu.Unlock()
		return err
	}
	m, err := e.method(method)
	if err != nil {
		vm.mu.Unlock()
		return err
	}

	switch m.name {
	case "initializeCallbackChannel":
		if len(args) != 1 {
			vm.mu.Unlock()
			return errors.JNI(errors.PhaseInvoke, "initializeCallbackChannel takes one token", nil)
		}
		recv.token = args[0].I
		recv.tokenSet = true
		vm.lastToken = args[0].I
		vm.hasLastToken = true
		vm.mu.Unlock()
		return nil
	case "invokeToChannel":
		return e.dispatchInvokeToChannel(recv, args)
	}
	vm.mu.Unlock()
	return errors.JNI(errors.PhaseInvoke, "fake proxy has no void method "+m.name, nil)
}

func (e *Env) CallStaticObjectMethod(class jni.GlobalRef, method jni.MethodID, args ...jni.Value) (jni.LocalRef, error) {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()

	c, err := vm.get(jni.Ref(class))
	if err != nil {
		return 0, err
	}
	m, err := e.method(method)
	if err != nil {
		return 0, err
	}

	switch c.name {
	case factoryClass:
		return e.dispatchFactory(m.name, args)
	case proxyClass:
		return e.dispatchProxyStatic(m.name, args)
	}
	return 0, errors.JNI(errors.PhaseInvoke, "fake has no static method "+m.name+" on "+c.name, nil)
}

func (e *Env) CallStaticVoidMethod(class jni.GlobalRef, method jni.MethodID, args ...jni.Value) error {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()

	c, err := vm.get(jni.Ref(class))
	if err != nil {
		return err
	}
	m, err := e.method(method)
	if err != nil {
		return err
	}
	if c.name == callbackClass && m.name == "initialize" {
		lib, err := vm.get(args[0].Obj)
		if err != nil {
			return err
		}
		vm.initializedLib = lib.str
		return nil
	}
	return errors.JNI(errors.PhaseInvoke, "fake has no static void method "+m.name+" on "+c.name, nil)
}

func (e *Env) NewString(s string) (jni.LocalRef, error) {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.alloc(&object{kind: kindString, str: s}), nil
}

func (e *Env) GetString(ref jni.Ref) (string, error) {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()
	obj, err := vm.get(ref)
	if err != nil {
		return "", err
	}
	if obj.kind != kindString {
		return "", errors.JNI(errors.PhaseMarshal, "GetString on a non-string reference", nil)
	}
	return obj.str, nil
}

func (e *Env) NewObjectArray(length int, elemClass jni.GlobalRef) (jni.LocalRef, error) {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.alloc(&object{kind: kindArray, arr: make([]jni.Ref, length)}), nil
}

func (e *Env) SetObjectArrayElement(array jni.LocalRef, index int, value jni.Ref) error {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()
	obj, err := vm.get(jni.Ref(array))
	if err != nil {
		return err
	}
	if obj.kind != kindArray || index < 0 || index >= len(obj.arr) {
		return errors.JNI(errors.PhaseMarshal, "bad array store", nil)
	}
	obj.arr[index] = value
	return nil
}

func (e *Env) NewGlobalRef(ref jni.Ref) (jni.GlobalRef, error) {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if _, err := vm.get(ref); err != nil {
		return 0, err
	}
	vm.liveGlobals++
	return jni.GlobalRef(ref), nil
}

func (e *Env) NewWeakGlobalRef(ref jni.Ref) (jni.WeakRef, error) {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if _, err := vm.get(ref); err != nil {
		return 0, err
	}
	return jni.WeakRef(ref), nil
}

func (e *Env) DeleteLocalRef(ref jni.LocalRef) {
	if ref.IsNil() {
		return
	}
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.liveLocals--
}

func (e *Env) DeleteGlobalRef(ref jni.GlobalRef) {
	if ref.IsNil() {
		return
	}
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.liveGlobals--
}

func (e *Env) ExceptionCheck() bool {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.pending != ""
}

func (e *Env) ExceptionDescribe() {}

func (e *Env) ExceptionClear() {
	vm := e.vm
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.pending = ""
}

// dispatchFactory handles the instantiation factory's statics.
// Callers must hold vm.mu.
func (e *Env) dispatchFactory(name string, args []jni.Value) (jni.LocalRef, error) {
	vm := e.vm

	className, err := e.stringArg(args, 0)
	if err != nil {
		return 0, err
	}

	switch name {
	case "instantiate":
		decoded, err := vm.decodeDTOArray(args[1].Obj)
		if err != nil {
			return 0, err
		}
		c, ok := vm.classes[className]
		if !ok {
			vm.throw("java.lang.ClassNotFoundException", className)
			return 0, nil
		}
		if c.New == nil {
			vm.throw("java.lang.InstantiationException", className)
			return 0, nil
		}
		val, err := c.New(decoded)
		if err != nil {
			vm.throw("java.lang.RuntimeException", err.Error())
			return 0, nil
		}
		return vm.alloc(&object{kind: kindProxy, name: className, val: val}), nil

	case "createForStatic":
		if _, ok := vm.classes[className]; !ok {
			vm.throw("java.lang.ClassNotFoundException", className)
			return 0, nil
		}
		return vm.alloc(&object{kind: kindProxy, name: className, static: true}), nil

	case "createJavaArray", "createJavaList":
		decoded, err := vm.decodeDTOArray(args[1].Obj)
		if err != nil {
			return 0, err
		}
		return vm.alloc(&object{kind: kindProxy, name: className, val: decoded}), nil
	}
	return 0, errors.JNI(errors.PhaseInvoke, "fake factory has no method "+name, nil)
}

// dispatchProxyStatic handles cloneInstance and cast.
// Callers must hold vm.mu.
func (e *Env) dispatchProxyStatic(name string, args []jni.Value) (jni.LocalRef, error) {
	vm := e.vm

	src, err := vm.get(args[0].Obj)
	if err != nil {
		return 0, err
	}
	switch name {
	case "cloneInstance":
		cp := *src
		return vm.alloc(&cp), nil
	case "cast":
		target, err := e.stringArg(args, 1)
		if err != nil {
			return 0, err
		}
		if !vm.castable(src.name, target) {
			vm.throw("java.lang.ClassCastException", src.name+" to "+target)
			return 0, nil
		}
		cp := *src
		cp.name = target
		return vm.alloc(&cp), nil
	}
	return 0, errors.JNI(errors.PhaseInvoke, "fake proxy has no static method "+name, nil)
}

func (vm *VM) castable(from, to string) bool {
	if from == to {
		return true
	}
	c, ok := vm.classes[from]
	if !ok {
		return false
	}
	for _, t := range c.CastableTo {
		if t == to {
			return true
		}
	}
	return false
}

// dispatchInvoke handles proxy.invoke, which answers instance methods
// only; static-dispatch handles must go through invokeStatic.
// Callers must hold vm.mu.
func (e *Env) dispatchInvoke(recv *object, args []jni.Value) (jni.LocalRef, error) {
	vm := e.vm

	method, err := e.stringArg(args, 0)
	if err != nil {
		return 0, err
	}
	decoded, err := vm.decodeDTOArray(args[1].Obj)
	if err != nil {
		return 0, err
	}

	if recv.static {
		vm.throw("java.lang.IllegalArgumentException", "instance invocation on a static dispatch handle for "+recv.name)
		return 0, nil
	}
	c := vm.classes[recv.name]
	if c == nil || c.Methods[method] == nil {
		vm.throw("java.lang.NoSuchMethodException", recv.name+"."+method)
		return 0, nil
	}

	val, callErr := c.Methods[method](recv.val, decoded)
	if callErr != nil {
		vm.throw("java.lang.RuntimeException", callErr.Error())
		return 0, nil
	}
	return vm.alloc(wrapResult(val)), nil
}

// dispatchInvokeStatic handles proxy.invokeStatic, which only
// static-dispatch handles answer. Callers must hold vm.mu.
func (e *Env) dispatchInvokeStatic(recv *object, args []jni.Value) (jni.LocalRef, error) {
	vm := e.vm

	method, err := e.stringArg(args, 0)
	if err != nil {
		return 0, err
	}
	decoded, err := vm.decodeDTOArray(args[1].Obj)
	if err != nil {
		return 0, err
	}

	if !recv.static {
		vm.throw("java.lang.IllegalArgumentException", "static invocation on an instance handle for "+recv.name)
		return 0, nil
	}
	c := vm.classes[recv.name]
	if c == nil || c.Statics[method] == nil {
		vm.throw("java.lang.NoSuchMethodException", recv.name+"."+method)
		return 0, nil
	}

	val, callErr := c.Statics[method](decoded)
	if callErr != nil {
		vm.throw("java.lang.RuntimeException", callErr.Error())
		return 0, nil
	}
	return vm.alloc(wrapResult(val)), nil
}

// dispatchField handles proxy.field. Callers must hold vm.mu.
func (e *Env) dispatchField(recv *object, args []jni.Value) (jni.LocalRef, error) {
	vm := e.vm

	field, err := e.stringArg(args, 0)
	if err != nil {
		return 0, err
	}
	c := vm.classes[recv.name]
	if c == nil || c.Fields[field] == nil {
		vm.throw("java.lang.NoSuchFieldException", recv.name+"."+field)
		return 0, nil
	}
	val, ferr := c.Fields[field](recv.val)
	if ferr != nil {
		vm.throw("java.lang.RuntimeException", ferr.Error())
		return 0, nil
	}
	return vm.alloc(wrapResult(val)), nil
}

// dispatchInvokeToChannel handles proxy.invokeToChannel. It is entered with
// vm.mu held and releases it before delivering, since the delivery hook
// re-enters the VM.
func (e *Env) dispatchInvokeToChannel(recv *object, args []jni.Value) error {
	vm := e.vm

	if len(args) != 3 || args[0].Kind != jni.ValueLong {
		vm.mu.Unlock()
		return errors.JNI(errors.PhaseInvoke, "invokeToChannel takes token, method, args", nil)
	}
	token := args[0].I
	method, err := e.stringArg(args[1:], 0)
	if err != nil {
		vm.mu.Unlock()
		return err
	}
	decoded, err := vm.decodeDTOArray(args[2].Obj)
	if err != nil {
		vm.mu.Unlock()
		return err
	}

	c := vm.classes[recv.name]
	var fn ChannelMethod
	if c != nil {
		fn = c.ChannelMethods[method]
	}
	if fn == nil {
		vm.throw("java.lang.NoSuchMethodException", recv.name+"."+method)
		vm.mu.Unlock()
		return nil
	}
	values := fn(recv.val, decoded)
	vm.mu.Unlock()

	for _, v := range values {
		vm.Deliver(token, v)
	}
	return nil
}

func (e *Env) stringArg(args []jni.Value, i int) (string, error) {
	if i >= len(args) || args[i].Kind != jni.ValueObject {
		return "", errors.JNI(errors.PhaseInvoke, fmt.Sprintf("expected string argument at %d", i), nil)
	}
	obj, err := e.vm.get(args[i].Obj)
	if err != nil {
		return "", err
	}
	if obj.kind != kindString {
		return "", errors.JNI(errors.PhaseInvoke, fmt.Sprintf("expected string argument at %d", i), nil)
	}
	return obj.str, nil
}
