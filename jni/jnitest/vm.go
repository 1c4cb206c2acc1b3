package jnitest

import (
	"fmt"
	"sync"

	"github.com/segmentio/encoding/json"

	"github.com/jvmkit/jni-runtime/errors"
	"github.com/jvmkit/jni-runtime/jni"
)

// Slash-separated names of the companion classes the bridge resolves at
// bring-up. These mirror the wire contract, not Go-side naming.
const (
	factoryClass  = "org/astonbitecode/j4rs/api/instantiation/NativeInstantiationImpl"
	proxyClass    = "org/astonbitecode/j4rs/api/NativeInvocation"
	dtoClass      = "org/astonbitecode/j4rs/api/dtos/InvocationArg"
	callbackClass = "org/astonbitecode/j4rs/api/invocation/NativeCallbackToRustChannelSupport"
)

var boxedClasses = map[string]bool{
	"java/lang/Integer": true,
	"java/lang/Long":    true,
	"java/lang/Short":   true,
	"java/lang/Byte":    true,
	"java/lang/Float":   true,
	"java/lang/Double":  true,
	"java/lang/String":  true,
}

type objKind uint8

const (
	kindClass objKind = iota
	kindString
	kindBoxed
	kindProxy
	kindDTO
	kindArray
)

const (
	dtoJava       = "java"
	dtoSerialized = "serialized"
	dtoBasic      = "basic"
)

type dtoPayload struct {
	variant   string
	className string
	json      string
	payload   jni.Ref
}

type object struct {
	kind     objKind
	name     string // class: slash name; proxy: dot class name of referent
	str      string
	val      any
	static   bool
	arr      []jni.Ref
	dto      *dtoPayload
	token    int64
	tokenSet bool
}

type methodInfo struct {
	owner string
	name  string
	sig   string
}

// VM is the in-memory fake. The zero value is not usable; call NewVM.
type VM struct {
	mu      sync.Mutex
	classes map[string]*Class
	heap    []*object
	methods []methodInfo

	liveLocals  int
	liveGlobals int
	attachCount int
	detachCount int
	resolutions map[string]int

	pending        string
	initializedLib string
	lastToken      int64
	hasLastToken   bool
	createdOpts    *jni.Options

	// OnChannelDeliver is invoked for every value pushed through the
	// channel bridge, with a fresh Env standing in for the JVM-owned
	// thread that performed the push. Tests route this to the bridge's
	// dispatcher.
	OnChannelDeliver func(env jni.Env, token int64, obj jni.Ref)
}

// NewVM returns an empty fake VM.
func NewVM() *VM {
	return &VM{
		classes:     make(map[string]*Class),
		resolutions: make(map[string]int),
	}
}

// RegisterClass scripts a class. Registration is keyed by Class.Name.
func (vm *VM) RegisterClass(c *Class) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.classes[c.Name] = c
}

// Provider adapts a fake VM to jni.Provider.
type Provider struct {
	VM *VM

	// Preexisting makes ExistingVM report the VM as already created, so
	// the bridge takes the attach path instead of the create path.
	Preexisting bool

	CreateCalls int
}

func (p *Provider) ExistingVM() (jni.VM, bool, error) {
	if p.Preexisting {
		return p.VM, true, nil
	}
	return nil, false, nil
}

func (p *Provider) CreateVM(opts *jni.Options) (jni.VM, error) {
	p.CreateCalls++
	p.VM.mu.Lock()
	p.VM.createdOpts = opts
	p.VM.mu.Unlock()
	return p.VM, nil
}

func (vm *VM) AttachCurrentThread() (jni.Env, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.attachCount++
	return &Env{vm: vm}, nil
}

func (vm *VM) DetachCurrentThread() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.detachCount++
	return nil
}

// Instrumentation accessors.

func (vm *VM) AttachCount() int    { vm.mu.Lock(); defer vm.mu.Unlock(); return vm.attachCount }
func (vm *VM) DetachCount() int    { vm.mu.Lock(); defer vm.mu.Unlock(); return vm.detachCount }
func (vm *VM) LiveLocalRefs() int  { vm.mu.Lock(); defer vm.mu.Unlock(); return vm.liveLocals }
func (vm *VM) LiveGlobalRefs() int { vm.mu.Lock(); defer vm.mu.Unlock(); return vm.liveGlobals }

// Resolutions reports how many times a class (slash name) or method
// ("class#name(sig)") was resolved.
func (vm *VM) Resolutions(key string) int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.resolutions[key]
}

// InitializedLib returns the library name passed to the callback support
// class's initialize method, or "" if it was never called.
func (vm *VM) InitializedLib() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.initializedLib
}

// LastChannelToken returns the token most recently handed to
// initializeCallbackChannel.
func (vm *VM) LastChannelToken() (int64, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.lastToken, vm.hasLastToken
}

// CreatedOpts returns the options CreateVM received, if it was called.
func (vm *VM) CreatedOpts() *jni.Options {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.createdOpts
}

// Deliver emulates an arbitrary JVM-side push into an initialized callback
// channel. value follows the same wrapping rules as scripted method results.
func (vm *VM) Deliver(token int64, value any) {
	vm.mu.Lock()
	ref := vm.alloc(wrapResult(value))
	hook := vm.OnChannelDeliver
	vm.mu.Unlock()
	if hook != nil {
		hook(&Env{vm: vm}, token, jni.Ref(ref))
	}
}

// alloc stores obj on the heap and returns a live local reference.
// Callers must hold vm.mu.
func (vm *VM) alloc(obj *object) jni.LocalRef {
	vm.heap = append(vm.heap, obj)
	vm.liveLocals++
	return jni.LocalRef(len(vm.heap))
}

func (vm *VM) get(ref jni.Ref) (*object, error) {
	i := int(ref)
	if i < 1 || i > len(vm.heap) {
		return nil, errors.JNI(errors.PhaseInvoke, fmt.Sprintf("dangling fake reference %d", i), nil)
	}
	return vm.heap[i-1], nil
}

func (vm *VM) throw(class, msg string) {
	vm.pending = class + ": " + msg
}

func wrapResult(val any) *object {
	if o, ok := val.(Object); ok {
		return &object{kind: kindProxy, name: o.Class, val: o.Value}
	}
	return &object{kind: kindProxy, val: val}
}

// decodeDTO unwraps one argument DTO to its Go-side value. Callers must
// hold vm.mu.
func (vm *VM) decodeDTO(ref jni.Ref) (any, error) {
	obj, err := vm.get(ref)
	if err != nil {
		return nil, err
	}
	if obj.kind != kindDTO {
		return nil, errors.JNI(errors.PhaseMarshal, "argument array element is not an InvocationArg", nil)
	}
	switch obj.dto.variant {
	case dtoJava:
		inner, err := vm.get(obj.dto.payload)
		if err != nil {
			return nil, err
		}
		return inner.val, nil
	case dtoSerialized:
		var v any
		if err := json.Unmarshal([]byte(obj.dto.json), &v); err != nil {
			return nil, err
		}
		return v, nil
	default: // basic
		inner, err := vm.get(obj.dto.payload)
		if err != nil {
			return nil, err
		}
		if inner.kind == kindString {
			return inner.str, nil
		}
		return inner.val, nil
	}
}

func (vm *VM) decodeDTOArray(ref jni.Ref) ([]any, error) {
	obj, err := vm.get(ref)
	if err != nil {
		return nil, err
	}
	if obj.kind != kindArray {
		return nil, errors.JNI(errors.PhaseMarshal, "expected an argument array", nil)
	}
	out := make([]any, 0, len(obj.arr))
	for _, el := range obj.arr {
		v, err := vm.decodeDTO(el)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
