package jvm

import (
	"fmt"
	"sync"
	"testing"

	"github.com/jvmkit/jni-runtime/classpath"
	"github.com/jvmkit/jni-runtime/jni/jnitest"
)

type counter struct {
	n int64
}

// asInt64 normalizes the numeric shapes arguments arrive in: direct-boxed
// integers keep their width, serialized numbers decode as float64.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func counterClass() *jnitest.Class {
	return &jnitest.Class{
		Name: "acme.Counter",
		New: func(args []any) (any, error) {
			c := &counter{}
			if len(args) > 0 {
				c.n = asInt64(args[0])
			}
			return c, nil
		},
		Methods: map[string]jnitest.Method{
			"add": func(recv any, args []any) (any, error) {
				c := recv.(*counter)
				c.n += asInt64(args[0])
				return c.n, nil
			},
			"value": func(recv any, args []any) (any, error) {
				return recv.(*counter).n, nil
			},
			"fail": func(recv any, args []any) (any, error) {
				return nil, fmt.Errorf("kaboom")
			},
		},
		Statics: map[string]jnitest.StaticMethod{
			"twice": func(args []any) (any, error) {
				return asInt64(args[0]) * 2, nil
			},
		},
		Fields: map[string]jnitest.Field{
			"count": func(recv any) (any, error) {
				return recv.(*counter).n, nil
			},
		},
		ChannelMethods: map[string]jnitest.ChannelMethod{
			"countTo": func(recv any, args []any) []any {
				limit := asInt64(args[0])
				out := make([]any, 0, limit)
				for i := int64(1); i <= limit; i++ {
					out = append(out, i)
				}
				return out
			},
		},
		CastableTo: []string{"acme.Device"},
	}
}

func newTestVM() *jnitest.VM {
	vm := jnitest.NewVM()
	vm.RegisterClass(counterClass())
	return vm
}

func buildTestRuntime(t *testing.T, vm *jnitest.VM) *Runtime {
	t.Helper()
	rt, err := NewBuilder().WithProvider(&jnitest.Provider{VM: vm}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestBuildCreatesVM(t *testing.T) {
	vm := newTestVM()
	p := &jnitest.Provider{VM: vm}

	rt, err := NewBuilder().
		WithProvider(p).
		ClasspathEntry("a.jar").
		ClasspathEntry("b.jar").
		JavaOpt("-Xmx64m").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	if p.CreateCalls != 1 {
		t.Fatalf("CreateCalls = %d, want 1", p.CreateCalls)
	}
	opts := vm.CreatedOpts()
	if opts == nil {
		t.Fatal("CreateVM never received options")
	}
	want := map[string]bool{
		"-Djava.class.path=a.jar" + classpath.Separator() + "b.jar": false,
		"-Xmx64m": false,
	}
	for _, o := range opts.Options {
		if _, ok := want[o]; ok {
			want[o] = true
		}
	}
	for o, seen := range want {
		if !seen {
			t.Errorf("option %q not passed to the VM (got %v)", o, opts.Options)
		}
	}
	if got := vm.InitializedLib(); got != defaultLibName {
		t.Errorf("InitializedLib = %q, want %q", got, defaultLibName)
	}
}

func TestBuildAttachesToExistingVM(t *testing.T) {
	vm := newTestVM()
	p := &jnitest.Provider{VM: vm, Preexisting: true}

	rt, err := NewBuilder().WithProvider(p).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	if p.CreateCalls != 0 {
		t.Fatalf("CreateCalls = %d, want 0 for a preexisting VM", p.CreateCalls)
	}
	if vm.AttachCount() != 1 {
		t.Fatalf("AttachCount = %d, want 1", vm.AttachCount())
	}
}

func TestSkipNativeLib(t *testing.T) {
	vm := newTestVM()
	rt, err := NewBuilder().WithProvider(&jnitest.Provider{VM: vm}).SkipNativeLib().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	if got := vm.InitializedLib(); got != "" {
		t.Errorf("InitializedLib = %q, want none", got)
	}
}

func TestLastCloseDetaches(t *testing.T) {
	vm := newTestVM()
	b := NewBuilder().WithProvider(&jnitest.Provider{VM: vm})

	var handles []*Runtime
	for i := 0; i < 3; i++ {
		rt, err := b.Build()
		if err != nil {
			t.Fatalf("Build %d: %v", i, err)
		}
		handles = append(handles, rt)
	}

	for i := 0; i < 2; i++ {
		if err := handles[i].Close(); err != nil {
			t.Fatalf("Close %d: %v", i, err)
		}
		if vm.DetachCount() != 0 {
			t.Fatalf("detached with %d handles still open", 2-i)
		}
	}

	if err := handles[2].Close(); err != nil {
		t.Fatalf("final Close: %v", err)
	}
	if vm.DetachCount() != 1 {
		t.Fatalf("DetachCount = %d, want 1 after the last close", vm.DetachCount())
	}

	// Closing again must not detach twice.
	handles[2].Close()
	if vm.DetachCount() != 1 {
		t.Fatalf("DetachCount = %d after double close, want 1", vm.DetachCount())
	}
}

func TestDetachOnCloseDisabled(t *testing.T) {
	vm := newTestVM()
	rt, err := NewBuilder().
		WithProvider(&jnitest.Provider{VM: vm}).
		DetachOnClose(false).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if vm.DetachCount() != 0 {
		t.Fatalf("DetachCount = %d, want 0 with detach disabled", vm.DetachCount())
	}
}

func TestCachePopulatedOnce(t *testing.T) {
	vm := newTestVM()
	b := NewBuilder().WithProvider(&jnitest.Provider{VM: vm})

	const goroutines = 8
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rt, err := b.Build()
			if err != nil {
				errs <- err
				return
			}
			rt.Close()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Build: %v", err)
	}

	for _, class := range []string{factoryClassName, proxyClassName, invArgClassName, callbackClassName} {
		if got := vm.Resolutions(class); got != 1 {
			t.Errorf("class %s resolved %d times, want 1", class, got)
		}
	}
	if got := vm.Resolutions(factoryClassName + "#instantiate" + sigInstantiate); got != 1 {
		t.Errorf("instantiate resolved %d times, want 1", got)
	}
	if got := vm.Resolutions(proxyClassName + "#invoke" + sigInvoke); got != 1 {
		t.Errorf("invoke resolved %d times, want 1", got)
	}
	if got := vm.Resolutions(proxyClassName + "#invokeStatic" + sigInvokeStatic); got != 1 {
		t.Errorf("invokeStatic resolved %d times at bring-up, want 1", got)
	}
}
