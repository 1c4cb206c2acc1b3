// Package jnitest provides an in-memory fake JVM for testing the bridge
// without a JDK.
//
// The fake implements jni.Provider, jni.VM and jni.Env and understands the
// companion wire contract: the instantiation factory, the invocation proxy,
// the argument DTO constructors and the boxed primitive classes. Java-side
// behavior is scripted by registering Class definitions:
//
//	vm := jnitest.NewVM()
//	vm.RegisterClass(&jnitest.Class{
//	    Name: "acme.Counter",
//	    New:  func(args []any) (any, error) { return &counter{}, nil },
//	    Methods: map[string]jnitest.Method{
//	        "increment": func(recv any, args []any) (any, error) { ... },
//	    },
//	})
//
// The VM records attachment counts, class and method resolution counts and
// live reference counts so tests can assert on bridge bookkeeping.
package jnitest
