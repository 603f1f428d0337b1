//go:build amd64

package firmware

// callN invokes the UEFI function pointer fn using the Microsoft x64
// calling convention (first four arguments in RCX, RDX, R8, R9, the rest
// on the stack above a 32-byte shadow area, caller-cleaned stack,
// non-volatile registers preserved by the callee). Go's own calling
// convention never matches an external ABI, so every boot-services and
// protocol call crosses through one of these assembly thunks. Fixed
// arities avoid the variadic-slice indirection a single
// call(fn, args...) signature would need just to reach the same four
// registers.
//
//go:noescape
func call0(fn uintptr) uintptr

//go:noescape
func call1(fn, a0 uintptr) uintptr

//go:noescape
func call2(fn, a0, a1 uintptr) uintptr

//go:noescape
func call3(fn, a0, a1, a2 uintptr) uintptr

//go:noescape
func call4(fn, a0, a1, a2, a3 uintptr) uintptr

//go:noescape
func call5(fn, a0, a1, a2, a3, a4 uintptr) uintptr

//go:noescape
func call6(fn, a0, a1, a2, a3, a4, a5 uintptr) uintptr
