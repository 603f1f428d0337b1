//go:build riscv64

package riscv64

// Enter loads the exact register contract the stub expects (T0=satp,
// T1=entry, T2=stackTop, A0=bootInfoPhys, A1=hartID) and jumps to
// stubAddr. The stub address is held in T3, a register outside that
// quintet, so none of the target loads can alias the jump target.
// Enter never returns.
//
//go:noescape
func Enter(stubAddr, satp, entry, stackTop, bootInfoPhys, hartID uintptr)
