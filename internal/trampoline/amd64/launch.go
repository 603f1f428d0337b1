//go:build amd64

package amd64

// Enter loads the exact register contract the stub expects (RAX=cr3,
// RBX=entry, RCX=bootInfo, RDX=stackTop) and jumps to stubAddr. The
// stub address is held in R10, a register outside that quartet, so none
// of the four target loads can alias the jump target. Enter never
// returns.
//
//go:noescape
func Enter(stubAddr, cr3, entry, bootInfoPhys, stackTop uintptr)
