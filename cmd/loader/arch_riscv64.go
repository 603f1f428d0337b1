package main

import "github.com/gk9339/seraph/internal/bootloader"

func arch() bootloader.Arch {
	return bootloader.NewRiscv64Arch()
}
