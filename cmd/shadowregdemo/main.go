// Command shadowregdemo is a tiny example of wiring a shadow register table
// together: construct it, write a register from the Host side, and sync it
// from the Kernel side. It exists only to show the shape of the API — the
// actual table, access policy, and persist policy are the library's job.
package main

import (
	"log"

	"github.com/aq1018/shadowreg"
	"github.com/aq1018/shadowreg/policy"
	"github.com/aq1018/shadowreg/regslice"
)

func main() {
	tbl, err := shadowreg.New(
		shadowreg.Params{TotalSize: 256, BlockSize: 16},
		policy.AllowAll(),
		policy.NoPersist(),
		shadowreg.MutexCriticalSection(),
	)
	if err != nil {
		log.Fatalf("shadowreg.New: %v", err)
	}

	err = tbl.WithHostView(func(h *shadowreg.HostView) error {
		_, err := shadowreg.WithWOSlice(h, 0x10, 2, func(w regslice.WO) regslice.WriteResult[struct{}] {
			w.WriteU16LEAt(0, 0x1234)
			return regslice.Dirty(struct{}{})
		})
		return err
	})
	if err != nil {
		log.Fatalf("WithHostView: %v", err)
	}

	err = tbl.WithKernelView(func(k *shadowreg.KernelView) error {
		return k.IterDirty(func(blockAddr uint16, block regslice.RO) error {
			log.Printf("syncing block at 0x%04x: %x", blockAddr, block)
			return nil
		})
	})
	if err != nil {
		log.Fatalf("WithKernelView: %v", err)
	}

	err = tbl.WithKernelView(func(k *shadowreg.KernelView) error {
		k.ClearAllDirty()
		return nil
	})
	if err != nil {
		log.Fatalf("WithKernelView: %v", err)
	}
}
