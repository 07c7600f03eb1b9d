package kernel

import (
	"github.com/redshirt-os/redshirt/reftype"
	"github.com/redshirt-os/redshirt/types"
)

// AllocateReftypeSlot reserves a fresh reftyped range owned by pid. The
// range is seeded into the process's own taint analysis: if the process
// dies still holding it, the range and everything it was ever recorded to
// reach via RecordReftypeMove is swept clear by finishProcess instead of
// being left pointing at a process that no longer exists.
func (k *Kernel) AllocateReftypeSlot(pid types.Pid) (reftype.Range, bool) {
	proc := k.getProcess(pid)
	if proc == nil {
		return 0, false
	}

	k.reftypeMu.Lock()
	r := k.nextReftypeRange
	k.nextReftypeRange++
	k.reftypeOwners[r] = pid
	k.reftypeMu.Unlock()

	proc.mu.Lock()
	proc.reftypeSeed = append(proc.reftypeSeed, r)
	proc.mu.Unlock()
	return r, true
}

// RecordReftypeMove records that pid's execution may have propagated
// src's reftyped value into dst, growing the move graph Taint walks at
// process death.
func (k *Kernel) RecordReftypeMove(pid types.Pid, src, dst reftype.Range) bool {
	proc := k.getProcess(pid)
	if proc == nil {
		return false
	}
	proc.mu.Lock()
	proc.reftypeGraph.AddEdge(src, dst)
	proc.mu.Unlock()
	return true
}

// ReftypeSlotOwner reports which Pid currently owns r, if any.
func (k *Kernel) ReftypeSlotOwner(r reftype.Range) (types.Pid, bool) {
	k.reftypeMu.Lock()
	defer k.reftypeMu.Unlock()
	pid, ok := k.reftypeOwners[r]
	return pid, ok
}

// sweepReftypeForDeath runs the taint analysis over proc's recorded seed
// and move graph, clearing every range it reaches from the kernel-wide
// ownership table — spec component 4.9's "dying process's reftyped vregs
// are cleared, not left dangling" rule.
func (k *Kernel) sweepReftypeForDeath(proc *process) {
	proc.mu.Lock()
	seed := append([]reftype.Range(nil), proc.reftypeSeed...)
	graph := proc.reftypeGraph
	proc.mu.Unlock()

	if len(seed) == 0 {
		return
	}
	tainted := reftype.Taint(graph, seed)

	k.reftypeMu.Lock()
	for r := range tainted {
		delete(k.reftypeOwners, r)
	}
	k.reftypeMu.Unlock()
}
