package kernel

// sendOutcome reports what a send/recv attempt did so the dispatcher
// knows whether to keep `current` running or block it.
type sendOutcome struct {
	ret     int
	blocked bool
}

// doSend implements msg.c's send(): prefer the addressed dest if it is
// itself Recv-blocked on curr (or on anyone); otherwise fall back to
// whichever other process is Recv-blocked on anyone (blocked_id == 0),
// msg.c's peek_any_receiver() fallback — the addressed dest need not be
// the one who actually receives. Copies min(lens) bytes, wakes the peer;
// if no such peer exists at all, reports that curr should block.
func (k *Kernel) doSend(curr *PCB, destPid int, buf []byte) sendOutcome {
	if len(buf) == 0 {
		return sendOutcome{ret: SyserrOther}
	}
	if destPid == curr.Pid {
		return sendOutcome{ret: SyspidSelf}
	}
	dest := k.pidToPCB(destPid)
	if dest == nil {
		return sendOutcome{ret: SyspidDNE}
	}

	peer := k.blocked.Find(func(c *PCB) bool {
		return c == dest && c.BlockedStatus == BlockedRecv &&
			(c.BlockedID == 0 || c.BlockedID == curr.Pid)
	})
	if peer == nil {
		peer = k.blocked.Find(func(c *PCB) bool {
			return c.BlockedStatus == BlockedRecv && c.BlockedID == 0
		})
	}
	if peer == nil {
		return sendOutcome{blocked: true}
	}

	n := copyMin(peer.msgBuf, buf)
	if peer.msgFrom != nil {
		*peer.msgFrom = curr.Pid
	}
	k.blocked.Remove(peer)
	peer.Ret = n
	peer.BlockedStatus = BlockedNone
	peer.BlockedID = 0
	peer.State = StateReady
	k.ready.Offer(peer)

	return sendOutcome{ret: n}
}

// doRecv implements msg.c's recv(): fromPid==0 means "any". Mirrors the
// non-rotating scan documented as Open Question 3 in SPEC_FULL.md §9.
func (k *Kernel) doRecv(curr *PCB, fromPid int, buf []byte, fromOut *int) sendOutcome {
	if len(buf) == 0 {
		return sendOutcome{ret: SyserrOther}
	}
	if fromPid == curr.Pid {
		return sendOutcome{ret: SyspidSelf}
	}
	if fromPid != 0 && k.pidToPCB(fromPid) == nil {
		return sendOutcome{ret: SyspidDNE}
	}

	peer := k.blocked.Find(func(c *PCB) bool {
		if c.BlockedStatus != BlockedSend {
			return false
		}
		if fromPid == 0 {
			return c.BlockedID == 0 || c.BlockedID == curr.Pid
		}
		// Directed recv: the named sender must actually be waiting on
		// curr (or on anyone) — a sender blocked on a different
		// specific pid is not a match, even if its pid is fromPid.
		return c.Pid == fromPid && (c.BlockedID == 0 || c.BlockedID == curr.Pid)
	})
	if peer == nil {
		return sendOutcome{blocked: true}
	}

	n := copyMin(buf, peer.msgBuf)
	if fromOut != nil {
		*fromOut = peer.Pid
	}
	k.blocked.Remove(peer)
	peer.Ret = n
	peer.BlockedStatus = BlockedNone
	peer.BlockedID = 0
	peer.State = StateReady
	k.ready.Offer(peer)

	return sendOutcome{ret: n}
}

func copyMin(dst, src []byte) int {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	copy(dst[:n], src[:n])
	return n
}
