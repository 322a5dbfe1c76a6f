// Package session holds the per-device display state of a connected session:
// which notices were already surfaced locally and which screen is up.
// Nothing here is durable; losing it only costs a re-pull from the server.
package session

import "sync"

// DedupState tracks notice ids this device already handled. Read marks on the
// server stay authoritative; Reconcile lets them win.
type DedupState struct {
	mu        sync.Mutex
	dismissed map[int64]struct{}
	read      map[int64]struct{}
	pending   map[int64]struct{}
}

func NewDedupState() *DedupState {
	d := &DedupState{}
	d.Reset()
	return d
}

// MarkDismissed records a toast closed without being opened.
func (d *DedupState) MarkDismissed(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dismissed[id] = struct{}{}
}

// MarkReadPending records a read whose server mark is still in flight.
func (d *DedupState) MarkReadPending(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.read[id]; ok {
		return
	}
	d.pending[id] = struct{}{}
}

// ConfirmRead moves id from pending to read once the server accepted it.
func (d *DedupState) ConfirmRead(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, id)
	d.read[id] = struct{}{}
}

// AbandonRead forgets a pending read whose server call failed, so the notice
// can surface again.
func (d *DedupState) AbandonRead(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, id)
}

// Suppressed reports whether id was dismissed, read or is being marked read on
// this device.
func (d *DedupState) Suppressed(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.dismissed[id]; ok {
		return true
	}
	if _, ok := d.read[id]; ok {
		return true
	}
	_, ok := d.pending[id]
	return ok
}

// Reconcile applies the server's unread popup list. An id the server still
// reports unread loses its local read and dismissed entries unless a mark is
// in flight.
func (d *DedupState) Reconcile(serverUnread []int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range serverUnread {
		if _, inFlight := d.pending[id]; inFlight {
			continue
		}
		delete(d.read, id)
		delete(d.dismissed, id)
	}
}

// Reset drops all local state.
func (d *DedupState) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dismissed = make(map[int64]struct{})
	d.read = make(map[int64]struct{})
	d.pending = make(map[int64]struct{})
}
