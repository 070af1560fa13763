package bluez

import (
	"time"

	"tinygo.org/x/bluetooth"
)

const (
	// seenTTL is how long a scanned address stays connectable without a
	// fresh advertisement.
	seenTTL = 5 * time.Minute

	pruneEvery = 30 * time.Second
)

type seenAddr struct {
	addr bluetooth.Address
	at   time.Time
}

// addressBook remembers scanned adapter addresses by their string form.
// Not safe for concurrent use; Radio guards it with its mutex.
type addressBook struct {
	entries   map[string]seenAddr
	lastPrune time.Time
}

func newAddressBook() addressBook {
	return addressBook{entries: make(map[string]seenAddr)}
}

func (b *addressBook) lookup(key string) (bluetooth.Address, bool) {
	s, ok := b.entries[key]
	return s.addr, ok
}

// note records addr and prunes at most every pruneEvery.
func (b *addressBook) note(key string, addr bluetooth.Address, now time.Time, keep func(string) bool) {
	b.entries[key] = seenAddr{addr: addr, at: now}
	if now.Sub(b.lastPrune) >= pruneEvery {
		b.prune(now, keep)
	}
}

// prune drops entries older than seenTTL unless keep reports them in use.
func (b *addressBook) prune(now time.Time, keep func(string) bool) {
	b.lastPrune = now
	for key, s := range b.entries {
		if now.Sub(s.at) > seenTTL && !keep(key) {
			delete(b.entries, key)
		}
	}
}

func (b *addressBook) len() int { return len(b.entries) }
