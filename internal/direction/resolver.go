// Package direction decides whether a packet record is entering or leaving
// the local machine.
package direction

import (
	"Go2NetScope/internal/model"
)

// LocalAddresses is the set of addresses that belong to the local machine.
// Membership is an exact string match against record IP fields.
type LocalAddresses map[string]struct{}

// NewLocalAddresses builds a set from the given addresses, skipping empty strings.
func NewLocalAddresses(addrs ...string) LocalAddresses {
	set := make(LocalAddresses, len(addrs))
	for _, a := range addrs {
		if a != "" {
			set[a] = struct{}{}
		}
	}
	return set
}

// Contains reports whether addr is a local address.
func (l LocalAddresses) Contains(addr string) bool {
	_, ok := l[addr]
	return ok
}

// List returns the addresses in no particular order.
func (l LocalAddresses) List() []string {
	out := make([]string, 0, len(l))
	for a := range l {
		out = append(out, a)
	}
	return out
}

// Resolve classifies rec relative to locals. The destination is checked first,
// so traffic between two local addresses is Incoming.
func Resolve(rec *model.PacketRecord, locals LocalAddresses) string {
	if len(locals) == 0 {
		return model.Unknown
	}
	if locals.Contains(rec.DestinationIP) {
		return model.DirectionIncoming
	}
	if locals.Contains(rec.SourceIP) {
		return model.DirectionOutgoing
	}
	return model.Unknown
}

// Apply resolves the direction of rec and stores it on the record.
func Apply(rec *model.PacketRecord, locals LocalAddresses) {
	rec.Direction = Resolve(rec, locals)
}
