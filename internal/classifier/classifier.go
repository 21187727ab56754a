// Package classifier derives the analytics fields of a packet record from its
// ports, TCP flags and addresses.
package classifier

import (
	"math/rand/v2"
	"sync"

	"Go2NetScope/internal/model"
)

const maxMultiplier = 10

// Source yields the random throughput multiplier. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// globalSource delegates to the goroutine-safe top-level math/rand/v2 functions.
type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Classifier enriches packet records. The zero value is not usable; use New.
type Classifier struct {
	mu     sync.Mutex
	source Source
	shared bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithSource makes the throughput estimate draw from src. Calls into src are
// serialized, so src need not be safe for concurrent use.
func WithSource(src Source) Option {
	return func(c *Classifier) {
		c.source = src
		c.shared = false
	}
}

// WithSeed uses a deterministic PCG source seeded with seed.
func WithSeed(seed uint64) Option {
	return WithSource(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// New creates a Classifier. Without options it uses the global random source.
func New(opts ...Option) *Classifier {
	c := &Classifier{source: globalSource{}, shared: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify fills ApplicationGuess, TrafficCategory, SecurityLevel,
// ConnectionStatus, GeographicRegion and BytesPerSecond on rec and returns it.
func (c *Classifier) Classify(rec *model.PacketRecord) *model.PacketRecord {
	port, ok := SelectPort(rec.SourcePort, rec.DestinationPort)
	if ok {
		rec.ApplicationGuess = GuessApplication(port)
		rec.TrafficCategory, rec.SecurityLevel = Categorize(port)
	} else {
		rec.ApplicationGuess = model.Unknown
		rec.TrafficCategory, rec.SecurityLevel = model.Unknown, model.SecurityLow
	}
	rec.ConnectionStatus = ConnectionStatus(rec.TCPFlags)
	rec.GeographicRegion = Region(rec.SourceIP, rec.DestinationIP)
	rec.BytesPerSecond = c.EstimateThroughput(rec.PacketLength)
	return rec
}

// EstimateThroughput scales packetLength by a random multiplier in
// [1, maxMultiplier].
func (c *Classifier) EstimateThroughput(packetLength int) int64 {
	return int64(packetLength) * int64(c.multiplier())
}

// multiplier draws a value in [1, maxMultiplier].
func (c *Classifier) multiplier() int {
	if c.shared {
		return 1 + c.source.IntN(maxMultiplier)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return 1 + c.source.IntN(maxMultiplier)
}

// SelectPort picks the destination port if positive, else the source port if
// positive. ok is false when neither is usable.
func SelectPort(src, dst int) (port int, ok bool) {
	switch {
	case dst > 0:
		return dst, true
	case src > 0:
		return src, true
	default:
		return 0, false
	}
}

// GuessApplication names the application conventionally bound to port.
func GuessApplication(port int) string {
	if app, ok := applications[port]; ok {
		return app
	}
	switch {
	case port >= 1024 && port <= 65535:
		return AppDynamic
	case port >= 1 && port <= 1023:
		return AppWellKnown
	default:
		return model.Unknown
	}
}

// Categorize returns the traffic category and security level for port.
func Categorize(port int) (category, security string) {
	for _, rule := range categoryRules {
		if rule.match(port) {
			return rule.category, rule.security(port)
		}
	}
	return CategoryOther, model.SecurityLow
}

// ConnectionStatus maps the space-joined TCP flags to a connection state.
// The match is exact: "ACK PSH" is not the same as "PSH ACK".
func ConnectionStatus(flags string) string {
	if status, ok := connectionStatuses[flags]; ok {
		return status
	}
	return model.Unknown
}

// Region guesses where the traffic originates or terminates. Each rule is
// tried against both addresses before moving on to the next rule.
func Region(srcIP, dstIP string) string {
	for _, rule := range regionRules {
		if rule.matches(srcIP) || rule.matches(dstIP) {
			return rule.region
		}
	}
	return RegionExternal
}
