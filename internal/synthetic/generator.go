// Package synthetic produces realistic packet records without a capture
// device, for demos and pipeline testing.
package synthetic

import (
	"math/rand/v2"
	"time"

	"Go2NetScope/internal/classifier"
	"Go2NetScope/internal/model"
)

const (
	clientIP   = "192.168.1.100"
	loopbackIP = "127.0.0.1"
)

// Window is the span of time synthetic timestamps are spread over.
const Window = 2 * time.Minute

var (
	apiPorts = []int{3000, 4000, 5000, 8000, 8080, 9000}
	dbPorts  = []int{3306, 5432, 1433, 1521}
	dbApps   = []string{"MySQL", "PostgreSQL", "MSSQL", "Oracle"}
)

// Generator builds synthetic records. Timestamps are spread over the Window
// before now.
type Generator struct {
	rng        *rand.Rand
	classifier *classifier.Classifier
	now        func() time.Time
}

// NewGenerator returns a generator drawing from rng. A nil rng uses a
// time-seeded PCG source.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Generator{
		rng:        rng,
		classifier: classifier.New(classifier.WithSource(rng)),
		now:        time.Now,
	}
}

// NewSeededGenerator returns a deterministic generator.
func NewSeededGenerator(seed uint64) *Generator {
	return NewGenerator(rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d)))
}

// LocalhostTraffic simulates a developer workstation talking to services on
// the loopback interface: web browsing, API calls, databases, system services
// and development servers.
func (g *Generator) LocalhostTraffic() []model.PacketRecord {
	var out []model.PacketRecord

	// Web browsing: request and response pairs, then HTTPS.
	for i := 0; i < 15; i++ {
		out = append(out,
			g.packet(clientIP, loopbackIP, g.ephemeral(), 80, model.ProtocolTCP, model.DirectionOutgoing, "HTTP", "SYN ACK"),
			g.packet(loopbackIP, clientIP, 80, g.ephemeral(), model.ProtocolTCP, model.DirectionIncoming, "HTTP", "ACK PSH"),
		)
	}
	for i := 0; i < 10; i++ {
		out = append(out, g.packet(clientIP, loopbackIP, g.ephemeral(), 443, model.ProtocolTCP, model.DirectionOutgoing, "HTTPS", "SYN"))
	}

	out = append(out, g.apiCalls(20)...)
	out = append(out, g.databaseConnections(12)...)
	out = append(out, g.dnsQueries(8)...)

	for i := 0; i < 5; i++ {
		out = append(out, g.packet(clientIP, loopbackIP, g.ephemeral(), 22, model.ProtocolTCP, model.DirectionOutgoing, "SSH", "SYN"))
	}
	for i := 0; i < 3; i++ {
		out = append(out, g.packet(clientIP, loopbackIP, g.ephemeral(), 3389, model.ProtocolTCP, model.DirectionOutgoing, "RDP", "SYN ACK"))
	}

	out = append(out, g.hotReload(25)...)
	for i := 0; i < 15; i++ {
		out = append(out, g.packet(loopbackIP, loopbackIP, 8080, g.ephemeral(), model.ProtocolTCP, model.DirectionIncoming, "WebSocket", "ACK"))
	}
	for i := 0; i < 20; i++ {
		out = append(out, g.packet(loopbackIP, loopbackIP, g.ephemeral(), g.ephemeral(), model.ProtocolTCP, model.DirectionOutgoing, "Localhost Communication", "SYN ACK"))
	}

	return out
}

// ExperimentMix is the smaller traffic mix used by experiment runs.
func (g *Generator) ExperimentMix() []model.PacketRecord {
	var out []model.PacketRecord
	for i := 0; i < 15; i++ {
		out = append(out, g.packet(clientIP, loopbackIP, g.ephemeral(), 80, model.ProtocolTCP, model.DirectionOutgoing, "HTTP", "SYN ACK"))
	}
	out = append(out, g.apiCalls(20)...)
	out = append(out, g.databaseConnections(12)...)
	out = append(out, g.dnsQueries(8)...)
	out = append(out, g.hotReload(25)...)
	return out
}

func (g *Generator) apiCalls(n int) []model.PacketRecord {
	out := make([]model.PacketRecord, 0, n)
	for i := 0; i < n; i++ {
		port := apiPorts[g.rng.IntN(len(apiPorts))]
		out = append(out, g.packet(clientIP, loopbackIP, g.ephemeral(), port, model.ProtocolTCP, model.DirectionOutgoing, "Development Server", "SYN ACK"))
	}
	return out
}

func (g *Generator) databaseConnections(n int) []model.PacketRecord {
	out := make([]model.PacketRecord, 0, n)
	for i := 0; i < n; i++ {
		idx := g.rng.IntN(len(dbPorts))
		out = append(out, g.packet(clientIP, loopbackIP, g.ephemeral(), dbPorts[idx], model.ProtocolTCP, model.DirectionOutgoing, dbApps[idx], "SYN ACK"))
	}
	return out
}

func (g *Generator) dnsQueries(n int) []model.PacketRecord {
	out := make([]model.PacketRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.packet(clientIP, loopbackIP, g.ephemeral(), 53, model.ProtocolUDP, model.DirectionOutgoing, "DNS", ""))
	}
	return out
}

func (g *Generator) hotReload(n int) []model.PacketRecord {
	out := make([]model.PacketRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.packet(loopbackIP, loopbackIP, 3000+g.rng.IntN(10), 3000+g.rng.IntN(10), model.ProtocolTCP, model.DirectionOutgoing, "Development Server", "ACK PSH"))
	}
	return out
}

func (g *Generator) ephemeral() int {
	return 50000 + g.rng.IntN(1000)
}

// packet builds a record with the given identity fields and fills the
// remaining analytics fields from the port and flags. The application name
// and direction are kept as given.
func (g *Generator) packet(src, dst string, sport, dport int, protocol, dir, app, flags string) model.PacketRecord {
	ts := g.now().Add(-time.Duration(g.rng.IntN(int(Window / time.Millisecond))) * time.Millisecond)
	rec := model.NewPacketRecord(ts)
	rec.SourceIP, rec.DestinationIP = src, dst
	rec.SourcePort, rec.DestinationPort = sport, dport
	rec.Protocol = protocol
	rec.Direction = dir
	rec.ApplicationGuess = app
	rec.TCPFlags = flags

	base := 32
	if protocol == model.ProtocolTCP {
		base = 64
	}
	rec.PacketLength = base + g.rng.IntN(1000)

	if port, ok := classifier.SelectPort(sport, dport); ok {
		rec.TrafficCategory, rec.SecurityLevel = classifier.Categorize(port)
	}
	rec.ConnectionStatus = classifier.ConnectionStatus(flags)
	rec.GeographicRegion = classifier.Region(src, dst)
	rec.BytesPerSecond = g.classifier.EstimateThroughput(rec.PacketLength)
	return *rec
}
