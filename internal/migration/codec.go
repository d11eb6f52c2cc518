package migration

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wildstyl3r/exopic/internal/particle"
)

// Record is a particle on the wire.
type Record struct {
	_msgpack struct{} `msgpack:",as_array"`

	X, Y, Z float64
	U, V, W float64
	Q       float64
	ID      uint64
}

// Packet carries the particles of one species from one rank to another.
type Packet struct {
	Species int      `msgpack:"s"`
	Records []Record `msgpack:"r"`
}

func Encode(species int, ps []particle.Particle) ([]byte, error) {
	pkt := Packet{Species: species, Records: make([]Record, len(ps))}
	for i, p := range ps {
		pkt.Records[i] = Record{X: p.X, Y: p.Y, Z: p.Z, U: p.U, V: p.V, W: p.W, Q: p.Q, ID: p.ID}
	}
	data, err := msgpack.Marshal(&pkt)
	if err != nil {
		return nil, fmt.Errorf("encoding %d particles of species %d: %w", len(ps), species, err)
	}
	return data, nil
}

// Decode reads a packet. An empty message is an empty packet for species.
func Decode(species int, data []byte) ([]particle.Particle, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var pkt Packet
	if err := msgpack.Unmarshal(data, &pkt); err != nil {
		return nil, fmt.Errorf("decoding packet: %w", err)
	}
	if pkt.Species != species {
		return nil, fmt.Errorf("packet for species %d received while migrating species %d", pkt.Species, species)
	}
	ps := make([]particle.Particle, len(pkt.Records))
	for i, r := range pkt.Records {
		ps[i] = particle.Particle{X: r.X, Y: r.Y, Z: r.Z, U: r.U, V: r.V, W: r.W, Q: r.Q, ID: r.ID}
	}
	return ps, nil
}
