// Package snapshot persists the port states of an initialized flowsheet so
// a converged starting point can be reloaded instead of recomputed. Files
// are gob-encoded, snappy-compressed and checksummed; an optional archiver
// copies each snapshot to object storage.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"

	"github.com/dd0wney/flowsim/pkg/network"
	"github.com/dd0wney/flowsim/pkg/stream"
)

const (
	// magic marks a snapshot file.
	magic uint32 = 0x46534E50 // "FSNP"
	// formatVersion is bumped on incompatible layout changes.
	formatVersion byte = 1
)

// PortRecord is one populated port in a snapshot.
type PortRecord struct {
	Node  string
	Port  string
	Fixed bool
	State stream.State
}

// Snapshot is the serializable capture of a flowsheet's state.
type Snapshot struct {
	Flowsheet string
	RunID     string
	CreatedAt time.Time
	Ports     []PortRecord
}

// Capture collects every populated port of a flowsheet, in registration
// order so captures of the same flowsheet are byte-stable.
func Capture(fs *network.Flowsheet, runID string) *Snapshot {
	snap := &Snapshot{
		Flowsheet: fs.Name,
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
	}
	for _, n := range fs.Nodes() {
		for _, p := range append(append([]*network.Port(nil), n.Inlets()...), n.Outlets()...) {
			s, ok := p.State()
			if !ok {
				continue
			}
			snap.Ports = append(snap.Ports, PortRecord{
				Node:  n.Name,
				Port:  p.Name,
				Fixed: p.Fixed(),
				State: s,
			})
		}
	}
	return snap
}

// Restore writes a snapshot's port states back onto a flowsheet with the
// same topology. Fixed ports are re-fixed; everything else is set as an
// ordinary value.
func Restore(fs *network.Flowsheet, snap *Snapshot) error {
	for _, rec := range snap.Ports {
		ref := network.PortRef{Node: rec.Node, Port: rec.Port}
		if rec.Fixed {
			if err := fs.FixPortState(ref, rec.State); err != nil {
				return fmt.Errorf("restoring %s: %w", ref, err)
			}
			continue
		}
		if err := fs.ReleasePort(ref); err != nil {
			return fmt.Errorf("restoring %s: %w", ref, err)
		}
		if err := fs.SetPortState(ref, rec.State); err != nil {
			return fmt.Errorf("restoring %s: %w", ref, err)
		}
	}
	return nil
}

// Encode serializes and compresses a snapshot.
// Format: [magic:4][version:1][DataLen:4][Data:N][Checksum:4], checksum over
// the compressed payload.
func Encode(snap *Snapshot) ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(snap); err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	compressed := snappy.Encode(nil, payload.Bytes())

	var out bytes.Buffer
	if err := binary.Write(&out, binary.BigEndian, magic); err != nil {
		return nil, err
	}
	if err := out.WriteByte(formatVersion); err != nil {
		return nil, err
	}
	if err := binary.Write(&out, binary.BigEndian, uint32(len(compressed))); err != nil {
		return nil, err
	}
	if _, err := out.Write(compressed); err != nil {
		return nil, err
	}
	if err := binary.Write(&out, binary.BigEndian, crc32.ChecksumIEEE(compressed)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Decode parses an encoded snapshot, verifying the checksum before
// decompressing.
func Decode(data []byte) (*Snapshot, error) {
	r := bytes.NewReader(data)

	var m uint32
	if err := binary.Read(r, binary.BigEndian, &m); err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}
	if m != magic {
		return nil, fmt.Errorf("not a snapshot file (magic %#x)", m)
	}
	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", version)
	}
	var dataLen uint32
	if err := binary.Read(r, binary.BigEndian, &dataLen); err != nil {
		return nil, err
	}
	compressed := make([]byte, dataLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, fmt.Errorf("reading snapshot payload: %w", err)
	}
	var checksum uint32
	if err := binary.Read(r, binary.BigEndian, &checksum); err != nil {
		return nil, err
	}
	if crc32.ChecksumIEEE(compressed) != checksum {
		return nil, fmt.Errorf("snapshot checksum mismatch")
	}

	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot: %w", err)
	}
	snap := &Snapshot{}
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}

// LoadFile reads and decodes a snapshot file.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return Decode(data)
}

// FileName returns the canonical snapshot file name for a run.
func FileName(runID string) string {
	return fmt.Sprintf("snapshot_%s.fsnp", runID)
}

// WriteFile encodes a snapshot into a directory, creating it if needed.
func WriteFile(dir string, snap *Snapshot) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}
	data, err := Encode(snap)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(snap.RunID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return path, nil
}
