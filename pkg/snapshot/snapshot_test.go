package snapshot

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	dto "github.com/prometheus/client_model/go"

	"github.com/dd0wney/flowsim/pkg/metrics"
	"github.com/dd0wney/flowsim/pkg/network"
	"github.com/dd0wney/flowsim/pkg/stream"
	"github.com/dd0wney/flowsim/pkg/units"
)

// buildSheet creates a feed->sink flowsheet with populated ports: the feed
// outlet carries an ordinary state, the sink inlet a fixed one.
func buildSheet(t *testing.T) (*network.Flowsheet, stream.State, stream.State) {
	t.Helper()

	fs := network.New("demo")
	feedState := stream.New(stream.Hydrogen, 120, 950, 1.1e5, map[string]float64{"H2": 0.6, "H2O": 0.4})
	if _, err := fs.AddUnit(&units.Feed{FeedName: "feed", State: feedState}); err != nil {
		t.Fatalf("AddUnit(feed) error: %v", err)
	}
	if _, err := fs.AddUnit(&units.Sink{SinkName: "sink"}); err != nil {
		t.Fatalf("AddUnit(sink) error: %v", err)
	}
	if _, err := fs.Connect("s01",
		network.PortRef{Node: "feed", Port: units.PortOut},
		network.PortRef{Node: "sink", Port: units.PortIn}); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	if err := fs.SetPortState(network.PortRef{Node: "feed", Port: units.PortOut}, feedState); err != nil {
		t.Fatalf("SetPortState error: %v", err)
	}
	sinkState := stream.New(stream.Hydrogen, 120, 900, 1.05e5, map[string]float64{"H2": 0.6, "H2O": 0.4})
	if err := fs.FixPortState(network.PortRef{Node: "sink", Port: units.PortIn}, sinkState); err != nil {
		t.Fatalf("FixPortState error: %v", err)
	}
	return fs, feedState, sinkState
}

// TestCapture_CollectsPopulatedPorts tests that Capture records every port
// that holds a state, with the fixed flag preserved.
func TestCapture_CollectsPopulatedPorts(t *testing.T) {
	fs, feedState, sinkState := buildSheet(t)

	snap := Capture(fs, "run01")
	if snap.Flowsheet != "demo" || snap.RunID != "run01" {
		t.Errorf("snapshot header = %q/%q, want demo/run01", snap.Flowsheet, snap.RunID)
	}
	if len(snap.Ports) != 2 {
		t.Fatalf("captured %d ports, want 2", len(snap.Ports))
	}

	byPort := make(map[string]PortRecord)
	for _, rec := range snap.Ports {
		byPort[rec.Node+"."+rec.Port] = rec
	}
	feedRec, ok := byPort["feed.out"]
	if !ok {
		t.Fatal("feed.out not captured")
	}
	if feedRec.Fixed {
		t.Error("feed.out captured as fixed")
	}
	if !feedRec.State.Equal(feedState) {
		t.Errorf("feed.out state = %v, want %v", feedRec.State, feedState)
	}
	sinkRec, ok := byPort["sink.in"]
	if !ok {
		t.Fatal("sink.in not captured")
	}
	if !sinkRec.Fixed {
		t.Error("sink.in not captured as fixed")
	}
	if !sinkRec.State.Equal(sinkState) {
		t.Errorf("sink.in state = %v, want %v", sinkRec.State, sinkState)
	}
}

// TestEncodeDecode_RoundTrip tests that a snapshot survives the compressed
// wire format unchanged.
func TestEncodeDecode_RoundTrip(t *testing.T) {
	fs, _, _ := buildSheet(t)
	snap := Capture(fs, "run02")

	data, err := Encode(snap)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if got.Flowsheet != snap.Flowsheet || got.RunID != snap.RunID {
		t.Errorf("header = %q/%q, want %q/%q", got.Flowsheet, got.RunID, snap.Flowsheet, snap.RunID)
	}
	if !got.CreatedAt.Equal(snap.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, snap.CreatedAt)
	}
	if len(got.Ports) != len(snap.Ports) {
		t.Fatalf("decoded %d ports, want %d", len(got.Ports), len(snap.Ports))
	}
	for i, rec := range snap.Ports {
		g := got.Ports[i]
		if g.Node != rec.Node || g.Port != rec.Port || g.Fixed != rec.Fixed {
			t.Errorf("port %d = %s.%s fixed=%v, want %s.%s fixed=%v",
				i, g.Node, g.Port, g.Fixed, rec.Node, rec.Port, rec.Fixed)
		}
		if !g.State.Equal(rec.State) {
			t.Errorf("port %d state mismatch: %v vs %v", i, g.State, rec.State)
		}
	}
}

// TestDecode_RejectsCorruption tests that tampered or truncated files are
// refused instead of decoded.
func TestDecode_RejectsCorruption(t *testing.T) {
	fs, _, _ := buildSheet(t)
	data, err := Encode(Capture(fs, "run03"))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	flipped := append([]byte(nil), data...)
	flipped[len(flipped)/2] ^= 0xFF
	if _, err := Decode(flipped); err == nil {
		t.Error("Decode accepted a corrupted payload")
	}

	if _, err := Decode(data[:len(data)-6]); err == nil {
		t.Error("Decode accepted a truncated file")
	}

	badMagic := append([]byte(nil), data...)
	badMagic[0] = 0x00
	if _, err := Decode(badMagic); err == nil {
		t.Error("Decode accepted a wrong magic number")
	}

	badVersion := append([]byte(nil), data...)
	badVersion[4] = formatVersion + 1
	if _, err := Decode(badVersion); err == nil {
		t.Error("Decode accepted an unknown format version")
	}
}

// TestRestore_ReappliesStates tests that a captured snapshot can be written
// onto a fresh flowsheet with the same topology.
func TestRestore_ReappliesStates(t *testing.T) {
	fs, feedState, sinkState := buildSheet(t)
	snap := Capture(fs, "run04")

	fresh, _, _ := buildSheet(t)
	// Overwrite to prove Restore replaces existing values.
	other := stream.New(stream.Hydrogen, 1, 300, 1e5, map[string]float64{"H2": 1, "H2O": 0})
	if err := fresh.SetPortState(network.PortRef{Node: "feed", Port: units.PortOut}, other); err != nil {
		t.Fatalf("SetPortState error: %v", err)
	}

	if err := Restore(fresh, snap); err != nil {
		t.Fatalf("Restore error: %v", err)
	}

	got, ok, err := fresh.PortState(network.PortRef{Node: "feed", Port: units.PortOut})
	if err != nil || !ok {
		t.Fatalf("PortState(feed.out) = ok=%v, err=%v", ok, err)
	}
	if !got.Equal(feedState) {
		t.Errorf("restored feed.out = %v, want %v", got, feedState)
	}

	sinkPort, err := fresh.Port(network.PortRef{Node: "sink", Port: units.PortIn})
	if err != nil {
		t.Fatalf("Port(sink.in) error: %v", err)
	}
	if !sinkPort.Fixed() {
		t.Error("restored sink.in lost its fixed flag")
	}
	gotSink, _ := sinkPort.State()
	if !gotSink.Equal(sinkState) {
		t.Errorf("restored sink.in = %v, want %v", gotSink, sinkState)
	}
}

// TestStore_WriteAndLoad tests the local write path end to end, including
// the write metrics.
func TestStore_WriteAndLoad(t *testing.T) {
	fs, _, _ := buildSheet(t)
	dir := t.TempDir()
	reg := metrics.NewRegistry()
	store := NewStore(filepath.Join(dir, "snapshots"), WithMetrics(reg))

	path, err := store.Write(context.Background(), fs, "run05")
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if filepath.Base(path) != FileName("run05") {
		t.Errorf("snapshot file = %s, want %s", filepath.Base(path), FileName("run05"))
	}

	snap, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if snap.RunID != "run05" || len(snap.Ports) != 2 {
		t.Errorf("loaded run %q with %d ports, want run05 with 2", snap.RunID, len(snap.Ports))
	}

	ok, err := reg.SnapshotWritesTotal.GetMetricWithLabelValues("ok")
	if err != nil {
		t.Fatalf("reading metric: %v", err)
	}
	var metric dto.Metric
	if err := ok.Write(&metric); err != nil {
		t.Fatalf("writing metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("snapshot ok counter = %v, want 1", metric.Counter.GetValue())
	}
}

// TestLoadFile_MissingFile tests that a nonexistent path reports a read error.
func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.fsnp")); err == nil {
		t.Error("LoadFile accepted a missing file")
	}
}

// TestLoadFile_RejectsTamperedFile tests that on-disk corruption is caught.
func TestLoadFile_RejectsTamperedFile(t *testing.T) {
	fs, _, _ := buildSheet(t)
	dir := t.TempDir()
	store := NewStore(dir)

	path, err := store.Write(context.Background(), fs, "run06")
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading snapshot back: %v", err)
	}
	data[len(data)-1] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("rewriting snapshot: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile accepted a tampered file")
	}
}

type fakePutter struct {
	bucket string
	key    string
	body   []byte
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = *in.Bucket
	f.key = *in.Key
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

// TestStore_ArchivesToS3 tests that a configured archiver receives the
// encoded snapshot under the prefixed key.
func TestStore_ArchivesToS3(t *testing.T) {
	fs, _, _ := buildSheet(t)
	putter := &fakePutter{}
	reg := metrics.NewRegistry()
	store := NewStore(t.TempDir(),
		WithMetrics(reg),
		WithArchiver(NewS3ArchiverWithClient(putter, "flowsim-snapshots", "plant_a")))

	path, err := store.Write(context.Background(), fs, "run07")
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}

	if putter.bucket != "flowsim-snapshots" {
		t.Errorf("bucket = %q, want flowsim-snapshots", putter.bucket)
	}
	if putter.key != "plant_a/"+FileName("run07") {
		t.Errorf("key = %q, want plant_a/%s", putter.key, FileName("run07"))
	}

	local, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading local snapshot: %v", err)
	}
	if len(putter.body) != len(local) {
		t.Fatalf("archived %d bytes, local file has %d", len(putter.body), len(local))
	}
	if _, err := Decode(putter.body); err != nil {
		t.Errorf("archived bytes do not decode: %v", err)
	}

	ok, err := reg.SnapshotArchivesTotal.GetMetricWithLabelValues("ok")
	if err != nil {
		t.Fatalf("reading metric: %v", err)
	}
	var metric dto.Metric
	if err := ok.Write(&metric); err != nil {
		t.Fatalf("writing metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("archive ok counter = %v, want 1", metric.Counter.GetValue())
	}
}

// TestStore_ArchiveFailureKeepsLocalFile tests that an upload failure is
// reported but does not discard the local snapshot.
func TestStore_ArchiveFailureKeepsLocalFile(t *testing.T) {
	fs, _, _ := buildSheet(t)
	putter := &fakePutter{err: errors.New("access denied")}
	store := NewStore(t.TempDir(),
		WithArchiver(NewS3ArchiverWithClient(putter, "flowsim-snapshots", "")))

	path, err := store.Write(context.Background(), fs, "run08")
	if err == nil {
		t.Fatal("Write succeeded despite archive failure")
	}
	if path == "" {
		t.Fatal("Write did not report the local path on archive failure")
	}
	if _, err := LoadFile(path); err != nil {
		t.Errorf("local snapshot unreadable after archive failure: %v", err)
	}
}

// TestNewS3Archiver_RequiresBucket tests the constructor's bucket check.
func TestNewS3Archiver_RequiresBucket(t *testing.T) {
	if _, err := NewS3Archiver(context.Background(), "", "prefix", "", ""); err == nil {
		t.Error("NewS3Archiver accepted an empty bucket")
	}
}
