package dump

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tinware/rapport/internal/store"
	"github.com/tinware/rapport/internal/tracker"
)

func testStore(t *testing.T) (*store.DB, *tracker.Tracker) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, tracker.New(db)
}

func seedRoster(t *testing.T, tr *tracker.Tracker) {
	t.Helper()
	steps := []struct {
		name      string
		magnitude float64
		reason    string
	}{
		{"sam", 0.5, "helped me move"},
		{"sam", 1.0, ""},
		{"alex", 3.0, "road trip"},
	}
	for _, s := range steps {
		if _, err := tr.Record(s.name, s.magnitude, s.reason); err != nil {
			t.Fatalf("Record %s: %v", s.name, err)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src, srcTr := testStore(t)
	seedRoster(t, srcTr)

	path := filepath.Join(t.TempDir(), "rapport.jsonl")
	meta, err := Export(src, path)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if meta.Friends != 2 || meta.Interactions != 3 {
		t.Errorf("meta = %+v, want 2 friends, 3 interactions", meta)
	}

	dst, dstTr := testStore(t)
	res, err := Import(dst, dstTr, path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Friends != 2 || res.Interactions != 3 {
		t.Errorf("result = %+v, want 2 friends, 3 interactions", res)
	}
	if res.Rebuilt != 2 {
		t.Errorf("Rebuilt = %d, want 2", res.Rebuilt)
	}

	// The refolded states must match the source exactly, and every
	// ledger row must survive with its reason.
	for _, name := range []string{"sam", "alex"} {
		want, err := srcTr.Get(name)
		if err != nil {
			t.Fatalf("source Get %s: %v", name, err)
		}
		got, err := dstTr.Get(name)
		if err != nil {
			t.Fatalf("imported Get %s: %v", name, err)
		}
		if got.LowerBound != want.LowerBound || got.Fuzziness != want.Fuzziness {
			t.Errorf("%s state = (%v, %v), want (%v, %v)",
				name, got.LowerBound, got.Fuzziness, want.LowerBound, want.Fuzziness)
		}
	}

	samDst, _ := dst.GetFriend("sam")
	recs, _ := dst.ListInteractions(samDst.ID)
	if len(recs) != 2 {
		t.Fatalf("sam ledger = %d rows, want 2", len(recs))
	}
	if recs[0].Reason != "helped me move" {
		t.Errorf("Reason = %q, want helped me move", recs[0].Reason)
	}
}

func TestExportCompressed(t *testing.T) {
	src, srcTr := testStore(t)
	seedRoster(t, srcTr)

	path := filepath.Join(t.TempDir(), "rapport.jsonl.zst")
	if _, err := Export(src, path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	// zstd frame magic
	if len(raw) < 4 || raw[0] != 0x28 || raw[1] != 0xB5 || raw[2] != 0x2F || raw[3] != 0xFD {
		t.Fatalf("dump is not zstd compressed: % x", raw[:4])
	}

	dst, dstTr := testStore(t)
	res, err := Import(dst, dstTr, path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Friends != 2 || res.Interactions != 3 {
		t.Errorf("result = %+v, want 2 friends, 3 interactions", res)
	}
}

func TestWriteStream(t *testing.T) {
	src, srcTr := testStore(t)
	seedRoster(t, srcTr)

	var buf bytes.Buffer
	if _, err := Write(src, &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want 6 (meta + 2 friends + 3 interactions)", len(lines))
	}

	var m metaLine
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("decode meta line: %v", err)
	}
	if m.Type != "meta" || m.Version != FormatVersion {
		t.Errorf("meta = %+v, want type meta version %d", m, FormatVersion)
	}

	// Friends come out strongest first, each followed by their ledger.
	var fl friendLine
	if err := json.Unmarshal([]byte(lines[1]), &fl); err != nil {
		t.Fatalf("decode friend line: %v", err)
	}
	if fl.Name != "alex" {
		t.Errorf("first friend = %q, want alex", fl.Name)
	}
}

func TestReadSkipsBadLines(t *testing.T) {
	input := `not json at all
{"type":"friend","name":"sam","lower_bound":0.5,"fuzziness":0.285}

{"type":"mystery","payload":true}
{"type":"interaction","friend":"sam","magnitude":0.5,"occurred_at":1000}
`
	db, tr := testStore(t)
	res, err := Read(db, tr, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", res.Skipped)
	}
	if res.Friends != 1 || res.Interactions != 1 {
		t.Errorf("result = %+v, want 1 friend, 1 interaction", res)
	}
}

func TestReadRejectsNewerVersion(t *testing.T) {
	input := `{"type":"meta","version":99}`

	db, tr := testStore(t)
	if _, err := Read(db, tr, strings.NewReader(input)); err == nil {
		t.Fatal("expected error for a newer dump version")
	}
}

func TestReadInteractionBeforeFriend(t *testing.T) {
	// A ledger row whose friend line never shows up still imports; the
	// friend materializes and the refold derives the state.
	input := `{"type":"interaction","friend":"drew","magnitude":0.5,"occurred_at":1000}`

	db, tr := testStore(t)
	res, err := Read(db, tr, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Friends != 1 {
		t.Errorf("Friends = %d, want 1", res.Friends)
	}

	f, err := tr.Get("drew")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if f.LowerBound != 0.5 {
		t.Errorf("LowerBound = %v, want 0.5 from the refold", f.LowerBound)
	}
}

func TestImportMergesLedgers(t *testing.T) {
	// Destination already knows sam; importing more of sam's history
	// must append and refold rather than duplicate or clobber.
	src, srcTr := testStore(t)
	if _, err := srcTr.Record("sam", 2.0, "camping"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	path := filepath.Join(t.TempDir(), "rapport.jsonl")
	if _, err := Export(src, path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	dst, dstTr := testStore(t)
	if _, err := dstTr.Record("sam", 0.5, ""); err != nil {
		t.Fatalf("Record: %v", err)
	}

	res, err := Import(dst, dstTr, path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Friends != 0 {
		t.Errorf("Friends = %d, want 0 (sam already tracked)", res.Friends)
	}
	if res.Interactions != 1 {
		t.Errorf("Interactions = %d, want 1", res.Interactions)
	}

	f, _ := dst.GetFriend("sam")
	n, _ := dst.CountInteractions(f.ID)
	if n != 2 {
		t.Errorf("merged ledger = %d rows, want 2", n)
	}

	// Stored state must match the merged fold.
	drift, err := dstTr.Verify("sam")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !drift.Clean() {
		t.Errorf("merged state drifts: stored %+v replayed %+v", drift.Stored, drift.Replayed)
	}
}
