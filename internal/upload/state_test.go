package upload

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestState(t *testing.T) *StateDB {
	t.Helper()
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatalf("opening state db: %v", err)
	}
	t.Cleanup(func() { state.Close() })
	return state
}

// TestStateMarkAndCheck verifies the analyzed-video ledger round trip.
func TestStateMarkAndCheck(t *testing.T) {
	state := openTestState(t)

	done, err := state.IsAnalyzed("day1/set1.mp4", 1024, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("fresh db reports video as analyzed")
	}

	if err := state.MarkAnalyzed("day1/set1.mp4", 1024, "abc", "wk-1"); err != nil {
		t.Fatal(err)
	}

	done, err = state.IsAnalyzed("day1/set1.mp4", 1024, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Error("marked video not reported as analyzed")
	}
}

// TestStateChangedFileNotSkipped verifies a re-recorded file at the same
// path (different size or hash) counts as new.
func TestStateChangedFileNotSkipped(t *testing.T) {
	state := openTestState(t)

	if err := state.MarkAnalyzed("set.mp4", 1024, "abc", "wk-1"); err != nil {
		t.Fatal(err)
	}

	if done, _ := state.IsAnalyzed("set.mp4", 2048, "abc"); done {
		t.Error("size change should not match")
	}
	if done, _ := state.IsAnalyzed("set.mp4", 1024, "def"); done {
		t.Error("hash change should not match")
	}
}

// TestStateReopenPersists verifies state survives closing and reopening.
func TestStateReopenPersists(t *testing.T) {
	dir := t.TempDir()
	state, err := OpenStateDB(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := state.MarkAnalyzed("set.mp4", 10, "h", "wk-1"); err != nil {
		t.Fatal(err)
	}
	state.Close()

	state, err = OpenStateDB(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	done, err := state.IsAnalyzed("set.mp4", 10, "h")
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Error("state lost across reopen")
	}
}

// TestHashFile verifies hashing is content-based and stable.
func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp4")
	b := filepath.Join(dir, "b.mp4")
	if err := os.WriteFile(a, []byte("same bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("same bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	ha, err := HashFile(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := HashFile(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Error("identical content hashed differently")
	}

	if err := os.WriteFile(b, []byte("other bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	hb, _ = HashFile(b)
	if ha == hb {
		t.Error("different content hashed identically")
	}
}
