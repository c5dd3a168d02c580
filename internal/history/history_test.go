package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), DirName, FileName))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	runs := []Entry{
		{RunID: "r1", Skill: "no-print", Mode: "baseline", Passed: true, Total: 2, Projects: 1, CreatedAt: base},
		{RunID: "r2", Skill: "no-print", Mode: "strict", Passed: false, Total: 3, Projects: 1, CreatedAt: base.Add(time.Minute)},
		{RunID: "r3", Skill: "hygiene", Mode: "baseline", Passed: true, Total: 0, Projects: 2, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range runs {
		if err := s.Record(e); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.Recent("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].RunID != "r3" || all[2].RunID != "r1" {
		t.Errorf("Recent() = %+v, want newest first", all)
	}

	got, err := s.Recent("no-print", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(no-print) returned %d entries, want 2", len(got))
	}
	if got[0].RunID != "r2" || got[0].Passed || got[0].Total != 3 {
		t.Errorf("Recent(no-print)[0] = %+v", got[0])
	}
	if !got[1].CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got[1].CreatedAt, base)
	}
}

func TestRecentLimit(t *testing.T) {
	s := openStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		e := Entry{
			RunID:     string(rune('a' + i)),
			Skill:     "s",
			Mode:      "baseline",
			Total:     i,
			Projects:  1,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.Record(e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent("", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].RunID != "e" {
		t.Errorf("Recent(limit 2) = %+v", got)
	}
}

func TestDuplicateRunIDRejected(t *testing.T) {
	s := openStore(t)

	e := Entry{RunID: "dup", Skill: "s", Mode: "baseline", CreatedAt: time.Now()}
	if err := s.Record(e); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(e); err == nil {
		t.Error("recording the same run id twice should fail")
	}
}
