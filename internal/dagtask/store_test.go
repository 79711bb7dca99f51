package dagtask

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStore_SaveLoad(t *testing.T) {
	s := NewMemoryStore()
	if s.Exists("run-1") {
		t.Fatal("Exists should be false before any Save")
	}
	snap := Snapshot{Tasks: []Task{{Id: 1, Name: "a", Status: Completed}}}
	if err := s.Save("run-1", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !s.Exists("run-1") {
		t.Fatal("Exists should be true after Save")
	}
	loaded, err := s.Load("run-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Tasks) != 1 || loaded.Tasks[0].Name != "a" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestJSONFileStore_SaveLoadAndPermissions(t *testing.T) {
	dir := t.TempDir()
	s := NewJSONFileStore(dir)

	snap := Snapshot{Tasks: []Task{{Id: 1, Name: "a", Status: Completed}}}
	if err := s.Save("run-1", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "run-1.json"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %04o, want 0600", perm)
	}

	loaded, err := s.Load("run-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Tasks) != 1 || loaded.Tasks[0].Name != "a" {
		t.Errorf("loaded = %+v", loaded)
	}

	if !s.Exists("run-1") {
		t.Error("Exists should be true after Save")
	}
	if s.Exists("run-does-not-exist") {
		t.Error("Exists should be false for an unsaved id")
	}
}

func TestTaskDag_SnapshotRestore(t *testing.T) {
	d := New()
	a := d.AddTask(Task{Name: "a"})
	_ = d.StartTask(a)
	_ = d.CompleteTask(a, "done")

	snap := d.Snapshot()

	d2 := New()
	d2.Restore(snap)

	task, ok := d2.Get(a)
	if !ok {
		t.Fatalf("task %d not found after restore", a)
	}
	if task.Status != Completed || task.Result != "done" {
		t.Errorf("restored task = %+v", task)
	}
}
