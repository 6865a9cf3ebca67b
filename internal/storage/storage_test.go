package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rewired-gh/vietoracle/internal/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "data"), filepath.Join(dir, "out"), 0644, 0755, 0)
}

var sampleTemplates = []models.TemplateEntry{
	{ID: "T1", Group: []string{"G0", "G0", "G1", "G2", "G3", "G4"}},
	{ID: "T2", Group: []string{"G0", "G1", "G1", "G2", "G3", "G4"}},
}

func TestStore_DrawsRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	got, err := s.LoadDraws(ctx, models.Vietlot45)
	if err != nil {
		t.Fatalf("LoadDraws on missing file failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty history, got %d records", len(got))
	}

	records := []models.RawDraw{
		{Date: "T7, 15/03/2025", Numbers: "01 34 39 40 42 45", Prize: "133.643.776.800"},
		{Date: "T5, 13/03/2025", Numbers: "03 15 22 28 35 44", Prize: "120.000.000.000"},
	}
	if err := s.SaveDraws(models.Vietlot45, records); err != nil {
		t.Fatalf("SaveDraws failed: %v", err)
	}
	got, err = s.LoadDraws(ctx, models.Vietlot45)
	if err != nil {
		t.Fatalf("LoadDraws failed: %v", err)
	}
	if len(got) != 2 || got[0] != records[0] || got[1] != records[1] {
		t.Errorf("LoadDraws() = %v, want %v", got, records)
	}
}

func TestStore_RegistryVersioning(t *testing.T) {
	s := newStore(t)

	snap, err := s.LoadRegistry(models.Vietlot55)
	if err != nil {
		t.Fatalf("LoadRegistry on missing file failed: %v", err)
	}
	if snap.Version != 0 || len(snap.Templates) != 0 {
		t.Fatalf("expected empty registry at version 0, got %+v", snap)
	}

	snap.Templates = sampleTemplates[:1]
	saved, err := s.SaveRegistry(models.Vietlot55, snap)
	if err != nil {
		t.Fatalf("SaveRegistry failed: %v", err)
	}
	if saved.Version != 1 {
		t.Errorf("saved version = %d, want 1", saved.Version)
	}

	// a writer that loaded version 0 must not overwrite version 1
	stale := models.RegistrySnapshot{Version: 0, Templates: sampleTemplates}
	if _, err := s.SaveRegistry(models.Vietlot55, stale); !errors.Is(err, models.ErrRegistryConflict) {
		t.Errorf("stale SaveRegistry error = %v, want ErrRegistryConflict", err)
	}

	loaded, err := s.LoadRegistry(models.Vietlot55)
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}
	if loaded.Version != 1 || len(loaded.Templates) != 1 {
		t.Errorf("registry changed by rejected save: %+v", loaded)
	}

	loaded.Templates = sampleTemplates
	if _, err := s.SaveRegistry(models.Vietlot55, loaded); err != nil {
		t.Fatalf("SaveRegistry at current version failed: %v", err)
	}
}

func TestStore_RegistryRefusesToShrink(t *testing.T) {
	s := newStore(t)
	saved, err := s.SaveRegistry(models.Vietlot45, models.RegistrySnapshot{Templates: sampleTemplates})
	if err != nil {
		t.Fatalf("SaveRegistry failed: %v", err)
	}
	saved.Templates = saved.Templates[:1]
	if _, err := s.SaveRegistry(models.Vietlot45, saved); !errors.Is(err, models.ErrRegistryConflict) {
		t.Errorf("shrinking SaveRegistry error = %v, want ErrRegistryConflict", err)
	}
}

func TestStore_RegistryFileFormat(t *testing.T) {
	s := newStore(t)
	if _, err := s.SaveRegistry(models.Vietlot45, models.RegistrySnapshot{Templates: sampleTemplates}); err != nil {
		t.Fatalf("SaveRegistry failed: %v", err)
	}

	data, err := os.ReadFile(s.RegistryPath(models.Vietlot45))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var doc struct {
		Version   int `json:"version"`
		Templates []struct {
			ID    string   `json:"id"`
			Group []string `json:"group"`
		} `json:"templates"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("registry is not valid json: %v", err)
	}
	if doc.Version != 1 || len(doc.Templates) != 2 || doc.Templates[1].ID != "T2" {
		t.Errorf("unexpected registry document: %+v", doc)
	}
	if _, err := os.Stat(s.RegistryPath(models.Vietlot45) + tmpSuffix); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}

func TestStore_LoadRegistryRejectsCorruptFile(t *testing.T) {
	s := newStore(t)
	path := s.RegistryPath(models.Vietlot45)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"templates":[{"id":"T1","group":["G0"]}]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadRegistry(models.Vietlot45); err == nil {
		t.Error("expected error for a short template group")
	}

	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadRegistry(models.Vietlot45); err == nil {
		t.Error("expected error for malformed json")
	}
}

func TestStore_StaleTempFileRemovedOnLoad(t *testing.T) {
	s := newStore(t)
	if err := s.SaveDraws(models.Vietlot45, nil); err != nil {
		t.Fatalf("SaveDraws failed: %v", err)
	}
	tmp := s.DrawsPath(models.Vietlot45) + tmpSuffix
	if err := os.WriteFile(tmp, []byte("partial"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadDraws(context.Background(), models.Vietlot45); err != nil {
		t.Fatalf("LoadDraws failed: %v", err)
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Error("stale temp file should be removed")
	}
}

func TestStore_LockRegistryIsExclusive(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	lock, err := s.LockRegistry(ctx, models.Vietlot45)
	if err != nil {
		t.Fatalf("LockRegistry failed: %v", err)
	}

	if _, err := s.LockRegistry(ctx, models.Vietlot45); !errors.Is(err, models.ErrRegistryConflict) {
		t.Errorf("second LockRegistry error = %v, want ErrRegistryConflict", err)
	}

	// other games have their own lock
	other, err := s.LockRegistry(ctx, models.Vietlot55)
	if err != nil {
		t.Fatalf("LockRegistry for another game failed: %v", err)
	}
	_ = other.Unlock()

	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	again, err := s.LockRegistry(ctx, models.Vietlot45)
	if err != nil {
		t.Fatalf("LockRegistry after unlock failed: %v", err)
	}
	_ = again.Unlock()
}

func TestStore_LockRegistryTimesOut(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "", 0, 0, 120*time.Millisecond)
	ctx := context.Background()

	lock, err := s.LockRegistry(ctx, models.Vietlot45)
	if err != nil {
		t.Fatalf("LockRegistry failed: %v", err)
	}
	defer lock.Unlock()

	start := time.Now()
	_, err = s.LockRegistry(ctx, models.Vietlot45)
	if !errors.Is(err, models.ErrRegistryConflict) {
		t.Errorf("LockRegistry error = %v, want ErrRegistryConflict", err)
	}
	if time.Since(start) < 100*time.Millisecond {
		t.Error("LockRegistry should wait for the configured timeout")
	}
}

func TestStore_WriteOutput(t *testing.T) {
	s := newStore(t)
	doc := map[string]int{"total_draws": 3}
	if err := s.WriteOutput(models.Vietlot45, "predictions.json", doc); err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}
	if err := s.WriteOutput("", "prediction-report.json", doc); err != nil {
		t.Fatalf("WriteOutput to root failed: %v", err)
	}

	for _, path := range []string{
		s.OutputPath(models.Vietlot45, "predictions.json"),
		s.OutputPath("", "prediction-report.json"),
	} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s) failed: %v", path, err)
		}
		var got map[string]int
		if err := json.Unmarshal(data, &got); err != nil || got["total_draws"] != 3 {
			t.Errorf("unexpected document at %s: %s", path, data)
		}
	}
}

func TestSQLiteStore_ImportAndLoad(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	records := []models.RawDraw{
		{Date: "T5, 13/03/2025", Numbers: "03 15 22 28 35 44", Prize: "1"},
		{Date: "T7, 15/03/2025", Numbers: "01 34 39 40 42 45", Prize: "2"},
	}
	added, err := db.ImportDraws(ctx, models.Vietlot45, records)
	if err != nil {
		t.Fatalf("ImportDraws failed: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}

	// re-importing the same dates is a no-op
	more := append(records, models.RawDraw{Date: "CN, 16/03/2025", Numbers: "02 04 06 08 10 12"})
	added, err = db.ImportDraws(ctx, models.Vietlot45, more)
	if err != nil {
		t.Fatalf("second ImportDraws failed: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}

	got, err := db.LoadDraws(ctx, models.Vietlot45)
	if err != nil {
		t.Fatalf("LoadDraws failed: %v", err)
	}
	if len(got) != 3 || got[0] != records[0] || got[2].Date != "CN, 16/03/2025" {
		t.Errorf("LoadDraws() = %v", got)
	}

	other, err := db.LoadDraws(ctx, models.Vietlot55)
	if err != nil {
		t.Fatalf("LoadDraws for other game failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no vietlot55 draws, got %d", len(other))
	}

	n, err := db.CountDraws(ctx, models.Vietlot45)
	if err != nil || n != 3 {
		t.Errorf("CountDraws() = %d, %v; want 3", n, err)
	}
}

func TestSQLiteStore_FileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draws.db")
	ctx := context.Background()

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if _, err := db.ImportDraws(ctx, models.Vietlot55, []models.RawDraw{{Date: "15/03/2025", Numbers: "01 02 03 04 05 06 07"}}); err != nil {
		t.Fatalf("ImportDraws failed: %v", err)
	}
	_ = db.Close()

	db, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()
	got, err := db.LoadDraws(ctx, models.Vietlot55)
	if err != nil || len(got) != 1 {
		t.Errorf("LoadDraws() = %v, %v; want one record", got, err)
	}
}

var (
	_ DrawSource = (*Store)(nil)
	_ DrawSource = (*SQLiteStore)(nil)
)
