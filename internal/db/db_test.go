package db

import "testing"

func TestDSN(t *testing.T) {
	got := dsn("ledger.sqlite3")
	want := "ledger.sqlite3?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	if got != want {
		t.Errorf("dsn() = %q, want %q", got, want)
	}

	got = dsn("file:x.db?cache=shared")
	if got[:len("file:x.db?cache=shared&_pragma=")] != "file:x.db?cache=shared&_pragma=" {
		t.Errorf("dsn() with query = %q", got)
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	db := NewTestDB(t)

	var on int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&on); err != nil {
		t.Fatalf("reading pragma: %v", err)
	}
	if on != 1 {
		t.Errorf("foreign_keys = %d, want 1", on)
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	db := NewTestDB(t)

	if err := EnsureSchema(db); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}

	for _, table := range []string{"asset_assignments", "asset_group_headers", "asset_group_members", "id_sequences"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}
