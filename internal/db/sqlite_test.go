package db

import "testing"

func TestOpenSQLite_CreatesSchema(t *testing.T) {
	db, err := OpenSQLite("file:dbschema1?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"oauth_states", "oauth_tokens"} {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		if err != nil {
			t.Fatalf("query %s: %v", table, err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestOpenSQLite_Idempotent(t *testing.T) {
	first, err := OpenSQLite("file:dbschema2?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer first.Close()
	second, err := OpenSQLite("file:dbschema2?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("second OpenSQLite: %v", err)
	}
	second.Close()
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatal("OpenSQLite with empty path should fail")
	}
}

func TestDialect_Rebind(t *testing.T) {
	testCases := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{Postgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{Postgres, "SELECT 1", "SELECT 1"},
		{SQLite, "SELECT * FROM t WHERE a = ?", "SELECT * FROM t WHERE a = ?"},
	}
	for _, tc := range testCases {
		if got := tc.dialect.Rebind(tc.in); got != tc.want {
			t.Errorf("%s.Rebind(%q) = %q, want %q", tc.dialect, tc.in, got, tc.want)
		}
	}
}
