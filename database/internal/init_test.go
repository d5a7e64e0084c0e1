package internal

import "testing"

func TestRebind(t *testing.T) {
	tests := []struct {
		name     string
		driver   string
		query    string
		expected string
	}{
		{"sqlite unchanged", DriverSQLite, "SELECT ? , ?", "SELECT ? , ?"},
		{"postgres numbered", DriverPostgres, "VALUES (?, ?, ?)", "VALUES ($1, $2, $3)"},
		{"postgres without placeholders", DriverPostgres, "SELECT 1", "SELECT 1"},
		{"postgres double digits", DriverPostgres, "?,?,?,?,?,?,?,?,?,?,?,?", "$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rebind(tt.driver, tt.query); got != tt.expected {
				t.Errorf("Rebind() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestInitDBUnknownDriver(t *testing.T) {
	if _, err := InitDB("mysql", "whatever"); err == nil {
		t.Fatal("Expected error for unknown driver")
	}
}
