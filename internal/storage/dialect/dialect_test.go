package dialect

import (
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		dialectType DialectType
		wantName    string
		wantErr     bool
	}{
		{"sqlite", SQLite, "sqlite", false},
		{"postgres", Postgres, "postgres", false},
		{"mysql", DialectType("mysql"), "", true},
		{"unknown", DialectType("unknown"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.dialectType)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err == nil && d.Name() != tt.wantName {
				t.Errorf("Name() = %v, want %v", d.Name(), tt.wantName)
			}
		})
	}
}

func TestFromDriverName(t *testing.T) {
	tests := []struct {
		driverName string
		wantName   string
		wantDriver string
		wantErr    bool
	}{
		{"sqlite", "sqlite", "sqlite", false},
		{"sqlite3", "sqlite", "sqlite", false},
		{"postgres", "postgres", "pgx", false},
		{"PostgreSQL", "postgres", "pgx", false},
		{"pgx", "postgres", "pgx", false},
		{"unknown", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driverName, func(t *testing.T) {
			d, err := FromDriverName(tt.driverName)
			if (err != nil) != tt.wantErr {
				t.Errorf("FromDriverName() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil {
				return
			}
			if d.Name() != tt.wantName {
				t.Errorf("Name() = %v, want %v", d.Name(), tt.wantName)
			}
			if d.DriverName() != tt.wantDriver {
				t.Errorf("DriverName() = %v, want %v", d.DriverName(), tt.wantDriver)
			}
		})
	}
}

func TestSQLiteDialect_Rebind(t *testing.T) {
	d := &sqliteDialect{}
	query := "SELECT document FROM pipelines WHERE name = ? AND rev = ?"
	got := d.Rebind(query)
	if got != query {
		t.Errorf("Rebind() = %v, want %v", got, query)
	}
}

func TestPostgresDialect_Rebind(t *testing.T) {
	d := &postgresDialect{}
	tests := []struct {
		query string
		want  string
	}{
		{"SELECT * FROM pipelines WHERE name = ?", "SELECT * FROM pipelines WHERE name = $1"},
		{"SELECT * FROM pipeline_rules WHERE name = ? AND rev = ?", "SELECT * FROM pipeline_rules WHERE name = $1 AND rev = $2"},
		{"INSERT INTO pipeline_rules VALUES (?, ?, ?)", "INSERT INTO pipeline_rules VALUES ($1, $2, $3)"},
		{"SELECT * FROM pipelines", "SELECT * FROM pipelines"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := d.Rebind(tt.query)
			if got != tt.want {
				t.Errorf("Rebind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSQLiteDialect_UpsertClause(t *testing.T) {
	d := &sqliteDialect{}

	got := d.UpsertClause("name, rev", nil)
	want := "ON CONFLICT(name, rev) DO NOTHING"
	if got != want {
		t.Errorf("UpsertClause() = %v, want %v", got, want)
	}

	got = d.UpsertClause("name, rev", []string{"uuid", "document"})
	want = "ON CONFLICT(name, rev) DO UPDATE SET uuid=excluded.uuid, document=excluded.document"
	if got != want {
		t.Errorf("UpsertClause() = %v, want %v", got, want)
	}
}

func TestPostgresDialect_UpsertClause(t *testing.T) {
	d := &postgresDialect{}

	got := d.UpsertClause("name, rev", nil)
	want := "ON CONFLICT (name, rev) DO NOTHING"
	if got != want {
		t.Errorf("UpsertClause() = %v, want %v", got, want)
	}

	got = d.UpsertClause("name, rev", []string{"uuid", "document"})
	want = "ON CONFLICT (name, rev) DO UPDATE SET uuid = EXCLUDED.uuid, document = EXCLUDED.document"
	if got != want {
		t.Errorf("UpsertClause() = %v, want %v", got, want)
	}
}

func TestDialect_Types(t *testing.T) {
	tests := []struct {
		name          string
		dialect       Dialect
		timestampType string
		textType      string
	}{
		{"sqlite", &sqliteDialect{}, "TIMESTAMP", "TEXT"},
		{"postgres", &postgresDialect{}, "TIMESTAMP WITH TIME ZONE", "TEXT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.TimestampType(); got != tt.timestampType {
				t.Errorf("TimestampType() = %v, want %v", got, tt.timestampType)
			}
			if got := tt.dialect.TextType(); got != tt.textType {
				t.Errorf("TextType() = %v, want %v", got, tt.textType)
			}
		})
	}
}

func TestDialect_PragmaStatements(t *testing.T) {
	if got := (&sqliteDialect{}).PragmaStatements(); len(got) == 0 {
		t.Error("expected SQLite pragma statements")
	}
	if got := (&postgresDialect{}).PragmaStatements(); got != nil {
		t.Errorf("PostgreSQL PragmaStatements() = %v, want nil", got)
	}
}
