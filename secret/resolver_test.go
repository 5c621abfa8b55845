package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type mapProvider map[string]string

func (mapProvider) Name() string { return "map" }

func (p mapProvider) Resolve(_ context.Context, ref string) (string, error) {
	return p[ref], nil
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		value        string
		wantProvider string
		wantRef      string
		wantOK       bool
	}{
		{"secretref:file:/run/secrets/db", "file", "/run/secrets/db", true},
		{"secretref:env:PG_DSN", "env", "PG_DSN", true},
		{"secretref:env:", "", "", false},
		{"secretref::x", "", "", false},
		{"postgres://u:p@h/db", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			provider, ref, ok := ParseRef(tt.value)
			if provider != tt.wantProvider || ref != tt.wantRef || ok != tt.wantOK {
				t.Errorf("ParseRef() = %q, %q, %v", provider, ref, ok)
			}
		})
	}
}

func TestResolver_ResolveValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "database_url")
	if err := os.WriteFile(path, []byte("postgres://app:s3cr$t@db/casting\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CASTGATE_TEST_DSN", "postgres://env/casting")
	t.Setenv("CASTGATE_TEST_HOST", "db.internal")

	r := NewResolver(FileProvider{}, EnvProvider{}, mapProvider{"pw": "hunter2", "blank": ""})

	tests := []struct {
		name    string
		value   string
		want    string
		wantErr error
	}{
		{"plain value untouched", "postgres://u:pa$$word@h/db", "postgres://u:pa$$word@h/db", nil},
		{"file ref", "secretref:file:" + path, "postgres://app:s3cr$t@db/casting", nil},
		{"env ref", "secretref:env:CASTGATE_TEST_DSN", "postgres://env/casting", nil},
		{"inline ref", "host=db user=app password=secretref:map:pw dbname=casting", "host=db user=app password=hunter2 dbname=casting", nil},
		{"placeholder", "postgres://${CASTGATE_TEST_HOST}/casting", "postgres://db.internal/casting", nil},
		{"missing placeholder", "postgres://${CASTGATE_TEST_UNSET}/casting", "", ErrMissingEnv},
		{"missing env ref", "secretref:env:CASTGATE_TEST_UNSET", "", ErrMissingEnv},
		{"unknown provider", "secretref:vault:db", "", ErrUnknownProvider},
		{"empty secret", "secretref:map:blank", "", ErrEmptySecret},
		{"empty value", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveValue(context.Background(), tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveValue() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileProvider_Dir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "db"), []byte("value"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := FileProvider{Dir: dir}.Resolve(context.Background(), "db")
	if err != nil || got != "value" {
		t.Errorf("Resolve() = %q, %v", got, err)
	}
	if _, err := (FileProvider{Dir: dir}).Resolve(context.Background(), "missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Resolve() missing error = %v, want os.ErrNotExist", err)
	}
}
