package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeEnvFile(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEnvFile(t *testing.T) {
	path := writeEnvFile(t, "# comment\n\nDB_URL=postgres://host/db\nAPI_KEY=abc=def\n")
	desired, err := loadEnvFile(path)
	if err != nil {
		t.Fatalf("loadEnvFile: %v", err)
	}
	defer desired.Destroy()

	names := desired.Names()
	if len(names) != 2 || names[0] != "API_KEY" || names[1] != "DB_URL" {
		t.Errorf("Names = %v, want [API_KEY DB_URL]", names)
	}
}

func TestLoadEnvFileRejectsEmptyValue(t *testing.T) {
	path := writeEnvFile(t, "GOOD=1\nEMPTY=\n")
	_, err := loadEnvFile(path)
	if err == nil {
		t.Fatal("empty value must fail")
	}
	if !strings.Contains(err.Error(), "EMPTY") || !strings.Contains(err.Error(), ":2") {
		t.Errorf("err = %v, want the key and line number", err)
	}
}

func TestLoadEnvFileRejectsMalformedLine(t *testing.T) {
	path := writeEnvFile(t, "JUSTAKEY\n")
	if _, err := loadEnvFile(path); err == nil {
		t.Fatal("line without = must fail")
	}
}
