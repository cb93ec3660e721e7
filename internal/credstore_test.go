package internal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgerrs "github.com/rantly-unofficial/go-rantly/pkg/errors"
)

func storeAt(t *testing.T) *CredStore {
	t.Helper()
	dir := t.TempDir()
	return &CredStore{
		TokenPath:  filepath.Join(dir, ".env"),
		CookiePath: filepath.Join(dir, "cookies.txt"),
	}
}

func TestCredStore_ReadTokenMissingFile(t *testing.T) {
	store := storeAt(t)

	if token, ok := store.ReadToken(); ok || token != "" {
		t.Fatalf("expected no token from missing file, got %q (ok=%v)", token, ok)
	}
}

func TestCredStore_ReadTokenMissingKey(t *testing.T) {
	store := storeAt(t)
	if err := os.WriteFile(store.TokenPath, []byte("OTHER=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if token, ok := store.ReadToken(); ok || token != "" {
		t.Fatalf("expected no token when key absent, got %q (ok=%v)", token, ok)
	}
}

func TestCredStore_WriteTokenMissingFileFails(t *testing.T) {
	store := storeAt(t)

	err := store.WriteToken("abc")
	if err == nil {
		t.Fatal("expected error when token file is missing")
	}

	var credErr *pkgerrs.CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected CredentialError, got %T", err)
	}

	if _, statErr := os.Stat(store.TokenPath); !os.IsNotExist(statErr) {
		t.Fatal("write must not create the token file")
	}
}

func TestCredStore_WriteTokenReplacesInPlace(t *testing.T) {
	store := storeAt(t)
	initial := "FIRST=1\n" + TokenKey + "=old\nLAST=2\n"
	if err := os.WriteFile(store.TokenPath, []byte(initial), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := store.WriteToken("new-token"); err != nil {
		t.Fatalf("WriteToken returned error: %v", err)
	}

	data, err := os.ReadFile(store.TokenPath)
	if err != nil {
		t.Fatal(err)
	}
	want := "FIRST=1\n" + TokenKey + "=new-token\nLAST=2\n"
	if string(data) != want {
		t.Errorf("unexpected file content:\ngot  %q\nwant %q", data, want)
	}
}

func TestCredStore_WriteTokenAppendsWhenKeyAbsent(t *testing.T) {
	store := storeAt(t)
	if err := os.WriteFile(store.TokenPath, []byte("OTHER=1"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := store.WriteToken("tok"); err != nil {
		t.Fatalf("WriteToken returned error: %v", err)
	}

	data, err := os.ReadFile(store.TokenPath)
	if err != nil {
		t.Fatal(err)
	}
	want := "OTHER=1\n" + TokenKey + "=tok\n"
	if string(data) != want {
		t.Errorf("unexpected file content:\ngot  %q\nwant %q", data, want)
	}
}

func TestCredStore_WriteTokenIdempotent(t *testing.T) {
	// Writing T1 then T2 must leave exactly one token line valued T2, with
	// unrelated lines untouched, from any initial state.
	initialStates := map[string]string{
		"empty file":      "",
		"key absent":      "A=1\nB=2\n",
		"key present":     TokenKey + "=stale\n",
		"mixed":           "A=1\n" + TokenKey + "=stale\nB=2\n",
		"no trailing EOL": "A=1",
	}

	for name, initial := range initialStates {
		t.Run(name, func(t *testing.T) {
			store := storeAt(t)
			if err := os.WriteFile(store.TokenPath, []byte(initial), 0o600); err != nil {
				t.Fatal(err)
			}

			if err := store.WriteToken("T1"); err != nil {
				t.Fatalf("first write: %v", err)
			}
			if err := store.WriteToken("T2"); err != nil {
				t.Fatalf("second write: %v", err)
			}

			data, err := os.ReadFile(store.TokenPath)
			if err != nil {
				t.Fatal(err)
			}

			count := strings.Count(string(data), TokenKey+"=")
			if count != 1 {
				t.Fatalf("expected exactly one token line, found %d in %q", count, data)
			}
			if !strings.Contains(string(data), TokenKey+"=T2") {
				t.Errorf("expected token value T2, file: %q", data)
			}

			for _, line := range strings.Split(strings.TrimRight(initial, "\n"), "\n") {
				if line == "" || strings.HasPrefix(line, TokenKey+"=") {
					continue
				}
				if !strings.Contains(string(data), line) {
					t.Errorf("unrelated line %q lost, file: %q", line, data)
				}
			}

			token, ok := store.ReadToken()
			if !ok || token != "T2" {
				t.Errorf("ReadToken = %q (ok=%v), want T2", token, ok)
			}
		})
	}
}

func TestCredStore_WriteCookieHeaderCreatesFile(t *testing.T) {
	store := storeAt(t)

	if err := store.WriteCookieHeader("a=1; b=2"); err != nil {
		t.Fatalf("WriteCookieHeader returned error: %v", err)
	}

	header, ok := store.ReadCookieHeader()
	if !ok || header != "a=1; b=2" {
		t.Errorf("ReadCookieHeader = %q (ok=%v)", header, ok)
	}
}

func TestCredStore_WriteCookieHeaderOverwrites(t *testing.T) {
	store := storeAt(t)
	if err := os.WriteFile(store.CookiePath, []byte("old=content\nsecond line\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := store.WriteCookieHeader("fresh=1"); err != nil {
		t.Fatalf("WriteCookieHeader returned error: %v", err)
	}

	data, err := os.ReadFile(store.CookiePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fresh=1\n" {
		t.Errorf("expected full replacement, got %q", data)
	}
}

func TestCredStore_ReadCookieHeaderMissing(t *testing.T) {
	store := storeAt(t)

	if header, ok := store.ReadCookieHeader(); ok || header != "" {
		t.Errorf("expected no header from missing file, got %q (ok=%v)", header, ok)
	}
}
