package internal

import (
	"fmt"
	"os"
	"strings"

	pkgerrs "github.com/rantly-unofficial/go-rantly/pkg/errors"
)

// TokenKey is the key of the access-token line inside the token file.
const TokenKey = "RANTLY_TOKEN"

// CredStore reads and writes the two persisted credential files belonging
// to one logical account: a KEY=value token file (shared with unrelated
// configuration lines) and a single-line cookie-header file.
//
// Both writers perform whole-file rewrites and are not atomic across
// process crashes. Credential files are single-writer-at-a-time by
// contract, so this is acceptable.
type CredStore struct {
	TokenPath  string
	CookiePath string
}

// ReadToken returns the token value from the token file. A missing file or
// a file without the token line reports ("", false), never an error.
func (s *CredStore) ReadToken() (string, bool) {
	data, err := os.ReadFile(s.TokenPath)
	if err != nil {
		return "", false
	}

	for _, line := range strings.Split(string(data), "\n") {
		if value, ok := strings.CutPrefix(line, TokenKey+"="); ok {
			value = strings.TrimRight(value, "\r")
			if value == "" {
				return "", false
			}
			return value, true
		}
	}
	return "", false
}

// WriteToken replaces the token line in place if present, appends it
// otherwise, and leaves every unrelated line untouched. Writing the same
// token twice is idempotent. If the token file does not exist the write
// fails: there is nothing to update, and silently creating a credentials
// file the user never provisioned would hide a misconfiguration.
func (s *CredStore) WriteToken(token string) error {
	data, err := os.ReadFile(s.TokenPath)
	if err != nil {
		return &pkgerrs.CredentialError{Path: s.TokenPath, Message: "token file missing, nothing to update", Err: err}
	}

	lines := strings.Split(string(data), "\n")
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(line, TokenKey+"=") {
			lines[i] = TokenKey + "=" + token
			replaced = true
			break
		}
	}

	out := strings.Join(lines, "\n")
	if !replaced {
		if out != "" && !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += fmt.Sprintf("%s=%s\n", TokenKey, token)
	}

	if err := os.WriteFile(s.TokenPath, []byte(out), 0o600); err != nil {
		return &pkgerrs.CredentialError{Path: s.TokenPath, Err: err}
	}
	return nil
}

// ReadCookieHeader returns the first line of the cookie file. A missing or
// empty file reports ("", false).
func (s *CredStore) ReadCookieHeader() (string, bool) {
	data, err := os.ReadFile(s.CookiePath)
	if err != nil {
		return "", false
	}

	header, _, _ := strings.Cut(string(data), "\n")
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	return header, true
}

// WriteCookieHeader overwrites the entire cookie file with the given
// single-line header, creating the file if absent.
func (s *CredStore) WriteCookieHeader(header string) error {
	if err := os.WriteFile(s.CookiePath, []byte(header+"\n"), 0o600); err != nil {
		return &pkgerrs.CredentialError{Path: s.CookiePath, Err: err}
	}
	return nil
}
