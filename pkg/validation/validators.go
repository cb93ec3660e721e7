// Package validation provides format checks for Rantly identifiers and
// pagination inputs.
package validation

import "regexp"

// MaxPageLimit is the largest page size the API accepts.
const MaxPageLimit = 100

// Regular expressions for validating Rantly data formats
var (
	// accountKeyRegex matches mirror-file account identifiers
	// (1-64 chars, alphanumeric + underscore + hyphen + dot)
	accountKeyRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

	// usernameRegex matches valid Rantly usernames (3-24 chars,
	// alphanumeric + underscore)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,24}$`)

	// hashtagRegex matches a hashtag without the leading "#"
	hashtagRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)
)

// IsValidAccountKey checks if a string is a usable mirror account key.
// Keys become part of on-disk credential file names, so path separators and
// empty strings are rejected.
func IsValidAccountKey(s string) bool {
	return accountKeyRegex.MatchString(s) && s != "." && s != ".."
}

// IsValidUsername checks if a string is a valid Rantly username.
func IsValidUsername(s string) bool {
	return usernameRegex.MatchString(s)
}

// IsValidHashtag checks if a string is a valid hashtag (leading "#" not
// included).
func IsValidHashtag(s string) bool {
	return hashtagRegex.MatchString(s)
}

// ClampLimit normalizes a page limit into the range the API accepts.
// Zero and negative values mean "server default" and pass through as zero.
func ClampLimit(limit int) int {
	if limit < 0 {
		return 0
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}
