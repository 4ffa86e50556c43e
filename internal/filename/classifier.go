package filename

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrMalformedFilename is returned when a name yields no usable tokens
var ErrMalformedFilename = errors.New("malformed filename")

// Category is the output bucket an image is sorted into
type Category string

const (
	CategoryPAN           Category = "PAN"
	CategoryPSH           Category = "PSH"
	CategoryUncategorized Category = "UNCATEGORIZED"
)

// PixelMarker must appear as a token in a shapefile name for it to be a match candidate
const PixelMarker = "PIXEL"

// MatchKeyLength is the exact length of a numeric identifier token
const MatchKeyLength = 12

// Identity is the parsed form of a filename
type Identity struct {
	Name      string   // original base name
	SiteID    string   // first token
	Category  Category // PAN, PSH or UNCATEGORIZED
	Extension string   // original extension including the dot
	Tokens    []string
}

// Classify parses a filename (a base name or full path) into an Identity.
// Hyphens and periods are treated as underscores before splitting.
func Classify(name string) (Identity, error) {
	base := filepath.Base(name)
	if name == "" || base == "." || base == string(filepath.Separator) {
		return Identity{}, fmt.Errorf("%w: empty name", ErrMalformedFilename)
	}

	tokens := Tokenize(base)
	if len(tokens) == 0 {
		return Identity{}, fmt.Errorf("%w: %q has no tokens", ErrMalformedFilename, base)
	}

	id := Identity{
		Name:      base,
		SiteID:    tokens[0],
		Category:  CategoryUncategorized,
		Extension: filepath.Ext(base),
		Tokens:    tokens,
	}

	// PAN is checked first so it wins when both tokens are present
	switch {
	case hasToken(tokens, string(CategoryPAN)):
		id.Category = CategoryPAN
	case hasToken(tokens, string(CategoryPSH)):
		id.Category = CategoryPSH
	}

	return id, nil
}

// Tokenize splits a base name on underscores, hyphens and periods, dropping empty tokens
func Tokenize(base string) []string {
	replacer := strings.NewReplacer("-", "_", ".", "_")
	parts := strings.Split(replacer.Replace(base), "_")

	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// Categorized reports whether the identity resolved to PAN or PSH
func (id Identity) Categorized() bool {
	return id.Category == CategoryPAN || id.Category == CategoryPSH
}

// HasPixelMarker reports whether the name carries the PIXEL boundary token
func (id Identity) HasPixelMarker() bool {
	return hasToken(id.Tokens, PixelMarker)
}

// MatchKeys returns every token that is all digits and exactly MatchKeyLength long
func (id Identity) MatchKeys() []string {
	var keys []string
	for _, t := range id.Tokens {
		if IsMatchKey(t) {
			keys = append(keys, t)
		}
	}
	return keys
}

// IsMatchKey reports whether s is a 12 digit numeric identifier
func IsMatchKey(s string) bool {
	if len(s) != MatchKeyLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RenamedBase returns the destination base name without extension, e.g. 123456789012_PAN.
// Uncategorized identities keep their original base name.
func (id Identity) RenamedBase() string {
	if !id.Categorized() {
		return strings.TrimSuffix(id.Name, id.Extension)
	}
	return fmt.Sprintf("%s_%s", id.SiteID, id.Category)
}

// RenamedName returns the destination file name including the original extension
func (id Identity) RenamedName() string {
	if !id.Categorized() {
		return id.Name
	}
	return id.RenamedBase() + id.Extension
}

func hasToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
