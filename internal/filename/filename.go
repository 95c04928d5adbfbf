// Package filename maps account names to PNG file names that are safe on
// every common filesystem.
package filename

import (
	"fmt"
	"strings"
)

const reserved = `\/*?:"<>|`

var replacer = func() *strings.Replacer {
	pairs := make([]string, 0, 2*len(reserved))
	for _, r := range reserved {
		pairs = append(pairs, string(r), "_")
	}
	return strings.NewReplacer(pairs...)
}()

// Sanitize replaces each of \ / * ? : " < > | in s with an underscore.
// Everything else, including spaces and non-ASCII text, is kept.
func Sanitize(s string) string {
	return replacer.Replace(s)
}

// ForAccount returns the output file name for an account.
func ForAccount(name, username string) string {
	return Sanitize(name) + "_" + Sanitize(username) + ".png"
}

// Policy decides what happens when two accounts map to the same file name.
type Policy string

const (
	// Overwrite keeps the name, so the later account's image replaces the
	// earlier one.
	Overwrite Policy = "overwrite"

	// Suffix numbers repeated names: name.png, name_2.png, name_3.png.
	Suffix Policy = "suffix"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Overwrite, Suffix:
		return p, nil
	case "":
		return Overwrite, nil
	default:
		return "", fmt.Errorf("unknown collision policy %q (want %q or %q)", s, Overwrite, Suffix)
	}
}

// Namer hands out file names for one export run.
type Namer struct {
	policy Policy
	used   map[string]bool
}

// NewNamer creates a Namer applying policy.
func NewNamer(policy Policy) *Namer {
	return &Namer{
		policy: policy,
		used:   make(map[string]bool),
	}
}

// Next returns the file name for an account.
func (n *Namer) Next(name, username string) string {
	base := ForAccount(name, username)
	if n.policy != Suffix {
		return base
	}

	candidate := base
	if n.used[candidate] {
		stem := strings.TrimSuffix(base, ".png")
		for i := 2; ; i++ {
			candidate = fmt.Sprintf("%s_%d.png", stem, i)
			if !n.used[candidate] {
				break
			}
		}
	}

	n.used[candidate] = true
	return candidate
}
