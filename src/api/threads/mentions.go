package threads

import "regexp"

// Mentions look like [@Name](/<community>/account/<address>).
var mentionRegex = regexp.MustCompile(`\[@[^\]]+\]\(/([^/)]+)/account/([^)\s]+)\)`)

// Mention identifies a tagged user by community and address.
type Mention struct {
	Community string
	Address   string
}

// ParseMentions extracts all user mentions from a decoded body.
func ParseMentions(text string) []Mention {
	matches := mentionRegex.FindAllStringSubmatch(text, -1)
	mentions := make([]Mention, 0, len(matches))
	for _, m := range matches {
		mentions = append(mentions, Mention{Community: m[1], Address: m[2]})
	}
	return mentions
}

// NewMentions returns the mentions present in current but not previous.
func NewMentions(previous, current []Mention) []Mention {
	var added []Mention
	for _, c := range current {
		exists := false
		for _, p := range previous {
			if c.Community == p.Community && c.Address == p.Address {
				exists = true
				break
			}
		}
		if !exists {
			added = append(added, c)
		}
	}
	return added
}
