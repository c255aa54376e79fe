package threads

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMentions(t *testing.T) {
	body := "cc [@Alice](/edgeware/account/5F3sa2TJ) and [@Bob](/kusama/account/HNZata7i) please review"

	mentions := ParseMentions(body)
	require.Equal(t, []Mention{
		{Community: "edgeware", Address: "5F3sa2TJ"},
		{Community: "kusama", Address: "HNZata7i"},
	}, mentions)
}

func TestParseMentionsNone(t *testing.T) {
	require.Empty(t, ParseMentions("no tags here, just a [link](https://example.com)"))
	require.Empty(t, ParseMentions(""))
}

func TestNewMentionsDiff(t *testing.T) {
	previous := []Mention{{Community: "edgeware", Address: "alice"}}
	current := []Mention{
		{Community: "edgeware", Address: "alice"},
		{Community: "edgeware", Address: "bob"},
	}

	added := NewMentions(previous, current)
	require.Equal(t, []Mention{{Community: "edgeware", Address: "bob"}}, added)
}

func TestNewMentionsRemovedOnly(t *testing.T) {
	previous := []Mention{{Community: "edgeware", Address: "alice"}}
	added := NewMentions(previous, nil)
	require.Empty(t, added)
}
