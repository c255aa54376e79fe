package discord

import (
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var urlRegex = regexp.MustCompile(`https?://[^\s\[\]()<>]+`)

// WrapURLsNoEmbed wraps URLs in angle brackets to prevent Discord embeds.
func WrapURLsNoEmbed(text string) string {
	if text == "" {
		return text
	}

	matches := urlRegex.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var builder strings.Builder
	builder.Grow(len(text) + len(matches)*2)

	last := 0
	for _, match := range matches {
		start, end := match[0], match[1]
		builder.WriteString(text[last:start])

		if start > 0 && text[start-1] == '<' && end < len(text) && text[end] == '>' {
			builder.WriteString(text[start:end])
		} else {
			builder.WriteString("<")
			builder.WriteString(text[start:end])
			builder.WriteString(">")
		}

		last = end
	}

	builder.WriteString(text[last:])
	return builder.String()
}

// SendMessageNoEmbed sends a standard message after stripping Discord URL embeds.
func SendMessageNoEmbed(s *discordgo.Session, channelID, content string) (*discordgo.Message, error) {
	return s.ChannelMessageSend(channelID, WrapURLsNoEmbed(content))
}
