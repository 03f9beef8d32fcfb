package decode

import (
	"regexp"
	"strings"
)

var placeholders = strings.NewReplacer(
	"{period}", ".",
	"{comma}", ",",
	"{colon}", ":",
	"{new paragraph}", "\n\n",
	"{newparagraph}", "\n\n",
)

var (
	spaceBeforePunct = regexp.MustCompile(` +([.,:])`)
	paragraphSpaces  = regexp.MustCompile(` *\n\n *`)
	repeatedSpaces   = regexp.MustCompile(` {2,}`)
)

// Restore turns raw decoder label text into readable text. Literal spaces
// between pieces are dropped, word-boundary markers become spaces, the end
// of sentence token is removed and punctuation placeholders become literal
// punctuation.
func Restore(text string) string {
	text = strings.ReplaceAll(text, " ", "")
	text = strings.ReplaceAll(text, "#", " ")
	text = strings.ReplaceAll(text, wordBoundary, " ")
	text = strings.ReplaceAll(text, "</s>", "")
	text = strings.TrimSpace(text)
	text = placeholders.Replace(text)

	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = paragraphSpaces.ReplaceAllString(text, "\n\n")
	text = repeatedSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
