package textx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello\nworld\t!", SanitizeText("he\x00llo\nwo\x7frld\t!"))
	assert.Equal(t, "ok", SanitizeText("  o\xffk  "))
}

func TestNormalizeLines(t *testing.T) {
	in := "  Jane   Doe \r\n\r\n\tGo,\x00 Kafka  \rPhD\n\n"
	assert.Equal(t, "Jane Doe\nGo, Kafka\nPhD", NormalizeLines(in))
	assert.Equal(t, "", NormalizeLines(" \n \t "))
}
