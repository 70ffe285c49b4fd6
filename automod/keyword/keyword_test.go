package keyword

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsAny(t *testing.T) {
	assert := assert.New(t)

	terms := []string{"badword1", "badword2", "anotherbadword"}

	fixtures := []struct {
		text string
		out  string
	}{
		{text: "", out: ""},
		{text: "hello there", out: ""},
		{text: "this has badword1 in it", out: "badword1"},
		{text: "BADWORD2!!", out: "badword2"},
		// plain substring, no word boundaries
		{text: "xxanotherbadwordxx", out: "anotherbadword"},
		{text: "bad word1", out: ""},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, ContainsAny(fix.text, terms), fix.text)
	}

	assert.Equal("", ContainsAny("anything", nil))
	assert.Equal("", ContainsAny("anything", []string{""}))
}

func TestContainsAnyCaseInsensitive(t *testing.T) {
	assert := assert.New(t)

	terms := []string{"badword1"}
	variants := []string{"badword1", "BADWORD1", "BadWord1", "bAdWoRd1"}
	for _, v := range variants {
		assert.Equal("badword1", ContainsAny("prefix "+v+" suffix", terms), v)
	}
	// terms are normalized too
	assert.Equal("BadWord1", ContainsAny("badword1", []string{"BadWord1"}))
}

func TestNormalize(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("hello", Normalize("HeLLo"))
	// composed and decomposed forms compare equal after normalization
	assert.Equal(Normalize("café"), Normalize("café"))
	assert.Equal("ÉCOLE", strings.ToUpper(Normalize("École")))
}

func TestScamLinkConjunction(t *testing.T) {
	assert := assert.New(t)

	kw := []string{"discord-nitro", "free-nitro", "gift", "giveaway", "steam-community", "discord-gift"}

	// link only
	assert.Equal("", ScamLink("look at https://example.com", kw))
	// keyword only
	assert.Equal("", ScamLink("happy birthday, here is a gift", kw))
	// both
	assert.Equal("gift", ScamLink("check this discord-gift https://x", kw))
	assert.Equal("free-nitro", ScamLink("HTTP://FREE-NITRO.example", kw))
	// scheme marker is required, bare domains don't count
	assert.Equal("", ScamLink("www.discord-gift.com", kw))

	assert.True(HasLink("see https://a.b"))
	assert.True(HasLink("see HTTP://a.b"))
	assert.False(HasLink("ftp://a.b"))
}
