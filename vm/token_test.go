package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenEq(t *testing.T) {
	a := Token{Kind: TIdent, Runes: []rune("foo")}
	b := Token{Kind: TIdent, Runes: []rune("foo")}
	c := Token{Kind: TIdent, Runes: []rune("bar")}
	d := Token{Kind: TStr, Runes: []rune("foo")}

	assert.True(t, a.Eq(b))
	assert.False(t, a.Eq(c))
	assert.False(t, a.Eq(d))
}

func TestTokenKindString(t *testing.T) {
	assert.Equal(t, "TIdent", TIdent.String())
	assert.Equal(t, "TEOF", TEOF.String())
}
