package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "Client", "client"},
		{"full width", "ｃｌｉｅｎｔ", "client"},
		{"full width upper", "ＣＬＩＥＮＴ", "client"},
		{"whitespace collapsed", "  Venture   Capital ", "venture capital"},
		{"ideographic space", "Venture　Capital", "venture capital"},
		{"half width katakana", "ｸﾗｲｱﾝﾄ", "クライアント"},
		{"japanese unchanged", "取引先", "取引先"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTag(tt.input))
		})
	}
}

func TestCleanTag(t *testing.T) {
	assert.Equal(t, "Venture Capital", CleanTag("  Venture \t Capital "))
	assert.Equal(t, "ｃｌｉｅｎｔ", CleanTag("ｃｌｉｅｎｔ"))
	assert.Equal(t, "", CleanTag("   "))
}

func TestMergeTags(t *testing.T) {
	merged, added := mergeTags([]string{"Client"}, "client", "ｃｌｉｅｎｔ", " CLIENT ", "Partner", "")

	assert.True(t, added)
	assert.Equal(t, []string{"Client", "Partner"}, merged)

	merged, added = mergeTags(merged, "partner")
	assert.False(t, added)
	assert.Equal(t, []string{"Client", "Partner"}, merged)
}

func TestDedupeTags(t *testing.T) {
	assert.Equal(t, []string{"VIP", "Board"}, dedupeTags([]string{"VIP", "vip", " Board", "ＶＩＰ"}))
	assert.Nil(t, dedupeTags(nil))
	assert.Nil(t, dedupeTags([]string{" ", ""}))
}
