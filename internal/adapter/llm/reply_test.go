package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportkb/internal/domain"
)

type reply struct {
	Items []string `json:"items"`
}

func TestDecodeJSONReply(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"raw", `{"items":["a","b"]}`, []string{"a", "b"}},
		{"json fence", "```json\n{\"items\":[\"a\"]}\n```", []string{"a"}},
		{"bare fence", "```\n{\"items\":[\"b\"]}\n```", []string{"b"}},
		{"padded fence", "  \n```json\n{\"items\":[\"c\"]}\n```  \n", []string{"c"}},
		{"fence without newline", "```json{\"items\":[\"d\"]}```", []string{"d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got reply
			require.NoError(t, DecodeJSONReply(tt.raw, &got))
			assert.Equal(t, tt.want, got.Items)
		})
	}
}

func TestDecodeJSONReply_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"prose", "Here are the articles you asked for."},
		{"broken fence", "```json\n{\"items\": [\n```"},
		{"prose before fence", "Sure!\n```json\n{\"items\":[]}\n```"},
		{"null", "null"},
		{"fenced null", "```json\nnull\n```"},
		{"array", `[{"items":["a"]}]`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got reply
			err := DecodeJSONReply(tt.raw, &got)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrJudgmentUnavailable)
			reason, _ := domain.ReasonOf(err)
			assert.Equal(t, domain.ReasonMalformed, reason)
		})
	}
}
