package providers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKeyword(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "keyword", raw: `{"keyword": " ai news "}`, want: "ai news"},
		{name: "query field", raw: `{"query": "gpu prices"}`, want: "gpu prices"},
		{name: "keyword wins", raw: `{"keyword": "a", "query": "b"}`, want: "a"},
		{name: "empty", raw: `{"keyword": ""}`, wantErr: true},
		{name: "not json", raw: `keyword: ai`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseKeyword(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestFirstJSONObject(t *testing.T) {
	reply := "Sure! Here is the keyword:\n{\"keyword\": \"rust 2025\"}\nAnything else? {\"x\": 1}"
	require.Equal(t, `{"keyword": "rust 2025"}`, firstJSONObject.FindString(reply))
	require.Empty(t, firstJSONObject.FindString("no braces here"))
}
