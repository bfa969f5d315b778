package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(text string, size int) []string {
	var out []string
	for c := range Chunks(text, size) {
		out = append(out, c)
	}
	return out
}

func TestChunksSizesAndConcat(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{
			name: "exact multiple",
			text: "aabbcc",
			size: 2,
			want: []string{"aa", "bb", "cc"},
		},
		{
			name: "trailing short chunk",
			text: "abcde",
			size: 2,
			want: []string{"ab", "cd", "e"},
		},
		{
			name: "size larger than text",
			text: "abc",
			size: 10,
			want: []string{"abc"},
		},
		{
			name: "empty input",
			text: "",
			size: 5,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(tt.text, tt.size)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.text, strings.Join(got, ""))
		})
	}
}

func TestChunksMultibyteRunes(t *testing.T) {
	text := "日本語テキストの分割規則"
	got := collect(text, 5)
	require.Len(t, got, 3)
	require.Equal(t, 5, len([]rune(got[0])))
	require.Equal(t, 5, len([]rune(got[1])))
	require.Equal(t, 2, len([]rune(got[2])))
	require.Equal(t, text, strings.Join(got, ""))
}

func TestChunksRestartable(t *testing.T) {
	seq := Chunks("abcdef", 4)
	var first, second []string
	for c := range seq {
		first = append(first, c)
	}
	for c := range seq {
		second = append(second, c)
	}
	require.Equal(t, first, second)
}

func TestChunksEarlyBreak(t *testing.T) {
	var got []string
	for c := range Chunks("aabbcc", 2) {
		got = append(got, c)
		if len(got) == 2 {
			break
		}
	}
	require.Equal(t, []string{"aa", "bb"}, got)
}

func TestChunkCount(t *testing.T) {
	require.Equal(t, 3, ChunkCount(strings.Repeat("x", 2500), 1000))
	require.Equal(t, 0, ChunkCount("", 1000))
	require.Equal(t, 0, ChunkCount("abc", 0))
}
