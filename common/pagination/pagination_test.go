package pagination

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewOffset_Defaults(t *testing.T) {
	page := NewOffset(50, 500, "", "")
	require.Equal(t, 50, page.Limit)
	require.Equal(t, 0, page.Offset)
}

func TestNewOffset_Parsing(t *testing.T) {
	tests := []struct {
		name       string
		limit      string
		offset     string
		wantLimit  int
		wantOffset int
	}{
		{"explicit", "10", "20", 10, 20},
		{"capped at max", "9999", "0", 500, 0},
		{"zero limit falls back", "0", "0", 50, 0},
		{"negative offset falls back", "10", "-5", 10, 0},
		{"garbage falls back", "abc", "xyz", 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := NewOffset(50, 500, tt.limit, tt.offset)
			require.Equal(t, tt.wantLimit, page.Limit)
			require.Equal(t, tt.wantOffset, page.Offset)
		})
	}
}

func TestSQL_OverFetchesOne(t *testing.T) {
	page := &Offset{Limit: 50, Offset: 100}
	require.Equal(t, " LIMIT 51 OFFSET 100", page.SQL())
}

func TestTrimCount(t *testing.T) {
	page := &Offset{Limit: 2}
	require.Equal(t, 2, page.TrimCount(3))
	require.True(t, page.More)

	page = &Offset{Limit: 2}
	require.Equal(t, 2, page.TrimCount(2))
	require.False(t, page.More)

	page = &Offset{Limit: 2}
	require.Equal(t, 0, page.TrimCount(0))
	require.False(t, page.More)
}
