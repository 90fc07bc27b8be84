package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardSettings_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want BoardSettings
	}{
		{name: "bytes", src: []byte(`{"post_delay": 30, "max_posts": 1000}`), want: BoardSettings{PostDelay: 30, MaxPosts: 1000}},
		{name: "string", src: `{"name": "Anon"}`, want: BoardSettings{PostDelay: DefaultPostDelay, Name: "Anon"}},
		{name: "null", src: nil, want: DefaultBoardSettings()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s BoardSettings
			require.NoError(t, s.Scan(tt.src))
			assert.Equal(t, tt.want, s)
		})
	}

	var s BoardSettings
	assert.Error(t, s.Scan(42))
}

func TestBoardSettings_Value(t *testing.T) {
	v, err := BoardSettings{PostDelay: 15}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"post_delay": 15}`, v.(string))
}

func TestBoard_PostDelay(t *testing.T) {
	assert.Equal(t, DefaultPostDelay, (&Board{}).PostDelay())
	assert.Equal(t, 60, (&Board{Settings: BoardSettings{PostDelay: 60}}).PostDelay())
}
