package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardFor(t *testing.T) {
	tests := []struct {
		guildID string
		shards  int
		want    int
	}{
		{guildID: "41771983423143937", shards: 1, want: 0},
		{guildID: "41771983423143937", shards: 4, want: 2},
		{guildID: "81384788765712384", shards: 3, want: 1},
		{guildID: "290926798626357250", shards: 2, want: 1},
		{guildID: "290926798626357250", shards: 4, want: 3},
		{guildID: "not-a-number", shards: 4, want: 0},
		{guildID: "", shards: 0, want: 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ShardFor(tt.guildID, tt.shards), "%s/%d", tt.guildID, tt.shards)
	}
}

func TestPresenceText(t *testing.T) {
	assert.Equal(t, "!help", presenceText("!", 0))
	assert.Equal(t, "!help | music in 1 server", presenceText("!", 1))
	assert.Equal(t, "?help | music in 12 servers", presenceText("?", 12))
}
