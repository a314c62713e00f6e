package bot

import "strconv"

// ShardFor returns the shard that receives events for guildID, following
// Discord's (guild_id >> 22) % num_shards rule.
func ShardFor(guildID string, shards int) int {
	if shards <= 1 {
		return 0
	}
	id, err := strconv.ParseUint(guildID, 10, 64)
	if err != nil {
		return 0
	}
	return int((id >> 22) % uint64(shards))
}
