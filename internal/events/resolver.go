package events

import (
	"slices"

	"github.com/tchen/chat-notify/internal/types"
)

// Affected computes the user ids that must be notified of a chat change given
// the before and after snapshots. When both are present the result is the
// deduplicated union of both member sets: a user removed from a chat still
// receives one final event carrying the post-change state. The result order
// is unspecified.
func Affected(before, after *types.Chat) []int64 {
	switch {
	case before != nil && after != nil:
		seen := make(map[int64]struct{}, len(before.Members)+len(after.Members))
		var ids []int64
		for _, members := range [][]int64{before.Members, after.Members} {
			for _, id := range members {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
		return ids
	case before != nil:
		return slices.Clone(before.Members)
	case after != nil:
		return slices.Clone(after.Members)
	default:
		return nil
	}
}
