package engine

import "slices"

// BuildTurnQueue orders every fighter by speed, fastest first. Fighters with
// equal speed keep insertion order: team A members, then team B members.
func BuildTurnQueue(a, b Team) []TurnQueueEntry {
	queue := make([]TurnQueueEntry, 0, len(a.Members)+len(b.Members))
	for _, m := range a.Members {
		queue = append(queue, TurnQueueEntry{FighterID: m.ID, Team: TeamA, Speed: m.Speed})
	}
	for _, m := range b.Members {
		queue = append(queue, TurnQueueEntry{FighterID: m.ID, Team: TeamB, Speed: m.Speed})
	}
	slices.SortStableFunc(queue, func(x, y TurnQueueEntry) int {
		return y.Speed - x.Speed
	})
	return queue
}

// nextLiving finds the next queue index after from whose fighter is alive.
// wrapped is true when the search passed the end of the queue.
func nextLiving(queue []TurnQueueEntry, from int, alive func(id string) bool) (idx int, wrapped bool) {
	n := len(queue)
	for step := 1; step <= n; step++ {
		i := from + step
		if alive(queue[i%n].FighterID) {
			return i % n, i >= n
		}
	}
	return from, false
}
