package turnrouter

import (
	"sort"

	"github.com/corridors/server/internal/domain/model"
)

// recordCompletion updates the in-memory win/loss tally from a just-ended
// session's final snapshot and invalidates both caches, following the
// teacher's PeerEnricher cache-aside pattern: the write path updates the
// source of truth and evicts, the read path (PlayerStats/Leaderboard)
// repopulates lazily on next access.
func (r *Router) recordCompletion(snap model.Snapshot) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	for _, slot := range snap.Slots {
		if slot.PlayerID == "" {
			continue
		}
		st, ok := r.stats[slot.PlayerID]
		if !ok {
			st = &model.PlayerStatsSnapshot{PlayerID: slot.PlayerID}
			r.stats[slot.PlayerID] = st
		}
		st.GamesPlayed++
		st.LastGameID = snap.GameID
		if snap.Winner == slot.Index {
			st.Wins++
		} else if snap.Winner != 0 {
			st.Losses++
		}
		r.statsCache.Remove(slot.PlayerID)
	}
	r.lbCache.Remove(leaderboardCacheKey)
}

// PlayerStats returns player's aggregated win/loss record, served from an
// LRU cache keyed by player id (spec.md §4.2 player_stats).
func (r *Router) PlayerStats(player model.PlayerId) (model.PlayerStatsSnapshot, bool) {
	if cached, ok := r.statsCache.Get(player); ok {
		return cached, true
	}

	r.statsMu.Lock()
	st, ok := r.stats[player]
	var snap model.PlayerStatsSnapshot
	if ok {
		snap = *st
	}
	r.statsMu.Unlock()

	if !ok {
		return model.PlayerStatsSnapshot{}, false
	}
	r.statsCache.Add(player, snap)
	return snap, true
}

// Leaderboard returns the top limit players by win count, served from a
// single fixed-key LRU entry invalidated on every completion (spec.md §4.2
// leaderboard).
func (r *Router) Leaderboard(limit int) []model.PlayerStatsSnapshot {
	if cached, ok := r.lbCache.Get(leaderboardCacheKey); ok {
		return truncate(cached, limit)
	}

	r.statsMu.Lock()
	all := make([]model.PlayerStatsSnapshot, 0, len(r.stats))
	for _, st := range r.stats {
		all = append(all, *st)
	}
	r.statsMu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Wins != all[j].Wins {
			return all[i].Wins > all[j].Wins
		}
		return all[i].GamesPlayed > all[j].GamesPlayed
	})
	r.lbCache.Add(leaderboardCacheKey, all)
	return truncate(all, limit)
}

func truncate(all []model.PlayerStatsSnapshot, limit int) []model.PlayerStatsSnapshot {
	if limit <= 0 || limit >= len(all) {
		return all
	}
	return all[:limit]
}
