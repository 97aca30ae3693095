package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/tinware/rapport/internal/store"
)

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.buildReport()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"report": report,
	})
}

// buildReport creates the markdown digest of the roster: the strongest
// bonds first, then recent ledger activity, then bonds still too fuzzy
// to read much into.
func (s *Server) buildReport() (string, error) {
	var b strings.Builder

	b.WriteString("## Rapport — Friendship Digest\n")

	friends, err := s.tracker.List()
	if err != nil {
		return "", err
	}
	if len(friends) == 0 {
		b.WriteString("\nNo friends tracked yet.\n")
		return b.String(), nil
	}

	// Rank by bond strength weighted by ledger activity, cap the list.
	const maxDigestFriends = 10

	type rankedFriend struct {
		friend store.Friend
		ledger int
		score  float64
	}
	ranked := make([]rankedFriend, 0, len(friends))
	totalLedger := 0

	for _, f := range friends {
		n, err := s.db.CountInteractions(f.ID)
		if err != nil {
			continue
		}
		totalLedger += n
		ranked = append(ranked, rankedFriend{f, n, bondScore(f.LowerBound, n)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > maxDigestFriends {
		ranked = ranked[:maxDigestFriends]
	}

	b.WriteString(fmt.Sprintf("\n%d friends tracked, %d interactions on record.\n", len(friends), totalLedger))

	b.WriteString("\n### Strongest Bonds\n")
	for _, rf := range ranked {
		b.WriteString(fmt.Sprintf("- %s: %s\n", rf.friend.Name, rf.friend.State().Display()))
	}

	// Recent ledger activity across the whole roster
	activity, err := s.db.RecentActivity(5)
	if err == nil && len(activity) > 0 {
		b.WriteString("\n### Recent Activity\n")
		for _, act := range activity {
			ts := time.UnixMilli(act.OccurredAt).Format("2006-01-02 15:04")
			line := fmt.Sprintf("- [%s] %s %+.2f", ts, act.FriendName, act.Magnitude)
			if act.Reason != "" {
				line += ": " + act.Reason
			}
			b.WriteString(line + "\n")
		}
	}

	// Bonds whose fuzziness is still wide enough to distrust the rank
	var volatile []store.Friend
	for _, f := range friends {
		if f.State().Volatility() == "volatile" {
			volatile = append(volatile, f)
		}
	}
	if len(volatile) > 0 {
		b.WriteString("\n### Volatile Bonds\n")
		for _, f := range volatile {
			b.WriteString(fmt.Sprintf("- %s: fuzziness %.2f, rank could still move\n", f.Name, f.Fuzziness))
		}
	}

	return b.String(), nil
}

// bondScore ranks a friend for digest placement. The lower bound leads,
// boosted for friends whose ledgers see steady activity so an active
// mid-tier friendship can outrank a dormant strong one.
func bondScore(bound float64, interactions int) float64 {
	boost := 1.0
	if interactions > 0 {
		boost = 1.0 + math.Log2(float64(interactions))
	}
	return bound * boost
}
