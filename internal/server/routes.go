package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tinware/rapport/internal/score"
	"github.com/tinware/rapport/internal/store"
	"github.com/tinware/rapport/internal/tracker"
)

func (s *Server) handleRecordInteraction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string  `json:"name"`
		Magnitude float64 `json:"magnitude"`
		Reason    string  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, `{"error":"name required"}`, http.StatusBadRequest)
		return
	}

	out, err := s.tracker.Record(req.Name, req.Magnitude, req.Reason)
	if err != nil {
		// A zero or non-finite magnitude is the caller's mistake
		if errors.Is(err, score.ErrInvalidInteraction) {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	resp := friendJSON(out.Friend)
	resp["created"] = out.Created
	resp["applied_delta"] = out.Record.AppliedDelta
	resp["rank_changed"] = out.RankChanged()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.tracker.List()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, len(friends))
	for i := range friends {
		out[i] = friendJSON(&friends[i])
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":   len(out),
		"friends": out,
	})
}

func (s *Server) handleCreateFriend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, `{"error":"name required"}`, http.StatusBadRequest)
		return
	}

	friend, err := s.tracker.Create(req.Name)
	if err != nil {
		if errors.Is(err, tracker.ErrAlreadyTracked) {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusConflict)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(friendJSON(friend))
}

func (s *Server) handleGetFriend(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	friend, err := s.tracker.Get(name)
	if err != nil {
		if errors.Is(err, tracker.ErrUnknownFriend) {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	history, err := s.tracker.History(name, tracker.DefaultHistoryLimit)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	count, _ := s.db.CountInteractions(friend.ID)

	resp := friendJSON(friend)
	resp["interactions"] = count
	resp["history"] = interactionsJSON(history)
	resp["visualization"] = score.Chart(friend.Name, friend.State())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleDeleteFriend(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.tracker.Remove(name); err != nil {
		if errors.Is(err, tracker.ErrUnknownFriend) {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "removed",
		"name":   name,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	history, err := s.tracker.History(name, limit)
	if err != nil {
		if errors.Is(err, tracker.ErrUnknownFriend) {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    name,
		"count":   len(history),
		"history": interactionsJSON(history),
	})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	drift, err := s.tracker.Rebuild(name)
	if err != nil {
		if errors.Is(err, tracker.ErrUnknownFriend) {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":     drift.Name,
		"stored":   stateJSON(drift.Stored),
		"replayed": stateJSON(drift.Replayed),
		"clean":    drift.Clean(),
	})
}

func friendJSON(f *store.Friend) map[string]any {
	st := f.State()
	d := score.Describe(st)
	return map[string]any{
		"name":        f.Name,
		"lower_bound": st.LowerBound,
		"fuzziness":   st.Fuzziness,
		"upper_bound": st.UpperBound(),
		"rank":        d.Rank,
		"status":      d.Status,
		"volatility":  d.Volatility,
		"display":     st.Display(),
		"updated_at":  f.UpdatedAt,
	}
}

func interactionsJSON(recs []store.Interaction) []map[string]any {
	out := make([]map[string]any, len(recs))
	for i, rec := range recs {
		out[i] = map[string]any{
			"magnitude":     rec.Magnitude,
			"applied_delta": rec.AppliedDelta,
			"prev_bound":    rec.PrevBound,
			"new_bound":     rec.NewBound,
			"prev_rank":     rec.PrevRank,
			"new_rank":      rec.NewRank,
			"reason":        rec.Reason,
			"occurred_at":   rec.OccurredAt,
		}
	}
	return out
}

func stateJSON(st score.State) map[string]any {
	return map[string]any{
		"lower_bound": st.LowerBound,
		"fuzziness":   st.Fuzziness,
	}
}
