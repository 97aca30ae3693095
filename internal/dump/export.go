package dump

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/tinware/rapport/internal/store"
)

// FormatVersion is the dump format written by Export. Import accepts
// this version and older ones.
const FormatVersion = 1

// Meta summarizes what a dump contains.
type Meta struct {
	Version      int
	ExportedAt   int64
	Friends      int
	Interactions int
}

type metaLine struct {
	Type         string `json:"type"`
	Version      int    `json:"version"`
	ExportedAt   int64  `json:"exported_at"`
	Friends      int    `json:"friends"`
	Interactions int    `json:"interactions"`
}

type friendLine struct {
	Type       string  `json:"type"`
	Name       string  `json:"name"`
	LowerBound float64 `json:"lower_bound"`
	Fuzziness  float64 `json:"fuzziness"`
	CreatedAt  int64   `json:"created_at"`
	UpdatedAt  int64   `json:"updated_at"`
}

type interactionLine struct {
	Type         string  `json:"type"`
	Friend       string  `json:"friend"`
	Magnitude    float64 `json:"magnitude"`
	AppliedDelta float64 `json:"applied_delta"`
	PrevBound    float64 `json:"prev_bound"`
	NewBound     float64 `json:"new_bound"`
	PrevRank     int     `json:"prev_rank"`
	NewRank      int     `json:"new_rank"`
	Reason       string  `json:"reason,omitempty"`
	OccurredAt   int64   `json:"occurred_at"`
}

// Export writes the whole roster and every ledger row to path as JSONL,
// one record per line. A .zst suffix turns on zstd compression.
func Export(db *store.DB, path string) (*Meta, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create dump: %w", err)
	}

	var w io.Writer = f
	var enc *zstd.Encoder
	if strings.HasSuffix(path, ".zst") {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		w = enc
	}

	meta, err := Write(db, w)
	if enc != nil {
		if cerr := enc.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("finalize compression: %w", cerr)
		}
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close dump: %w", cerr)
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return meta, nil
}

// Write streams the dump to w uncompressed: a meta line first, then
// friends, then each friend's ledger in fold order. Names stand in for
// row IDs so the dump is portable between databases.
func Write(db *store.DB, w io.Writer) (*Meta, error) {
	friends, err := db.ListFriends()
	if err != nil {
		return nil, err
	}

	total := 0
	for _, f := range friends {
		n, err := db.CountInteractions(f.ID)
		if err != nil {
			return nil, err
		}
		total += n
	}

	meta := &Meta{
		Version:      FormatVersion,
		ExportedAt:   time.Now().UnixMilli(),
		Friends:      len(friends),
		Interactions: total,
	}

	out := json.NewEncoder(w)
	if err := out.Encode(metaLine{
		Type:         "meta",
		Version:      meta.Version,
		ExportedAt:   meta.ExportedAt,
		Friends:      meta.Friends,
		Interactions: meta.Interactions,
	}); err != nil {
		return nil, fmt.Errorf("write meta: %w", err)
	}

	for _, f := range friends {
		if err := out.Encode(friendLine{
			Type:       "friend",
			Name:       f.Name,
			LowerBound: f.LowerBound,
			Fuzziness:  f.Fuzziness,
			CreatedAt:  f.CreatedAt,
			UpdatedAt:  f.UpdatedAt,
		}); err != nil {
			return nil, fmt.Errorf("write friend %s: %w", f.Name, err)
		}

		recs, err := db.ListInteractions(f.ID)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if err := out.Encode(interactionLine{
				Type:         "interaction",
				Friend:       f.Name,
				Magnitude:    rec.Magnitude,
				AppliedDelta: rec.AppliedDelta,
				PrevBound:    rec.PrevBound,
				NewBound:     rec.NewBound,
				PrevRank:     rec.PrevRank,
				NewRank:      rec.NewRank,
				Reason:       rec.Reason,
				OccurredAt:   rec.OccurredAt,
			}); err != nil {
				return nil, fmt.Errorf("write interaction: %w", err)
			}
		}
	}

	return meta, nil
}
