package dump

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/tinware/rapport/internal/logging"
	"github.com/tinware/rapport/internal/score"
	"github.com/tinware/rapport/internal/store"
	"github.com/tinware/rapport/internal/tracker"
)

// Result summarizes what an import changed.
type Result struct {
	Friends      int // friend rows created
	Interactions int // ledger rows appended
	Skipped      int // malformed or unrecognized lines
	Rebuilt      int // friends refolded after the append
}

// Import reads a dump from path into the store. A .zst suffix turns on
// zstd decompression.
func Import(db *store.DB, tr *tracker.Tracker, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	return Read(db, tr, r)
}

// Read merges dump lines from r into the store. Friends are matched by
// name and created when missing; their ledger rows are appended and each
// touched friend is refolded from the merged ledger afterwards, so the
// stored state always matches what the events produce. Unreadable lines
// are skipped with a warning rather than failing the whole import.
func Read(db *store.DB, tr *tracker.Tracker, r io.Reader) (*Result, error) {
	log := logging.WithPrefix("dump")
	res := &Result{}
	touched := make(map[string]bool)
	ids := make(map[string]int64)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line buffer

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var tag struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(line, &tag); err != nil {
			log.Warn("skipping unreadable line", "line", lineNo)
			res.Skipped++
			continue
		}

		switch tag.Type {
		case "meta":
			var m metaLine
			if err := json.Unmarshal(line, &m); err != nil {
				log.Warn("skipping unreadable meta line", "line", lineNo)
				res.Skipped++
				continue
			}
			if m.Version > FormatVersion {
				return nil, fmt.Errorf("unsupported dump version %d", m.Version)
			}

		case "friend":
			var fl friendLine
			if err := json.Unmarshal(line, &fl); err != nil || fl.Name == "" {
				log.Warn("skipping unreadable friend line", "line", lineNo)
				res.Skipped++
				continue
			}
			if _, err := friendID(db, ids, fl.Name, fl.LowerBound, fl.Fuzziness, res); err != nil {
				return nil, err
			}

		case "interaction":
			var il interactionLine
			if err := json.Unmarshal(line, &il); err != nil || il.Friend == "" {
				log.Warn("skipping unreadable interaction line", "line", lineNo)
				res.Skipped++
				continue
			}
			// A ledger row may precede its friend line; create the
			// friend at the initial state and let the refold settle it.
			init := score.Initial()
			id, err := friendID(db, ids, il.Friend, init.LowerBound, init.Fuzziness, res)
			if err != nil {
				return nil, err
			}
			rec := &store.Interaction{
				FriendID:     id,
				Magnitude:    il.Magnitude,
				AppliedDelta: il.AppliedDelta,
				PrevBound:    il.PrevBound,
				NewBound:     il.NewBound,
				PrevRank:     il.PrevRank,
				NewRank:      il.NewRank,
				Reason:       il.Reason,
				OccurredAt:   il.OccurredAt,
			}
			if err := db.AppendInteraction(rec); err != nil {
				return nil, err
			}
			res.Interactions++
			touched[il.Friend] = true

		default:
			log.Warn("skipping unknown line type", "line", lineNo, "type", tag.Type)
			res.Skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan dump: %w", err)
	}

	// Refold every friend whose ledger grew. Deterministic order keeps
	// the log readable.
	names := make([]string, 0, len(touched))
	for name := range touched {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := tr.Rebuild(name); err != nil {
			return nil, fmt.Errorf("refold %s: %w", name, err)
		}
		res.Rebuilt++
	}

	return res, nil
}

// friendID resolves a name to its row ID, creating the friend when it is
// not in the store or the cache yet.
func friendID(db *store.DB, ids map[string]int64, name string, lowerBound, fuzziness float64, res *Result) (int64, error) {
	if id, ok := ids[name]; ok {
		return id, nil
	}

	existing, err := db.GetFriend(name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		ids[name] = existing.ID
		return existing.ID, nil
	}

	created, err := db.CreateFriend(name, lowerBound, fuzziness)
	if err != nil {
		return 0, err
	}
	ids[name] = created.ID
	res.Friends++
	return created.ID, nil
}
