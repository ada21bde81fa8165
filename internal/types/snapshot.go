package types

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// SnapshotVersion is the current export format version.
const SnapshotVersion = 1

// Snapshot is the transportable export of every record kind.
type Snapshot struct {
	Pets             []Pet             `json:"pets"`
	FeedingRecords   []FeedingRecord   `json:"feedingRecords"`
	EvolutionRecords []EvolutionRecord `json:"evolutionRecords"`
	GameSessions     []GameSession     `json:"gameSessions"`
	ExportedAt       time.Time         `json:"exportedAt"`
	Version          int               `json:"version"`
}

// snapshotKindKeys maps the JSON keys of the envelope to record kinds.
// Keys outside this set (plus exportedAt/version) are unknown kinds.
var snapshotKindKeys = map[string]RecordKind{
	"pets":             KindPet,
	"feedingRecords":   KindFeeding,
	"evolutionRecords": KindEvolution,
	"gameSessions":     KindSession,
}

// EncodeSnapshot serializes a snapshot to its JSON envelope.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot envelope. A malformed envelope or a
// malformed known kind fails the whole decode; unknown kinds are logged
// and skipped, never silently dropped.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot envelope: %w", err)
	}

	snap := &Snapshot{}

	versionRaw, ok := raw["version"]
	if !ok {
		return nil, fmt.Errorf("decode snapshot: missing version tag")
	}
	if err := json.Unmarshal(versionRaw, &snap.Version); err != nil {
		return nil, fmt.Errorf("decode snapshot version: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("decode snapshot: unsupported version %d", snap.Version)
	}

	if exportedRaw, ok := raw["exportedAt"]; ok {
		if err := json.Unmarshal(exportedRaw, &snap.ExportedAt); err != nil {
			return nil, fmt.Errorf("decode snapshot exportedAt: %w", err)
		}
	}

	for key, value := range raw {
		if key == "version" || key == "exportedAt" {
			continue
		}
		kind, known := snapshotKindKeys[key]
		if !known {
			slog.Warn("snapshot contains unknown record kind, skipping",
				"component", "snapshot",
				"key", key,
			)
			continue
		}

		var err error
		switch kind {
		case KindPet:
			err = json.Unmarshal(value, &snap.Pets)
		case KindFeeding:
			err = json.Unmarshal(value, &snap.FeedingRecords)
		case KindEvolution:
			err = json.Unmarshal(value, &snap.EvolutionRecords)
		case KindSession:
			err = json.Unmarshal(value, &snap.GameSessions)
		}
		if err != nil {
			return nil, fmt.Errorf("decode snapshot kind %q: %w", key, err)
		}
	}

	return snap, nil
}

// RecordCount returns the total number of records across all kinds.
func (s *Snapshot) RecordCount() int {
	return len(s.Pets) + len(s.FeedingRecords) + len(s.EvolutionRecords) + len(s.GameSessions)
}
