package rowlog

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/strata/internal/types"
)

// timeEntry is one timeline of a stored time point.
type timeEntry struct {
	Timeline types.Timeline `json:"timeline"`
	Time     int64          `json:"time"`
}

// marshalTimePoint encodes a time point as a JSON list sorted by timeline.
// A list is used because Timeline is not a valid JSON object key.
func marshalTimePoint(tp types.TimePoint) (string, error) {
	entries := make([]timeEntry, 0, len(tp))
	for _, tl := range tp.Timelines() {
		entries = append(entries, timeEntry{Timeline: tl, Time: int64(tp[tl])})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshal timepoint: %w", err)
	}
	return string(data), nil
}

func unmarshalTimePoint(data string) (types.TimePoint, error) {
	var entries []timeEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, fmt.Errorf("unmarshal timepoint: %w", err)
	}
	tp := make(types.TimePoint, len(entries))
	for _, e := range entries {
		if _, dup := tp[e.Timeline]; dup {
			return nil, fmt.Errorf("unmarshal timepoint: duplicate timeline %s", e.Timeline)
		}
		tp[e.Timeline] = types.TimeInt(e.Time)
	}
	return tp, nil
}

// marshalCells encodes cells as a JSON object of tagged cells. encoding/json
// sorts map keys, so the output is stable.
func marshalCells(cells map[types.ComponentName]types.Cell) (string, error) {
	m := make(map[string]json.RawMessage, len(cells))
	for name, cell := range cells {
		raw, err := types.MarshalCell(cell)
		if err != nil {
			return "", fmt.Errorf("marshal cells: %s: %w", name, err)
		}
		m[string(name)] = raw
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal cells: %w", err)
	}
	return string(data), nil
}

func unmarshalCells(data string) (map[types.ComponentName]types.Cell, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal cells: %w", err)
	}
	cells := make(map[types.ComponentName]types.Cell, len(m))
	for name, raw := range m {
		cell, err := types.UnmarshalCell(raw)
		if err != nil {
			return nil, fmt.Errorf("unmarshal cells: %s: %w", name, err)
		}
		cells[types.ComponentName(name)] = cell
	}
	return cells, nil
}
