// Package layout serializes the tile set to and from the blob store.
package layout

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tilecanvas/common"
	"github.com/milk9111/tilecanvas/tile"
)

// Key is the blob store key holding the layout.
const Key = "tiles"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Dims struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Record is one persisted tile.
type Record struct {
	ID       int    `json:"id"`
	Address  string `json:"address"`
	Position Point  `json:"position"`
	Size     Dims   `json:"size"`
	Unloaded bool   `json:"unloaded,omitempty"`
}

// Tile converts the record back into store form.
func (r Record) Tile() tile.Tile {
	state := tile.Loaded
	if r.Unloaded {
		state = tile.Unloaded
	}
	return tile.Tile{
		ID:       r.ID,
		Address:  r.Address,
		Position: cp.Vector{X: r.Position.X, Y: r.Position.Y},
		Size:     common.Size{W: r.Size.Width, H: r.Size.Height},
		State:    state,
	}
}

// Serialize snapshots tiles in store order.
func Serialize(tiles []tile.Tile) []Record {
	out := make([]Record, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, Record{
			ID:       t.ID,
			Address:  t.Address,
			Position: Point{X: t.Position.X, Y: t.Position.Y},
			Size:     Dims{Width: t.Size.W, Height: t.Size.H},
			Unloaded: t.State == tile.Unloaded,
		})
	}
	return out
}

// Encode renders records as a JSON array.
func Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("layout: encode: %w", err)
	}
	return data, nil
}

// rawRecord accepts both the current record shape and the flat legacy shape
// {id:"3", url, x, y, left, top, width, height} where the tile sits at
// (left+x, top+y).
type rawRecord struct {
	ID       json.RawMessage `json:"id"`
	Address  string          `json:"address"`
	Position *Point          `json:"position"`
	Size     *Dims           `json:"size"`
	Unloaded bool            `json:"unloaded"`

	URL    string   `json:"url"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Left   float64  `json:"left"`
	Top    float64  `json:"top"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

// Deserialize parses a layout blob. Any malformation yields nil: not JSON,
// not an array, an id that is not a positive integer, an empty address or a
// repeated id.
func Deserialize(blob []byte) []Record {
	var raws []rawRecord
	if err := json.Unmarshal(blob, &raws); err != nil {
		return nil
	}
	if raws == nil {
		return nil
	}

	out := make([]Record, 0, len(raws))
	seen := make(map[int]struct{}, len(raws))
	for _, raw := range raws {
		rec, ok := raw.record()
		if !ok {
			return nil
		}
		if _, dup := seen[rec.ID]; dup {
			return nil
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func (r rawRecord) record() (Record, bool) {
	id, ok := parseID(r.ID)
	if !ok {
		return Record{}, false
	}
	rec := Record{ID: id, Unloaded: r.Unloaded}

	switch {
	case r.Position != nil:
		rec.Address = r.Address
		rec.Position = *r.Position
	case r.URL != "":
		rec.Address = r.URL
		rec.Position = Point{X: r.Left + r.X, Y: r.Top + r.Y}
	default:
		rec.Address = r.Address
	}
	if strings.TrimSpace(rec.Address) == "" {
		return Record{}, false
	}

	switch {
	case r.Size != nil:
		rec.Size = *r.Size
	case r.Width != nil && r.Height != nil:
		rec.Size = Dims{Width: *r.Width, Height: *r.Height}
	default:
		rec.Size = Dims{Width: tile.DefaultSize.W, Height: tile.DefaultSize.H}
	}
	return rec, true
}

func parseID(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		n = json.Number(strings.TrimSpace(s))
	}
	id, err := strconv.Atoi(n.String())
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
