package webhook

import (
	"encoding/json"
)

// Shape is a recognized provider payload layout.
type Shape int

const (
	ShapeUnknown Shape = iota
	// ShapeFlat is {"logs": [...]}.
	ShapeFlat
	// ShapeTxs is {"txs": [{"logs": [...]}]}.
	ShapeTxs
	// ShapeBlock is {"event": {"data": {"block": {"number": n, "logs": [...]}}}}.
	ShapeBlock
)

func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeTxs:
		return "txs"
	case ShapeBlock:
		return "block"
	default:
		return "unknown"
	}
}

type envelope struct {
	Logs        []json.RawMessage `json:"logs"`
	Block       *blockEntry       `json:"block"`
	BlockNumber json.RawMessage   `json:"blockNumber"`
	Txs         []txEntry         `json:"txs"`
	Event       *struct {
		Data *struct {
			Block *blockEntry `json:"block"`
		} `json:"data"`
	} `json:"event"`
}

type txEntry struct {
	Hash        string            `json:"hash"`
	From        json.RawMessage   `json:"from"`
	BlockNumber json.RawMessage   `json:"blockNumber"`
	Logs        []json.RawMessage `json:"logs"`
}

type blockEntry struct {
	Number json.RawMessage   `json:"number"`
	Logs   []json.RawMessage `json:"logs"`
}

// DetectShape reports which layout body uses. Shapes are probed in a fixed
// order: flat, per-transaction, block object.
func DetectShape(body []byte) Shape {
	shape, _, err := detect(body)
	if err != nil {
		return ShapeUnknown
	}
	return shape
}

func detect(body []byte) (Shape, *envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ShapeUnknown, nil, err
	}
	switch {
	case env.Logs != nil:
		return ShapeFlat, &env, nil
	case env.Txs != nil:
		return ShapeTxs, &env, nil
	case env.Event != nil && env.Event.Data != nil && env.Event.Data.Block != nil && env.Event.Data.Block.Logs != nil:
		return ShapeBlock, &env, nil
	default:
		return ShapeUnknown, &env, nil
	}
}
