package indexer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// flatLog mirrors one entry of the flat webhook shape.
type flatLog struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	TransactionHash string   `json:"transactionHash"`
	LogIndex        string   `json:"logIndex"`
	BlockNumber     string   `json:"blockNumber"`
	Removed         bool     `json:"removed"`
}

// BuildFlatPayload orders logs by block and index and encodes them as a
// {"logs": [...]} payload, the same shape providers deliver.
func BuildFlatPayload(logs []types.Log) ([]byte, error) {
	sorted := make([]types.Log, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].BlockNumber != sorted[j].BlockNumber {
			return sorted[i].BlockNumber < sorted[j].BlockNumber
		}
		return sorted[i].Index < sorted[j].Index
	})

	entries := make([]flatLog, 0, len(sorted))
	for _, log := range sorted {
		topics := make([]string, 0, len(log.Topics))
		for _, topic := range log.Topics {
			topics = append(topics, strings.ToLower(topic.Hex()))
		}
		entries = append(entries, flatLog{
			Address:         strings.ToLower(log.Address.Hex()),
			Topics:          topics,
			Data:            hexutil.Encode(log.Data),
			TransactionHash: strings.ToLower(log.TxHash.Hex()),
			LogIndex:        hexutil.EncodeUint64(uint64(log.Index)),
			BlockNumber:     hexutil.EncodeUint64(log.BlockNumber),
			Removed:         log.Removed,
		})
	}

	payload, err := json.Marshal(struct {
		Logs []flatLog `json:"logs"`
	}{Logs: entries})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return payload, nil
}
