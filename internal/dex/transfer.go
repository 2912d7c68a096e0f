package dex

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"buyScope/internal/model"
)

// ExtractTransfers returns the Transfer logs emitted by the given token
// contracts. Removed logs are ignored.
func (d *Decoder) ExtractTransfers(logs []model.CanonicalLog, tokens []string) ([]model.TransferRecord, []model.DecodeError) {
	if len(tokens) == 0 {
		return nil, nil
	}
	contracts := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		contracts[strings.ToLower(token)] = struct{}{}
	}

	out := make([]model.TransferRecord, 0)
	var failures []model.DecodeError
	for _, log := range logs {
		if log.Removed || log.Topic0() != TopicTransfer {
			continue
		}
		if _, ok := contracts[log.Address]; !ok {
			continue
		}
		record, err := d.decodeTransfer(log)
		if err != nil {
			d.logger.Debug("transfer decode failed",
				zap.String("tx", log.TxHash),
				zap.Uint64("log_index", log.LogIndex),
				zap.Error(err),
			)
			failures = append(failures, model.DecodeErrorFromLog(log, err))
			continue
		}
		out = append(out, record)
	}
	return out, failures
}

func (d *Decoder) decodeTransfer(log model.CanonicalLog) (model.TransferRecord, error) {
	event := d.transfer
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.TransferRecord{}, err
	}
	var indexed struct {
		From common.Address
		To   common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.TransferRecord{}, fmt.Errorf("parse topics: %w", err)
	}
	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.TransferRecord{}, err
	}
	if len(values) != 1 {
		return model.TransferRecord{}, fmt.Errorf("unexpected transfer values: %d", len(values))
	}
	amount, err := asBigInt(values[0])
	if err != nil {
		return model.TransferRecord{}, err
	}
	return model.TransferRecord{
		Token:    log.Address,
		TxHash:   log.TxHash,
		From:     strings.ToLower(indexed.From.Hex()),
		To:       strings.ToLower(indexed.To.Hex()),
		Amount:   amount,
		LogIndex: log.LogIndex,
	}, nil
}
