package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"buyScope/internal/model"
)

// Normalizer converts provider webhook bodies into canonical logs.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer builds a Normalizer.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// parent carries fields a log may inherit from its transaction or block.
type parent struct {
	txHash      string
	txFrom      string
	blockNumber uint64
	hasBlock    bool
}

type rawLog struct {
	Address         json.RawMessage `json:"address"`
	Account         json.RawMessage `json:"account"`
	Topics          []*string       `json:"topics"`
	Topic0          *string         `json:"topic0"`
	Topic1          *string         `json:"topic1"`
	Topic2          *string         `json:"topic2"`
	Topic3          *string         `json:"topic3"`
	Data            string          `json:"data"`
	TransactionHash string          `json:"transactionHash"`
	TxHash          string          `json:"txHash"`
	Transaction     *struct {
		Hash string          `json:"hash"`
		From json.RawMessage `json:"from"`
	} `json:"transaction"`
	LogIndex    json.RawMessage `json:"logIndex"`
	Index       json.RawMessage `json:"index"`
	BlockNumber json.RawMessage `json:"blockNumber"`
	Removed     *bool           `json:"removed"`
}

// Normalize returns the canonical logs of body in payload order. It never
// fails: unrecognized payloads produce an empty slice and a warning.
func (n *Normalizer) Normalize(body []byte) []model.CanonicalLog {
	shape, env, err := detect(body)
	if err != nil {
		n.logger.Warn("webhook payload is not valid json", zap.Error(err), zap.Int("bytes", len(body)))
		return []model.CanonicalLog{}
	}

	out := make([]model.CanonicalLog, 0)
	switch shape {
	case ShapeFlat:
		p := parent{}
		number := env.BlockNumber
		if env.Block != nil && len(env.Block.Number) > 0 {
			number = env.Block.Number
		}
		if block, ok, err := parseQuantity(number); err != nil {
			n.logger.Debug("invalid payload block number", zap.Error(err))
		} else if ok {
			p.blockNumber, p.hasBlock = block, true
		}
		out = n.appendLogs(out, env.Logs, p)
	case ShapeTxs:
		for i, tx := range env.Txs {
			p := parent{txHash: strings.ToLower(tx.Hash)}
			if from, ok := parseAddressField(tx.From); ok {
				p.txFrom = from
			}
			if block, ok, err := parseQuantity(tx.BlockNumber); err != nil {
				n.logger.Debug("invalid tx block number", zap.Int("tx", i), zap.Error(err))
			} else if ok {
				p.blockNumber, p.hasBlock = block, true
			}
			out = n.appendLogs(out, tx.Logs, p)
		}
	case ShapeBlock:
		block := env.Event.Data.Block
		p := parent{}
		if number, ok, err := parseQuantity(block.Number); err != nil {
			n.logger.Debug("invalid block number", zap.Error(err))
		} else if ok {
			p.blockNumber, p.hasBlock = number, true
		}
		out = n.appendLogs(out, block.Logs, p)
	default:
		n.logger.Warn("unrecognized webhook payload shape", zap.Int("bytes", len(body)))
		return out
	}

	n.logger.Debug("webhook normalized", zap.Stringer("shape", shape), zap.Int("logs", len(out)))
	return out
}

func (n *Normalizer) appendLogs(out []model.CanonicalLog, raws []json.RawMessage, p parent) []model.CanonicalLog {
	for i, raw := range raws {
		log, err := normalizeLog(raw, p)
		if err != nil {
			n.logger.Debug("skip webhook log", zap.Int("position", i), zap.Error(err))
			continue
		}
		out = append(out, log)
	}
	return out
}

func normalizeLog(raw json.RawMessage, p parent) (model.CanonicalLog, error) {
	var entry rawLog
	if err := json.Unmarshal(raw, &entry); err != nil {
		return model.CanonicalLog{}, fmt.Errorf("decode log: %w", err)
	}

	address, ok := parseAddressField(entry.Address)
	if !ok {
		address, ok = parseAddressField(entry.Account)
	}
	if !ok {
		return model.CanonicalLog{}, fmt.Errorf("missing address")
	}

	txHash := firstNonEmpty(entry.TransactionHash, entry.TxHash)
	txFrom := p.txFrom
	if entry.Transaction != nil {
		txHash = firstNonEmpty(txHash, entry.Transaction.Hash)
		if from, ok := parseAddressField(entry.Transaction.From); ok {
			txFrom = from
		}
	}
	txHash = strings.ToLower(firstNonEmpty(txHash, p.txHash))
	if txHash == "" {
		return model.CanonicalLog{}, fmt.Errorf("missing transaction hash")
	}

	logIndex, ok, err := parseQuantity(entry.LogIndex)
	if err != nil {
		return model.CanonicalLog{}, fmt.Errorf("log index: %w", err)
	}
	if !ok {
		logIndex, ok, err = parseQuantity(entry.Index)
		if err != nil {
			return model.CanonicalLog{}, fmt.Errorf("index: %w", err)
		}
		if !ok {
			return model.CanonicalLog{}, fmt.Errorf("missing log index")
		}
	}

	blockNumber, ok, err := parseQuantity(entry.BlockNumber)
	if err != nil {
		return model.CanonicalLog{}, fmt.Errorf("block number: %w", err)
	}
	if !ok && p.hasBlock {
		blockNumber = p.blockNumber
	}

	data := strings.ToLower(strings.TrimSpace(entry.Data))
	if data == "" {
		data = "0x"
	}

	log := model.CanonicalLog{
		Address:     address,
		Topics:      collectTopics(entry),
		Data:        data,
		TxHash:      txHash,
		TxFrom:      txFrom,
		LogIndex:    logIndex,
		BlockNumber: blockNumber,
	}
	if entry.Removed != nil {
		log.Removed = *entry.Removed
	}
	return log, nil
}

// collectTopics prefers the topics array and falls back to topic0..topic3,
// stopping at the first missing topic.
func collectTopics(entry rawLog) []string {
	source := entry.Topics
	if source == nil {
		source = []*string{entry.Topic0, entry.Topic1, entry.Topic2, entry.Topic3}
	}
	topics := make([]string, 0, len(source))
	for _, topic := range source {
		if topic == nil || strings.TrimSpace(*topic) == "" {
			break
		}
		topics = append(topics, strings.ToLower(strings.TrimSpace(*topic)))
	}
	return topics
}

// parseQuantity accepts a JSON number, a decimal string or a 0x-prefixed hex
// string. The boolean is false when the field is absent or null.
func parseQuantity(raw json.RawMessage) (uint64, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false, nil
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, false, nil
		}
		if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
			value, err := strconv.ParseUint(text[2:], 16, 64)
			if err != nil {
				return 0, false, fmt.Errorf("invalid hex quantity %q", text)
			}
			return value, true, nil
		}
		value, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("invalid quantity %q", text)
		}
		return value, true, nil
	}

	if value, err := strconv.ParseUint(string(raw), 10, 64); err == nil {
		return value, true, nil
	}
	value, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || value < 0 || value != math.Trunc(value) || value > math.MaxUint64 {
		return 0, false, fmt.Errorf("invalid quantity %s", string(raw))
	}
	return uint64(value), true, nil
}

// parseAddressField accepts "0x.." or a GraphQL object {"address": "0x.."}.
func parseAddressField(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.ToLower(strings.TrimSpace(text))
		return text, text != ""
	}
	var obj struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		text = strings.ToLower(strings.TrimSpace(obj.Address))
		return text, text != ""
	}
	return "", false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
