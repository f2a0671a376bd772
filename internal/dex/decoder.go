package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"priceScope/internal/model"
)

// PairDecoder decodes V2 pair events (Sync, Swap, Mint, Burn) straight
// from chain logs.
type PairDecoder struct {
	pairABI     abi.ABI
	topicToName map[common.Hash]string
}

// NewPairDecoder builds a decoder for the V2 pair event set.
func NewPairDecoder() (*PairDecoder, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return nil, err
	}

	topicToName := map[common.Hash]string{
		pairABI.Events["Sync"].ID: "Sync",
		pairABI.Events["Swap"].ID: "Swap",
		pairABI.Events["Mint"].ID: "Mint",
		pairABI.Events["Burn"].ID: "Burn",
	}

	return &PairDecoder{
		pairABI:     pairABI,
		topicToName: topicToName,
	}, nil
}

// Topics returns the topic0 hashes of all supported events, for log
// filtering.
func (d *PairDecoder) Topics() []common.Hash {
	topics := make([]common.Hash, 0, len(d.topicToName))
	for topic := range d.topicToName {
		topics = append(topics, topic)
	}
	return topics
}

// CanDecode checks whether the topic0 belongs to a supported event.
func (d *PairDecoder) CanDecode(topic0 common.Hash) bool {
	_, ok := d.topicToName[topic0]
	return ok
}

// Decode converts a chain log into an event name and a typed payload.
func (d *PairDecoder) Decode(log types.Log) (string, interface{}, error) {
	if len(log.Topics) == 0 {
		return "", nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[log.Topics[0]]
	if !ok {
		return "", nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}

	switch name {
	case "Sync":
		decoded, err := d.decodeSync(log)
		return name, decoded, err
	case "Swap":
		decoded, err := d.decodeSwap(log)
		return name, decoded, err
	case "Mint":
		decoded, err := d.decodeMint(log)
		return name, decoded, err
	case "Burn":
		decoded, err := d.decodeBurn(log)
		return name, decoded, err
	default:
		return "", nil, fmt.Errorf("unsupported event name: %s", name)
	}
}

func (d *PairDecoder) decodeSync(log types.Log) (model.SyncEventData, error) {
	values, err := d.unpackData("Sync", log.Data)
	if err != nil {
		return model.SyncEventData{}, err
	}
	if len(values) != 2 {
		return model.SyncEventData{}, fmt.Errorf("unexpected sync values: %d", len(values))
	}

	reserve0, err := asBigInt(values[0])
	if err != nil {
		return model.SyncEventData{}, err
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return model.SyncEventData{}, err
	}

	return model.SyncEventData{
		Reserve0: reserve0.String(),
		Reserve1: reserve1.String(),
	}, nil
}

func (d *PairDecoder) decodeSwap(log types.Log) (model.SwapEventData, error) {
	event := d.pairABI.Events["Swap"]

	var indexed struct {
		Sender common.Address
		To     common.Address
	}
	if err := parseIndexed(&indexed, event, log.Topics); err != nil {
		return model.SwapEventData{}, err
	}

	values, err := d.unpackData("Swap", log.Data)
	if err != nil {
		return model.SwapEventData{}, err
	}
	if len(values) != 4 {
		return model.SwapEventData{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	amounts := make([]*big.Int, 4)
	for i, value := range values {
		amount, err := asBigInt(value)
		if err != nil {
			return model.SwapEventData{}, err
		}
		amounts[i] = amount
	}

	return model.SwapEventData{
		Sender:     strings.ToLower(indexed.Sender.Hex()),
		To:         strings.ToLower(indexed.To.Hex()),
		Amount0In:  amounts[0].String(),
		Amount1In:  amounts[1].String(),
		Amount0Out: amounts[2].String(),
		Amount1Out: amounts[3].String(),
	}, nil
}

func (d *PairDecoder) decodeMint(log types.Log) (model.MintEventData, error) {
	event := d.pairABI.Events["Mint"]

	var indexed struct {
		Sender common.Address
	}
	if err := parseIndexed(&indexed, event, log.Topics); err != nil {
		return model.MintEventData{}, err
	}

	values, err := d.unpackData("Mint", log.Data)
	if err != nil {
		return model.MintEventData{}, err
	}
	if len(values) != 2 {
		return model.MintEventData{}, fmt.Errorf("unexpected mint values: %d", len(values))
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return model.MintEventData{}, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return model.MintEventData{}, err
	}

	return model.MintEventData{
		Sender:  strings.ToLower(indexed.Sender.Hex()),
		Amount0: amount0.String(),
		Amount1: amount1.String(),
	}, nil
}

func (d *PairDecoder) decodeBurn(log types.Log) (model.BurnEventData, error) {
	event := d.pairABI.Events["Burn"]

	var indexed struct {
		Sender common.Address
		To     common.Address
	}
	if err := parseIndexed(&indexed, event, log.Topics); err != nil {
		return model.BurnEventData{}, err
	}

	values, err := d.unpackData("Burn", log.Data)
	if err != nil {
		return model.BurnEventData{}, err
	}
	if len(values) != 2 {
		return model.BurnEventData{}, fmt.Errorf("unexpected burn values: %d", len(values))
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return model.BurnEventData{}, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return model.BurnEventData{}, err
	}

	return model.BurnEventData{
		Sender:  strings.ToLower(indexed.Sender.Hex()),
		To:      strings.ToLower(indexed.To.Hex()),
		Amount0: amount0.String(),
		Amount1: amount1.String(),
	}, nil
}

func (d *PairDecoder) unpackData(name string, data []byte) ([]interface{}, error) {
	event := d.pairABI.Events[name]
	values, err := event.Inputs.NonIndexed().UnpackValues(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", name, err)
	}
	return values, nil
}

func parseIndexed(target interface{}, event abi.Event, topics []common.Hash) error {
	indexed := indexedArguments(event.Inputs)
	if len(topics) != len(indexed)+1 {
		return fmt.Errorf("%s: expected %d topics, got %d", event.Name, len(indexed)+1, len(topics))
	}
	if err := abi.ParseTopics(target, indexed, topics[1:]); err != nil {
		return fmt.Errorf("parse %s topics: %w", event.Name, err)
	}
	return nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
