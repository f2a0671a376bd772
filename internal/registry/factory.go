package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"priceScope/internal/chain"
	"priceScope/internal/dex"
)

// Factory resolves pair addresses through the on-chain factory contract.
// Found pairings are cached; a pair address never changes once created.
// Misses are not cached, since the pair may be created later.
type Factory struct {
	chainClient *chain.Client
	factory     common.Address

	mu    sync.RWMutex
	cache map[string]string
}

// NewFactory builds a factory-backed registry.
func NewFactory(chainClient *chain.Client, factoryAddress string) (*Factory, error) {
	if chainClient == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if !common.IsHexAddress(factoryAddress) {
		return nil, fmt.Errorf("invalid factory address: %s", factoryAddress)
	}
	return &Factory{
		chainClient: chainClient,
		factory:     common.HexToAddress(factoryAddress),
		cache:       make(map[string]string),
	}, nil
}

// PairFor asks the factory for the pair of the two tokens. The zero
// address answer means no pair exists.
func (f *Factory) PairFor(ctx context.Context, tokenA, tokenB string) (string, bool, error) {
	if !common.IsHexAddress(tokenA) || !common.IsHexAddress(tokenB) {
		return "", false, fmt.Errorf("invalid token address in pairing %s/%s", tokenA, tokenB)
	}

	key := cacheKey(tokenA, tokenB)
	f.mu.RLock()
	pair, ok := f.cache[key]
	f.mu.RUnlock()
	if ok {
		return pair, true, nil
	}

	factoryABI, err := dex.V2FactoryABI()
	if err != nil {
		return "", false, fmt.Errorf("parse factory abi: %w", err)
	}

	data, err := factoryABI.Pack("getPair", common.HexToAddress(tokenA), common.HexToAddress(tokenB))
	if err != nil {
		return "", false, fmt.Errorf("pack getPair: %w", err)
	}

	msg := ethereum.CallMsg{To: &f.factory, Data: data}
	resp, err := f.chainClient.CallContract(ctx, msg, nil)
	if err != nil {
		return "", false, fmt.Errorf("call getPair: %w", err)
	}

	values, err := factoryABI.Unpack("getPair", resp)
	if err != nil {
		return "", false, fmt.Errorf("unpack getPair: %w", err)
	}
	if len(values) != 1 {
		return "", false, fmt.Errorf("getPair return size %d", len(values))
	}
	address, ok := values[0].(common.Address)
	if !ok {
		return "", false, fmt.Errorf("getPair unexpected type %T", values[0])
	}

	if address == (common.Address{}) {
		return "", false, nil
	}

	pair = strings.ToLower(address.Hex())
	f.mu.Lock()
	f.cache[key] = pair
	f.mu.Unlock()

	return pair, true, nil
}

func cacheKey(tokenA, tokenB string) string {
	tokenA = strings.ToLower(tokenA)
	tokenB = strings.ToLower(tokenB)
	if strings.Compare(tokenA, tokenB) > 0 {
		tokenA, tokenB = tokenB, tokenA
	}
	return tokenA + "|" + tokenB
}
