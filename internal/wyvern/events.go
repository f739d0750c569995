package wyvern

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var OrdersMatchedTopic = crypto.Keccak256Hash([]byte("OrdersMatched(bytes32,bytes32,address,address,uint256,bytes32)"))

type MatchEvent struct {
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint

	BuyHash  common.Hash
	SellHash common.Hash
	Maker    common.Address
	Taker    common.Address
	Price    *big.Int
	Metadata common.Hash
}

func DecodeOrdersMatchedLog(vLog types.Log) (*MatchEvent, error) {
	// topics:
	// 0: event sig
	// 1: maker (address indexed)
	// 2: taker (address indexed)
	// 3: metadata (bytes32 indexed)
	if len(vLog.Topics) < 4 || vLog.Topics[0] != OrdersMatchedTopic {
		return nil, fmt.Errorf("not an OrdersMatched log")
	}
	if len(vLog.Data) < 32*3 {
		return nil, fmt.Errorf("unexpected data len=%d", len(vLog.Data))
	}

	return &MatchEvent{
		TxHash:      vLog.TxHash,
		BlockNumber: vLog.BlockNumber,
		LogIndex:    vLog.Index,

		BuyHash:  common.BytesToHash(vLog.Data[0:32]),
		SellHash: common.BytesToHash(vLog.Data[32:64]),
		Maker:    common.BytesToAddress(vLog.Topics[1].Bytes()),
		Taker:    common.BytesToAddress(vLog.Topics[2].Bytes()),
		Price:    new(big.Int).SetBytes(vLog.Data[64:96]),
		Metadata: vLog.Topics[3],
	}, nil
}

// FindMatch returns the first OrdersMatched event emitted by exchange in
// receipt, or nil.
func FindMatch(receipt *types.Receipt, exchange common.Address) *MatchEvent {
	if receipt == nil {
		return nil
	}
	for _, l := range receipt.Logs {
		if l == nil || l.Address != exchange {
			continue
		}
		ev, err := DecodeOrdersMatchedLog(*l)
		if err == nil {
			return ev
		}
	}
	return nil
}
