package sniper

import (
	"log"

	"wyvern-matchbot/internal/jsonl"
)

type matchLogEvent struct {
	TsMs  int64  `json:"ts_ms"`
	Event string `json:"event"`

	Mode   string `json:"mode,omitempty"` // dry | live
	Caller string `json:"caller,omitempty"`

	// Per-order fields.
	OrderKey string `json:"order_key,omitempty"`
	Maker    string `json:"maker,omitempty"`
	Target   string `json:"target,omitempty"`
	TokenID  string `json:"token_id,omitempty"`
	PriceWei string `json:"price_wei,omitempty"`
	PriceEth string `json:"price_eth,omitempty"`
	Reason   string `json:"reason,omitempty"`

	// Per-attempt fields.
	Attempt      int    `json:"attempt,omitempty"`
	To           string `json:"to,omitempty"`
	ValueWei     string `json:"value_wei,omitempty"`
	Calldata     string `json:"calldata,omitempty"`
	Nonce        uint64 `json:"nonce,omitempty"`
	Gas          uint64 `json:"gas,omitempty"`
	TxHash       string `json:"tx_hash,omitempty"`
	WildcardRuns int    `json:"wildcard_runs,omitempty"`
	FillPriceWei string `json:"fill_price_wei,omitempty"`

	// Run-level fields.
	Workers     int   `json:"workers,omitempty"`
	MaxAttempts int   `json:"max_attempts,omitempty"`
	TxLimit     int   `json:"tx_limit,omitempty"`
	Included    int64 `json:"included,omitempty"`
	Handled     int64 `json:"handled,omitempty"`

	Ok  bool   `json:"ok,omitempty"`
	Err string `json:"err,omitempty"`

	UptimeMs int64 `json:"uptime_ms,omitempty"`
}

func runMode(enableTrading bool) string {
	if enableTrading {
		return "live"
	}
	return "dry"
}

func logMatchEvent(w *jsonl.Writer, ev matchLogEvent) {
	if w == nil {
		return
	}
	if err := w.Write(ev); err != nil {
		log.Printf("[warn] event log write failed: %v", err)
	}
}
