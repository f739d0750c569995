package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"wyvern-matchbot/internal/abi"
	"wyvern-matchbot/internal/dotenv"
	"wyvern-matchbot/internal/ethutil"
	"wyvern-matchbot/internal/opensea"
	"wyvern-matchbot/internal/wyvern"
)

// Encodes either the atomicMatch_ call for one order record, or an arbitrary
// call from a signature and a JSON argument array.
//
//	calldata --order order.json --caller 0x...
//	calldata --sig 'transfer(address,uint256)' --args '["0x...", "1000"]'
func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	var orderFlag string
	var indexFlag int
	var callerFlag string
	var saltFlag string
	var tagFlag string
	var sigFlag string
	var argsFlag string
	var jsonFlag bool

	flag.StringVar(&orderFlag, "order", "", "Order record file (JSON object, array, API envelope or JSONL)")
	flag.IntVar(&indexFlag, "index", 0, "Which record to use when --order holds several")
	flag.StringVar(&callerFlag, "caller", "", "Buyer address 0x... (or CALLER_ADDRESS env)")
	flag.StringVar(&saltFlag, "salt", "", "Buy order salt (decimal or 0x hex; default random)")
	flag.StringVar(&tagFlag, "tag", "", "32-byte hex tag for the buy signature r slot")
	flag.StringVar(&sigFlag, "sig", "", "Function signature, e.g. transfer(address,uint256), or a 0x selector")
	flag.StringVar(&argsFlag, "args", "[]", "JSON array of arguments for --sig (or @file)")
	flag.BoolVar(&jsonFlag, "json", false, "Print a JSON object instead of bare hex")
	flag.Parse()

	switch {
	case orderFlag != "" && sigFlag != "":
		log.Fatalf("[fatal] --order and --sig are mutually exclusive")
	case orderFlag != "":
		if err := encodeOrder(orderFlag, indexFlag, callerFlag, saltFlag, tagFlag, jsonFlag); err != nil {
			log.Fatalf("[fatal] %v", err)
		}
	case sigFlag != "":
		if err := encodeSig(sigFlag, argsFlag, jsonFlag); err != nil {
			log.Fatalf("[fatal] %v", err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

type matchOutput struct {
	To           string `json:"to"`
	Value        string `json:"value"`
	Data         string `json:"data"`
	BuyCalldata  string `json:"buy_calldata"`
	BuyPattern   string `json:"buy_replacement_pattern"`
	BuySalt      string `json:"buy_salt"`
	WildcardRuns int    `json:"wildcard_runs"`
}

func encodeOrder(path string, index int, callerRaw, saltRaw, tagRaw string, asJSON bool) error {
	callerRaw = strings.TrimSpace(callerRaw)
	if callerRaw == "" {
		callerRaw = strings.TrimSpace(os.Getenv("CALLER_ADDRESS"))
	}
	if callerRaw == "" {
		return fmt.Errorf("caller required via --caller or CALLER_ADDRESS")
	}
	caller, err := ethutil.ParseAddress(callerRaw)
	if err != nil {
		return fmt.Errorf("invalid caller: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	recs, err := opensea.ReadOrders(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if index < 0 || index >= len(recs) {
		return fmt.Errorf("--index %d out of range (%d records)", index, len(recs))
	}
	sell, err := recs[index].SellOrder()
	if err != nil {
		return err
	}

	b := &wyvern.Builder{}
	if tagRaw = strings.TrimSpace(tagRaw); tagRaw != "" {
		b.Tag, err = ethutil.ParseWord(tagRaw)
		if err != nil {
			return fmt.Errorf("invalid --tag: %w", err)
		}
	}
	if saltRaw = strings.TrimSpace(saltRaw); saltRaw != "" {
		salt, err := ethutil.ParseUint256(saltRaw)
		if err != nil {
			return fmt.Errorf("invalid --salt: %w", err)
		}
		b.Salt = func() (*big.Int, error) { return salt, nil }
	}

	call, err := b.Build(sell, caller)
	if err != nil {
		return err
	}
	if call.WildcardRuns > 1 {
		log.Printf("[warn] replacement pattern has %d wildcard windows, only the first receives the buyer", call.WildcardRuns)
	}

	if !asJSON {
		fmt.Println(hexutil.Encode(call.Data))
		return nil
	}
	return printJSON(matchOutput{
		To:           call.To.Hex(),
		Value:        call.Value.String(),
		Data:         hexutil.Encode(call.Data),
		BuyCalldata:  hexutil.Encode(call.Buy.Calldata),
		BuyPattern:   hexutil.Encode(call.Buy.ReplacementPattern),
		BuySalt:      call.Buy.Salt.String(),
		WildcardRuns: call.WildcardRuns,
	})
}

func encodeSig(sig, rawArgs string, asJSON bool) error {
	rawArgs = strings.TrimSpace(rawArgs)
	if strings.HasPrefix(rawArgs, "@") {
		b, err := os.ReadFile(strings.TrimPrefix(rawArgs, "@"))
		if err != nil {
			return err
		}
		rawArgs = string(b)
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(sig, "0x") {
		// A bare selector carries no types, so only an empty argument list fits.
		if strings.TrimSpace(rawArgs) != "[]" {
			return fmt.Errorf("--args needs a full signature, not a selector")
		}
		data, err = abi.EncodeCall(sig)
	} else {
		name, types, perr := abi.ParseSignature(sig)
		if perr != nil {
			return perr
		}
		sig = abi.Signature(name, types)
		var args []abi.Arg
		args, err = abi.ArgsFromJSON(sig, json.RawMessage(rawArgs))
		if err != nil {
			return err
		}
		data, err = abi.EncodeCall(sig, args...)
	}
	if err != nil {
		return err
	}

	if !asJSON {
		fmt.Println(hexutil.Encode(data))
		return nil
	}
	return printJSON(map[string]string{"signature": sig, "data": hexutil.Encode(data)})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
