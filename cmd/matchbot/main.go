package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"wyvern-matchbot/internal/dotenv"
	"wyvern-matchbot/internal/ethutil"
	"wyvern-matchbot/internal/jsonl"
	"wyvern-matchbot/internal/opensea"
	"wyvern-matchbot/internal/orderstream"
	"wyvern-matchbot/internal/sniper"
	"wyvern-matchbot/internal/state"
	"wyvern-matchbot/internal/txbuild"
)

type args struct {
	ordersFile  string
	streamURL   string
	collections []string

	caller  common.Address
	rpcURL  string
	chainID int64

	minPriceEth   string
	maxPriceEth   string
	exchanges     []common.Address
	paymentTokens []common.Address

	workers     int
	maxAttempts int
	txLimit     int
	tag         [32]byte

	gasLimit   uint64
	maxFeeGwei string
	tipFeeGwei string
	seenFile   string
	outFile    string
}

const defaultEventsOutFile = "./out/matchbot.jsonl"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	parsed, err := parseArgs()
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		log.Printf("Shutting down...")
		cancel()
	}()

	var nonces txbuild.NonceSource
	if parsed.rpcURL != "" {
		client, err := ethclient.DialContext(ctx, parsed.rpcURL)
		if err != nil {
			log.Fatalf("[fatal] dial rpc: %v", err)
		}
		defer client.Close()

		id, err := client.ChainID(ctx)
		if err != nil {
			log.Fatalf("[fatal] chain id: %v", err)
		}
		if parsed.chainID != 0 && id.Int64() != parsed.chainID {
			log.Fatalf("[fatal] rpc is on chain %d, --chain-id is %d", id.Int64(), parsed.chainID)
		}
		parsed.chainID = id.Int64()
		nonces = client
	}
	if parsed.chainID == 0 {
		parsed.chainID = 1
	}

	txb, err := txbuild.NewBuilder(parsed.chainID, parsed.gasLimit, parsed.maxFeeGwei, parsed.tipFeeGwei)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	limits, err := sniper.NewLimits(parsed.minPriceEth, parsed.maxPriceEth, parsed.exchanges, parsed.paymentTokens)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	seen, err := state.LoadSeen(parsed.seenFile, parsed.chainID)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	if seen.Len() > 0 {
		log.Printf("Loaded %d seen orders from %s", seen.Len(), parsed.seenFile)
	}

	events, err := jsonl.Open(parsed.outFile)
	if err != nil {
		log.Fatalf("[fatal] event log: %v", err)
	}
	defer func() {
		if err := events.Close(); err != nil {
			log.Printf("[warn] event log close: %v", err)
		}
	}()
	if events != nil {
		log.Printf("Event log: %s (JSONL)", events.Path())
	}

	var src sniper.Source
	if parsed.ordersFile != "" {
		recs, err := readOrdersFile(parsed.ordersFile)
		if err != nil {
			log.Fatalf("[fatal] %v", err)
		}
		log.Printf("Orders: %d from %s", len(recs), parsed.ordersFile)
		src = sniper.StaticSource(recs)
	} else {
		log.Printf("Stream: %s collections=%s", parsed.streamURL, strings.Join(parsed.collections, ","))
		src = &orderstream.Source{URL: parsed.streamURL, Collections: parsed.collections}
	}

	runner, err := sniper.New(sniper.Config{
		Caller:      parsed.caller,
		ChainID:     parsed.chainID,
		Limits:      limits,
		Workers:     parsed.workers,
		MaxAttempts: parsed.maxAttempts,
		TxLimit:     parsed.txLimit,
		Tag:         parsed.tag,
	}, sniper.Deps{
		Tx:     txb,
		Nonces: nonces,
		Seen:   seen,
		Events: events,
	})
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	log.Printf("Wyvern matchbot (dry-run)")
	log.Printf("Caller: %s", parsed.caller.Hex())
	log.Printf("Chain: %d", parsed.chainID)
	log.Printf("Price: min=%s max=%s ETH", orAny(parsed.minPriceEth), orAny(parsed.maxPriceEth))
	if len(parsed.exchanges) > 0 {
		log.Printf("Exchanges: %s", ethutil.JoinHex(parsed.exchanges))
	}
	log.Printf("Workers: %d attempts: %d tx-limit: %d", parsed.workers, parsed.maxAttempts, parsed.txLimit)

	startedAt := time.Now()
	st := runner.Run(ctx, src)
	log.Printf("Done in %s: handled=%d dry_run=%d skipped=%d failed=%d",
		time.Since(startedAt).Round(time.Millisecond), st.Handled, st.DryRun, st.Skipped, st.Failed)
}

func readOrdersFile(path string) ([]opensea.Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := opensea.ReadOrders(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return recs, nil
}

func parseArgs() (args, error) {
	var ordersFlag string
	var streamFlag string
	var collectionsFlag string
	var callerFlag string
	var rpcFlag string
	var chainIDFlag int64
	var minPriceFlag string
	var maxPriceFlag string
	var exchangesFlag string
	var paymentTokensFlag string
	var workersFlag int
	var attemptsFlag int
	var txLimitFlag int
	var tagFlag string
	var gasLimitFlag uint64
	var maxFeeFlag string
	var tipFeeFlag string
	var seenFlag string
	var outFlag string

	workersDefault, err := envInt("WORKERS", 4)
	if err != nil {
		return args{}, err
	}
	txLimitDefault, err := envInt("TX_LIMIT", 1)
	if err != nil {
		return args{}, err
	}

	flag.StringVar(&ordersFlag, "orders", "", "Read order records from a file (JSON array, API envelope or JSONL) instead of the stream")
	flag.StringVar(&streamFlag, "stream-url", "", "Listing stream WebSocket URL (or STREAM_URL env)")
	flag.StringVar(&collectionsFlag, "collections", "", "Collection slugs to subscribe to (comma-separated; or COLLECTIONS env)")
	flag.StringVar(&callerFlag, "caller", "", "Buyer address 0x... (or CALLER_ADDRESS env)")
	flag.StringVar(&rpcFlag, "rpc-url", "", "Optional Ethereum RPC URL for nonces and chain id (or RPC_URL env)")
	flag.Int64Var(&chainIDFlag, "chain-id", 0, "Chain id (default: from --rpc-url, else 1)")
	flag.StringVar(&minPriceFlag, "min-price", "", "Minimum listing price in ETH (or MIN_PRICE_ETH env)")
	flag.StringVar(&maxPriceFlag, "max-price", "", "Maximum listing price in ETH (or MAX_PRICE_ETH env)")
	flag.StringVar(&exchangesFlag, "exchanges", "", "Allowed exchange contracts (comma-separated; default any; or EXCHANGES env)")
	flag.StringVar(&paymentTokensFlag, "payment-tokens", "", "Allowed payment tokens (comma-separated; default ETH only)")
	flag.IntVar(&workersFlag, "workers", workersDefault, "Orders handled concurrently")
	flag.IntVar(&attemptsFlag, "max-attempts", 3, "Match attempts per order")
	flag.IntVar(&txLimitFlag, "tx-limit", txLimitDefault, "Stop after this many included matches (0 = unlimited)")
	flag.StringVar(&tagFlag, "tag", "", "32-byte hex tag written into the buy signature r slot (default zero)")
	flag.Uint64Var(&gasLimitFlag, "gas-limit", txbuild.DefaultGasLimit, "Gas limit per match transaction")
	flag.StringVar(&maxFeeFlag, "max-fee-gwei", "100", "Max fee per gas (gwei)")
	flag.StringVar(&tipFeeFlag, "priority-fee-gwei", "2", "Max priority fee per gas (gwei)")
	flag.StringVar(&seenFlag, "seen-file", "./out/matchbot.seen.json", "Already-attempted orders (blank = memory only)")
	flag.StringVar(&outFlag, "out", defaultEventsOutFile, "JSONL event log path (blank = disabled)")

	flag.Parse()

	out := args{
		ordersFile:  strings.TrimSpace(ordersFlag),
		streamURL:   firstNonEmpty(streamFlag, os.Getenv("STREAM_URL")),
		rpcURL:      firstNonEmpty(rpcFlag, os.Getenv("RPC_URL")),
		chainID:     chainIDFlag,
		minPriceEth: firstNonEmpty(minPriceFlag, os.Getenv("MIN_PRICE_ETH")),
		maxPriceEth: firstNonEmpty(maxPriceFlag, os.Getenv("MAX_PRICE_ETH")),
		workers:     workersFlag,
		maxAttempts: attemptsFlag,
		txLimit:     txLimitFlag,
		gasLimit:    gasLimitFlag,
		maxFeeGwei:  maxFeeFlag,
		tipFeeGwei:  tipFeeFlag,
		seenFile:    strings.TrimSpace(seenFlag),
		outFile:     strings.TrimSpace(outFlag),
	}

	callerRaw := firstNonEmpty(callerFlag, os.Getenv("CALLER_ADDRESS"))
	if callerRaw == "" {
		return args{}, fmt.Errorf("caller required via --caller or CALLER_ADDRESS")
	}
	out.caller, err = ethutil.ParseAddress(callerRaw)
	if err != nil {
		return args{}, fmt.Errorf("invalid caller %q: %w", callerRaw, err)
	}

	if out.ordersFile == "" {
		if out.streamURL == "" {
			return args{}, fmt.Errorf("order source required via --orders or --stream-url/STREAM_URL")
		}
		if !strings.HasPrefix(out.streamURL, "ws") {
			return args{}, fmt.Errorf("stream-url must be ws:// or wss:// (got %q)", out.streamURL)
		}
		out.collections = strings.FieldsFunc(firstNonEmpty(collectionsFlag, os.Getenv("COLLECTIONS")), isListSep)
		if len(out.collections) == 0 {
			return args{}, fmt.Errorf("at least one collection required via --collections or COLLECTIONS")
		}
	}

	if raw := firstNonEmpty(exchangesFlag, os.Getenv("EXCHANGES")); raw != "" {
		out.exchanges, err = ethutil.ParseAddressList(raw)
		if err != nil {
			return args{}, fmt.Errorf("invalid exchanges %q: %w", raw, err)
		}
	}
	if raw := strings.TrimSpace(paymentTokensFlag); raw != "" {
		out.paymentTokens, err = ethutil.ParseAddressList(raw)
		if err != nil {
			return args{}, fmt.Errorf("invalid payment tokens %q: %w", raw, err)
		}
	}

	if raw := strings.TrimSpace(tagFlag); raw != "" {
		out.tag, err = ethutil.ParseWord(raw)
		if err != nil {
			return args{}, fmt.Errorf("invalid --tag: %w", err)
		}
	}

	if out.workers <= 0 {
		return args{}, fmt.Errorf("--workers must be > 0")
	}
	if out.maxAttempts <= 0 {
		return args{}, fmt.Errorf("--max-attempts must be > 0")
	}
	if out.txLimit < 0 {
		return args{}, fmt.Errorf("--tx-limit must be >= 0")
	}
	return out, nil
}

func envInt(key string, def int) (int, error) {
	env := strings.TrimSpace(os.Getenv(key))
	if env == "" {
		return def, nil
	}
	v, err := strconv.Atoi(env)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, env, err)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func isListSep(r rune) bool {
	return r == ',' || r == ' ' || r == '\t' || r == '\n'
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}
