// aurum-settle validates a batch of candidate transactions against the
// persisted UTXO set and applies the ones that pass.
//
// Usage:
//
//	aurum-settle [options] <batch.json>   Settle a batch
//	aurum-settle --help                   Show help
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aurumlabs/aurum-ledger/config"
	"github.com/aurumlabs/aurum-ledger/internal/log"
	"github.com/aurumlabs/aurum-ledger/internal/settle"
	"github.com/aurumlabs/aurum-ledger/internal/storage"
	"github.com/aurumlabs/aurum-ledger/internal/utxo"
	"github.com/aurumlabs/aurum-ledger/pkg/tx"
)

const version = "0.1.0"

func main() {
	cfg, flags, err := config.Load()
	if err != nil {
		fatal("%v", err)
	}

	if flags.Version {
		fmt.Printf("aurum-settle %s\n", version)
		return
	}
	if flags.Help || len(flags.Args) != 1 {
		config.PrintUsage()
		if flags.Help {
			return
		}
		os.Exit(1)
	}

	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	var gen *config.Genesis
	if cfg.GenesisFile != "" {
		gen, err = config.LoadGenesis(cfg.GenesisFile)
		if err != nil {
			fatal("load genesis: %v", err)
		}
	}

	db, err := openDB(cfg, flags.InMemory)
	if err != nil {
		fatal("open storage: %v", err)
	}
	defer db.Close()

	// Each ledger lives under its own key prefix so one database can
	// hold several independent UTXO sets.
	ledgerID := "default"
	if gen != nil {
		ledgerID = gen.LedgerID
	}
	store := utxo.NewStore(storage.NewPrefixDB(db, []byte("l/"+ledgerID+"/")))

	pool, err := store.LoadPool()
	if err != nil {
		fatal("load UTXO set: %v", err)
	}

	if pool.Len() == 0 && gen != nil {
		pool, err = utxo.PoolFromGenesis(gen)
		if err != nil {
			fatal("seed genesis: %v", err)
		}
		log.Info().
			Str("ledger", ledgerID).
			Int("outputs", pool.Len()).
			Msg("seeded UTXO set from genesis")
	}

	candidates, err := readBatch(flags.Args[0])
	if err != nil {
		fatal("read batch: %v", err)
	}

	handler := settle.New(pool)
	accepted := handler.HandleBatch(candidates)

	if err := store.SavePool(handler.Pool()); err != nil {
		fatal("persist UTXO set: %v", err)
	}

	fmt.Printf("Accepted %d of %d transactions\n", len(accepted), len(candidates))
	for _, t := range accepted {
		fmt.Printf("  %s\n", t.Hash())
	}
	fmt.Printf("Pool size:  %d\n", handler.Pool().Len())
	fmt.Printf("Commitment: %s\n", utxo.Commitment(handler.Pool()))
}

func openDB(cfg *config.Config, inMemory bool) (storage.DB, error) {
	if inMemory {
		return storage.NewMemory(), nil
	}
	return storage.NewBadger(cfg.UTXODir())
}

// readBatch parses a JSON array of transactions. Structurally broken
// entries are dropped with a warning before settlement sees them.
func readBatch(path string) ([]*tx.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []*tx.Transaction
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	candidates := make([]*tx.Transaction, 0, len(raw))
	for i, t := range raw {
		if t == nil {
			continue
		}
		if err := t.ValidateStructure(); err != nil {
			log.Warn().Int("position", i).Err(err).Msg("dropping malformed transaction")
			continue
		}
		candidates = append(candidates, t)
	}
	return candidates, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
