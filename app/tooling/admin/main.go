// This program inspects and verifies the chain a stopped node persisted.
package main

import (
	"fmt"
	"os"

	"github.com/ardanlabs/powchain/app/tooling/admin/commands"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/database/storage"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dbPath      string
	backend     string
	genesisPath string
)

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := rootCmd(log).Execute(); err != nil {
		log.Errorw("admin", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func rootCmd(log *zap.SugaredLogger) *cobra.Command {
	root := cobra.Command{
		Use:   "admin",
		Short: "Inspect the chain of a stopped node",
	}

	root.PersistentFlags().StringVarP(&dbPath, "db-path", "d", "zblock/miner1/", "Path to the node's data directory.")
	root.PersistentFlags().StringVarP(&backend, "backend", "b", storage.Disk, "Storage backend: disk or bolt.")
	root.PersistentFlags().StringVarP(&genesisPath, "genesis", "g", "zblock/genesis.json", "Path to the genesis file.")

	root.AddCommand(
		&cobra.Command{
			Use:   "chain",
			Short: "Print the blocks from the oldest to the tip",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(func(db *database.Database, gen genesis.Genesis) error {
					return commands.Chain(os.Stdout, db)
				})
			},
		},
		&cobra.Command{
			Use:   "balance [account]",
			Short: "Print the balance of an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(func(db *database.Database, gen genesis.Genesis) error {
					return commands.Balance(os.Stdout, db, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "verify",
			Short: "Validate every block from genesis to the tip",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(func(db *database.Database, gen genesis.Genesis) error {
					ev := func(v string, args ...any) {
						log.Debugw(fmt.Sprintf(v, args...))
					}
					return commands.Verify(os.Stdout, db, gen, ev)
				})
			},
		},
	)

	return &root
}

func withDatabase(f func(db *database.Database, gen genesis.Genesis) error) error {
	gen, err := genesis.Load(genesisPath)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	store, err := storage.Open(backend, dbPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	db := database.New(store, gen.StartingCredit)
	defer db.Close()

	return f(db, gen)
}
