// Command baned runs a standalone governance node:
// an in-memory or sqlite-backed committee governance engine
// behind the read-only HTTP query API.
//
// It is a reference host. Heights and balances are static here;
// a chain embedding the engine supplies live sources instead.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Tobeyw/bane-labs/bn/bnengine"
	"github.com/Tobeyw/bane-labs/bn/bngov"
	"github.com/Tobeyw/bane-labs/bn/bnstore"
	"github.com/Tobeyw/bane-labs/bn/bnstore/bnmemstore"
	"github.com/Tobeyw/bane-labs/bnhttp"
	"github.com/Tobeyw/bane-labs/bnsqlite"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "baned",
		Short: "Committee governance node",
	}

	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}

func newServeCommand() *cobra.Command {
	var (
		envFile        string
		listenAddr     string
		dbPath         string
		genesisMiners  []string
		balanceFlags   []string
		defaultBalance uint64
		height         uint64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the governance query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("failed to load env file %q: %w", envFile, err)
				}
			}

			// Env values fill in flags left at their defaults.
			if !cmd.Flags().Changed("listen") {
				if v := os.Getenv("BANED_LISTEN"); v != "" {
					listenAddr = v
				}
			}
			if !cmd.Flags().Changed("db") {
				if v := os.Getenv("BANED_DB"); v != "" {
					dbPath = v
				}
			}
			if !cmd.Flags().Changed("genesis") {
				if v := os.Getenv("BANED_GENESIS"); v != "" {
					genesisMiners = strings.Split(v, ",")
				}
			}
			if !cmd.Flags().Changed("height") {
				if v := os.Getenv("BANED_HEIGHT"); v != "" {
					h, err := strconv.ParseUint(v, 10, 64)
					if err != nil {
						return fmt.Errorf("invalid BANED_HEIGHT: %w", err)
					}
					height = h
				}
			}

			return serve(cmd.Context(), serveConfig{
				ListenAddr:     listenAddr,
				DBPath:         dbPath,
				GenesisMiners:  genesisMiners,
				BalanceFlags:   balanceFlags,
				DefaultBalance: defaultBalance,
				Height:         height,
			})
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "optional .env file to load")
	cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:26780", "HTTP listen address")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite database path; empty for in-memory stores")
	cmd.Flags().StringSliceVar(&genesisMiners, "genesis", nil, "genesis committee identities, ascending")
	cmd.Flags().StringArrayVar(&balanceFlags, "balance", nil, "identity=amount balance override, repeatable")
	cmd.Flags().Uint64Var(&defaultBalance, "default-balance", bnengine.DefaultMinVoteStake, "balance assigned to every genesis miner")
	cmd.Flags().Uint64Var(&height, "height", 2, "static chain height this node reports")

	return cmd
}

type serveConfig struct {
	ListenAddr     string
	DBPath         string
	GenesisMiners  []string
	BalanceFlags   []string
	DefaultBalance uint64
	Height         uint64
}

func serve(ctx context.Context, cfg serveConfig) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil)).With(
		"name", petname.Generate(2, "-"),
	)

	if len(cfg.GenesisMiners) == 0 {
		return fmt.Errorf("at least one genesis miner is required (--genesis or BANED_GENESIS)")
	}
	miners := make([]bngov.Identity, len(cfg.GenesisMiners))
	for i, m := range cfg.GenesisMiners {
		miners[i] = bngov.Identity(m)
	}

	balances, err := parseBalances(miners, cfg.DefaultBalance, cfg.BalanceFlags)
	if err != nil {
		return err
	}

	var (
		phases bnstore.PhaseStore
		drafts bnstore.DraftStore
		votes  bnstore.VoteStore
	)
	if cfg.DBPath == "" {
		phases = bnmemstore.NewPhaseStore()
		drafts = bnmemstore.NewDraftStore()
		votes = bnmemstore.NewVoteStore()
		log.Info("Using in-memory stores")
	} else {
		s, err := bnsqlite.New(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer s.Close()
		phases, drafts, votes = s, s, s
		log.Info("Using sqlite stores", "path", cfg.DBPath)
	}

	hub := bnhttp.NewEventHub(log)

	e, err := bnengine.NewEngine(ctx, log, bnengine.EngineConfig{
		PhaseStore: phases,
		DraftStore: drafts,
		VoteStore:  votes,

		Balances: balances,
		Heights:  staticHeight(cfg.Height),
		Sink:     hub,

		GenesisMiners: miners,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", cfg.ListenAddr, err)
	}

	log.Info("Serving governance API", "addr", ln.Addr().String())

	srv := bnhttp.NewServer(ctx, log, bnhttp.ServerConfig{
		Listener: ln,
		Gov:      e,
		Hub:      hub,
	})
	srv.Wait()
	return nil
}

// staticBalances is a fixed balance oracle for standalone operation.
type staticBalances map[bngov.Identity]uint64

func (b staticBalances) Balance(_ context.Context, id bngov.Identity) (uint64, error) {
	return b[id], nil
}

func parseBalances(miners []bngov.Identity, def uint64, overrides []string) (staticBalances, error) {
	out := make(staticBalances, len(miners))
	for _, m := range miners {
		out[m] = def
	}
	for _, o := range overrides {
		id, amount, ok := strings.Cut(o, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --balance %q: want identity=amount", o)
		}
		n, err := strconv.ParseUint(amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --balance %q: %w", o, err)
		}
		out[bngov.Identity(id)] = n
	}
	return out, nil
}

// staticHeight is a fixed height source for standalone operation.
type staticHeight uint64

func (h staticHeight) CurrentHeight(context.Context) (uint64, error) {
	return uint64(h), nil
}
