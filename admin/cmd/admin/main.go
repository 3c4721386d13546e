package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/embeddedgames/escrow/admin/internal/admin"
	"github.com/embeddedgames/escrow/api/config"
	"github.com/embeddedgames/escrow/program/pkg/escrow"
	"github.com/embeddedgames/escrow/program/pkg/store/postgres"
	"github.com/embeddedgames/escrow/utils/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	programIDFlag := flag.String("program-id", escrow.DefaultProgramID.String(), "escrow program ID (or set ESCROW_PROGRAM_ID env var)")
	keypairFlag := flag.String("keypair", defaultKeypairPath(), "path to the admin authority keypair (solana-keygen JSON) (or set ESCROW_KEYPAIR env var)")

	// Commands
	pgMigrateFlag := flag.Bool("pg-migrate", false, "Run PostgreSQL migrations using goose")
	pgMigrateDownFlag := flag.Bool("pg-migrate-down", false, "Roll back the last PostgreSQL migration")
	pgMigrateStatusFlag := flag.Bool("pg-migrate-status", false, "Show PostgreSQL migration status")
	showPDAsFlag := flag.Bool("show-pdas", false, "Print the treasury and config PDAs for --program-id")
	initConfigFlag := flag.Bool("init-config", false, "Initialize the program config with the keypair as authority")
	updateConfigFlag := flag.Bool("update-config", false, "Update the config fields given on the command line")
	fundWalletFlag := flag.String("fund-wallet", "", "Credit the given wallet with --lamports (development deployments)")
	airdropDirFlag := flag.String("airdrop-dir", "", "Execute the airdrop in the given folder (players.csv, owners.csv)")

	// Config options
	casualBetFlag := flag.Uint64("casual-bet-lamports", 2_590_674, "casual match entry in lamports")
	casualFeeFlag := flag.Uint16("casual-fee-bps", 2_000, "casual match fee in basis points")
	bettingFeeFlag := flag.Uint16("betting-fee-bps", 1_000, "betting match fee in basis points")
	winnersPercentageFlag := flag.Bool("winners-percentage", false, "interpret --winners-value as a percentage of players")
	winnersValueFlag := flag.Uint16("winners-value", 500, "number (or percentage) of rewarded winners")
	rewardBpsFlag := flag.Uint16("reward-percentage-bps", 2_000, "share of the treasury distributed to winners, in basis points")

	// Other options
	lamportsFlag := flag.Uint64("lamports", 0, "lamports for --fund-wallet")
	airdropDelayFlag := flag.Duration("airdrop-delay", 500*time.Millisecond, "pause between airdrop transfers")

	flag.Parse()

	if v := os.Getenv("ESCROW_PROGRAM_ID"); v != "" {
		*programIDFlag = v
	}
	if v := os.Getenv("ESCROW_KEYPAIR"); v != "" {
		*keypairFlag = v
	}

	log := logger.New(*verboseFlag)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	programID, err := solana.PublicKeyFromBase58(*programIDFlag)
	if err != nil {
		return fmt.Errorf("invalid --program-id: %w", err)
	}

	if *showPDAsFlag {
		return admin.ShowPDAs(os.Stdout, programID)
	}

	pgCfg, err := config.PostgresFromEnv()
	if err != nil {
		return err
	}

	if *pgMigrateFlag {
		return admin.PgMigrateUp(ctx, log, pgCfg)
	}
	if *pgMigrateDownFlag {
		return admin.PgMigrateDown(ctx, log, pgCfg)
	}
	if *pgMigrateStatusFlag {
		return admin.PgMigrateStatus(ctx, log, pgCfg)
	}

	if !*initConfigFlag && !*updateConfigFlag && *fundWalletFlag == "" && *airdropDirFlag == "" {
		flag.Usage()
		return nil
	}

	program, closeProgram, err := openProgram(ctx, log, pgCfg, programID)
	if err != nil {
		return err
	}
	defer closeProgram()

	if *fundWalletFlag != "" {
		wallet, err := solana.PublicKeyFromBase58(*fundWalletFlag)
		if err != nil {
			return fmt.Errorf("invalid --fund-wallet: %w", err)
		}
		if *lamportsFlag == 0 {
			return fmt.Errorf("--lamports is required for --fund-wallet")
		}
		return admin.FundWallet(ctx, log, program, wallet, *lamportsFlag)
	}

	keypair, err := solana.PrivateKeyFromSolanaKeygenFile(*keypairFlag)
	if err != nil {
		return fmt.Errorf("failed to load keypair %s: %w", *keypairFlag, err)
	}
	authority := keypair.PublicKey()

	if *initConfigFlag {
		return admin.InitConfig(ctx, log, program, authority, escrow.InitializeParams{
			CasualBetLamports:       *casualBetFlag,
			CasualFeeBps:            *casualFeeFlag,
			BettingFeeBps:           *bettingFeeFlag,
			WinnersModeIsPercentage: *winnersPercentageFlag,
			WinnersValue:            *winnersValueFlag,
			RewardPercentageBps:     *rewardBpsFlag,
		})
	}

	if *updateConfigFlag {
		var update escrow.ConfigUpdate
		if flag.CommandLine.Changed("casual-fee-bps") {
			update.CasualFeeBps = casualFeeFlag
		}
		if flag.CommandLine.Changed("betting-fee-bps") {
			update.BettingFeeBps = bettingFeeFlag
		}
		if flag.CommandLine.Changed("winners-percentage") {
			update.WinnersModeIsPercentage = winnersPercentageFlag
		}
		if flag.CommandLine.Changed("winners-value") {
			update.WinnersValue = winnersValueFlag
		}
		if flag.CommandLine.Changed("reward-percentage-bps") {
			update.RewardPercentageBps = rewardBpsFlag
		}
		return admin.UpdateConfig(ctx, log, program, authority, update)
	}

	_, err = admin.ExecuteAirdrop(ctx, admin.AirdropConfig{
		Logger:    log,
		Program:   program,
		Authority: authority,
		Dir:       *airdropDirFlag,
		Delay:     *airdropDelayFlag,
	})
	return err
}

func openProgram(ctx context.Context, log *slog.Logger, pgCfg config.PgConfig, programID solana.PublicKey) (*escrow.Program, func(), error) {
	pool, err := config.OpenPostgres(ctx, log, pgCfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := postgres.NewStore(postgres.StoreConfig{Logger: log, DB: pool})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	program, err := escrow.NewProgram(escrow.ProgramConfig{Logger: log, Store: store, ProgramID: programID})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return program, pool.Close, nil
}

func defaultKeypairPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "id.json"
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}
