package admin

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
)

const (
	LamportsPerSOL = 1_000_000_000

	PlayersFile = "players.csv"
	OwnersFile  = "owners.csv"
	ResultsFile = "execution_results.json"

	walletColumn = "walletAddress"
	amountColumn = "amount_sol"
)

var (
	ErrNoRecipients      = errors.New("no recipients found in CSV files")
	ErrAirdropIncomplete = errors.New("airdrop incomplete")
)

// AirdropRecord is one row of an airdrop CSV.
type AirdropRecord struct {
	Source        string
	WalletAddress string
	AmountSOL     string
}

// AirdropResult is the outcome of one transfer as written to the results file.
type AirdropResult struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	EventID   string `json:"event_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type AirdropSummary struct {
	Results     []AirdropResult
	Successful  int
	Failed      int
	Transferred uint64
	ResultsPath string
}

type AirdropConfig struct {
	Logger    *slog.Logger
	Clock     clockwork.Clock
	Program   Program
	Authority solana.PublicKey
	Dir       string
	// Delay is the pause between consecutive transfers.
	Delay time.Duration
}

func (cfg *AirdropConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Program == nil {
		return errors.New("program is required")
	}
	if cfg.Authority.IsZero() {
		return errors.New("authority is required")
	}
	if cfg.Dir == "" {
		return errors.New("airdrop dir is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// ParseSOL converts a decimal SOL amount into lamports without going
// through floating point. At most 9 fractional digits are accepted.
func ParseSOL(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty amount")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > 9 {
		return 0, fmt.Errorf("invalid amount %q: more than 9 decimal places", s)
	}

	var w uint64
	if whole != "" {
		var err error
		if w, err = strconv.ParseUint(whole, 10, 64); err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	var f uint64
	if frac != "" {
		var err error
		if f, err = strconv.ParseUint(frac+strings.Repeat("0", 9-len(frac)), 10, 64); err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	if w > (math.MaxUint64-f)/LamportsPerSOL {
		return 0, fmt.Errorf("invalid amount %q: overflows lamports", s)
	}
	return w*LamportsPerSOL + f, nil
}

// ReadAirdropFolder reads players.csv and then owners.csv from dir. Either
// file may be absent.
func ReadAirdropFolder(dir string) ([]AirdropRecord, error) {
	var records []AirdropRecord
	for _, name := range []string{PlayersFile, OwnersFile} {
		f, err := os.Open(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rs, err := readAirdropCSV(f, name)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		records = append(records, rs...)
	}
	if len(records) == 0 {
		return nil, ErrNoRecipients
	}
	return records, nil
}

func readAirdropCSV(r io.Reader, source string) ([]AirdropRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	walletIdx, amountIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")) {
		case walletColumn:
			walletIdx = i
		case amountColumn:
			amountIdx = i
		}
	}
	if walletIdx < 0 || amountIdx < 0 {
		return nil, fmt.Errorf("header must contain %s and %s", walletColumn, amountColumn)
	}

	var records []AirdropRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, AirdropRecord{
			Source:        source,
			WalletAddress: strings.TrimSpace(row[walletIdx]),
			AmountSOL:     strings.TrimSpace(row[amountIdx]),
		})
	}
}

// ExecuteAirdrop transfers every record of the airdrop folder from the
// treasury, one at a time, and writes the per-record outcome to
// execution_results.json in the same folder. A failed record does not stop
// the run; ErrAirdropIncomplete is returned after the results are written.
func ExecuteAirdrop(ctx context.Context, cfg AirdropConfig) (AirdropSummary, error) {
	if err := cfg.Validate(); err != nil {
		return AirdropSummary{}, err
	}
	log := cfg.Logger

	records, err := ReadAirdropFolder(cfg.Dir)
	if err != nil {
		return AirdropSummary{}, err
	}

	before, err := cfg.Program.TreasuryBalance(ctx)
	if err != nil {
		return AirdropSummary{}, err
	}
	log.Info("airdrop execution started",
		"program_id", cfg.Program.ProgramID(),
		"treasury", cfg.Program.Treasury().Address,
		"authority", cfg.Authority,
		"treasury_lamports", before,
		"recipients", len(records),
	)

	summary := AirdropSummary{
		Results:     make([]AirdropResult, 0, len(records)),
		ResultsPath: filepath.Join(cfg.Dir, ResultsFile),
	}

	var runErr error
	for i, rec := range records {
		if i > 0 && cfg.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-cfg.Clock.After(cfg.Delay):
			}
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		res := transferRecord(ctx, cfg, rec)
		if res.Error != "" {
			summary.Failed++
			log.Error("airdrop transfer failed", "source", rec.Source, "recipient", rec.WalletAddress, "error", res.Error)
		} else {
			summary.Successful++
			summary.Transferred += res.Amount
			log.Info("airdrop transfer completed", "source", rec.Source, "recipient", res.Recipient, "lamports", res.Amount, "event", res.EventID)
		}
		summary.Results = append(summary.Results, res)
	}

	if err := writeResults(summary.ResultsPath, summary.Results); err != nil {
		return summary, err
	}

	after, err := cfg.Program.TreasuryBalance(ctx)
	if err == nil {
		log.Info("airdrop execution finished",
			"successful", summary.Successful,
			"failed", summary.Failed,
			"total", len(records),
			"transferred_lamports", summary.Transferred,
			"treasury_lamports", after,
			"results", summary.ResultsPath,
		)
	}

	if runErr != nil {
		return summary, runErr
	}
	if summary.Failed > 0 {
		return summary, fmt.Errorf("%w: %d of %d transfers failed, see %s", ErrAirdropIncomplete, summary.Failed, len(records), summary.ResultsPath)
	}
	return summary, nil
}

func transferRecord(ctx context.Context, cfg AirdropConfig, rec AirdropRecord) AirdropResult {
	res := AirdropResult{Recipient: rec.WalletAddress}

	lamports, err := ParseSOL(rec.AmountSOL)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Amount = lamports

	recipient, err := solana.PublicKeyFromBase58(rec.WalletAddress)
	if err != nil {
		res.Error = fmt.Sprintf("invalid wallet address: %v", err)
		return res
	}

	ev, err := cfg.Program.AirdropTransfer(ctx, cfg.Authority, recipient, lamports)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.EventID = ev.ID.String()
	return res
}

func writeResults(path string, results []AirdropResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
