// Package main provides a one-shot CLI that reads a signed transaction and
// submits it reliably, blocking until the outcome is final.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/meridianledger/meridian-go/pkg/errors"
	"github.com/meridianledger/meridian-go/pkg/logging"
	"github.com/meridianledger/meridian-go/pkg/rpc"
	"github.com/meridianledger/meridian-go/pkg/submit"
	"github.com/meridianledger/meridian-go/pkg/transaction"
)

// Exit codes by outcome class.
const (
	exitValidated = 0
	exitRejected  = 2
	exitExpired   = 3
	exitError     = 1
)

var (
	nodeURL      = pflag.String("node", "http://localhost:5005", "Ledger node URL")
	txFile       = pflag.String("tx", "-", "Path to signed transaction JSON, or - for stdin")
	pollInterval = pflag.Duration("poll-interval", submit.DefaultPollInterval, "Wait between finality polls")
	timeout      = pflag.Duration("timeout", 0, "Overall deadline, 0 for none")
	verify       = pflag.Bool("verify", true, "Verify the signature before submitting")
	verbose      = pflag.Bool("verbose", false, "Log each finality poll")
)

func main() {
	pflag.Parse()

	tx, err := readTransaction(*txFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitError)
	}

	logCfg := logging.DefaultConfig()
	logCfg.ServiceName = "meridian-submit"
	logCfg.Output = os.Stderr
	if *verbose {
		logCfg.Level = logging.DebugLevel
	}
	logger := logging.New(logCfg)

	client := rpc.NewHTTPClient(*nodeURL, rpc.WithLogger(logger))
	submitter := submit.New(client,
		submit.WithPollInterval(*pollInterval),
		submit.WithSignatureVerification(*verify),
		submit.WithLogger(logger),
	)

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()
	snapshot, err := submitter.SubmitAndWait(ctx, tx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		switch {
		case errors.HasCode(err, errors.SubmissionErrRejected):
			os.Exit(exitRejected)
		case errors.HasCode(err, errors.SubmissionErrExpired):
			os.Exit(exitExpired)
		default:
			os.Exit(exitError)
		}
	}

	out, err := json.MarshalIndent(map[string]interface{}{
		"hash":      snapshot.Hash,
		"validated": snapshot.Validated,
		"elapsed":   time.Since(start).String(),
		"result":    snapshot.Result,
	}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitError)
	}
	fmt.Println(string(out))
	os.Exit(exitValidated)
}

func readTransaction(path string) (*transaction.Transaction, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction: %w", err)
	}
	return transaction.FromJSON(data)
}
