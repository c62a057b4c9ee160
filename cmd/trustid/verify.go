package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trustid/internal/domain"
	"trustid/internal/workflow"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run a verification case for the signed-in customer",
	Long: `Start a KYC verification case and follow it stage by stage until it
completes or fails. Interrupting the command cancels the case.

Examples:
  trustid verify
  trustid verify --document-kind id_card --document-bytes 524288`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("document-kind", string(workflow.DocumentPassport), "passport, id_card or pdf")
	verifyCmd.Flags().Int64("document-bytes", 0, "declared document size in bytes")
	verifyCmd.Flags().Bool("no-color", false, "disable colored output")
}

func runVerify(cmd *cobra.Command, _ []string) error {
	kind, _ := cmd.Flags().GetString("document-kind")
	size, _ := cmd.Flags().GetInt64("document-bytes")
	noColor, _ := cmd.Flags().GetBool("no-color")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		s := a.auth.Session()
		if !s.Authenticated() {
			return errors.New("not signed in, run trustid login first")
		}

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		handle, err := a.engine.Start(ctx, *s.Identity, workflow.CaseInput{
			DocumentKind:  workflow.DocumentKind(kind),
			DocumentBytes: size,
		})
		if err != nil {
			return err
		}
		snapshots, err := a.engine.Observe(handle)
		if err != nil {
			return err
		}

		r := newStageRenderer(cmd.OutOrStdout(), a.engine.Plan(), noColor)
		r.header(handle)
		last, err := follow(ctx, a.engine, handle, snapshots, r.render)
		if err != nil {
			return err
		}
		if last.Stage != domain.StageCompleted {
			return fmt.Errorf("case %s failed: %s", handle, last.Reason)
		}
		return nil
	})
}

// caseCanceller is the slice of the engine follow needs on interrupt.
type caseCanceller interface {
	Cancel(ctx context.Context, handle workflow.CaseHandle) error
}

// follow hands every snapshot to fn until the stream closes. When ctx ends
// first the case is cancelled and the stream is drained to its Failed snapshot.
func follow(ctx context.Context, engine caseCanceller, handle workflow.CaseHandle,
	snapshots <-chan domain.CaseSnapshot, fn func(domain.CaseSnapshot)) (domain.CaseSnapshot, error) {
	var last domain.CaseSnapshot
	done := ctx.Done()
	for {
		select {
		case <-done:
			done = nil
			if err := engine.Cancel(context.Background(), handle); err != nil {
				return last, err
			}
		case snap, ok := <-snapshots:
			if !ok {
				return last, nil
			}
			last = snap
			fn(snap)
		}
	}
}
