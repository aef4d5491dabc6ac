package main

import (
	"fmt"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/gateway"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	var (
		olderThan time.Duration
		batch     int
		interval  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Settle orders whose saga was abandoned mid-flight",
		Long: `Finds orders stuck in CREATED, PAYMENT_AUTHORIZED or INVENTORY_DEDUCTED
for longer than --older-than and compensates them:
- CREATED is failed
- PAYMENT_AUTHORIZED voids the payment
- INVENTORY_DEDUCTED restores stock and voids the payment`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := open(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			repo := &orders.Repo{DB: e.db}
			pay, stock := gateway.Ports(e.cfg, e.db, e.log)
			sw := &saga.Sweeper{
				Finder:    repo,
				Saga:      saga.New(repo, pay, stock, saga.WithLogger(e.log.Named("saga"))),
				OlderThan: olderThan,
				Batch:     batch,
				Log:       e.log,
			}
			if interval > 0 {
				return sw.Run(ctx, interval)
			}
			rep, err := sw.Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("scanned=%d settled=%d failed=%d\n", rep.Scanned, rep.Settled, rep.Failed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 10*time.Minute, "Minimum age since the last update")
	cmd.Flags().IntVarP(&batch, "batch", "n", 100, "Orders per sweep")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Keep sweeping at this interval (0 = once)")

	return cmd
}
