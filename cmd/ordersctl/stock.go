package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/inventory"
	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "seed [product-id] [quantity]",
		Short: "Create a product or overwrite its stock level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil || qty < 0 {
				return fmt.Errorf("quantity must be a non-negative integer, got %q", args[1])
			}
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if name == "" {
				name = args[0]
			}
			store := &inventory.PgStore{DB: e.db}
			p := inventory.Product{ID: args[0], Name: name, Quantity: qty, UpdatedAt: time.Now().UTC()}
			if err := store.Upsert(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Printf("%s (%s) stock=%d\n", p.ID, p.Name, p.Quantity)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Product name (defaults to the id)")
	return cmd
}

func stockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stock [product-id]",
		Short: "Show the current stock level of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			ledger := &inventory.Ledger{Store: &inventory.PgStore{DB: e.db}, Log: e.log}
			p, err := ledger.Stock(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s) stock=%d updated=%s\n", p.ID, p.Name, p.Quantity, p.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}
