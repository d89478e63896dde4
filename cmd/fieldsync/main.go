// fieldsync is the companion CLI for auditors working offline. Responses are
// recorded into a local SQLite cache and pushed to the server when a
// connection is available.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"certflow/internal/domain"
	"certflow/internal/localstore"
	"certflow/internal/localstore/sync"
	"certflow/internal/workers/syncrunner"
)

var (
	flagDBPath string
	flagServer string
	flagToken  string
)

func main() {
	root := &cobra.Command{
		Use:           "fieldsync",
		Short:         "Record and sync audit checklist responses offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagDBPath, "db", defaultEnv("LOCAL_DB_PATH", "./data/field.db"), "path to the local cache database")
	root.PersistentFlags().StringVar(&flagServer, "server", defaultEnv("CERTFLOW_SERVER", "http://localhost:8080"), "server base URL")
	root.PersistentFlags().StringVar(&flagToken, "token", os.Getenv("CERTFLOW_TOKEN"), "session token")

	root.AddCommand(recordCmd(), listCmd(), syncCmd(), watchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func defaultEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func openStore() (*localstore.Store, error) {
	return localstore.Open(flagDBPath)
}

func newSyncer(store *localstore.Store, log *zap.Logger) *sync.Syncer {
	return sync.New(store, sync.NewClient(flagServer, flagToken), log)
}

func recordCmd() *cobra.Command {
	var (
		auditID     string
		itemID      string
		section     string
		requirement string
		status      string
		evidence    string
		recordedBy  string
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record one checklist response into the local cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if itemID == "" {
				itemID = uuid.NewString()
			}
			item := domain.ChecklistItem{
				ID:          itemID,
				AuditID:     auditID,
				Section:     section,
				Requirement: requirement,
				Status:      domain.ChecklistStatus(status),
				Evidence:    evidence,
				RecordedBy:  recordedBy,
				UpdatedAt:   time.Now().UTC(),
			}
			if err := store.RecordResponse(cmd.Context(), item); err != nil {
				return err
			}
			fmt.Printf("recorded %s (dirty, will sync)\n", itemID)
			return nil
		},
	}
	cmd.Flags().StringVar(&auditID, "audit", "", "audit id")
	cmd.Flags().StringVar(&itemID, "item", "", "item id, generated when empty")
	cmd.Flags().StringVar(&section, "section", "", "checklist section")
	cmd.Flags().StringVar(&requirement, "requirement", "", "requirement text")
	cmd.Flags().StringVar(&status, "status", "pending", "pass, fail, observation, na or pending")
	cmd.Flags().StringVar(&evidence, "evidence", "", "evidence note")
	cmd.Flags().StringVar(&recordedBy, "by", "", "recording auditor id")
	_ = cmd.MarkFlagRequired("audit")
	_ = cmd.MarkFlagRequired("section")
	_ = cmd.MarkFlagRequired("requirement")
	return cmd
}

func listCmd() *cobra.Command {
	var auditID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached checklist responses for an audit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			items, err := store.ListByAudit(cmd.Context(), auditID)
			if err != nil {
				return err
			}
			for _, item := range items {
				mark := " "
				if item.Dirty {
					mark = "*"
				}
				fmt.Printf("%s %-12s %-6s %s\n", mark, item.Section, item.Status, item.Requirement)
			}
			fmt.Printf("%d items (* = not yet synced)\n", len(items))
			return nil
		},
	}
	cmd.Flags().StringVar(&auditID, "audit", "", "audit id")
	_ = cmd.MarkFlagRequired("audit")
	return cmd
}

func syncCmd() *cobra.Command {
	var auditID string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push dirty responses to the server and refresh the cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			log, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer log.Sync()

			syncer := newSyncer(store, log)
			var report sync.Report
			if auditID != "" {
				report, err = syncer.Sync(cmd.Context(), auditID)
			} else {
				report, err = syncer.SyncAll(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Printf("pushed %d, skipped %d stale, %d failed\n", report.Pushed, report.Skipped, report.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&auditID, "audit", "", "sync only this audit, all dirty audits when empty")
	return cmd
}

func watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync continuously until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			log, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			runner := syncrunner.New(newSyncer(store, log), interval, log)
			log.Info("watching", zap.Duration("interval", interval))
			runner.Run(ctx)
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "sync interval")
	return cmd
}
