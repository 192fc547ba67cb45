package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/yanizio/tenancy/internal/migrate"
	"github.com/yanizio/tenancy/internal/registry"
	"github.com/yanizio/tenancy/internal/tenant"
)

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "migrate",
		Short:             "Apply, revert, or inspect schema migrations",
		PersistentPreRunE: c.boot,
		PersistentPostRun: c.close,
	}

	var only string
	up := &cobra.Command{
		Use:   "up",
		Short: "Migrate the shared schema, then every tenant (oldest first)",
		Long: `Migrate the shared schema, then every tenant schema in registration order.

If a tenant fails, every tenant schema changed by this run is rolled back,
newest first, and the command exits non-zero.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, schemas, err := c.fleet(cmd.Context(), only)
			if err != nil {
				return err
			}
			if err := m.MigratePublic(cmd.Context()); err != nil {
				return err
			}
			return migrate.MigrateAll(cmd.Context(), m, schemas, c.env.Log)
		},
	}
	up.Flags().StringVar(&only, "tenant", "", "migrate only this tenant id")

	down := &cobra.Command{
		Use:   "down",
		Short: "Revert the latest migration of every tenant (newest first)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, schemas, err := c.fleet(cmd.Context(), "")
			if err != nil {
				return err
			}
			return migrate.RevertAll(cmd.Context(), m, schemas, c.env.Log)
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show pending migrations per tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, schemas, err := c.fleet(cmd.Context(), "")
			if err != nil {
				return err
			}
			return printStatus(cmd.Context(), cmd.OutOrStdout(), m, schemas)
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

// fleet returns a Migrator and the tenant schemas, oldest first.  A
// non-empty only narrows the list to that tenant.
func (c *cli) fleet(ctx context.Context, only string) (*migrate.Migrator, []string, error) {
	m := migrate.New(c.env.Config.Database.Options(), c.env.Log)
	if only != "" {
		return m, []string{tenant.KeyFor(tenant.ID(only)).Schema()}, nil
	}
	schemas, err := registry.NewStore(c.env.DB, m, c.env.Log).Schemas(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list tenants: %w", err)
	}
	return m, schemas, nil
}

// pendingCounter is the part of *migrate.Migrator printStatus needs.
type pendingCounter interface {
	Pending(ctx context.Context, schema string) (int, error)
}

// newTable renders borderless, left-aligned tables with an upper-cased
// header row.
func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
}

func printStatus(ctx context.Context, w io.Writer, m pendingCounter, schemas []string) error {
	rows := make([][]string, 0, len(schemas))
	var firstErr error
	for _, s := range schemas {
		n, err := m.Pending(ctx, s)
		if err != nil {
			rows = append(rows, []string{s, "error: " + err.Error()})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		rows = append(rows, []string{s, strconv.Itoa(n)})
	}

	t := newTable(w)
	t.Header("schema", "pending")
	if err := t.Bulk(rows); err != nil {
		return err
	}
	if err := t.Render(); err != nil {
		return err
	}
	return firstErr
}
