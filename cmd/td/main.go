package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tradedesk/internal/app"
	"tradedesk/internal/classify"
	"tradedesk/internal/config"
	"tradedesk/internal/db"
	"tradedesk/internal/domain"
	"tradedesk/internal/engine"
	"tradedesk/internal/migrate"
	"tradedesk/internal/repo"
	"tradedesk/internal/server"
	"tradedesk/internal/trades"
	"tradedesk/internal/view"
)

var rootCmd = &cobra.Command{
	Use:   "td",
	Short: "Tradedesk CLI",
	Long: `Tradedesk runs a trade services business from one place.
- Workspace: your .tradedesk directory holding the database; business config lives in the DB.
- Business: created once by 'td setup' with a primary trade and optional secondaries.
- Trades: hvac, electrical, plumbing, locksmith, general-contractor; each carries job types,
  inventory categories, checklist templates and quick line items.
- Jobs: work orders move pending -> confirmed -> en_route -> in_progress -> completed,
  with cancel available from any non-terminal status.
- Inventory: stock adjusted with deltas; low-stock alerts fire when crossing the reorder threshold.
- Estimates: built from quick line items or free lines; draft -> sent -> accepted/declined.
- Event log: diary of changes, view with 'td log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TRADEDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("business", "", "business id (defaults to the single business in the workspace)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("business", rootCmd.PersistentFlags().Lookup("business"))
}

func registerCommands() {
	rootCmd.AddCommand(setupCmd())
	rootCmd.AddCommand(businessCmd())
	rootCmd.AddCommand(tradesCmd())
	rootCmd.AddCommand(customerCmd())
	rootCmd.AddCommand(jobCmd())
	rootCmd.AddCommand(inventoryCmd())
	rootCmd.AddCommand(estimateCmd())
	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(dbCmd())
	rootCmd.AddCommand(serveCmd())
}

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "db", Short: "Workspace database"}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
			if err != nil {
				return err
			}
			defer conn.Close()
			v, err := migrate.Version(conn)
			if err != nil {
				return err
			}
			fmt.Printf("schema version %d\n", v)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			v, err := migrate.Version(conn)
			if err != nil {
				return err
			}
			fmt.Printf("migrated to schema version %d\n", v)
			return nil
		},
	})
	return cmd
}

func setupCmd() *cobra.Command {
	var name, primary, businessType, ownerName, ownerEmail string
	var secondaries []string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create a business with a guided trade setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The wizard enforces the same step gating as the UI: primary
			// trade first, secondaries never include the primary.
			w := view.NewWizard()
			if err := w.SelectPrimary(primary); err != nil {
				return err
			}
			if err := w.Next(); err != nil {
				return err
			}
			for _, s := range secondaries {
				if s == primary {
					continue
				}
				if err := w.ToggleSecondary(s); err != nil {
					return err
				}
			}
			if err := w.Next(); err != nil {
				return err
			}
			if businessType != "" {
				if err := w.SelectBusinessType(businessType); err != nil {
					return err
				}
			}
			result, err := w.Complete()
			if err != nil {
				return err
			}
			return withEngineNoBusiness(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.SetupBusiness(ctx, engine.SetupBusinessOptions{
					Name:            name,
					PrimaryTrade:    result.PrimaryTrade,
					SecondaryTrades: result.SecondaryTrades,
					BusinessType:    result.BusinessType,
					OwnerName:       ownerName,
					OwnerEmail:      ownerEmail,
					ActorID:         viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "business name")
	cmd.Flags().StringVar(&primary, "primary-trade", "", "primary trade")
	cmd.Flags().StringArrayVar(&secondaries, "secondary-trade", []string{}, "secondary trade (repeatable)")
	cmd.Flags().StringVar(&businessType, "type", "solo", "business type (solo or team)")
	cmd.Flags().StringVar(&ownerName, "owner-name", "", "owner team member name")
	cmd.Flags().StringVar(&ownerEmail, "owner-email", "", "owner team member email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("primary-trade")
	return cmd
}

func businessCmd() *cobra.Command {
	biz := &cobra.Command{Use: "business", Short: "Manage businesses"}
	biz.AddCommand(businessListCmd())
	biz.AddCommand(businessShowCmd())
	biz.AddCommand(businessUpdateCmd())
	biz.AddCommand(businessConfigCmd())
	return biz
}

func businessUpdateCmd() *cobra.Command {
	var name, businessType string
	var secondaries []string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Rename the business or change its secondary trades and type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				opts := engine.BusinessUpdateOptions{
					ID:           businessID,
					Name:         name,
					BusinessType: businessType,
					ActorID:      viper.GetString("actor-id"),
				}
				if cmd.Flags().Changed("secondary-trade") {
					opts.SecondaryTrades = secondaries
				}
				b, err := e.UpdateBusiness(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new business name")
	cmd.Flags().StringArrayVar(&secondaries, "secondary-trade", []string{}, "secondary trade (repeatable; replaces the stored set)")
	cmd.Flags().StringVar(&businessType, "type", "", "business type (solo or team)")
	return cmd
}

func businessListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List businesses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListBusinesses(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func businessShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active business",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				businessID, _, err := app.ResolveBusinessAndConfig(ctx, viper.GetString("business"), r)
				if err != nil {
					return err
				}
				b, err := r.GetBusiness(ctx, businessID)
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
}

func businessConfigCmd() *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Business config"}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show stored config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				_, cfg, err := app.ResolveBusinessAndConfig(ctx, viper.GetString("business"), r)
				if err != nil {
					return err
				}
				return printJSONOrTable(cfg)
			})
		},
	})
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import config from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			var cfg *config.Config
			var err error
			if file == "" {
				cfg, err = config.Load(viper.GetString("workspace"))
			} else {
				cfg, err = config.FromFile(file)
			}
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				businessID, _, err := app.ResolveBusinessAndConfig(ctx, viper.GetString("business"), r)
				if err != nil {
					return err
				}
				if err := r.UpsertBusinessConfig(ctx, businessID, cfg); err != nil {
					return err
				}
				fmt.Printf("config imported for business %s\n", businessID)
				return nil
			})
		},
	}
	importCmd.Flags().String("file", "", "YAML file to import (defaults to the workspace tradedesk.yml)")
	cfgCmd.AddCommand(importCmd)
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write the stored config to the workspace tradedesk.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				_, cfg, err := app.ResolveBusinessAndConfig(ctx, viper.GetString("business"), r)
				if err != nil {
					return err
				}
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				path := config.Path(viper.GetString("workspace"))
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("config written to %s\n", path)
				return nil
			})
		},
	})
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate stored config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				_, cfg, err := app.ResolveBusinessAndConfig(ctx, viper.GetString("business"), r)
				if err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				fmt.Println("config ok")
				return nil
			})
		},
	})
	return cfgCmd
}

func tradesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "trades", Short: "Trade registry"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List supported trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			all := trades.All()
			if viper.GetBool("json") {
				return printJSON(all)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Name", "Icon", "Default Duration", "Job Types"})
			for _, t := range all {
				tw.AppendRow(table.Row{t.ID, t.Name, t.Icon, t.DefaultJobDuration, strings.Join(t.JobTypes, ", ")})
			}
			tw.Render()
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <trade>",
		Short: "Show one trade's configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := trades.Lookup(args[0])
			if err != nil {
				return err
			}
			return printJSONOrTable(t)
		},
	})
	return cmd
}

func customerCmd() *cobra.Command {
	cust := &cobra.Command{Use: "customer", Short: "Manage customers"}
	cust.AddCommand(customerCreateCmd())
	cust.AddCommand(customerListCmd())
	return cust
}

func customerCreateCmd() *cobra.Command {
	var opts engine.CustomerCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				opts.BusinessID = businessID
				c, err := e.CreateCustomer(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "customer name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "phone")
	cmd.Flags().StringVar(&opts.Address, "address", "", "address")
	cmd.Flags().StringVar(&opts.PropertyType, "property-type", "", "residential or commercial")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", []string{}, "tag (repeatable)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func customerListCmd() *cobra.Command {
	var propertyType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				items, err := e.Repo.ListCustomers(ctx, repo.CustomerFilters{
					BusinessID:   businessID,
					PropertyType: propertyType,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Phone", "Property", "Jobs", "Revenue"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Name, c.Phone, c.PropertyType, c.JobCount, fmt.Sprintf("%.2f", c.Revenue)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&propertyType, "property-type", "", "property type filter")
	return cmd
}

func jobCmd() *cobra.Command {
	job := &cobra.Command{Use: "job", Short: "Manage work orders"}
	job.AddCommand(jobCreateCmd())
	job.AddCommand(jobListCmd())
	job.AddCommand(jobGetCmd())
	job.AddCommand(jobStatusCmd())
	job.AddCommand(jobAssignCmd())
	job.AddCommand(jobCheckCmd())
	return job
}

func jobCreateCmd() *cobra.Command {
	var opts engine.WorkOrderCreateOptions
	var tradeValues []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a work order",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			values := map[string]string{}
			for _, kv := range tradeValues {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid --field %q, expected key=value", kv)
				}
				values[k] = v
			}
			opts.TradeValues = values
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				opts.BusinessID = businessID
				w, err := e.CreateWorkOrder(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&opts.CustomerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&opts.AssigneeID, "assignee", "", "assignee team member id")
	cmd.Flags().StringVar(&opts.JobType, "job-type", "", "job type")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "priority (low, medium, high, urgent)")
	cmd.Flags().StringVar(&opts.ScheduledFor, "scheduled-for", "", "scheduled time (RFC3339)")
	cmd.Flags().IntVar(&opts.DurationMinutes, "duration", 0, "duration in minutes (defaults per trade)")
	cmd.Flags().StringVar(&opts.Address, "address", "", "job address")
	cmd.Flags().Float64Var(&opts.Amount, "amount", 0, "quoted amount")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", []string{}, "tag (repeatable)")
	cmd.Flags().StringVar(&opts.Trade, "trade", "", "trade (defaults to the business primary)")
	cmd.Flags().StringArrayVar(&tradeValues, "field", []string{}, "trade-specific field key=value (repeatable)")
	cmd.Flags().StringVar(&opts.ChecklistTemplateID, "checklist", "", "checklist template id (defaults to the trade's first)")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("job-type")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("scheduled-for")
	return cmd
}

func jobListCmd() *cobra.Command {
	var f repo.WorkOrderFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				f.BusinessID = businessID
				items, err := e.Repo.ListWorkOrders(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Customer", "Job", "Status", "Priority", "Scheduled", "Trade"})
				for _, w := range items {
					tw.AppendRow(table.Row{w.ID, w.CustomerName, w.JobType, w.Status, w.Priority, w.ScheduledFor, w.Trade})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "priority filter")
	cmd.Flags().StringVar(&f.Trade, "trade", "", "trade filter")
	cmd.Flags().StringVar(&f.CustomerID, "customer", "", "customer filter")
	cmd.Flags().StringVar(&f.AssigneeID, "assignee", "", "assignee filter")
	return cmd
}

func jobGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a work order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				w, err := e.Repo.GetWorkOrder(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
}

func jobStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Advance or cancel a work order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				w, err := e.UpdateWorkOrderStatus(ctx, args[0], args[1], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
}

func jobAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <id> <team-member-id>",
		Short: "Assign a work order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				w, err := e.AssignWorkOrder(ctx, args[0], args[1], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
}

func jobCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <id> <item-id>",
		Short: "Toggle a checklist item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				w, err := e.ToggleChecklistItem(ctx, args[0], args[1], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
}

func inventoryCmd() *cobra.Command {
	inv := &cobra.Command{Use: "inventory", Short: "Manage inventory"}
	inv.AddCommand(inventoryAddCmd())
	inv.AddCommand(inventoryListCmd())
	inv.AddCommand(inventoryAdjustCmd())
	return inv
}

func inventoryAddCmd() *cobra.Command {
	var opts engine.InventoryCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an inventory item",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				opts.BusinessID = businessID
				it, err := e.CreateInventoryItem(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(it)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "item name")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category")
	cmd.Flags().StringVar(&opts.SKU, "sku", "", "SKU")
	cmd.Flags().IntVar(&opts.StockLevel, "stock", 0, "initial stock level")
	cmd.Flags().IntVar(&opts.ReorderThreshold, "reorder-at", 0, "reorder threshold")
	cmd.Flags().Float64Var(&opts.CostPerUnit, "cost", 0, "cost per unit")
	cmd.Flags().StringVar(&opts.Supplier, "supplier", "", "supplier")
	cmd.Flags().BoolVar(&opts.TradeSpecific, "trade-specific", false, "trade-specific item")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func inventoryListCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inventory items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				items, err := e.Repo.ListInventory(ctx, repo.InventoryFilters{
					BusinessID: businessID,
					Category:   category,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Category", "Stock", "Reorder At", "Status"})
				for _, it := range items {
					status := classify.StockStatusFor(it.StockLevel, it.ReorderThreshold)
					tw.AppendRow(table.Row{it.ID, it.Name, it.Category, it.StockLevel, it.ReorderThreshold, string(status)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category filter")
	return cmd
}

func inventoryAdjustCmd() *cobra.Command {
	var delta int
	cmd := &cobra.Command{
		Use:   "adjust <id>",
		Short: "Adjust stock by a delta",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				it, err := e.AdjustStock(ctx, args[0], delta, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(it)
			})
		},
	}
	cmd.Flags().IntVar(&delta, "delta", 0, "stock delta (negative to consume)")
	_ = cmd.MarkFlagRequired("delta")
	return cmd
}

func estimateCmd() *cobra.Command {
	est := &cobra.Command{Use: "estimate", Short: "Manage estimates"}
	est.AddCommand(estimateCreateCmd())
	est.AddCommand(estimateListCmd())
	est.AddCommand(estimateStatusCmd())
	return est
}

func estimateCreateCmd() *cobra.Command {
	var customerID, workOrderID, trade, notes string
	var quickItems []string
	var lines []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an estimate",
		Long: `Create an estimate from quick line items and/or free lines.
Quick items reference the trade catalog: --quick id[=qty] (e.g. --quick hvac-filter=2).
Free lines are description=qty=price (e.g. --line "Diagnostic visit=1=89").`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var inputs []engine.EstimateLineInput
			for _, q := range quickItems {
				id, qtyStr, ok := strings.Cut(q, "=")
				qty := 1
				if ok {
					n, err := parsePositiveInt(qtyStr)
					if err != nil {
						return fmt.Errorf("invalid --quick %q: %w", q, err)
					}
					qty = n
				}
				inputs = append(inputs, engine.EstimateLineInput{QuickItemID: id, Quantity: qty})
			}
			for _, l := range lines {
				parts := strings.SplitN(l, "=", 3)
				if len(parts) != 3 {
					return fmt.Errorf("invalid --line %q, expected description=qty=price", l)
				}
				qty, err := parsePositiveInt(parts[1])
				if err != nil {
					return fmt.Errorf("invalid --line %q: %w", l, err)
				}
				var price float64
				if _, err := fmt.Sscanf(parts[2], "%f", &price); err != nil {
					return fmt.Errorf("invalid --line %q: bad price", l)
				}
				inputs = append(inputs, engine.EstimateLineInput{
					Description: parts[0],
					Quantity:    qty,
					UnitPrice:   price,
				})
			}
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				est, err := e.CreateEstimate(ctx, engine.EstimateCreateOptions{
					BusinessID:  businessID,
					CustomerID:  customerID,
					WorkOrderID: workOrderID,
					Trade:       trade,
					Lines:       inputs,
					Notes:       notes,
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(est)
			})
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&workOrderID, "job", "", "work order id")
	cmd.Flags().StringVar(&trade, "trade", "", "trade for quick item lookup")
	cmd.Flags().StringArrayVar(&quickItems, "quick", []string{}, "quick line item id[=qty] (repeatable)")
	cmd.Flags().StringArrayVar(&lines, "line", []string{}, "free line description=qty=price (repeatable)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

func estimateListCmd() *cobra.Command {
	var f repo.EstimateFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List estimates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				f.BusinessID = businessID
				items, err := e.Repo.ListEstimates(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Customer", "Status", "Subtotal", "Total"})
				for _, est := range items {
					tw.AppendRow(table.Row{est.ID, est.CustomerID, est.Status, fmt.Sprintf("%.2f", est.Subtotal), fmt.Sprintf("%.2f", est.Total)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.CustomerID, "customer", "", "customer filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	return cmd
}

func estimateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Advance an estimate (draft -> sent -> accepted/declined)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				est, err := e.UpdateEstimateStatus(ctx, args[0], args[1], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(est)
			})
		},
	}
}

func teamCmd() *cobra.Command {
	team := &cobra.Command{Use: "team", Short: "Manage the team roster"}
	team.AddCommand(teamAddCmd())
	team.AddCommand(teamListCmd())
	return team
}

func teamAddCmd() *cobra.Command {
	var opts engine.TeamMemberCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a team member",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				opts.BusinessID = businessID
				m, err := e.AddTeamMember(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "member name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "member email")
	cmd.Flags().StringVar(&opts.Role, "role", "technician", "role (owner, technician, dispatcher)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func teamListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List team members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				items, err := e.Repo.ListTeamMembers(ctx, businessID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func scheduleCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show the day's scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().UTC()
			if date != "" {
				parsed, err := time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("invalid --date, expected YYYY-MM-DD")
				}
				day = parsed
			}
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				items, err := e.DaySchedule(ctx, businessID, day)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Time", "Customer", "Job", "Status", "Duration"})
				for _, w := range items {
					tw.AppendRow(table.Row{w.ScheduledFor, w.CustomerName, w.JobType, w.Status, w.DurationMinutes})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to show (YYYY-MM-DD, defaults to today)")
	return cmd
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Dashboard rollup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				s, err := e.Summary(ctx, businessID)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
}

func logCmd() *cobra.Command {
	logc := &cobra.Command{Use: "log", Short: "Event log"}
	logc.AddCommand(logTailCmd())
	return logc
}

func logTailCmd() *cobra.Command {
	var n int
	var entityType, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, businessID, entityType, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&entityType, "entity-type", "", "entity type filter")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id filter")
	return cmd
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyDeleteCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key (plaintext shown once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				plaintext := "tdk_" + uuid.NewString()
				key := domain.APIKey{
					ID:         uuid.NewString(),
					BusinessID: businessID,
					Name:       name,
					KeyHash:    repo.HashAPIKey(plaintext),
				}
				tx, err := e.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				if err := e.Repo.InsertAPIKey(ctx, tx, key); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}
				return printJSONOrTable(map[string]string{"id": key.ID, "key": plaintext})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key name")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				items, err := e.Repo.ListAPIKeys(ctx, businessID)
				if err != nil {
					return err
				}
				for i := range items {
					items[i].KeyHash = ""
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func apikeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, businessID string, e engine.Engine) error {
				if err := e.Repo.DeleteAPIKey(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowLegacy bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			_, cfg, err := app.ResolveBusinessAndConfig(cmd.Context(), viper.GetString("business"), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{
				JWTSecret:              os.Getenv("TRADEDESK_JWT_SECRET"),
				AllowLegacyActorHeader: allowLegacy,
			}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("TRADEDESK_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Tradedesk API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowLegacy, "allow-legacy-actor-header", false, "accept X-Actor-Id without auth (dev only)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, string, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	businessID, cfg, err := app.ResolveBusinessAndConfig(ctx, viper.GetString("business"), r)
	if err != nil {
		return err
	}
	// A tradedesk.yml in the workspace overrides the stored config for the
	// duration of the command.
	if override, err := config.LoadOptional(workspace); err != nil {
		return err
	} else if override != nil {
		cfg = override
	}
	e := engine.New(conn, cfg)
	return fn(ctx, businessID, e)
}

// withEngineNoBusiness is for commands that run before any business exists.
func withEngineNoBusiness(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	e := engine.New(conn, nil)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("expected positive integer, got %q", s)
	}
	return n, nil
}
