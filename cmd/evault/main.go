package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"evidence-vault/internal/app"
	"evidence-vault/internal/config"
	"evidence-vault/internal/encryption"
	"evidence-vault/internal/evidence"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file named by the application defaults.
func loadConfig() (*config.Config, map[string]string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, nil, fmt.Errorf("reading config (run `evault config init` first): %w", err)
	}
	return cfg, defaults, nil
}

// withApp opens the vault for one command, runs fn, and closes the vault.
// A failure from fn is recorded against the operation before Close logs it.
func withApp(cmd *cobra.Command, command string, fn func(ctx context.Context, a *app.EvidenceApp) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.NewEvidenceApp(cfg, command)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	err = fn(cmd.Context(), a)
	a.Fail(err)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

var rootCmd = &cobra.Command{
	Use:          "evault",
	Short:        "Local evidentiary storage: ingest, verify and export case evidence",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if f, _ := cmd.Flags().GetString("format"); !validFormat(f) {
			return fmt.Errorf("unknown output format %q (auto, text, json or yaml)", f)
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		vaultID := uuid.New().String()
		cfg := config.NewConfig(vaultID, defaults["base_dir"])
		if root, _ := cmd.Flags().GetString("vault-root"); root != "" {
			abs, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("resolving vault root: %w", err)
			}
			cfg.VaultRoot = abs
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		out := newPrinter(cmd)
		return out.emit(cfg, func(w io.Writer) {
			fmt.Fprintf(w, "Configuration initialized at %s\n", defaults["config_path"])
			fmt.Fprintf(w, "Vault ID:   %s\n", vaultID)
			fmt.Fprintf(w, "Vault root: %s\n", cfg.VaultRoot)
		})
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig()
		if err != nil {
			return err
		}

		out := newPrinter(cmd)
		return out.emit(cfg, func(w io.Writer) {
			fmt.Fprintf(w, "Configuration from %s:\n\n", defaults["config_path"])
			fmt.Fprintf(w, "Vault ID:    %s\n", cfg.VaultID)
			fmt.Fprintf(w, "Vault root:  %s\n", cfg.VaultRoot)
			fmt.Fprintf(w, "Log dir:     %s\n", cfg.LogDir)
			fmt.Fprintf(w, "Objects:     %s (shard depth %d)\n", cfg.Objects.Type, cfg.Objects.ShardDepth)
			fmt.Fprintf(w, "Catalog:     %s\n", cfg.Catalog.Type)
			fmt.Fprintf(w, "Defaults:    sensitivity=%s retention=%s\n", cfg.Ingest.DefaultSensitivity, cfg.Ingest.DefaultRetention)
			fmt.Fprintf(w, "Sealing:     %s\n", cfg.Export.Sealing)
		})
	},
}

// ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest PATH",
	Short: "Admit a file, or every file in a directory, as evidence for a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caseID, _ := cmd.Flags().GetString("case")
		recursive, _ := cmd.Flags().GetBool("recursive")
		req := evidence.IngestRequest{
			CaseID:      caseID,
			Actor:       actorFlag(cmd),
			Sensitivity: stringFlag(cmd, "sensitivity"),
			Retention:   stringFlag(cmd, "retention"),
		}

		return withApp(cmd, "ingest", func(ctx context.Context, a *app.EvidenceApp) error {
			out := newPrinter(cmd)

			info, err := os.Stat(args[0])
			if err == nil && info.IsDir() {
				items, err := a.IngestDirectory(ctx, args[0], recursive, req)
				if perr := out.emit(items, func(w io.Writer) { printItems(w, items) }); perr != nil && err == nil {
					err = perr
				}
				return err
			}

			req.Path = args[0]
			item, err := a.Ingest(ctx, req)
			if err != nil {
				return err
			}
			return out.emit(item, func(w io.Writer) { printItems(w, []*evidence.EvidenceItem{item}) })
		})
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify EVIDENCE_ID",
	Short: "Re-hash a stored object and compare it with the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actor := actorFlag(cmd)
		return withApp(cmd, "verify", func(ctx context.Context, a *app.EvidenceApp) error {
			res, err := a.Verify(ctx, args[0], actor)
			if err != nil {
				return err
			}
			out := newPrinter(cmd)
			if err := out.emit(res, func(w io.Writer) {
				if res.OK {
					fmt.Fprintf(w, "OK       %s\n", args[0])
				} else {
					fmt.Fprintf(w, "FAILED   %s  %s\n", args[0], res.Reason)
				}
			}); err != nil {
				return err
			}
			return res.Err()
		})
	},
}

// manifest command
var manifestCmd = &cobra.Command{
	Use:   "manifest CASE_ID",
	Short: "Build, store and print the manifest of a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "manifest", func(ctx context.Context, a *app.EvidenceApp) error {
			m, path, err := a.GetManifest(ctx, args[0])
			if err != nil {
				return err
			}
			data, err := m.Encode()
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "manifest written to %s\n", path)
			return nil
		})
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export CASE_ID",
	Short: "Package a case into a zip archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actor := actorFlag(cmd)
		return withApp(cmd, "export", func(ctx context.Context, a *app.EvidenceApp) error {
			res, err := a.Export(ctx, args[0], actor)
			if err != nil {
				return err
			}
			out := newPrinter(cmd)
			return out.emit(res, func(w io.Writer) {
				fmt.Fprintf(w, "Archive: %s\n", res.ArchivePath)
				fmt.Fprintf(w, "SHA256:  %s\n", res.ArchiveDigest)
				if res.SealedPath != "" {
					fmt.Fprintf(w, "Sealed:  %s\n", res.SealedPath)
				}
			})
		})
	},
}

// cases command
var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "List cases",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "cases", func(ctx context.Context, a *app.EvidenceApp) error {
			cases, err := a.ListCases(ctx)
			if err != nil {
				return err
			}
			out := newPrinter(cmd)
			return out.emit(cases, func(w io.Writer) { printCases(w, cases) })
		})
	},
}

// items command
var itemsCmd = &cobra.Command{
	Use:   "items CASE_ID",
	Short: "List the evidence of a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "items", func(ctx context.Context, a *app.EvidenceApp) error {
			items, err := a.ListEvidence(ctx, args[0])
			if err != nil {
				return err
			}
			out := newPrinter(cmd)
			return out.emit(items, func(w io.Writer) { printItems(w, items) })
		})
	},
}

// audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the chain-of-custody log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		filter := evidence.AuditFilter{
			CaseID:     stringFlag(cmd, "case"),
			EvidenceID: stringFlag(cmd, "evidence"),
			Limit:      limit,
		}
		return withApp(cmd, "audit-list", func(ctx context.Context, a *app.EvidenceApp) error {
			events, err := a.AuditTrail(ctx, filter)
			if err != nil {
				return err
			}
			out := newPrinter(cmd)
			return out.emit(events, func(w io.Writer) { printEvents(w, events) })
		})
	},
}

var auditCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the audit file's hash chain and reconcile it with the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "audit-check", func(ctx context.Context, a *app.EvidenceApp) error {
			health, err := a.CheckAudit(ctx)
			if err != nil {
				return err
			}
			out := newPrinter(cmd)
			if err := out.emit(health, func(w io.Writer) { printAuditHealth(w, health) }); err != nil {
				return err
			}
			if !health.OK() {
				return errors.New("audit log failed verification")
			}
			return nil
		})
	},
}

// catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Maintain the catalog database",
}

var catalogBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a consistent snapshot of the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "catalog-backup", func(ctx context.Context, a *app.EvidenceApp) error {
			path, err := a.BackupCatalog(ctx)
			if err != nil {
				return err
			}
			out := newPrinter(cmd)
			return out.emit(map[string]string{"path": path}, func(w io.Writer) {
				fmt.Fprintf(w, "Catalog snapshot: %s\n", path)
			})
		})
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the age identity used to open sealed exports",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a passphrase-protected identity and add it as an export recipient",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig()
		if err != nil {
			return err
		}
		identityPath := stringFlag(cmd, "identity")
		if identityPath == "" {
			identityPath = defaultIdentityPath(defaults)
		}
		recipientsPath := cfg.Export.RecipientsFile
		if recipientsPath == "" {
			recipientsPath = filepath.Join(defaults["keys_dir"], "recipients.txt")
		}

		passphrase, err := readPassphrase(cmd.ErrOrStderr(), true)
		if err != nil {
			return err
		}

		recipient, err := encryption.GenerateIdentity(identityPath, recipientsPath, passphrase)
		if err != nil {
			return err
		}

		out := newPrinter(cmd)
		return out.emit(map[string]string{
			"recipient":      recipient.String(),
			"identityPath":   identityPath,
			"recipientsFile": recipientsPath,
		}, func(w io.Writer) {
			fmt.Fprintf(w, "Recipient:       %s\n", recipient)
			fmt.Fprintf(w, "Identity:        %s\n", identityPath)
			fmt.Fprintf(w, "Recipients file: %s\n", recipientsPath)
			if cfg.Export.Sealing != "age" {
				fmt.Fprintf(w, "\nSet sealing = \"age\" and recipients_file under [export] to seal exports.\n")
			}
		})
	},
}

// unseal command
var unsealCmd = &cobra.Command{
	Use:   "unseal ARCHIVE.age",
	Short: "Decrypt a sealed export with the local identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}
		identityPath := stringFlag(cmd, "identity")
		if identityPath == "" {
			identityPath = defaultIdentityPath(defaults)
		}
		outPath := stringFlag(cmd, "output")
		if outPath == "" {
			outPath = strings.TrimSuffix(args[0], ".age")
			if outPath == args[0] {
				outPath = args[0] + ".zip"
			}
		}

		passphrase, err := readPassphrase(cmd.ErrOrStderr(), false)
		if err != nil {
			return err
		}
		identity, err := encryption.UnlockIdentity(identityPath, passphrase)
		if err != nil {
			return err
		}

		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening sealed archive: %w", err)
		}
		defer in.Close()

		out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		if err := encryption.Unseal(in, out, identity); err != nil {
			out.Close()
			os.Remove(outPath)
			return err
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("closing output: %w", err)
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "unsealed to %s\n", outPath)
		return nil
	},
}

func defaultIdentityPath(defaults map[string]string) string {
	return filepath.Join(defaults["keys_dir"], "identity.age")
}

func init() {
	rootCmd.PersistentFlags().String("format", formatAuto, "Output format: auto, text, json or yaml")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("vault-root", "", "Vault directory (default <base_dir>/vault)")

	// ingest
	ingestCmd.Flags().StringP("case", "c", "", "Case the evidence belongs to (required)")
	ingestCmd.MarkFlagRequired("case")
	ingestCmd.Flags().StringP("sensitivity", "s", "", "low, medium or high (default from config)")
	ingestCmd.Flags().String("retention", "", "Retention policy label (default from config)")
	ingestCmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories when PATH is a directory")

	for _, c := range []*cobra.Command{ingestCmd, verifyCmd, exportCmd} {
		c.Flags().String("actor", "", "Actor recorded in the audit log (default cli:<username>)")
	}

	// audit subcommands
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditCheckCmd)
	auditListCmd.Flags().String("case", "", "Only events for this case")
	auditListCmd.Flags().String("evidence", "", "Only events for this evidence id")
	auditListCmd.Flags().IntP("limit", "n", 0, "Maximum number of events to show (0 for all)")

	// catalog subcommands
	catalogCmd.AddCommand(catalogBackupCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)
	keysInitCmd.Flags().String("identity", "", "Identity file (default <base_dir>/keys/identity.age)")
	unsealCmd.Flags().String("identity", "", "Identity file (default <base_dir>/keys/identity.age)")
	unsealCmd.Flags().StringP("output", "o", "", "Output path (default ARCHIVE without .age)")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(casesCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(unsealCmd)
}
