package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peoplehub/peoplehub-backend/internal/hr/repository"
	"github.com/peoplehub/peoplehub-backend/internal/hr/service"
	"github.com/spf13/cobra"
)

type importOutput struct {
	Command    string                `json:"command"`
	File       string                `json:"file"`
	DurationMS int64                 `json:"duration_ms"`
	Result     *service.ImportResult `json:"result"`
}

func newImportCmd() *cobra.Command {
	var (
		sheet   string
		strict  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import employees from a spreadsheet without going through the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
				return fmt.Errorf("%s: only .xlsx workbooks are supported", path)
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			opts := service.ImportOptions{Sheet: e.cfg.Import.Sheet, Strict: e.cfg.Import.Strict}
			if cmd.Flags().Changed("sheet") {
				opts.Sheet = sheet
			}
			if cmd.Flags().Changed("strict") {
				opts.Strict = strict
			}
			if timeout <= 0 {
				timeout = e.cfg.Import.Timeout
			}

			importer := service.NewImportService(repository.NewImportStore(e.db), nil, opts, e.log)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			start := time.Now()
			res, err := importer.ImportEmployees(ctx, f, service.ImportMeta{
				FileName:    filepath.Base(path),
				RequestedBy: serviceName,
			})
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), importOutput{
				Command:    "import",
				File:       path,
				DurationMS: time.Since(start).Milliseconds(),
				Result:     res,
			})
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name (default: first sheet)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Report unparseable cells per row")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort after this long (default: import.timeout)")
	return cmd
}
