package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kayz/promptblocks/internal/block"
	"github.com/kayz/promptblocks/internal/compiler"
	"github.com/kayz/promptblocks/internal/config"
	"github.com/kayz/promptblocks/internal/logger"
	"github.com/kayz/promptblocks/internal/persist"
	"github.com/kayz/promptblocks/internal/program"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newCompileCommand())
}

func newCompileCommand() *cobra.Command {
	var (
		programID  string
		filePath   string
		outputPath string
		record     bool
		showStats  bool
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a stored program or a block file into prompt text",
		Long: `Compile a stored program (--program) or a JSON file (--file) into the final
prompt. The file may hold a block array or a whole program; use "-" to read
from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (programID == "") == (filePath == "") {
				return fmt.Errorf("exactly one of --program or --file is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var blocks []block.Instance
			if programID != "" {
				err = withStore(func(_ *config.Config, store *persist.Store) error {
					p, err := store.Get(programID)
					if err != nil {
						return err
					}
					blocks = p.Blocks
					return nil
				})
			} else {
				blocks, err = readBlocksFile(cmd.InOrStdin(), filePath)
			}
			if err != nil {
				return err
			}

			sections := compiler.Sections(blocks)
			prompt := compiler.Render(sections)

			if outputPath == "" {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), prompt); err != nil {
					return err
				}
			} else if err := os.WriteFile(outputPath, []byte(prompt), 0644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			if showStats {
				st := compiler.Measure(prompt)
				fmt.Fprintf(cmd.ErrOrStderr(), "%d chars, %d words, %d lines\n", st.Chars, st.Words, st.Lines)
			}

			if record {
				audit := cfg.Audit
				audit.Enabled = true
				if err := compiler.NewRecorder(audit).Record(programID, blocks, prompt, sections); err != nil {
					logger.Warn("[Compile] Failed to record audit: %v", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&programID, "program", "", "ID of a stored program")
	cmd.Flags().StringVar(&filePath, "file", "", "JSON file holding a block array or a program (\"-\" for stdin)")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write output to file (default: stdout)")
	cmd.Flags().BoolVar(&record, "record", false, "Append the compile to the audit log")
	cmd.Flags().BoolVar(&showStats, "stats", false, "Print character, word and line counts to stderr")
	return cmd
}

// readBlocksFile loads blocks from a block array or a program object.
func readBlocksFile(stdin io.Reader, path string) ([]block.Instance, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read blocks: %w", err)
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var p program.Program
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, fmt.Errorf("parse program: %w", err)
		}
		return p.Blocks, nil
	}

	blocks, err := block.DecodeList(data)
	if err != nil {
		return nil, fmt.Errorf("parse blocks: %w", err)
	}
	return blocks, nil
}
