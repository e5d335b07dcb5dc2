package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ragrt/internal/auditstream"
)

var auditCmd = &cobra.Command{
	Use:   "audit [session-id]",
	Short: "print the persisted audit trail for a session",
	Long: `Reads the append-only audit_<session>.jsonl file written by the
runtime when audit persistence is enabled (RAGRT_AUDIT_DIR or
audit.persistence_dir in config.yaml) and prints one line per event.`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.store.Close()

	dir := rt.cfg.Audit.PersistenceDir
	if dir == "" {
		ws := workspace
		if ws == "" {
			ws = "."
		}
		dir = filepath.Join(ws, ".ragrt", "audit")
	}
	path := filepath.Join(dir, fmt.Sprintf("audit_%s.jsonl", sessionID))

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("no audit trail found for session %q at %s\n", sessionID, path)
			return nil
		}
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var evt auditstream.Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			return fmt.Errorf("parse audit event: %w", err)
		}
		fmt.Printf("%s  %-22s  %-8s  %s\n", evt.Timestamp.Format("2006-01-02T15:04:05Z"), evt.EventType, evt.Severity, evt.Message)
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan audit file: %w", err)
	}

	fmt.Printf("%d events\n", count)
	return nil
}
