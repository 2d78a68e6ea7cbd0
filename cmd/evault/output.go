package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"

	"evidence-vault/internal/app"
	"evidence-vault/internal/evidence"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const (
	formatAuto = "auto"
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validFormat(f string) bool {
	switch f {
	case formatAuto, formatText, formatJSON, formatYAML:
		return true
	}
	return false
}

// printer writes command results in the format chosen with --format. In auto
// mode that is indented JSON when stdout is not a terminal (scripts, pipes)
// and human-readable text otherwise.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(cmd *cobra.Command) *printer {
	format, _ := cmd.Flags().GetString("format")
	return newPrinterFormat(cmd.OutOrStdout(), format)
}

func newPrinterFormat(w io.Writer, format string) *printer {
	if format == "" || format == formatAuto {
		format = formatJSON
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			format = formatText
		}
	}
	return &printer{w: w, format: format}
}

func (p *printer) emit(v any, human func(w io.Writer)) error {
	switch p.format {
	case formatText:
		human(p.w)
		return nil
	case formatYAML:
		return writeYAML(p.w, v)
	default:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	}
}

// writeYAML renders v with the same field names and order as its JSON form.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("converting output: %w", err)
	}
	plainStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return enc.Close()
}

// plainStyle drops the JSON quoting and flow styles so the encoder picks YAML's
// own; strings that would read back as other types stay quoted.
func plainStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		plainStyle(c)
	}
}

func stringFlag(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

// actorFlag returns --actor, or cli:<username> for the invoking OS user.
func actorFlag(cmd *cobra.Command) string {
	if v := stringFlag(cmd, "actor"); v != "" {
		return v
	}
	return defaultActor()
}

func defaultActor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "cli:" + u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return "cli:" + name
	}
	return "cli:unknown"
}

// readPassphrase prompts on prompt with echo disabled when stdin is a terminal.
// Piped stdin is read as a single line without prompting.
func readPassphrase(prompt io.Writer, confirm bool) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return "", errors.New("passphrase is empty")
		}
		return line, nil
	}

	fmt.Fprint(prompt, "Passphrase: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if len(first) == 0 {
		return "", errors.New("passphrase is empty")
	}
	if !confirm {
		return string(first), nil
	}

	fmt.Fprint(prompt, "Confirm passphrase: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("reading passphrase confirmation: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passphrases do not match")
	}
	return string(first), nil
}

const timeLayout = "2006-01-02 15:04:05"

func printItems(w io.Writer, items []*evidence.EvidenceItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No evidence.")
		return
	}
	for _, it := range items {
		fmt.Fprintf(w, "%s  %s  %s  %10d  %-24s  %s\n",
			it.EvidenceID,
			it.SHA256[:12],
			it.ReceivedAt.Format(timeLayout),
			it.Size,
			it.MIME,
			it.OriginalName,
		)
	}
}

func printCases(w io.Writer, cases []*evidence.Case) {
	if len(cases) == 0 {
		fmt.Fprintln(w, "No cases.")
		return
	}
	for _, c := range cases {
		fmt.Fprintf(w, "%-24s  %-6s  %-6s  %-8s  updated %s\n",
			c.CaseID,
			c.Sensitivity,
			c.RetentionPolicy,
			c.Status,
			c.UpdatedAt.Format(timeLayout),
		)
	}
}

func printEvents(w io.Writer, events []*evidence.AuditEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No audit events.")
		return
	}
	for _, e := range events {
		subject := e.CaseID
		if e.EvidenceID != "" {
			subject += "/" + e.EvidenceID
		}
		fmt.Fprintf(w, "#%-6d %s  %-7s %-20s %s  %s\n",
			e.EventID,
			e.Timestamp.Format(timeLayout),
			e.EventType,
			e.Actor,
			subject,
			e.DetailsRedacted,
		)
	}
}

func printAuditHealth(w io.Writer, h *app.AuditHealth) {
	if h.Chain.OK() {
		fmt.Fprintf(w, "Chain:      intact (%d records)\n", h.Chain.Records)
	} else {
		fmt.Fprintf(w, "Chain:      BROKEN at line %d (event %d): %s\n", h.Chain.BrokenAt, h.Chain.EventID, h.Chain.Reason)
	}

	r := h.Reconciliation
	if r.Consistent() {
		fmt.Fprintf(w, "Reconcile:  consistent (%d events)\n", r.TableEvents)
		return
	}
	fmt.Fprintf(w, "Reconcile:  INCONSISTENT (table %d, file %d)\n", r.TableEvents, r.FileEvents)
	if len(r.MissingFromFile) > 0 {
		fmt.Fprintf(w, "  missing from file:  %v\n", r.MissingFromFile)
	}
	if len(r.MissingFromTable) > 0 {
		fmt.Fprintf(w, "  missing from table: %v\n", r.MissingFromTable)
	}
	if len(r.Mismatched) > 0 {
		fmt.Fprintf(w, "  mismatched:         %v\n", r.Mismatched)
	}
}
