package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a scenario, assertion or validation failed
	ExitCommandError = 2 // the command could not do its job: bad path, flag or machine
)

// ExitError carries the exit code a failed command should produce.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError creates an ExitError around err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps a command error to a process exit code. Errors that
// carry no code are failures.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the envelope every JSON-mode command writes.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"` // E_LOAD, E_RUN, E_INVALID, E_TEST_FAILED
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Printer writes command output in the selected format. Diagnostics go to a
// separate writer so JSON on stdout stays parseable.
type Printer struct {
	Format  string
	Out     io.Writer
	Diag    io.Writer
	Verbose bool
	Indent  bool // pretty-print JSON envelopes
}

func newPrinter(opts *RootOptions, cmd *cobra.Command) *Printer {
	return &Printer{
		Format:  opts.Format,
		Out:     cmd.OutOrStdout(),
		Diag:    cmd.ErrOrStderr(),
		Verbose: opts.Verbose,
	}
}

// JSON reports whether output is machine-readable.
func (p *Printer) JSON() bool { return p.Format == "json" }

// OK writes a success payload: an envelope in JSON mode, the value itself
// otherwise.
func (p *Printer) OK(data any) error {
	if p.JSON() {
		return p.Envelope(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(p.Out, data)
	return err
}

// Fail writes an error report. Details appear in text mode only when
// verbose.
func (p *Printer) Fail(code, message string, details any) error {
	if p.JSON() {
		return p.Envelope(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	if _, err := fmt.Fprintf(p.Out, "Error [%s]: %s\n", code, message); err != nil {
		return err
	}
	if p.Verbose && details != nil {
		_, err := fmt.Fprintf(p.Out, "Details: %v\n", details)
		return err
	}
	return nil
}

// Envelope encodes resp as one JSON document.
func (p *Printer) Envelope(resp CLIResponse) error {
	enc := json.NewEncoder(p.Out)
	if p.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}

// Textf writes a line in text mode and nothing in JSON mode.
func (p *Printer) Textf(format string, args ...any) {
	if p.JSON() {
		return
	}
	fmt.Fprintf(p.Out, format+"\n", args...)
}

// Debugf writes a diagnostic line when verbose.
func (p *Printer) Debugf(format string, args ...any) {
	if !p.Verbose {
		return
	}
	w := p.Diag
	if w == nil {
		w = p.Out
	}
	fmt.Fprintf(w, format+"\n", args...)
}
