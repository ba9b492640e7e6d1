package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	errNotConfirmed = errors.New("aborted by user")
	errNoTerminal   = errors.New("confirmation required but stdin is not a terminal (pass --yes)")
	stdinIsTerminal = isTerminal
)

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// confirmAction asks a yes/no question on the command's stdin. Anything but
// y or yes declines.
func confirmAction(cmd *cobra.Command, question string) error {
	in := cmd.InOrStdin()
	if !stdinIsTerminal(in) {
		return errNoTerminal
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	default:
		return errNotConfirmed
	}
}
