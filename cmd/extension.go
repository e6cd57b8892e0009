package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// Environment variables passed to extensions.
const (
	EnvDatabase = "FOLIO_DB"
	EnvMarket   = "FOLIO_MARKET"
	EnvCurrency = "FOLIO_CURRENCY"
	EnvVerbose  = "FOLIO_VERBOSE"
)

// RunExtension attempts to find and execute an external pf-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found.
//
// The global flags are passed to the extension as environment variables.
func RunExtension(subcommand string, args []string) (bool, int) {
	name := "pf-" + subcommand
	lp, err := exec.LookPath(name)
	if err != nil {
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr

	cmd.Env = os.Environ()
	if cfg, err := settings(); err == nil {
		cmd.Env = append(cmd.Env,
			EnvDatabase+"="+cfg.DatabasePath,
			EnvMarket+"="+cfg.MarketPath,
			EnvCurrency+"="+cfg.Currency,
		)
	}
	cmd.Env = append(cmd.Env, EnvVerbose+"="+strconv.FormatBool(*Verbose))

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return true, exitError.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", name, err)
		return true, 1
	}
	return true, 0
}
