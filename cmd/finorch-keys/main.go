// Command finorch-keys manages the SSH private keys finorch uses to reach
// its remote sites, stored in api.ini. Unlike finorch-client/finorch-wrapper
// its argv has no handshake stream to protect, so it is built with cobra
// like the rest of the ecosystem's CLIs.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adacs-australia/finorch/pkg/finconfig"
	"github.com/adacs-australia/finorch/pkg/session"
)

const setSSHKeyUsage = `Usage:

1)  finorch-keys set-ssh-key <session name> <private key>
        eg. finorch-keys set-ssh-key ozstar ~/keys/my_ozstar_key.pem

2)  finorch-keys set-ssh-key ssh <host name or IP> <private key>
        eg. finorch-keys set-ssh-key ssh myvm.hpc.swin.edu.au ~/keys/my_vm_key.pem
`

const removeSSHKeyUsage = `Usage:

1)  finorch-keys remove-ssh-key <session name>
        eg. finorch-keys remove-ssh-key ozstar

2)  finorch-keys remove-ssh-key ssh <host name or IP>
        eg. finorch-keys remove-ssh-key ssh myvm.hpc.swin.edu.au
`

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "finorch-keys",
		Short: "Manage SSH keys finorch uses to reach remote sites",
	}
	root.AddCommand(setSSHKeyCmd())
	root.AddCommand(removeSSHKeyCmd())
	return root
}

func setSSHKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "set-ssh-key",
		Short:              "Configure the private key for a session, or for a generic ssh host",
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			callsign, host, keyPath, err := parseKeyArgs(args, setSSHKeyUsage)
			if err != nil {
				return err
			}

			key, err := os.ReadFile(keyPath)
			if err != nil {
				fmt.Printf("%s does not exist.\n", keyPath)
				return err
			}

			api := finconfig.NewAPIConfig(apiConfigPath())
			name := "key"
			if host != "" {
				name = host
			}
			if err := api.Set(callsign, name, string(key)); err != nil {
				return err
			}
			fmt.Printf("SSH key for session %s updated successfully.\n", callsign)
			return nil
		},
	}
}

func removeSSHKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "remove-ssh-key",
		Short:              "Remove the configured private key for a session, or for a generic ssh host",
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			callsign, host, _, err := parseKeyArgs(append(args, "-"), removeSSHKeyUsage)
			if err != nil {
				return err
			}

			api := finconfig.NewAPIConfig(apiConfigPath())
			name := "key"
			if host != "" {
				name = host
			}
			if err := api.Set(callsign, name, ""); err != nil {
				return err
			}
			fmt.Printf("SSH key for session %s removed successfully.\n", callsign)
			return nil
		},
	}
}

// parseKeyArgs validates a session/ssh-host argument list against the
// registered site table and returns (callsign, genericHost, keyPath).
// genericHost is empty for a named site. The trailing element of args is
// always the key path for set-ssh-key; remove-ssh-key callers pass a
// placeholder so the same parser covers both forms — the original
// distinguishes the two only by whether a key path is read at all.
func parseKeyArgs(args []string, usage string) (callsign, genericHost, keyPath string, err error) {
	if len(args) == 0 {
		fmt.Print(usage)
		return "", "", "", fmt.Errorf("missing session argument")
	}
	callsign = args[0]

	site, lookupErr := session.LookupSite(callsign)
	if lookupErr != nil {
		fmt.Printf("%s is not a valid session name.\n", callsign)
		return "", "", "", lookupErr
	}
	if !site.Remote {
		fmt.Printf("%s is not a session that utilises an SSH Transport.\n", callsign)
		return "", "", "", fmt.Errorf("%s is not an ssh session", callsign)
	}

	wantArgs := 2
	if site.IsGeneric {
		wantArgs = 3
	}
	if len(args) != wantArgs {
		fmt.Print(usage)
		return "", "", "", fmt.Errorf("incorrect number of arguments")
	}

	if site.IsGeneric {
		return callsign, args[1], args[2], nil
	}
	return callsign, "", args[1], nil
}

func apiConfigPath() string {
	if p := os.Getenv("FINORCH_API_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".finorch", "api.ini")
}
