package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leeforge/thumbnailer/security"
)

// NewEncryptLoopCommand creates the encrypt-loop subcommand, a timing
// harness for the AES-128-CTR cipher.
func NewEncryptLoopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt-loop [flags]",
		Short: "Time repeated AES-128-CTR encryption of a fixed message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			iterations, _ := cmd.Flags().GetInt("iterations")
			res, err := security.EncryptLoop(cmd.Context(), iterations)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "encrypted %q %d times in %s (%s/op)\nciphertext %s\n",
				security.LoopMessage, res.Iterations, res.Elapsed, res.PerOp(), hex.EncodeToString(res.Ciphertext))
			return nil
		},
	}

	cmd.Flags().IntP("iterations", "n", security.LoopIterations, "Number of encryptions")

	return cmd
}
