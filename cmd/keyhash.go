package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/ran-loyalty/internal/auth"
)

var keyhashCmd = &cobra.Command{
	Use:   "keyhash [key]",
	Short: "Hash a shared key for the security config",
	Long: `Print the bcrypt hash to store as bank_webhook_key_hash, telegram_secret_hash or admin_key_hash.
Without an argument a random key is generated and printed along with its hash.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			generated, err := auth.GenerateRandomKey()
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to generate key: %v\n", err)
				os.Exit(1)
			}
			key = generated
			fmt.Println("key: ", key)
		}

		hash, err := auth.HashKey(key, keyhashCost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to hash key: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("hash:", hash)
	},
}

var keyhashCost int

func init() {
	keyhashCmd.Flags().IntVar(&keyhashCost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	rootCmd.AddCommand(keyhashCmd)
}
