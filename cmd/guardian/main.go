package main

import (
	"fmt"
	"os"
)

func main() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(signPaymentCmd)
	rootCmd.AddCommand(identityProofCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(indexerCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
