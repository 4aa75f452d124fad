package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or clear the persisted session",
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print session validity, timestamps, and remaining lifetime",
	RunE:  runSessionStatus,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the persisted session artifacts",
	RunE:  runSessionClear,
}

func init() {
	sessionCmd.AddCommand(sessionStatusCmd)
	sessionCmd.AddCommand(sessionClearCmd)
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	st := newStore().Status()

	if !st.IsValid {
		fmt.Println("session: absent or expired")
		return nil
	}

	fmt.Println("session: valid")
	fmt.Printf("  created:       %s\n", st.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  expires:       %s\n", st.ExpiresAt.Format(time.RFC3339))
	fmt.Printf("  last activity: %s\n", st.LastActivity.Format(time.RFC3339))
	fmt.Printf("  remaining:     %.0fs\n", st.RemainingSeconds)
	for k, v := range st.UserInfo {
		fmt.Printf("  %s: %s\n", k, v)
	}
	return nil
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	if err := newStore().Clear(); err != nil {
		return err
	}
	fmt.Println("session cleared")
	return nil
}
