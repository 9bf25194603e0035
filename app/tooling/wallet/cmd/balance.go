package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type balance struct {
	Account     string `json:"account"`
	Balance     int64  `json:"balance"`
	LatestBlock string `json:"latest_block"`
	Uncommitted int    `json:"uncommitted"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the balance of the account.",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) error {
	resp, err := http.Get(fmt.Sprintf("%s/v1/balance/%s", url, accountName))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("balance: status %d", resp.StatusCode)
	}

	var bal balance
	if err := json.NewDecoder(resp.Body).Decode(&bal); err != nil {
		return err
	}

	fmt.Println("For Account:", bal.Account)
	fmt.Println("Latest Block:", bal.LatestBlock)
	fmt.Println("Balance:", bal.Balance)

	return nil
}
