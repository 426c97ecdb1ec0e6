package cmd

import (
	"bufio"
	"fmt"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/spf13/cobra"

	"github.com/tokenize-x/tx-relayer/pkg/keyring"
	"github.com/tokenize-x/tx-relayer/pkg/store"
)

const flagChainID = "chain-id"

// AddMnemonicCmd stores a signing mnemonic for one chain in the OS keyring. The
// mnemonic is read from stdin so it never appears in the shell history.
func AddMnemonicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-mnemonic --chain-id <id>",
		Short: "Store the relayer signing mnemonic for a chain in the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			chainID, err := cmd.Flags().GetString(flagChainID)
			if err != nil {
				return err
			}

			reader := bufio.NewReader(cmd.InOrStdin())
			mnemonic, err := reader.ReadString('\n')
			if err != nil && mnemonic == "" {
				return fmt.Errorf("reading mnemonic from stdin: %w", err)
			}

			kr, err := keyring.Open()
			if err != nil {
				return err
			}
			if err := kr.SetMnemonic(chainID, strings.TrimSpace(mnemonic)); err != nil {
				return err
			}
			cmd.Printf("Stored mnemonic for chain %q.\n", chainID)
			return nil
		},
	}
	cmd.Flags().String(flagChainID, "", "chain id the mnemonic signs for")
	//nolint:errcheck // flag was registered right above.
	cmd.MarkFlagRequired(flagChainID)
	return cmd
}

// AddGasPriceCmd records the gas price of a chain, e.g. "0.025uatom".
func AddGasPriceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-gas-price --chain-id <id> <price><denom>",
		Short: "Record the gas price used for transactions on a chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := cmd.Flags().GetString(flagChainID)
			if err != nil {
				return err
			}
			decCoin, err := sdk.ParseDecCoin(args[0])
			if err != nil {
				return fmt.Errorf("parsing gas price %q: %w", args[0], err)
			}

			cfg, _ := loadConfig()
			st, err := store.Open(cfg.DBFile)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SetChainFee(store.ChainFee{
				ChainID:  chainID,
				GasPrice: decCoin.Amount,
				GasDenom: decCoin.Denom,
			}); err != nil {
				return err
			}
			cmd.Printf("Recorded gas price %s for chain %q.\n", args[0], chainID)
			return nil
		},
	}
	cmd.Flags().String(flagChainID, "", "chain id the gas price applies to")
	//nolint:errcheck // flag was registered right above.
	cmd.MarkFlagRequired(flagChainID)
	return cmd
}
