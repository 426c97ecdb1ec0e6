package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/tokenize-x/tx-relayer/pkg/store"
)

// DumpPathsCmd prints every persisted relay path as JSON.
func DumpPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump-paths",
		Short: "Print the persisted relay paths as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := loadConfig()
			st, err := store.Open(cfg.DBFile)
			if err != nil {
				return err
			}
			defer st.Close()

			paths, err := st.Paths()
			if err != nil {
				return err
			}
			if paths == nil {
				paths = []store.RelayPath{}
			}
			bz, err := json.MarshalIndent(paths, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(bz))
			return nil
		},
	}
}
