package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stackfn-io/stackfn/internal/param"
)

var paramCmd = &cobra.Command{
	Use:   "param",
	Short: "Read and write bridge parameters",
}

var paramGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Read a parameter value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := param.NewStore(cmd.Context(), region)
		if err != nil {
			return err
		}
		value, err := store.Read(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var paramPutCmd = &cobra.Command{
	Use:   "put <name> <value>",
	Short: "Write a parameter value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := param.NewStore(cmd.Context(), region)
		if err != nil {
			return err
		}
		return store.Put(cmd.Context(), args[0], args[1])
	},
}

func init() {
	paramCmd.AddCommand(paramGetCmd)
	paramCmd.AddCommand(paramPutCmd)
}
