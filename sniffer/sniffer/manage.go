package sniffer

import (
	"github.com/spf13/cobra"

	"github.com/derktes/rfsniffer/store"
)

func newCopyCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <old> <new>",
		Short: "Copy a button to a new name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.Copy(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				o.logger.Info("copied", "from", args[0], "to", args[1])
				return nil
			})
		},
	}
}

func newRenameCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a button",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.Rename(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				o.logger.Info("renamed", "from", args[0], "to", args[1])
				return nil
			})
		},
	}
}

func newDeleteCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name...>",
		Short: "Delete buttons",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.Delete(cmd.Context(), args...); err != nil {
					return err
				}
				for _, name := range args {
					o.logger.Info("deleted", "button", name)
				}
				return nil
			})
		},
	}
}
