package main

import (
	"fmt"
	"io"

	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/internal/errutil"
	"github.com/spf13/cobra"
)

func newCheckoutCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout <revision>",
		Short: "Switch HEAD and populate the work tree to match a commit",
		Args:  cobra.ExactArgs(1),
	}

	force := cmd.Flags().Bool("force", false, "Checkout even if the work tree is not empty.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return checkoutCmd(cmd.OutOrStdout(), cfg, args[0], *force)
	}
	return cmd
}

func checkoutCmd(out io.Writer, cfg *globalFlags, rev string, force bool) (err error) {
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	toTry := []string{
		rev,
		ginternals.RefFullName(rev),
		ginternals.LocalBranchFullName(rev),
	}

	var oid ginternals.Oid
	var refName string
	for _, name := range toTry {
		ref, err := r.GetReference(name)
		if err == nil {
			oid = ref.Target()
			refName = ref.Name()
			break
		}
	}
	if oid.IsZero() {
		var err error
		oid, err = ginternals.NewOidFromStr(rev)
		if err != nil {
			return fmt.Errorf("not a valid revision %s", rev)
		}
	}

	c, err := r.GetCommit(oid)
	if err != nil {
		return fmt.Errorf("could not get commit %s: %w", rev, err)
	}

	tree, err := r.GetTree(c.TreeID())
	if err != nil {
		return fmt.Errorf("could not get tree of commit %s: %w", rev, err)
	}

	if err := r.CheckoutTree(tree, force); err != nil {
		return err
	}

	if refName != "" {
		if err := r.SetHead(ginternals.NewSymbolicReference(ginternals.Head, refName)); err != nil {
			return err
		}
	} else {
		if err := r.SetHead(ginternals.NewReference(ginternals.Head, c.ID())); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "HEAD is now at %s\n", c.ID().String())
	return nil
}
