// Command aff4imager is a minimal front end over the aff4/container
// package: open a container, show what variant it is and what it
// declares, and copy its top-level image out to a file or stdout.
//
// Grounded on the teacher's cmd/ convention of a thin cobra root
// command per binary with subcommands doing the real work through the
// library packages, not in the command layer itself.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aff4-go/aff4/aff4"
	"github.com/aff4-go/aff4/aff4/container"
	"github.com/aff4-go/aff4/aff4/lexicon"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "aff4imager",
		Short:         "Inspect and extract AFF4 forensic evidence containers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				aff4.LogLevel = aff4.LevelDebug
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newInfoCmd(), newExtractCmd())
	return root
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <container>",
		Short: "Identify a container's variant and list its declared subjects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container.OpenContainer(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "volume: %s\n", c.Volume.VolumeURN())
			fmt.Fprintf(cmd.OutOrStdout(), "variant: %s\n", variantName(c.Variant))
			for _, m := range c.Volume.Members() {
				fmt.Fprintf(cmd.OutOrStdout(), "  member: %s\n", m)
			}
			for _, s := range c.Resolver.Store.Subjects() {
				fmt.Fprintf(cmd.OutOrStdout(), "  subject: %s\n", s)
			}
			return nil
		},
	}
}

func newExtractCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "extract <container>",
		Short: "Copy a container's top-level declared image or map stream out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container.OpenContainer(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			obj, err := c.Open()
			if err != nil {
				return err
			}
			src, ok := obj.(interface{ ReadAt([]byte, int64) (int, error) })
			if !ok {
				return fmt.Errorf("aff4imager: %s has no readable stream", obj.URN().String())
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return copyAll(w, src)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func copyAll(w io.Writer, src interface{ ReadAt([]byte, int64) (int, error) }) error {
	buf := make([]byte, 1<<20)
	var off int64
	for {
		n, err := src.ReadAt(buf, off)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			off += int64(n)
		}
		if err == io.EOF || n == 0 {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func variantName(v lexicon.Variant) string {
	switch v {
	case lexicon.Standard:
		return "aff4-standard"
	case lexicon.PreStandard:
		return "pre-standard"
	case lexicon.Scudette:
		return "scudette"
	default:
		return "unknown"
	}
}
