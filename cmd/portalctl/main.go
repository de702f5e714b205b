package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"course-portal/internal/questionbank"
)

var rootCmd = &cobra.Command{
	Use:           "portalctl",
	Short:         "local tools for the course portal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var importPreviewCmd = &cobra.Command{
	Use:   "import-preview <file|->",
	Short: "parse pasted question text and print the drafts",
	Args:  cobra.ExactArgs(1),
	RunE:  importPreview,
}

func init() {
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.AddCommand(importPreviewCmd)
	rootCmd.AddCommand(favoritesCmd)
}

func readInput(cmd *cobra.Command, name string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func importPreview(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	res := questionbank.Preview(raw)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Drafts); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d drafts, %d need review\n", len(res.Drafts), res.NeedsReview)
	return nil
}

func main() {
	defer glog.Flush()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		glog.Flush()
		os.Exit(1)
	}
}
