package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Print the cleaned text of a PDF, DOCX or plain text document",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("type", "t", "", "document type (text, pdf, docx); detected from the file when empty")
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	declared, _ := cmd.Flags().GetString("type")

	doc, err := a.loader.LoadDocument(args[0], declared)
	if err != nil {
		return err
	}

	text, err := a.extractor.Extract(cmd.Context(), doc)
	if err != nil {
		return err
	}

	a.log.Debug("extracted document", zap.String("document", doc.Name), zap.String("media_type", string(doc.MediaType)))
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
