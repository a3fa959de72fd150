package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage ingested documents",
	Long:  `List, inspect, or remove documents from the corpus database.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document info and chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Remove a document and its chunks",
	Long: `Removes a document from the corpus database. The vector index keeps
its entries until the next ingest; queries hitting removed chunks skip
them during hydration.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentDelete,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	store, err := openDocStore()
	if err != nil {
		return err
	}
	defer store.Close()

	docs, err := store.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}

	for _, doc := range docs {
		title := doc.Title
		if title == "" {
			title = doc.URI
		}
		cmd.Printf("  %s  %s\n", doc.ID, title)
	}
	cmd.Printf("%d documents\n", len(docs))
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	store, err := openDocStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	doc, err := store.GetDocument(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("ID:       %s\n", doc.ID)
	cmd.Printf("URI:      %s\n", doc.URI)
	cmd.Printf("Title:    %s\n", doc.Title)
	if !doc.IngestedAt.IsZero() {
		cmd.Printf("Ingested: %s\n", doc.IngestedAt.Format("2006-01-02 15:04:05"))
	}

	chunks, err := store.GetChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}
	cmd.Printf("Chunks:   %d\n", len(chunks))
	for _, c := range chunks {
		cmd.Printf("  [%d] %s (%d-%d)\n", c.Position, c.ID, c.Start, c.End)
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	store, err := openDocStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteDocument(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}
