package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Yates-Labs/scribe/internal/logging"
	"github.com/Yates-Labs/scribe/internal/orchestrator"
	"github.com/Yates-Labs/scribe/internal/rag"
	"github.com/spf13/cobra"
)

var (
	chatFile    string
	chatReuse   bool
	chatBackend string
)

var chatCmd = &cobra.Command{
	Use:   "chat --file document.txt",
	Short: "Chat with a text document using RAG",
	Long: `Index a text document and answer questions about it in an interactive session.

This command:
1. Loads the vector index persisted by an earlier run, if any
2. Splits the document into chunks and indexes their embeddings (OpenAI)
3. For every question, retrieves similar chunks and reranks them (Cohere)
4. Generates an answer from the chunks and the conversation so far (OpenAI)

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for embeddings and the LLM
  CO_API_KEY         - Cohere API key for reranking (optional, reranking is skipped without it)

Type 'exit' to end the session.

Examples:
  scribe chat --file notes.txt
  scribe chat -f notes.txt --reuse
  scribe chat -f notes.txt --backend milvus`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatFile, "file", "f", "", "Path to the .txt document to chat with")
	chatCmd.Flags().BoolVar(&chatReuse, "reuse", false, "Use the existing index instead of re-indexing the document")
	chatCmd.Flags().StringVar(&chatBackend, "backend", "", "Vector index backend: local or milvus (default from config)")
	_ = chatCmd.MarkFlagRequired("file")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	if chatBackend != "" {
		cfg.Index.Backend = chatBackend
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
		}
	}

	if err := rag.ValidateDocumentPath(chatFile); err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	pipeline, err := orchestrator.NewChatPipeline(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s Failed to create chat pipeline: %w", errorStyle.Render("Error:"), err)
	}
	defer pipeline.Close()

	fmt.Fprintln(out, contextStyle.Render("→ Loading vector store and document..."))
	result, err := pipeline.Start(ctx, chatFile, chatReuse)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	if result.Loaded {
		fmt.Fprintln(out, successStyle.Render("✓ Loaded existing vector store from "+result.Index.Location+buildSuffix(result.LoadedBuildID)))
	}
	if result.Rebuilt {
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Indexed %s into %d chunks%s", chatFile, result.Index.Chunks, buildSuffix(result.Index.BuildID))))
	}
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Successfully loaded %s for RAG", chatFile)))
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Simple RAG Chatbot is ready! Type 'exit' to quit."))

	return runChatLoop(ctx, cmd.InOrStdin(), out, pipeline.Chatbot())
}

func buildSuffix(buildID string) string {
	if buildID == "" {
		return ""
	}
	return " (build " + buildID + ")"
}

// answerer is the part of the chatbot the REPL needs.
type answerer interface {
	Answer(ctx context.Context, query string) string
}

// runChatLoop reads questions line by line until "exit" (any case) or end of input.
func runChatLoop(ctx context.Context, in io.Reader, out io.Writer, bot answerer) error {
	if in == nil {
		in = os.Stdin
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "\n"+promptStyle.Render("You:")+" ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Goodbye!")
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(query, "exit") {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		reply := bot.Answer(ctx, query)
		fmt.Fprintf(out, "\n%s %s\n", headerStyle.Render("Chatbot:"), answerStyle.Render(reply))
	}
}
