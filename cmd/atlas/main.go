package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"jan-server/services/chat-api/internal/utils/platformerrors"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", displayError(err))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Atlas chat client",
	Long: `atlas is a terminal client for the Atlas chat API.

It talks to a running chat-api server, or with --local runs the chat services
in-process using the same environment variables as the server.

Examples:
  # Interactive chat against a local server
  atlas chat --user alice

  # One-shot question with a specific model
  atlas chat --provider google --model gemini-1.5-flash "What is a monad?"

  # Manage conversations
  atlas list
  atlas rename conv_abc123 "Trip planning"
  atlas delete conv_abc123

  # No server: in-memory store, provider keys from the environment
  STORE_DRIVER=memory OPENAI_API_KEY=sk-... atlas --local chat`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Existing environment variables take precedence over .env values.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(providersCmd)

	rootCmd.PersistentFlags().String("server", "", "Chat API base URL (env ATLAS_SERVER_URL, default http://localhost:8080)")
	rootCmd.PersistentFlags().String("user", "", "User id sent as X-User-ID when no token is set (env ATLAS_USER_ID)")
	rootCmd.PersistentFlags().String("token", "", "Bearer token for servers with auth enabled (env ATLAS_TOKEN)")
	rootCmd.PersistentFlags().Bool("local", false, "Run the chat services in-process instead of calling a server")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging on stderr")
}

// displayError renders err without the layer and code tags of platform errors.
func displayError(err error) string {
	pe := platformerrors.GetPlatformError(err)
	if pe == nil {
		return err.Error()
	}
	for {
		inner := platformerrors.GetPlatformError(pe.Err)
		if inner == nil {
			break
		}
		pe = inner
	}
	if pe.Err != nil {
		return fmt.Sprintf("%s: %v", pe.Message, pe.Err)
	}
	return pe.Message
}
