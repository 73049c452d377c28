package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"linguahub/client"
	"linguahub/providers"
)

func main() {
	server := flag.String("server", "http://localhost:8000", "base URL of the evaluation server")
	provider := flag.String("provider", providers.ProviderDeepSeek, "AI provider identifier")
	apiKey := flag.String("key", os.Getenv("AI_API_KEY"), "provider API key")
	baseURL := flag.String("base-url", "", "provider base URL override")
	model := flag.String("model", "", "provider model override")
	textID := flag.String("text", "cli", "identifier of the study text")
	flag.Parse()

	userInput := flag.Arg(0)
	if userInput == "" || *apiKey == "" {
		fmt.Fprintln(os.Stderr, "usage: practice-cli -provider <name> -key <api-key> \"text to evaluate\"")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := client.New(*server, providers.Config{
		Provider: *provider,
		APIKey:   *apiKey,
		BaseURL:  *baseURL,
		Model:    *model,
	})
	c.OnState = printState

	state, err := c.SubmitPractice(ctx, *textID, userInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nEvaluation failed: %v\n", err)
		os.Exit(1)
	}

	result := state.Result
	if result == nil {
		fmt.Fprintln(os.Stderr, "\nEvaluation completed without a result")
		os.Exit(1)
	}

	fmt.Printf("\n\nScore: %d/100 (acceptable: %v)\n", result.Score, result.IsAcceptable)
	for _, c := range result.Corrections {
		fmt.Printf("  - %q -> %q (%s)\n", c.Original, c.Suggestion, c.Reason)
	}
	fmt.Printf("Feedback: %s\n", result.OverallFeedback)
}

func printState(s client.State) {
	switch s.Phase {
	case client.PhaseSubmitting:
		fmt.Print("Submitting...")
	case client.PhaseStreaming:
		fmt.Printf("\rEvaluating... %3d%%", s.LastProgress)
	case client.PhaseRetrying:
		fmt.Printf("\nConnection lost, retrying (%d/3)...\n", s.RetryCount+1)
	case client.PhaseCompleted:
		fmt.Print("\rEvaluating... 100%")
	case client.PhaseFailed:
		fmt.Printf("\nFailed: %s\n", s.Err)
	}
}
