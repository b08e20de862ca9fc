package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/awarebot/internal/config"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the running awarebot server",
	Long: `Chat with the running awarebot server.

Failed replies are logged server-side; after each failure you are offered
a chance to attach feedback to the log record. Type "exit" or press
Ctrl-D to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		fmt.Println("Connected. Type \"exit\" to quit.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print(colorize(colorBold, "you> "))
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			input := strings.TrimSpace(scanner.Text())
			if input == "exit" || input == "quit" {
				return nil
			}

			var resp struct {
				Reply     string `json:"reply"`
				ErrorType string `json:"error_type"`
				LogIndex  *int   `json:"log_index"`
			}
			httpResp, err := client.post(ctx, "/v1/chat", map[string]string{"input": input})
			if err != nil {
				printError("%v", err)
				continue
			}
			if err := decodeJSON(httpResp, &resp); err != nil {
				printError("%v", err)
				continue
			}

			fmt.Printf("%s %s\n", colorize(colorCyan, "bot>"), resp.Reply)

			if resp.ErrorType != "" {
				printWarning("interaction classified as %q", resp.ErrorType)
			}
			if resp.LogIndex != nil {
				if err := promptFeedback(ctx, client, scanner, *resp.LogIndex); err != nil {
					printError("recording feedback: %v", err)
				}
			}
		}
	},
}

// promptFeedback asks for optional feedback on a just-logged failure and
// submits it. An empty line records an explicit skip.
func promptFeedback(ctx context.Context, client *apiClient, scanner *bufio.Scanner, index int) error {
	fmt.Print("Feedback on that reply? (Enter to skip) ")
	if !scanner.Scan() {
		return scanner.Err()
	}
	text := strings.TrimSpace(scanner.Text())

	body := map[string]any{"text": text, "skip": text == ""}
	resp, err := client.post(ctx, fmt.Sprintf("/v1/log/%d/feedback", index), body)
	if err != nil {
		return err
	}
	var result map[string]string
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}
	if text != "" {
		printSuccess("Feedback recorded")
	}
	return nil
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the failure log and optionally learn a corrected response",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		resp, err := client.get(ctx, "/v1/analysis")
		if err != nil {
			return err
		}

		var report struct {
			Text      string `json:"text"`
			Candidate *struct {
				Category string `json:"category"`
				Input    string `json:"input"`
				Count    int    `json:"count"`
			} `json:"candidate"`
		}
		if err := decodeJSON(resp, &report); err != nil {
			return err
		}

		fmt.Println(report.Text)

		if report.Candidate == nil {
			return nil
		}

		c := report.Candidate
		fmt.Printf("\n%s %q failed %d times (%s).\n",
			colorize(colorBold, "Learning candidate:"), c.Input, c.Count, c.Category)
		fmt.Print("Provide a corrected response (Enter to skip): ")

		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return scanner.Err()
		}
		corrected := strings.TrimSpace(scanner.Text())
		if corrected == "" {
			fmt.Println("Skipped.")
			return nil
		}

		learnResp, err := client.post(ctx, "/v1/knowledge", map[string]string{
			"input":    c.Input,
			"response": corrected,
		})
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(learnResp, &result); err != nil {
			return err
		}

		printSuccess("Learned response for %q", c.Input)
		return nil
	},
}

// --- log ---

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect or clear the failure log",
}

var logViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show logged failures",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/log")
		if err != nil {
			return err
		}

		var body struct {
			Records []struct {
				Timestamp string `json:"timestamp"`
				UserInput string `json:"user_input"`
				ErrorType string `json:"error_type"`
				Feedback  string `json:"feedback"`
			} `json:"records"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		if len(body.Records) == 0 {
			fmt.Println("No failures logged.")
			return nil
		}

		for i, r := range body.Records {
			input := r.UserInput
			if len(input) > 60 {
				input = input[:60] + "..."
			}
			line := fmt.Sprintf("%s  %s  %s  %s",
				colorize(colorCyan, strconv.Itoa(i)),
				r.Timestamp,
				colorize(colorYellow, r.ErrorType),
				input,
			)
			if r.Feedback != "" {
				line += fmt.Sprintf("  [feedback: %s]", r.Feedback)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var logClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all logged failures",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL logged failures. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/v1/log")
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Failure log cleared")
		return nil
	},
}

func init() {
	logClearCmd.Flags().Bool("confirm", false, "confirm log deletion")
	logCmd.AddCommand(logViewCmd)
	logCmd.AddCommand(logClearCmd)
}

// --- knowledge ---

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage learned responses",
}

var knowledgeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List learned input/response pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/knowledge")
		if err != nil {
			return err
		}

		var body struct {
			Entries map[string]string `json:"entries"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		if len(body.Entries) == 0 {
			fmt.Println("No learned responses.")
			return nil
		}
		for input, response := range body.Entries {
			fmt.Printf("%s\n  %s\n", colorize(colorBold, input), response)
		}
		return nil
	},
}

var knowledgeLearnCmd = &cobra.Command{
	Use:   "learn <input> <response>",
	Short: "Teach a corrected response for an input",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/knowledge", map[string]string{
			"input":    args[0],
			"response": args[1],
		})
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Learned response for %q", args[0])
		return nil
	},
}

var knowledgeResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset learned responses to the built-in defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will discard ALL learned responses. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/knowledge/reset", nil)
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Knowledge base reset to defaults")
		return nil
	},
}

func init() {
	knowledgeResetCmd.Flags().Bool("confirm", false, "confirm knowledge reset")
	knowledgeCmd.AddCommand(knowledgeShowCmd)
	knowledgeCmd.AddCommand(knowledgeLearnCmd)
	knowledgeCmd.AddCommand(knowledgeResetCmd)
}

// --- feedback ---

var feedbackCmd = &cobra.Command{
	Use:   "feedback <index> [text]",
	Short: "Attach feedback to a logged failure, or mark it skipped",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid log index %q", args[0])
		}
		skip, _ := cmd.Flags().GetBool("skip")

		text := ""
		if len(args) == 2 {
			text = args[1]
		}
		if !skip && text == "" {
			return fmt.Errorf("feedback text is required unless --skip is set")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), fmt.Sprintf("/v1/log/%d/feedback", index), map[string]any{
			"text": text,
			"skip": skip,
		})
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if skip {
			printSuccess("Marked record %d as skipped", index)
		} else {
			printSuccess("Feedback recorded for record %d", index)
		}
		return nil
	},
}

func init() {
	feedbackCmd.Flags().Bool("skip", false, "mark the feedback prompt as skipped")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
