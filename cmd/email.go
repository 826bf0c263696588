package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trychroma/gtm-cli/pkg/gmailer"
)

var emailCmd = &cobra.Command{
	Use:   "email",
	Short: "Outreach email search and drafting via Gmail",
}

var emailSearchLimit int

var emailSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the mailbox with Gmail query syntax",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := gmailClient(cmd)
		if err != nil {
			return err
		}

		messages, err := client.Search(ctx, args[0], emailSearchLimit)
		if err != nil {
			return err
		}

		for _, m := range messages {
			fmt.Printf("%s\t%s\t%s\t%s\n", m.ID, m.Date, m.From, m.Subject)
		}
		zap.L().Info("email search complete", zap.Int("results", len(messages)))
		return nil
	},
}

var (
	emailDraftTo      string
	emailDraftSubject string
	emailDraftBody    string
	emailDraftSend    bool
)

var emailDraftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Create an outreach draft (or send it with --send)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		client, err := gmailClient(cmd)
		if err != nil {
			return err
		}

		draft := gmailer.Draft{
			To:      emailDraftTo,
			Subject: emailDraftSubject,
			Body:    emailDraftBody,
		}

		if emailDraftSend {
			id, err := client.Send(ctx, draft)
			if err != nil {
				return err
			}
			zap.L().Info("email sent", zap.String("id", id), zap.String("to", draft.To))
			return nil
		}

		id, err := client.CreateDraft(ctx, draft)
		if err != nil {
			return err
		}
		zap.L().Info("draft created", zap.String("id", id), zap.String("to", draft.To))
		return nil
	},
}

func gmailClient(cmd *cobra.Command) (gmailer.Client, error) {
	if cfg.Google.CredentialsFile == "" || cfg.Google.TokenFile == "" {
		return nil, eris.New("google credentials and token files are required (GTM_GOOGLE_CREDENTIALS_FILE, GTM_GOOGLE_TOKEN_FILE)")
	}
	return gmailer.NewClient(cmd.Context(), cfg.Google.CredentialsFile, cfg.Google.TokenFile)
}

func init() {
	emailSearchCmd.Flags().IntVar(&emailSearchLimit, "limit", 20, "maximum messages to return")

	emailDraftCmd.Flags().StringVar(&emailDraftTo, "to", "", "recipient address (required)")
	emailDraftCmd.Flags().StringVar(&emailDraftSubject, "subject", "", "message subject (required)")
	emailDraftCmd.Flags().StringVar(&emailDraftBody, "body", "", "message body (required)")
	emailDraftCmd.Flags().BoolVar(&emailDraftSend, "send", false, "send immediately instead of drafting")
	_ = emailDraftCmd.MarkFlagRequired("to")
	_ = emailDraftCmd.MarkFlagRequired("subject")
	_ = emailDraftCmd.MarkFlagRequired("body")

	emailCmd.AddCommand(emailSearchCmd)
	emailCmd.AddCommand(emailDraftCmd)
	rootCmd.AddCommand(emailCmd)
}
