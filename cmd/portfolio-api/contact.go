package main

import (
	"fmt"
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/config"
	"github.com/UsamaUmmsi/portfolio/backend/internal/intake"
	"github.com/UsamaUmmsi/portfolio/backend/internal/submissions"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newContactCommand fills the contact form from flags and submits it, the way
// a visitor would from the page.
func newContactCommand() *cobra.Command {
	var name, email, message string
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Submit a contact message through the intake form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *submissions.Store, appConfig config.AppConfig, logger *zap.Logger) error {
				service, err := intake.NewService(intake.ServiceConfig{
					Store:       store,
					IDs:         submissions.NewMonotonicIDs(time.Now),
					Clock:       time.Now,
					SubmitDelay: appConfig.SubmitDelay,
					Logger:      logger,
				})
				if err != nil {
					return err
				}
				form := intake.NewForm(service, appConfig.SuccessDisplay)
				defer form.Close()

				for field, value := range map[string]string{"name": name, "email": email, "message": message} {
					if err := form.SetField(field, value); err != nil {
						return err
					}
				}
				record, submitErr := form.Submit(cmd.Context())
				if indicator := form.Indicator(); indicator.Status != intake.StatusNone {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), indicator.Message); err != nil {
						return err
					}
				}
				if submitErr != nil {
					return submitErr
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "submission %d stored at %s\n", record.ID, record.Timestamp)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Sender name")
	cmd.Flags().StringVar(&email, "email", "", "Sender email")
	cmd.Flags().StringVar(&message, "message", "", "Message body, newlines kept")
	return cmd
}
