package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/MarcoPoloResearchLab/roster/internal/logging"
	"github.com/MarcoPoloResearchLab/roster/internal/panel"
	"github.com/MarcoPoloResearchLab/roster/internal/pipeline"
	"github.com/MarcoPoloResearchLab/roster/internal/userclient"
	"github.com/MarcoPoloResearchLab/roster/internal/users"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// panelRun is one users command's view of the API: a refreshed session and its notifications.
type panelRun struct {
	session       *panel.Session
	notifications *panel.Notifications
	logger        *zap.Logger
}

func openPanel(ctx context.Context, options *rootOptions) (*panelRun, error) {
	appConfig, err := options.load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	client, err := userclient.New(userclient.Config{
		BaseURL: appConfig.APIBaseURL,
		Timeout: appConfig.APITimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	notifications := panel.NewNotifications(logger.Named("panel"))
	session, err := panel.NewSession(panel.SessionConfig{
		Collaborator: client,
		Notifier:     notifications,
		Logger:       logger,
		PageSize:     appConfig.PanelPageSize,
	})
	if err != nil {
		return nil, err
	}

	run := &panelRun{session: session, notifications: notifications, logger: logger}
	if err := session.Refresh(ctx); err != nil {
		return run, err
	}
	return run, nil
}

func (r *panelRun) close(cmd *cobra.Command) {
	for _, notification := range r.notifications.Drain() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", notification.Level, notification.Message)
	}
	_ = r.logger.Sync()
}

func newUsersCommand(options *rootOptions) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Browse and edit users through the roster API",
	}
	usersCmd.AddCommand(
		newUsersListCommand(options),
		newUsersCreateCommand(options),
		newUsersUpdateCommand(options),
		newUsersDeleteCommand(options),
	)
	return usersCmd
}

func newUsersListCommand(options *rootOptions) *cobra.Command {
	var (
		query    string
		sort     string
		pageSize int
		page     int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show one page of users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := openPanel(cmd.Context(), options)
			if run != nil {
				defer run.close(cmd)
			}
			if err != nil {
				return err
			}

			if pageSize != 0 {
				if err := run.session.SetPageSize(pageSize); err != nil {
					return err
				}
			}
			run.session.SetQuery(query)
			run.session.SetSortOrder(pipeline.ParseSortOrder(sort))
			run.session.GoToPage(page)

			return printPage(cmd.OutOrStdout(), run.session.View())
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "Case-insensitive filter on name or email")
	cmd.Flags().StringVar(&sort, "sort", string(pipeline.SortAscending), "Name order: asc or desc")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Page size (5, 10, 20 or 50); defaults to --panel-page-size")
	cmd.Flags().IntVar(&page, "page", 1, "Page to show, clamped to the available pages")
	return cmd
}

func newUsersCreateCommand(options *rootOptions) *cobra.Command {
	var draft draftFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := openPanel(cmd.Context(), options)
			if run != nil {
				defer run.close(cmd)
			}
			if err != nil {
				return err
			}

			editor, err := run.session.OpenCreate()
			if err != nil {
				return err
			}
			editor.SetDraft(users.Draft{Name: draft.name, Email: draft.email, Status: users.Status(draft.status)})
			return submit(cmd, editor)
		},
	}
	draft.register(cmd)
	return cmd
}

func newUsersUpdateCommand(options *rootOptions) *cobra.Command {
	var draft draftFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the name, email or status of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := openPanel(cmd.Context(), options)
			if run != nil {
				defer run.close(cmd)
			}
			if err != nil {
				return err
			}

			record, ok := run.session.Lookup(args[0])
			if !ok {
				return fmt.Errorf("user %s: %w", args[0], users.ErrUserNotFound)
			}
			editor, err := run.session.OpenEdit(record)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") {
				editor.SetName(draft.name)
			}
			if cmd.Flags().Changed("email") {
				editor.SetEmail(draft.email)
			}
			if cmd.Flags().Changed("status") {
				editor.SetStatus(users.Status(draft.status))
			}
			return submit(cmd, editor)
		},
	}
	draft.register(cmd)
	return cmd
}

func newUsersDeleteCommand(options *rootOptions) *cobra.Command {
	var assumeYes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := openPanel(cmd.Context(), options)
			if run != nil {
				defer run.close(cmd)
			}
			if err != nil {
				return err
			}

			record, ok := run.session.Lookup(args[0])
			if !ok {
				return fmt.Errorf("user %s: %w", args[0], users.ErrUserNotFound)
			}
			confirmation, err := run.session.RequestDelete(record)
			if err != nil {
				return err
			}

			if !assumeYes {
				confirmed, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %s <%s>? [y/N]: ", record.Name, record.Email))
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return confirmation.Cancel()
				}
			}
			return confirmation.Confirm(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

type draftFlags struct {
	name   string
	email  string
	status string
}

func (d *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.name, "name", "", "Display name")
	cmd.Flags().StringVar(&d.email, "email", "", "Email address")
	cmd.Flags().StringVar(&d.status, "status", "", "Status: active or inactive")
}

func submit(cmd *cobra.Command, editor *panel.Editor) error {
	saved, err := editor.Submit(cmd.Context())
	if err != nil {
		fieldErrors := editor.FieldErrors()
		for _, field := range slices.Sorted(maps.Keys(fieldErrors)) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", field, fieldErrors[field])
		}
		return err
	}
	return printUsers(cmd.OutOrStdout(), []users.User{saved})
}

func printPage(out io.Writer, page pipeline.Page) error {
	if err := printUsers(out, page.Items); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "page %d of %d (%d users, %d per page)\n", page.PageIndex, page.TotalPages, page.TotalItems, page.PageSize)
	return err
}

func printUsers(out io.Writer, records []users.User) error {
	writer := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tNAME\tEMAIL\tSTATUS")
	for _, record := range records {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", record.ID, record.Name, record.Email, record.Status)
	}
	return writer.Flush()
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return false, err
	}
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
