package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iota-uz/projecthub/modules/requests/domain/events"
	"github.com/iota-uz/projecthub/modules/requests/presentation/notices"
	"github.com/iota-uz/projecthub/modules/requests/services"
)

type cli struct {
	envFiles []string
	format   string
	stdout   io.Writer
	sess     *session
}

func (c *cli) printer() printer {
	return printer{out: c.stdout, format: c.format}
}

func (c *cli) succeed(messageID, fallback string, requestID, responseID int64) error {
	return c.printer().result(resultView{
		Notice:     notices.Success(c.sess.localizer, messageID, fallback),
		RequestID:  requestID,
		ResponseID: responseID,
	})
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "requestctl",
		Short:         "Submit, review and decide task approval requests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), c.envFiles...)
			if err != nil {
				return err
			}
			c.sess = s
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&c.format, "output", "o", formatTable, "Output format: table|json|yaml")

	cmd.AddCommand(newListCmd(c))
	cmd.AddCommand(newShowCmd(c))
	cmd.AddCommand(newCreateCmd(c))
	cmd.AddCommand(newEditCmd(c))
	cmd.AddCommand(newDeleteCmd(c))
	cmd.AddCommand(newDecideCmd(c, true))
	cmd.AddCommand(newDecideCmd(c, false))
	cmd.AddCommand(newResponseCmd(c))
	cmd.AddCommand(newAttachmentCmd(c))
	cmd.AddCommand(newUploadCmd(c))
	return cmd
}

func run(args []string, stdout, stderr io.Writer) int {
	c := &cli{envFiles: []string{".env", ".env.local"}, stdout: stdout}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	executed, err := root.ExecuteContextC(context.Background())
	if c.sess != nil {
		defer c.sess.close()
	}
	if err == nil {
		return exitOK
	}
	report(c, executed, stderr, err)
	return exitCode(err)
}

// report renders err as a localized notice. Usage errors and failures before
// the session exists are printed as they are.
func report(c *cli, cmd *cobra.Command, stderr io.Writer, err error) {
	var ce *cliError
	if c.sess == nil || (errors.As(err, &ce) && ce.code == exitUsage) {
		fmt.Fprintln(stderr, "Error:", err.Error())
		return
	}
	operation := "requestctl"
	if cmd != nil {
		operation = cmd.Name()
	}
	notices.Log(c.sess.logger(operation), operation, err)

	n := notices.FromError(c.sess.localizer, err)
	_ = printer{out: stderr, format: c.format}.notice(n)
	if n.Retry != nil {
		fmt.Fprintln(stderr, retryHint(*n.Retry))
	}
}

func retryHint(p services.PendingUpload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "retry: requestctl upload --task %d --request %d", p.TaskID, p.RequestID)
	if p.Owner == events.OwnerResponse {
		fmt.Fprintf(&b, " --response %d", p.OwnerID)
	}
	for _, f := range p.Files {
		path := f.Source
		if path == "" {
			path = f.Name
		}
		fmt.Fprintf(&b, " --file %q", path)
	}
	return b.String()
}
