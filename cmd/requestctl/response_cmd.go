package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/response"
)

type responseTarget struct {
	taskID     int64
	requestID  int64
	responseID int64
}

func (t *responseTarget) bind(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&t.taskID, "task", 0, "Task ID (required)")
	cmd.Flags().Int64Var(&t.requestID, "request", 0, "Request ID (required)")
	cmd.Flags().Int64Var(&t.responseID, "response", 0, "Response ID (required)")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("request")
	_ = cmd.MarkFlagRequired("response")
}

// open loads the task list and the responses of the request.
func (t responseTarget) open(c *cli) error {
	if err := requireID("request", t.requestID); err != nil {
		return err
	}
	if err := requireID("response", t.responseID); err != nil {
		return err
	}
	if err := c.sess.load(t.taskID); err != nil {
		return err
	}
	_, err := c.sess.projection.OpenDetail(c.sess.ctx, t.requestID)
	return err
}

func newResponseCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "response",
		Short: "Manage your own responses",
	}
	cmd.AddCommand(newResponseEditCmd(c))
	cmd.AddCommand(newResponseDeleteCmd(c))
	return cmd
}

func newResponseEditCmd(c *cli) *cobra.Command {
	var target responseTarget
	var comment string
	var att attachmentFlags

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit the comment of your response; links and files are added",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := target.open(c); err != nil {
				return err
			}
			if !cmd.Flags().Changed("comment") {
				if current, ok := c.sess.projection.Response(target.responseID); ok {
					comment = current.Comment()
				}
			}
			files, err := att.uploads()
			if err != nil {
				return err
			}
			err = c.sess.workflow.EditResponse(c.sess.ctx, response.EditDTO{
				ResponseID: target.responseID,
				Comment:    comment,
				Links:      att.linkDTOs(),
				Files:      files,
			})
			if err != nil {
				return err
			}
			return c.succeed("Requests.Notices.ResponseUpdated", "Response updated.", target.requestID, target.responseID)
		},
	}
	target.bind(cmd)
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "New comment")
	att.bind(cmd)
	return cmd
}

func newResponseDeleteCmd(c *cli) *cobra.Command {
	var target responseTarget

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete your response; the request keeps its decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := target.open(c); err != nil {
				return err
			}
			if err := c.sess.workflow.DeleteResponse(c.sess.ctx, target.responseID); err != nil {
				return err
			}
			return c.succeed("Requests.Notices.ResponseDeleted", "Response deleted.", target.requestID, target.responseID)
		},
	}
	target.bind(cmd)
	return cmd
}
