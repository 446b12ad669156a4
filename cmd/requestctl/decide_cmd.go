package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/response"
	"github.com/iota-uz/projecthub/modules/requests/services"
)

// newDecideCmd builds approve or reject. Both need the caller to be an
// admin or a member of the client company that owns the task's project.
func newDecideCmd(c *cli, approve bool) *cobra.Command {
	var taskID int64
	var dto response.DecideDTO
	var att attachmentFlags

	use, short := "approve", "Approve a pending request"
	if !approve {
		use, short = "reject", "Reject a pending request; the comment is the reason"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID("request", dto.RequestID); err != nil {
				return err
			}
			if err := c.sess.load(taskID); err != nil {
				return err
			}
			files, err := att.uploads()
			if err != nil {
				return err
			}
			dto.Links = att.linkDTOs()
			dto.Files = files

			var sub services.Submission
			if approve {
				sub, err = c.sess.workflow.Approve(c.sess.ctx, dto)
			} else {
				sub, err = c.sess.workflow.Reject(c.sess.ctx, dto)
			}
			if err != nil {
				return err
			}
			if approve {
				return c.succeed("Requests.Notices.Approved", "Request approved.", sub.RequestID, sub.ResponseID)
			}
			return c.succeed("Requests.Notices.Rejected", "Request rejected.", sub.RequestID, sub.ResponseID)
		},
	}
	cmd.Flags().Int64Var(&taskID, "task", 0, "Task ID (required)")
	cmd.Flags().Int64Var(&dto.RequestID, "request", 0, "Request ID (required)")
	cmd.Flags().StringVarP(&dto.Comment, "comment", "m", "", "Comment")
	cmd.Flags().Int64Var(&dto.ProjectID, "project", 0, "Project ID; defaults to the request's project")
	att.bind(cmd)
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}
