package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/projecthub/modules/requests/domain/entities/attachment"
	"github.com/iota-uz/projecthub/modules/requests/domain/events"
	"github.com/iota-uz/projecthub/modules/requests/services"
)

func newAttachmentCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attachment",
		Short: "Manage links and files of requests and responses",
	}
	cmd.AddCommand(newAttachmentDeleteCmd(c))
	return cmd
}

func newAttachmentDeleteCmd(c *cli) *cobra.Command {
	var taskID, requestID, responseID, itemID int64
	var kind string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete one link or file",
		RunE: func(cmd *cobra.Command, args []string) error {
			k := attachment.Kind(kind)
			if k != attachment.KindLink && k != attachment.KindFile {
				return withCode(exitUsage, fmt.Errorf("invalid --kind %q (expected link|file)", kind))
			}
			if err := requireID("request", requestID); err != nil {
				return err
			}
			if err := requireID("id", itemID); err != nil {
				return err
			}
			if err := c.sess.load(taskID); err != nil {
				return err
			}

			var err error
			if responseID == 0 {
				if k == attachment.KindFile {
					err = c.sess.workflow.DeleteRequestFile(c.sess.ctx, requestID, itemID)
				} else {
					err = c.sess.workflow.DeleteRequestLink(c.sess.ctx, requestID, itemID)
				}
			} else {
				if _, err := c.sess.projection.OpenDetail(c.sess.ctx, requestID); err != nil {
					return err
				}
				if k == attachment.KindFile {
					err = c.sess.workflow.DeleteResponseFile(c.sess.ctx, responseID, itemID)
				} else {
					err = c.sess.workflow.DeleteResponseLink(c.sess.ctx, responseID, itemID)
				}
			}
			if err != nil {
				return err
			}
			return c.succeed("Requests.Notices.AttachmentDeleted", "Attachment deleted.", requestID, responseID)
		},
	}
	cmd.Flags().Int64Var(&taskID, "task", 0, "Task ID (required)")
	cmd.Flags().Int64Var(&requestID, "request", 0, "Request ID (required)")
	cmd.Flags().Int64Var(&responseID, "response", 0, "Response ID when the attachment belongs to a response")
	cmd.Flags().StringVar(&kind, "kind", string(attachment.KindLink), "link or file")
	cmd.Flags().Int64Var(&itemID, "id", 0, "Link or file ID (required)")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("request")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// newUploadCmd re-sends files after a write whose upload phase failed.
func newUploadCmd(c *cli) *cobra.Command {
	var taskID, requestID, responseID int64
	var paths []string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload files to an existing request or response",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID("request", requestID); err != nil {
				return err
			}
			files, err := readUploads(paths)
			if err != nil {
				return err
			}
			if err := c.sess.load(taskID); err != nil {
				return err
			}
			if responseID != 0 {
				if _, err := c.sess.projection.OpenDetail(c.sess.ctx, requestID); err != nil {
					return err
				}
			}
			pending := services.PendingUpload{
				Owner:     events.OwnerRequest,
				OwnerID:   requestID,
				RequestID: requestID,
				TaskID:    taskID,
				Files:     files,
			}
			if responseID != 0 {
				pending.Owner = events.OwnerResponse
				pending.OwnerID = responseID
			}
			if err := c.sess.workflow.RetryUpload(c.sess.ctx, pending); err != nil {
				return err
			}
			return c.succeed("Requests.Notices.FilesUploaded", "Files uploaded.", requestID, responseID)
		},
	}
	cmd.Flags().Int64Var(&taskID, "task", 0, "Task ID (required)")
	cmd.Flags().Int64Var(&requestID, "request", 0, "Request ID (required)")
	cmd.Flags().Int64Var(&responseID, "response", 0, "Response ID when uploading to a response")
	cmd.Flags().StringArrayVar(&paths, "file", nil, "Path of a file to upload (repeatable, required)")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("request")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
