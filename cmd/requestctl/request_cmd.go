package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/iota-uz/projecthub/modules/requests/domain/aggregates/request"
	"github.com/iota-uz/projecthub/modules/requests/services"
)

func newListCmd(c *cli) *cobra.Command {
	var taskID int64
	var status, query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the requests of a task, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.sess.load(taskID); err != nil {
				return err
			}
			filter := services.Filter{Status: request.Status(strings.ToUpper(status)), Query: query}
			return c.printer().requests(c.sess.projection.Requests(taskID, filter))
		},
	}
	cmd.Flags().Int64Var(&taskID, "task", 0, "Task ID (required)")
	cmd.Flags().StringVar(&status, "status", "", "Only show PENDING, APPROVED or REJECTED requests")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Fuzzy match on title and content")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func newShowCmd(c *cli) *cobra.Command {
	var taskID, requestID int64

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a request with its responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID("request", requestID); err != nil {
				return err
			}
			if err := c.sess.load(taskID); err != nil {
				return err
			}
			r, ok := c.sess.projection.Request(requestID)
			if !ok {
				return services.ErrNotLoaded
			}
			responses, err := c.sess.projection.OpenDetail(c.sess.ctx, requestID)
			if err != nil {
				return err
			}
			return c.printer().detail(r, responses)
		},
	}
	cmd.Flags().Int64Var(&taskID, "task", 0, "Task ID (required)")
	cmd.Flags().Int64Var(&requestID, "request", 0, "Request ID (required)")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func newCreateCmd(c *cli) *cobra.Command {
	var dto request.CreateDTO
	var att attachmentFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new approval request for a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := att.uploads()
			if err != nil {
				return err
			}
			dto.Links = att.linkDTOs()
			dto.Files = files
			sub, err := c.sess.workflow.Create(c.sess.ctx, dto)
			if err != nil {
				return err
			}
			return c.succeed("Requests.Notices.Created", "Request submitted.", sub.RequestID, 0)
		},
	}
	cmd.Flags().Int64Var(&dto.TaskID, "task", 0, "Task ID (required)")
	cmd.Flags().Int64Var(&dto.ProjectID, "project", 0, "Project ID (required)")
	cmd.Flags().Int64Var(&dto.StageID, "stage", 0, "Stage ID (required)")
	cmd.Flags().StringVar(&dto.Title, "title", "", "Title (required)")
	cmd.Flags().StringVar(&dto.Content, "content", "", "Content (required)")
	att.bind(cmd)
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func newEditCmd(c *cli) *cobra.Command {
	var taskID int64
	var dto request.EditDTO
	var att attachmentFlags

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit your pending request; links and files are added to the existing ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID("request", dto.RequestID); err != nil {
				return err
			}
			if err := c.sess.load(taskID); err != nil {
				return err
			}
			current, ok := c.sess.projection.Request(dto.RequestID)
			if !ok {
				return services.ErrNotLoaded
			}
			if !cmd.Flags().Changed("title") {
				dto.Title = current.Title()
			}
			if !cmd.Flags().Changed("content") {
				dto.Content = current.Content()
			}
			files, err := att.uploads()
			if err != nil {
				return err
			}
			dto.Links = att.linkDTOs()
			dto.Files = files
			if err := c.sess.workflow.Edit(c.sess.ctx, dto); err != nil {
				return err
			}
			return c.succeed("Requests.Notices.Updated", "Request updated.", dto.RequestID, 0)
		},
	}
	cmd.Flags().Int64Var(&taskID, "task", 0, "Task ID (required)")
	cmd.Flags().Int64Var(&dto.RequestID, "request", 0, "Request ID (required)")
	cmd.Flags().StringVar(&dto.Title, "title", "", "New title")
	cmd.Flags().StringVar(&dto.Content, "content", "", "New content")
	att.bind(cmd)
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	var taskID, requestID int64

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a pending request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireID("request", requestID); err != nil {
				return err
			}
			if err := c.sess.load(taskID); err != nil {
				return err
			}
			if err := c.sess.workflow.Delete(c.sess.ctx, requestID); err != nil {
				return err
			}
			return c.succeed("Requests.Notices.Deleted", "Request deleted.", requestID, 0)
		},
	}
	cmd.Flags().Int64Var(&taskID, "task", 0, "Task ID (required)")
	cmd.Flags().Int64Var(&requestID, "request", 0, "Request ID (required)")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}
