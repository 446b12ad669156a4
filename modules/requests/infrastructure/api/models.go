package api

import "time"

// Wire shapes of the projecthub REST backend. Field names follow the
// backend's camelCase contract.

type Link struct {
	ID             int64  `json:"id,omitempty"`
	URLAddress     string `json:"urlAddress"`
	URLDescription string `json:"urlDescription"`
}

type File struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Request struct {
	RequestID       int64     `json:"requestId"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Status          string    `json:"status"`
	TaskID          int64     `json:"taskId"`
	StageID         int64     `json:"stageId"`
	ProjectID       int64     `json:"projectId"`
	AuthorMemberID  int64     `json:"authorMemberId"`
	ClientCompanyID int64     `json:"clientCompanyId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Links           []Link    `json:"links"`
	Files           []File    `json:"files"`
}

type Response struct {
	ResponseID     int64     `json:"responseId"`
	RequestID      int64     `json:"requestId"`
	Comment        string    `json:"comment"`
	AuthorMemberID int64     `json:"authorMemberId"`
	Decision       string    `json:"decision,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Links          []Link    `json:"links"`
	Files          []File    `json:"files"`
}

type Task struct {
	TaskID int64  `json:"taskId"`
	Status string `json:"status"`
}

type CreateRequestBody struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	ProjectID int64  `json:"projectId"`
	StageID   int64  `json:"stageId"`
	TaskID    int64  `json:"taskId"`
	Links     []Link `json:"links"`
}

type UpdateRequestBody struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Links   []Link `json:"links"`
}

type DecideBody struct {
	Comment   string `json:"comment"`
	ProjectID int64  `json:"projectId,omitempty"`
	Links     []Link `json:"links"`
}

type UpdateResponseBody struct {
	Comment string `json:"comment"`
	Links   []Link `json:"links"`
}

type CreatedRequest struct {
	RequestID int64 `json:"requestId"`
}

type CreatedResponse struct {
	ResponseID int64 `json:"responseId"`
}
