package api

import (
	"strings"
	"time"

	"github.com/tendervault/tendervault/internal/domain"
	"github.com/tendervault/tendervault/internal/store"
	"github.com/tendervault/tendervault/pkg/httpx"
)

const (
	titleMin       = 3
	titleMax       = 200
	descriptionMin = 10
	descriptionMax = 2000
	notesMax       = 1000
	maxFileSize    = 52428800 // 50 MB
)

type createTenderRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
}

func (req createTenderRequest) validate(now time.Time) (title, description string, deadline time.Time, err error) {
	var fields []httpx.FieldError
	title = strings.TrimSpace(req.Title)
	description = strings.TrimSpace(req.Description)

	if len(title) < titleMin || len(title) > titleMax {
		fields = append(fields, httpx.FieldError{Field: "title", Message: "Title must be 3-200 characters"})
	}
	if len(description) < descriptionMin || len(description) > descriptionMax {
		fields = append(fields, httpx.FieldError{Field: "description", Message: "Description must be 10-2000 characters"})
	}
	deadline, fields = parseDeadline(req.Deadline, now, fields)

	if len(fields) > 0 {
		return "", "", time.Time{}, httpx.Validation(fields)
	}
	return title, description, deadline, nil
}

func parseDeadline(raw string, now time.Time, fields []httpx.FieldError) (time.Time, []httpx.FieldError) {
	if raw == "" {
		return time.Time{}, append(fields, httpx.FieldError{Field: "deadline", Message: "Deadline is required and must be an RFC 3339 timestamp"})
	}
	deadline, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, append(fields, httpx.FieldError{Field: "deadline", Message: "Deadline must be a valid RFC 3339 timestamp"})
	}
	if !deadline.After(now) {
		return time.Time{}, append(fields, httpx.FieldError{Field: "deadline", Message: "Deadline must be in the future"})
	}
	return deadline, fields
}

type updateTenderRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Deadline    *string `json:"deadline"`
	Status      *string `json:"status"`
}

func (req updateTenderRequest) validate(now time.Time) (store.TenderUpdate, error) {
	var fields []httpx.FieldError
	var upd store.TenderUpdate

	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if len(t) < titleMin || len(t) > titleMax {
			fields = append(fields, httpx.FieldError{Field: "title", Message: "Title must be 3-200 characters"})
		} else {
			upd.Title = &t
		}
	}
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		if len(d) < descriptionMin || len(d) > descriptionMax {
			fields = append(fields, httpx.FieldError{Field: "description", Message: "Description must be 10-2000 characters"})
		} else {
			upd.Description = &d
		}
	}
	if req.Deadline != nil {
		var deadline time.Time
		deadline, fields = parseDeadline(*req.Deadline, now, fields)
		if !deadline.IsZero() {
			upd.Deadline = &deadline
		}
	}
	if req.Status != nil {
		st := domain.TenderStatus(*req.Status)
		if !domain.ValidTenderStatus(st) {
			fields = append(fields, httpx.FieldError{Field: "status", Message: "Status must be one of OPEN, CLOSED, ARCHIVED"})
		} else {
			upd.Status = &st
		}
	}

	if len(fields) == 0 && len(upd.Fields()) == 0 {
		fields = append(fields, httpx.FieldError{Field: "body", Message: "At least one of title, description, deadline or status must be provided"})
	}
	if len(fields) > 0 {
		return store.TenderUpdate{}, httpx.Validation(fields)
	}
	return upd, nil
}

type uploadURLRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
}

func (req uploadURLRequest) validate() error {
	var fields []httpx.FieldError
	if req.FileName == "" || !strings.HasSuffix(strings.ToLower(req.FileName), ".pdf") {
		fields = append(fields, httpx.FieldError{Field: "fileName", Message: "fileName is required and must end with .pdf"})
	}
	if strings.ContainsAny(req.FileName, "/\\") {
		fields = append(fields, httpx.FieldError{Field: "fileName", Message: "fileName must not contain path separators"})
	}
	if req.ContentType != "application/pdf" {
		fields = append(fields, httpx.FieldError{Field: "contentType", Message: `contentType must be exactly "application/pdf"`})
	}
	if req.FileSize < 1 || req.FileSize > maxFileSize {
		fields = append(fields, httpx.FieldError{Field: "fileSize", Message: "fileSize must be between 1 and 52428800 bytes (50MB)"})
	}
	if len(fields) > 0 {
		return httpx.Validation(fields)
	}
	return nil
}

type scoreRequest struct {
	Score int    `json:"score"`
	Notes string `json:"notes"`
}

func (req scoreRequest) validate() error {
	var fields []httpx.FieldError
	if req.Score < 1 || req.Score > 10 {
		fields = append(fields, httpx.FieldError{Field: "score", Message: "score must be an integer between 1 and 10"})
	}
	if len(req.Notes) > notesMax {
		fields = append(fields, httpx.FieldError{Field: "notes", Message: "notes must be at most 1000 characters"})
	}
	if len(fields) > 0 {
		return httpx.Validation(fields)
	}
	return nil
}

type bidStatusRequest struct {
	BidStatus string `json:"bidStatus"`
}

func (req bidStatusRequest) validate() (domain.EvalStage, error) {
	stage := domain.EvalStage(req.BidStatus)
	if !domain.ValidEvalStage(stage) {
		return "", httpx.Validation([]httpx.FieldError{
			{Field: "bidStatus", Message: "bidStatus must be one of UNDER_REVIEW, SHORTLISTED, DISQUALIFIED, AWARDED"},
		})
	}
	return stage, nil
}

type restoreRequest struct {
	VersionID string `json:"versionId"`
}

func (req restoreRequest) validate() error {
	if req.VersionID == "" {
		return httpx.Validation([]httpx.FieldError{{Field: "versionId", Message: "versionId is required"}})
	}
	return nil
}
