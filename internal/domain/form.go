package domain

import "time"

const (
	ExtDocx = "docx"
	ExtXlsx = "xlsx"

	FirstVersion = "1.0"
)

// FormIssue is one issued revision of a controlled form.
type FormIssue struct {
	OriginalDocNo string     `json:"original_doc_no"`
	DocVer        string     `json:"doc_ver"`
	Name          string     `json:"name"`
	IssueDatetime *time.Time `json:"issue_datetime,omitempty"`
	FileExtension string     `json:"file_extension"`
	CreatedBy     string     `json:"created_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	IsLatest      bool       `json:"is_latest"`
}

type FormQuery struct {
	OriginalDocNo string `json:"original_doc_no"`
	Name          string `json:"name"`
	DocVer        string `json:"doc_ver"`
	IssueDate     string `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	Pagination
}

type IssueFormRequest struct {
	OriginalDocNo string `json:"original_doc_no" validate:"required,max=50"`
	DocVer        string `json:"doc_ver" validate:"required,max=10,docver"`
	Name          string `json:"name" validate:"required,max=200"`
	IssueDatetime string `json:"issue_datetime" validate:"required,datetime=2006-01-02"`
	FileExtension string `json:"file_extension" validate:"required,oneof=docx xlsx"`
}

type EditFormRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	IssueDatetime string `json:"issue_datetime" validate:"required,datetime=2006-01-02"`
	FileExtension string `json:"file_extension" validate:"required,oneof=docx xlsx"`
}

// NewVersionChoice is what the issue screen offers for the next revision.
type NewVersionChoice struct {
	OriginalDocNo  string `json:"original_doc_no"`
	CurrentVersion string `json:"current_version,omitempty"`
	NextMajor      string `json:"next_major"`
	NextMinor      string `json:"next_minor,omitempty"`
	IsNewForm      bool   `json:"is_new_form"`
	Name           string `json:"name,omitempty"`
	FileExtension  string `json:"file_extension,omitempty"`
}

type FormVersions struct {
	OriginalDocNo string   `json:"original_doc_no"`
	Versions      []string `json:"versions"`
	Latest        string   `json:"latest"`
	NextMajor     string   `json:"next_major,omitempty"`
	NextMinor     string   `json:"next_minor,omitempty"`
	Malformed     []string `json:"malformed,omitempty"`
}
