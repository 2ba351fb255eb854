package domain

import "time"

const (
	FeedbackStatusOpen       = "open"
	FeedbackStatusInProgress = "in_progress"
	FeedbackStatusClosed     = "closed"
)

const (
	UrgencyNormal   = "normal"
	UrgencyUrgent   = "urgent"
	UrgencyCritical = "critical"
)

// Feedback is a customer question or complaint. Submitter fields are a
// snapshot taken when the ticket is raised.
type Feedback struct {
	ID                 int64              `json:"feedback_id"`
	FeedbackNo         string             `json:"feedback_no"`
	Subject            string             `json:"subject"`
	SubmittedByID      string             `json:"submitted_by_id"`
	SubmittedByRole    string             `json:"submitted_by_role"`
	SubmittedByName    string             `json:"submitted_by_name"`
	SubmittedByEmail   string             `json:"submitted_by_email"`
	SubmittedOrg       string             `json:"submitted_org"`
	Urgency            string             `json:"urgency"`
	Status             string             `json:"status"`
	SubmittedDate      *time.Time         `json:"submitted_date,omitempty"`
	ExpectedFinishDate *time.Time         `json:"expected_finish_date,omitempty"`
	ClosedDate         *time.Time         `json:"closed_date,omitempty"`
	Content            string             `json:"content"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	Responses          []FeedbackResponse `json:"responses,omitempty"`
}

// FeedbackResponse is one reply in a feedback thread. StatusAfterResponse
// becomes the ticket status.
type FeedbackResponse struct {
	ID                  int64      `json:"response_id"`
	FeedbackID          int64      `json:"feedback_id"`
	ResponderID         string     `json:"responder_id"`
	ResponderRole       string     `json:"responder_role"`
	ResponderName       string     `json:"responder_name"`
	ResponderEmail      string     `json:"responder_email"`
	ResponderOrg        string     `json:"responder_org"`
	ResponseDate        *time.Time `json:"response_date,omitempty"`
	StatusAfterResponse string     `json:"status_after_response"`
	Content             string     `json:"content"`
	CreatedAt           time.Time  `json:"created_at"`
}

type CreateFeedbackRequest struct {
	Subject            string `json:"subject" validate:"required,max=200"`
	SubmittedOrg       string `json:"submitted_org" validate:"max=100"`
	Urgency            string `json:"urgency" validate:"required,oneof=normal urgent critical"`
	ExpectedFinishDate string `json:"expected_finish_date" validate:"omitempty,datetime=2006-01-02"`
	Content            string `json:"content" validate:"required,max=4000"`
}

type EditFeedbackRequest struct {
	Subject            string `json:"subject" validate:"required,max=200"`
	Urgency            string `json:"urgency" validate:"required,oneof=normal urgent critical"`
	Status             string `json:"status" validate:"required,oneof=open in_progress closed"`
	ExpectedFinishDate string `json:"expected_finish_date" validate:"omitempty,datetime=2006-01-02"`
	Content            string `json:"content" validate:"required,max=4000"`
}

type FeedbackReplyRequest struct {
	ResponderOrg        string `json:"responder_org" validate:"max=100"`
	StatusAfterResponse string `json:"status_after_response" validate:"required,oneof=open in_progress closed"`
	Content             string `json:"content" validate:"required,max=4000"`
}

type FeedbackQuery struct {
	FeedbackNo      string `json:"feedback_no"`
	SubmittedByName string `json:"submitted_by_name"`
	SubmittedByRole string `json:"submitted_by_role"`
	SubmittedOrg    string `json:"submitted_org"`
	Urgency         string `json:"urgency" validate:"omitempty,oneof=normal urgent critical"`
	Status          string `json:"status" validate:"omitempty,oneof=open in_progress closed"`
	SubmittedFrom   string `json:"submitted_from" validate:"omitempty,datetime=2006-01-02"`
	SubmittedTo     string `json:"submitted_to" validate:"omitempty,datetime=2006-01-02"`
	ClosedFrom      string `json:"closed_from" validate:"omitempty,datetime=2006-01-02"`
	ClosedTo        string `json:"closed_to" validate:"omitempty,datetime=2006-01-02"`
	QuestionContent string `json:"question_content"`
	ResponseContent string `json:"response_content"`
	Pagination
}

type FeedbackEvent struct {
	FeedbackNo string `json:"feedback_no"`
	Status     string `json:"status"`
	By         string `json:"by"`
}
