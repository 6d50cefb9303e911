package gateway

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"finscope-be/internal/constant"
	"finscope-be/internal/entity"

	"github.com/go-resty/resty/v2"
)

// Client talks to the analysis backend over HTTP.
type Client struct {
	http *resty.Client
}

var _ Gateway = &Client{}

func NewClient(baseURL string, timeout time.Duration, retryCount int) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")

	return &Client{http: http}
}

type startSecPayload struct {
	WorkflowType    string `json:"workflow_type"`
	Ticker          string `json:"ticker"`
	CompanyName     string `json:"company_name"`
	AccessionNumber string `json:"accession_number"`
	FormType        string `json:"form_type"`
	FilingDate      string `json:"filing_date"`
}

func (c *Client) StartAnalysis(ctx context.Context, req *StartAnalysisRequest) (*StartAnalysisResult, error) {
	var result StartAnalysisResult

	r := c.http.R().SetContext(ctx).SetResult(&result)

	switch sel := req.Selection.(type) {
	case entity.SecSelection:
		r.SetBody(startSecPayload{
			WorkflowType:    constant.WorkflowSec,
			Ticker:          sel.Ticker,
			CompanyName:     sel.CompanyName,
			AccessionNumber: sel.Filing.AccessionNumber,
			FormType:        sel.Filing.FormType,
			FilingDate:      sel.Filing.FilingDate,
		})
	case entity.UploadSelection:
		if req.File == nil {
			return nil, &Error{Message: "upload start requires a file"}
		}
		r.SetFileReader("file", req.FileName, req.File).
			SetFormData(map[string]string{
				"workflow_type": constant.WorkflowUpload,
				"company_name":  sel.CompanyName,
				"doc_title":     sel.DocTitle,
				"doc_type":      sel.DocType,
				"year":          strconv.Itoa(sel.Year),
			})
	default:
		return nil, &Error{Message: fmt.Sprintf("unsupported selection type %T", req.Selection)}
	}

	resp, err := r.Post("/api/start-analysis")
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	if !resp.IsSuccess() {
		return nil, &Error{StatusCode: resp.StatusCode(), Message: resp.String()}
	}
	if result.SessionId == "" {
		return nil, &Error{Message: "start-analysis returned no session id"}
	}
	return &result, nil
}

func (c *Client) FetchSession(ctx context.Context, sessionId string) (*SessionSnapshot, error) {
	var snapshot SessionSnapshot
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&snapshot).
		Get("/api/session/" + sessionId)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	if !resp.IsSuccess() {
		return nil, &Error{StatusCode: resp.StatusCode(), Message: resp.String()}
	}
	return &snapshot, nil
}

type chatPayload struct {
	SessionId   string `json:"session_id"`
	UserMessage string `json:"user_message"`
}

func (c *Client) SendChat(ctx context.Context, sessionId, message string) (*ChatReply, error) {
	var reply ChatReply
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatPayload{SessionId: sessionId, UserMessage: message}).
		SetResult(&reply).
		Post("/api/chat")
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	if !resp.IsSuccess() {
		return nil, &Error{StatusCode: resp.StatusCode(), Message: resp.String()}
	}
	return &reply, nil
}

type endPayload struct {
	SessionId string `json:"session_id"`
}

// EndSession releases backend-held resources. Callers MUST see this
// succeed before abandoning a session, otherwise server-side temp files
// persist.
func (c *Client) EndSession(ctx context.Context, sessionId string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(endPayload{SessionId: sessionId}).
		Post("/api/end-session")
	if err != nil {
		return &Error{Message: err.Error()}
	}
	if !resp.IsSuccess() {
		return &Error{StatusCode: resp.StatusCode(), Message: resp.String()}
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return &Error{Message: err.Error()}
	}
	if !resp.IsSuccess() {
		return &Error{StatusCode: resp.StatusCode(), Message: resp.String()}
	}
	return nil
}
