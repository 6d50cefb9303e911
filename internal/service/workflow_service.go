package service

import (
	"context"
	"io"

	"finscope-be/internal/constant"
	"finscope-be/internal/dto"
	"finscope-be/internal/entity"
	"finscope-be/pkg/store"
	"finscope-be/pkg/workflow"
)

type IWorkflowService interface {
	Status(ctx context.Context, req *dto.SelectionRequest) (*dto.StatusResponse, error)
	Start(ctx context.Context, req *dto.SelectionRequest, file io.Reader, fileName string) (*dto.SessionResponse, error)
	Replace(ctx context.Context, req *dto.SelectionRequest, file io.Reader, fileName string) (*dto.SessionResponse, error)
	Resume(ctx context.Context) (*dto.SessionResponse, error)
	End(ctx context.Context) error
	Chat(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	SaveUploadDraft(ctx context.Context, req *dto.UploadDraftRequest) error
	GetUploadDraft(ctx context.Context) (*dto.UploadDraftRequest, error)
	ClearUploadDraft(ctx context.Context) error
}

type workflowService struct {
	orchestrator *workflow.Orchestrator
	store        store.Store
}

func NewWorkflowService(orchestrator *workflow.Orchestrator, st store.Store) IWorkflowService {
	return &workflowService{
		orchestrator: orchestrator,
		store:        st,
	}
}

func (s *workflowService) Status(ctx context.Context, req *dto.SelectionRequest) (*dto.StatusResponse, error) {
	var pending entity.Selection
	if req != nil {
		sel, err := toSelection(req)
		if err != nil {
			return nil, err
		}
		pending = sel
	}

	status := s.orchestrator.Status(pending)
	return &dto.StatusResponse{
		Status:       string(status),
		CallToAction: status.CallToAction(),
		Session:      sessionToResponse(s.orchestrator.Current()),
	}, nil
}

func (s *workflowService) Start(ctx context.Context, req *dto.SelectionRequest, file io.Reader, fileName string) (*dto.SessionResponse, error) {
	sel, err := toSelection(req)
	if err != nil {
		return nil, err
	}

	sess, err := s.orchestrator.Create(ctx, sel, file, fileName)
	if err != nil {
		return nil, err
	}
	return sessionToResponse(sess), nil
}

func (s *workflowService) Replace(ctx context.Context, req *dto.SelectionRequest, file io.Reader, fileName string) (*dto.SessionResponse, error) {
	sel, err := toSelection(req)
	if err != nil {
		return nil, err
	}

	sess, err := s.orchestrator.Replace(ctx, sel, file, fileName)
	if err != nil {
		return nil, err
	}
	return sessionToResponse(sess), nil
}

func (s *workflowService) Resume(ctx context.Context) (*dto.SessionResponse, error) {
	sess, err := s.orchestrator.Resume(ctx)
	if err != nil {
		return nil, err
	}
	return sessionToResponse(sess), nil
}

func (s *workflowService) End(ctx context.Context) error {
	return s.orchestrator.End(ctx)
}

func (s *workflowService) Chat(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	sent, reply, err := s.orchestrator.SendChat(ctx, req.Message)
	if err != nil {
		return nil, err
	}
	return &dto.SendChatResponse{
		Sent:  messageToResponse(sent),
		Reply: messageToResponse(reply),
	}, nil
}

func (s *workflowService) SaveUploadDraft(ctx context.Context, req *dto.UploadDraftRequest) error {
	return s.store.Save(ctx, store.KeyUploadDraft, req)
}

func (s *workflowService) GetUploadDraft(ctx context.Context) (*dto.UploadDraftRequest, error) {
	var draft dto.UploadDraftRequest
	found, err := s.store.Load(ctx, store.KeyUploadDraft, &draft)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &draft, nil
}

func (s *workflowService) ClearUploadDraft(ctx context.Context) error {
	return s.store.Clear(ctx, store.KeyUploadDraft)
}

// toSelection maps the wire selection onto the domain variant. The
// variant payload must match the declared workflow type.
func toSelection(req *dto.SelectionRequest) (entity.Selection, error) {
	switch req.WorkflowType {
	case constant.WorkflowSec:
		if req.Sec == nil {
			return nil, &entity.ValidationError{Field: "sec", Reason: "sec selection payload is required"}
		}
		return entity.SecSelection{
			Ticker:      req.Sec.Ticker,
			CompanyName: req.Sec.CompanyName,
			Filing: entity.Filing{
				AccessionNumber: req.Sec.Filing.AccessionNumber,
				FormType:        req.Sec.Filing.FormType,
				FilingDate:      req.Sec.Filing.FilingDate,
			},
		}, nil
	case constant.WorkflowUpload:
		if req.Upload == nil {
			return nil, &entity.ValidationError{Field: "upload", Reason: "upload selection payload is required"}
		}
		return entity.UploadSelection{
			CompanyName: req.Upload.CompanyName,
			DocTitle:    req.Upload.DocTitle,
			DocType:     req.Upload.DocType,
			Year:        req.Upload.Year,
			FileName:    req.Upload.FileName,
			FileSize:    req.Upload.FileSize,
		}, nil
	default:
		return nil, &entity.ValidationError{Field: "workflow_type", Reason: "must be sec or upload"}
	}
}

func sessionToResponse(sess *entity.Session) *dto.SessionResponse {
	if sess == nil {
		return nil
	}

	articles := make([]dto.ArticleResponse, len(sess.NewsArticles))
	for i, a := range sess.NewsArticles {
		articles[i] = dto.ArticleResponse{
			Title:       a.Title,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			Source:      a.Source,
		}
	}

	messages := make([]dto.MessageResponse, len(sess.Messages))
	for i, m := range sess.Messages {
		messages[i] = *messageToResponse(&m)
	}

	company := ""
	if sess.Origin != nil {
		company = sess.Origin.Company()
	}

	return &dto.SessionResponse{
		SessionId:        sess.SessionId,
		WorkflowType:     sess.WorkflowType,
		CompanyName:      company,
		ExecutiveSummary: sess.ExecutiveSummary,
		NewsArticles:     articles,
		Messages:         messages,
		CreatedAt:        sess.CreatedAt,
	}
}

func messageToResponse(m *entity.Message) *dto.MessageResponse {
	if m == nil {
		return nil
	}
	return &dto.MessageResponse{
		Role:       m.Role,
		Content:    m.Content,
		References: m.References,
		Timestamp:  m.Timestamp,
	}
}
