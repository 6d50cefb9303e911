package controller

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"strings"

	"finscope-be/internal/constant"
	"finscope-be/internal/dto"
	"finscope-be/internal/pkg/serverutils"
	"finscope-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IWorkflowController interface {
	RegisterRoutes(r fiber.Router)
	Status(ctx *fiber.Ctx) error
	Start(ctx *fiber.Ctx) error
	Replace(ctx *fiber.Ctx) error
	Resume(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
	GetUploadDraft(ctx *fiber.Ctx) error
	SaveUploadDraft(ctx *fiber.Ctx) error
	ClearUploadDraft(ctx *fiber.Ctx) error
}

type workflowController struct {
	service service.IWorkflowService
}

func NewWorkflowController(service service.IWorkflowService) IWorkflowController {
	return &workflowController{service: service}
}

func (c *workflowController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/workflow")
	h.Post("/status", c.Status)
	h.Post("/start", c.Start)
	h.Post("/replace", c.Replace)
	h.Post("/resume", c.Resume)
	h.Post("/end", c.End)
	h.Post("/chat", c.Chat)
	h.Get("/upload-draft", c.GetUploadDraft)
	h.Put("/upload-draft", c.SaveUploadDraft)
	h.Delete("/upload-draft", c.ClearUploadDraft)
}

// Status accepts an optional pending selection and reports the derived
// workflow status plus the active session, if any.
func (c *workflowController) Status(ctx *fiber.Ctx) error {
	var req *dto.SelectionRequest
	if len(ctx.Body()) > 0 {
		req = &dto.SelectionRequest{}
		if err := ctx.BodyParser(req); err != nil {
			return err
		}
		if err := serverutils.ValidateRequest(*req); err != nil {
			return err
		}
	}

	res, err := c.service.Status(ctx.Context(), req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get workflow status", res))
}

func (c *workflowController) Start(ctx *fiber.Ctx) error {
	req, file, fileName, cleanup, err := parseSelectionForm(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := c.service.Start(ctx.Context(), req, file, fileName)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success start analysis", res))
}

func (c *workflowController) Replace(ctx *fiber.Ctx) error {
	req, file, fileName, cleanup, err := parseSelectionForm(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := c.service.Replace(ctx.Context(), req, file, fileName)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success replace analysis", res))
}

func (c *workflowController) Resume(ctx *fiber.Ctx) error {
	res, err := c.service.Resume(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success resume analysis", res))
}

func (c *workflowController) End(ctx *fiber.Ctx) error {
	if err := c.service.End(ctx.Context()); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success end analysis", struct{}{}))
}

func (c *workflowController) Chat(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Chat(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

func (c *workflowController) GetUploadDraft(ctx *fiber.Ctx) error {
	res, err := c.service.GetUploadDraft(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get upload draft", res))
}

func (c *workflowController) SaveUploadDraft(ctx *fiber.Ctx) error {
	var req dto.UploadDraftRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := c.service.SaveUploadDraft(ctx.Context(), &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success save upload draft", struct{}{}))
}

func (c *workflowController) ClearUploadDraft(ctx *fiber.Ctx) error {
	if err := c.service.ClearUploadDraft(ctx.Context()); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success clear upload draft", struct{}{}))
}

// parseSelectionForm reads a selection from either a plain JSON body
// (SEC workflow) or a multipart form with a "payload" JSON field and a
// "file" part (upload workflow). The returned cleanup closes the
// uploaded file and is always safe to call.
func parseSelectionForm(ctx *fiber.Ctx) (*dto.SelectionRequest, io.Reader, string, func(), error) {
	noop := func() {}

	var req dto.SelectionRequest
	if strings.HasPrefix(ctx.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		payload := ctx.FormValue("payload")
		if payload == "" {
			return nil, nil, "", noop, fiber.NewError(fiber.StatusBadRequest, "missing payload field")
		}
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return nil, nil, "", noop, fiber.NewError(fiber.StatusBadRequest, "malformed payload field")
		}
	} else {
		if err := ctx.BodyParser(&req); err != nil {
			return nil, nil, "", noop, err
		}
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, nil, "", noop, err
	}

	if req.WorkflowType != constant.WorkflowUpload {
		return &req, nil, "", noop, nil
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		return nil, nil, "", noop, fiber.NewError(fiber.StatusBadRequest, "upload workflow requires a file part")
	}

	if req.Upload != nil {
		if req.Upload.FileName == "" {
			req.Upload.FileName = header.Filename
		}
		if req.Upload.FileSize == 0 {
			req.Upload.FileSize = header.Size
		}
	}

	file, err := header.Open()
	if err != nil {
		return nil, nil, "", noop, err
	}

	return &req, file, header.Filename, func() { closeMultipartFile(file) }, nil
}

func closeMultipartFile(f multipart.File) {
	_ = f.Close()
}
