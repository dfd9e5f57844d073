package controller

import (
	"ai-docfill-be/internal/dto"
	"ai-docfill-be/internal/pkg/serverutils"
	"ai-docfill-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// FilledFileName is the download name of every rendered document.
const FilledFileName = "filled.docx"

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Fill(ctx *fiber.Ctx) error
	DocTypes(ctx *fiber.Ctx) error
	Session(ctx *fiber.Ctx) error
}

type documentController struct {
	service service.IDocumentService
}

func NewDocumentController(service service.IDocumentService) IDocumentController {
	return &documentController{service: service}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	r.Post("/upload", c.Upload)
	r.Post("/fill", c.Fill)
	r.Get("/doc-types", c.DocTypes)
	r.Get("/session/:file_id", c.Session)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	header, err := ctx.FormFile("file")
	if err != nil {
		return serverutils.NewHTTPError(fiber.StatusBadRequest, "file is required", err)
	}

	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	res, err := c.service.Upload(ctx.Context(), file, ctx.FormValue("doc_type", service.DefaultDocType))
	if err != nil {
		return httpError(err)
	}

	return ctx.JSON(res)
}

func (c *documentController) Fill(ctx *fiber.Ctx) error {
	var req dto.FillDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewHTTPError(fiber.StatusBadRequest, "Invalid form body", err)
	}
	// The bundled frontend posts the map as "answers".
	if req.Values == "" {
		req.Values = ctx.FormValue("answers")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Fill(ctx.Context(), &req)
	if err != nil {
		return httpError(err)
	}

	return ctx.Download(res.Path, FilledFileName)
}

func (c *documentController) DocTypes(ctx *fiber.Ctx) error {
	res, err := c.service.DocTypes(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get doc types", res))
}

func (c *documentController) Session(ctx *fiber.Ctx) error {
	res, err := c.service.GetSession(ctx.Context(), ctx.Params("file_id"))
	if err != nil {
		return httpError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}
