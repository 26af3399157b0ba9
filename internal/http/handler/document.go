package handler

import (
	"github.com/gofiber/fiber/v2"

	"prentma/internal/resolver"
	"prentma/internal/service"
)

// UploadDocument stores a candidate document in the blob store.
//
//	@Summary	Upload a candidate document
//	@Tags		documents
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		candidateId	formData	string	true	"Candidate id"
//	@Param		type		formData	string	true	"Document type"
//	@Param		description	formData	string	false	"Description"
//	@Param		file		formData	file	true	"Content"
//	@Success	201	{object}	model.Document
//	@Failure	400	{object}	errorPayload
//	@Router		/documents [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		defer f.Close()

		doc, err := svc.Upload(c.UserContext(), service.UploadInput{
			CandidateID: c.FormValue("candidateId"),
			Type:        c.FormValue("type"),
			Description: c.FormValue("description"),
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Body:        f,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// ListDocuments returns candidate documents, optionally for one candidate.
//
//	@Summary	List candidate documents, newest first
//	@Tags		documents
//	@Produce	json
//	@Param		candidateId	query	string	false	"Candidate id"
//	@Success	200	{array}	model.Document
//	@Router		/documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.List(c.UserContext(), c.Query("candidateId"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(docs)
	}
}

// DownloadDocument streams a candidate document from the blob store.
//
//	@Summary	Download a candidate document
//	@Tags		documents
//	@Produce	octet-stream
//	@Param		id	path	string	true	"Document id"
//	@Success	200	{file}	binary
//	@Failure	404	{object}	errorPayload
//	@Router		/documents/{id}/download [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := svc.Download(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return sendFile(c, f)
	}
}

// sendFile streams f as an attachment. The body is closed once written.
func sendFile(c *fiber.Ctx, f *resolver.File) error {
	c.Attachment(f.Filename)
	c.Set(fiber.HeaderContentType, f.ContentType)
	size := int(f.Size)
	if size <= 0 {
		size = -1
	}
	return c.SendStream(f.Body, size)
}
