package handler

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"prentma/internal/model"
	"prentma/internal/service"
)

const applicationCreatedMessage = "Candidatura criada com sucesso"

// applicationRequest is the JSON form of a submission; attachments travel base64 encoded.
type applicationRequest struct {
	service.ApplicationInput
	Documents []attachmentPayload `json:"documents"`
}

type attachmentPayload struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// SubmitApplication accepts a candidacy as multipart/form-data or JSON.
//
//	@Summary	Submit a candidacy
//	@Tags		applications
//	@Accept		multipart/form-data
//	@Accept		json
//	@Produce	json
//	@Param		first_name		formData	string	true	"First name"
//	@Param		last_name		formData	string	true	"Last name"
//	@Param		documents		formData	file	false	"Attachments, repeated"
//	@Param		document_types	formData	string	false	"Attachment types, parallel to documents"
//	@Success	201	{object}	map[string]string
//	@Failure	400	{object}	errorPayload
//	@Router		/api/applications [post]
func SubmitApplication(svc service.ApplicationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			in          service.ApplicationInput
			attachments []service.Attachment
		)
		if c.Is("json") {
			var req applicationRequest
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
			}
			decoded, err := decodeAttachments(req.Documents)
			if err != nil {
				return respondError(c, err)
			}
			in, attachments = req.ApplicationInput, decoded
		} else {
			form, err := c.MultipartForm()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "expected multipart/form-data or JSON body")
			}
			if in, err = formInput(form.Value); err != nil {
				return respondError(c, err)
			}
			types := form.Value["document_types"]
			for i, fh := range form.File["documents"] {
				f, err := fh.Open()
				if err != nil {
					return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file could not be read")
				}
				defer f.Close()
				a := service.Attachment{Name: fh.Filename, ContentType: fh.Header.Get(fiber.HeaderContentType), Body: f}
				if i < len(types) {
					a.Type = strings.TrimSpace(types[i])
				}
				attachments = append(attachments, a)
			}
		}

		id, err := svc.Submit(c.UserContext(), in, attachments)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": applicationCreatedMessage, "id": id})
	}
}

func formInput(v map[string][]string) (service.ApplicationInput, error) {
	get := func(k string) string {
		if vals := v[k]; len(vals) > 0 {
			return strings.TrimSpace(vals[0])
		}
		return ""
	}
	in := service.ApplicationInput{
		FirstName:    get("first_name"),
		LastName:     get("last_name"),
		Email:        get("email"),
		Phone:        get("phone"),
		City:         get("city"),
		Address:      get("address"),
		Category:     get("category"),
		Municipality: get("municipality"),
	}
	if s := get("years_experience"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return in, &service.ValidationError{Fields: map[string]string{"years_experience": "must be an integer"}}
		}
		in.YearsExperience = &n
	}
	if s := get("accepted_terms"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return in, &service.ValidationError{Fields: map[string]string{"accepted_terms": "must be a boolean"}}
		}
		in.AcceptedTerms = b
	}
	return in, nil
}

func decodeAttachments(docs []attachmentPayload) ([]service.Attachment, error) {
	out := make([]service.Attachment, 0, len(docs))
	for i, d := range docs {
		var raw []byte
		if d.Data != "" {
			b, err := model.DecodeBase64(d.Data)
			if err != nil {
				field := fmt.Sprintf("documents[%d].data", i)
				return nil, &service.ValidationError{Fields: map[string]string{field: "must be base64"}}
			}
			raw = b
		}
		out = append(out, service.Attachment{
			Type:        d.Type,
			Name:        d.Name,
			ContentType: d.ContentType,
			Body:        bytes.NewReader(raw),
		})
	}
	return out, nil
}

// ListApplications returns recent applications, newest first.
//
//	@Summary	List applications
//	@Tags		applications
//	@Produce	json
//	@Param		limit	query	int	false	"Maximum items (default 50, max 500)"
//	@Success	200	{array}	model.Application
//	@Failure	400	{object}	errorPayload
//	@Router		/api/applications [get]
func ListApplications(svc service.ApplicationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := 0
		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
			}
			limit = n
		}
		apps, err := svc.List(c.UserContext(), limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(apps)
	}
}

// ListApplicationDocuments returns the attachment summary of an application.
//
//	@Summary	List the documents of an application
//	@Tags		applications
//	@Produce	json
//	@Param		id	path	string	true	"Application id"
//	@Success	200	{array}	model.DocumentSummary
//	@Failure	404	{object}	errorPayload
//	@Router		/api/applications/{id}/documents [get]
func ListApplicationDocuments(svc service.ApplicationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.Documents(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(docs)
	}
}

// DownloadApplicationDocument streams one attachment from disk, blob or inline storage.
//
//	@Summary	Download an application document
//	@Tags		applications
//	@Produce	octet-stream
//	@Param		id		path	string	true	"Application id"
//	@Param		docId	path	string	true	"Document id"
//	@Success	200	{file}	binary
//	@Failure	404	{object}	errorPayload
//	@Router		/api/applications/{id}/documents/{docId} [get]
func DownloadApplicationDocument(svc service.ApplicationService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := svc.Download(c.UserContext(), c.Params("id"), c.Params("docId"))
		if err != nil {
			return respondError(c, err)
		}
		return sendFile(c, f)
	}
}
