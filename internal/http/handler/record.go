package handler

import (
	"github.com/gofiber/fiber/v2"

	"prentma/internal/service"
)

// registerRecords mounts create/list/get/patch/delete for one entity on r.
// filters names the query parameters passed through to List.
func registerRecords[T any](r fiber.Router, svc service.RecordService[T], filters ...string) {
	r.Post("/", CreateRecord(svc))
	r.Get("/", ListRecords(svc, filters...))
	r.Get("/:id", GetRecord(svc))
	r.Patch("/:id", UpdateRecord(svc))
	r.Delete("/:id", DeleteRecord(svc))
}

func CreateRecord[T any](svc service.RecordService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var data T
		if err := c.BodyParser(&data); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		}
		rec, err := svc.Create(c.UserContext(), data)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

func ListRecords[T any](svc service.RecordService[T], filters ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := make(map[string]string, len(filters))
		for _, name := range filters {
			if v := c.Query(name); v != "" {
				f[name] = v
			}
		}
		items, err := svc.List(c.UserContext(), f)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(items)
	}
}

func GetRecord[T any](svc service.RecordService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(rec)
	}
}

// UpdateRecord applies a partial update: only the fields present in the body change.
func UpdateRecord[T any](svc service.RecordService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// fasthttp reuses the body buffer after the handler returns
		patch := append([]byte(nil), c.Body()...)
		rec, err := svc.Update(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(rec)
	}
}

func DeleteRecord[T any](svc service.RecordService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
