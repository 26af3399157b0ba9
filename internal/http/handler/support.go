package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"prentma/internal/model"
	"prentma/internal/service"
	"prentma/internal/sms"
)

const supportReceivedMessage = "Mensagem recebida com sucesso"

// SubmitSupport stores a support form message.
//
//	@Summary	Send a support message
//	@Tags		support
//	@Accept		json
//	@Produce	json
//	@Param		message	body	object	true	"Free-form message"
//	@Success	201	{object}	map[string]string
//	@Failure	400	{object}	errorPayload
//	@Router		/api/support [post]
func SubmitSupport(svc service.SupportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var msg model.SupportMessage
		if err := c.BodyParser(&msg); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		}
		if _, err := svc.Submit(c.UserContext(), msg); err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": supportReceivedMessage})
	}
}

// SendSMS forwards a message to the SMS gateway. Parameters come from the query string
// or, when absent there, from a JSON body.
//
//	@Summary	Send an SMS
//	@Tags		sms
//	@Produce	json
//	@Param		phone_number	query	string	true	"Recipient"
//	@Param		message_body	query	string	true	"Text"
//	@Success	200	{object}	sms.Result
//	@Failure	400	{object}	errorPayload
//	@Failure	502	{object}	map[string]string
//	@Failure	503	{object}	errorPayload
//	@Router		/api/send-sms [post]
func SendSMS(sender SMSSender) fiber.Handler {
	return func(c *fiber.Ctx) error {
		msg := sms.Message{
			PhoneNumber: utils.CopyString(c.Query("phone_number")),
			MessageBody: utils.CopyString(c.Query("message_body")),
		}
		if (msg.PhoneNumber == "" || msg.MessageBody == "") && c.Is("json") && len(c.Body()) > 0 {
			var body sms.Message
			if err := c.BodyParser(&body); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
			}
			if msg.PhoneNumber == "" {
				msg.PhoneNumber = body.PhoneNumber
			}
			if msg.MessageBody == "" {
				msg.MessageBody = body.MessageBody
			}
		}

		res, err := sender.Send(c.UserContext(), msg)
		if err != nil {
			switch {
			case errors.Is(err, sms.ErrInvalidMessage):
				return respondError(c, err)
			case errors.Is(err, sms.ErrNotConfigured):
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", err.Error())
			}
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(res)
	}
}
