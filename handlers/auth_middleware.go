package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/sirupsen/logrus"
)

// AdminAuth requires "Authorization: Bearer <token>". An empty token rejects every request.
func AdminAuth(token string) fiber.Handler {
	if token == "" {
		logrus.WithField("component", "AdminAuth").Warn("ADMIN_TOKEN is not set, admin routes will reject all requests")
	}

	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:" + fiber.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if token == "" || subtle.ConstantTimeCompare([]byte(key), []byte(token)) != 1 {
				return false, keyauth.ErrMissingOrMalformedAPIKey
			}
			return true, nil
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logrus.WithFields(logrus.Fields{
				"component": "AdminAuth",
				"path":      c.Path(),
				"ip":        c.IP(),
			}).Warn("Rejected admin request")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Unauthorized",
			})
		},
	})
}
