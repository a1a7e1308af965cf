package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"leads-organizer-backend/logger"
	"leads-organizer-backend/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const idempotencyHeader = "Idempotency-Key"

// Idempotency processes Idempotency-Key for mutating HTTP methods. Keys are
// scoped to the authenticated operator, so it must run after the auth middleware.
func Idempotency(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyHeader))
		if key == "" {
			return c.Next()
		}
		if len(key) > 128 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Idempotency-Key too long"})
		}

		userID, _ := c.Locals("userID").(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "auth context missing"})
		}

		path := c.OriginalURL() // includes query string

		// Build deterministic request hash: method|path|body|user
		h := sha256.New()
		h.Write([]byte(method))
		h.Write([]byte{'\n'})
		h.Write([]byte(path))
		h.Write([]byte{'\n'})
		h.Write(c.Body())
		h.Write([]byte{'\n'})
		h.Write([]byte(userID))
		reqHash := hex.EncodeToString(h.Sum(nil))

		ctx := c.UserContext()

		// Phase 1: find the key or claim it as pending
		var existing models.IdempotencyKey
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.Where(&models.IdempotencyKey{UserID: userID, Key: key}).First(&existing).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
			}

			rec := models.IdempotencyKey{
				Key:         key,
				RequestHash: reqHash,
				Method:      method,
				Path:        path,
				UserID:      userID,
			}
			if err := tx.Create(&rec).Error; err != nil {
				// lost a race with a concurrent request carrying the same key
				if e2 := tx.Where(&models.IdempotencyKey{UserID: userID, Key: key}).First(&existing).Error; e2 != nil {
					return fiber.NewError(fiber.StatusInternalServerError, "idempotency create failed")
				}
				return nil
			}
			existing = rec
			return nil
		})
		if err != nil {
			return err
		}

		if existing.RequestHash != reqHash {
			return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
		}
		if existing.ResponseStatus != 0 {
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(existing.ResponseStatus).Send(existing.ResponseBody)
		}

		if err := c.Next(); err != nil {
			return err
		}

		// Phase 2: store the response; best-effort, the handler already succeeded
		now := time.Now().UTC()
		resp := c.Response().Body()
		blob := make([]byte, len(resp))
		copy(blob, resp)

		err = db.WithContext(ctx).Model(&models.IdempotencyKey{}).
			Where(&models.IdempotencyKey{UserID: userID, Key: key}).
			Updates(map[string]any{
				"response_status": c.Response().StatusCode(),
				"response_body":   blob,
				"completed_at":    &now,
			}).Error
		if err != nil {
			logger.FromFiber(c).Error("idempotent response not stored",
				zap.String("idempotency_key", key), zap.Error(err))
		}

		return nil
	}
}
