package reconcile

import (
	"github.com/gofiber/fiber/v2"
)

// GET /api/admin/import-preflight
// İçe aktarmadan önce aktif toplama listelerini gösterir. Liste boş değilse
// çağıran kullanıcıları bilgilendirmeli ya da listeleri kapattırmalıdır;
// motor bu ön koşulu zorlamaz.
func PreflightHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessions, err := PreflightActiveSessions()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Aktif listeler sorgulanamadı")
		}

		return c.JSON(fiber.Map{
			"active_sessions": sessions,
			"safe_to_import":  len(sessions) == 0,
		})
	}
}
