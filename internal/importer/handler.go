package importer

import (
	"errors"
	"log"

	"envanter-backend/internal/reconcile"

	"github.com/gofiber/fiber/v2"
)

// POST /api/admin/import-snapshot (multipart, alan adı: file)
// Dosya burada sabit satır şekline çevrilir, motor yalnızca tipli satırları görür.
func ImportSnapshotHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dosya yüklenmedi (alan adı 'file' olmalı)")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dosya açılamadı")
		}
		defer file.Close()

		rows, rowErrors, err := ParseSnapshot(file)
		if err != nil {
			// Dosya düzeyinde ölümcül: hiçbir yazma yapılmadı.
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}

		summary, err := reconcile.ImportSnapshot(rows, rowErrors)
		if err != nil {
			if errors.Is(err, reconcile.ErrNoValidRows) {
				return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
			}
			log.Printf("Sayım dosyası içe aktarılamadı: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "İçe aktarma başarısız, hiçbir değişiklik yapılmadı")
		}

		return c.JSON(summary)
	}
}
