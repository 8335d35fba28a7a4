package admin

import (
	"fmt"

	"creche-backend/internal/models"
	"creche-backend/internal/rules"
	"creche-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const auditSheet = "Audit"

var auditHeader = []any{"ID", "Created at", "User ID", "Role", "Entity", "Entity ID", "Action", "Description", "Before", "After"}

// WriteAuditWorkbook renders audit entries into a single-sheet workbook.
func WriteAuditWorkbook(logs []models.AuditLog) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", auditSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(auditSheet, "A1", &auditHeader); err != nil {
		f.Close()
		return nil, err
	}

	for i, l := range logs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []any{
			l.ID,
			l.CreatedAt.Format("2006-01-02 15:04:05"),
			l.UserID,
			string(l.UserRole),
			l.EntityType,
			l.EntityID,
			string(l.Action),
			l.Description,
			string(l.BeforeData),
			string(l.AfterData),
		}
		if err := f.SetSheetRow(auditSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// GET /api/admin/audit-logs/export?entity_type=review&limit=500
func ExportAuditLogsHandler(engine *rules.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logs, err := engine.Store().ListAuditLogs(c.UserContext(), store.AuditFilter{
			EntityType: c.Query("entity_type"),
			EntityID:   queryUint(c, "entity_id"),
			UserID:     queryUint(c, "user_id"),
			Limit:      c.QueryInt("limit", 500),
		})
		if err != nil {
			return rules.Internal(err)
		}

		f, err := WriteAuditWorkbook(logs)
		if err != nil {
			return rules.Internal(err)
		}
		defer f.Close()

		buf, err := f.WriteToBuffer()
		if err != nil {
			return rules.Internal(err)
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="audit-%d.xlsx"`, len(logs)))
		return c.Send(buf.Bytes())
	}
}
