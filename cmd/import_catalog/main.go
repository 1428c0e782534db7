// Command import_catalog loads a supplier price list into the ingredient
// catalog. It accepts a CSV export (Name, Emoji, Package Quantity, Package
// Price, Unit, Notes) or a PDF price list, from which it parses one
// "name quantity price" entry per line. Records are upserted by normalized
// ingredient name so re-running an import refreshes prices in place.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"gorm.io/gorm"

	"cucina/internal/allocation"
	"cucina/internal/config"
	"cucina/internal/db"
	"cucina/models"
)

var (
	numberPattern   = regexp.MustCompile(`[-+]?\d*[.,]?\d+`)
	cleanWhitespace = regexp.MustCompile(`\s+`)
	// A PDF price-list row: name text followed by package quantity and price.
	pdfRowPattern = regexp.MustCompile(`^(.+?)\s+(\d+[.,]?\d*)\s+(\d+[.,]?\d*)$`)
)

type catalogRecord struct {
	Name            string
	Emoji           string
	PackageQuantity float64
	PackagePrice    float64
	Unit            string
	Notes           string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: import_catalog <price-list.csv|price-list.pdf>")
		os.Exit(2)
	}

	if err := run(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("price list path must not be empty")
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("locate price list: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	var records []catalogRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		records, err = readPDF(path)
	default:
		records, err = readCSV(path)
	}
	if err != nil {
		return fmt.Errorf("read price list: %w", err)
	}

	ownerID, err := resolveImportOwner(database)
	if err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}

	imported := 0
	for idx, record := range records {
		if err := database.Transaction(func(tx *gorm.DB) error {
			return upsertIngredient(tx, record, ownerID)
		}); err != nil {
			return fmt.Errorf("record %d (%s): %w", idx+1, record.Name, err)
		}
		imported++
	}

	fmt.Fprintf(os.Stdout, "Imported %d ingredients from %s\n", imported, filepath.Base(path))
	return nil
}

func upsertIngredient(tx *gorm.DB, record catalogRecord, ownerID uint) error {
	var existing []models.Ingredient
	if err := tx.Find(&existing).Error; err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	for _, ingredient := range existing {
		if !allocation.SameName(ingredient.Name, record.Name) {
			continue
		}
		updates := map[string]any{
			"package_quantity": record.PackageQuantity,
			"package_price":    record.PackagePrice,
		}
		if record.Emoji != "" {
			updates["emoji"] = record.Emoji
		}
		if record.Unit != "" {
			updates["unit"] = record.Unit
		}
		if record.Notes != "" {
			updates["notes"] = record.Notes
		}
		if err := tx.Model(&models.Ingredient{}).Where("id = ?", ingredient.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update ingredient %q: %w", record.Name, err)
		}
		return nil
	}

	ingredient := models.Ingredient{
		Name:            record.Name,
		Emoji:           record.Emoji,
		PackageQuantity: record.PackageQuantity,
		PackagePrice:    record.PackagePrice,
		Unit:            record.Unit,
		Notes:           record.Notes,
		OwnerID:         ownerID,
	}
	if err := tx.Create(&ingredient).Error; err != nil {
		return fmt.Errorf("create ingredient %q: %w", record.Name, err)
	}
	return nil
}

func resolveImportOwner(database *gorm.DB) (uint, error) {
	if database == nil {
		return 0, fmt.Errorf("database handle is nil")
	}

	ctx := context.Background()
	email := strings.TrimSpace(os.Getenv("CUCINA_CATALOG_OWNER_EMAIL"))
	if email != "" {
		var user models.User
		if err := database.WithContext(ctx).Where("lower(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
			return 0, fmt.Errorf("find owner by email %q: %w", strings.ToLower(email), err)
		}
		return user.ID, nil
	}

	var user models.User
	if err := database.WithContext(ctx).Order("id asc").First(&user).Error; err != nil {
		return 0, fmt.Errorf("find default owner: %w", err)
	}
	return user.ID, nil
}

func readCSV(path string) ([]catalogRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	header := rows[0]
	records := make([]catalogRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}

		fields := make(map[string]string, len(header))
		for idx, key := range header {
			if idx >= len(row) {
				continue
			}
			fields[strings.TrimSpace(key)] = strings.TrimSpace(row[idx])
		}

		record := catalogRecord{
			Name:            fields["Name"],
			Emoji:           fields["Emoji"],
			PackageQuantity: parseFirstNumber(fields["Package Quantity"]),
			PackagePrice:    parseFirstNumber(fields["Package Price"]),
			Unit:            fields["Unit"],
			Notes:           normalizeText(fields["Notes"]),
		}
		if record.Name == "" {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func readPDF(path string) ([]catalogRecord, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return parsePriceListText(builder.String()), nil
}

func parsePriceListText(text string) []catalogRecord {
	var records []catalogRecord
	for _, raw := range strings.Split(text, "\n") {
		line := normalizeText(raw)
		if line == "" {
			continue
		}
		match := pdfRowPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		name := strings.TrimSpace(match[1])
		if name == "" || parseFirstNumber(match[2]) <= 0 {
			continue
		}
		records = append(records, catalogRecord{
			Name:            name,
			PackageQuantity: parseFirstNumber(match[2]),
			PackagePrice:    parseFirstNumber(match[3]),
		})
	}
	return records
}

func normalizeText(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "N/A") {
		return ""
	}
	return strings.TrimSpace(cleanWhitespace.ReplaceAllString(value, " "))
}

func parseFirstNumber(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	match := numberPattern.FindString(value)
	if match == "" {
		return 0
	}
	match = strings.ReplaceAll(match, ",", ".")

	parsed, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return parsed
}
