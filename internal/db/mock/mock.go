package mock

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "cucina/internal/log"
	"cucina/models"
)

// New returns an in-memory sqlite database seeded with representative
// kitchen data: a catalog of packaged ingredients, a couple of costed
// recipes and the stock entries their creation pushed.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:cucina-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Ingredient{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.StockItem{},
	); err != nil {
		return nil, err
	}

	if err := seed(ctx, db); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte("brigade"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Name:         "Marina Prado",
		Email:        "marina@cucina.app",
		PasswordHash: string(password),
		Currency:     models.CurrencyReal,
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}

	ingredients := []*models.Ingredient{
		{Name: "Flour", Emoji: "🌾", PackageQuantity: 1000, PackagePrice: 10, Unit: "g", OwnerID: user.ID},
		{Name: "Sugar", Emoji: "🍬", PackageQuantity: 500, PackagePrice: 8, Unit: "g", OwnerID: user.ID},
		{Name: "Butter", Emoji: "🧈", PackageQuantity: 200, PackagePrice: 12, Unit: "g", OwnerID: user.ID},
		{Name: "Cocoa", Emoji: "🍫", PackageQuantity: 250, PackagePrice: 15, Unit: "g", OwnerID: user.ID},
	}
	for _, ingredient := range ingredients {
		if err := db.WithContext(ctx).Create(ingredient).Error; err != nil {
			return err
		}
	}

	brioche := models.Recipe{
		Name:          "Brioche Loaf",
		Notes:         "Overnight fermentation; brush with egg wash before baking.",
		Yield:         8,
		MarginPercent: 60,
		OwnerID:       user.ID,
	}
	brownie := models.Recipe{
		Name:          "Cocoa Brownie",
		Notes:         "Bake at 170C until the center barely sets.",
		Yield:         12,
		MarginPercent: 55,
		OwnerID:       user.ID,
	}

	if err := db.WithContext(ctx).Create(&brioche).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Create(&brownie).Error; err != nil {
		return err
	}

	lines := []models.RecipeIngredient{
		{RecipeID: brioche.ID, Name: "Flour", Emoji: "🌾", PackageQuantity: 700, TotalValue: 10, Quantity: 300},
		{RecipeID: brioche.ID, Name: "Butter", Emoji: "🧈", PackageQuantity: 120, TotalValue: 12, Quantity: 80},
		{RecipeID: brownie.ID, Name: "Cocoa", Emoji: "🍫", PackageQuantity: 150, TotalValue: 15, Quantity: 100},
		{RecipeID: brownie.ID, Name: "Sugar", Emoji: "🍬", PackageQuantity: 350, TotalValue: 8, Quantity: 150},
	}
	for _, line := range lines {
		lineCopy := line
		if err := db.WithContext(ctx).Create(&lineCopy).Error; err != nil {
			return err
		}
	}

	stock := []models.StockItem{
		{Name: "Flour", Emoji: "🌾", Quantity: 1000, Unit: "g", OwnerID: user.ID},
		{Name: "Butter", Emoji: "🧈", Quantity: 200, Unit: "g", OwnerID: user.ID},
		{Name: "Cocoa", Emoji: "🍫", Quantity: 250, Unit: "g", OwnerID: user.ID},
		{Name: "Sugar", Emoji: "🍬", Quantity: 500, Unit: "g", OwnerID: user.ID},
	}
	for _, item := range stock {
		itemCopy := item
		if err := db.WithContext(ctx).Create(&itemCopy).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
