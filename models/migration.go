package models

import (
	"log"

	"github.com/mmdatafocus/costbook_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{},
		&Recipe{}, &RecipeIngredient{},
		&Draft{},
		&History{},
		&RecipeEventRecord{}, &IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
