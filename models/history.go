package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/utils"
	"gorm.io/gorm"
)

type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	UserId        string    `gorm:"size:36;index;not null" json:"userId"`
	ActionType    string    `gorm:"size:10;not null" json:"actionType"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceID   int       `gorm:"index" json:"referenceId"`
	ReferenceType string    `gorm:"size:50" json:"referenceType"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

const (
	HistoryActionCreate = "CREATE"
	HistoryActionUpdate = "UPDATE"
	HistoryActionDelete = "DELETE"
)

func createHistory(tx *gorm.DB,
	actionType string,
	referenceId int,
	referenceType string,
	before interface{},
	after interface{},
	description string) error {

	ctx := tx.Statement.Context
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return err
	}

	history := History{
		UserId:        userId,
		ActionType:    actionType,
		Description:   description,
		ReferenceID:   referenceId,
		ReferenceType: referenceType,
	}
	if before != nil {
		b, _ := json.Marshal(before)
		history.Before = string(b)
	}
	if after != nil {
		a, _ := json.Marshal(after)
		history.After = string(a)
	}

	return tx.Create(&history).Error
}

func SaveHistoryCreate(tx *gorm.DB, referenceType string, id int, obj interface{}, description string) error {
	return createHistory(tx, HistoryActionCreate, id, referenceType, nil, obj, description)
}

func SaveHistoryUpdate(tx *gorm.DB, referenceType string, id int, before interface{}, after interface{}, description string) error {
	return createHistory(tx, HistoryActionUpdate, id, referenceType, before, after, description)
}

func SaveHistoryDelete(tx *gorm.DB, referenceType string, id int, obj interface{}, description string) error {
	return createHistory(tx, HistoryActionDelete, id, referenceType, obj, nil, description)
}

// GetHistories lists the caller's history, newest first, optionally for one record.
func GetHistories(ctx context.Context, referenceType string, referenceId int, limit int) ([]*History, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("user_id = ?", userId)
	if referenceType != "" {
		dbCtx = dbCtx.Where("reference_type = ?", referenceType)
	}
	if referenceId > 0 {
		dbCtx = dbCtx.Where("reference_id = ?", referenceId)
	}

	var results []*History
	err = dbCtx.Order("created_at DESC, id DESC").Limit(clampLimit(limit)).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
