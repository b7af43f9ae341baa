package models

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultRecipeLimit = 50
	MaxRecipeLimit     = 500
)

type PageInfo struct {
	StartCursor string `json:"startCursor"`
	EndCursor   string `json:"endCursor"`
	HasNextPage *bool  `json:"hasNextPage,omitempty"`
}

// clampLimit maps <= 0 to the default and caps at the maximum.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecipeLimit
	}
	if limit > MaxRecipeLimit {
		return MaxRecipeLimit
	}
	return limit
}

func DecodeIdCursor(cursor *string) (int, error) {
	if cursor == nil || *cursor == "" {
		return 0, nil
	}
	b, err := base64.StdEncoding.DecodeString(*cursor)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(b))
}

func EncodeIdCursor(id int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(id)))
}

func DecodeCompositeCursor(cursor *string) (string, int) {
	if cursor == nil || *cursor == "" {
		return "", 0
	}

	decoded, err := base64.StdEncoding.DecodeString(*cursor)
	if err != nil {
		return "", 0
	}

	idx := strings.LastIndex(string(decoded), "|")
	if idx < 0 {
		return "", 0
	}
	id, err := strconv.Atoi(string(decoded[idx+1:]))
	if err != nil {
		return "", 0
	}

	return string(decoded[:idx]), id
}

func EncodeCompositeCursor(value string, id int) string {
	cursor := fmt.Sprintf("%s|%d", value, id)
	return base64.StdEncoding.EncodeToString([]byte(cursor))
}
