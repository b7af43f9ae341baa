package models

import (
	"fmt"

	"github.com/mmdatafocus/costbook_backend/utils"
	"gorm.io/gorm"
)

type Identifier interface {
	GetId() int
}

type Cursor interface {
	GetCursor() string
}

type Edge[N Identifier] struct {
	Node   *N     `json:"node"`
	Cursor string `json:"cursor"`
}

type CompositeCursor interface {
	Cursor
	Identifier
}

// FetchPageById pages newest id first.
func FetchPageById[T Identifier](dbCtx *gorm.DB, limit int, after *string) ([]Edge[T], *PageInfo, error) {
	afterId, err := DecodeIdCursor(after)
	if err != nil {
		return nil, nil, err
	}
	if afterId > 0 {
		dbCtx = dbCtx.Where("id < ?", afterId)
	}

	nodes := make([]*T, 0)
	if err := dbCtx.Order("id DESC").Limit(limit + 1).Find(&nodes).Error; err != nil {
		return nil, nil, err
	}

	return connectNodes(nodes, limit, func(node *T) string {
		return EncodeIdCursor((*node).GetId())
	}), pageInfoOf(nodes, limit, func(node *T) string {
		return EncodeIdCursor((*node).GetId())
	}), nil
}

// FetchPageCompositeCursor pages by (cursorColumn, id). cmpOperator ">"
// sorts ascending, "<" descending.
func FetchPageCompositeCursor[T CompositeCursor](dbCtx *gorm.DB,
	limit int,
	after *string,
	cursorColumn string,
	cmpOperator string,
) ([]Edge[T], *PageInfo, error) {

	if cmpOperator == ">" {
		dbCtx = dbCtx.Order(cursorColumn + ", id")
	} else {
		cmpOperator = "<"
		dbCtx = dbCtx.Order(cursorColumn + " DESC, id DESC")
	}

	decodedCursor, cursorId := DecodeCompositeCursor(after)
	if after != nil && *after != "" && cursorId == 0 {
		return nil, nil, fmt.Errorf("%w: malformed cursor", utils.ErrInvalidInput)
	}
	if cursorId > 0 {
		dbCtx = dbCtx.Where(
			// [1] = column, [2] = operator
			fmt.Sprintf("(%[1]s %[2]s ? OR (%[1]s = ? AND id %[2]s ?))", cursorColumn, cmpOperator),
			decodedCursor, decodedCursor, cursorId)
	}

	nodes := make([]*T, 0)
	if err := dbCtx.Limit(limit + 1).Find(&nodes).Error; err != nil {
		return nil, nil, err
	}

	encode := func(node *T) string {
		return EncodeCompositeCursor((*node).GetCursor(), (*node).GetId())
	}
	return connectNodes(nodes, limit, encode), pageInfoOf(nodes, limit, encode), nil
}

func connectNodes[T Identifier](nodes []*T, limit int, encode func(*T) string) []Edge[T] {
	edges := make([]Edge[T], 0, len(nodes))
	for i, node := range nodes {
		if i == limit {
			break
		}
		edges = append(edges, Edge[T]{Node: node, Cursor: encode(node)})
	}
	return edges
}

func pageInfoOf[T any](nodes []*T, limit int, encode func(*T) string) *PageInfo {
	count := len(nodes)
	if count > limit {
		count = limit
	}
	if count == 0 {
		return &PageInfo{HasNextPage: utils.NewFalse()}
	}
	hasNextPage := len(nodes) > limit
	return &PageInfo{
		StartCursor: encode(nodes[0]),
		EndCursor:   encode(nodes[count-1]),
		HasNextPage: &hasNextPage,
	}
}
