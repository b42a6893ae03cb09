package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// treeNode is the row a GormTree keeps per node.
type treeNode struct {
	Path      string `gorm:"primaryKey;size:512"`
	Parent    string `gorm:"index;size:512;not null"`
	Data      []byte `gorm:"not null"`
	Rev       int64  `gorm:"not null"`
	UpdatedAt time.Time
}

func (treeNode) TableName() string { return "tree_nodes" }

// GormTree keeps the tree in a single SQL table. Compare-and-swap is a
// conditional UPDATE on the revision column, creation an INSERT that does
// nothing on a primary key conflict.
type GormTree struct {
	db *gorm.DB
}

// NewGormTree migrates the tree_nodes table and returns a tree on top of db.
func NewGormTree(db *gorm.DB) (*GormTree, error) {
	if err := db.AutoMigrate(&treeNode{}); err != nil {
		return nil, fmt.Errorf("err migrating tree_nodes: %w", err)
	}
	return &GormTree{db: db}, nil
}

var _ Tree = &GormTree{}

// Get returns the node stored at path.
func (g *GormTree) Get(ctx context.Context, path string) (Node, error) {
	var row treeNode
	err := g.db.WithContext(ctx).First(&row, "path = ?", path).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Node{}, ErrNodeNotFound
		}
		return Node{}, fmt.Errorf("sql get %s: %w", path, err)
	}
	return Node{Path: row.Path, Value: row.Data, Version: row.Rev}, nil
}

// Children returns the direct children of parent sorted by key.
func (g *GormTree) Children(ctx context.Context, parent string) ([]Node, error) {
	var rows []treeNode
	err := g.db.WithContext(ctx).
		Where("parent = ?", parent).
		Order("path asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sql children %s: %w", parent, err)
	}
	out := make([]Node, len(rows))
	for i, row := range rows {
		out[i] = Node{Path: row.Path, Value: row.Data, Version: row.Rev}
	}
	return out, nil
}

// CompareAndSwap inserts (version 0) or conditionally updates the row at path.
func (g *GormTree) CompareAndSwap(ctx context.Context, path string, version int64, value []byte) error {
	db := g.db.WithContext(ctx)
	var res *gorm.DB
	if version == 0 {
		res = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&treeNode{
			Path:   path,
			Parent: Parent(path),
			Data:   value,
			Rev:    1,
		})
	} else {
		res = db.Model(&treeNode{}).
			Where("path = ? AND rev = ?", path, version).
			Updates(map[string]interface{}{
				"data":       value,
				"rev":        gorm.Expr("rev + 1"),
				"updated_at": time.Now(),
			})
	}
	if res.Error != nil {
		return fmt.Errorf("sql cas %s: %w", path, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Close closes the underlying sql connection pool.
func (g *GormTree) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
