package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pkg/dbutil"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
)

type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Create(ctx context.Context, category *model.Category) error {
	data := map[string]interface{}{
		"id":          category.ID,
		"org_id":      category.OrgID,
		"name":        category.Name,
		"description": category.Description,
		"ctime":       category.Ctime,
		"mtime":       category.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("categories", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil && dbutil.IsConflict(err) {
		return appErr.ErrConflict
	}
	return err
}

func (r *CategoryRepo) List(ctx context.Context, orgID string) ([]model.Category, error) {
	sqlStr, args, err := builder.BuildSelect("categories",
		map[string]interface{}{"org_id": orgID, "_orderby": "name asc"},
		[]string{"id", "org_id", "name", "description", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.Category, 0)
	for rows.Next() {
		var item model.Category
		if err := rows.Scan(&item.ID, &item.OrgID, &item.Name, &item.Description, &item.Ctime, &item.Mtime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *CategoryRepo) GetByID(ctx context.Context, orgID, categoryID string) (*model.Category, error) {
	sqlStr, args, err := builder.BuildSelect("categories",
		map[string]interface{}{"id": categoryID, "org_id": orgID},
		[]string{"id", "org_id", "name", "description", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var item model.Category
	if err := rows.Scan(&item.ID, &item.OrgID, &item.Name, &item.Description, &item.Ctime, &item.Mtime); err != nil {
		return nil, err
	}
	return &item, nil
}
