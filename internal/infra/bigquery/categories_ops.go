package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// ListCategoriesWithClient returns all categories ordered by name.
func ListCategoriesWithClient(ctx context.Context, client *bigquery.Client) ([]CategoryRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			category_id,
			name,
			created_ts
		FROM %s
		ORDER BY name
	`, tableRef(categoriesTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query read: %w", err)
	}

	var rows []CategoryRow
	for {
		var r CategoryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategories: iter next: %w", err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// GetOrCreateCategoryWithClient finds a category by name or creates it,
// returning its ID either way.
func GetOrCreateCategoryWithClient(ctx context.Context, client *bigquery.Client, name string) (string, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT category_id, name, created_ts
		FROM %s
		WHERE name = @name
		LIMIT 1
	`, tableRef(categoriesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "name", Value: name},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return "", fmt.Errorf("GetOrCreateCategory: query read: %w", err)
	}

	var existing CategoryRow
	err = it.Next(&existing)
	if err == nil {
		return existing.CategoryID, nil
	}
	if err != iterator.Done {
		return "", fmt.Errorf("GetOrCreateCategory: iter next: %w", err)
	}

	row := &CategoryRow{
		CategoryID: uuid.NewString(),
		Name:       name,
		CreatedTS:  time.Now(),
	}
	inserter := client.DatasetInProject(projectID, datasetID).Table(categoriesTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return "", fmt.Errorf("GetOrCreateCategory: inserting row: %w", err)
	}
	return row.CategoryID, nil
}
