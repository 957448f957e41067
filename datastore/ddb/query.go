/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/modelsync/query"
	"github.com/suparena/modelsync/storagemodels"
)

// scanInput builds a Scan over the collection table filtered by f.
func (c *Collection) scanInput(f query.Filter) (*sdk.ScanInput, error) {
	x := newExpression()
	cond, err := x.condition(f)
	if err != nil {
		return nil, fmt.Errorf("ddb: filter %s: %w", c.name, err)
	}
	input := &sdk.ScanInput{
		TableName:      &c.table,
		ConsistentRead: &c.consistentRead,
	}
	if cond != "" {
		input.FilterExpression = &cond
		input.ExpressionAttributeNames = x.Names()
		input.ExpressionAttributeValues = x.Values()
	}
	return input, nil
}

// matches returns the raw items matching f: the first one only, or all of
// them when multi is set.
func (c *Collection) matches(ctx context.Context, f query.Filter, multi bool) ([]map[string]types.AttributeValue, error) {
	input, err := c.scanInput(f)
	if err != nil {
		return nil, err
	}
	cur := newScanCursor(c.client, input, storagemodels.DefaultFindOptions())
	defer cur.Close(ctx)

	var items []map[string]types.AttributeValue
	for {
		item, ok := cur.nextItem(ctx)
		if !ok {
			break
		}
		items = append(items, item)
		if !multi {
			break
		}
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// writeCondition guards a write so it only applies while the item still
// exists and still matches f.
func (c *Collection) writeCondition(x *expression, f query.Filter) (string, error) {
	cond, err := x.condition(f)
	if err != nil {
		return "", fmt.Errorf("ddb: filter %s: %w", c.name, err)
	}
	exists := fmt.Sprintf("attribute_exists(%s)", x.name(c.keyAttr))
	if cond == "" {
		return exists, nil
	}
	return exists + " AND " + cond, nil
}

func (c *Collection) keyOf(item map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	k, ok := item[c.keyAttr]
	if !ok {
		return nil, fmt.Errorf("ddb: item in %s has no %s attribute", c.table, c.keyAttr)
	}
	return map[string]types.AttributeValue{c.keyAttr: k}, nil
}
