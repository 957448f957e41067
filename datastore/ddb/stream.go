/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/modelsync/document"
	"github.com/suparena/modelsync/storagemodels"
)

// scanCursor pages through a Scan lazily, one page per round trip.
// Skip and Limit are applied to the filtered results on the client.
// DynamoDB applies a Scan Limit before the FilterExpression, so the batch
// size only bounds unfiltered scans; filtered ones read full pages.
type scanCursor struct {
	client Client
	input  *sdk.ScanInput
	opts   storagemodels.FindOptions

	page      []map[string]types.AttributeValue
	pos       int
	exhausted bool
	pages     int
	skipped   int64
	returned  int64

	cur *document.Document
	err error
}

func newScanCursor(client Client, input *sdk.ScanInput, opts storagemodels.FindOptions) *scanCursor {
	if opts.BatchSize > 0 && input.FilterExpression == nil {
		input.Limit = &opts.BatchSize
	}
	return &scanCursor{client: client, input: input, opts: opts}
}

func (c *scanCursor) Next(ctx context.Context) bool {
	c.cur = nil
	for {
		if c.opts.Limit > 0 && c.returned >= c.opts.Limit {
			return false
		}
		item, ok := c.nextItem(ctx)
		if !ok {
			return false
		}
		if c.skipped < c.opts.Skip {
			c.skipped++
			continue
		}
		doc, err := unmarshalItem(item)
		if err != nil {
			c.err = err
			return false
		}
		c.cur = doc
		c.returned++
		return true
	}
}

// nextItem returns the next raw item, fetching pages as needed.
func (c *scanCursor) nextItem(ctx context.Context) (map[string]types.AttributeValue, bool) {
	for c.err == nil {
		if c.pos < len(c.page) {
			item := c.page[c.pos]
			c.pos++
			return item, true
		}
		if c.exhausted {
			return nil, false
		}
		c.fetch(ctx)
	}
	return nil, false
}

func (c *scanCursor) fetch(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		c.err = err
		return
	}
	out, err := c.client.Scan(ctx, c.input)
	if err != nil {
		c.err = fmt.Errorf("ddb: scan %s: %w", *c.input.TableName, err)
		return
	}
	c.pages++
	c.page = out.Items
	c.pos = 0
	if len(out.LastEvaluatedKey) == 0 {
		c.exhausted = true
		return
	}
	c.input.ExclusiveStartKey = out.LastEvaluatedKey
}

func (c *scanCursor) Document() *document.Document { return c.cur }

func (c *scanCursor) Err() error { return c.err }

func (c *scanCursor) Close(ctx context.Context) error {
	c.page = nil
	c.exhausted = true
	return nil
}
