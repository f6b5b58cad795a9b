// Package dynamodb provides a DynamoDB-backed storage driver. The table uses
// conversation_id as its partition key and timestamp as its sort key.
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/papercomputeco/parley/pkg/storage"
)

// DefaultTable is the table name used when none is configured.
const DefaultTable = "conversations"

// API is the subset of the DynamoDB client used by the driver.
type API interface {
	dynamodb.QueryAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Config holds configuration for the DynamoDB driver.
type Config struct {
	Table    string
	Region   string
	Endpoint string

	// Client replaces the SDK client, mostly for tests.
	Client API
}

// Driver implements storage.Driver on a DynamoDB table.
type Driver struct {
	client API
	table  string
}

// NewDriver creates a DynamoDB driver. The table must already exist.
func NewDriver(ctx context.Context, cfg Config) (*Driver, error) {
	d := &Driver{client: cfg.Client, table: cfg.Table}
	if d.table == "" {
		d.table = DefaultTable
	}

	if d.client == nil {
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}

		d.client = dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
	}

	return d, nil
}

// Put writes the record unless an item with the same key exists, in which
// case storage.ErrConflict is returned.
func (d *Driver) Put(ctx context.Context, record *storage.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(conversation_id) AND attribute_not_exists(#ts)"),
		ExpressionAttributeNames: map[string]string{
			"#ts": "timestamp",
		},
	})

	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return fmt.Errorf("%w: %s at %s", storage.ErrConflict, record.ConversationID, record.Timestamp)
	}
	if err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// List pages through the partition in ascending sort key order.
func (d *Driver) List(ctx context.Context, conversationID string) ([]*storage.Record, error) {
	paginator := dynamodb.NewQueryPaginator(d.client, d.query(conversationID, true, 0))

	records := []*storage.Record{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query records: %w", err)
		}

		var batch []*storage.Record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal records: %w", err)
		}
		records = append(records, batch...)
	}

	return records, nil
}

// Latest reads the last item of the partition.
func (d *Driver) Latest(ctx context.Context, conversationID string) (*storage.Record, error) {
	out, err := d.client.Query(ctx, d.query(conversationID, false, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to query latest record: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, storage.NotFoundError{ConversationID: conversationID}
	}

	record := &storage.Record{}
	if err := attributevalue.UnmarshalMap(out.Items[0], record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return record, nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) query(conversationID string, ascending bool, limit int32) *dynamodb.QueryInput {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("conversation_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: conversationID},
		},
		ScanIndexForward: aws.Bool(ascending),
	}
	if limit > 0 {
		in.Limit = aws.Int32(limit)
	}
	return in
}

var _ storage.Driver = (*Driver)(nil)
