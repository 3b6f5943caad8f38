package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

var _ DDBClient = (*dynamodb.Client)(nil)

// DynamoLedger is a Ledger backed by a DynamoDB table. Claims use
// conditional writes, so several workers can share one table.
//
// Table schema:
//   - Partition key: id (string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name stitchgo-ledger \
//	  --attribute-definitions AttributeName=id,AttributeType=S \
//	  --key-schema AttributeName=id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type DynamoLedger struct {
	client    DDBClient
	tableName string
	now       func() time.Time
}

// NewDynamoLedger creates a ledger on an existing table.
func NewDynamoLedger(client DDBClient, tableName string) *DynamoLedger {
	return &DynamoLedger{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

// DialDynamo creates a DynamoLedger using the default AWS configuration.
func DialDynamo(ctx context.Context, tableName, region string) (*DynamoLedger, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewDynamoLedger(dynamodb.NewFromConfig(cfg), tableName), nil
}

func (l *DynamoLedger) Begin(ctx context.Context, id string) error {
	rec := Record{ID: id, Status: StatusPending, StartedAt: l.now()}

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                marshalRecord(rec),
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: %s", ErrAlreadyProcessed, id)
		}
		return fmt.Errorf("failed to claim %s in DynamoDB: %w", id, err)
	}
	return nil
}

func (l *DynamoLedger) Finish(ctx context.Context, rec Record) error {
	if rec.StartedAt.IsZero() {
		prev, err := l.Get(ctx, rec.ID)
		if err != nil {
			return err
		}
		rec.StartedAt = prev.StartedAt
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = l.now()
	}

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                marshalRecord(rec),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
		}
		return fmt.Errorf("failed to finish %s in DynamoDB: %w", rec.ID, err)
	}
	return nil
}

func (l *DynamoLedger) Get(ctx context.Context, id string) (Record, error) {
	resp, err := l.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(l.tableName),
		Key:            map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Record{}, fmt.Errorf("failed to read %s from DynamoDB: %w", id, err)
	}
	if len(resp.Item) == 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return unmarshalRecord(resp.Item)
}

func marshalRecord(rec Record) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"id":          &types.AttributeValueMemberS{Value: rec.ID},
		"status":      &types.AttributeValueMemberS{Value: string(rec.Status)},
		"rows":        &types.AttributeValueMemberN{Value: strconv.Itoa(rec.Rows)},
		"failed_rows": &types.AttributeValueMemberN{Value: strconv.Itoa(rec.FailedRows)},
		"started_at":  &types.AttributeValueMemberS{Value: rec.StartedAt.UTC().Format(time.RFC3339Nano)},
	}
	if rec.Key != "" {
		item["artifact_key"] = &types.AttributeValueMemberS{Value: rec.Key}
	}
	if rec.Error != "" {
		item["error"] = &types.AttributeValueMemberS{Value: rec.Error}
	}
	if !rec.FinishedAt.IsZero() {
		item["finished_at"] = &types.AttributeValueMemberS{Value: rec.FinishedAt.UTC().Format(time.RFC3339Nano)}
	}
	return item
}

func unmarshalRecord(item map[string]types.AttributeValue) (Record, error) {
	var rec Record

	str := func(name string) string {
		if v, ok := item[name].(*types.AttributeValueMemberS); ok {
			return v.Value
		}
		return ""
	}
	num := func(name string) (int, error) {
		v, ok := item[name].(*types.AttributeValueMemberN)
		if !ok {
			return 0, nil
		}
		return strconv.Atoi(v.Value)
	}
	ts := func(name string) (time.Time, error) {
		s := str(name)
		if s == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339Nano, s)
	}

	rec.ID = str("id")
	if rec.ID == "" {
		return Record{}, errors.New("invalid id attribute in DynamoDB")
	}
	rec.Status = Status(str("status"))
	rec.Key = str("artifact_key")
	rec.Error = str("error")

	var err error
	if rec.Rows, err = num("rows"); err != nil {
		return Record{}, fmt.Errorf("failed to parse rows: %w", err)
	}
	if rec.FailedRows, err = num("failed_rows"); err != nil {
		return Record{}, fmt.Errorf("failed to parse failed_rows: %w", err)
	}
	if rec.StartedAt, err = ts("started_at"); err != nil {
		return Record{}, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if rec.FinishedAt, err = ts("finished_at"); err != nil {
		return Record{}, fmt.Errorf("failed to parse finished_at: %w", err)
	}
	return rec, nil
}
