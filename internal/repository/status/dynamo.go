package status

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	conf "github.com/trunov/mediashrink/internal/config"
	"github.com/trunov/mediashrink/internal/entities"
)

// Dynamo keeps one item per object key, object_key being the partition key.
type Dynamo struct {
	client *dynamodb.Client
	table  string
}

func NewDynamo(ctx context.Context, cfg *conf.DynamoDBConfig) (*Dynamo, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Dynamo{client: client, table: cfg.Table}, nil
}

func (d *Dynamo) Upsert(ctx context.Context, rec entities.ProcessingRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal status for %q: %w", rec.ObjectKey, err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put status for %q: %w", rec.ObjectKey, err)
	}
	return nil
}

func (d *Dynamo) Get(ctx context.Context, key string) (entities.ProcessingRecord, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"object_key": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return entities.ProcessingRecord{}, fmt.Errorf("get status for %q: %w", key, err)
	}
	if len(out.Item) == 0 {
		return entities.ProcessingRecord{}, ErrNotFound
	}

	var rec entities.ProcessingRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return entities.ProcessingRecord{}, fmt.Errorf("unmarshal status for %q: %w", key, err)
	}
	return rec, nil
}
