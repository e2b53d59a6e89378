package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/aws/aws-sdk-go/service/dynamodb/expression"

	"imageshelf/internal/models"
)

// dynamoItem is the attribute layout of one image record in DynamoDB.
type dynamoItem struct {
	ImageID     string   `dynamodbav:"image_id"`
	UserID      string   `dynamodbav:"user_id"`
	Title       string   `dynamodbav:"title"`
	Description string   `dynamodbav:"description"`
	Tags        []string `dynamodbav:"tags"`
	ContentType string   `dynamodbav:"content_type"`
	CreatedAt   string   `dynamodbav:"created_at"`
	BlobKey     string   `dynamodbav:"s3_key"`
}

// DynamoRepository keeps image records in a DynamoDB table with a global
// secondary index on user_id.
type DynamoRepository struct {
	client        dynamodbiface.DynamoDBAPI
	table         string
	userIndex     string
	readCapacity  int64
	writeCapacity int64
}

func NewDynamoRepository(client dynamodbiface.DynamoDBAPI, table, userIndex string, readCapacity, writeCapacity int64) *DynamoRepository {
	return &DynamoRepository{
		client:        client,
		table:         table,
		userIndex:     userIndex,
		readCapacity:  readCapacity,
		writeCapacity: writeCapacity,
	}
}

// EnsureSchema creates the table with its user index, or adds the index to an
// existing table that lacks it.
func (r *DynamoRepository) EnsureSchema(ctx context.Context) error {
	desc, err := r.client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.table),
	})
	if err != nil {
		if isAWSCode(err, dynamodb.ErrCodeResourceNotFoundException) {
			return r.createTable(ctx)
		}
		return fmt.Errorf("describe table %s: %w", r.table, err)
	}

	for _, gsi := range desc.Table.GlobalSecondaryIndexes {
		if aws.StringValue(gsi.IndexName) == r.userIndex {
			return nil
		}
	}
	return r.addUserIndex(ctx)
}

func (r *DynamoRepository) createTable(ctx context.Context) error {
	_, err := r.client.CreateTableWithContext(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(r.table),
		KeySchema: []*dynamodb.KeySchemaElement{
			{AttributeName: aws.String("image_id"), KeyType: aws.String(dynamodb.KeyTypeHash)},
		},
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{AttributeName: aws.String("image_id"), AttributeType: aws.String(dynamodb.ScalarAttributeTypeS)},
			{AttributeName: aws.String("user_id"), AttributeType: aws.String(dynamodb.ScalarAttributeTypeS)},
		},
		GlobalSecondaryIndexes: []*dynamodb.GlobalSecondaryIndex{
			{
				IndexName: aws.String(r.userIndex),
				KeySchema: []*dynamodb.KeySchemaElement{
					{AttributeName: aws.String("user_id"), KeyType: aws.String(dynamodb.KeyTypeHash)},
				},
				Projection:            &dynamodb.Projection{ProjectionType: aws.String(dynamodb.ProjectionTypeAll)},
				ProvisionedThroughput: r.throughput(),
			},
		},
		BillingMode:           aws.String(dynamodb.BillingModeProvisioned),
		ProvisionedThroughput: r.throughput(),
	})
	if err != nil {
		if isAWSCode(err, dynamodb.ErrCodeResourceInUseException) {
			return nil
		}
		return fmt.Errorf("create table %s: %w", r.table, err)
	}

	return r.client.WaitUntilTableExistsWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.table),
	})
}

func (r *DynamoRepository) addUserIndex(ctx context.Context) error {
	_, err := r.client.UpdateTableWithContext(ctx, &dynamodb.UpdateTableInput{
		TableName: aws.String(r.table),
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{AttributeName: aws.String("user_id"), AttributeType: aws.String(dynamodb.ScalarAttributeTypeS)},
		},
		GlobalSecondaryIndexUpdates: []*dynamodb.GlobalSecondaryIndexUpdate{
			{
				Create: &dynamodb.CreateGlobalSecondaryIndexAction{
					IndexName: aws.String(r.userIndex),
					KeySchema: []*dynamodb.KeySchemaElement{
						{AttributeName: aws.String("user_id"), KeyType: aws.String(dynamodb.KeyTypeHash)},
					},
					Projection:            &dynamodb.Projection{ProjectionType: aws.String(dynamodb.ProjectionTypeAll)},
					ProvisionedThroughput: r.throughput(),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("add index %s to %s: %w", r.userIndex, r.table, err)
	}
	return nil
}

func (r *DynamoRepository) throughput() *dynamodb.ProvisionedThroughput {
	return &dynamodb.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(r.readCapacity),
		WriteCapacityUnits: aws.Int64(r.writeCapacity),
	}
}

func (r *DynamoRepository) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.table),
	})
	return err
}

func (r *DynamoRepository) Put(ctx context.Context, record models.ImageRecord) error {
	av, err := dynamodbattribute.MarshalMap(toDynamoItem(record))
	if err != nil {
		return fmt.Errorf("marshal image item: %w", err)
	}

	_, err = r.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put image item: %w", err)
	}
	return nil
}

func (r *DynamoRepository) Get(ctx context.Context, imageID string) (models.ImageRecord, error) {
	// Point reads are strongly consistent; only the user index lags writes.
	result, err := r.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            imageKey(imageID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return models.ImageRecord{}, fmt.Errorf("get image item: %w", err)
	}
	if result.Item == nil {
		return models.ImageRecord{}, ErrImageNotFound
	}
	return fromDynamoAttributes(result.Item)
}

func (r *DynamoRepository) Delete(ctx context.Context, imageID string) error {
	_, err := r.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       imageKey(imageID),
	})
	if err != nil {
		return fmt.Errorf("delete image item: %w", err)
	}
	return nil
}

func (r *DynamoRepository) Query(ctx context.Context, userID string) ([]models.ImageRecord, error) {
	records := []models.ImageRecord{}
	var decodeErr error
	collect := func(items []map[string]*dynamodb.AttributeValue) bool {
		for _, item := range items {
			record, err := fromDynamoAttributes(item)
			if err != nil {
				decodeErr = err
				return false
			}
			records = append(records, record)
		}
		return true
	}

	if userID == "" {
		err := r.client.ScanPagesWithContext(ctx, &dynamodb.ScanInput{
			TableName: aws.String(r.table),
		}, func(page *dynamodb.ScanOutput, _ bool) bool {
			return collect(page.Items)
		})
		if err != nil {
			return nil, fmt.Errorf("scan images: %w", err)
		}
		return records, decodeErr
	}

	keyCondition := expression.Key("user_id").Equal(expression.Value(userID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCondition).Build()
	if err != nil {
		return nil, fmt.Errorf("build expression: %w", err)
	}

	err = r.client.QueryPagesWithContext(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(r.userIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, func(page *dynamodb.QueryOutput, _ bool) bool {
		return collect(page.Items)
	})
	if err != nil {
		return nil, fmt.Errorf("query images by user: %w", err)
	}
	return records, decodeErr
}

func imageKey(imageID string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"image_id": {S: aws.String(imageID)},
	}
}

func toDynamoItem(record models.ImageRecord) dynamoItem {
	return dynamoItem{
		ImageID:     record.ImageID,
		UserID:      record.UserID,
		Title:       record.Title,
		Description: record.Description,
		Tags:        record.Tags,
		ContentType: record.ContentType,
		CreatedAt:   record.CreatedAt.UTC().Format(time.RFC3339Nano),
		BlobKey:     record.BlobKey,
	}
}

func fromDynamoAttributes(av map[string]*dynamodb.AttributeValue) (models.ImageRecord, error) {
	var item dynamoItem
	if err := dynamodbattribute.UnmarshalMap(av, &item); err != nil {
		return models.ImageRecord{}, fmt.Errorf("unmarshal image item: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return models.ImageRecord{}, fmt.Errorf("parse created_at of %s: %w", item.ImageID, err)
	}

	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}

	return models.ImageRecord{
		ImageID:     item.ImageID,
		UserID:      item.UserID,
		Title:       item.Title,
		Description: item.Description,
		Tags:        tags,
		ContentType: item.ContentType,
		CreatedAt:   createdAt.UTC(),
		BlobKey:     item.BlobKey,
	}, nil
}

func isAWSCode(err error, code string) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == code
}
