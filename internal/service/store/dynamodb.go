package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ifuryst/postmigrate/internal/config"
	"github.com/ifuryst/postmigrate/internal/models"
)

// documentKey is the hash key of every table this writer creates.
const documentKey = "documentId"

type DynamoDBWriter struct {
	client      dynamodbiface.DynamoDBAPI
	tablePrefix string
	logger      *zap.Logger

	mu     sync.Mutex
	tables map[string]bool
	newID  func() string
}

func NewDynamoDBWriter(cfg config.DynamoDBConfig, logger *zap.Logger) (*DynamoDBWriter, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	// For local testing with DynamoDB Local
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return newDynamoDBWriter(dynamodb.New(sess), cfg.TablePrefix, logger), nil
}

func newDynamoDBWriter(client dynamodbiface.DynamoDBAPI, prefix string, logger *zap.Logger) *DynamoDBWriter {
	return &DynamoDBWriter{
		client:      client,
		tablePrefix: prefix,
		logger:      logger,
		tables:      make(map[string]bool),
		newID:       uuid.NewString,
	}
}

func (d *DynamoDBWriter) Put(ctx context.Context, collection string, post models.MigratedPost) (string, error) {
	table := d.tablePrefix + collection
	if err := d.ensureTable(ctx, table); err != nil {
		return "", err
	}

	item, err := dynamodbattribute.MarshalMap(post)
	if err != nil {
		return "", fmt.Errorf("failed to marshal post %s: %w", post.ID, err)
	}

	id := d.newID()
	item[documentKey] = &dynamodb.AttributeValue{S: aws.String(id)}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store post %s: %w", post.ID, err)
	}

	return id, nil
}

// ensureTable creates the table on first use if it doesn't exist
func (d *DynamoDBWriter) ensureTable(ctx context.Context, table string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tables[table] {
		return nil
	}

	_, err := d.client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	})
	if err == nil {
		d.tables[table] = true
		return nil
	}

	d.logger.Info("Creating DynamoDB table", zap.String("table", table))

	_, err = d.client.CreateTableWithContext(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String(documentKey),
				KeyType:       aws.String("HASH"),
			},
		},
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String(documentKey),
				AttributeType: aws.String("S"),
			},
		},
		BillingMode: aws.String("PAY_PER_REQUEST"),
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	if err := d.client.WaitUntilTableExistsWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	}); err != nil {
		return fmt.Errorf("failed waiting for table %s: %w", table, err)
	}

	d.tables[table] = true
	return nil
}

func (d *DynamoDBWriter) Close() error {
	// DynamoDB client doesn't need explicit closing
	return nil
}
