package dal

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"taller-backend/models"
	"taller-backend/utils/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

const conditionalCheckFailed = "ConditionalCheckFailedException"

// dynamoAPI is the subset of the SDK client used here
type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type DynamoDBClient struct {
	client dynamoAPI
	config *models.Config
	logger logger.Logger
}

// NewDynamoDBClient creates a new DynamoDB client
func NewDynamoDBClient(cfg *models.Config, log logger.Logger) (*DynamoDBClient, error) {
	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Use static credentials if provided
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		awsCfg.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"", // session token
		))
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		// Local DynamoDB
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})

	log.Info("✅ DynamoDB client initialized successfully")
	return newDynamoDBClient(client, cfg, log), nil
}

func newDynamoDBClient(api dynamoAPI, cfg *models.Config, log logger.Logger) *DynamoDBClient {
	return &DynamoDBClient{client: api, config: cfg, logger: log}
}

// GetItem retrieves a single item by primary key, or the first match of a
// secondary index when IndexName is set. A missing item is models.ErrNotFound.
func (db *DynamoDBClient) GetItem(ctx context.Context, q models.QueryConfig, result interface{}) error {
	if q.IndexName != "" {
		output, err := db.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(q.TableName),
			IndexName:                 aws.String(q.IndexName),
			Limit:                     aws.Int32(1),
			KeyConditionExpression:    aws.String("#kn0 = :kv0"),
			ExpressionAttributeNames:  map[string]string{"#kn0": q.KeyName},
			ExpressionAttributeValues: map[string]types.AttributeValue{":kv0": keyAttribute(q)},
		})
		if err != nil {
			db.logger.Errorf("Failed to query index %s: %v", q.IndexName, err)
			return err
		}
		if len(output.Items) == 0 {
			return models.ErrNotFound
		}
		return attributevalue.UnmarshalMap(output.Items[0], result)
	}

	output, err := db.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(q.TableName),
		Key:       map[string]types.AttributeValue{q.KeyName: keyAttribute(q)},
	})
	if err != nil {
		db.logger.Errorf("Failed to get item: %v", err)
		return err
	}

	if output.Item == nil {
		return models.ErrNotFound
	}

	return attributevalue.UnmarshalMap(output.Item, result)
}

func keyAttribute(q models.QueryConfig) types.AttributeValue {
	switch q.KeyType {
	case models.NumberType:
		return &types.AttributeValueMemberN{Value: q.KeyValue}
	case models.BinaryType:
		return &types.AttributeValueMemberB{Value: []byte(q.KeyValue)}
	default:
		return &types.AttributeValueMemberS{Value: q.KeyValue}
	}
}

// PutItem stores an item in DynamoDB
func (db *DynamoDBClient) PutItem(ctx context.Context, tableName string, item interface{}) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	}

	_, err = db.client.PutItem(ctx, input)
	return err
}

// PutItemIfAbsent stores an item only when no item with the same key exists.
// It returns models.ErrConditionFailed otherwise.
func (db *DynamoDBClient) PutItemIfAbsent(ctx context.Context, tableName, keyName string, item interface{}) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = db.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(tableName),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": keyName},
	})
	return mapConditionError(err, models.ErrConditionFailed)
}

// UpdateItem sets the given fields on an existing item. Updating a missing
// item returns models.ErrNotFound instead of creating a partial one.
func (db *DynamoDBClient) UpdateItem(ctx context.Context, tableName, key, keyValue string, updates map[string]interface{}) error {
	input, err := buildUpdate(tableName, key, keyValue, updates, nil)
	if err != nil {
		return err
	}
	_, err = db.client.UpdateItem(ctx, input)
	return mapConditionError(err, models.ErrNotFound)
}

// UpdateItemIf is UpdateItem guarded by attribute equality. A missing item or
// a mismatched attribute returns models.ErrConditionFailed.
func (db *DynamoDBClient) UpdateItemIf(ctx context.Context, tableName, key, keyValue string, updates, expected map[string]interface{}) error {
	input, err := buildUpdate(tableName, key, keyValue, updates, expected)
	if err != nil {
		return err
	}
	_, err = db.client.UpdateItem(ctx, input)
	return mapConditionError(err, models.ErrConditionFailed)
}

func buildUpdate(tableName, key, keyValue string, updates, expected map[string]interface{}) (*dynamodb.UpdateItemInput, error) {
	if len(updates) == 0 {
		return nil, errors.New("no fields to update")
	}

	updateExpression := "SET "
	conditionExpression := "attribute_exists(#pk)"
	expressionAttributeNames := map[string]string{"#pk": key}
	expressionAttributeValues := make(map[string]types.AttributeValue)

	for i, field := range sortedKeys(updates) {
		if i > 0 {
			updateExpression += ", "
		}

		attrName := fmt.Sprintf("#u%d", i)
		attrValue := fmt.Sprintf(":u%d", i)

		updateExpression += attrName + " = " + attrValue
		expressionAttributeNames[attrName] = field

		av, err := attributevalue.Marshal(updates[field])
		if err != nil {
			return nil, err
		}
		expressionAttributeValues[attrValue] = av
	}

	for i, field := range sortedKeys(expected) {
		attrName := fmt.Sprintf("#c%d", i)
		attrValue := fmt.Sprintf(":c%d", i)

		conditionExpression += " AND " + attrName + " = " + attrValue
		expressionAttributeNames[attrName] = field

		av, err := attributevalue.Marshal(expected[field])
		if err != nil {
			return nil, err
		}
		expressionAttributeValues[attrValue] = av
	}

	return &dynamodb.UpdateItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			key: &types.AttributeValueMemberS{Value: keyValue},
		},
		UpdateExpression:          aws.String(updateExpression),
		ConditionExpression:       aws.String(conditionExpression),
		ExpressionAttributeNames:  expressionAttributeNames,
		ExpressionAttributeValues: expressionAttributeValues,
		ReturnValues:              types.ReturnValueNone,
	}, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DeleteItem deletes an item from DynamoDB. Deleting a missing item is not an error.
func (db *DynamoDBClient) DeleteItem(ctx context.Context, tableName, key, value string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			key: &types.AttributeValueMemberS{Value: value},
		},
	}

	_, err := db.client.DeleteItem(ctx, input)
	return err
}

// QueryByIndex returns every item of a global secondary index matching keyValue
func (db *DynamoDBClient) QueryByIndex(ctx context.Context, tableName, indexName, keyName, keyValue string, results interface{}) error {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(tableName),
		IndexName:              aws.String(indexName),
		Limit:                  aws.Int32(50),
		KeyConditionExpression: aws.String("#kn0 = :kv0"),
		ExpressionAttributeNames: map[string]string{
			"#kn0": keyName,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":kv0": &types.AttributeValueMemberS{Value: keyValue},
		},
	}

	var items []map[string]types.AttributeValue
	for {
		output, err := db.client.Query(ctx, input)
		if err != nil {
			return err
		}
		items = append(items, output.Items...)
		if len(output.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	return attributevalue.UnmarshalListOfMaps(items, results)
}

// Scan scans the entire table
func (db *DynamoDBClient) Scan(ctx context.Context, tableName string, results interface{}) error {
	input := &dynamodb.ScanInput{
		TableName: aws.String(tableName),
	}

	var items []map[string]types.AttributeValue
	for {
		output, err := db.client.Scan(ctx, input)
		if err != nil {
			return err
		}
		items = append(items, output.Items...)
		if len(output.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	return attributevalue.UnmarshalListOfMaps(items, results)
}

// CreateTable creates a table
func (db *DynamoDBClient) CreateTable(ctx context.Context, input *dynamodb.CreateTableInput) error {
	_, err := db.client.CreateTable(ctx, input)
	return err
}

// DescribeTable describes a table
func (db *DynamoDBClient) DescribeTable(ctx context.Context, tableName string) (*dynamodb.DescribeTableOutput, error) {
	input := &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}
	return db.client.DescribeTable(ctx, input)
}

// mapConditionError replaces a failed write condition with target
func mapConditionError(err, target error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == conditionalCheckFailed {
		return target
	}
	return err
}
